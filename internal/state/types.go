package state

import "github.com/fitstr/fitstr-wallet/internal/db"

// WalletState is derived from the proof set, it is never stored and never
// drifts from it.
type WalletState struct {
	PubKey  string
	MintUrl string
	Unit    string
	Balance uint64
	Proofs  []db.Proof
	Online  bool
}

// ProofsSnapshot is published on the event bus after every durable proof
// write, Wallet Sync consumes it to publish a backup.
type ProofsSnapshot struct {
	Proofs  []db.Proof
	MintUrl string
	Balance uint64
}

// IncomingPayment is published when an incoming payment notification has
// been claimed, the UI layer subscribes to it.
type IncomingPayment struct {
	EventId string
	Amount  uint64
	Sender  string
	Memo    string
}
