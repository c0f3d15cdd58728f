package wallet

import (
	"context"
	"fmt"

	"github.com/fitstr/fitstr-wallet/internal/db"
	"github.com/fitstr/fitstr-wallet/internal/mint"
	"github.com/fitstr/fitstr-wallet/internal/types"
	"github.com/nbd-wtf/go-nostr"
	log "github.com/sirupsen/logrus"
)

/*
SendValue
splits the requested amount out of the proof set via the mint's swap
exchange. The transferable subset is serialized into a token for the caller,
the change subset replaces the spent proofs locally. Any failure before the
durable write leaves the persisted proof set unchanged.
*/
func (w *Wallet) SendValue(ctx context.Context, recipient string, amount uint64, memo string) (string, error) {
	if amount == 0 {
		return "", fmt.Errorf("%w: zero amount", types.ErrInsufficientBalance)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if amount > w.state.GetBalance() {
		return "", types.ErrInsufficientBalance
	}
	if err := w.ensureConnected(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrMintUnavailable, err)
	}

	selected, rest, err := selectProofs(w.state.GetProofs(), amount)
	if err != nil {
		return "", err
	}

	send, change, err := w.gateway.Swap(ctx, ProofsToWire(selected), amount)
	if err != nil {
		return "", mapMintErr(err)
	}

	mintUrl := w.state.GetMintUrl()
	newSet := append(rest, ProofsFromWire(change, mintUrl)...)
	if err := w.state.ReplaceProofs(newSet, mintUrl); err != nil {
		// the swap already settled mint-side, surface loudly
		log.Errorf("Ledger write failed after swap, change proofs at risk: %v", err)
		return "", err
	}

	token, err := mint.NewToken(send, mintUrl, w.state.GetWalletState().Unit, memo).Serialize()
	if err != nil {
		return "", err
	}

	kind := db.TX_KIND_ECASH_SENT
	if nostr.IsValid32ByteHex(recipient) {
		kind = db.TX_KIND_NUTZAP_SENT
	}
	w.state.AddTransaction(&db.Transaction{
		Kind:         kind,
		Amount:       amount,
		Memo:         memo,
		Counterparty: recipient,
	})

	log.Infof("Sent %d %s, %d change proofs kept", amount, kind, len(change))
	return token, nil
}
