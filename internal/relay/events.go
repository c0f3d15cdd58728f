package relay

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/fitstr/fitstr-wallet/internal/mint"
	"github.com/fitstr/fitstr-wallet/internal/types"
	"github.com/nbd-wtf/go-nostr"
)

// Record kinds on the backup channel. Backup and wallet-info records are
// parameterized-replaceable keyed by (owner, mint), the newest supersedes.
// Nutzap records are append-only and can never be deleted.
const (
	KindWalletInfo  = 37375
	KindTokenBackup = 37376
	KindNutzap      = 9321
)

// BackupPayload is the encrypted content of a token backup record.
type BackupPayload struct {
	Mint   string       `json:"mint"`
	Proofs []mint.Proof `json:"proofs"`
}

func (p *BackupPayload) Balance() uint64 {
	var total uint64
	for _, proof := range p.Proofs {
		total += proof.Amount
	}
	return total
}

// BuildBackupEvent self-encrypts the proof set into a replaceable record.
// The cleartext tags carry only advisory metadata, never funds. The caller
// supplies createdAt: replaceable records are superseded by timestamp, so a
// publisher replacing an existing record must stamp strictly above it.
func BuildBackupEvent(privKey string, payload *BackupPayload, createdAt nostr.Timestamp) (*nostr.Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	content, err := SelfEncrypt(privKey, body)
	if err != nil {
		return nil, err
	}
	pubKey, err := nostr.GetPublicKey(privKey)
	if err != nil {
		return nil, err
	}
	evt := &nostr.Event{
		PubKey:    pubKey,
		CreatedAt: createdAt,
		Kind:      KindTokenBackup,
		Content:   content,
		Tags: nostr.Tags{
			{"d", payload.Mint},
			{"mint", payload.Mint},
			{"balance", strconv.FormatUint(payload.Balance(), 10)},
			{"proofs", strconv.Itoa(len(payload.Proofs))},
		},
	}
	if err := evt.Sign(privKey); err != nil {
		return nil, err
	}
	return evt, nil
}

// ParseBackupEvent decrypts a token backup record. A record written by a
// foreign key or corrupted in transit fails closed.
func ParseBackupEvent(privKey string, evt *nostr.Event) (*BackupPayload, error) {
	body, err := SelfDecrypt(privKey, evt.Content)
	if err != nil {
		return nil, err
	}
	var payload BackupPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrDecryptionFailed, err)
	}
	return &payload, nil
}

// BuildWalletInfoEvent is the cleartext discovery record, one per
// (owner, mint). It carries no funds-relevant secret material.
func BuildWalletInfoEvent(privKey, mintUrl, name, unit string, balance uint64) (*nostr.Event, error) {
	pubKey, err := nostr.GetPublicKey(privKey)
	if err != nil {
		return nil, err
	}
	evt := &nostr.Event{
		PubKey:    pubKey,
		CreatedAt: nostr.Now(),
		Kind:      KindWalletInfo,
		Content:   "",
		Tags: nostr.Tags{
			{"d", mintUrl},
			{"mint", mintUrl},
			{"name", name},
			{"unit", unit},
			{"balance", strconv.FormatUint(balance, 10)},
		},
	}
	if err := evt.Sign(privKey); err != nil {
		return nil, err
	}
	return evt, nil
}

// Nutzap is a parsed incoming payment notification.
type Nutzap struct {
	EventId string
	Sender  string
	Amount  uint64
	Unit    string
	Token   string
	Memo    string
}

// BuildNutzapEvent addresses a redeemable token to a recipient.
func BuildNutzapEvent(privKey, recipientPubKey, token string, amount uint64, unit, memo string) (*nostr.Event, error) {
	pubKey, err := nostr.GetPublicKey(privKey)
	if err != nil {
		return nil, err
	}
	evt := &nostr.Event{
		PubKey:    pubKey,
		CreatedAt: nostr.Now(),
		Kind:      KindNutzap,
		Content:   memo,
		Tags: nostr.Tags{
			{"p", recipientPubKey},
			{"amount", strconv.FormatUint(amount, 10)},
			{"unit", unit},
			{"cashu", token},
		},
	}
	if err := evt.Sign(privKey); err != nil {
		return nil, err
	}
	return evt, nil
}

// ParseNutzapEvent extracts the declared amount and embedded token. The
// declared amount is advisory, crediting uses whatever the mint redeems.
func ParseNutzapEvent(evt *nostr.Event) (*Nutzap, error) {
	tokenTag := evt.Tags.GetFirst([]string{"cashu"})
	if tokenTag == nil || tokenTag.Value() == "" {
		return nil, fmt.Errorf("nutzap %s carries no token", evt.ID)
	}
	nz := &Nutzap{
		EventId: evt.ID,
		Sender:  evt.PubKey,
		Token:   tokenTag.Value(),
		Memo:    evt.Content,
	}
	if amountTag := evt.Tags.GetFirst([]string{"amount"}); amountTag != nil {
		nz.Amount, _ = strconv.ParseUint(amountTag.Value(), 10, 64)
	}
	if unitTag := evt.Tags.GetFirst([]string{"unit"}); unitTag != nil {
		nz.Unit = unitTag.Value()
	}
	return nz, nil
}
