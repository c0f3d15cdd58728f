package wallet

import (
	"context"
	"fmt"

	"github.com/fitstr/fitstr-wallet/internal/db"
	"github.com/fitstr/fitstr-wallet/internal/mint"
	"github.com/fitstr/fitstr-wallet/internal/types"
	log "github.com/sirupsen/logrus"
)

/*
ReceiveToken
exchanges an externally supplied token with the mint for freshly owned
proofs and appends them. The mint invalidates the foreign secrets, so a
token can never be redeemed twice. A failed exchange adds no partial proofs.
*/
func (w *Wallet) ReceiveToken(ctx context.Context, encoded string) (uint64, error) {
	token, err := mint.DecodeToken(encoded)
	if err != nil {
		return 0, err
	}
	return w.receive(ctx, token, db.TX_KIND_ECASH_RECEIVED, "")
}

// ClaimNutzap redeems the token embedded in an incoming payment
// notification. Called by Wallet Sync, never by the UI directly.
func (w *Wallet) ClaimNutzap(ctx context.Context, encoded string, sender string) (uint64, error) {
	token, err := mint.DecodeToken(encoded)
	if err != nil {
		return 0, err
	}
	return w.receive(ctx, token, db.TX_KIND_NUTZAP_RECEIVED, sender)
}

func (w *Wallet) receive(ctx context.Context, token *mint.Token, kind string, counterparty string) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.ensureConnected(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", types.ErrWalletOffline, err)
	}

	received, err := w.gateway.ReceiveProofs(ctx, token)
	if err != nil {
		return 0, mapMintErr(err)
	}

	var amount uint64
	for _, p := range received {
		amount += p.Amount
	}

	mintUrl := w.state.GetMintUrl()
	if err := w.state.AppendProofs(ProofsFromWire(received, mintUrl), mintUrl); err != nil {
		log.Errorf("Ledger write failed after receive swap, proofs at risk: %v", err)
		return 0, err
	}

	w.state.AddTransaction(&db.Transaction{
		Kind:         kind,
		Amount:       amount,
		Memo:         token.Memo,
		Counterparty: counterparty,
	})

	log.Infof("Received %d as %s", amount, kind)
	return amount, nil
}
