package wallet

import (
	"context"
	"fmt"

	"github.com/fitstr/fitstr-wallet/internal/db"
	"github.com/fitstr/fitstr-wallet/internal/types"
	log "github.com/sirupsen/logrus"
)

/*
PayInvoice
obtains a melt quote (amount plus fee reserve), submits proofs for melting
and adopts any returned change. When the selected proofs overshoot the
quote, they are first swapped to the exact amount and the intermediate set
is persisted, so a melt failure never strands value.
*/
func (w *Wallet) PayInvoice(ctx context.Context, invoice string) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.ensureConnected(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", types.ErrMintUnavailable, err)
	}

	quote, err := w.gateway.RequestMeltQuote(ctx, invoice)
	if err != nil {
		return 0, mapMintErr(err)
	}
	needed := quote.Amount + quote.FeeReserve
	if needed > w.state.GetBalance() {
		return 0, fmt.Errorf("%w: need %d including fee reserve %d", types.ErrInsufficientBalance, needed, quote.FeeReserve)
	}

	selected, rest, err := selectProofs(w.state.GetProofs(), needed)
	if err != nil {
		return 0, err
	}

	mintUrl := w.state.GetMintUrl()
	inputs := ProofsToWire(selected)
	var selectedTotal uint64
	for _, p := range selected {
		selectedTotal += p.Amount
	}
	if selectedTotal != needed {
		exact, change, err := w.gateway.Swap(ctx, inputs, needed)
		if err != nil {
			return 0, mapMintErr(err)
		}
		inputs = exact
		rest = append(rest, ProofsFromWire(change, mintUrl)...)
		// durable checkpoint: the old selected proofs are invalid mint-side
		// from here on
		checkpoint := append(append([]db.Proof{}, rest...), ProofsFromWire(exact, mintUrl)...)
		if err := w.state.ReplaceProofs(checkpoint, mintUrl); err != nil {
			log.Errorf("Ledger write failed after pre-melt swap: %v", err)
			return 0, err
		}
	}

	feePaid, change, err := w.gateway.Melt(ctx, quote, inputs)
	if err != nil {
		// inputs are still live, the persisted set already reflects them
		return 0, mapMintErr(err)
	}

	newSet := append(rest, ProofsFromWire(change, mintUrl)...)
	if err := w.state.ReplaceProofs(newSet, mintUrl); err != nil {
		log.Errorf("Ledger write failed after melt, change proofs at risk: %v", err)
		return 0, err
	}

	w.state.AddTransaction(&db.Transaction{
		Kind:    db.TX_KIND_LIGHTNING_SENT,
		Amount:  quote.Amount,
		Fee:     feePaid,
		Invoice: invoice,
	})

	log.Infof("Paid invoice for %d, fee %d", quote.Amount, feePaid)
	return feePaid, nil
}
