package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/fitstr/fitstr-wallet/internal/db"
	"github.com/fitstr/fitstr-wallet/internal/mint"
	"github.com/fitstr/fitstr-wallet/internal/types"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// InvoiceQuote is the caller's handle on a pending Lightning-in payment.
type InvoiceQuote struct {
	QuoteId        string `json:"quote_id"`
	PaymentRequest string `json:"payment_request"`
	Amount         uint64 `json:"amount"`
	Expiry         int64  `json:"expiry"`
}

/*
CreateInvoice
requests a Lightning-payable quote from the mint. The quote is persisted so
it can be claimed after a restart, the proof set is untouched until then.
*/
func (w *Wallet) CreateInvoice(ctx context.Context, amount uint64, memo string) (*InvoiceQuote, error) {
	if err := w.ensureConnected(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrMintUnavailable, err)
	}

	quote, err := w.gateway.RequestMintQuote(ctx, amount, memo)
	if err != nil {
		return nil, mapMintErr(err)
	}

	if err := w.state.SaveMintQuote(&db.MintQuote{
		QuoteId:        quote.Quote,
		Amount:         amount,
		PaymentRequest: quote.Request,
		Memo:           memo,
		State:          db.MINT_QUOTE_STATE_UNPAID,
		Expiry:         quote.Expiry,
	}); err != nil {
		return nil, err
	}

	return &InvoiceQuote{
		QuoteId:        quote.Quote,
		PaymentRequest: quote.Request,
		Amount:         amount,
		Expiry:         quote.Expiry,
	}, nil
}

/*
CheckAndClaimInvoice
polls the quote status and mints proofs once the invoice has been paid.
Re-checking a still-unpaid or already-claimed quote is a no-op, not an
error. Returns true when the wallet holds the funds.
*/
func (w *Wallet) CheckAndClaimInvoice(ctx context.Context, quoteId string) (bool, error) {
	quote, err := w.state.GetMintQuote(quoteId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, fmt.Errorf("unknown quote %s", quoteId)
		}
		return false, err
	}
	if quote.State == db.MINT_QUOTE_STATE_ISSUED {
		// already claimed
		return true, nil
	}

	if err := w.ensureConnected(ctx); err != nil {
		return false, fmt.Errorf("%w: %v", types.ErrMintUnavailable, err)
	}

	remote, err := w.gateway.MintQuoteState(ctx, quoteId)
	if err != nil {
		return false, mapMintErr(err)
	}
	switch remote.State {
	case mint.QUOTE_STATE_UNPAID:
		return false, nil
	case mint.QUOTE_STATE_ISSUED:
		// another device already minted against this quote
		if err := w.state.UpdateMintQuoteState(quoteId, db.MINT_QUOTE_STATE_ISSUED); err != nil {
			log.Errorf("Failed to mark quote %s issued: %v", quoteId, err)
		}
		return false, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	// re-check under the lock, a concurrent caller may have just claimed it
	quote, err = w.state.GetMintQuote(quoteId)
	if err != nil {
		return false, err
	}
	if quote.State == db.MINT_QUOTE_STATE_ISSUED {
		return true, nil
	}

	proofs, err := w.gateway.MintProofs(ctx, quoteId, quote.Amount)
	if err != nil {
		return false, mapMintErr(err)
	}

	mintUrl := w.state.GetMintUrl()
	if err := w.state.AppendProofs(ProofsFromWire(proofs, mintUrl), mintUrl); err != nil {
		log.Errorf("Ledger write failed after minting quote %s: %v", quoteId, err)
		return false, err
	}
	if err := w.state.UpdateMintQuoteState(quoteId, db.MINT_QUOTE_STATE_ISSUED); err != nil {
		log.Errorf("Failed to mark quote %s issued: %v", quoteId, err)
	}

	w.state.AddTransaction(&db.Transaction{
		Kind:    db.TX_KIND_LIGHTNING_RECEIVED,
		Amount:  quote.Amount,
		Memo:    quote.Memo,
		Invoice: quote.PaymentRequest,
	})

	log.Infof("Claimed invoice quote %s for %d", quoteId, quote.Amount)
	return true, nil
}
