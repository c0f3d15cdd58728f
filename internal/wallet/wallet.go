package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fitstr/fitstr-wallet/internal/config"
	"github.com/fitstr/fitstr-wallet/internal/db"
	"github.com/fitstr/fitstr-wallet/internal/mint"
	"github.com/fitstr/fitstr-wallet/internal/state"
	"github.com/fitstr/fitstr-wallet/internal/types"
	log "github.com/sirupsen/logrus"
)

// MintGateway is the mint-side collaborator of the wallet core. A nil or
// unreachable gateway leaves the wallet in offline read-only mode.
type MintGateway interface {
	URL() string
	Connect(ctx context.Context) error
	IsConnected() bool
	RequestMintQuote(ctx context.Context, amount uint64, memo string) (*mint.MintQuoteResponse, error)
	MintQuoteState(ctx context.Context, quoteId string) (*mint.MintQuoteResponse, error)
	MintProofs(ctx context.Context, quoteId string, amount uint64) ([]mint.Proof, error)
	Swap(ctx context.Context, inputs []mint.Proof, sendAmount uint64) ([]mint.Proof, []mint.Proof, error)
	ReceiveProofs(ctx context.Context, token *mint.Token) ([]mint.Proof, error)
	RequestMeltQuote(ctx context.Context, invoice string) (*mint.MeltQuoteResponse, error)
	Melt(ctx context.Context, quote *mint.MeltQuoteResponse, inputs []mint.Proof) (uint64, []mint.Proof, error)
}

// Wallet is the sole authority over the proof set. Every mutation is
// serialized on one mutex and lands through state.ReplaceProofs, so two
// operations can never interleave a partial spend.
type Wallet struct {
	state   *state.State
	gateway MintGateway

	mu       sync.Mutex
	initOnce sync.Once
}

func NewWallet(st *state.State, gateway MintGateway) *Wallet {
	return &Wallet{
		state:   st,
		gateway: gateway,
	}
}

// Initialize returns the cached local state synchronously, it never waits on
// the network. The mint connection attempt runs in the background. Idempotent
// per process lifetime.
func (w *Wallet) Initialize(ctx context.Context) state.WalletState {
	w.initOnce.Do(func() {
		go func() {
			cctx, cancel := context.WithTimeout(ctx, config.AppConfig.MintTimeout)
			defer cancel()
			if err := w.gateway.Connect(cctx); err != nil {
				log.Warnf("Mint not reachable on startup, staying offline: %v", err)
				return
			}
			w.state.SetOnline(true)
			w.state.EventBus.Publish(state.MintConnected, w.gateway.URL())
		}()
	})
	return w.state.GetWalletState()
}

// GetBalance is always available offline.
func (w *Wallet) GetBalance() uint64 {
	return w.state.GetBalance()
}

func (w *Wallet) GetWalletState() state.WalletState {
	return w.state.GetWalletState()
}

// GetTransactionHistory returns audit records, newest first.
func (w *Wallet) GetTransactionHistory(limit int) ([]db.Transaction, error) {
	return w.state.GetTransactionHistory(limit)
}

// Reset tears the session down on logout: in-memory proofs cleared, nothing
// carries over to the next owner.
func (w *Wallet) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Reset()
}

// ensureConnected establishes the mint connection on demand with a bounded
// timeout.
func (w *Wallet) ensureConnected(ctx context.Context) error {
	if w.gateway.IsConnected() {
		return nil
	}
	cctx, cancel := context.WithTimeout(ctx, config.AppConfig.MintTimeout)
	defer cancel()
	if err := w.gateway.Connect(cctx); err != nil {
		return err
	}
	w.state.SetOnline(true)
	return nil
}

// mapMintErr keeps taxonomy errors as-is and folds everything else into
// ErrMintUnavailable.
func mapMintErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, types.ErrInsufficientBalance),
		errors.Is(err, types.ErrInvalidToken),
		errors.Is(err, types.ErrWalletOffline),
		errors.Is(err, types.ErrMintUnavailable):
		return err
	default:
		return fmt.Errorf("%w: %v", types.ErrMintUnavailable, err)
	}
}

// selectProofs picks proofs covering the requested amount, smallest first so
// large denominations survive for later sends.
func selectProofs(proofs []db.Proof, amount uint64) (selected, rest []db.Proof, err error) {
	sorted := make([]db.Proof, len(proofs))
	copy(sorted, proofs)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Amount < sorted[j-1].Amount; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	var total uint64
	for i, p := range sorted {
		if total >= amount {
			rest = append(rest, sorted[i:]...)
			break
		}
		selected = append(selected, p)
		total += p.Amount
	}
	if total < amount {
		return nil, nil, types.ErrInsufficientBalance
	}
	return selected, rest, nil
}

// ProofsToWire maps ledger rows to the mint wire format.
func ProofsToWire(proofs []db.Proof) []mint.Proof {
	wire := make([]mint.Proof, 0, len(proofs))
	for _, p := range proofs {
		wire = append(wire, mint.Proof{
			Amount: p.Amount,
			Id:     p.KeysetId,
			Secret: p.Secret,
			C:      p.C,
		})
	}
	return wire
}

// ProofsFromWire maps mint wire proofs to ledger rows.
func ProofsFromWire(proofs []mint.Proof, mintUrl string) []db.Proof {
	rows := make([]db.Proof, 0, len(proofs))
	for _, p := range proofs {
		rows = append(rows, db.Proof{
			Amount:   p.Amount,
			Secret:   p.Secret,
			C:        p.C,
			KeysetId: p.Id,
			MintUrl:  mintUrl,
		})
	}
	return rows
}
