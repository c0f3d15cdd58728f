package wallet

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/fitstr/fitstr-wallet/internal/config"
	"github.com/fitstr/fitstr-wallet/internal/db"
	"github.com/fitstr/fitstr-wallet/internal/mint"
	"github.com/fitstr/fitstr-wallet/internal/state"
	"github.com/fitstr/fitstr-wallet/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGateway simulates mint-side finality: every accepted input secret is
// burned, double submission is rejected.
type fakeGateway struct {
	url         string
	failConnect bool
	connected   bool

	spent      map[string]bool
	nextSecret int

	// the real mint is a remote process, quote state must stay coherent
	// across concurrent callers
	quoteMu    sync.Mutex
	mintQuotes map[string]*mint.MintQuoteResponse
	quoteMemo  map[string]string
	mintCalls  int

	meltAmount  uint64
	meltReserve uint64
	meltFee     uint64
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		url:        "https://mint.test",
		spent:      make(map[string]bool),
		mintQuotes: make(map[string]*mint.MintQuoteResponse),
		quoteMemo:  make(map[string]string),
	}
}

func (g *fakeGateway) URL() string { return g.url }

func (g *fakeGateway) Connect(ctx context.Context) error {
	if g.failConnect {
		return fmt.Errorf("%w: dial tcp: connection refused", types.ErrMintUnavailable)
	}
	g.connected = true
	return nil
}

func (g *fakeGateway) IsConnected() bool { return g.connected }

func (g *fakeGateway) makeProofs(amounts []uint64) []mint.Proof {
	proofs := make([]mint.Proof, 0, len(amounts))
	for _, a := range amounts {
		g.nextSecret++
		proofs = append(proofs, mint.Proof{
			Amount: a,
			Id:     "ks1",
			Secret: fmt.Sprintf("secret-%d", g.nextSecret),
			C:      "02aa",
		})
	}
	return proofs
}

func (g *fakeGateway) burn(inputs []mint.Proof) error {
	for _, p := range inputs {
		if g.spent[p.Secret] {
			return &mint.MintError{Code: 11001, Detail: "Token already spent"}
		}
	}
	for _, p := range inputs {
		g.spent[p.Secret] = true
	}
	return nil
}

func (g *fakeGateway) Swap(ctx context.Context, inputs []mint.Proof, sendAmount uint64) ([]mint.Proof, []mint.Proof, error) {
	var total uint64
	for _, p := range inputs {
		total += p.Amount
	}
	if sendAmount > total {
		return nil, nil, types.ErrInsufficientBalance
	}
	if err := g.burn(inputs); err != nil {
		return nil, nil, err
	}
	return g.makeProofs(types.SplitAmount(sendAmount)), g.makeProofs(types.SplitAmount(total - sendAmount)), nil
}

func (g *fakeGateway) ReceiveProofs(ctx context.Context, token *mint.Token) ([]mint.Proof, error) {
	if err := g.burn(token.Proofs()); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidToken, err)
	}
	return g.makeProofs(types.SplitAmount(token.Amount())), nil
}

func (g *fakeGateway) RequestMintQuote(ctx context.Context, amount uint64, memo string) (*mint.MintQuoteResponse, error) {
	g.quoteMu.Lock()
	defer g.quoteMu.Unlock()
	id := fmt.Sprintf("quote-%d", len(g.mintQuotes)+1)
	quote := &mint.MintQuoteResponse{Quote: id, Request: "lnbc" + id, State: mint.QUOTE_STATE_UNPAID}
	g.mintQuotes[id] = quote
	g.quoteMemo[id] = memo
	return quote, nil
}

func (g *fakeGateway) MintQuoteState(ctx context.Context, quoteId string) (*mint.MintQuoteResponse, error) {
	g.quoteMu.Lock()
	defer g.quoteMu.Unlock()
	quote, ok := g.mintQuotes[quoteId]
	if !ok {
		return nil, &mint.MintError{Code: 20005, Detail: "quote not found"}
	}
	snapshot := *quote
	return &snapshot, nil
}

func (g *fakeGateway) MintProofs(ctx context.Context, quoteId string, amount uint64) ([]mint.Proof, error) {
	g.quoteMu.Lock()
	defer g.quoteMu.Unlock()
	quote, ok := g.mintQuotes[quoteId]
	if !ok || quote.State != mint.QUOTE_STATE_PAID {
		return nil, &mint.MintError{Code: 20001, Detail: "quote not paid"}
	}
	quote.State = mint.QUOTE_STATE_ISSUED
	g.mintCalls++
	return g.makeProofs(types.SplitAmount(amount)), nil
}

func (g *fakeGateway) RequestMeltQuote(ctx context.Context, invoice string) (*mint.MeltQuoteResponse, error) {
	return &mint.MeltQuoteResponse{Quote: "melt-1", Amount: g.meltAmount, FeeReserve: g.meltReserve, State: mint.QUOTE_STATE_UNPAID}, nil
}

func (g *fakeGateway) Melt(ctx context.Context, quote *mint.MeltQuoteResponse, inputs []mint.Proof) (uint64, []mint.Proof, error) {
	if err := g.burn(inputs); err != nil {
		return 0, nil, err
	}
	change := g.makeProofs(types.SplitAmount(quote.FeeReserve - g.meltFee))
	return g.meltFee, change, nil
}

func setupWallet(t *testing.T) (*Wallet, *fakeGateway, *state.State) {
	t.Setenv("DB_DIR", t.TempDir())
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("NOSTR_PRIVATE_KEY", "e9ccd0ec6bb77c263dc46c0f81962c0b378a67befe089e90ef81e96a4a4c5bc5")
	t.Setenv("MINT_URL", "https://mint.test")
	config.InitConfig()

	st := state.InitializeState(db.NewDatabaseManager())
	gateway := newFakeGateway()
	return NewWallet(st, gateway), gateway, st
}

func seedBalance(t *testing.T, w *Wallet, g *fakeGateway, st *state.State, amounts ...uint64) {
	proofs := ProofsFromWire(g.makeProofs(amounts), g.url)
	require.NoError(t, st.ReplaceProofs(proofs, g.url))
}

func TestFreshWalletRejectsSend(t *testing.T) {
	w, _, _ := setupWallet(t)

	assert.Equal(t, uint64(0), w.GetBalance())
	_, err := w.SendValue(context.Background(), "", 1, "")
	assert.ErrorIs(t, err, types.ErrInsufficientBalance)
	assert.Equal(t, uint64(0), w.GetBalance())
}

func TestReceiveTokenCreditsBalance(t *testing.T) {
	w, g, _ := setupWallet(t)

	token, err := mint.NewToken(g.makeProofs([]uint64{4, 16, 480}), g.url, "sat", "").Serialize()
	require.NoError(t, err)

	amount, err := w.ReceiveToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), amount)
	assert.Equal(t, uint64(500), w.GetBalance())

	history, err := w.GetTransactionHistory(10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, db.TX_KIND_ECASH_RECEIVED, history[0].Kind)
	assert.Equal(t, uint64(500), history[0].Amount)
}

func TestReceiveTokenTwiceFails(t *testing.T) {
	w, g, _ := setupWallet(t)

	token, err := mint.NewToken(g.makeProofs([]uint64{8}), g.url, "sat", "").Serialize()
	require.NoError(t, err)

	_, err = w.ReceiveToken(context.Background(), token)
	require.NoError(t, err)

	_, err = w.ReceiveToken(context.Background(), token)
	assert.ErrorIs(t, err, types.ErrInvalidToken)
	assert.Equal(t, uint64(8), w.GetBalance())
}

func TestSendValueRoundTrip(t *testing.T) {
	w, g, st := setupWallet(t)
	seedBalance(t, w, g, st, 256, 128, 64, 32, 16, 4)

	token, err := w.SendValue(context.Background(), "", 200, "coffee")
	require.NoError(t, err)
	assert.Equal(t, uint64(300), w.GetBalance())

	decoded, err := mint.DecodeToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(200), decoded.Amount())
	assert.Equal(t, "coffee", decoded.Memo)

	// a second instance redeems exactly the sent amount
	w2, _, _ := setupWallet(t)
	w2.gateway = g
	amount, err := w2.ReceiveToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, uint64(200), amount)
	assert.Equal(t, uint64(200), w2.GetBalance())
}

func TestSendValueMintDown(t *testing.T) {
	w, g, st := setupWallet(t)
	seedBalance(t, w, g, st, 64, 32, 4)
	g.failConnect = true
	g.connected = false

	before := st.GetProofs()
	_, err := w.SendValue(context.Background(), "", 50, "")
	assert.ErrorIs(t, err, types.ErrMintUnavailable)
	assert.Equal(t, before, st.GetProofs())
	assert.Equal(t, uint64(100), w.GetBalance())
}

func TestReceiveTokenOffline(t *testing.T) {
	w, g, _ := setupWallet(t)
	token, err := mint.NewToken(g.makeProofs([]uint64{8}), g.url, "sat", "").Serialize()
	require.NoError(t, err)
	g.failConnect = true

	_, err = w.ReceiveToken(context.Background(), token)
	assert.ErrorIs(t, err, types.ErrWalletOffline)
	assert.Equal(t, uint64(0), w.GetBalance())
}

func TestReceiveTokenMalformed(t *testing.T) {
	w, _, _ := setupWallet(t)
	_, err := w.ReceiveToken(context.Background(), "garbage")
	assert.ErrorIs(t, err, types.ErrInvalidToken)
}

func TestInvoiceLifecycle(t *testing.T) {
	w, g, _ := setupWallet(t)

	quote, err := w.CreateInvoice(context.Background(), 1000, "topup")
	require.NoError(t, err)
	assert.NotEmpty(t, quote.PaymentRequest)
	assert.Equal(t, uint64(0), w.GetBalance())

	claimed, err := w.CheckAndClaimInvoice(context.Background(), quote.QuoteId)
	require.NoError(t, err)
	assert.False(t, claimed)

	// invoice gets paid
	g.mintQuotes[quote.QuoteId].State = mint.QUOTE_STATE_PAID

	claimed, err = w.CheckAndClaimInvoice(context.Background(), quote.QuoteId)
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, uint64(1000), w.GetBalance())

	// re-checking an already-claimed quote is a no-op
	claimed, err = w.CheckAndClaimInvoice(context.Background(), quote.QuoteId)
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, uint64(1000), w.GetBalance())
	assert.Equal(t, 1, g.mintCalls)
}

func TestCheckAndClaimInvoiceConcurrent(t *testing.T) {
	w, g, _ := setupWallet(t)

	quote, err := w.CreateInvoice(context.Background(), 500, "")
	require.NoError(t, err)
	g.mintQuotes[quote.QuoteId].State = mint.QUOTE_STATE_PAID

	// two racing claims must credit exactly once, the loser observes the
	// quote already issued instead of double-minting
	var wg sync.WaitGroup
	claims := make([]bool, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			claims[i], errs[i] = w.CheckAndClaimInvoice(context.Background(), quote.QuoteId)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 2; i++ {
		require.NoError(t, errs[i])
	}
	assert.True(t, claims[0] || claims[1])
	assert.Equal(t, 1, g.mintCalls)
	assert.Equal(t, uint64(500), w.GetBalance())

	history, err := w.GetTransactionHistory(10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestCheckUnknownQuote(t *testing.T) {
	w, _, _ := setupWallet(t)
	_, err := w.CheckAndClaimInvoice(context.Background(), "nope")
	assert.Error(t, err)
}

func TestPayInvoice(t *testing.T) {
	w, g, st := setupWallet(t)
	seedBalance(t, w, g, st, 64, 32, 4)
	g.meltAmount = 80
	g.meltReserve = 2
	g.meltFee = 1

	feePaid, err := w.PayInvoice(context.Background(), "lnbc80n1...")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), feePaid)
	// 100 - 80 - 1 actual fee
	assert.Equal(t, uint64(19), w.GetBalance())

	history, err := w.GetTransactionHistory(1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, db.TX_KIND_LIGHTNING_SENT, history[0].Kind)
	assert.Equal(t, uint64(80), history[0].Amount)
	assert.Equal(t, uint64(1), history[0].Fee)
}

func TestPayInvoiceInsufficient(t *testing.T) {
	w, g, st := setupWallet(t)
	seedBalance(t, w, g, st, 8, 2)
	g.meltAmount = 80
	g.meltReserve = 2

	before := st.GetProofs()
	_, err := w.PayInvoice(context.Background(), "lnbc80n1...")
	assert.ErrorIs(t, err, types.ErrInsufficientBalance)
	assert.Equal(t, before, st.GetProofs())
}

func TestInitializeOfflineServesCachedState(t *testing.T) {
	w, g, st := setupWallet(t)
	seedBalance(t, w, g, st, 128)
	g.failConnect = true

	ws := w.Initialize(context.Background())
	assert.Equal(t, uint64(128), ws.Balance)
	assert.Equal(t, uint64(128), w.GetBalance())
}
