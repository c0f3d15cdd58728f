package state

import (
	"testing"

	"github.com/fitstr/fitstr-wallet/internal/config"
	"github.com/fitstr/fitstr-wallet/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupState(t *testing.T) (*State, *db.DatabaseManager) {
	t.Setenv("DB_DIR", t.TempDir())
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("NOSTR_PRIVATE_KEY", "e9ccd0ec6bb77c263dc46c0f81962c0b378a67befe089e90ef81e96a4a4c5bc5")
	config.InitConfig()

	dbm := db.NewDatabaseManager()
	return InitializeState(dbm), dbm
}

func proofSet(amounts ...uint64) []db.Proof {
	proofs := make([]db.Proof, 0, len(amounts))
	for i, a := range amounts {
		proofs = append(proofs, db.Proof{
			Amount:   a,
			Secret:   string(rune('a'+i)) + "-secret",
			C:        "02aa",
			KeysetId: "ks1",
		})
	}
	return proofs
}

func TestFreshWalletBalanceZero(t *testing.T) {
	s, _ := setupState(t)
	assert.Equal(t, uint64(0), s.GetBalance())
	assert.Empty(t, s.GetProofs())
}

func TestBalanceIsSumOfProofs(t *testing.T) {
	s, _ := setupState(t)
	require.NoError(t, s.ReplaceProofs(proofSet(1, 2, 64), "https://mint"))

	assert.Equal(t, uint64(67), s.GetBalance())
	var total uint64
	for _, p := range s.GetProofs() {
		total += p.Amount
	}
	assert.Equal(t, s.GetBalance(), total)
}

func TestReplaceProofsDurable(t *testing.T) {
	s, dbm := setupState(t)
	require.NoError(t, s.ReplaceProofs(proofSet(32, 8), "https://mint"))

	// a fresh state instance sees only the persisted rows
	reloaded := InitializeState(dbm)
	assert.Equal(t, uint64(40), reloaded.GetBalance())
	assert.Equal(t, "https://mint", reloaded.GetMintUrl())
}

func TestReplaceProofsNotifiesAfterWrite(t *testing.T) {
	s, _ := setupState(t)

	ch := make(chan interface{}, PROOFS_CHAN_LENGTH)
	s.EventBus.Subscribe(ProofsPersisted, ch)

	require.NoError(t, s.ReplaceProofs(proofSet(16), "https://mint"))

	select {
	case data := <-ch:
		snapshot, ok := data.(ProofsSnapshot)
		require.True(t, ok)
		assert.Equal(t, uint64(16), snapshot.Balance)
		assert.Equal(t, "https://mint", snapshot.MintUrl)
		assert.Len(t, snapshot.Proofs, 1)
	default:
		t.Fatal("no snapshot published after persist")
	}
}

func TestAppendProofs(t *testing.T) {
	s, _ := setupState(t)
	require.NoError(t, s.ReplaceProofs(proofSet(4), "https://mint"))
	require.NoError(t, s.AppendProofs([]db.Proof{{Amount: 2, Secret: "x-secret", C: "02bb", KeysetId: "ks1"}}, "https://mint"))

	assert.Equal(t, uint64(6), s.GetBalance())
	assert.Len(t, s.GetProofs(), 2)
}

func TestResetClearsMemoryOnly(t *testing.T) {
	s, dbm := setupState(t)
	require.NoError(t, s.ReplaceProofs(proofSet(8), "https://mint"))

	s.Reset()
	assert.Equal(t, uint64(0), s.GetBalance())

	// durable store untouched
	reloaded := InitializeState(dbm)
	assert.Equal(t, uint64(8), reloaded.GetBalance())
}

func TestHistoryBounded(t *testing.T) {
	t.Setenv("HISTORY_LIMIT", "3")
	s, _ := setupState(t)

	for i := 0; i < 5; i++ {
		s.AddTransaction(&db.Transaction{Kind: db.TX_KIND_ECASH_RECEIVED, Amount: uint64(i + 1)})
	}

	records, err := s.GetTransactionHistory(10)
	require.NoError(t, err)
	require.Len(t, records, 3)
	// newest first, oldest pruned
	assert.Equal(t, uint64(5), records[0].Amount)
	assert.Equal(t, uint64(3), records[2].Amount)
}

func TestClaimedEventsAtMostOnce(t *testing.T) {
	s, _ := setupState(t)

	claimed, err := s.IsEventClaimed("evt1")
	require.NoError(t, err)
	assert.False(t, claimed)

	require.NoError(t, s.MarkEventClaimed("evt1", 21, "sender"))

	claimed, err = s.IsEventClaimed("evt1")
	require.NoError(t, err)
	assert.True(t, claimed)

	// marking again is idempotent
	require.NoError(t, s.MarkEventClaimed("evt1", 21, "sender"))
}

func TestMintQuoteLifecycle(t *testing.T) {
	s, _ := setupState(t)

	require.NoError(t, s.SaveMintQuote(&db.MintQuote{QuoteId: "q1", Amount: 1000, PaymentRequest: "lnbc...", State: db.MINT_QUOTE_STATE_UNPAID}))

	quote, err := s.GetMintQuote("q1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), quote.Amount)
	assert.Equal(t, db.MINT_QUOTE_STATE_UNPAID, quote.State)

	require.NoError(t, s.UpdateMintQuoteState("q1", db.MINT_QUOTE_STATE_ISSUED))
	quote, err = s.GetMintQuote("q1")
	require.NoError(t, err)
	assert.Equal(t, db.MINT_QUOTE_STATE_ISSUED, quote.State)
}
