package state

import (
	"sync"
	"time"

	"github.com/fitstr/fitstr-wallet/internal/config"
	"github.com/fitstr/fitstr-wallet/internal/db"
	log "github.com/sirupsen/logrus"
)

type State struct {
	EventBus *EventBus

	dbm *db.DatabaseManager

	walletMu    sync.RWMutex
	walletState WalletState
}

// InitializeState loads the cached ledger from the local store. It never
// touches the network, a cold start must return in well under 50ms.
func InitializeState(dbm *db.DatabaseManager) *State {
	var (
		meta   db.WalletMeta
		proofs []db.Proof
	)

	walletDb := dbm.GetWalletDB()

	if err := walletDb.First(&meta).Error; err != nil {
		log.Warnf("Failed to load wallet meta, assuming fresh wallet: %v", err)
		meta = db.WalletMeta{
			PubKey:    config.AppConfig.OwnerPubKey,
			MintUrl:   config.AppConfig.MintURL,
			Unit:      config.AppConfig.WalletUnit,
			UpdatedAt: time.Now(),
		}
		if err := walletDb.Save(&meta).Error; err != nil {
			log.Fatalf("Failed to save wallet meta: %v", err)
		}
	}

	if err := walletDb.Find(&proofs).Error; err != nil {
		log.Warnf("Failed to load proofs: %v", err)
	}

	s := &State{
		EventBus: NewEventBus(),
		dbm:      dbm,
		walletState: WalletState{
			PubKey:  meta.PubKey,
			MintUrl: meta.MintUrl,
			Unit:    meta.Unit,
			Proofs:  proofs,
			Balance: sumProofs(proofs),
		},
	}
	log.Infof("State init on startup, mint %s, %d proofs, balance %d", meta.MintUrl, len(proofs), s.walletState.Balance)
	return s
}

func sumProofs(proofs []db.Proof) uint64 {
	var total uint64
	for _, p := range proofs {
		total += p.Amount
	}
	return total
}

// GetBalance is the sum of the current proof amounts, always available
// offline.
func (s *State) GetBalance() uint64 {
	s.walletMu.RLock()
	defer s.walletMu.RUnlock()

	return s.walletState.Balance
}

// GetProofs returns a copy of the current proof set.
func (s *State) GetProofs() []db.Proof {
	s.walletMu.RLock()
	defer s.walletMu.RUnlock()

	proofs := make([]db.Proof, len(s.walletState.Proofs))
	copy(proofs, s.walletState.Proofs)
	return proofs
}

// GetWalletState reads a snapshot of the derived wallet view.
func (s *State) GetWalletState() WalletState {
	s.walletMu.RLock()
	defer s.walletMu.RUnlock()

	snapshot := s.walletState
	snapshot.Proofs = make([]db.Proof, len(s.walletState.Proofs))
	copy(snapshot.Proofs, s.walletState.Proofs)
	return snapshot
}

func (s *State) GetMintUrl() string {
	s.walletMu.RLock()
	defer s.walletMu.RUnlock()

	return s.walletState.MintUrl
}

func (s *State) SetOnline(online bool) {
	s.walletMu.Lock()
	defer s.walletMu.Unlock()

	s.walletState.Online = online
}

// Reset drops the in-memory ledger view on logout. The durable store is left
// alone, a later login reloads it.
func (s *State) Reset() {
	s.walletMu.Lock()
	defer s.walletMu.Unlock()

	s.walletState.Proofs = nil
	s.walletState.Balance = 0
	s.walletState.Online = false
}
