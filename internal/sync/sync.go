package sync

import (
	"context"
	gosync "sync"
	"time"

	"github.com/fitstr/fitstr-wallet/internal/config"
	"github.com/fitstr/fitstr-wallet/internal/relay"
	"github.com/fitstr/fitstr-wallet/internal/state"
	"github.com/fitstr/fitstr-wallet/internal/wallet"
	"github.com/nbd-wtf/go-nostr"
	log "github.com/sirupsen/logrus"
)

// BackupChannel is the relay-side collaborator. Pooling, circuit breaking
// and retry scheduling live behind this interface, not in the sync engine.
type BackupChannel interface {
	Status() relay.ConnState
	Connect(ctx context.Context) error
	Publish(ctx context.Context, evt *nostr.Event) error
	Query(ctx context.Context, filter nostr.Filter) ([]*nostr.Event, error)
	Close()
}

// SyncServer keeps an encrypted off-device copy of the proof set current,
// restores it when the local ledger lags, and claims incoming payments. It
// only ever reads the ledger, mutations go back through the wallet core.
// Every failure in here degrades to offline mode, nothing propagates to the
// wallet.
type SyncServer struct {
	state   *state.State
	wallet  *wallet.Wallet
	channel BackupChannel

	privKey string
	pubKey  string

	once    gosync.Once
	claimMu gosync.Mutex

	// highest backup CreatedAt seen or published per mint; the next publish
	// stamps strictly above it so a same-second republish still supersedes
	backupMu    gosync.Mutex
	backupClock map[string]nostr.Timestamp

	proofsCh chan interface{}
}

func NewSyncServer(st *state.State, w *wallet.Wallet, channel BackupChannel) *SyncServer {
	return &SyncServer{
		state:       st,
		wallet:      w,
		channel:     channel,
		privKey:     config.AppConfig.NostrPrivateKey,
		pubKey:      config.AppConfig.OwnerPubKey,
		backupClock: make(map[string]nostr.Timestamp),
		proofsCh:    make(chan interface{}, state.PROOFS_CHAN_LENGTH),
	}
}

func (s *SyncServer) Start(ctx context.Context) {
	s.state.EventBus.Subscribe(state.ProofsPersisted, s.proofsCh)

	cctx, cancel := context.WithTimeout(ctx, config.AppConfig.RelayTimeout)
	err := s.channel.Connect(cctx)
	cancel()
	if err != nil {
		// reattempts belong to the connectivity layer, stay offline
		log.Warnf("Relay channel not reachable, sync disabled: %v", err)
	} else {
		s.Reconcile(ctx)
		s.initialBackup(ctx)
		s.PublishWalletAdvertisement(ctx)
	}

	ticker := time.NewTicker(config.AppConfig.AutoClaimInterval)
	defer ticker.Stop()

	log.Info("SyncServer started.")
	for {
		select {
		case data := <-s.proofsCh:
			if snapshot, ok := data.(state.ProofsSnapshot); ok {
				s.publishBackup(ctx, snapshot)
			}
		case <-ticker.C:
			s.claimTick(ctx)
		case <-ctx.Done():
			s.Stop()
			log.Info("SyncServer stopped.")
			return
		}
	}
}

func (s *SyncServer) Stop() {
	s.once.Do(func() {
		s.state.EventBus.Unsubscribe(state.ProofsPersisted, s.proofsCh)
		close(s.proofsCh)
		s.channel.Close()
	})
}

// claimTick skips the cycle when a previous one is still running, two
// concurrent claim cycles against the same ledger is the primary hazard
// here.
func (s *SyncServer) claimTick(ctx context.Context) {
	if s.channel.Status() != relay.Connected {
		log.Debug("Auto claim skipped, relay channel not connected")
		return
	}
	if !s.claimMu.TryLock() {
		log.Debug("Auto claim skipped, previous cycle still running")
		return
	}
	go func() {
		defer s.claimMu.Unlock()
		s.claimIncoming(ctx)
	}()
}
