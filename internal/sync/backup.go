package sync

import (
	"context"
	"errors"

	"github.com/fitstr/fitstr-wallet/internal/config"
	"github.com/fitstr/fitstr-wallet/internal/relay"
	"github.com/fitstr/fitstr-wallet/internal/state"
	"github.com/fitstr/fitstr-wallet/internal/types"
	"github.com/fitstr/fitstr-wallet/internal/wallet"
	"github.com/nbd-wtf/go-nostr"
	log "github.com/sirupsen/logrus"
)

/*
publishBackup
self-encrypts the proof set and publishes it as a replaceable record keyed
by (owner, mint). Strictly best-effort: a failed backup is logged and
dropped, it must never block or fail a local payment that already settled.
*/
func (s *SyncServer) publishBackup(ctx context.Context, snapshot state.ProofsSnapshot) {
	if s.channel.Status() != relay.Connected {
		log.Debug("Backup skipped, relay channel not connected")
		return
	}

	payload := &relay.BackupPayload{
		Mint:   snapshot.MintUrl,
		Proofs: wallet.ProofsToWire(snapshot.Proofs),
	}
	evt, err := relay.BuildBackupEvent(s.privKey, payload, s.nextBackupStamp(snapshot.MintUrl))
	if err != nil {
		log.Errorf("Failed to build backup record: %v", err)
		return
	}

	cctx, cancel := context.WithTimeout(ctx, config.AppConfig.RelayTimeout)
	defer cancel()
	if err := s.channel.Publish(cctx, evt); err != nil {
		log.Warnf("Backup publish failed, will be superseded by the next mutation: %v", err)
		return
	}

	s.state.EventBus.Publish(state.BackupPublished, snapshot.MintUrl)
	log.Debugf("Backup published, mint %s, balance %d, %d proofs", snapshot.MintUrl, snapshot.Balance, len(snapshot.Proofs))
}

// nextBackupStamp returns a timestamp strictly above every backup record
// seen or published for the mint. Relay timestamps have one-second
// resolution, a record republished within the same second would otherwise
// tie with the one it replaces instead of superseding it.
func (s *SyncServer) nextBackupStamp(mintUrl string) nostr.Timestamp {
	s.backupMu.Lock()
	defer s.backupMu.Unlock()

	ts := nostr.Now()
	if last, ok := s.backupClock[mintUrl]; ok && ts <= last {
		ts = last + 1
	}
	s.backupClock[mintUrl] = ts
	return ts
}

func (s *SyncServer) observeBackupStamp(mintUrl string, ts nostr.Timestamp) {
	s.backupMu.Lock()
	defer s.backupMu.Unlock()

	if ts > s.backupClock[mintUrl] {
		s.backupClock[mintUrl] = ts
	}
}

// initialBackup publishes one backup on startup if the owner has none yet.
func (s *SyncServer) initialBackup(ctx context.Context) {
	remote, err := s.queryBackups(ctx)
	if err != nil {
		log.Warnf("Initial backup check failed: %v", err)
		return
	}
	if len(remote) > 0 {
		return
	}
	ws := s.state.GetWalletState()
	s.publishBackup(ctx, state.ProofsSnapshot{
		Proofs:  ws.Proofs,
		MintUrl: ws.MintUrl,
		Balance: ws.Balance,
	})
}

// queryBackups fetches the newest replaceable backup record per mint.
func (s *SyncServer) queryBackups(ctx context.Context) (map[string]*nostr.Event, error) {
	cctx, cancel := context.WithTimeout(ctx, config.AppConfig.RestoreTimeout)
	defer cancel()

	events, err := s.channel.Query(cctx, nostr.Filter{
		Kinds:   []int{relay.KindTokenBackup},
		Authors: []string{s.pubKey},
	})
	if err != nil {
		return nil, err
	}

	newest := make(map[string]*nostr.Event)
	for _, evt := range events {
		mintTag := evt.Tags.GetFirst([]string{"d"})
		if mintTag == nil {
			continue
		}
		mintUrl := mintTag.Value()
		prev, ok := newest[mintUrl]
		// same-second ties break on the lowest event id, per NIP-01
		if !ok || evt.CreatedAt > prev.CreatedAt ||
			(evt.CreatedAt == prev.CreatedAt && evt.ID < prev.ID) {
			newest[mintUrl] = evt
		}
	}
	for mintUrl, evt := range newest {
		s.observeBackupStamp(mintUrl, evt.CreatedAt)
	}
	return newest, nil
}

/*
RestoreFromBackup
fetches all backup records for the owner across known mints, decrypts each
and returns the proof set with the highest total value. A record that fails
to decrypt is skipped, never aborts the whole restore. Returns nil if no
usable backup exists.
*/
func (s *SyncServer) RestoreFromBackup(ctx context.Context) (*relay.BackupPayload, error) {
	newest, err := s.queryBackups(ctx)
	if err != nil {
		return nil, err
	}

	var best *relay.BackupPayload
	for mintUrl, evt := range newest {
		payload, err := relay.ParseBackupEvent(s.privKey, evt)
		if err != nil {
			if errors.Is(err, types.ErrDecryptionFailed) {
				log.Warnf("Skipping undecryptable backup record for mint %s: %v", mintUrl, err)
				continue
			}
			return nil, err
		}
		if best == nil || payload.Balance() > best.Balance() {
			best = payload
		}
	}
	return best, nil
}

/*
Reconcile
compares the local balance against the best remote backup on startup. If
remote holds more, the remote set is adopted wholesale (reinstall
recovery). If local holds more, the stale remote is republished. Equal
balances are left alone, so a second consecutive call changes nothing.

This is a balance heuristic, not a merge: proofs cannot be unioned, since
double-counting one across both sides would book spent value as live. The
cost is that disjoint-but-legitimate proofs on the losing side (two devices
minting independently while offline) are silently discarded.
*/
func (s *SyncServer) Reconcile(ctx context.Context) {
	if s.channel.Status() != relay.Connected {
		log.Debug("Reconcile skipped, relay channel not connected")
		return
	}

	remote, err := s.RestoreFromBackup(ctx)
	if err != nil {
		log.Warnf("Reconcile aborted, restore failed: %v", err)
		return
	}

	local := s.state.GetBalance()
	var remoteBalance uint64
	if remote != nil {
		remoteBalance = remote.Balance()
	}

	switch {
	case remoteBalance > local:
		log.Infof("Reconcile: adopting remote backup, remote %d > local %d", remoteBalance, local)
		if err := s.wallet.AdoptProofs(wallet.ProofsFromWire(remote.Proofs, remote.Mint), remote.Mint); err != nil {
			log.Errorf("Reconcile failed to adopt remote proofs: %v", err)
		}
	case local > remoteBalance:
		log.Infof("Reconcile: remote stale, republishing local, local %d > remote %d", local, remoteBalance)
		ws := s.state.GetWalletState()
		s.publishBackup(ctx, state.ProofsSnapshot{
			Proofs:  ws.Proofs,
			MintUrl: ws.MintUrl,
			Balance: ws.Balance,
		})
	default:
		log.Debugf("Reconcile: local and remote agree at %d", local)
	}
}
