package state

import (
	"time"

	"github.com/fitstr/fitstr-wallet/internal/db"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

/*
ReplaceProofs
single choke point for every proof-set write. The full replacement set is
written in one transaction so a failed operation never leaves a partial
spend on disk. Only after the durable write is acknowledged is Wallet Sync
notified via the event bus, and that notification never blocks.
*/
func (s *State) ReplaceProofs(proofs []db.Proof, mintUrl string) error {
	s.walletMu.Lock()
	defer s.walletMu.Unlock()

	now := time.Now()
	for i := range proofs {
		proofs[i].ID = 0
		if proofs[i].MintUrl == "" {
			proofs[i].MintUrl = mintUrl
		}
		if proofs[i].CreatedAt.IsZero() {
			proofs[i].CreatedAt = now
		}
	}

	err := s.dbm.GetWalletDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&db.Proof{}).Error; err != nil {
			return err
		}
		if len(proofs) > 0 {
			if err := tx.Create(&proofs).Error; err != nil {
				return err
			}
		}
		return tx.Model(&db.WalletMeta{}).Where("id = ?", 1).
			Updates(map[string]interface{}{"mint_url": mintUrl, "updated_at": now}).Error
	})
	if err != nil {
		log.Errorf("State ReplaceProofs error: %v", err)
		return err
	}

	s.walletState.Proofs = proofs
	s.walletState.Balance = sumProofs(proofs)
	s.walletState.MintUrl = mintUrl

	snapshot := ProofsSnapshot{
		Proofs:  make([]db.Proof, len(proofs)),
		MintUrl: mintUrl,
		Balance: s.walletState.Balance,
	}
	copy(snapshot.Proofs, proofs)
	s.EventBus.Publish(ProofsPersisted, snapshot)

	return nil
}

// AppendProofs adds freshly minted or received proofs to the current set.
func (s *State) AppendProofs(proofs []db.Proof, mintUrl string) error {
	current := s.GetProofs()
	return s.ReplaceProofs(append(current, proofs...), mintUrl)
}
