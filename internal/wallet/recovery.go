package wallet

import (
	"github.com/fitstr/fitstr-wallet/internal/db"
	log "github.com/sirupsen/logrus"
)

// AdoptProofs replaces the local proof set with one restored from backup.
// Wallet Sync calls this on reconciliation only after checking the restored
// set carries more value than the local one, the wallet core never lowers
// the ledger on a sync path.
func (w *Wallet) AdoptProofs(proofs []db.Proof, mintUrl string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.state.ReplaceProofs(proofs, mintUrl); err != nil {
		return err
	}
	log.Infof("Adopted %d restored proofs from backup, mint %s", len(proofs), mintUrl)
	return nil
}
