package state

import (
	"time"

	"github.com/fitstr/fitstr-wallet/internal/config"
	"github.com/fitstr/fitstr-wallet/internal/db"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

/*
AddTransaction
appends an advisory audit record. History is bounded, rows past the
configured limit are pruned oldest first. A failed history write is logged
and swallowed, the audit log is never allowed to fail a payment that
already settled.
*/
func (s *State) AddTransaction(record *db.Transaction) {
	record.TxId = uuid.New().String()
	record.CreatedAt = time.Now()

	walletDb := s.dbm.GetWalletDB()
	if err := walletDb.Create(record).Error; err != nil {
		log.Errorf("State AddTransaction error: %v", err)
		return
	}

	limit := config.AppConfig.HistoryLimit
	if limit <= 0 {
		return
	}
	keep := walletDb.Model(&db.Transaction{}).Select("id").Order("id desc").Limit(limit)
	if err := walletDb.Where("id NOT IN (?)", keep).Delete(&db.Transaction{}).Error; err != nil {
		log.Errorf("State history prune error: %v", err)
	}
}

// GetTransactionHistory returns audit records, newest first.
func (s *State) GetTransactionHistory(limit int) ([]db.Transaction, error) {
	if limit <= 0 || limit > config.AppConfig.HistoryLimit {
		limit = config.AppConfig.HistoryLimit
	}
	var records []db.Transaction
	if err := s.dbm.GetWalletDB().Order("id desc").Limit(limit).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
