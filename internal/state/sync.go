package state

import (
	"errors"
	"time"

	"github.com/fitstr/fitstr-wallet/internal/db"
	"gorm.io/gorm"
)

// IsEventClaimed reports whether an incoming payment notification id has
// already been credited. Remote notification records are append-only and
// never deletable, this local set is the only duplicate-claim protection.
func (s *State) IsEventClaimed(eventId string) (bool, error) {
	var claimed db.ClaimedEvent
	err := s.dbm.GetSyncDB().Where("event_id = ?", eventId).First(&claimed).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *State) MarkEventClaimed(eventId string, amount uint64, sender string) error {
	return s.dbm.GetSyncDB().Save(&db.ClaimedEvent{
		EventId:   eventId,
		Amount:    amount,
		Sender:    sender,
		CreatedAt: time.Now(),
	}).Error
}

// IsAdvertised reports whether a wallet-info record was already published
// for the given mint.
func (s *State) IsAdvertised(mintUrl string) (bool, error) {
	var ad db.Advertisement
	err := s.dbm.GetSyncDB().Where("mint_url = ?", mintUrl).First(&ad).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *State) MarkAdvertised(mintUrl string) error {
	return s.dbm.GetSyncDB().Create(&db.Advertisement{
		MintUrl:   mintUrl,
		CreatedAt: time.Now(),
	}).Error
}
