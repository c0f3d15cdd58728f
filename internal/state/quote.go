package state

import (
	"time"

	"github.com/fitstr/fitstr-wallet/internal/db"
)

// SaveMintQuote persists a pending Lightning-in quote so it survives a
// restart before being claimed.
func (s *State) SaveMintQuote(quote *db.MintQuote) error {
	quote.CreatedAt = time.Now()
	return s.dbm.GetWalletDB().Create(quote).Error
}

func (s *State) GetMintQuote(quoteId string) (*db.MintQuote, error) {
	var quote db.MintQuote
	if err := s.dbm.GetWalletDB().Where("quote_id = ?", quoteId).First(&quote).Error; err != nil {
		return nil, err
	}
	return &quote, nil
}

func (s *State) UpdateMintQuoteState(quoteId string, quoteState string) error {
	return s.dbm.GetWalletDB().Model(&db.MintQuote{}).
		Where("quote_id = ?", quoteId).Update("state", quoteState).Error
}
