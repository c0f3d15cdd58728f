package db

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// Proof model (one unspent ecash fragment, held fully or spent fully)
type Proof struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Amount    uint64    `gorm:"not null" json:"amount"`
	Secret    string    `gorm:"not null;uniqueIndex" json:"secret"`
	C         string    `gorm:"not null" json:"C"` // mint signature over the secret
	KeysetId  string    `gorm:"not null" json:"keyset_id"`
	MintUrl   string    `gorm:"not null" json:"mint_url"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

// WalletMeta model (only 1 record): owner identity and active mint
type WalletMeta struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PubKey    string    `gorm:"not null" json:"pub_key"`
	MintUrl   string    `gorm:"not null" json:"mint_url"`
	Unit      string    `gorm:"not null" json:"unit"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// Transaction model, advisory audit log, never used to compute balance
type Transaction struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TxId         string    `gorm:"not null;uniqueIndex" json:"tx_id"`
	Kind         string    `gorm:"not null" json:"kind"` // "ecash_sent", "ecash_received", "lightning_sent", "lightning_received", "nutzap_sent", "nutzap_received"
	Amount       uint64    `gorm:"not null" json:"amount"`
	Fee          uint64    `json:"fee"`
	Memo         string    `json:"memo"`
	Counterparty string    `json:"counterparty"`
	Invoice      string    `json:"invoice"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}

// MintQuote model (pending Lightning-in quote, claimable after payment)
type MintQuote struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	QuoteId        string    `gorm:"not null;uniqueIndex" json:"quote_id"`
	Amount         uint64    `gorm:"not null" json:"amount"`
	PaymentRequest string    `gorm:"not null" json:"payment_request"`
	Memo           string    `json:"memo"`
	State          string    `gorm:"not null" json:"state"` // "unpaid", "paid", "issued"
	Expiry         int64     `json:"expiry"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
}

// ClaimedEvent model: processed incoming payment notification ids.
// The relay log is append-only and never deletable, this set is the only
// at-most-once guard.
type ClaimedEvent struct {
	EventId   string    `gorm:"primaryKey" json:"event_id"`
	Amount    uint64    `gorm:"not null" json:"amount"`
	Sender    string    `json:"sender"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

// Advertisement model: mints we already announced a wallet-info record for
type Advertisement struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MintUrl   string    `gorm:"not null;uniqueIndex" json:"mint_url"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (dm *DatabaseManager) autoMigrate() {
	if err := dm.walletDb.AutoMigrate(&Proof{}, &WalletMeta{}, &Transaction{}, &MintQuote{}); err != nil {
		log.Fatalf("Failed to migrate wallet database: %v", err)
	}
	if err := dm.syncDb.AutoMigrate(&ClaimedEvent{}, &Advertisement{}); err != nil {
		log.Fatalf("Failed to migrate sync database: %v", err)
	}
}
