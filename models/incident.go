package models

import "time"

// SettlementIncident records a settle-succeeded/record-update-failed
// divergence: tokens left the treasury but the eligibility record could not
// be stamped. These require operator reconciliation and are watched by the
// incident worker until marked resolved.
type SettlementIncident struct {
	ID            string `gorm:"primaryKey;type:uuid" json:"id"`
	WalletAddress string `gorm:"type:varchar(128);not null;index" json:"wallet_address"`
	Kind          string `gorm:"type:varchar(32);not null" json:"kind"`
	Amount        int64  `gorm:"not null" json:"amount"`
	TxHash        string `gorm:"type:varchar(128)" json:"tx_hash"`
	Message       string `gorm:"type:text" json:"message"`
	Resolved      bool   `gorm:"not null;default:false;index" json:"resolved"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
