package models

import "time"

// GameEarning is one settled-earnings bucket: coins already paid out for a
// (user, calendar day, activity kind) triple. Coins only ever grow within a
// day; the daily cap is enforced against this row before settlement.
// Rows are hard-deleted by the retention job, never soft-deleted, so the
// unique index stays usable across days.
type GameEarning struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID   string `gorm:"type:uuid;not null;uniqueIndex:idx_earning_user_day_kind;index" json:"user_id"`
	Day      string `gorm:"type:varchar(10);not null;uniqueIndex:idx_earning_user_day_kind" json:"day"`
	GameType string `gorm:"type:varchar(64);not null;uniqueIndex:idx_earning_user_day_kind" json:"game_type"`
	Coins    int64  `gorm:"not null;default:0" json:"coins"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// PendingReward is the accrued-but-not-settled track, same key shape as
// GameEarning but on separate accounting: no daily cap applies, and a batch
// claim deletes exactly one day's rows after settling their sum.
type PendingReward struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID   string `gorm:"type:uuid;not null;uniqueIndex:idx_pending_user_day_kind;index" json:"user_id"`
	Day      string `gorm:"type:varchar(10);not null;uniqueIndex:idx_pending_user_day_kind" json:"day"`
	GameType string `gorm:"type:varchar(64);not null;uniqueIndex:idx_pending_user_day_kind" json:"game_type"`
	Coins    int64  `gorm:"not null;default:0" json:"coins"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
