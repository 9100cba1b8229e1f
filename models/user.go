package models

import (
	"time"

	"gorm.io/gorm"
)

// User is the per-wallet identity record: the unit of reward eligibility.
// Provisioning normally happens upstream; the engine only reads and
// conditionally updates it (the welcome-bonus path creates the row on first
// touch, mirroring the original onboarding flow).
type User struct {
	ID            string `gorm:"primaryKey;type:uuid" json:"id"`
	WalletAddress string `gorm:"type:varchar(128);not null;uniqueIndex" json:"wallet_address"`

	// WelcomeBonusAt doubles as the "bonus already granted" guard.
	WelcomeBonusAt *time.Time `json:"welcome_bonus_at,omitempty"`

	LastCheckIn *time.Time `json:"last_check_in,omitempty"`

	// Mining cycle: LastMineTime marks when the cycle was armed, MiningReady
	// stays true until the reward is claimed. Claiming leaves LastMineTime
	// untouched so a fresh mine call can re-arm immediately.
	LastMineTime *time.Time `json:"last_mine_time,omitempty"`
	MiningReady  bool       `gorm:"not null;default:false" json:"mining_ready"`

	LastGameRewardClaim *time.Time `json:"last_game_reward_claim,omitempty"`

	// Version is the optimistic-concurrency token; conditional updates bump
	// it and fail loudly if the row moved underneath.
	Version int64 `gorm:"not null;default:0" json:"-"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
