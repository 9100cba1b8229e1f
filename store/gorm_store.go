package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"token-reward-service/models"
)

// GormStore implements RewardStore on Postgres via GORM.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) GetByWallet(ctx context.Context, wallet string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("wallet_address = ?", wallet).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load user %s: %w", wallet, err)
	}
	return &user, nil
}

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if err := s.DB.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user %s: %w", user.WalletAddress, err)
	}
	return nil
}

// SaveUser writes the mutable eligibility fields conditionally on Version.
// RowsAffected == 0 means the record changed since it was loaded.
func (s *GormStore) SaveUser(ctx context.Context, user *models.User) error {
	res := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND version = ?", user.ID, user.Version).
		Updates(map[string]interface{}{
			"welcome_bonus_at":       user.WelcomeBonusAt,
			"last_check_in":          user.LastCheckIn,
			"last_mine_time":         user.LastMineTime,
			"mining_ready":           user.MiningReady,
			"last_game_reward_claim": user.LastGameRewardClaim,
			"version":                user.Version + 1,
		})
	if res.Error != nil {
		return fmt.Errorf("save user %s: %w", user.WalletAddress, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	user.Version++
	return nil
}

func (s *GormStore) EarningsForDay(ctx context.Context, userID, day string) (DayTotals, error) {
	var rows []models.GameEarning
	if err := s.DB.WithContext(ctx).Where("user_id = ? AND day = ?", userID, day).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load earnings: %w", err)
	}
	totals := make(DayTotals, len(rows))
	for _, r := range rows {
		totals[r.GameType] = r.Coins
	}
	return totals, nil
}

// AddEarning increments the (user, day, kind) bucket in one upsert so that
// concurrent submissions cannot lose a delta.
func (s *GormStore) AddEarning(ctx context.Context, userID, day, kind string, coins int64) error {
	row := models.GameEarning{
		ID:       uuid.NewString(),
		UserID:   userID,
		Day:      day,
		GameType: kind,
		Coins:    coins,
	}
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "day"}, {Name: "game_type"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"coins":      gorm.Expr("game_earnings.coins + EXCLUDED.coins"),
			"updated_at": time.Now(),
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("add earning: %w", err)
	}
	return nil
}

func (s *GormStore) PendingForDay(ctx context.Context, userID, day string) (DayTotals, error) {
	var rows []models.PendingReward
	if err := s.DB.WithContext(ctx).Where("user_id = ? AND day = ?", userID, day).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load pending rewards: %w", err)
	}
	totals := make(DayTotals, len(rows))
	for _, r := range rows {
		totals[r.GameType] = r.Coins
	}
	return totals, nil
}

func (s *GormStore) AddPending(ctx context.Context, userID, day, kind string, coins int64) error {
	row := models.PendingReward{
		ID:       uuid.NewString(),
		UserID:   userID,
		Day:      day,
		GameType: kind,
		Coins:    coins,
	}
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "day"}, {Name: "game_type"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"coins":      gorm.Expr("pending_rewards.coins + EXCLUDED.coins"),
			"updated_at": time.Now(),
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("add pending reward: %w", err)
	}
	return nil
}

func (s *GormStore) ClearPendingDay(ctx context.Context, userID, day string) error {
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND day = ?", userID, day).
		Delete(&models.PendingReward{}).Error
	if err != nil {
		return fmt.Errorf("clear pending rewards: %w", err)
	}
	return nil
}

func (s *GormStore) RecordIncident(ctx context.Context, incident *models.SettlementIncident) error {
	if incident.ID == "" {
		incident.ID = uuid.NewString()
	}
	if err := s.DB.WithContext(ctx).Create(incident).Error; err != nil {
		return fmt.Errorf("record settlement incident: %w", err)
	}
	return nil
}

func (s *GormStore) UnresolvedIncidents(ctx context.Context, limit int) ([]models.SettlementIncident, error) {
	var incidents []models.SettlementIncident
	q := s.DB.WithContext(ctx).Where("resolved = ?", false).Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&incidents).Error; err != nil {
		return nil, fmt.Errorf("load unresolved incidents: %w", err)
	}
	return incidents, nil
}

func (s *GormStore) AccrualsBefore(ctx context.Context, cutoffDay string) ([]models.GameEarning, []models.PendingReward, error) {
	var earnings []models.GameEarning
	if err := s.DB.WithContext(ctx).Where("day < ?", cutoffDay).Find(&earnings).Error; err != nil {
		return nil, nil, fmt.Errorf("load stale earnings: %w", err)
	}
	var pending []models.PendingReward
	if err := s.DB.WithContext(ctx).Where("day < ?", cutoffDay).Find(&pending).Error; err != nil {
		return nil, nil, fmt.Errorf("load stale pending rewards: %w", err)
	}
	return earnings, pending, nil
}

func (s *GormStore) PurgeAccrualsBefore(ctx context.Context, cutoffDay string) (int64, error) {
	var purged int64
	res := s.DB.WithContext(ctx).Where("day < ?", cutoffDay).Delete(&models.GameEarning{})
	if res.Error != nil {
		return purged, fmt.Errorf("purge earnings: %w", res.Error)
	}
	purged += res.RowsAffected
	res = s.DB.WithContext(ctx).Where("day < ?", cutoffDay).Delete(&models.PendingReward{})
	if res.Error != nil {
		return purged, fmt.Errorf("purge pending rewards: %w", res.Error)
	}
	purged += res.RowsAffected
	return purged, nil
}
