package store

import (
	"context"
	"errors"

	"token-reward-service/models"
)

var (
	// ErrNotFound is returned when no identity record exists for a wallet.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned by SaveUser when the record changed since it
	// was loaded (optimistic-concurrency check failed).
	ErrConflict = errors.New("conflicting update")
)

// DayTotals maps an activity kind to coins for a single calendar day.
type DayTotals map[string]int64

// Sum returns the total coins across all kinds.
func (d DayTotals) Sum() int64 {
	var total int64
	for _, coins := range d {
		total += coins
	}
	return total
}

// RewardStore is the durable eligibility store the engine depends on. The
// engine never touches a concrete database client; everything it needs is a
// conditional read-modify-write against this interface.
//
// SaveUser applies a compare-and-swap on the record's Version and returns
// ErrConflict if the row moved. AddEarning/AddPending are atomic increments
// (a single upsert), so concurrent submissions never lose a delta.
type RewardStore interface {
	GetByWallet(ctx context.Context, wallet string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	SaveUser(ctx context.Context, user *models.User) error

	EarningsForDay(ctx context.Context, userID, day string) (DayTotals, error)
	AddEarning(ctx context.Context, userID, day, kind string, coins int64) error

	PendingForDay(ctx context.Context, userID, day string) (DayTotals, error)
	AddPending(ctx context.Context, userID, day, kind string, coins int64) error
	ClearPendingDay(ctx context.Context, userID, day string) error

	RecordIncident(ctx context.Context, incident *models.SettlementIncident) error
	UnresolvedIncidents(ctx context.Context, limit int) ([]models.SettlementIncident, error)

	// Retention: AccrualsBefore returns rows with a day key strictly older
	// than cutoffDay; PurgeAccrualsBefore hard-deletes them.
	AccrualsBefore(ctx context.Context, cutoffDay string) ([]models.GameEarning, []models.PendingReward, error)
	PurgeAccrualsBefore(ctx context.Context, cutoffDay string) (int64, error)
}
