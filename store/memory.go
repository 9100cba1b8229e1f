package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"token-reward-service/models"
)

// MemoryStore is an in-process RewardStore for local development and tests.
// Semantics match GormStore: SaveUser is a CAS on Version, the accrual
// increments are atomic.
type MemoryStore struct {
	mu        sync.Mutex
	users     map[string]*models.User // keyed by wallet address
	earnings  map[string]map[string]DayTotals
	pending   map[string]map[string]DayTotals
	incidents []models.SettlementIncident
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]*models.User),
		earnings: make(map[string]map[string]DayTotals),
		pending:  make(map[string]map[string]DayTotals),
	}
}

func (s *MemoryStore) GetByWallet(_ context.Context, wallet string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[wallet]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	copied := *user
	s.users[user.WalletAddress] = &copied
	return nil
}

func (s *MemoryStore) SaveUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.users[user.WalletAddress]
	if !ok {
		return ErrNotFound
	}
	if current.Version != user.Version {
		return ErrConflict
	}
	user.Version++
	copied := *user
	s.users[user.WalletAddress] = &copied
	return nil
}

func (s *MemoryStore) EarningsForDay(_ context.Context, userID, day string) (DayTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyTotals(s.earnings[userID][day]), nil
}

func (s *MemoryStore) AddEarning(_ context.Context, userID, day, kind string, coins int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	addTotals(s.earnings, userID, day, kind, coins)
	return nil
}

func (s *MemoryStore) PendingForDay(_ context.Context, userID, day string) (DayTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyTotals(s.pending[userID][day]), nil
}

func (s *MemoryStore) AddPending(_ context.Context, userID, day, kind string, coins int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	addTotals(s.pending, userID, day, kind, coins)
	return nil
}

func (s *MemoryStore) ClearPendingDay(_ context.Context, userID, day string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending[userID], day)
	return nil
}

func (s *MemoryStore) RecordIncident(_ context.Context, incident *models.SettlementIncident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if incident.ID == "" {
		incident.ID = uuid.NewString()
	}
	s.incidents = append(s.incidents, *incident)
	return nil
}

func (s *MemoryStore) UnresolvedIncidents(_ context.Context, limit int) ([]models.SettlementIncident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SettlementIncident
	for _, inc := range s.incidents {
		if inc.Resolved {
			continue
		}
		out = append(out, inc)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) AccrualsBefore(_ context.Context, cutoffDay string) ([]models.GameEarning, []models.PendingReward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var earnings []models.GameEarning
	for userID, days := range s.earnings {
		for day, totals := range days {
			if day >= cutoffDay {
				continue
			}
			for kind, coins := range totals {
				earnings = append(earnings, models.GameEarning{UserID: userID, Day: day, GameType: kind, Coins: coins})
			}
		}
	}
	var pending []models.PendingReward
	for userID, days := range s.pending {
		for day, totals := range days {
			if day >= cutoffDay {
				continue
			}
			for kind, coins := range totals {
				pending = append(pending, models.PendingReward{UserID: userID, Day: day, GameType: kind, Coins: coins})
			}
		}
	}
	sort.Slice(earnings, func(i, j int) bool { return earnings[i].Day < earnings[j].Day })
	sort.Slice(pending, func(i, j int) bool { return pending[i].Day < pending[j].Day })
	return earnings, pending, nil
}

func (s *MemoryStore) PurgeAccrualsBefore(_ context.Context, cutoffDay string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var purged int64
	for _, days := range s.earnings {
		for day := range days {
			if day < cutoffDay {
				purged += int64(len(days[day]))
				delete(days, day)
			}
		}
	}
	for _, days := range s.pending {
		for day := range days {
			if day < cutoffDay {
				purged += int64(len(days[day]))
				delete(days, day)
			}
		}
	}
	return purged, nil
}

func copyTotals(totals DayTotals) DayTotals {
	out := make(DayTotals, len(totals))
	for kind, coins := range totals {
		out[kind] = coins
	}
	return out
}

func addTotals(m map[string]map[string]DayTotals, userID, day, kind string, coins int64) {
	days, ok := m[userID]
	if !ok {
		days = make(map[string]DayTotals)
		m[userID] = days
	}
	totals, ok := days[day]
	if !ok {
		totals = make(DayTotals)
		days[day] = totals
	}
	totals[kind] += coins
}
