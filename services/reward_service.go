package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"token-reward-service/models"
	"token-reward-service/store"
	"token-reward-service/utils"
)

// Reward amounts in whole token units.
const (
	WelcomeBonusCoins = 25
	CheckInCoins      = 2
	MiningRewardCoins = 5

	MiningCooldownHours = 24

	// ScoreCoinRate converts a game score to coins (floored).
	ScoreCoinRate = 0.1
	// DailyGameCap is the per-kind settled-coins threshold per day. It is a
	// trigger threshold, not a clamp: a submission passes while the
	// pre-submission total is below the cap, even if the resulting total
	// overshoots it.
	DailyGameCap = 100
)

// RewardService is the eligibility and issuance engine. Every mutating
// operation holds the wallet's lock for the whole check -> settle -> update
// sequence, and settlement always happens before the record update: a failed
// settlement leaves the record untouched (safe retry), while a failed update
// after settlement is classified as an InconsistencyError and persisted for
// operator reconciliation.
type RewardService struct {
	Store   store.RewardStore
	Settler Settler

	locks *walletLocks
	loc   *time.Location
	now   func() time.Time
}

func NewRewardService(st store.RewardStore, settler Settler, loc *time.Location) *RewardService {
	if loc == nil {
		loc = time.UTC
	}
	return &RewardService{
		Store:   st,
		Settler: settler,
		locks:   newWalletLocks(),
		loc:     loc,
		now:     time.Now,
	}
}

// DayKey returns the calendar-day bucket for t in the reference zone.
func (s *RewardService) DayKey(t time.Time) string {
	return t.In(s.loc).Format("2006-01-02")
}

// CoinsForScore converts a game score to coins.
func CoinsForScore(score float64) int64 {
	return int64(math.Floor(score * ScoreCoinRate))
}

func (s *RewardService) sameCalendarDay(a, b time.Time) bool {
	a, b = a.In(s.loc), b.In(s.loc)
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// remainingCooldownHours returns the whole hours left of a 24h cooldown,
// rounded up for the user-facing message. The eligibility boundary itself is
// the raw >= comparison on elapsed hours.
func remainingCooldownHours(elapsed float64) int {
	return int(math.Ceil(MiningCooldownHours - elapsed))
}

// SettlementResult is returned by operations whose only output is a receipt.
type SettlementResult struct {
	TxHash string
}

// MiningStatus is returned by StartMining (no settlement happens at start).
type MiningStatus struct {
	Message string
}

// WelcomeBonus settles the one-time signup bonus. The record is created on
// first touch if provisioning has not run yet; repeated calls are rejected
// via the WelcomeBonusAt guard.
func (s *RewardService) WelcomeBonus(ctx context.Context, wallet string) (*SettlementResult, error) {
	if wallet == "" {
		return nil, &ValidationError{Reason: "Wallet address is required."}
	}
	defer s.locks.acquire(wallet)()

	user, err := s.Store.GetByWallet(ctx, wallet)
	if errors.Is(err, store.ErrNotFound) {
		user = &models.User{ID: uuid.NewString(), WalletAddress: wallet}
		if err := s.Store.CreateUser(ctx, user); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	if user.WelcomeBonusAt != nil {
		return nil, &IneligibleError{Reason: "Welcome bonus already granted"}
	}

	txHash, err := s.Settler.Transfer(ctx, wallet, WelcomeBonusCoins)
	if err != nil {
		return nil, asTransferError(err)
	}

	now := s.now()
	user.WelcomeBonusAt = &now
	if err := s.Store.SaveUser(ctx, user); err != nil {
		return nil, s.inconsistency(ctx, wallet, "welcome_bonus", WelcomeBonusCoins, txHash, err)
	}

	utils.Sugar.Infow("welcome bonus settled", "wallet", wallet, "tx_hash", txHash)
	return &SettlementResult{TxHash: txHash}, nil
}

// DailyCheckIn settles the check-in reward once per calendar date in the
// reference zone. The boundary is the date, not 24 elapsed hours.
func (s *RewardService) DailyCheckIn(ctx context.Context, wallet string) (*SettlementResult, error) {
	if wallet == "" {
		return nil, &ValidationError{Reason: "Wallet address is required."}
	}
	defer s.locks.acquire(wallet)()

	user, err := s.Store.GetByWallet(ctx, wallet)
	if err != nil {
		return nil, notFoundOr(err, wallet)
	}

	now := s.now()
	if user.LastCheckIn != nil && s.sameCalendarDay(*user.LastCheckIn, now) {
		return nil, &IneligibleError{Reason: "Already checked in today!"}
	}

	txHash, err := s.Settler.Transfer(ctx, wallet, CheckInCoins)
	if err != nil {
		return nil, asTransferError(err)
	}

	user.LastCheckIn = &now
	if err := s.Store.SaveUser(ctx, user); err != nil {
		return nil, s.inconsistency(ctx, wallet, "daily_checkin", CheckInCoins, txHash, err)
	}

	utils.Sugar.Infow("daily check-in settled", "wallet", wallet, "tx_hash", txHash)
	return &SettlementResult{TxHash: txHash}, nil
}

// StartMining arms a 24-hour mining cycle. No settlement happens here; the
// reward is paid by ClaimMining once the cycle matures.
func (s *RewardService) StartMining(ctx context.Context, wallet string) (*MiningStatus, error) {
	if wallet == "" {
		return nil, &ValidationError{Reason: "Wallet address is required."}
	}
	defer s.locks.acquire(wallet)()

	user, err := s.Store.GetByWallet(ctx, wallet)
	if err != nil {
		return nil, notFoundOr(err, wallet)
	}

	now := s.now()
	if user.LastMineTime != nil {
		elapsed := now.Sub(*user.LastMineTime).Hours()
		if elapsed < MiningCooldownHours {
			remaining := remainingCooldownHours(elapsed)
			return nil, &IneligibleError{
				Reason:          fmt.Sprintf("Mining cooldown: try after %d hours", remaining),
				RetryAfterHours: remaining,
			}
		}
	}

	user.LastMineTime = &now
	user.MiningReady = true
	if err := s.Store.SaveUser(ctx, user); err != nil {
		// Nothing settled yet, so this is an ordinary failure.
		return nil, err
	}

	utils.Sugar.Infow("mining cycle armed", "wallet", wallet)
	return &MiningStatus{Message: "Mining started. Come back in 24 hrs."}, nil
}

// ClaimMining settles the mining reward for a matured cycle and disarms it.
// LastMineTime is left untouched so a fresh StartMining call can re-arm
// immediately after a claim.
func (s *RewardService) ClaimMining(ctx context.Context, wallet string) (*SettlementResult, error) {
	if wallet == "" {
		return nil, &ValidationError{Reason: "Wallet address is required."}
	}
	defer s.locks.acquire(wallet)()

	user, err := s.Store.GetByWallet(ctx, wallet)
	if err != nil {
		return nil, notFoundOr(err, wallet)
	}

	if user.LastMineTime == nil || !user.MiningReady {
		return nil, &IneligibleError{Reason: "Mining not ready. Start mining first."}
	}

	now := s.now()
	elapsed := now.Sub(*user.LastMineTime).Hours()
	if elapsed < MiningCooldownHours {
		remaining := remainingCooldownHours(elapsed)
		return nil, &IneligibleError{
			Reason:          fmt.Sprintf("Still mining. Wait %d more hours.", remaining),
			RetryAfterHours: remaining,
		}
	}

	txHash, err := s.Settler.Transfer(ctx, wallet, MiningRewardCoins)
	if err != nil {
		return nil, asTransferError(err)
	}

	user.MiningReady = false
	if err := s.Store.SaveUser(ctx, user); err != nil {
		return nil, s.inconsistency(ctx, wallet, "mining_claim", MiningRewardCoins, txHash, err)
	}

	utils.Sugar.Infow("mining reward settled", "wallet", wallet, "tx_hash", txHash)
	return &SettlementResult{TxHash: txHash}, nil
}

// inconsistency persists a SettlementIncident (best effort) and returns the
// typed error. The settlement already happened, so this path must be loud
// and distinguishable from every other failure.
func (s *RewardService) inconsistency(ctx context.Context, wallet, kind string, amount int64, txHash string, cause error) error {
	incident := &models.SettlementIncident{
		ID:            uuid.NewString(),
		WalletAddress: wallet,
		Kind:          kind,
		Amount:        amount,
		TxHash:        txHash,
		Message:       cause.Error(),
	}
	if err := s.Store.RecordIncident(ctx, incident); err != nil {
		utils.Sugar.Errorw("failed to persist settlement incident",
			"wallet", wallet, "kind", kind, "tx_hash", txHash, "error", err)
	}
	utils.Sugar.Errorw("settlement committed but record update failed, reconciliation required",
		"wallet", wallet, "kind", kind, "amount", amount, "tx_hash", txHash, "error", cause)
	return &InconsistencyError{TxHash: txHash, Err: cause}
}

func asTransferError(err error) error {
	var te *TransferError
	if errors.As(err, &te) {
		return err
	}
	return &TransferError{Err: err}
}

func notFoundOr(err error, wallet string) error {
	if errors.Is(err, store.ErrNotFound) {
		return &NotFoundError{Wallet: wallet}
	}
	return err
}
