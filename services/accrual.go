package services

import (
	"context"
	"fmt"

	"github.com/gosimple/slug"

	"token-reward-service/utils"
)

// ScoreResult is the outcome of an immediately-settled score submission.
type ScoreResult struct {
	TxHash      string
	CoinsEarned int64
	TodayTotal  int64
}

// PendingResult is the outcome of accruing coins without settlement.
type PendingResult struct {
	CoinsEarned  int64
	TodayPending int64
}

// ClaimResult is the outcome of batch-claiming a day's pending rewards.
type ClaimResult struct {
	TxHash       string
	TotalClaimed int64
	Breakdown    map[string]int64
}

// GameStats is the read-only accrual snapshot for today.
type GameStats struct {
	TodayEarnings    map[string]int64
	TodayPending     map[string]int64
	TotalPending     int64
	TotalEarnedToday int64
}

// activityKind canonicalises a freeform game-type string into a stable
// bookkeeping key ("Flappy Bird" and "flappy-bird" share one bucket).
func activityKind(gameType string) string {
	return slug.Make(gameType)
}

func validateScoreInput(wallet, gameType string, score float64) error {
	if wallet == "" {
		return &ValidationError{Reason: "Wallet address is required."}
	}
	if gameType == "" || score <= 0 {
		return &ValidationError{Reason: "Game type and score are required."}
	}
	return nil
}

// SubmitScore converts a score to coins and settles them immediately,
// provided the day's already-settled coins for that kind are still below the
// cap. The cap is checked against the pre-submission total only, so a single
// large submission may overshoot it; the next submission is then rejected.
func (s *RewardService) SubmitScore(ctx context.Context, wallet, gameType string, score float64) (*ScoreResult, error) {
	if err := validateScoreInput(wallet, gameType, score); err != nil {
		return nil, err
	}
	kind := activityKind(gameType)
	defer s.locks.acquire(wallet)()

	user, err := s.Store.GetByWallet(ctx, wallet)
	if err != nil {
		return nil, notFoundOr(err, wallet)
	}

	today := s.DayKey(s.now())
	earnings, err := s.Store.EarningsForDay(ctx, user.ID, today)
	if err != nil {
		return nil, err
	}

	settled := earnings[kind]
	if settled >= DailyGameCap {
		return nil, &IneligibleError{
			Reason: fmt.Sprintf("Daily earning limit reached for %s. Try again tomorrow!", gameType),
		}
	}

	coins := CoinsForScore(score)
	txHash, err := s.Settler.Transfer(ctx, wallet, coins)
	if err != nil {
		return nil, asTransferError(err)
	}

	if err := s.Store.AddEarning(ctx, user.ID, today, kind, coins); err != nil {
		return nil, s.inconsistency(ctx, wallet, "score_submission", coins, txHash, err)
	}

	utils.Sugar.Infow("score reward settled",
		"wallet", wallet, "kind", kind, "coins", coins, "tx_hash", txHash)
	return &ScoreResult{TxHash: txHash, CoinsEarned: coins, TodayTotal: settled + coins}, nil
}

// AccruePending books the score's coins on the pending track instead of
// settling. No settlement call, no cap check — separate accounting.
func (s *RewardService) AccruePending(ctx context.Context, wallet, gameType string, score float64) (*PendingResult, error) {
	if err := validateScoreInput(wallet, gameType, score); err != nil {
		return nil, err
	}
	kind := activityKind(gameType)
	defer s.locks.acquire(wallet)()

	user, err := s.Store.GetByWallet(ctx, wallet)
	if err != nil {
		return nil, notFoundOr(err, wallet)
	}

	today := s.DayKey(s.now())
	coins := CoinsForScore(score)
	if err := s.Store.AddPending(ctx, user.ID, today, kind, coins); err != nil {
		return nil, err
	}

	pending, err := s.Store.PendingForDay(ctx, user.ID, today)
	if err != nil {
		return nil, err
	}

	return &PendingResult{CoinsEarned: coins, TodayPending: pending.Sum()}, nil
}

// ClaimPending settles today's pending sum as a single transfer, then clears
// exactly today's pending rows. Other days' entries are untouched.
func (s *RewardService) ClaimPending(ctx context.Context, wallet string) (*ClaimResult, error) {
	if wallet == "" {
		return nil, &ValidationError{Reason: "Wallet address is required."}
	}
	defer s.locks.acquire(wallet)()

	user, err := s.Store.GetByWallet(ctx, wallet)
	if err != nil {
		return nil, notFoundOr(err, wallet)
	}

	now := s.now()
	today := s.DayKey(now)
	pending, err := s.Store.PendingForDay(ctx, user.ID, today)
	if err != nil {
		return nil, err
	}

	total := pending.Sum()
	if total == 0 {
		return nil, &IneligibleError{Reason: "No pending game rewards to claim"}
	}

	txHash, err := s.Settler.Transfer(ctx, wallet, total)
	if err != nil {
		return nil, asTransferError(err)
	}

	if err := s.Store.ClearPendingDay(ctx, user.ID, today); err != nil {
		return nil, s.inconsistency(ctx, wallet, "pending_claim", total, txHash, err)
	}
	user.LastGameRewardClaim = &now
	if err := s.Store.SaveUser(ctx, user); err != nil {
		return nil, s.inconsistency(ctx, wallet, "pending_claim", total, txHash, err)
	}

	utils.Sugar.Infow("pending rewards settled",
		"wallet", wallet, "total", total, "tx_hash", txHash)
	return &ClaimResult{TxHash: txHash, TotalClaimed: total, Breakdown: pending}, nil
}

// GameStatsFor returns today's settled and pending totals for a wallet.
func (s *RewardService) GameStatsFor(ctx context.Context, wallet string) (*GameStats, error) {
	user, err := s.Store.GetByWallet(ctx, wallet)
	if err != nil {
		return nil, notFoundOr(err, wallet)
	}

	today := s.DayKey(s.now())
	earnings, err := s.Store.EarningsForDay(ctx, user.ID, today)
	if err != nil {
		return nil, err
	}
	pending, err := s.Store.PendingForDay(ctx, user.ID, today)
	if err != nil {
		return nil, err
	}

	return &GameStats{
		TodayEarnings:    earnings,
		TodayPending:     pending,
		TotalPending:     pending.Sum(),
		TotalEarnedToday: earnings.Sum(),
	}, nil
}
