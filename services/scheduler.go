package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"token-reward-service/models"
	"token-reward-service/utils"
)

// accrualSnapshot is the JSON payload archived before a purge.
type accrualSnapshot struct {
	CutoffDay string                 `json:"cutoff_day"`
	TakenAt   time.Time              `json:"taken_at"`
	Earnings  []models.GameEarning   `json:"earnings"`
	Pending   []models.PendingReward `json:"pending"`
}

// StartRetentionScheduler runs a daily job that archives accrual rows older
// than retentionDays to cold storage and then hard-deletes them. Day keys
// would otherwise grow without bound. archive may be nil, in which case rows
// are purged without a snapshot.
func (s *RewardService) StartRetentionScheduler(archive *utils.ArchiveClient, retentionDays int) {
	if retentionDays <= 0 {
		retentionDays = 90
	}

	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(24*time.Hour),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			cutoff := s.DayKey(s.now().AddDate(0, 0, -retentionDays))

			earnings, pending, err := s.Store.AccrualsBefore(ctx, cutoff)
			if err != nil {
				utils.Sugar.Errorw("[retention] failed to load stale accruals", "error", err)
				return
			}
			if len(earnings) == 0 && len(pending) == 0 {
				return
			}

			if archive != nil {
				key := fmt.Sprintf("accruals/%s.json", cutoff)
				snapshot := accrualSnapshot{
					CutoffDay: cutoff,
					TakenAt:   s.now(),
					Earnings:  earnings,
					Pending:   pending,
				}
				if err := archive.UploadJSON(ctx, key, snapshot); err != nil {
					// Keep the rows until the snapshot lands; retry next run.
					utils.Sugar.Errorw("[retention] archive upload failed, purge skipped",
						"key", key, "error", err)
					return
				}
			}

			purged, err := s.Store.PurgeAccrualsBefore(ctx, cutoff)
			if err != nil {
				utils.Sugar.Errorw("[retention] purge failed", "cutoff", cutoff, "error", err)
				return
			}
			utils.Sugar.Infow("[retention] purged stale accrual rows",
				"cutoff", cutoff, "rows", purged)
		}),
	)
}
