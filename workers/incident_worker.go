package workers

import (
	"context"
	"time"

	"token-reward-service/store"
	"token-reward-service/utils"
)

// WatchIncidents periodically re-raises unresolved settlement incidents at
// error level so they reach operator alerting until someone reconciles the
// ledger and marks them resolved. It never mutates anything itself.
func WatchIncidents(ctx context.Context, st store.RewardStore, interval time.Duration) {
	utils.Sugar.Infow("starting settlement incident watcher", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			utils.Sugar.Info("settlement incident watcher stopped")
			return
		case <-ticker.C:
			incidents, err := st.UnresolvedIncidents(ctx, 50)
			if err != nil {
				utils.Sugar.Errorw("failed to load unresolved incidents", "error", err)
				continue
			}
			for _, inc := range incidents {
				utils.Sugar.Errorw("unreconciled settlement incident",
					"incident_id", inc.ID,
					"wallet", inc.WalletAddress,
					"kind", inc.Kind,
					"amount", inc.Amount,
					"tx_hash", inc.TxHash,
					"age", time.Since(inc.CreatedAt).Round(time.Second),
				)
			}
		}
	}
}
