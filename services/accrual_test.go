package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCoinsForScoreFloors(t *testing.T) {
	require.Equal(t, int64(10), CoinsForScore(100))
	require.Equal(t, int64(15), CoinsForScore(159))
	require.Equal(t, int64(0), CoinsForScore(9))
}

func TestSubmitScoreSettlesAndAccumulates(t *testing.T) {
	svc, st, settler := newTestService(t)
	ctx := context.Background()
	seedUser(t, st, "0xabc")
	fixNow(svc, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	res, err := svc.SubmitScore(ctx, "0xabc", "snake", 250)
	require.NoError(t, err)
	require.Equal(t, int64(25), res.CoinsEarned)
	require.Equal(t, int64(25), res.TodayTotal)
	require.Equal(t, int64(25), settler.lastCall().amount)

	res, err = svc.SubmitScore(ctx, "0xabc", "snake", 100)
	require.NoError(t, err)
	require.Equal(t, int64(10), res.CoinsEarned)
	require.Equal(t, int64(35), res.TodayTotal)
}

// The daily cap is a trigger threshold checked against the pre-submission
// total, not a clamp: at 95 settled coins a 10-coin submission still passes
// and the day ends at 105. Only then is the kind locked out.
func TestSubmitScoreCapIsTriggerThreshold(t *testing.T) {
	svc, st, settler := newTestService(t)
	ctx := context.Background()
	seedUser(t, st, "0xabc")
	fixNow(svc, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	_, err := svc.SubmitScore(ctx, "0xabc", "snake", 950) // 95 coins
	require.NoError(t, err)

	res, err := svc.SubmitScore(ctx, "0xabc", "snake", 100) // 95 < 100: passes
	require.NoError(t, err)
	require.Equal(t, int64(10), res.CoinsEarned)
	require.Equal(t, int64(105), res.TodayTotal) // overshoot, documented behavior

	_, err = svc.SubmitScore(ctx, "0xabc", "snake", 10)
	var ie *IneligibleError
	require.ErrorAs(t, err, &ie)
	require.Contains(t, ie.Reason, "Daily earning limit reached")

	// Other kinds and other days are unaffected.
	_, err = svc.SubmitScore(ctx, "0xabc", "tetris", 100)
	require.NoError(t, err)

	fixNow(svc, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))
	_, err = svc.SubmitScore(ctx, "0xabc", "snake", 100)
	require.NoError(t, err)

	require.Equal(t, 4, settler.callCount())
}

func TestSubmitScoreValidation(t *testing.T) {
	svc, st, settler := newTestService(t)
	ctx := context.Background()
	seedUser(t, st, "0xabc")

	var ve *ValidationError
	_, err := svc.SubmitScore(ctx, "0xabc", "", 100)
	require.ErrorAs(t, err, &ve)
	_, err = svc.SubmitScore(ctx, "0xabc", "snake", 0)
	require.ErrorAs(t, err, &ve)
	_, err = svc.SubmitScore(ctx, "0xabc", "snake", -5)
	require.ErrorAs(t, err, &ve)
	require.Equal(t, 0, settler.callCount())
}

func TestGameTypeIsCanonicalised(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	seedUser(t, st, "0xabc")
	fixNow(svc, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	_, err := svc.SubmitScore(ctx, "0xabc", "Flappy Bird", 100)
	require.NoError(t, err)
	res, err := svc.SubmitScore(ctx, "0xabc", "flappy-bird", 100)
	require.NoError(t, err)
	require.Equal(t, int64(20), res.TodayTotal) // same bucket

	stats, err := svc.GameStatsFor(ctx, "0xabc")
	require.NoError(t, err)
	require.Equal(t, int64(20), stats.TodayEarnings["flappy-bird"])
}

func TestAccrueAndClaimPending(t *testing.T) {
	svc, st, settler := newTestService(t)
	ctx := context.Background()
	seedUser(t, st, "0xabc")

	day1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	fixNow(svc, day1)

	pend, err := svc.AccruePending(ctx, "0xabc", "snake", 100)
	require.NoError(t, err)
	require.Equal(t, int64(10), pend.CoinsEarned)
	require.Equal(t, int64(10), pend.TodayPending)

	pend, err = svc.AccruePending(ctx, "0xabc", "tetris", 250)
	require.NoError(t, err)
	require.Equal(t, int64(25), pend.CoinsEarned)
	require.Equal(t, int64(35), pend.TodayPending) // summed across kinds

	require.Equal(t, 0, settler.callCount()) // accrual settles nothing

	res, err := svc.ClaimPending(ctx, "0xabc")
	require.NoError(t, err)
	require.Equal(t, int64(35), res.TotalClaimed)
	require.Equal(t, map[string]int64{"snake": 10, "tetris": 25}, res.Breakdown)
	require.Equal(t, int64(35), settler.lastCall().amount) // one transfer for the sum

	user, err := st.GetByWallet(ctx, "0xabc")
	require.NoError(t, err)
	require.NotNil(t, user.LastGameRewardClaim)

	// Nothing accrued since: second claim is rejected.
	_, err = svc.ClaimPending(ctx, "0xabc")
	var ie *IneligibleError
	require.ErrorAs(t, err, &ie)
	require.Contains(t, ie.Reason, "No pending game rewards")
	require.Equal(t, 1, settler.callCount())
}

func TestClaimPendingClearsOnlyToday(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	seedUser(t, st, "0xabc")

	day1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	fixNow(svc, day1)
	_, err := svc.AccruePending(ctx, "0xabc", "snake", 100)
	require.NoError(t, err)

	fixNow(svc, day2)
	_, err = svc.AccruePending(ctx, "0xabc", "snake", 200)
	require.NoError(t, err)

	res, err := svc.ClaimPending(ctx, "0xabc")
	require.NoError(t, err)
	require.Equal(t, int64(20), res.TotalClaimed) // day2 only

	// Yesterday's accrual survives the claim.
	user, err := st.GetByWallet(ctx, "0xabc")
	require.NoError(t, err)
	leftover, err := st.PendingForDay(ctx, user.ID, svc.DayKey(day1))
	require.NoError(t, err)
	require.Equal(t, int64(10), leftover["snake"])
}

func TestGameStats(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	seedUser(t, st, "0xabc")
	fixNow(svc, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	_, err := svc.SubmitScore(ctx, "0xabc", "snake", 300)
	require.NoError(t, err)
	_, err = svc.AccruePending(ctx, "0xabc", "tetris", 150)
	require.NoError(t, err)

	stats, err := svc.GameStatsFor(ctx, "0xabc")
	require.NoError(t, err)
	require.Equal(t, int64(30), stats.TodayEarnings["snake"])
	require.Equal(t, int64(15), stats.TodayPending["tetris"])
	require.Equal(t, int64(15), stats.TotalPending)
	require.Equal(t, int64(30), stats.TotalEarnedToday)

	_, err = svc.GameStatsFor(ctx, "0xnobody")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
}

// A cycle armed 25 hours ago with miningReady=true claims 5 coins and
// disarms.
func TestMatureMiningClaimEndToEnd(t *testing.T) {
	svc, st, settler := newTestService(t)
	ctx := context.Background()
	seedUser(t, st, "0xabc")

	armed := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	fixNow(svc, armed)
	_, err := svc.StartMining(ctx, "0xabc")
	require.NoError(t, err)

	fixNow(svc, armed.Add(25*time.Hour))
	res, err := svc.ClaimMining(ctx, "0xabc")
	require.NoError(t, err)
	require.NotEmpty(t, res.TxHash)
	require.Equal(t, int64(5), settler.lastCall().amount)

	user, err := st.GetByWallet(ctx, "0xabc")
	require.NoError(t, err)
	require.False(t, user.MiningReady)
}
