package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"token-reward-service/models"
	"token-reward-service/store"
)

type transferCall struct {
	wallet string
	amount int64
}

type fakeSettler struct {
	mu    sync.Mutex
	calls []transferCall
	err   error
	seq   int
}

func (f *fakeSettler) Transfer(_ context.Context, wallet string, amount int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.seq++
	f.calls = append(f.calls, transferCall{wallet: wallet, amount: amount})
	return fmt.Sprintf("0xtx%03d", f.seq), nil
}

func (f *fakeSettler) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeSettler) lastCall() transferCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func newTestService(t *testing.T) (*RewardService, *store.MemoryStore, *fakeSettler) {
	t.Helper()
	st := store.NewMemoryStore()
	settler := &fakeSettler{}
	svc := NewRewardService(st, settler, time.UTC)
	return svc, st, settler
}

func seedUser(t *testing.T, st *store.MemoryStore, wallet string) {
	t.Helper()
	err := st.CreateUser(context.Background(), &models.User{ID: uuid.NewString(), WalletAddress: wallet})
	require.NoError(t, err)
}

func fixNow(svc *RewardService, at time.Time) {
	svc.now = func() time.Time { return at }
}

func TestWelcomeBonusGrantedOnce(t *testing.T) {
	svc, st, settler := newTestService(t)
	ctx := context.Background()

	res, err := svc.WelcomeBonus(ctx, "0xabc")
	require.NoError(t, err)
	require.NotEmpty(t, res.TxHash)
	require.Equal(t, transferCall{wallet: "0xabc", amount: int64(WelcomeBonusCoins)}, settler.lastCall())

	// The first touch provisions the record.
	user, err := st.GetByWallet(ctx, "0xabc")
	require.NoError(t, err)
	require.NotNil(t, user.WelcomeBonusAt)

	_, err = svc.WelcomeBonus(ctx, "0xabc")
	var ie *IneligibleError
	require.ErrorAs(t, err, &ie)
	require.Equal(t, 1, settler.callCount())
}

func TestDailyCheckInIsDateBoundaryNotDuration(t *testing.T) {
	svc, st, settler := newTestService(t)
	ctx := context.Background()
	seedUser(t, st, "0xabc")

	lateEvening := time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC)
	fixNow(svc, lateEvening)

	_, err := svc.DailyCheckIn(ctx, "0xabc")
	require.NoError(t, err)
	require.Equal(t, int64(CheckInCoins), settler.lastCall().amount)

	// Same calendar date: rejected.
	_, err = svc.DailyCheckIn(ctx, "0xabc")
	var ie *IneligibleError
	require.ErrorAs(t, err, &ie)

	// Next calendar date, only one hour of wall clock later: eligible.
	fixNow(svc, time.Date(2026, 3, 2, 0, 30, 0, 0, time.UTC))
	_, err = svc.DailyCheckIn(ctx, "0xabc")
	require.NoError(t, err)
	require.Equal(t, 2, settler.callCount())
}

func TestDailyCheckInUnknownWallet(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.DailyCheckIn(context.Background(), "0xnobody")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestMiningCycle(t *testing.T) {
	svc, st, settler := newTestService(t)
	ctx := context.Background()
	seedUser(t, st, "0xabc")

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fixNow(svc, start)

	status, err := svc.StartMining(ctx, "0xabc")
	require.NoError(t, err)
	require.Equal(t, "Mining started. Come back in 24 hrs.", status.Message)
	require.Equal(t, 0, settler.callCount()) // arming settles nothing

	// Re-arm during cooldown: remaining hours are ceil(24 - elapsed).
	fixNow(svc, start.Add(1*time.Hour))
	_, err = svc.StartMining(ctx, "0xabc")
	var ie *IneligibleError
	require.ErrorAs(t, err, &ie)
	require.Equal(t, 23, ie.RetryAfterHours)

	// Claim before maturity.
	fixNow(svc, start.Add(23*time.Hour+30*time.Minute))
	_, err = svc.ClaimMining(ctx, "0xabc")
	require.ErrorAs(t, err, &ie)
	require.Equal(t, 1, ie.RetryAfterHours)

	// Claim at T+25h pays out and disarms.
	fixNow(svc, start.Add(25*time.Hour))
	res, err := svc.ClaimMining(ctx, "0xabc")
	require.NoError(t, err)
	require.NotEmpty(t, res.TxHash)
	require.Equal(t, int64(MiningRewardCoins), settler.lastCall().amount)

	user, err := st.GetByWallet(ctx, "0xabc")
	require.NoError(t, err)
	require.False(t, user.MiningReady)

	// Repeated claim fails: not armed anymore.
	_, err = svc.ClaimMining(ctx, "0xabc")
	require.ErrorAs(t, err, &ie)
	require.Contains(t, ie.Reason, "not ready")

	// LastMineTime was left untouched, so a fresh mine re-arms immediately.
	_, err = svc.StartMining(ctx, "0xabc")
	require.NoError(t, err)
}

func TestClaimMiningRequiresArmedCycle(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	seedUser(t, st, "0xabc")

	_, err := svc.ClaimMining(ctx, "0xabc")
	var ie *IneligibleError
	require.ErrorAs(t, err, &ie)
}

func TestConcurrentCheckInSettlesOnce(t *testing.T) {
	svc, st, settler := newTestService(t)
	seedUser(t, st, "0xabc")
	fixNow(svc, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	const n = 16
	var wg sync.WaitGroup
	results := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.DailyCheckIn(context.Background(), "0xabc")
			results[i] = err
		}(i)
	}
	wg.Wait()

	var successes, rejections int
	for _, err := range results {
		if err == nil {
			successes++
			continue
		}
		var ie *IneligibleError
		require.ErrorAs(t, err, &ie)
		rejections++
	}
	require.Equal(t, 1, successes)
	require.Equal(t, n-1, rejections)
	require.Equal(t, 1, settler.callCount())
}

func TestTransferFailureLeavesRecordUntouched(t *testing.T) {
	svc, st, settler := newTestService(t)
	ctx := context.Background()
	seedUser(t, st, "0xabc")
	settler.err = errors.New("rpc timeout")

	_, err := svc.DailyCheckIn(ctx, "0xabc")
	var te *TransferError
	require.ErrorAs(t, err, &te)

	user, err := st.GetByWallet(ctx, "0xabc")
	require.NoError(t, err)
	require.Nil(t, user.LastCheckIn) // safe to retry
}

// failingStore lets a test break the record update after settlement.
type failingStore struct {
	store.RewardStore
	failSaves bool
}

func (f *failingStore) SaveUser(ctx context.Context, user *models.User) error {
	if f.failSaves {
		return errors.New("connection reset")
	}
	return f.RewardStore.SaveUser(ctx, user)
}

func TestRecordUpdateFailureAfterSettlementIsInconsistency(t *testing.T) {
	mem := store.NewMemoryStore()
	failing := &failingStore{RewardStore: mem}
	settler := &fakeSettler{}
	svc := NewRewardService(failing, settler, time.UTC)
	ctx := context.Background()
	seedUser(t, mem, "0xabc")

	failing.failSaves = true
	_, err := svc.DailyCheckIn(ctx, "0xabc")

	var ic *InconsistencyError
	require.ErrorAs(t, err, &ic)
	require.NotEmpty(t, ic.TxHash)
	require.Equal(t, 1, settler.callCount()) // the transfer did happen

	incidents, err := mem.UnresolvedIncidents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, incidents, 1)
	require.Equal(t, "daily_checkin", incidents[0].Kind)
	require.Equal(t, ic.TxHash, incidents[0].TxHash)
}

func TestValidationRejectsEmptyWallet(t *testing.T) {
	svc, _, settler := newTestService(t)

	for _, call := range []func() error{
		func() error { _, err := svc.WelcomeBonus(context.Background(), ""); return err },
		func() error { _, err := svc.DailyCheckIn(context.Background(), ""); return err },
		func() error { _, err := svc.StartMining(context.Background(), ""); return err },
		func() error { _, err := svc.ClaimMining(context.Background(), ""); return err },
		func() error { _, err := svc.ClaimPending(context.Background(), ""); return err },
	} {
		var ve *ValidationError
		require.ErrorAs(t, call(), &ve)
	}
	require.Equal(t, 0, settler.callCount())
}
