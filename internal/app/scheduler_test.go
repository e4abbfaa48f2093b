package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bobmcallan/fieldledger/internal/common"
	"github.com/bobmcallan/fieldledger/internal/interfaces"
)

// refreshRecorder counts refresh calls and records the scope they ran in.
type refreshRecorder struct {
	interfaces.LedgerService
	calls    atomic.Int32
	allUsers atomic.Bool
	err      error
}

func (r *refreshRecorder) RefreshStatuses(ctx context.Context) (int, error) {
	r.calls.Add(1)
	if uc := common.UserContextFromContext(ctx); uc != nil && uc.AllUsers {
		r.allUsers.Store(true)
	}
	return 3, r.err
}

func TestRefreshStatuses_RunsAcrossAllUsers(t *testing.T) {
	rec := &refreshRecorder{}
	changed := refreshStatuses(context.Background(), rec, common.NewSilentLogger())

	assert.Equal(t, 3, changed)
	assert.Equal(t, int32(1), rec.calls.Load())
	assert.True(t, rec.allUsers.Load())
}

func TestRefreshStatuses_FailureReportsZero(t *testing.T) {
	rec := &refreshRecorder{err: errors.New("database is locked")}
	assert.Equal(t, 0, refreshStatuses(context.Background(), rec, common.NewSilentLogger()))
}

func TestStatusScheduler_TicksUntilCanceled(t *testing.T) {
	rec := &refreshRecorder{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		startStatusScheduler(ctx, rec, common.NewSilentLogger(), 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return rec.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}

func TestStartStatusScheduler_DisabledByZeroInterval(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ledger.StatusRefresh = "0"

	a, err := NewAppWithConfig(cfg, common.NewSilentLogger())
	if !assert.NoError(t, err) {
		return
	}
	defer a.Close()

	a.StartStatusScheduler()
	assert.Nil(t, a.schedulerCancel)

	a.StartWarmCache()
	assert.NotNil(t, a.warmCacheCancel)
}
