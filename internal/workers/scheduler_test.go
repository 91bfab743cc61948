package workers

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradejournal/pkg/errors"
	"tradejournal/pkg/logger"
)

// Mock worker for testing
type mockWorker struct {
	*BaseWorker
	runCount int32
	runFunc  func(ctx context.Context) error
}

func newMockWorker(name, schedule string, enabled bool) *mockWorker {
	return &mockWorker{
		BaseWorker: NewBaseWorker(name, schedule, enabled),
		runFunc:    func(ctx context.Context) error { return nil },
	}
}

func (m *mockWorker) Run(ctx context.Context) error {
	atomic.AddInt32(&m.runCount, 1)
	if m.runFunc != nil {
		return m.runFunc(ctx)
	}
	return nil
}

func (m *mockWorker) GetRunCount() int {
	return int(atomic.LoadInt32(&m.runCount))
}

func TestScheduler_StartStop(t *testing.T) {
	scheduler := NewScheduler(logger.NewNop())

	worker := newMockWorker("ticker", "@every 1s", true)
	require.NoError(t, scheduler.RegisterWorker(worker))

	require.NoError(t, scheduler.Start(context.Background()))
	assert.True(t, scheduler.IsRunning())

	assert.Eventually(t, func() bool { return worker.GetRunCount() >= 1 }, 3*time.Second, 50*time.Millisecond)

	require.NoError(t, scheduler.Stop())
	assert.False(t, scheduler.IsRunning())
}

func TestScheduler_RegisterWorker(t *testing.T) {
	t.Run("bad schedule", func(t *testing.T) {
		scheduler := NewScheduler(logger.NewNop())
		err := scheduler.RegisterWorker(newMockWorker("bad", "every tuesday", true))
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrInvalidInput))
		assert.Empty(t, scheduler.GetWorkers())
	})

	t.Run("disabled worker schedule is not parsed", func(t *testing.T) {
		scheduler := NewScheduler(logger.NewNop())
		require.NoError(t, scheduler.RegisterWorker(newMockWorker("off", "", false)))
		assert.Len(t, scheduler.GetWorkers(), 1)
	})

	t.Run("duplicate name", func(t *testing.T) {
		scheduler := NewScheduler(logger.NewNop())
		require.NoError(t, scheduler.RegisterWorker(newMockWorker("dup", "@hourly", true)))
		err := scheduler.RegisterWorker(newMockWorker("dup", "@daily", true))
		assert.True(t, errors.Is(err, errors.ErrAlreadyExists))
	})

	t.Run("after start", func(t *testing.T) {
		scheduler := NewScheduler(logger.NewNop())
		require.NoError(t, scheduler.Start(context.Background()))
		defer scheduler.Stop()

		assert.Error(t, scheduler.RegisterWorker(newMockWorker("late", "@hourly", true)))
	})
}

func TestScheduler_DisabledWorker(t *testing.T) {
	scheduler := NewScheduler(logger.NewNop())

	enabledWorker := newMockWorker("enabled-worker", "@every 1s", true)
	disabledWorker := newMockWorker("disabled-worker", "@every 1s", false)

	require.NoError(t, scheduler.RegisterWorker(enabledWorker))
	require.NoError(t, scheduler.RegisterWorker(disabledWorker))

	require.NoError(t, scheduler.Start(context.Background()))

	assert.Eventually(t, func() bool { return enabledWorker.GetRunCount() >= 1 }, 3*time.Second, 50*time.Millisecond)

	require.NoError(t, scheduler.Stop())
	assert.Equal(t, 0, disabledWorker.GetRunCount())
}

func TestScheduler_CannotStartTwice(t *testing.T) {
	scheduler := NewScheduler(logger.NewNop())

	ctx := context.Background()
	require.NoError(t, scheduler.Start(ctx))
	assert.Error(t, scheduler.Start(ctx))

	require.NoError(t, scheduler.Stop())
	assert.Error(t, scheduler.Stop())
}

func TestScheduler_RunNow(t *testing.T) {
	scheduler := NewScheduler(logger.NewNop())

	ok := newMockWorker("ok", "@weekly", true)
	failing := newMockWorker("failing", "@weekly", true)
	failing.runFunc = func(ctx context.Context) error { return errors.New("boom") }
	panicking := newMockWorker("panicking", "@weekly", true)
	panicking.runFunc = func(ctx context.Context) error { panic("kaboom") }

	for _, w := range []*mockWorker{ok, failing, panicking} {
		require.NoError(t, scheduler.RegisterWorker(w))
	}

	ctx := context.Background()

	require.NoError(t, scheduler.RunNow(ctx, "ok"))
	h := ok.Health()
	assert.Equal(t, int64(1), h.RunCount)
	assert.Zero(t, h.ErrorCount)

	require.Error(t, scheduler.RunNow(ctx, "failing"))
	h = failing.Health()
	assert.Equal(t, int64(1), h.ErrorCount)
	assert.EqualError(t, h.LastError, "boom")

	err := scheduler.RunNow(ctx, "panicking")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInternal))
	assert.Equal(t, int64(1), panicking.Health().ErrorCount)

	assert.True(t, errors.Is(scheduler.RunNow(ctx, "missing"), errors.ErrNotFound))
}

func TestScheduler_GetWorkers(t *testing.T) {
	scheduler := NewScheduler(logger.NewNop())

	require.NoError(t, scheduler.RegisterWorker(newMockWorker("worker-1", "@hourly", true)))
	require.NoError(t, scheduler.RegisterWorker(newMockWorker("worker-2", "@daily", false)))

	workers := scheduler.GetWorkers()
	assert.Len(t, workers, 2)
	assert.Equal(t, "worker-1", workers[0].Name())
	assert.Equal(t, "worker-2", workers[1].Name())
}
