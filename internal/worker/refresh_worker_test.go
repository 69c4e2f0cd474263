package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custos/internal/core"
	"custos/internal/services"
)

type fakeRefresher struct {
	calls atomic.Int32
	err   error
}

func (f *fakeRefresher) Refresh(context.Context) (services.LoadResult, error) {
	f.calls.Add(1)
	return services.LoadResult{ID: "load-1", Outcome: services.LoadOutcome{Status: services.StatusOK}}, f.err
}

type fakePruner struct {
	cutoff time.Time
	n      int64
	err    error
}

func (f *fakePruner) PruneBefore(_ context.Context, t time.Time) (int64, error) {
	f.cutoff = t
	return f.n, f.err
}

func TestPruneHistoryUsesRetention(t *testing.T) {
	pruner := &fakePruner{n: 3}
	w := NewRefreshWorker(&fakeRefresher{}, pruner, Config{HistoryRetention: 48 * time.Hour}, nil)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	n, err := w.PruneHistory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, now.Add(-48*time.Hour), pruner.cutoff)
}

func TestPruneHistoryDisabled(t *testing.T) {
	pruner := &fakePruner{n: 3}
	w := NewRefreshWorker(&fakeRefresher{}, pruner, Config{}, nil)
	n, err := w.PruneHistory(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.True(t, pruner.cutoff.IsZero(), "pruner must not be called without retention")

	w = NewRefreshWorker(&fakeRefresher{}, nil, Config{HistoryRetention: time.Hour}, nil)
	require.NoError(t, w.StartupCheck(context.Background()))
}

func TestPruneHistoryError(t *testing.T) {
	w := NewRefreshWorker(&fakeRefresher{}, &fakePruner{err: errors.New("locked")}, Config{HistoryRetention: time.Hour}, nil)
	err := w.StartupCheck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked")
}

func TestRefreshOnce(t *testing.T) {
	ok := &fakeRefresher{}
	require.NoError(t, NewRefreshWorker(ok, nil, Config{}, nil).RefreshOnce(context.Background()))
	assert.Equal(t, int32(1), ok.calls.Load())

	schema := &fakeRefresher{err: &core.SchemaError{Field: core.FieldValue, Header: "Valor/MR"}}
	assert.NoError(t, NewRefreshWorker(schema, nil, Config{}, nil).RefreshOnce(context.Background()))

	failing := &fakeRefresher{err: errors.New("boom")}
	assert.Error(t, NewRefreshWorker(failing, nil, Config{}, nil).RefreshOnce(context.Background()))
}

func TestRunRefreshesOnInterval(t *testing.T) {
	r := &fakeRefresher{}
	w := NewRefreshWorker(r, nil, Config{RefreshInterval: 10 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return r.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunReturnsWhenNothingScheduled(t *testing.T) {
	w := NewRefreshWorker(&fakeRefresher{}, nil, Config{}, nil)
	done := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run should return immediately when disabled")
	}
}
