package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestScheduler_RunsImmediatelyThenOnInterval(t *testing.T) {
	var runs atomic.Int32
	s := NewScheduler(10*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}, zap.NewNop())

	go s.Start(context.Background())

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()

	n := runs.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, n, runs.Load())
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	var runs atomic.Int32
	s := NewScheduler(time.Hour, func(ctx context.Context) error {
		runs.Add(1)
		return errors.New("source unavailable")
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
	s.Stop()
	assert.Equal(t, int32(1), runs.Load())
}
