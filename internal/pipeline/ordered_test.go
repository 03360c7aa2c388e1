package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dtaerrors "github.com/ajitpratap0/dta2parquet/pkg/errors"
)

func sleepTask(seq int, d time.Duration) Task[int] {
	return func(ctx context.Context) (int, error) {
		select {
		case <-time.After(d):
			return seq, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

func TestRunOrderedPreservesOrder(t *testing.T) {
	const n = 20
	tasks := make([]Task[int], n)
	for i := range tasks {
		// later tasks finish first
		tasks[i] = sleepTask(i, time.Duration(n-i)*time.Millisecond)
	}

	var got []int
	err := RunOrdered(context.Background(), tasks, func(seq, v int) error {
		assert.Equal(t, seq, v)
		got = append(got, v)
		return nil
	}, 8)
	require.NoError(t, err)

	want := make([]int, n)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, got)
}

func TestRunOrderedBoundsInflight(t *testing.T) {
	for _, limit := range []int{1, 3, 16} {
		var inflight, peak atomic.Int64
		tasks := make([]Task[int], 50)
		for i := range tasks {
			tasks[i] = func(ctx context.Context) (int, error) {
				cur := inflight.Add(1)
				for {
					old := peak.Load()
					if cur <= old || peak.CompareAndSwap(old, cur) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				return i, nil
			}
		}

		err := RunOrdered(context.Background(), tasks, func(seq, v int) error {
			inflight.Add(-1)
			return nil
		}, limit)
		require.NoError(t, err)
		assert.LessOrEqual(t, peak.Load(), int64(limit), "limit %d", limit)
		assert.Zero(t, inflight.Load())
	}
}

func TestRunOrderedSerialConsumer(t *testing.T) {
	var mu sync.Mutex
	var active int
	tasks := make([]Task[int], 30)
	for i := range tasks {
		tasks[i] = sleepTask(i, 0)
	}

	err := RunOrdered(context.Background(), tasks, func(seq, v int) error {
		mu.Lock()
		active++
		assert.Equal(t, 1, active)
		mu.Unlock()

		time.Sleep(100 * time.Microsecond)

		mu.Lock()
		active--
		mu.Unlock()
		return nil
	}, 4)
	require.NoError(t, err)
}

func TestRunOrderedTaskError(t *testing.T) {
	boom := errors.New("decode failed at chunk 5")
	var started atomic.Int64
	tasks := make([]Task[int], 100)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) (int, error) {
			started.Add(1)
			if i == 5 {
				return 0, boom
			}
			return sleepTask(i, time.Millisecond)(ctx)
		}
	}

	var consumed []int
	err := RunOrdered(context.Background(), tasks, func(seq, v int) error {
		consumed = append(consumed, seq)
		return nil
	}, 4)
	require.ErrorIs(t, err, boom)
	assert.LessOrEqual(t, len(consumed), 5, "nothing past the failed task is consumed")
	assert.Less(t, started.Load(), int64(100), "launching stops after the failure")
}

func TestRunOrderedConsumerError(t *testing.T) {
	stop := errors.New("sink full")
	tasks := make([]Task[int], 10)
	for i := range tasks {
		tasks[i] = sleepTask(i, 0)
	}

	err := RunOrdered(context.Background(), tasks, func(seq, v int) error {
		if seq == 2 {
			return stop
		}
		return nil
	}, 2)
	assert.ErrorIs(t, err, stop)
}

func TestRunOrderedCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tasks := make([]Task[int], 10)
	for i := range tasks {
		tasks[i] = sleepTask(i, time.Hour)
	}

	time.AfterFunc(10*time.Millisecond, cancel)
	err := RunOrdered(ctx, tasks, func(int, int) error { return nil }, 3)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunOrderedInvalidLimit(t *testing.T) {
	err := RunOrdered(context.Background(), []Task[int]{sleepTask(0, 0)}, func(int, int) error { return nil }, 0)
	require.Error(t, err)
	assert.True(t, dtaerrors.IsType(err, dtaerrors.ErrorTypeConfig))
}

func TestRunOrderedEmpty(t *testing.T) {
	called := false
	err := RunOrdered(context.Background(), nil, func(int, int) error {
		called = true
		return nil
	}, 1)
	require.NoError(t, err)
	assert.False(t, called)
}
