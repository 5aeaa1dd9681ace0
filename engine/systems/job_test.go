package systems

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJobSystemValidation(t *testing.T) {
	_, err := NewJobSystem(0, 1)
	assert.ErrorIs(t, err, ErrNoWorkers)

	_, err = NewJobSystem(1, -1)
	assert.ErrorIs(t, err, ErrNegativeChannelSize)
}

func TestGoResolvesValue(t *testing.T) {
	js, err := NewJobSystem(2, 4)
	require.NoError(t, err)
	defer js.Shutdown()

	f := Go(context.Background(), js, "answer", func(ctx context.Context) (int, error) {
		return 42, nil
	})
	v, err := f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	select {
	case <-f.Done():
	default:
		t.Fatal("future should be done after Wait")
	}
}

func TestGoPropagatesError(t *testing.T) {
	js, err := NewJobSystem(1, 0)
	require.NoError(t, err)
	defer js.Shutdown()

	boom := errors.New("boom")
	f := Go(context.Background(), js, "fail", func(ctx context.Context) (string, error) {
		return "ignored", boom
	})
	v, err := f.Wait(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, v)
}

func TestGoAfterShutdown(t *testing.T) {
	js, err := NewJobSystem(1, 0)
	require.NoError(t, err)
	require.NoError(t, js.Shutdown())
	require.NoError(t, js.Shutdown())

	f := Go(context.Background(), js, "late", func(ctx context.Context) (int, error) {
		return 1, nil
	})
	_, err = f.Wait(context.Background())
	assert.ErrorIs(t, err, ErrJobSystemClosed)
}

func TestCancelledContextSkipsJob(t *testing.T) {
	js, err := NewJobSystem(1, 1)
	require.NoError(t, err)
	defer js.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Bool
	f := Go(ctx, js, "cancelled", func(ctx context.Context) (int, error) {
		ran.Store(true)
		return 1, nil
	})
	_, err = f.Wait(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran.Load())
}

func TestWaitHonoursContext(t *testing.T) {
	js, err := NewJobSystem(1, 0)
	require.NoError(t, err)
	defer js.Shutdown()

	release := make(chan struct{})
	f := Go(context.Background(), js, "slow", func(ctx context.Context) (int, error) {
		<-release
		return 1, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = f.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	v, err := f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestShutdownDrainsQueue(t *testing.T) {
	js, err := NewJobSystem(2, 16)
	require.NoError(t, err)

	var count atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, js.Submit(context.Background(), JobTask{
			Name:    "count",
			OnStart: func(ctx context.Context) error { count.Add(1); return nil },
		}))
	}
	require.NoError(t, js.Shutdown())
	assert.Equal(t, int32(10), count.Load())
}

func TestResolved(t *testing.T) {
	f := Resolved("done", nil)
	v, err := f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "done", v)
}
