package future

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFutureResolvesOnce(t *testing.T) {
	f := New[string]()

	require.True(t, f.Resolve("first"))
	assert.False(t, f.Resolve("second"))
	assert.False(t, f.Reject(errors.New("late")))

	v, err := f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first", v)
}

func TestFutureRejectIgnoresNil(t *testing.T) {
	f := New[int]()

	assert.False(t, f.Reject(nil))
	assert.False(t, f.Settled())

	boom := errors.New("boom")
	require.True(t, f.Reject(boom))
	_, err := f.Wait(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestFutureFansOutToEarlyAndLateAwaiters(t *testing.T) {
	f := New[string]()

	const n = 8
	var wg sync.WaitGroup
	results := make(chan string, n+1)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := f.Wait(context.Background())
			if err == nil {
				results <- v
			}
		}()
	}

	f.Resolve("df-ref")
	wg.Wait()

	late, err := f.Wait(context.Background())
	require.NoError(t, err)
	results <- late
	close(results)

	count := 0
	for v := range results {
		assert.Equal(t, "df-ref", v)
		count++
	}
	assert.Equal(t, n+1, count)
}

func TestFutureWaitHonorsContext(t *testing.T) {
	f := New[string]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, f.Settled(), "abandoned wait must not settle the future")
}

func TestFutureResultWithoutBlocking(t *testing.T) {
	f := New[int]()
	_, _, ok := f.Result()
	assert.False(t, ok)

	f.Resolve(7)
	v, err, ok := f.Result()
	assert.True(t, ok)
	assert.NoError(t, err)
	assert.Equal(t, 7, v)
}
