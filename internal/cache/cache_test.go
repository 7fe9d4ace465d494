package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSet(t *testing.T) {
	c := New(time.Minute)
	defer c.Stop()

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("k", 42)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	c.Delete("k")
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestExpiry(t *testing.T) {
	c := New(10 * time.Millisecond)
	defer c.Stop()

	c.Set("k", "v")
	_, ok := c.Get("k")
	assert.True(t, ok)

	time.Sleep(20 * time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestClearAndSize(t *testing.T) {
	c := New(time.Minute)
	defer c.Stop()

	c.Set("a", 1)
	c.Set("b", 2)
	assert.Equal(t, 2, c.Size())

	c.Clear()
	assert.Equal(t, 0, c.Size())
}

func TestGetOrComputeCachesResult(t *testing.T) {
	c := New(time.Minute)
	defer c.Stop()

	calls := 0
	fn := func() (any, error) {
		calls++
		return "computed", nil
	}

	v, err := c.GetOrCompute("k", fn)
	require.NoError(t, err)
	assert.Equal(t, "computed", v)

	v, err = c.GetOrCompute("k", fn)
	require.NoError(t, err)
	assert.Equal(t, "computed", v)
	assert.Equal(t, 1, calls)
}

func TestGetOrComputeErrorNotCached(t *testing.T) {
	c := New(time.Minute)
	defer c.Stop()

	boom := errors.New("boom")
	calls := 0
	_, err := c.GetOrCompute("k", func() (any, error) {
		calls++
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	v, err := c.GetOrCompute("k", func() (any, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 2, calls)
}

func TestGetOrComputeDeduplicatesConcurrentMisses(t *testing.T) {
	c := New(time.Minute)
	defer c.Stop()

	var calls atomic.Int64
	started := make(chan struct{})
	fn := func() (any, error) {
		calls.Add(1)
		<-started // hold every racer at the miss until all goroutines launch
		return "once", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.GetOrCompute("k", fn)
			assert.NoError(t, err)
			assert.Equal(t, "once", v)
		}()
	}

	time.Sleep(10 * time.Millisecond)
	close(started)
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load())
}
