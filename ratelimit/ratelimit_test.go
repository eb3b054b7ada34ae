package ratelimit_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/coach/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestLimiter_Admit(t *testing.T) {
	t.Parallel()

	t.Run("eleventh call in window is rejected", func(t *testing.T) {
		t.Parallel()
		clock := newFakeClock()
		l := ratelimit.New(10, 60*time.Second, ratelimit.WithClock(clock.Now))

		for i := range 10 {
			assert.True(t, l.Admit("alice"), "call %d", i+1)
			clock.Advance(time.Second)
		}
		assert.False(t, l.Admit("alice"))
		assert.Equal(t, 10, l.Count("alice"))
	})

	t.Run("rejections do not count", func(t *testing.T) {
		t.Parallel()
		clock := newFakeClock()
		l := ratelimit.New(2, time.Minute, ratelimit.WithClock(clock.Now))
		require.True(t, l.Admit("bob"))
		require.True(t, l.Admit("bob"))
		for range 5 {
			assert.False(t, l.Admit("bob"))
		}
		assert.Equal(t, 2, l.Count("bob"))
	})

	t.Run("new window after expiry resets count to one", func(t *testing.T) {
		t.Parallel()
		clock := newFakeClock()
		l := ratelimit.New(10, 60*time.Second, ratelimit.WithClock(clock.Now))
		for range 10 {
			require.True(t, l.Admit("alice"))
		}
		require.False(t, l.Admit("alice"))

		clock.Advance(60 * time.Second)
		assert.False(t, l.Admit("alice"), "window still open at exactly its expiry")

		clock.Advance(time.Millisecond)
		assert.True(t, l.Admit("alice"))
		assert.Equal(t, 1, l.Count("alice"))
	})

	t.Run("callers are independent", func(t *testing.T) {
		t.Parallel()
		clock := newFakeClock()
		l := ratelimit.New(1, time.Minute, ratelimit.WithClock(clock.Now))
		assert.True(t, l.Admit("a"))
		assert.False(t, l.Admit("a"))
		assert.True(t, l.Admit("b"))
	})

	t.Run("defaults for non-positive config", func(t *testing.T) {
		t.Parallel()
		clock := newFakeClock()
		l := ratelimit.New(0, 0, ratelimit.WithClock(clock.Now))
		for range ratelimit.DefaultMax {
			require.True(t, l.Admit("c"))
		}
		assert.False(t, l.Admit("c"))
		clock.Advance(ratelimit.DefaultWindow + time.Second)
		assert.True(t, l.Admit("c"))
	})
}

func TestLimiter_ConcurrentAdmit(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	l := ratelimit.New(10, time.Minute, ratelimit.WithClock(clock.Now))

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Admit("shared") {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(10), admitted.Load())
}

func TestLimiter_Sweep(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	l := ratelimit.New(5, time.Minute, ratelimit.WithClock(clock.Now))

	for i := range 3 {
		l.Admit(fmt.Sprintf("old-%d", i))
	}
	clock.Advance(2 * time.Minute)
	l.Admit("fresh")
	require.Equal(t, 4, l.Len())

	assert.Equal(t, 3, l.Sweep())
	assert.Equal(t, 1, l.Len())
	assert.Equal(t, 1, l.Count("fresh"))
}

func TestLimiter_Run(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	l := ratelimit.New(5, time.Minute, ratelimit.WithClock(clock.Now))
	l.Admit("idle")
	clock.Advance(2 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return l.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
