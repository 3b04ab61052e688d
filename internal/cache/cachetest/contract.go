// Package cachetest provides a behavioural test suite every cache.Store
// implementation must pass, plus a controllable clock for expiry tests.
package cachetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/any-hub/hubcache/internal/cache"
)

// Factory builds a fresh, empty store driven by clock.
type Factory func(t *testing.T, clock *Clock) cache.Store

// RunStoreContract runs the shared behaviour suite against stores built by factory.
func RunStoreContract(t *testing.T, factory Factory) {
	t.Helper()

	cases := []struct {
		name string
		fn   func(t *testing.T, s cache.Store, clock *Clock)
	}{
		{"RoundTripWithoutExpiry", testRoundTrip},
		{"Overwrite", testOverwrite},
		{"MissingKey", testMissing},
		{"NilValueIsMiss", testNilValueIsMiss},
		{"Expiry", testExpiry},
		{"ExpiryBoundary", testExpiryBoundary},
		{"NegativeTTL", testNegativeTTL},
		{"IfPut", testIfPut},
		{"IfPutAfterExpiry", testIfPutAfterExpiry},
		{"IncrementDecrement", testIncrementDecrement},
		{"IncrementKeepsTTL", testIncrementKeepsTTL},
		{"IncrementKeepsNoExpiry", testIncrementKeepsNoExpiry},
		{"IncrementNonNumeric", testIncrementNonNumeric},
		{"Delete", testDelete},
		{"Prefix", testPrefix},
		{"Flush", testFlush},
		{"ConcurrentIncrement", testConcurrentIncrement},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clock := NewClock()
			tc.fn(t, factory(t, clock), clock)
		})
	}
}

func testRoundTrip(t *testing.T, s cache.Store, _ *Clock) {
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "answer", 42, 0))

	got, ok := s.Get(ctx, "answer")
	require.True(t, ok)
	assert.Equal(t, 42, got)
	assert.True(t, s.Exists(ctx, "answer"))
}

func testOverwrite(t *testing.T, s cache.Store, _ *Clock) {
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "k", "first", 0))
	require.NoError(t, s.Put(ctx, "k", "second", 0))

	got, ok := cache.GetAs[string](ctx, s, "k")
	require.True(t, ok)
	assert.Equal(t, "second", got)
}

func testMissing(t *testing.T, s cache.Store, _ *Clock) {
	ctx := context.Background()
	_, ok := s.Get(ctx, "never-put")
	assert.False(t, ok)
	assert.False(t, s.Exists(ctx, "never-put"))
	assert.Equal(t, "fallback", cache.GetDefault(ctx, s, "never-put", "fallback"))
}

func testNilValueIsMiss(t *testing.T, s cache.Store, _ *Clock) {
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "nothing", nil, 0))

	_, ok := s.Get(ctx, "nothing")
	assert.False(t, ok)
	assert.False(t, s.Exists(ctx, "nothing"))
	assert.Equal(t, "fallback", cache.GetDefault(ctx, s, "nothing", "fallback"))

	stored, err := s.IfPut(ctx, "nothing", "real", 0)
	require.NoError(t, err)
	assert.True(t, stored)
	got, ok := s.Get(ctx, "nothing")
	require.True(t, ok)
	assert.Equal(t, "real", got)
}

func testExpiry(t *testing.T, s cache.Store, clock *Clock) {
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "x", 42, 2*time.Second))

	got, ok := s.Get(ctx, "x")
	require.True(t, ok)
	assert.Equal(t, 42, got)

	clock.Advance(3 * time.Second)
	_, ok = s.Get(ctx, "x")
	assert.False(t, ok)
	assert.False(t, s.Exists(ctx, "x"))
}

func testExpiryBoundary(t *testing.T, s cache.Store, clock *Clock) {
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "edge", "v", 2*time.Second))

	clock.Advance(time.Second)
	assert.True(t, s.Exists(ctx, "edge"))

	clock.Advance(time.Second)
	assert.False(t, s.Exists(ctx, "edge"), "entry must be absent once now reaches expiry")
}

func testNegativeTTL(t *testing.T, s cache.Store, _ *Clock) {
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "stale", "v", -time.Second))
	assert.False(t, s.Exists(ctx, "stale"))
}

func testIfPut(t *testing.T, s cache.Store, _ *Clock) {
	ctx := context.Background()
	stored, err := s.IfPut(ctx, "once", "v1", 0)
	require.NoError(t, err)
	assert.True(t, stored)

	stored, err = s.IfPut(ctx, "once", "v2", 0)
	require.NoError(t, err)
	assert.False(t, stored)

	got, _ := s.Get(ctx, "once")
	assert.Equal(t, "v1", got)
}

func testIfPutAfterExpiry(t *testing.T, s cache.Store, clock *Clock) {
	ctx := context.Background()
	_, err := s.IfPut(ctx, "lease", "old", time.Second)
	require.NoError(t, err)

	clock.Advance(2 * time.Second)
	stored, err := s.IfPut(ctx, "lease", "new", 0)
	require.NoError(t, err)
	assert.True(t, stored)

	got, _ := s.Get(ctx, "lease")
	assert.Equal(t, "new", got)
}

func testIncrementDecrement(t *testing.T, s cache.Store, _ *Clock) {
	ctx := context.Background()
	n, err := s.Increment(ctx, "counter", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	n, err = s.Increment(ctx, "counter", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(8), n)

	n, err = s.Decrement(ctx, "counter", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	got, ok := s.Get(ctx, "counter")
	require.True(t, ok)
	assert.Equal(t, int64(5), cache.ToInt64(got))
}

func testIncrementKeepsTTL(t *testing.T, s cache.Store, clock *Clock) {
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "hits", 10, 10*time.Second))

	clock.Advance(4 * time.Second)
	n, err := s.Increment(ctx, "hits", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(11), n)

	clock.Advance(5 * time.Second)
	assert.True(t, s.Exists(ctx, "hits"))

	clock.Advance(time.Second)
	assert.False(t, s.Exists(ctx, "hits"), "increment must keep the original expiry, not refresh it")
}

func testIncrementKeepsNoExpiry(t *testing.T, s cache.Store, clock *Clock) {
	ctx := context.Background()
	_, err := s.Increment(ctx, "forever", 2)
	require.NoError(t, err)
	_, err = s.Decrement(ctx, "forever", 2)
	require.NoError(t, err)

	clock.Advance(10 * 365 * 24 * time.Hour)
	got, ok := s.Get(ctx, "forever")
	require.True(t, ok)
	assert.Equal(t, int64(0), cache.ToInt64(got))
}

func testIncrementNonNumeric(t *testing.T, s cache.Store, _ *Clock) {
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "word", "abc", 0))
	n, err := s.Increment(ctx, "word", 4)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func testDelete(t *testing.T, s cache.Store, _ *Clock) {
	ctx := context.Background()
	require.NoError(t, s.Delete(ctx, "absent"))

	require.NoError(t, s.Put(ctx, "doomed", "v", 0))
	require.NoError(t, s.Delete(ctx, "doomed"))
	assert.False(t, s.Exists(ctx, "doomed"))
}

func testPrefix(t *testing.T, s cache.Store, _ *Clock) {
	ctx := context.Background()
	s.SetPrefix("a:")
	assert.Equal(t, "a:", s.Prefix())
	require.NoError(t, s.Put(ctx, "k", "under-a", 0))

	s.SetPrefix("b:")
	assert.False(t, s.Exists(ctx, "k"))

	s.SetPrefix("a:")
	got, ok := s.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "under-a", got)
}

func testFlush(t *testing.T, s cache.Store, _ *Clock) {
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "one", 1, 0))
	require.NoError(t, s.Put(ctx, "two", 2, 0))

	require.NoError(t, s.Flush(ctx))
	assert.False(t, s.Exists(ctx, "one"))
	assert.False(t, s.Exists(ctx, "two"))
}

func testConcurrentIncrement(t *testing.T, s cache.Store, _ *Clock) {
	ctx := context.Background()
	const workers, perWorker = 8, 25

	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, err := s.Increment(ctx, "shared", 1); err != nil {
					errs <- fmt.Errorf("increment: %w", err)
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, ok := s.Get(ctx, "shared")
	require.True(t, ok)
	assert.Equal(t, int64(workers*perWorker), cache.ToInt64(got))
}
