package cache_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/hubcache/internal/cache"
	"github.com/any-hub/hubcache/internal/cache/cachetest"
	"github.com/any-hub/hubcache/internal/cache/memstore"
)

// brokenStore 的写操作全部失败，读操作全部未命中。
type brokenStore struct {
	*memstore.Store
	err error
}

func (b brokenStore) Put(context.Context, string, any, time.Duration) error { return b.err }
func (b brokenStore) Delete(context.Context, string) error                 { return b.err }
func (b brokenStore) Flush(context.Context) error                          { return b.err }
func (b brokenStore) Increment(context.Context, string, int64) (int64, error) {
	return 0, b.err
}
func (b brokenStore) Get(context.Context, string) (any, bool) { return nil, false }

func TestChainContract(t *testing.T) {
	cachetest.RunStoreContract(t, func(t *testing.T, clock *cachetest.Clock) cache.Store {
		return cache.NewChain(memstore.New(memstore.WithClock(clock.Now)), memstore.New(memstore.WithClock(clock.Now)))
	})
}

func TestChainPutDeleteBroadcast(t *testing.T) {
	a, b := memstore.New(), memstore.New()
	chain := cache.NewChain(a, b)
	ctx := context.Background()

	if err := chain.Put(ctx, "k", "v", 0); err != nil {
		t.Fatalf("put error: %v", err)
	}
	for i, s := range []cache.Store{a, b} {
		if got, ok := s.Get(ctx, "k"); !ok || got != "v" {
			t.Fatalf("store #%d should hold v, got %v", i, got)
		}
	}

	if err := chain.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete error: %v", err)
	}
	if chain.Exists(ctx, "k") {
		t.Fatalf("key should be gone from every store")
	}
}

func TestChainGetFallsBackInOrder(t *testing.T) {
	a, b := memstore.New(), memstore.New()
	chain := cache.NewChain(a, b)
	ctx := context.Background()

	if err := b.Put(ctx, "k", "from-b", 0); err != nil {
		t.Fatalf("put error: %v", err)
	}
	if got, ok := chain.Get(ctx, "k"); !ok || got != "from-b" {
		t.Fatalf("expected fallback hit, got %v", got)
	}
	if a.Exists(ctx, "k") {
		t.Fatalf("backfill must be off by default")
	}

	if err := a.Put(ctx, "k", "from-a", 0); err != nil {
		t.Fatalf("put error: %v", err)
	}
	if got, _ := chain.Get(ctx, "k"); got != "from-a" {
		t.Fatalf("first store should win, got %v", got)
	}
}

func TestChainBackfill(t *testing.T) {
	a, b := memstore.New(), memstore.New()
	chain := cache.NewChain(a, b)
	chain.EnableBackfill(time.Minute)
	ctx := context.Background()

	if err := b.Put(ctx, "k", "v", 0); err != nil {
		t.Fatalf("put error: %v", err)
	}
	if _, ok := chain.Get(ctx, "k"); !ok {
		t.Fatalf("expected hit")
	}
	if got, ok := a.Get(ctx, "k"); !ok || got != "v" {
		t.Fatalf("first store should be backfilled, got %v", got)
	}
}

func TestChainFlush(t *testing.T) {
	a, b := memstore.New(), memstore.New()
	chain := cache.NewChain(a, b)
	ctx := context.Background()

	_ = a.Put(ctx, "x", 1, 0)
	_ = b.Put(ctx, "y", 2, 0)
	if err := chain.Flush(ctx); err != nil {
		t.Fatalf("flush error: %v", err)
	}
	if chain.Exists(ctx, "x") || chain.Exists(ctx, "y") {
		t.Fatalf("flush should clear every store")
	}
}

func TestChainIfPutSeesAnyStore(t *testing.T) {
	a, b := memstore.New(), memstore.New()
	chain := cache.NewChain(a, b)
	ctx := context.Background()

	_ = b.Put(ctx, "k", "old", 0)
	stored, err := chain.IfPut(ctx, "k", "new", 0)
	if err != nil || stored {
		t.Fatalf("IfPut should be refused when any store holds the key, stored=%v err=%v", stored, err)
	}
	if a.Exists(ctx, "k") {
		t.Fatalf("refused IfPut must not write")
	}
}

func TestChainIncrementReturnsFirstResult(t *testing.T) {
	a, b := memstore.New(), memstore.New()
	chain := cache.NewChain(a, b)
	ctx := context.Background()

	_ = b.Put(ctx, "n", 10, 0)
	got, err := chain.Increment(ctx, "n", 1)
	if err != nil {
		t.Fatalf("increment error: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected first store's result 1, got %d", got)
	}
	if v, _ := b.Get(ctx, "n"); cache.ToInt64(v) != 11 {
		t.Fatalf("second store should apply delta to its own value, got %v", v)
	}
}

func TestChainCollectsBackendErrors(t *testing.T) {
	boom := errors.New("disk full")
	good := memstore.New()
	chain := cache.NewChain(brokenStore{Store: memstore.New(), err: boom}, good)
	ctx := context.Background()

	err := chain.Put(ctx, "k", "v", 0)
	var backendErr *cache.BackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("expected BackendError, got %v", err)
	}
	if backendErr.Index != 0 || backendErr.Op != "put" || !errors.Is(err, boom) {
		t.Fatalf("unexpected backend error: %+v", backendErr)
	}
	if !good.Exists(ctx, "k") {
		t.Fatalf("broadcast must continue past a failing store")
	}

	n, err := chain.Increment(ctx, "n", 2)
	if n != 2 || !errors.Is(err, boom) {
		t.Fatalf("increment should return the first success and the joined error, n=%d err=%v", n, err)
	}
}

func TestEmptyChain(t *testing.T) {
	chain := cache.NewChain()
	ctx := context.Background()

	if _, ok := chain.Get(ctx, "k"); ok {
		t.Fatalf("empty chain should miss")
	}
	if chain.Exists(ctx, "k") {
		t.Fatalf("empty chain should not report keys")
	}
	if err := chain.Put(ctx, "k", "v", 0); err != nil {
		t.Fatalf("put on empty chain should be a no-op, got %v", err)
	}
	if err := chain.Flush(ctx); err != nil {
		t.Fatalf("flush on empty chain should be a no-op, got %v", err)
	}
}

func TestChainAppendKeepsOrderAndSetPrefixBroadcasts(t *testing.T) {
	a, b := memstore.New(), memstore.New()
	chain := cache.NewChain(a)
	chain.Append(nil, b)

	stores := chain.Stores()
	if chain.Len() != 2 || stores[0] != cache.Store(a) || stores[1] != cache.Store(b) {
		t.Fatalf("unexpected store order: %v", stores)
	}

	chain.SetPrefix("p:")
	if chain.Prefix() != "p:" || a.Prefix() != "p:" || b.Prefix() != "p:" {
		t.Fatalf("prefix should reach every store")
	}
}

func TestChainGetSkipsNilValues(t *testing.T) {
	a, b := memstore.New(), memstore.New()
	chain := cache.NewChain(a, b)
	ctx := context.Background()

	if err := a.Put(ctx, "k", nil, 0); err != nil {
		t.Fatalf("put nil error: %v", err)
	}
	if err := b.Put(ctx, "k", "real", 0); err != nil {
		t.Fatalf("put error: %v", err)
	}
	if got, ok := chain.Get(ctx, "k"); !ok || got != "real" {
		t.Fatalf("expected fall through to second store, got %v (%v)", got, ok)
	}
	if !chain.Exists(ctx, "k") {
		t.Fatalf("key should exist through second store")
	}
}

func TestChainAppendAppliesPrefix(t *testing.T) {
	chain := cache.NewChain(memstore.New())
	late := memstore.New(memstore.WithPrefix("old:"))
	chain.Append(late)
	if late.Prefix() != "old:" {
		t.Fatalf("prefix must be untouched before SetPrefix, got %q", late.Prefix())
	}

	chain.SetPrefix("p:")
	later := memstore.New(memstore.WithPrefix("old:"))
	chain.Append(later)
	if later.Prefix() != "p:" {
		t.Fatalf("appended store should use chain prefix, got %q", later.Prefix())
	}
}

func TestChainBackfillFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetLevel(logrus.DebugLevel)

	down := brokenStore{Store: memstore.New(), err: errors.New("tier down")}
	b := memstore.New()
	chain := cache.NewChain(down, b)
	chain.SetLogger(logger)
	chain.EnableBackfill(time.Minute)
	ctx := context.Background()

	if err := b.Put(ctx, "k", "v", 0); err != nil {
		t.Fatalf("put error: %v", err)
	}
	if got, ok := chain.Get(ctx, "k"); !ok || got != "v" {
		t.Fatalf("backfill failure must not affect the read, got %v", got)
	}
	out := buf.String()
	if !strings.Contains(out, "backfill put failed") || !strings.Contains(out, "tier down") {
		t.Fatalf("expected backfill failure in log, got %q", out)
	}
}
