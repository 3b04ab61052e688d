package filestore

import (
	"context"
	"crypto/sha1" //nolint:gosec
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/any-hub/hubcache/internal/cache"
	"github.com/any-hub/hubcache/internal/cache/cachetest"
	"github.com/any-hub/hubcache/internal/serializer"
)

func TestStoreContract(t *testing.T) {
	cachetest.RunStoreContract(t, func(t *testing.T, clock *cachetest.Clock) cache.Store {
		return newTestStore(t, WithClock(clock.Now))
	})
}

func TestDerivePathIsShardedDigest(t *testing.T) {
	sum := sha1.Sum([]byte("p:key")) //nolint:gosec
	digest := hex.EncodeToString(sum[:])

	got := derivePath("/root", "p:", "key")
	want := filepath.Join("/root", digest[:2], digest[2:4], digest)
	if got != want {
		t.Fatalf("path mismatch: got %s want %s", got, want)
	}
	if len(filepath.Base(got)) != 40 {
		t.Fatalf("leaf should be a 40-char digest, got %s", filepath.Base(got))
	}
}

func TestDerivePathDeterministicAndPrefixSensitive(t *testing.T) {
	if derivePath("/r", "", "a") == derivePath("/r", "p", "a") {
		t.Fatalf("prefix must change the derived path")
	}
	if derivePath("/r", "p", "k") != derivePath("/r", "p", "k") {
		t.Fatalf("derivation must be stable")
	}
}

func TestPutWritesFixedWidthHeader(t *testing.T) {
	store := newTestStore(t)
	if err := store.Put(context.Background(), "x", "v", 0); err != nil {
		t.Fatalf("put error: %v", err)
	}
	raw, err := os.ReadFile(store.Path("x"))
	if err != nil {
		t.Fatalf("read entry file: %v", err)
	}
	if string(raw[:cache.ExpiryHeaderLen]) != "9999999999" {
		t.Fatalf("unexpected header %q", raw[:cache.ExpiryHeaderLen])
	}
}

func TestPutWithTTLWritesAbsoluteExpiry(t *testing.T) {
	clock := cachetest.NewClock()
	store := newTestStore(t, WithClock(clock.Now))
	if err := store.Put(context.Background(), "x", "v", 90*time.Second); err != nil {
		t.Fatalf("put error: %v", err)
	}
	raw, err := os.ReadFile(store.Path("x"))
	if err != nil {
		t.Fatalf("read entry file: %v", err)
	}
	if got := string(raw[:cache.ExpiryHeaderLen]); got != "1700000090" {
		t.Fatalf("expected absolute expiry 1700000090, got %s", got)
	}
}

// The prefixed scenario: root /tmp/c style dir, prefix "t:", ttl 2s.
func TestExpiredEntryIsRemovedFromDisk(t *testing.T) {
	clock := cachetest.NewClock()
	root := filepath.Join(t.TempDir(), "c")
	store, err := New(root, WithPrefix("t:"), WithClock(clock.Now))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	if err := store.Put(ctx, "x", 42, 2*time.Second); err != nil {
		t.Fatalf("put error: %v", err)
	}
	if got, ok := store.Get(ctx, "x"); !ok || got != 42 {
		t.Fatalf("expected 42, got %v (ok=%v)", got, ok)
	}

	clock.Advance(3 * time.Second)
	if got := cache.GetDefault(ctx, store, "x", nil); got != nil {
		t.Fatalf("expected miss after expiry, got %v", got)
	}
	if _, err := os.Stat(derivePath(store.Root(), "", "t:x")); !os.IsNotExist(err) {
		t.Fatalf("expired entry file should be removed, stat err=%v", err)
	}
}

func TestNewRequiresPath(t *testing.T) {
	var cfgErr *cache.ConfigurationError
	if _, err := New("  "); !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestFlushMissingRoot(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "never-created"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Flush(context.Background()); !errors.Is(err, cache.ErrRootMissing) {
		t.Fatalf("expected ErrRootMissing, got %v", err)
	}
}

func TestFlushKeepsRoot(t *testing.T) {
	store := newTestStore(t)
	if err := store.Put(context.Background(), "k", "v", 0); err != nil {
		t.Fatalf("put error: %v", err)
	}
	if err := store.Flush(context.Background()); err != nil {
		t.Fatalf("flush error: %v", err)
	}
	entries, err := os.ReadDir(store.Root())
	if err != nil {
		t.Fatalf("root should survive flush: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("root should be empty, found %d entries", len(entries))
	}
}

type failingFS struct {
	OSFilesystem
}

func (failingFS) EnsureDir(string, os.FileMode) error {
	return errors.New("read-only filesystem")
}

func TestPutReportsDirectoryCreateError(t *testing.T) {
	store := newTestStore(t, WithFilesystem(failingFS{}))
	err := store.Put(context.Background(), "k", "v", 0)
	var dirErr *cache.DirectoryCreateError
	if !errors.As(err, &dirErr) {
		t.Fatalf("expected DirectoryCreateError, got %v", err)
	}
	if _, err := store.Increment(context.Background(), "n", 1); !errors.As(err, &dirErr) {
		t.Fatalf("increment should surface DirectoryCreateError, got %v", err)
	}
}

func TestCorruptEntriesReadAsMiss(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cases := map[string][]byte{
		"short":      []byte("12345"),
		"bad-header": []byte("99999x9999payload"),
		"bad-body":   []byte("9999999999not-gob"),
	}
	for key, content := range cases {
		t.Run(key, func(t *testing.T) {
			writeRaw(t, store.Path(key), content)
			if _, ok := store.Get(ctx, key); ok {
				t.Fatalf("corrupt entry %q should read as miss", key)
			}
			n, err := store.Increment(ctx, key, 3)
			if err != nil || n != 3 {
				t.Fatalf("increment over corrupt entry should start at 0, got %d err=%v", n, err)
			}
		})
	}
}

func TestDiscardRechecksBodyUnderLock(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	path := store.Path("k")

	// 读取到坏正文后、删除之前，另一个写入者已经写入了合法值。
	if err := store.Put(ctx, "k", "fresh", 0); err != nil {
		t.Fatalf("put error: %v", err)
	}
	store.discard("k", path)
	if got, ok := store.Get(ctx, "k"); !ok || got != "fresh" {
		t.Fatalf("valid entry must survive discard, got %v (ok=%v)", got, ok)
	}

	writeRaw(t, path, []byte("9999999999not-gob"))
	store.discard("k", path)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("undecodable entry should be removed, stat err=%v", err)
	}
}

func TestReadsEntriesWrittenByOtherImplementations(t *testing.T) {
	store := newTestStore(t, WithSerializer(serializer.NewJSON()))
	writeRaw(t, store.Path("greeting"), []byte(`9999999999"hello"`))

	got, ok := cache.GetAs[string](context.Background(), store, "greeting")
	if !ok || got != "hello" {
		t.Fatalf("expected hello, got %q (ok=%v)", got, ok)
	}
}

func TestUnserializableValueFailsPut(t *testing.T) {
	store := newTestStore(t)
	err := store.Put(context.Background(), "fn", func() {}, 0)
	if err == nil || !strings.Contains(err.Error(), "serialize") {
		t.Fatalf("expected serialize error, got %v", err)
	}
	if _, statErr := os.Stat(store.Path("fn")); !os.IsNotExist(statErr) {
		t.Fatalf("failed put should not leave a file behind")
	}
}

func TestCanceledContext(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.Put(ctx, "k", "v", 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, ok := store.Get(ctx, "k"); ok {
		t.Fatalf("get with canceled context should miss")
	}
}

func writeRaw(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir error: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write error: %v", err)
	}
}

// newTestStore returns a Store rooted in a temporary directory.
func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	store, err := New(t.TempDir(), opts...)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}
