package memstore

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/any-hub/hubcache/internal/cache"
	"github.com/any-hub/hubcache/internal/serializer"
)

type entry struct {
	body   []byte
	expiry int64
}

// Store 是基于 xsync.MapOf 的进程内缓存，适合作为链路的第一层。
type Store struct {
	data   *xsync.MapOf[string, entry]
	prefix atomic.Pointer[string]
	codec  serializer.Serializer
	now    func() time.Time
}

var _ cache.Store = (*Store)(nil)

// Option 配置内存存储。
type Option func(*Store)

func WithPrefix(prefix string) Option {
	return func(s *Store) { s.SetPrefix(prefix) }
}

func WithSerializer(codec serializer.Serializer) Option {
	return func(s *Store) {
		if codec != nil {
			s.codec = codec
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New 创建空的内存存储。
func New(opts ...Option) *Store {
	s := &Store{
		data:  xsync.NewMapOf[string, entry](),
		codec: serializer.Default(),
		now:   time.Now,
	}
	s.SetPrefix("")
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) SetPrefix(prefix string) {
	s.prefix.Store(&prefix)
}

func (s *Store) Prefix() string {
	if p := s.prefix.Load(); p != nil {
		return *p
	}
	return ""
}

// Len 返回当前保存的条目数量，包含尚未被惰性清理的过期条目。
func (s *Store) Len() int {
	return s.data.Size()
}

func (s *Store) key(key string) string {
	return s.Prefix() + key
}

func (s *Store) Get(ctx context.Context, key string) (any, bool) {
	if ctx.Err() != nil {
		return nil, false
	}
	k := s.key(key)
	e, ok := s.data.Load(k)
	if !ok {
		return nil, false
	}
	if cache.Expired(s.now(), e.expiry) {
		s.evict(k)
		return nil, false
	}
	value, err := s.codec.Deserialize(e.body)
	if err != nil || value == nil {
		return nil, false
	}
	return value, true
}

// evict 在 Compute 内复查，避免删掉并发写入的新条目。
func (s *Store) evict(k string) {
	s.data.Compute(k, func(e entry, loaded bool) (entry, bool) {
		return e, !loaded || cache.Expired(s.now(), e.expiry)
	})
}

// decodable 报告 body 能否解码为非 nil 值，与 Get 的命中判断一致。
func (s *Store) decodable(body []byte) bool {
	value, err := s.codec.Deserialize(body)
	return err == nil && value != nil
}

func (s *Store) Exists(ctx context.Context, key string) bool {
	_, ok := s.Get(ctx, key)
	return ok
}

func (s *Store) Put(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := s.codec.Serialize(value)
	if err != nil {
		return fmt.Errorf("serialize value: %w", err)
	}
	s.data.Store(s.key(key), entry{body: body, expiry: cache.ExpiryFor(s.now(), ttl)})
	return nil
}

func (s *Store) IfPut(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	body, err := s.codec.Serialize(value)
	if err != nil {
		return false, fmt.Errorf("serialize value: %w", err)
	}
	now := s.now()
	stored := false
	s.data.Compute(s.key(key), func(e entry, loaded bool) (entry, bool) {
		if loaded && !cache.Expired(now, e.expiry) && s.decodable(e.body) {
			return e, false
		}
		stored = true
		return entry{body: body, expiry: cache.ExpiryFor(now, ttl)}, false
	})
	return stored, nil
}

// Increment 在单次 Compute 内完成读取、累加与写回，保留原过期时间。
func (s *Store) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	now := s.now()
	var (
		next int64
		err  error
	)
	s.data.Compute(s.key(key), func(e entry, loaded bool) (entry, bool) {
		current, expiry := int64(0), cache.NoExpiry
		if loaded && !cache.Expired(now, e.expiry) {
			if value, decErr := s.codec.Deserialize(e.body); decErr == nil {
				current, expiry = cache.ToInt64(value), e.expiry
			}
		}
		next = current + delta
		body, serErr := s.codec.Serialize(next)
		if serErr != nil {
			err = fmt.Errorf("serialize value: %w", serErr)
			return e, !loaded
		}
		return entry{body: body, expiry: expiry}, false
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (s *Store) Decrement(ctx context.Context, key string, delta int64) (int64, error) {
	return s.Increment(ctx, key, -delta)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.data.Delete(s.key(key))
	return nil
}

func (s *Store) Flush(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.data.Clear()
	return nil
}
