package boltstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"

	"github.com/any-hub/hubcache/internal/cache"
	"github.com/any-hub/hubcache/internal/serializer"
)

// DefaultBucket 是未指定时使用的 bucket 名称。
const DefaultBucket = "cache"

const openTimeout = time.Second

// Store 是基于 bbolt 的单文件缓存。
type Store struct {
	db     *bolt.DB
	bucket []byte
	prefix atomic.Pointer[string]
	codec  serializer.Serializer
	now    func() time.Time
	logger logrus.FieldLogger
}

var _ cache.Store = (*Store)(nil)

// Option 配置 bbolt 存储。
type Option func(*Store)

func WithPrefix(prefix string) Option {
	return func(s *Store) { s.SetPrefix(prefix) }
}

// WithBucket 指定 bucket 名称，空字符串保持默认值。
func WithBucket(bucket string) Option {
	return func(s *Store) {
		if strings.TrimSpace(bucket) != "" {
			s.bucket = []byte(bucket)
		}
	}
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

func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open 打开（必要时创建）path 处的数据库并确保 bucket 存在。
func Open(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, &cache.ConfigurationError{Field: "path", Reason: "required"}
	}

	nop := logrus.New()
	nop.SetOutput(io.Discard)

	s := &Store{
		bucket: []byte(DefaultBucket),
		codec:  serializer.Default(),
		now:    time.Now,
		logger: nop,
	}
	s.SetPrefix("")
	for _, opt := range opts {
		opt(s)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("open bolt database %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(s.bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	s.db = db
	return s, nil
}

// Close 关闭底层数据库，之后的写操作返回 cache.ErrClosed。
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path 返回数据库文件路径。
func (s *Store) Path() string {
	return s.db.Path()
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

func (s *Store) key(key string) []byte {
	return []byte(s.Prefix() + key)
}

func (s *Store) Get(ctx context.Context, key string) (any, bool) {
	if ctx.Err() != nil {
		return nil, false
	}
	k := s.key(key)

	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(s.bucket).Get(k); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		s.logReadFailure(key, err)
		return nil, false
	}
	if raw == nil {
		return nil, false
	}

	expiry, body, err := cache.DecodePayload(raw)
	if err != nil {
		s.logReadFailure(key, err)
		return nil, false
	}
	if cache.Expired(s.now(), expiry) {
		s.evict(k)
		return nil, false
	}
	value, err := s.codec.Deserialize(body)
	if err != nil {
		s.logReadFailure(key, &cache.CorruptPayloadError{Reason: "value", Err: errors.Join(cache.ErrDeserialize, err)})
		return nil, false
	}
	if value == nil {
		return nil, false
	}
	return value, true
}

// evict 在写事务内复查过期时间后删除。
func (s *Store) evict(k []byte) {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		v := b.Get(k)
		if v == nil {
			return nil
		}
		if expiry, _, err := cache.DecodePayload(v); err == nil && !cache.Expired(s.now(), expiry) {
			return nil
		}
		return b.Delete(k)
	})
	if err != nil {
		s.logger.WithFields(logrus.Fields{"action": "evict", "key": string(k)}).
			WithError(err).Warn("remove entry failed")
	}
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
	payload := cache.EncodePayload(body, cache.ExpiryFor(s.now(), ttl))
	return s.update(func(b *bolt.Bucket) error {
		return b.Put(s.key(key), payload)
	})
}

// IfPut 的检查与写入位于同一个写事务中。
func (s *Store) IfPut(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	body, err := s.codec.Serialize(value)
	if err != nil {
		return false, fmt.Errorf("serialize value: %w", err)
	}
	now := s.now()
	k := s.key(key)
	stored := false
	err = s.update(func(b *bolt.Bucket) error {
		if s.live(b.Get(k), now) {
			return nil
		}
		stored = true
		return b.Put(k, cache.EncodePayload(body, cache.ExpiryFor(now, ttl)))
	})
	if err != nil {
		return false, err
	}
	return stored, nil
}

func (s *Store) live(raw []byte, now time.Time) bool {
	if raw == nil {
		return false
	}
	expiry, body, err := cache.DecodePayload(raw)
	if err != nil || cache.Expired(now, expiry) {
		return false
	}
	value, err := s.codec.Deserialize(body)
	return err == nil && value != nil
}

func (s *Store) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	now := s.now()
	k := s.key(key)
	var next int64
	err := s.update(func(b *bolt.Bucket) error {
		current, expiry := int64(0), cache.NoExpiry
		if raw := b.Get(k); raw != nil {
			if exp, body, err := cache.DecodePayload(raw); err == nil && !cache.Expired(now, exp) {
				if value, err := s.codec.Deserialize(body); err == nil {
					current, expiry = cache.ToInt64(value), exp
				}
			}
		}
		next = current + delta
		body, err := s.codec.Serialize(next)
		if err != nil {
			return fmt.Errorf("serialize value: %w", err)
		}
		return b.Put(k, cache.EncodePayload(body, expiry))
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
	return s.update(func(b *bolt.Bucket) error {
		return b.Delete(s.key(key))
	})
}

// Flush 删除并重建 bucket。
func (s *Store) Flush(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(s.bucket); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket(s.bucket)
		return err
	})
	return s.writeError(err)
}

func (s *Store) update(fn func(b *bolt.Bucket) error) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return fn(tx.Bucket(s.bucket))
	})
	return s.writeError(err)
}

func (s *Store) writeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bolt.ErrDatabaseNotOpen):
		return cache.ErrClosed
	default:
		return fmt.Errorf("%w: %v", cache.ErrWriteFailed, err)
	}
}

func (s *Store) logReadFailure(key string, err error) {
	s.logger.WithFields(logrus.Fields{"action": "read", "key": key, "bucket": string(s.bucket)}).
		WithError(err).Debug("treating unreadable entry as miss")
}
