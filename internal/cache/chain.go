package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Chain 按插入顺序组合多个 Store：读取时第一个命中者胜出，写入/删除/清空/前缀
// 广播到全部后端。广播不具备事务性，中途失败不会回滚已经成功的后端。
type Chain struct {
	mu     sync.RWMutex
	stores    []Store
	prefix    string
	prefixSet bool
	logger    logrus.FieldLogger

	backfill    bool
	backfillTTL time.Duration
}

var _ Store = (*Chain)(nil)

// NewChain 以给定顺序构造链路，允许为空。
func NewChain(stores ...Store) *Chain {
	c := &Chain{}
	c.Append(stores...)
	return c
}

// Append 追加一个或多个后端，不影响已有后端的顺序。nil 会被忽略。
// 链路上调用过 SetPrefix 时，新后端会被设置为同一前缀。
func (c *Chain) Append(stores ...Store) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range stores {
		if s == nil {
			continue
		}
		if c.prefixSet {
			s.SetPrefix(c.prefix)
		}
		c.stores = append(c.stores, s)
	}
}

// SetLogger 设置记录回填失败的日志器，nil 表示不记录。
func (c *Chain) SetLogger(logger logrus.FieldLogger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = logger
}

// Stores 返回当前后端列表的副本。
func (c *Chain) Stores() []Store {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Store(nil), c.stores...)
}

// Len 返回后端数量。
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.stores)
}

// EnableBackfill 打开回填：当后端 i 命中时，把值以 ttl 写回 [0, i) 的后端。
// 默认关闭，各层视为拥有独立 TTL 的独立缓存。
func (c *Chain) EnableBackfill(ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.backfill = true
	c.backfillTTL = ttl
}

func (c *Chain) snapshot() []Store {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stores
}

func (c *Chain) Get(ctx context.Context, key string) (any, bool) {
	stores := c.snapshot()
	for i, s := range stores {
		value, ok := s.Get(ctx, key)
		if !ok || value == nil {
			continue
		}
		c.backfillUpTo(ctx, stores[:i], key, value)
		return value, true
	}
	return nil, false
}

func (c *Chain) backfillUpTo(ctx context.Context, faster []Store, key string, value any) {
	c.mu.RLock()
	enabled, ttl, logger := c.backfill, c.backfillTTL, c.logger
	c.mu.RUnlock()
	if !enabled {
		return
	}
	// 回填尽力而为，失败只记录日志，不影响本次读取结果。
	for i, s := range faster {
		if err := s.Put(ctx, key, value, ttl); err != nil && logger != nil {
			logger.WithFields(logrus.Fields{"action": "backfill", "key": key, "index": i}).
				WithError(err).Debug("backfill put failed")
		}
	}
}

func (c *Chain) Put(ctx context.Context, key string, value any, ttl time.Duration) error {
	return c.broadcast("put", func(s Store) error {
		return s.Put(ctx, key, value, ttl)
	})
}

func (c *Chain) Delete(ctx context.Context, key string) error {
	return c.broadcast("delete", func(s Store) error {
		return s.Delete(ctx, key)
	})
}

func (c *Chain) Exists(ctx context.Context, key string) bool {
	for _, s := range c.snapshot() {
		if s.Exists(ctx, key) {
			return true
		}
	}
	return false
}

// IfPut 先检查任一后端是否存在该键，不存在时写入全部后端。
// 检查与写入之间不持锁，并发调用者可能同时写入（后写者胜出）。
func (c *Chain) IfPut(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if c.Exists(ctx, key) {
		return false, nil
	}
	if err := c.Put(ctx, key, value, ttl); err != nil {
		return false, err
	}
	return true, nil
}

// Increment 向每个后端广播同一个 delta。各后端基于自己的当前值计算，
// 若底层值已经不一致，结果也会不一致。返回第一个成功后端的结果。
func (c *Chain) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	return c.applyDelta(ctx, "increment", func(s Store) (int64, error) {
		return s.Increment(ctx, key, delta)
	})
}

func (c *Chain) Decrement(ctx context.Context, key string, delta int64) (int64, error) {
	return c.applyDelta(ctx, "decrement", func(s Store) (int64, error) {
		return s.Decrement(ctx, key, delta)
	})
}

func (c *Chain) applyDelta(ctx context.Context, op string, fn func(Store) (int64, error)) (int64, error) {
	var (
		result int64
		have   bool
		errs   []error
	)
	for i, s := range c.snapshot() {
		n, err := fn(s)
		if err != nil {
			errs = append(errs, &BackendError{Index: i, Op: op, Err: err})
			continue
		}
		if !have {
			result, have = n, true
		}
	}
	return result, errors.Join(errs...)
}

func (c *Chain) Flush(ctx context.Context) error {
	return c.broadcast("flush", func(s Store) error {
		return s.Flush(ctx)
	})
}

func (c *Chain) SetPrefix(prefix string) {
	c.mu.Lock()
	c.prefix = prefix
	c.prefixSet = true
	stores := c.stores
	c.mu.Unlock()
	for _, s := range stores {
		s.SetPrefix(prefix)
	}
}

func (c *Chain) Prefix() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.prefix
}

// Close 关闭所有实现了 io.Closer 语义的后端。
func (c *Chain) Close() error {
	var errs []error
	for i, s := range c.snapshot() {
		closer, ok := s.(interface{ Close() error })
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			errs = append(errs, &BackendError{Index: i, Op: "close", Err: err})
		}
	}
	return errors.Join(errs...)
}

// broadcast 依次调用每个后端，收集全部失败而不是在第一个失败处停止。
func (c *Chain) broadcast(op string, fn func(Store) error) error {
	var errs []error
	for i, s := range c.snapshot() {
		if err := fn(s); err != nil {
			errs = append(errs, &BackendError{Index: i, Op: op, Err: err})
		}
	}
	return errors.Join(errs...)
}
