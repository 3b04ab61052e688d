package cache

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

var metricSet = metrics.NewSet()

// WriteMetrics 以 Prometheus 文本格式输出所有被 Instrument 包装的后端计数。
func WriteMetrics(w io.Writer) {
	metricSet.WritePrometheus(w)
}

// Instrument 包装 store，为命中/未命中/写入/错误计数。name 作为 store 标签。
func Instrument(store Store, name string) Store {
	counter := func(metric string) *metrics.Counter {
		return metricSet.GetOrCreateCounter(fmt.Sprintf(`hubcache_%s_total{store=%q}`, metric, name))
	}
	return &instrumented{
		Store:  store,
		hits:   counter("hits"),
		misses: counter("misses"),
		writes: counter("writes"),
		errors: counter("errors"),
	}
}

type instrumented struct {
	Store
	hits, misses, writes, errors *metrics.Counter
}

// Unwrap 返回被包装的后端。
func (i *instrumented) Unwrap() Store {
	return i.Store
}

func (i *instrumented) Get(ctx context.Context, key string) (any, bool) {
	value, ok := i.Store.Get(ctx, key)
	if ok {
		i.hits.Inc()
	} else {
		i.misses.Inc()
	}
	return value, ok
}

func (i *instrumented) Exists(ctx context.Context, key string) bool {
	ok := i.Store.Exists(ctx, key)
	if ok {
		i.hits.Inc()
	} else {
		i.misses.Inc()
	}
	return ok
}

func (i *instrumented) Put(ctx context.Context, key string, value any, ttl time.Duration) error {
	return i.count(i.Store.Put(ctx, key, value, ttl))
}

func (i *instrumented) IfPut(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	stored, err := i.Store.IfPut(ctx, key, value, ttl)
	if err != nil {
		i.errors.Inc()
	} else if stored {
		i.writes.Inc()
	}
	return stored, err
}

func (i *instrumented) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	n, err := i.Store.Increment(ctx, key, delta)
	return n, i.count(err)
}

func (i *instrumented) Decrement(ctx context.Context, key string, delta int64) (int64, error) {
	n, err := i.Store.Decrement(ctx, key, delta)
	return n, i.count(err)
}

func (i *instrumented) Delete(ctx context.Context, key string) error {
	return i.count(i.Store.Delete(ctx, key))
}

func (i *instrumented) Flush(ctx context.Context) error {
	return i.count(i.Store.Flush(ctx))
}

func (i *instrumented) Close() error {
	if closer, ok := i.Store.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

func (i *instrumented) count(err error) error {
	if err != nil {
		i.errors.Inc()
	} else {
		i.writes.Inc()
	}
	return err
}
