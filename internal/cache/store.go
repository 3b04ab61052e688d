package cache

import (
	"context"
	"time"
)

// Store 是所有缓存后端共享的契约。文件、bbolt、内存实现以及 Chain 本身都满足该接口，
// 因此任意后端都可以被组合进链路。
//
// 读路径的失败（文件缺失、损坏、锁获取失败）一律视为未命中，不会向调用方抛错；
// 写路径与构造阶段的失败会以 error 返回。
type Store interface {
	// Get 返回 key 对应的值。条目不存在、不可读或已过期时返回 (nil, false)，
	// 过期条目会在返回前被物理删除。
	Get(ctx context.Context, key string) (any, bool)

	// Put 写入 value，ttl 为 0 表示永不过期，负值写入一个已过期条目。
	Put(ctx context.Context, key string, value any, ttl time.Duration) error

	// Delete 删除条目，条目不存在时视为成功。
	Delete(ctx context.Context, key string) error

	// Exists 等价于 Get 是否命中，会执行完整的读取与过期检查。
	Exists(ctx context.Context, key string) bool

	// IfPut 仅在条目不存在时写入，返回是否真正写入。
	IfPut(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)

	// Increment 将当前值按整数解释后加上 delta 并写回，保留原条目剩余的 TTL。
	Increment(ctx context.Context, key string, delta int64) (int64, error)

	// Decrement 等价于 Increment(ctx, key, -delta)。
	Decrement(ctx context.Context, key string, delta int64) (int64, error)

	// Flush 清空该后端的全部条目。
	Flush(ctx context.Context) error

	// SetPrefix 修改后续所有键派生使用的前缀，旧前缀下的条目不会迁移。
	SetPrefix(prefix string)

	// Prefix 返回当前前缀。
	Prefix() string
}

// GetDefault 在未命中时返回 def。
func GetDefault(ctx context.Context, s Store, key string, def any) any {
	if value, ok := s.Get(ctx, key); ok {
		return value
	}
	return def
}

// GetAs 读取条目并断言为 T；未命中或类型不符时返回零值与 false。
func GetAs[T any](ctx context.Context, s Store, key string) (T, bool) {
	var zero T
	value, ok := s.Get(ctx, key)
	if !ok {
		return zero, false
	}
	typed, ok := value.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}
