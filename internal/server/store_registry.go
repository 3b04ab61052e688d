package server

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/hubcache/internal/cache"
	"github.com/any-hub/hubcache/internal/config"
)

// StoreRoute 将 Store 配置与打开后的后端聚合在一起，供 CLI 与诊断端直接复用。
type StoreRoute struct {
	// Config 是用户在 config.toml 中声明的 Store 字段副本。
	Config config.StoreConfig
	// Driver 记录驱动元数据，便于日志与 /-/stores 输出。
	Driver cache.DriverMetadata
	// Serializer 是该 Store 生效的序列化格式名称。
	Serializer string
	// Store 是经过 cache.Instrument 包装的后端。
	Store cache.Store
	// Position 是该后端在链路中的下标，读取时下标小的优先。
	Position int
}

// StoreRegistry 按配置顺序持有全部后端，并提供组合后的 Chain。
type StoreRegistry struct {
	routes  map[string]*StoreRoute
	ordered []*StoreRoute
	chain   *cache.Chain
}

// NewStoreRegistry 根据配置打开全部后端。任一后端失败时关闭已打开的后端并返回错误。
func NewStoreRegistry(cfg *config.Config, logger logrus.FieldLogger) (*StoreRegistry, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if logger == nil {
		nop := logrus.New()
		nop.SetOutput(io.Discard)
		logger = nop
	}

	registry := &StoreRegistry{
		routes: make(map[string]*StoreRoute, len(cfg.Stores)),
		chain:  cache.NewChain(),
	}
	registry.chain.SetLogger(logger.WithField("component", "chain"))
	if cfg.Global.Backfill {
		registry.chain.EnableBackfill(cfg.Global.BackfillTTL.DurationValue())
	}

	for _, sc := range cfg.Stores {
		key := normalizeName(sc.Name)
		if key == "" {
			_ = registry.Close()
			return nil, fmt.Errorf("store name is required")
		}
		if _, exists := registry.routes[key]; exists {
			_ = registry.Close()
			return nil, fmt.Errorf("duplicate store name detected for %s", sc.Name)
		}

		route, err := openStore(cfg, sc, logger)
		if err != nil {
			_ = registry.Close()
			return nil, err
		}

		route.Position = len(registry.ordered)
		registry.routes[key] = route
		registry.ordered = append(registry.ordered, route)
		registry.chain.Append(route.Store)
	}

	return registry, nil
}

// Lookup 根据名称（不区分大小写）查找 StoreRoute。
func (r *StoreRegistry) Lookup(name string) (*StoreRoute, bool) {
	if r == nil {
		return nil, false
	}
	route, ok := r.routes[normalizeName(name)]
	return route, ok
}

// List 返回当前注册的 StoreRoute 列表（按配置定义的顺序），用于 /-/stores 输出。
func (r *StoreRegistry) List() []StoreRoute {
	if r == nil || len(r.ordered) == 0 {
		return nil
	}

	result := make([]StoreRoute, len(r.ordered))
	for i, route := range r.ordered {
		result[i] = *route
	}
	return result
}

// Chain 返回按配置顺序组合的链路。
func (r *StoreRegistry) Chain() *cache.Chain {
	if r == nil || r.chain == nil {
		return cache.NewChain()
	}
	return r.chain
}

// Select 返回指定名称的单个后端；name 为空时返回整条链路。
func (r *StoreRegistry) Select(name string) (cache.Store, error) {
	if strings.TrimSpace(name) == "" {
		return r.Chain(), nil
	}
	route, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("store %s is not configured", name)
	}
	return route.Store, nil
}

// Close 关闭全部持有资源的后端（例如 bbolt 数据库文件）。
func (r *StoreRegistry) Close() error {
	if r == nil || r.chain == nil {
		return nil
	}
	return r.chain.Close()
}

func normalizeName(name string) string {
	return config.NormalizeStoreName(name)
}
