package cache

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/hubcache/internal/serializer"
)

// DriverOptions 是配置层传给后端构造函数的通用参数，各驱动按需取用。
type DriverOptions struct {
	Path       string
	Prefix     string
	Bucket     string
	Serializer serializer.Serializer
	Logger     logrus.FieldLogger
}

// OpenFunc 根据 DriverOptions 构造后端。
type OpenFunc func(opts DriverOptions) (Store, error)

// DriverMetadata 记录一个后端驱动的静态信息，供配置校验和诊断端使用。
type DriverMetadata struct {
	Key          string
	Description  string
	RequiresPath bool
	Open         OpenFunc
}

var globalDrivers = newDriverRegistry()

type driverRegistry struct {
	mu      sync.RWMutex
	drivers map[string]DriverMetadata
}

func newDriverRegistry() *driverRegistry {
	return &driverRegistry{drivers: make(map[string]DriverMetadata)}
}

// RegisterDriver 将驱动加入全局注册表，重复键会返回错误。
func RegisterDriver(meta DriverMetadata) error {
	return globalDrivers.register(meta)
}

// MustRegisterDriver 在注册失败时 panic，适合驱动包 init() 中调用。
func MustRegisterDriver(meta DriverMetadata) {
	if err := RegisterDriver(meta); err != nil {
		panic(err)
	}
}

// ResolveDriver 返回指定键的驱动元数据。
func ResolveDriver(key string) (DriverMetadata, bool) {
	return globalDrivers.resolve(key)
}

// Drivers 返回按键排序的驱动列表。
func Drivers() []DriverMetadata {
	return globalDrivers.list()
}

// Open 通过驱动键构造后端。
func Open(driver string, opts DriverOptions) (Store, error) {
	meta, ok := ResolveDriver(driver)
	if !ok {
		return nil, &ConfigurationError{Field: "driver", Reason: fmt.Sprintf("unknown driver %q", driver)}
	}
	if meta.RequiresPath && strings.TrimSpace(opts.Path) == "" {
		return nil, &ConfigurationError{Field: "path", Reason: "required"}
	}
	if opts.Serializer == nil {
		opts.Serializer = serializer.Default()
	}
	return meta.Open(opts)
}

func normalizeDriverKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func (r *driverRegistry) register(meta DriverMetadata) error {
	key := normalizeDriverKey(meta.Key)
	if key == "" {
		return fmt.Errorf("driver key is required")
	}
	if meta.Open == nil {
		return fmt.Errorf("driver %s has no open func", key)
	}
	meta.Key = key

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.drivers[key]; exists {
		return fmt.Errorf("driver %s already registered", key)
	}
	r.drivers[key] = meta
	return nil
}

func (r *driverRegistry) resolve(key string) (DriverMetadata, bool) {
	normalized := normalizeDriverKey(key)
	if normalized == "" {
		return DriverMetadata{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	meta, ok := r.drivers[normalized]
	return meta, ok
}

func (r *driverRegistry) list() []DriverMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.drivers) == 0 {
		return nil
	}

	keys := make([]string, 0, len(r.drivers))
	for key := range r.drivers {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := make([]DriverMetadata, 0, len(keys))
	for _, key := range keys {
		result = append(result, r.drivers[key])
	}
	return result
}
