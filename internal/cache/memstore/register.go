package memstore

import "github.com/any-hub/hubcache/internal/cache"

// Driver 是内存存储在驱动注册表中的键。
const Driver = "memory"

func init() {
	cache.MustRegisterDriver(cache.DriverMetadata{
		Key:         Driver,
		Description: "in-process concurrent map, lost on restart",
		Open: func(opts cache.DriverOptions) (cache.Store, error) {
			return New(WithPrefix(opts.Prefix), WithSerializer(opts.Serializer)), nil
		},
	})
}
