package boltstore

import "github.com/any-hub/hubcache/internal/cache"

// Driver 是 bbolt 存储在驱动注册表中的键。
const Driver = "bolt"

func init() {
	cache.MustRegisterDriver(cache.DriverMetadata{
		Key:          Driver,
		Description:  "single bbolt database file, one bucket per store",
		RequiresPath: true,
		Open: func(opts cache.DriverOptions) (cache.Store, error) {
			return Open(opts.Path,
				WithPrefix(opts.Prefix),
				WithBucket(opts.Bucket),
				WithSerializer(opts.Serializer),
				WithLogger(opts.Logger),
			)
		},
	})
}
