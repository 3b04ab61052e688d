package filestore

import "github.com/any-hub/hubcache/internal/cache"

// Driver 是文件存储在驱动注册表中的键。
const Driver = "file"

func init() {
	cache.MustRegisterDriver(cache.DriverMetadata{
		Key:          Driver,
		Description:  "sharded files under a root directory, one file per key",
		RequiresPath: true,
		Open: func(opts cache.DriverOptions) (cache.Store, error) {
			options := []Option{WithPrefix(opts.Prefix), WithSerializer(opts.Serializer)}
			if opts.Logger != nil {
				options = append(options, WithLogger(opts.Logger))
			}
			return New(opts.Path, options...)
		},
	})
}
