package config

import (
	"github.com/sirupsen/logrus"

	"github.com/any-hub/hubcache/internal/cache"
	"github.com/any-hub/hubcache/internal/serializer"
)

// DriverOptions 将 Store 配置与全局设置合并为驱动构造参数（假定 Validate 已经通过）。
func (c *Config) DriverOptions(s StoreConfig, logger logrus.FieldLogger) (cache.DriverOptions, error) {
	codec, err := serializer.ByName(c.EffectiveSerializer(s))
	if err != nil {
		return cache.DriverOptions{}, newFieldError(storeField(s.Name, "Serializer"), err.Error())
	}
	return cache.DriverOptions{
		Path:       s.Path,
		Prefix:     s.Prefix,
		Bucket:     s.Bucket,
		Serializer: codec,
		Logger:     logger,
	}, nil
}
