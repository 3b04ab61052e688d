package server

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/hubcache/internal/cache"
	"github.com/any-hub/hubcache/internal/config"
	"github.com/any-hub/hubcache/internal/logging"
)

// openStore 通过驱动注册表构造单个后端，并用计数器包装。
func openStore(cfg *config.Config, sc config.StoreConfig, logger logrus.FieldLogger) (*StoreRoute, error) {
	meta, ok := cache.ResolveDriver(sc.Driver)
	if !ok {
		return nil, fmt.Errorf("store %s: driver %s is not registered", sc.Name, sc.Driver)
	}

	storeLogger := logger.WithFields(logging.StoreFields(sc.Name, meta.Key, sc.Prefix))
	opts, err := cfg.DriverOptions(sc, storeLogger)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", sc.Name, err)
	}
	backend, err := cache.Open(meta.Key, opts)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", sc.Name, err)
	}

	storeLogger.WithField("action", "store_open").Debug("store opened")
	return &StoreRoute{
		Config:     sc,
		Driver:     meta,
		Serializer: opts.Serializer.Name(),
		Store:      cache.Instrument(backend, sc.Name),
	}, nil
}
