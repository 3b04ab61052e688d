package config

import (
	_ "github.com/any-hub/hubcache/internal/cache/boltstore"
	_ "github.com/any-hub/hubcache/internal/cache/filestore"
	_ "github.com/any-hub/hubcache/internal/cache/memstore"
)
