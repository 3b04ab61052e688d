package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/hubcache/internal/cache"
	"github.com/any-hub/hubcache/internal/serializer"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if g.LogLevel != "" {
		if _, err := logrus.ParseLevel(g.LogLevel); err != nil {
			return newFieldError("Global.LogLevel", fmt.Sprintf("无法识别: %s", g.LogLevel))
		}
	}
	if g.DefaultTTL.DurationValue() < 0 {
		return newFieldError("Global.DefaultTTL", "不能为负数")
	}
	if _, err := serializer.ByName(g.Serializer); err != nil {
		return newFieldError("Global.Serializer", "仅支持 gob/json")
	}

	if len(c.Stores) == 0 {
		return errors.New("至少需要配置一个 Store")
	}

	seenNames := map[string]struct{}{}
	for i := range c.Stores {
		store := &c.Stores[i]
		name := NormalizeStoreName(store.Name)
		if name == "" {
			return newFieldError("Store[].Name", "不能为空")
		}
		if _, exists := seenNames[name]; exists {
			return newFieldError(storeField(store.Name, "Name"), "重复（名称不区分大小写）")
		}
		seenNames[name] = struct{}{}

		if store.Driver == "" {
			return newFieldError(storeField(store.Name, "Driver"), "不能为空")
		}
		meta, ok := cache.ResolveDriver(store.Driver)
		if !ok {
			return newFieldError(storeField(store.Name, "Driver"), fmt.Sprintf("未注册驱动: %s，可选 %s", store.Driver, driverList()))
		}
		if meta.RequiresPath && store.Path == "" {
			return newFieldError(storeField(store.Name, "Path"), fmt.Sprintf("%s 驱动必须提供 Path", meta.Key))
		}
		if store.Serializer != "" {
			if _, err := serializer.ByName(store.Serializer); err != nil {
				return newFieldError(storeField(store.Name, "Serializer"), "仅支持 gob/json")
			}
		}
	}

	return nil
}

// NormalizeStoreName 返回 Store 名称的比较形式：去掉首尾空白并转为小写。
func NormalizeStoreName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func driverList() string {
	drivers := cache.Drivers()
	keys := make([]string, len(drivers))
	for i, meta := range drivers {
		keys[i] = meta.Key
	}
	return strings.Join(keys, "|")
}
