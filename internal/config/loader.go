package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/any-hub/hubcache/internal/serializer"
)

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	if err := rejectStoreLevelTTL(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyGlobalDefaults(&cfg.Global)
	for i := range cfg.Stores {
		applyStoreDefaults(&cfg.Stores[i])
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	for i := range cfg.Stores {
		store := &cfg.Stores[i]
		if store.Path == "" {
			continue
		}
		if !filepath.IsAbs(store.Path) {
			store.Path = filepath.Join(base, store.Path)
		}
		abs, err := filepath.Abs(store.Path)
		if err != nil {
			return nil, fmt.Errorf("无法解析 %s: %w", storeField(store.Name, "Path"), err)
		}
		store.Path = abs
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 5000)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("DefaultTTL", 0)
	v.SetDefault("Serializer", serializer.NameGob)
	v.SetDefault("Backfill", false)
	v.SetDefault("BackfillTTL", "5m")
}

func applyGlobalDefaults(g *GlobalConfig) {
	if g.ListenPort == 0 {
		g.ListenPort = 5000
	}
	g.Serializer = strings.ToLower(strings.TrimSpace(g.Serializer))
	if g.Serializer == "" {
		g.Serializer = serializer.NameGob
	}
	if g.BackfillTTL.DurationValue() < 0 {
		g.BackfillTTL = Duration(0)
	}
}

func applyStoreDefaults(s *StoreConfig) {
	s.Name = strings.TrimSpace(s.Name)
	s.Driver = strings.ToLower(strings.TrimSpace(s.Driver))
	s.Path = strings.TrimSpace(s.Path)
	s.Serializer = strings.ToLower(strings.TrimSpace(s.Serializer))
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}

// rejectStoreLevelTTL 拒绝 [[Store]] 中的 TTL 字段：TTL 由每次写入决定，默认值只在全局配置。
func rejectStoreLevelTTL(v *viper.Viper) error {
	raw := v.Get("Store")
	stores, ok := raw.([]interface{})
	if !ok {
		return nil
	}

	for idx, entry := range stores {
		m, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		for key := range m {
			if !strings.EqualFold(key, "TTL") && !strings.EqualFold(key, "DefaultTTL") {
				continue
			}
			name := fmt.Sprintf("#%d", idx)
			for k, val := range m {
				if rawName, ok := val.(string); ok && rawName != "" && strings.EqualFold(k, "Name") {
					name = rawName
				}
			}
			return newFieldError(storeField(name, key), "不支持 Store 级 TTL，请使用全局 DefaultTTL")
		}
	}

	return nil
}
