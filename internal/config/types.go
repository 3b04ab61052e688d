package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if seconds, err := time.ParseDuration(raw); err == nil {
		*d = Duration(seconds)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

// GlobalConfig 描述全局运行时行为，所有 Store 共享同一份参数。
type GlobalConfig struct {
	ListenPort    int      `mapstructure:"ListenPort"`
	LogLevel      string   `mapstructure:"LogLevel"`
	LogFilePath   string   `mapstructure:"LogFilePath"`
	LogMaxSize    int      `mapstructure:"LogMaxSize"`
	LogMaxBackups int      `mapstructure:"LogMaxBackups"`
	LogCompress   bool     `mapstructure:"LogCompress"`
	DefaultTTL    Duration `mapstructure:"DefaultTTL"`
	Serializer    string   `mapstructure:"Serializer"`
	Backfill      bool     `mapstructure:"Backfill"`
	BackfillTTL   Duration `mapstructure:"BackfillTTL"`
}

// StoreConfig 描述链路中的一层后端，按文件中出现的顺序组成 Chain。
type StoreConfig struct {
	Name       string `mapstructure:"Name"`
	Driver     string `mapstructure:"Driver"`
	Path       string `mapstructure:"Path"`
	Prefix     string `mapstructure:"Prefix"`
	Bucket     string `mapstructure:"Bucket"`
	Serializer string `mapstructure:"Serializer"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global GlobalConfig  `mapstructure:",squash"`
	Stores []StoreConfig `mapstructure:"Store"`
}

// StoreSummaries 返回所有 Store 的 name:driver 摘要，供日志字段使用。
func StoreSummaries(stores []StoreConfig) []string {
	if len(stores) == 0 {
		return nil
	}
	result := make([]string, len(stores))
	for i, store := range stores {
		result[i] = fmt.Sprintf("%s:%s", store.Name, store.Driver)
	}
	return result
}

// EffectiveSerializer 返回 Store 生效的序列化格式，未覆盖时回退至全局值。
func (c *Config) EffectiveSerializer(s StoreConfig) string {
	if name := strings.TrimSpace(s.Serializer); name != "" {
		return name
	}
	return c.Global.Serializer
}
