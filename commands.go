package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/any-hub/hubcache/internal/cache"
	"github.com/any-hub/hubcache/internal/config"
	"github.com/any-hub/hubcache/internal/logging"
	"github.com/any-hub/hubcache/internal/server"
	"github.com/any-hub/hubcache/internal/server/routes"
	"github.com/any-hub/hubcache/internal/version"
)

const defaultConfigPath = "config.toml"

var errKeyNotFound = errors.New("key not found")

// session 持有一次命令执行期间加载的配置、日志与后端。
type session struct {
	configPath string
	cfg        *config.Config
	logger     *logrus.Logger
	registry   *server.StoreRegistry
	store      cache.Store
}

func (s *session) close() {
	if s == nil || s.registry == nil {
		return
	}
	if err := s.registry.Close(); err != nil {
		s.logger.WithFields(logging.BaseFields("shutdown", s.configPath)).WithError(err).Warn("关闭后端失败")
	}
}

// newRootCmd 每次调用都返回一棵全新的命令树，flag 状态不会在测试之间泄漏。
func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("hubcache")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault("config", defaultConfigPath)

	root := &cobra.Command{
		Use:           "hubcache",
		Short:         "key-value cache with file, bolt and memory backends",
		Long:          fmt.Sprintf("%s\n\nStores are configured as [[Store]] tables and chained in file order.", version.Full()),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "配置文件路径（默认 ./config.toml，可被 HUBCACHE_CONFIG 覆盖）")
	root.PersistentFlags().String("store", "", "只操作指定名称的 Store，默认操作整条链路")
	_ = v.BindPFlags(root.PersistentFlags())

	root.AddCommand(
		newVersionCmd(),
		newCheckConfigCmd(v),
		newServeCmd(v),
		newGetCmd(v),
		newPutCmd(v),
		newAddCmd(v),
		newDeleteCmd(v),
		newExistsCmd(v),
		newDeltaCmd(v, "incr", 1),
		newDeltaCmd(v, "decr", -1),
		newFlushCmd(v),
	)
	return root
}

// configPathFrom 按 flag > HUBCACHE_CONFIG > 默认值 的顺序计算配置路径。
func configPathFrom(v *viper.Viper) string {
	if path := strings.TrimSpace(v.GetString("config")); path != "" {
		return path
	}
	return defaultConfigPath
}

// loadSession 加载配置与日志；withStores 为 true 时同时打开全部后端并选出目标 Store。
func loadSession(v *viper.Viper, withStores bool) (*session, error) {
	path := configPathFrom(v)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}

	logger, err := logging.InitLoggerWithConsole(cfg.Global, stdErr)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	s := &session{configPath: path, cfg: cfg, logger: logger}
	if !withStores {
		return s, nil
	}

	registry, err := server.NewStoreRegistry(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("打开后端失败: %w", err)
	}
	s.registry = registry

	store, err := registry.Select(v.GetString("store"))
	if err != nil {
		s.close()
		return nil, err
	}
	s.store = store
	return s, nil
}

// storeCommand 包装需要后端的命令：加载会话、执行、关闭。
func storeCommand(v *viper.Viper, fn func(ctx context.Context, s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := loadSession(v, true)
		if err != nil {
			return err
		}
		defer s.close()
		return fn(cmd.Context(), s, args)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "显示版本信息",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			printVersion()
		},
	}
}

func newCheckConfigCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "仅校验配置后退出",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			s, err := loadSession(v, false)
			if err != nil {
				return err
			}
			fields := logging.BaseFields("check_config", s.configPath)
			fields["stores"] = config.StoreSummaries(s.cfg.Stores)
			fields["result"] = "ok"
			s.logger.WithFields(fields).Info("配置校验通过")
			fmt.Fprintln(stdOut, "ok")
			return nil
		},
	}
}

func newServeCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动只读诊断服务（/-/healthz, /-/stores, /-/metrics）",
		Args:  cobra.NoArgs,
		RunE: storeCommand(v, func(_ context.Context, s *session, _ []string) error {
			fields := logging.BaseFields("startup", s.configPath)
			fields["stores"] = config.StoreSummaries(s.cfg.Stores)
			fields["listen_port"] = s.cfg.Global.ListenPort
			fields["version"] = version.Full()
			s.logger.WithFields(fields).Info("配置加载完成")
			return startHTTPServer(s)
		}),
	}
}

func startHTTPServer(s *session) error {
	port := s.cfg.Global.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:     s.logger,
		Registry:   s.registry,
		ListenPort: port,
	})
	if err != nil {
		return err
	}
	routes.RegisterStoreRoutes(app, s.registry)
	server.RegisterFallback(app, s.logger)

	s.logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}

func newGetCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "get [key]",
		Short: "读取键值，未命中时以非零码退出",
		Args:  cobra.ExactArgs(1),
		RunE: storeCommand(v, func(ctx context.Context, s *session, args []string) error {
			value, ok := s.store.Get(ctx, args[0])
			if !ok {
				return fmt.Errorf("%w: %s", errKeyNotFound, args[0])
			}
			text, err := formatValue(value)
			if err != nil {
				return err
			}
			fmt.Fprintln(stdOut, text)
			return nil
		}),
	}
}

// addValueFlags 为写入类命令注册 --ttl 与 --type。
func addValueFlags(cmd *cobra.Command) {
	cmd.Flags().Duration("ttl", -1, "过期时间，例如 30s、10m；0 表示永不过期，默认取配置中的 DefaultTTL")
	cmd.Flags().String("type", "string", "值类型：string|int|json")
}

func valueFromFlags(cmd *cobra.Command, s *session, raw string) (any, time.Duration, error) {
	ttl, _ := cmd.Flags().GetDuration("ttl")
	if ttl < 0 {
		ttl = s.cfg.Global.DefaultTTL.DurationValue()
	}
	kind, _ := cmd.Flags().GetString("type")
	value, err := parseValue(kind, raw)
	return value, ttl, err
}

func newPutCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put [key] [value]",
		Short: "写入键值，广播到链路中的全部后端",
		Args:  cobra.ExactArgs(2),
	}
	addValueFlags(cmd)
	cmd.RunE = storeCommand(v, func(ctx context.Context, s *session, args []string) error {
		value, ttl, err := valueFromFlags(cmd, s, args[1])
		if err != nil {
			return err
		}
		if err := s.store.Put(ctx, args[0], value, ttl); err != nil {
			return err
		}
		fmt.Fprintln(stdOut, "ok")
		return nil
	})
	return cmd
}

func newAddCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [key] [value]",
		Short: "仅当键不存在时写入",
		Args:  cobra.ExactArgs(2),
	}
	addValueFlags(cmd)
	cmd.RunE = storeCommand(v, func(ctx context.Context, s *session, args []string) error {
		value, ttl, err := valueFromFlags(cmd, s, args[1])
		if err != nil {
			return err
		}
		stored, err := s.store.IfPut(ctx, args[0], value, ttl)
		if err != nil {
			return err
		}
		if stored {
			fmt.Fprintln(stdOut, "stored")
		} else {
			fmt.Fprintln(stdOut, "exists")
		}
		return nil
	})
	return cmd
}

func newDeleteCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [key]",
		Short: "删除键，不存在时也视为成功",
		Args:  cobra.ExactArgs(1),
		RunE: storeCommand(v, func(ctx context.Context, s *session, args []string) error {
			if err := s.store.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(stdOut, "ok")
			return nil
		}),
	}
}

func newExistsCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "exists [key]",
		Short: "输出键是否存在且未过期",
		Args:  cobra.ExactArgs(1),
		RunE: storeCommand(v, func(ctx context.Context, s *session, args []string) error {
			fmt.Fprintln(stdOut, strconv.FormatBool(s.store.Exists(ctx, args[0])))
			return nil
		}),
	}
}

// newDeltaCmd 构建 incr/decr，sign 决定调用 Increment 还是 Decrement。
func newDeltaCmd(v *viper.Viper, use string, sign int) *cobra.Command {
	short := "按整数递增键值，默认步长 1"
	if sign < 0 {
		short = "按整数递减键值，默认步长 1"
	}
	return &cobra.Command{
		Use:   use + " [key] [delta]",
		Short: short,
		Args:  cobra.RangeArgs(1, 2),
		RunE: storeCommand(v, func(ctx context.Context, s *session, args []string) error {
			delta := int64(1)
			if len(args) == 2 {
				parsed, err := strconv.ParseInt(args[1], 10, 64)
				if err != nil {
					return fmt.Errorf("delta must be an integer: %w", err)
				}
				delta = parsed
			}
			var (
				n   int64
				err error
			)
			if sign < 0 {
				n, err = s.store.Decrement(ctx, args[0], delta)
			} else {
				n, err = s.store.Increment(ctx, args[0], delta)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(stdOut, n)
			return nil
		}),
	}
}

func newFlushCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "清空全部条目",
		Args:  cobra.NoArgs,
		RunE: storeCommand(v, func(ctx context.Context, s *session, _ []string) error {
			if err := s.store.Flush(ctx); err != nil {
				return err
			}
			s.logger.WithFields(logging.BaseFields("flush", s.configPath)).Info("缓存已清空")
			fmt.Fprintln(stdOut, "ok")
			return nil
		}),
	}
}

func parseValue(kind, raw string) (any, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "string":
		return raw, nil
	case "int":
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("value must be an integer: %w", err)
		}
		return n, nil
	case "json":
		var out any
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			return nil, fmt.Errorf("value must be valid json: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %q", kind)
	}
}

func formatValue(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		return fmt.Sprint(v), nil
	}
}
