package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/hubcache/internal/cache"
	"github.com/any-hub/hubcache/internal/serializer"
)

const (
	defaultDirPerm  = 0o755
	defaultFilePerm = 0o644
)

// Store 以 root 为根目录的文件缓存。零值不可用，请使用 New。
type Store struct {
	root     string
	prefix   atomic.Pointer[string]
	fs       Filesystem
	codec    serializer.Serializer
	now      func() time.Time
	logger   logrus.FieldLogger
	dirPerm  os.FileMode
	filePerm os.FileMode

	locks *xsync.MapOf[string, *entryLock]
}

var _ cache.Store = (*Store)(nil)

// Option 配置文件存储。
type Option func(*Store)

// WithPrefix 设置构造时的键前缀。
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.SetPrefix(prefix) }
}

// WithFilesystem 替换目录/文件能力。
func WithFilesystem(fsys Filesystem) Option {
	return func(s *Store) { s.fs = fsys }
}

// WithSerializer 替换值的编解码器，默认 gob。
func WithSerializer(codec serializer.Serializer) Option {
	return func(s *Store) {
		if codec != nil {
			s.codec = codec
		}
	}
}

// WithClock 注入时钟，默认 time.Now。
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger 设置用于记录被吞掉的读错误与惰性淘汰的日志器。
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithPerms 设置分片目录与条目文件的权限。
func WithPerms(dir, file os.FileMode) Option {
	return func(s *Store) {
		s.dirPerm = dir
		s.filePerm = file
	}
}

// New 以 root 为根目录构建文件缓存。root 为空时返回 *cache.ConfigurationError。
// 根目录不会在构造时创建，首次写入时按需创建。
func New(root string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, &cache.ConfigurationError{Field: "path", Reason: "required"}
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, &cache.ConfigurationError{Field: "path", Reason: err.Error()}
	}

	nop := logrus.New()
	nop.SetOutput(io.Discard)

	s := &Store{
		root:     abs,
		fs:       OSFilesystem{},
		codec:    serializer.Default(),
		now:      time.Now,
		logger:   nop,
		dirPerm:  defaultDirPerm,
		filePerm: defaultFilePerm,
		locks:    xsync.NewMapOf[string, *entryLock](),
	}
	s.SetPrefix("")
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Root 返回绝对根目录。
func (s *Store) Root() string {
	return s.root
}

func (s *Store) SetPrefix(prefix string) {
	s.prefix.Store(&prefix)
}

func (s *Store) Prefix() string {
	if p := s.prefix.Load(); p != nil {
		return *p
	}
	return ""
}

func (s *Store) Get(ctx context.Context, key string) (any, bool) {
	if ctx.Err() != nil {
		return nil, false
	}
	path := s.Path(key)
	expiry, body, err := s.readEntry(path)
	if err != nil {
		s.logReadFailure(key, path, err)
		return nil, false
	}
	if cache.Expired(s.now(), expiry) {
		s.evict(key, path)
		return nil, false
	}
	value, err := s.codec.Deserialize(body)
	if err != nil {
		s.logReadFailure(key, path, &cache.CorruptPayloadError{Reason: "value", Err: errors.Join(cache.ErrDeserialize, err)})
		s.discard(key, path)
		return nil, false
	}
	if value == nil {
		return nil, false
	}
	return value, true
}

func (s *Store) Exists(ctx context.Context, key string) bool {
	_, ok := s.Get(ctx, key)
	return ok
}

func (s *Store) Put(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.Path(key)
	unlock := s.lockEntry(path)
	defer unlock()
	return s.put(path, value, cache.ExpiryFor(s.now(), ttl))
}

// IfPut 在同一把路径锁内完成“检查 + 写入”，进程内并发调用只有一个会写入。
func (s *Store) IfPut(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path := s.Path(key)
	unlock := s.lockEntry(path)
	defer unlock()

	if s.live(path) {
		return false, nil
	}
	if err := s.put(path, value, cache.ExpiryFor(s.now(), ttl)); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	path := s.Path(key)
	unlock := s.lockEntry(path)
	defer unlock()
	return s.addInPlace(path, delta)
}

func (s *Store) Decrement(ctx context.Context, key string, delta int64) (int64, error) {
	return s.Increment(ctx, key, -delta)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.Path(key)
	unlock := s.lockEntry(path)
	defer unlock()
	return s.fs.RemoveFile(path)
}

// Flush 删除根目录下的全部内容，保留根目录本身。
func (s *Store) Flush(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.fs.CleanDir(s.root); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", cache.ErrRootMissing, s.root)
		}
		return err
	}
	return nil
}

// readEntry 在共享锁下读取并拆分负载。
func (s *Store) readEntry(path string) (int64, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, err
	}
	defer f.Close()

	if err := lockFile(f, false); err != nil {
		return 0, nil, err
	}
	defer unlockFile(f)

	raw, err := io.ReadAll(f)
	if err != nil {
		return 0, nil, err
	}
	return cache.DecodePayload(raw)
}

// live 报告 path 上是否存在未过期且可解码的条目。调用方需持有路径锁。
func (s *Store) live(path string) bool {
	expiry, body, err := s.readEntry(path)
	if err != nil || cache.Expired(s.now(), expiry) {
		return false
	}
	value, err := s.codec.Deserialize(body)
	return err == nil && value != nil
}

// put 序列化并在排他锁下覆盖写入。调用方需持有路径锁。
func (s *Store) put(path string, value any, expiry int64) error {
	body, err := s.codec.Serialize(value)
	if err != nil {
		return fmt.Errorf("serialize value: %w", err)
	}
	if err := s.ensureDir(path); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, s.filePerm)
	if err != nil {
		return fmt.Errorf("%w: %v", cache.ErrWriteFailed, err)
	}
	defer f.Close()

	if err := lockFile(f, true); err != nil {
		return fmt.Errorf("%w: %v", cache.ErrWriteFailed, err)
	}
	defer unlockFile(f)

	return writeLocked(f, cache.EncodePayload(body, expiry))
}

// addInPlace 在一次排他锁内完成读取、累加与写回，保留原条目的绝对过期时间。
func (s *Store) addInPlace(path string, delta int64) (int64, error) {
	if err := s.ensureDir(path); err != nil {
		return 0, err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, s.filePerm)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", cache.ErrWriteFailed, err)
	}
	defer f.Close()

	if err := lockFile(f, true); err != nil {
		return 0, fmt.Errorf("%w: %v", cache.ErrWriteFailed, err)
	}
	defer unlockFile(f)

	current, expiry := int64(0), cache.NoExpiry
	if raw, err := io.ReadAll(f); err == nil {
		if exp, body, err := cache.DecodePayload(raw); err == nil && !cache.Expired(s.now(), exp) {
			if value, err := s.codec.Deserialize(body); err == nil {
				current, expiry = cache.ToInt64(value), exp
			}
		}
	}

	next := current + delta
	body, err := s.codec.Serialize(next)
	if err != nil {
		return 0, fmt.Errorf("serialize value: %w", err)
	}
	if err := writeLocked(f, cache.EncodePayload(body, expiry)); err != nil {
		return 0, err
	}
	return next, nil
}

// writeLocked 截断并从头写入 payload。f 必须已持有排他锁。
func writeLocked(f *os.File, payload []byte) error {
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("%w: %v", cache.ErrWriteFailed, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: %v", cache.ErrWriteFailed, err)
	}
	n, err := f.Write(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", cache.ErrWriteFailed, err)
	}
	if n == 0 {
		return cache.ErrWriteFailed
	}
	return nil
}

func (s *Store) ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := s.fs.EnsureDir(dir, s.dirPerm); err != nil {
		return &cache.DirectoryCreateError{Path: dir, Err: err}
	}
	return nil
}

// evict 在路径锁下复查过期时间，仍然过期才删除，避免误删进程内并发写入的新值。
func (s *Store) evict(key, path string) {
	unlock := s.lockEntry(path)
	defer unlock()

	expiry, _, err := s.readEntry(path)
	if err != nil || !cache.Expired(s.now(), expiry) {
		return
	}
	s.remove(key, path, "expired entry removed")
}

// discard 在路径锁下复查正文，仍然无法解码才删除，避免误删进程内并发写入的新值。
func (s *Store) discard(key, path string) {
	unlock := s.lockEntry(path)
	defer unlock()

	_, body, err := s.readEntry(path)
	if err != nil {
		return
	}
	if _, err := s.codec.Deserialize(body); err == nil {
		return
	}
	s.remove(key, path, "undecodable entry removed")
}

func (s *Store) remove(key, path, msg string) {
	if err := s.fs.RemoveFile(path); err != nil {
		s.logger.WithFields(logrus.Fields{"action": "evict", "key": key, "path": path}).
			WithError(err).Warn("remove entry failed")
		return
	}
	s.logger.WithFields(logrus.Fields{"action": "evict", "key": key, "path": path}).Debug(msg)
}

func (s *Store) logReadFailure(key, path string, err error) {
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	s.logger.WithFields(logrus.Fields{"action": "read", "key": key, "path": path}).
		WithError(err).Debug("treating unreadable entry as miss")
}
