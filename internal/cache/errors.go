package cache

import (
	"errors"
	"fmt"
)

var (
	// ErrDeserialize 表示条目正文无法被 serializer 解码。
	ErrDeserialize = errors.New("cache: deserialize value")
	// ErrWriteFailed 表示写入没有产生任何字节。
	ErrWriteFailed = errors.New("cache: write failed")
	// ErrRootMissing 表示 Flush 时根目录不存在。
	ErrRootMissing = errors.New("cache: root directory missing")
	// ErrClosed 表示后端已关闭。
	ErrClosed = errors.New("cache: store closed")
)

// ConfigurationError 在构造后端时参数缺失或非法时返回。
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("cache configuration: %s: %s", e.Field, e.Reason)
}

// CorruptPayloadError 描述无法解析的磁盘/桶内负载。读路径会把它当作未命中处理。
type CorruptPayloadError struct {
	Reason string
	Err    error
}

func (e *CorruptPayloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cache: corrupt payload: %s: %v", e.Reason, e.Err)
	}
	return "cache: corrupt payload: " + e.Reason
}

func (e *CorruptPayloadError) Unwrap() error {
	return e.Err
}

// DirectoryCreateError 表示写入前无法创建分片目录。
type DirectoryCreateError struct {
	Path string
	Err  error
}

func (e *DirectoryCreateError) Error() string {
	return fmt.Sprintf("cache: create directory %s: %v", e.Path, e.Err)
}

func (e *DirectoryCreateError) Unwrap() error {
	return e.Err
}

// BackendError 标记 Chain 中第几个后端在哪个操作上失败。
type BackendError struct {
	Index int
	Op    string
	Err   error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("cache: store #%d %s: %v", e.Index, e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}
