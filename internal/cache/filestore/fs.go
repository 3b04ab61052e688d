package filestore

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Filesystem 是文件存储依赖的目录/文件能力，可在测试中替换。
type Filesystem interface {
	// EnsureDir 创建目录及其所有父目录，已存在时成功。
	EnsureDir(path string, perm os.FileMode) error
	// CleanDir 删除目录下的全部内容但保留目录本身；目录不存在时返回 fs.ErrNotExist。
	CleanDir(path string) error
	// RemoveFile 删除单个文件，文件不存在时成功。
	RemoveFile(path string) error
}

// OSFilesystem 基于 os 包实现 Filesystem。
type OSFilesystem struct{}

func (OSFilesystem) EnsureDir(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (OSFilesystem) CleanDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &fs.PathError{Op: "clean", Path: path, Err: fs.ErrNotExist}
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return err
	}
	var errs []error
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(path, entry.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (OSFilesystem) RemoveFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
