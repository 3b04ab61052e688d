//go:build !unix

package filestore

import "os"

// 非 unix 平台没有 flock，只依赖进程内的路径互斥锁。
func lockFile(*os.File, bool) error { return nil }

func unlockFile(*os.File) error { return nil }
