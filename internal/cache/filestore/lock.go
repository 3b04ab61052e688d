package filestore

import (
	"errors"
	"sync"
	"time"
)

const (
	lockTimeout       = 2 * time.Second
	lockRetryInterval = 5 * time.Millisecond
)

var errLockTimeout = errors.New("filestore: lock timeout")

// entryLock 通过引用计数在无人使用时从表中移除。
type entryLock struct {
	mu   sync.Mutex
	refs int
}

// lockEntry 获取 path 的进程内互斥锁，返回释放函数。
func (s *Store) lockEntry(path string) func() {
	lock, _ := s.locks.Compute(path, func(l *entryLock, loaded bool) (*entryLock, bool) {
		if !loaded {
			l = &entryLock{}
		}
		l.refs++
		return l, false
	})

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.locks.Compute(path, func(l *entryLock, loaded bool) (*entryLock, bool) {
			if !loaded {
				return l, true
			}
			l.refs--
			return l, l.refs == 0
		})
	}
}
