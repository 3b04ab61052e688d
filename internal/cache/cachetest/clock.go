package cachetest

import (
	"sync"
	"time"
)

// Clock 是可手动推进的测试时钟。
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock 返回停在一个固定时间点的时钟。
func NewClock() *Clock {
	return &Clock{now: time.Unix(1_700_000_000, 0)}
}

// Now 可直接作为 WithClock 的参数。
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance 将时钟向前推进 d。
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
