package game

import (
	"sync"
	"time"
)

// Clock supplies server time in milliseconds. It must never go backwards.
type Clock interface {
	NowMs() int64
}

// SystemClock is anchored to the wall clock at creation and advanced by the
// monotonic clock afterwards.
type SystemClock struct {
	start   time.Time
	epochMs int64
}

func NewSystemClock() *SystemClock {
	now := time.Now()
	return &SystemClock{
		start:   now,
		epochMs: now.UnixMilli(),
	}
}

func (c *SystemClock) NowMs() int64 {
	return c.epochMs + time.Since(c.start).Milliseconds()
}

// ManualClock only moves when told to.
type ManualClock struct {
	lock sync.Mutex
	now  int64
}

func NewManualClock(startMs int64) *ManualClock {
	return &ManualClock{now: startMs}
}

func (c *ManualClock) NowMs() int64 {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

func (c *ManualClock) Advance(d time.Duration) int64 {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.now += d.Milliseconds()
	return c.now
}

func (c *ManualClock) Set(nowMs int64) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if nowMs > c.now {
		c.now = nowMs
	}
}
