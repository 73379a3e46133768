package sched

import (
	"sync"
	"time"
)

// Clock 提供当前时间，所有轮询超时都基于注入的时钟判断
type Clock interface {
	Now() time.Time
}

// SystemClock 使用真实墙钟
type SystemClock struct{}

// Now 返回当前墙钟时间
func (SystemClock) Now() time.Time { return time.Now() }

// ManualClock 手动推进的时钟，用于测试与无头模拟
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock 创建从 start 开始的手动时钟
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now 返回当前手动时间
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance 将时钟向前推进 d
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Deadline 墙钟截止时间，由任务在每次迭代中轮询
type Deadline struct {
	at time.Time
}

// After 返回 now 之后 d 的截止时间
func After(now time.Time, d time.Duration) Deadline {
	return Deadline{at: now.Add(d)}
}

// Passed 判断截止时间是否已到
func (d Deadline) Passed(now time.Time) bool {
	return !now.Before(d.at)
}

// Remaining 返回距截止时间的剩余时长（不小于 0）
func (d Deadline) Remaining(now time.Time) time.Duration {
	if r := d.at.Sub(now); r > 0 {
		return r
	}
	return 0
}

// Progress 返回从 start 到截止时间的进度 [0, 1]
func (d Deadline) Progress(start, now time.Time) float64 {
	total := d.at.Sub(start)
	if total <= 0 {
		return 1
	}
	p := float64(now.Sub(start)) / float64(total)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
