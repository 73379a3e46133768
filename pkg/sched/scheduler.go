// Package sched 提供单线程协作式任务调度
//
// 每个任务实现 Step：执行到下一个挂起点后返回 Yield 或 Done。
// Scheduler.Tick 让每个存活任务恰好前进一步；同一 Tick 内新创建的任务
// 从下一个 Tick 开始运行。任务之间没有指令级并发，但多个逻辑任务可以
// 同时处于"进行中"状态。
//
// 取消通过层级 context 传播：关卡拆除时取消根 context，所有任务在下一步
// 检查到取消后结束。取消是正常的退出路径，不会被当作故障上报。
package sched

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// Status 任务单步执行后的状态
type Status int

const (
	// Yield 任务尚未结束，下一个 Tick 继续
	Yield Status = iota
	// Done 任务正常结束
	Done
)

// Task 协作式任务
type Task interface {
	Step(ctx context.Context, now time.Time) (Status, error)
}

// TaskFunc 将普通函数适配为 Task
type TaskFunc func(ctx context.Context, now time.Time) (Status, error)

// Step 调用 f
func (f TaskFunc) Step(ctx context.Context, now time.Time) (Status, error) {
	return f(ctx, now)
}

type taskEntry struct {
	name string
	ctx  context.Context
	task Task
	done *Signal
}

// Scheduler 协作式调度器
type Scheduler struct {
	mu      sync.Mutex
	clock   Clock
	ctx     context.Context
	cancel  context.CancelFunc
	running []*taskEntry
	spawned []*taskEntry
	fault   error
	ticks   uint64
}

// NewScheduler 创建调度器，parent 取消时所有任务随之取消
func NewScheduler(parent context.Context, clock Clock) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	ctx, cancel := context.WithCancel(parent)
	return &Scheduler{
		clock:  clock,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Context 返回调度器根 context
func (s *Scheduler) Context() context.Context {
	return s.ctx
}

// Now 返回注入时钟的当前时间
func (s *Scheduler) Now() time.Time {
	return s.clock.Now()
}

// Go 以调度器根 context 启动任务，返回任务完成信号
func (s *Scheduler) Go(name string, task Task) *Signal {
	return s.GoWithContext(s.ctx, name, task)
}

// GoWithContext 以指定 context（通常是根 context 的子 context）启动任务
func (s *Scheduler) GoWithContext(ctx context.Context, name string, task Task) *Signal {
	entry := &taskEntry{
		name: name,
		ctx:  ctx,
		task: task,
		done: NewSignal(),
	}

	s.mu.Lock()
	s.spawned = append(s.spawned, entry)
	s.mu.Unlock()

	return entry.done
}

// Tick 让所有存活任务各前进一步
//
// 返回调度器记录的第一个故障；发生故障后根 context 被取消。
func (s *Scheduler) Tick() error {
	s.mu.Lock()
	s.running = append(s.running, s.spawned...)
	s.spawned = nil
	batch := s.running
	s.running = nil
	s.ticks++
	s.mu.Unlock()

	now := s.clock.Now()
	survivors := batch[:0]

	for _, entry := range batch {
		if err := entry.ctx.Err(); err != nil {
			entry.done.Fail(err)
			continue
		}

		status, err := entry.task.Step(entry.ctx, now)
		if err != nil {
			if isCancellation(err) {
				entry.done.Fail(err)
				continue
			}
			s.recordFault(entry.name, err)
			entry.done.Fail(err)
			continue
		}

		if status == Done {
			entry.done.Fire()
			continue
		}
		survivors = append(survivors, entry)
	}

	s.mu.Lock()
	s.running = append(survivors, s.running...)
	fault := s.fault
	s.mu.Unlock()

	return fault
}

func (s *Scheduler) recordFault(name string, err error) {
	log.Printf("[Scheduler] ERROR: task %s failed: %v", name, err)

	s.mu.Lock()
	if s.fault == nil {
		s.fault = fmt.Errorf("task %s: %w", name, err)
	}
	s.mu.Unlock()

	s.cancel()
}

// Cancel 取消根 context，所有任务在下一步结束
func (s *Scheduler) Cancel() {
	s.cancel()
}

// Err 返回已记录的故障
func (s *Scheduler) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fault
}

// Pending 返回尚未结束的任务数（含本 Tick 新创建的任务）
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.running) + len(s.spawned)
}

// Ticks 返回已执行的 Tick 次数
func (s *Scheduler) Ticks() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

// Drive 用手动时钟推进调度：每次先推进 step 再 Tick，直到 until 返回 true
// 或执行满 maxTicks 次。until 为 nil 时执行满 maxTicks 次。
// 返回实际执行的 Tick 数与故障。
func (s *Scheduler) Drive(clock *ManualClock, step time.Duration, maxTicks int, until func() bool) (int, error) {
	for i := 0; i < maxTicks; i++ {
		if until != nil && until() {
			return i, nil
		}
		clock.Advance(step)
		if err := s.Tick(); err != nil {
			return i + 1, err
		}
	}
	return maxTicks, nil
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
