package sched

import "sync"

// Awaitable 可被轮询完成状态的对象
type Awaitable interface {
	Done() bool
}

// Future 异步结果，由生产方 Resolve/Fail，消费方在自己的迭代中轮询 Done
type Future[T any] struct {
	mu    sync.Mutex
	done  bool
	value T
	err   error
}

// Signal 不携带值的完成信号
type Signal = Future[struct{}]

// NewFuture 创建未完成的 Future
func NewFuture[T any]() *Future[T] {
	return &Future[T]{}
}

// Resolved 创建已完成的 Future
func Resolved[T any](v T) *Future[T] {
	return &Future[T]{done: true, value: v}
}

// NewSignal 创建未完成的信号
func NewSignal() *Signal {
	return NewFuture[struct{}]()
}

// Completed 返回一个已完成的信号
func Completed() *Signal {
	return Resolved(struct{}{})
}

// Resolve 以 v 完成，重复调用无效
func (f *Future[T]) Resolve(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done {
		return
	}
	f.done = true
	f.value = v
}

// Fire 完成信号（Resolve 的便捷写法）
func (f *Future[T]) Fire() {
	var zero T
	f.Resolve(zero)
}

// Fail 以错误完成，重复调用无效
func (f *Future[T]) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done {
		return
	}
	f.done = true
	f.err = err
}

// Done 是否已完成（成功或失败）
func (f *Future[T]) Done() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done
}

// Value 返回结果值，未完成时为零值
func (f *Future[T]) Value() T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

// Err 返回失败原因
func (f *Future[T]) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// AllDone 屏障判断：全部完成时返回 true，nil 视为已完成
func AllDone(items ...Awaitable) bool {
	for _, it := range items {
		if it == nil {
			continue
		}
		if !it.Done() {
			return false
		}
	}
	return true
}
