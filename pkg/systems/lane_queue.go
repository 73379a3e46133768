package systems

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gonewx/aimburst/pkg/components"
	"github.com/gonewx/aimburst/pkg/ecs"
	"github.com/gonewx/aimburst/pkg/sched"
	"github.com/gonewx/aimburst/pkg/types"
)

// LaneQueue 一行等待中的射手，索引 0 为队首
type LaneQueue struct {
	mu        sync.Mutex
	index     int
	spacing   float64
	em        *ecs.EntityManager
	scheduler *sched.Scheduler
	presenter ShooterPresenter

	members   []ecs.EntityID
	advancing *sched.Signal
}

// NewLaneQueue 创建行队列并标记初始位置（队首 Front，其余 Lane）
func NewLaneQueue(index int, spacing float64, members []ecs.EntityID, em *ecs.EntityManager, s *sched.Scheduler, presenter ShooterPresenter) *LaneQueue {
	q := &LaneQueue{
		index:     index,
		spacing:   spacing,
		em:        em,
		scheduler: s,
		presenter: presenter,
		members:   append([]ecs.EntityID(nil), members...),
	}
	q.relabelLocked()
	return q
}

// Index 行索引
func (q *LaneQueue) Index() int {
	return q.index
}

// Peek 返回队首射手
func (q *LaneQueue) Peek() (ecs.EntityID, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.members) == 0 {
		return ecs.InvalidEntity, false
	}
	return q.members[0], true
}

// Dequeue 移除队首并标记为 Slot，新的队首立即标记为 Front，返回新的队首
func (q *LaneQueue) Dequeue() (ecs.EntityID, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.members) == 0 {
		return ecs.InvalidEntity, false
	}
	removed := q.members[0]
	q.members = q.members[1:]
	q.setPositioning(removed, types.PositioningSlot)

	if len(q.members) == 0 {
		return ecs.InvalidEntity, false
	}
	q.relabelLocked()
	return q.members[0], true
}

// AdvanceLaneAsync 所有成员同时前进一个间距，全部到位后信号完成
//
// 前进进行中或行为空时不做任何事：前者返回进行中的信号，后者返回已完成信号。
func (q *LaneQueue) AdvanceLaneAsync() *sched.Signal {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.advancing != nil && !q.advancing.Done() {
		return q.advancing
	}
	if len(q.members) == 0 {
		return sched.Completed()
	}

	q.relabelLocked()
	moves := make([]sched.Awaitable, 0, len(q.members))
	for _, id := range q.members {
		moves = append(moves, q.presenter.Advance(id, q.spacing))
	}

	q.advancing = q.scheduler.Go(fmt.Sprintf("lane-%d-advance", q.index), sched.TaskFunc(func(ctx context.Context, now time.Time) (sched.Status, error) {
		if err := ctx.Err(); err != nil {
			return sched.Done, err
		}
		if !sched.AllDone(moves...) {
			return sched.Yield, nil
		}
		q.revealFront()
		return sched.Done, nil
	}))
	return q.advancing
}

// Advancing 是否正在前进
func (q *LaneQueue) Advancing() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.advancing != nil && !q.advancing.Done()
}

// revealFront 隐藏射手到达队首后揭示颜色
func (q *LaneQueue) revealFront() {
	front, ok := q.Peek()
	if !ok {
		return
	}
	if sc, ok := ecs.GetComponent[*components.ShooterComponent](q.em, front); ok && sc.Hidden {
		sc.Hidden = false
		log.Printf("[LaneQueue] Lane %d revealed hidden shooter %d (%s)", q.index, front, sc.Color)
	}
}

func (q *LaneQueue) relabelLocked() {
	for i, id := range q.members {
		if i == 0 {
			q.setPositioning(id, types.PositioningFront)
		} else {
			q.setPositioning(id, types.PositioningLane)
		}
	}
}

func (q *LaneQueue) setPositioning(id ecs.EntityID, p types.ShooterPositioning) {
	if sc, ok := ecs.GetComponent[*components.ShooterComponent](q.em, id); ok {
		sc.Positioning = p
	}
}

// CurrentShootersCount 行内等待的射手数
func (q *LaneQueue) CurrentShootersCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.members)
}

// NextShooterColor 队首之后下一个射手的颜色
func (q *LaneQueue) NextShooterColor() (types.TargetColor, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.members) < 2 {
		return types.ColorUnknown, false
	}
	sc, ok := ecs.GetComponent[*components.ShooterComponent](q.em, q.members[1])
	if !ok {
		return types.ColorUnknown, false
	}
	return sc.Color, true
}

// Members 行内射手快照
func (q *LaneQueue) Members() []ecs.EntityID {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]ecs.EntityID(nil), q.members...)
}
