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

// ClickDispatcher 点击入口：单飞门控 + 处理完成后的冷却
//
// 处理中或冷却中到达的点击直接丢弃。
type ClickDispatcher struct {
	mu        sync.Mutex
	busy      bool
	scheduler *sched.Scheduler
	em        *ecs.EntityManager
	lanes     []*LaneQueue
	slots     *SlotTable
	pairs     *PairingTable
	dispenser *Dispenser
	gate      time.Duration
}

// NewClickDispatcher 创建点击分发器
func NewClickDispatcher(s *sched.Scheduler, em *ecs.EntityManager, lanes []*LaneQueue, pairs *PairingTable, dispenser *Dispenser, gate time.Duration) (*ClickDispatcher, error) {
	if s == nil || em == nil || pairs == nil || dispenser == nil {
		return nil, fmt.Errorf("click dispatcher: %w", ErrMissingCollaborator)
	}
	return &ClickDispatcher{
		scheduler: s,
		em:        em,
		lanes:     lanes,
		slots:     dispenser.Slots(),
		pairs:     pairs,
		dispenser: dispenser,
		gate:      gate,
	}, nil
}

// Busy 是否正在处理点击或处于冷却
func (c *ClickDispatcher) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// HandleClick 处理对 lane 的点击，返回点击是否被接受（未被门控丢弃）
//
// 预约与出队在调用内同步完成；等待行前进与冷却由调度器任务完成。
func (c *ClickDispatcher) HandleClick(lane int) (bool, error) {
	if lane < 0 || lane >= len(c.lanes) {
		return false, nil
	}

	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return false, nil
	}
	c.busy = true
	c.mu.Unlock()

	follow, err := c.dispatch(c.lanes[lane])
	if err != nil {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
		return true, err
	}

	c.scheduler.Go(fmt.Sprintf("click-lane-%d", lane), c.finish(follow))
	return true, nil
}

// dispatch 执行点击的同步部分，返回需要在任务中继续的后续步骤
func (c *ClickDispatcher) dispatch(lane *LaneQueue) (func() (bool, error), error) {
	front, ok := lane.Peek()
	if !ok {
		return nil, nil
	}

	friend, paired := c.pairs.FriendOf(front)
	if !paired {
		reserved, err := c.slots.TryReserve(front)
		if err != nil || !reserved {
			return nil, err
		}
		advance := c.accept(lane)
		return waitFor(advance), nil
	}

	frontShooter, _ := ecs.GetComponent[*components.ShooterComponent](c.em, front)
	friendShooter, ok := ecs.GetComponent[*components.ShooterComponent](c.em, friend)
	if frontShooter == nil || !ok {
		return nil, nil
	}

	sameLane := frontShooter.LaneIndex == friendShooter.LaneIndex
	if !sameLane && friendShooter.Positioning != types.PositioningFront {
		log.Printf("[ClickDispatcher] Pair %d/%d rejected: friend is not at the front of lane %d", front, friend, friendShooter.LaneIndex)
		return nil, nil
	}

	if friendShooter.LaneIndex < 0 || friendShooter.LaneIndex >= len(c.lanes) {
		return nil, fmt.Errorf("friend %d on unknown lane %d", friend, friendShooter.LaneIndex)
	}

	reserved, err := c.slots.TryReservePair(front, friend)
	if err != nil || !reserved {
		return nil, err
	}

	if sameLane {
		first := c.accept(lane)
		var second *sched.Signal
		return func() (bool, error) {
			if second == nil {
				if !first.Done() {
					return false, nil
				}
				next, ok := lane.Peek()
				if !ok || next != friend {
					return false, fmt.Errorf("lane %d front %d, want friend %d: %w", lane.Index(), next, friend, ErrPairOutOfOrder)
				}
				second = c.accept(lane)
				return false, nil
			}
			return second.Done(), nil
		}, nil
	}

	other := c.lanes[friendShooter.LaneIndex]
	lane.Dequeue()
	c.dispenser.StartDispense(front)
	other.Dequeue()
	c.dispenser.StartDispense(friend)
	a := lane.AdvanceLaneAsync()
	b := other.AdvanceLaneAsync()
	return func() (bool, error) {
		return sched.AllDone(a, b), nil
	}, nil
}

// accept 出队、启动发射循环并推进该行
func (c *ClickDispatcher) accept(lane *LaneQueue) *sched.Signal {
	front, _ := lane.Peek()
	lane.Dequeue()
	c.dispenser.StartDispense(front)
	return lane.AdvanceLaneAsync()
}

func waitFor(sig *sched.Signal) func() (bool, error) {
	return func() (bool, error) {
		return sig.Done(), nil
	}
}

// finish 等待后续步骤完成，然后冷却 gate 时长再重新接受点击
func (c *ClickDispatcher) finish(follow func() (bool, error)) sched.TaskFunc {
	var cooling bool
	var until sched.Deadline

	release := func() {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
	}

	return func(ctx context.Context, now time.Time) (sched.Status, error) {
		if err := ctx.Err(); err != nil {
			release()
			return sched.Done, err
		}

		if !cooling {
			if follow != nil {
				done, err := follow()
				if err != nil {
					release()
					return sched.Done, err
				}
				if !done {
					return sched.Yield, nil
				}
			}
			cooling = true
			until = sched.After(now, c.gate)
		}

		if !until.Passed(now) {
			return sched.Yield, nil
		}
		release()
		return sched.Done, nil
	}
}
