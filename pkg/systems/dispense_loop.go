package systems

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gonewx/aimburst/pkg/components"
	"github.com/gonewx/aimburst/pkg/ecs"
	"github.com/gonewx/aimburst/pkg/sched"
	"github.com/gonewx/aimburst/pkg/types"
)

// Dispenser 接收进入槽位的射手，为每个射手运行一个弹药发射循环，
// 并在射手到位后检测、执行三合一合并
type Dispenser struct {
	scheduler    *sched.Scheduler
	em           *ecs.EntityManager
	slots        *SlotTable
	pairs        *PairingTable
	locator      TargetLocator
	shooters     ShooterPresenter
	merger       MergeAnimator
	releaseDelay time.Duration
}

// DispenserConfig Dispenser 的依赖
type DispenserConfig struct {
	Scheduler    *sched.Scheduler
	Entities     *ecs.EntityManager
	Slots        *SlotTable
	Pairs        *PairingTable
	Locator      TargetLocator
	Shooters     ShooterPresenter
	Merger       MergeAnimator
	ReleaseDelay time.Duration
}

// NewDispenser 创建 Dispenser，缺少任何依赖时返回 ErrMissingCollaborator
func NewDispenser(cfg DispenserConfig) (*Dispenser, error) {
	switch {
	case cfg.Scheduler == nil:
		return nil, fmt.Errorf("dispenser scheduler: %w", ErrMissingCollaborator)
	case cfg.Entities == nil:
		return nil, fmt.Errorf("dispenser entity manager: %w", ErrMissingCollaborator)
	case cfg.Slots == nil:
		return nil, fmt.Errorf("dispenser slot table: %w", ErrMissingCollaborator)
	case cfg.Pairs == nil:
		return nil, fmt.Errorf("dispenser pairing table: %w", ErrMissingCollaborator)
	case cfg.Locator == nil:
		return nil, fmt.Errorf("dispenser target locator: %w", ErrMissingCollaborator)
	case cfg.Shooters == nil:
		return nil, fmt.Errorf("dispenser shooter presenter: %w", ErrMissingCollaborator)
	case cfg.Merger == nil:
		return nil, fmt.Errorf("dispenser merge animator: %w", ErrMissingCollaborator)
	}

	return &Dispenser{
		scheduler:    cfg.Scheduler,
		em:           cfg.Entities,
		slots:        cfg.Slots,
		pairs:        cfg.Pairs,
		locator:      cfg.Locator,
		shooters:     cfg.Shooters,
		merger:       cfg.Merger,
		releaseDelay: cfg.ReleaseDelay,
	}, nil
}

// Slots 返回槽位表
func (d *Dispenser) Slots() *SlotTable {
	return d.slots
}

type dispensePhase int

const (
	phaseStart dispensePhase = iota
	phaseMoving
	phaseUnload
	phaseAwaitFriend
	phaseReleaseDelay
)

// dispenseLoop 单个射手的弹药发射循环
type dispenseLoop struct {
	d       *Dispenser
	shooter ecs.EntityID
	phase   dispensePhase

	moving       *sched.Signal
	releaseAt    sched.Deadline
	received     map[ecs.EntityID]struct{}
	receivedList []ecs.EntityID
}

// StartDispense 为已预约槽位的射手启动发射循环：
// 移动到槽位 -> 合并检测 -> 发射直到弹药耗尽 -> 等待伙伴耗尽 -> 延迟 -> 退场
func (d *Dispenser) StartDispense(shooter ecs.EntityID) *sched.Signal {
	return d.start(shooter, phaseStart)
}

func (d *Dispenser) start(shooter ecs.EntityID, phase dispensePhase) *sched.Signal {
	loop := &dispenseLoop{
		d:        d,
		shooter:  shooter,
		phase:    phase,
		received: make(map[ecs.EntityID]struct{}),
	}
	return d.scheduler.Go(fmt.Sprintf("dispense-%d", shooter), loop)
}

// Step 推进发射循环
func (l *dispenseLoop) Step(ctx context.Context, now time.Time) (sched.Status, error) {
	if err := ctx.Err(); err != nil {
		return sched.Done, err
	}

	d := l.d
	switch l.phase {
	case phaseStart:
		slot, ok := d.slots.SlotOf(l.shooter)
		if !ok {
			return sched.Done, nil
		}
		l.moving = d.shooters.MoveToSlot(l.shooter, slot)
		l.phase = phaseMoving
		return sched.Yield, nil

	case phaseMoving:
		if !l.moving.Done() {
			return sched.Yield, nil
		}
		d.slots.SetOnPosition(l.shooter, true)
		if triple, ok := d.slots.FindMergeTriple(); ok {
			if _, err := d.Merge(triple); err != nil {
				return sched.Done, err
			}
		}
		l.phase = phaseUnload
		return sched.Yield, nil

	case phaseUnload:
		return l.unload(now)

	case phaseAwaitFriend:
		// 强制停止结束等待，跳过释放延迟直接退场
		if d.slots.ForceStopped(l.shooter) {
			l.moveOut()
			return sched.Done, nil
		}
		if friend, ok := d.pairs.FriendOf(l.shooter); ok {
			if fc, ok := ecs.GetComponent[*components.ShooterComponent](d.em, friend); ok && fc.HasAmmo() {
				return sched.Yield, nil
			}
		}
		l.releaseAt = sched.After(now, d.releaseDelay)
		l.phase = phaseReleaseDelay
		return sched.Yield, nil

	case phaseReleaseDelay:
		if !l.releaseAt.Passed(now) && !d.slots.ForceStopped(l.shooter) {
			return sched.Yield, nil
		}
		l.moveOut()
		return sched.Done, nil
	}

	return sched.Done, nil
}

func (l *dispenseLoop) unload(now time.Time) (sched.Status, error) {
	d := l.d
	if d.slots.ForceStopped(l.shooter) {
		return sched.Done, nil
	}

	shooter, ok := ecs.GetComponent[*components.ShooterComponent](d.em, l.shooter)
	if !ok {
		return sched.Done, nil
	}
	if !shooter.HasAmmo() {
		l.phase = phaseAwaitFriend
		return sched.Yield, nil
	}
	if shooter.OnCooldown(now) {
		return sched.Yield, nil
	}

	origin, _ := ecs.GetComponent[*components.PositionComponent](d.em, l.shooter)
	if origin == nil {
		origin = &components.PositionComponent{}
	}

	target, found := d.locator.Locate(origin.Pos, shooter.Color)
	if !found {
		d.slots.SetActivity(l.shooter, types.ActivityInactive)
		return sched.Yield, nil
	}

	if _, dup := l.received[target]; dup && targetAlive(d.em, target) {
		return sched.Done, fmt.Errorf("shooter %d received target %d again after %d targets: %w",
			l.shooter, target, len(l.receivedList), ErrDuplicateTarget)
	}
	l.received[target] = struct{}{}
	l.receivedList = append(l.receivedList, target)

	shooter.Ammo--
	shooter.CooldownUntil = now.Add(shooter.FireInterval)
	d.slots.SetActivity(l.shooter, types.ActivityActive)
	d.shooters.Shoot(l.shooter, target)

	return sched.Yield, nil
}

func (l *dispenseLoop) moveOut() {
	d := l.d
	slot, ok := d.slots.SlotOf(l.shooter)
	if !ok {
		return
	}
	d.slots.ReleaseSlot(l.shooter)
	curved := d.slots.ExitCurved(slot)
	log.Printf("[Dispenser] Shooter %d leaving slot %d (curved=%v)", l.shooter, slot, curved)
	d.shooters.MoveOut(l.shooter, slot, curved)
}

func targetAlive(em *ecs.EntityManager, id ecs.EntityID) bool {
	target, ok := ecs.GetComponent[*components.TargetComponent](em, id)
	return ok && target.Alive
}

// mergeJob 合并任务：等待合并动画给出存活者后结算弹药并释放另外两个槽位
type mergeJob struct {
	d      *Dispenser
	triple MergeTriple
	anim   *sched.Future[ecs.EntityID]
}

// Merge 强制停止合并组的三个成员并启动合并任务
//
// 合并完成后存活者获得三者剩余弹药之和，另外两个槽位被释放，
// 存活者清除强制停止并从发射阶段继续新的发射循环。
func (d *Dispenser) Merge(triple MergeTriple) (*sched.Signal, error) {
	if err := d.slots.beginMerge(triple); err != nil {
		return nil, err
	}
	log.Printf("[Dispenser] Merging shooters %v", []ecs.EntityID(triple))

	job := &mergeJob{
		d:      d,
		triple: append(MergeTriple(nil), triple...),
		anim:   d.merger.MergeShooters(triple),
	}
	return d.scheduler.Go(fmt.Sprintf("merge-%d", triple[0]), job), nil
}

// Step 推进合并任务
func (j *mergeJob) Step(ctx context.Context, now time.Time) (sched.Status, error) {
	if err := ctx.Err(); err != nil {
		return sched.Done, err
	}
	if !j.anim.Done() {
		return sched.Yield, nil
	}
	if err := j.anim.Err(); err != nil {
		return sched.Done, fmt.Errorf("merge animation: %w", err)
	}

	d := j.d
	survivor := j.anim.Value()
	total := 0
	found := false
	losers := make([]ecs.EntityID, 0, 2)
	for _, id := range j.triple {
		if sc, ok := ecs.GetComponent[*components.ShooterComponent](d.em, id); ok {
			total += sc.Ammo
		}
		if id == survivor {
			found = true
			continue
		}
		losers = append(losers, id)
	}
	if !found {
		return sched.Done, fmt.Errorf("survivor %d not in triple %v: %w", survivor, []ecs.EntityID(j.triple), ErrInvalidMergeTriple)
	}

	for _, id := range losers {
		if sc, ok := ecs.GetComponent[*components.ShooterComponent](d.em, id); ok {
			sc.Ammo = 0
		}
	}
	sc, ok := ecs.GetComponent[*components.ShooterComponent](d.em, survivor)
	if !ok {
		return sched.Done, fmt.Errorf("merge survivor %d: %w", survivor, ErrInvalidMergeTriple)
	}
	sc.Ammo = total
	d.shooters.Merge(survivor, total)

	d.slots.ReleaseSlot(losers...)
	for _, id := range losers {
		d.shooters.Kill(id)
	}
	d.slots.SetForceStop(survivor, false)
	log.Printf("[Dispenser] Merge complete: shooter %d now has %d ammo", survivor, total)

	d.start(survivor, phaseUnload)
	return sched.Done, nil
}
