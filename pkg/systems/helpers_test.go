package systems

import (
	"context"
	"time"

	"github.com/gonewx/aimburst/pkg/components"
	"github.com/gonewx/aimburst/pkg/ecs"
	"github.com/gonewx/aimburst/pkg/sched"
	"github.com/gonewx/aimburst/pkg/types"
	"github.com/gonewx/aimburst/pkg/utils"
)

var testEpoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestScheduler() (*sched.Scheduler, *sched.ManualClock) {
	clock := sched.NewManualClock(testEpoch)
	return sched.NewScheduler(context.Background(), clock), clock
}

// newTestTarget 创建位于 (floor, column, depth) 的目标，间距为 1
func newTestTarget(em *ecs.EntityManager, color types.TargetColor, floor, column, depth int) ecs.EntityID {
	id := em.CreateEntity()
	ecs.AddComponent(em, id, &components.TargetComponent{
		Color:  color,
		Floor:  floor,
		Column: column,
		Depth:  depth,
		Local:  utils.Vec3{X: -float64(column), Y: float64(floor), Z: -float64(depth)},
		Alive:  true,
	})
	return id
}

// newTestShooter 创建射手，默认无冷却
func newTestShooter(em *ecs.EntityManager, color types.TargetColor, ammo, lane int, pos utils.Vec3) ecs.EntityID {
	id := em.CreateEntity()
	ecs.AddComponent(em, id, &components.ShooterComponent{
		Color:     color,
		Ammo:      ammo,
		LaneIndex: lane,
	})
	ecs.AddComponent(em, id, &components.PositionComponent{Pos: pos})
	return id
}

func shooterOf(em *ecs.EntityManager, id ecs.EntityID) *components.ShooterComponent {
	sc, _ := ecs.GetComponent[*components.ShooterComponent](em, id)
	return sc
}

type shotRecord struct {
	shooter, target ecs.EntityID
}

type moveOutRecord struct {
	shooter ecs.EntityID
	slot    int
	curved  bool
}

// fakeShooters 立即完成所有动作的射手表现层，记录调用
type fakeShooters struct {
	shots    []shotRecord
	toSlot   map[ecs.EntityID]int
	moveOuts []moveOutRecord
	killed   []ecs.EntityID
	merged   map[ecs.EntityID]int
	advances map[ecs.EntityID]int

	// advanceSignals 非 nil 时 Advance 返回由测试控制的信号
	advanceSignals map[ecs.EntityID]*sched.Signal
}

func newFakeShooters() *fakeShooters {
	return &fakeShooters{
		toSlot:   make(map[ecs.EntityID]int),
		merged:   make(map[ecs.EntityID]int),
		advances: make(map[ecs.EntityID]int),
	}
}

func (f *fakeShooters) Shoot(shooter, target ecs.EntityID) *sched.Signal {
	f.shots = append(f.shots, shotRecord{shooter, target})
	return sched.Completed()
}

func (f *fakeShooters) MoveToSlot(shooter ecs.EntityID, slot int) *sched.Signal {
	f.toSlot[shooter] = slot
	return sched.Completed()
}

func (f *fakeShooters) MoveOut(shooter ecs.EntityID, slot int, curved bool) *sched.Signal {
	f.moveOuts = append(f.moveOuts, moveOutRecord{shooter, slot, curved})
	return sched.Completed()
}

func (f *fakeShooters) Kill(shooter ecs.EntityID) *sched.Signal {
	f.killed = append(f.killed, shooter)
	return sched.Completed()
}

func (f *fakeShooters) Merge(shooter ecs.EntityID, newAmmo int) *sched.Signal {
	f.merged[shooter] = newAmmo
	return sched.Completed()
}

func (f *fakeShooters) Advance(shooter ecs.EntityID, distance float64) *sched.Signal {
	f.advances[shooter]++
	if sig, ok := f.advanceSignals[shooter]; ok {
		return sig
	}
	return sched.Completed()
}

func (f *fakeShooters) movedOut(id ecs.EntityID) bool {
	for _, m := range f.moveOuts {
		if m.shooter == id {
			return true
		}
	}
	return false
}

func (f *fakeShooters) shotsBy(id ecs.EntityID) int {
	n := 0
	for _, s := range f.shots {
		if s.shooter == id {
			n++
		}
	}
	return n
}

// fakeTargets 记录目标的销毁与闪避
type fakeTargets struct {
	killed []ecs.EntityID
	dodged []ecs.EntityID
}

func (f *fakeTargets) Kill(target ecs.EntityID) *sched.Signal {
	f.killed = append(f.killed, target)
	return sched.Completed()
}

func (f *fakeTargets) DodgeBullet(target ecs.EntityID, dir utils.Vec3) *sched.Signal {
	f.dodged = append(f.dodged, target)
	return sched.Completed()
}

// fakeMerger 合并动画：默认立即以中间成员为存活者
type fakeMerger struct {
	calls   []MergeTriple
	pending *sched.Future[ecs.EntityID]
}

func (f *fakeMerger) MergeShooters(triple MergeTriple) *sched.Future[ecs.EntityID] {
	f.calls = append(f.calls, append(MergeTriple(nil), triple...))
	if f.pending != nil {
		return f.pending
	}
	return sched.Resolved(triple[1])
}

// fakeLocator 按脚本返回目标
type fakeLocator struct {
	next func() (ecs.EntityID, bool)
}

func (f *fakeLocator) Locate(origin utils.Vec3, color types.TargetColor) (ecs.EntityID, bool) {
	if f.next == nil {
		return ecs.InvalidEntity, false
	}
	return f.next()
}

// freshTargets 每次调用都创建一个新的存活目标
func freshTargets(em *ecs.EntityManager, color types.TargetColor) *fakeLocator {
	return &fakeLocator{next: func() (ecs.EntityID, bool) {
		return newTestTarget(em, color, 0, 0, 0), true
	}}
}

// fakeCounter 固定的目标计数
type fakeCounter struct {
	total, current int
}

func (f *fakeCounter) TotalTargetsCount() int   { return f.total }
func (f *fakeCounter) CurrentTargetsCount() int { return f.current }

// testRig 组装好的槽位/发射环境
type testRig struct {
	em        *ecs.EntityManager
	scheduler *sched.Scheduler
	clock     *sched.ManualClock
	pairs     *PairingTable
	slots     *SlotTable
	shooters  *fakeShooters
	merger    *fakeMerger
	locator   *fakeLocator
	dispenser *Dispenser
}

func newTestRig(slotCount int, releaseDelay time.Duration) *testRig {
	em := ecs.NewEntityManager()
	s, clock := newTestScheduler()
	pairs := NewPairingTable()
	slots := NewSlotTable(em, pairs, slotCount)
	rig := &testRig{
		em:        em,
		scheduler: s,
		clock:     clock,
		pairs:     pairs,
		slots:     slots,
		shooters:  newFakeShooters(),
		merger:    &fakeMerger{},
		locator:   &fakeLocator{},
	}

	d, err := NewDispenser(DispenserConfig{
		Scheduler:    s,
		Entities:     em,
		Slots:        slots,
		Pairs:        pairs,
		Locator:      rig.locator,
		Shooters:     rig.shooters,
		Merger:       rig.merger,
		ReleaseDelay: releaseDelay,
	})
	if err != nil {
		panic(err)
	}
	rig.dispenser = d
	return rig
}

func targetComponent(em *ecs.EntityManager, id ecs.EntityID) (*components.TargetComponent, bool) {
	return ecs.GetComponent[*components.TargetComponent](em, id)
}
