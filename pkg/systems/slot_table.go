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

// Slot 一个射击槽位
type Slot struct {
	Index      int
	Occupied   bool
	Occupant   ecs.EntityID
	Activity   types.SlotActivity
	OnPosition bool // 射手已到达槽位
	ForceStop  bool // 合并期间强制停止发射循环
}

// MergeTriple 同色的三个可合并射手，按槽位扫描顺序排列
type MergeTriple []ecs.EntityID

// SlotTable 固定容量的射击槽位表
type SlotTable struct {
	mu    sync.Mutex
	em    *ecs.EntityManager
	pairs *PairingTable
	slots []Slot
	index map[ecs.EntityID]int // 射手 -> 槽位
}

// NewSlotTable 创建 size 个槽位的表，容量在关卡内固定
func NewSlotTable(em *ecs.EntityManager, pairs *PairingTable, size int) *SlotTable {
	slots := make([]Slot, size)
	for i := range slots {
		slots[i].Index = i
	}
	return &SlotTable{
		em:    em,
		pairs: pairs,
		slots: slots,
		index: make(map[ecs.EntityID]int),
	}
}

// TotalSlots 槽位总数
func (t *SlotTable) TotalSlots() int {
	return len(t.slots)
}

// TryReserve 为射手预约索引最小的空槽位，表满时返回 false 且不做任何修改
func (t *SlotTable) TryReserve(shooter ecs.EntityID) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.index[shooter]; ok {
		return false, fmt.Errorf("reserve shooter %d: %w", shooter, ErrAlreadyReserved)
	}

	for i := range t.slots {
		if t.slots[i].Occupied {
			continue
		}
		t.installLocked(i, shooter)
		log.Printf("[SlotTable] Reserved slot %d for shooter %d", i, shooter)
		return true, nil
	}
	return false, nil
}

// TryReservePair 为一对伙伴预约相邻的两个空槽位 (i, i+1)，不跨越末尾
// 找不到时返回 false 且不做任何修改
func (t *SlotTable) TryReservePair(shooter, friend ecs.EntityID) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, id := range []ecs.EntityID{shooter, friend} {
		if _, ok := t.index[id]; ok {
			return false, fmt.Errorf("reserve pair shooter %d: %w", id, ErrAlreadyReserved)
		}
	}

	for i := 0; i+1 < len(t.slots); i++ {
		if t.slots[i].Occupied || t.slots[i+1].Occupied {
			continue
		}
		t.installLocked(i, shooter)
		t.installLocked(i+1, friend)
		log.Printf("[SlotTable] Reserved slots %d-%d for pair %d/%d", i, i+1, shooter, friend)
		return true, nil
	}
	return false, nil
}

func (t *SlotTable) installLocked(i int, shooter ecs.EntityID) {
	t.slots[i] = Slot{
		Index:    i,
		Occupied: true,
		Occupant: shooter,
		Activity: types.ActivityUnknown,
	}
	t.index[shooter] = i
}

// ReleaseSlot 释放射手占用的槽位，未持有槽位的射手忽略
func (t *SlotTable) ReleaseSlot(shooters ...ecs.EntityID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, id := range shooters {
		i, ok := t.index[id]
		if !ok {
			continue
		}
		delete(t.index, id)
		t.slots[i] = Slot{Index: i}
	}
}

// SlotOf 射手所在槽位
func (t *SlotTable) SlotOf(shooter ecs.EntityID) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.index[shooter]
	return i, ok
}

// SetOnPosition 标记射手已到达槽位
func (t *SlotTable) SetOnPosition(shooter ecs.EntityID, on bool) {
	t.update(shooter, func(s *Slot) { s.OnPosition = on })
}

// SetActivity 更新射手槽位的活跃度
func (t *SlotTable) SetActivity(shooter ecs.EntityID, activity types.SlotActivity) {
	t.update(shooter, func(s *Slot) { s.Activity = activity })
}

// SetForceStop 设置强制停止标记
func (t *SlotTable) SetForceStop(shooter ecs.EntityID, stop bool) {
	t.update(shooter, func(s *Slot) { s.ForceStop = stop })
}

// ForceStopped 射手是否被强制停止；已不在表中的射手视为已停止
func (t *SlotTable) ForceStopped(shooter ecs.EntityID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.index[shooter]
	if !ok {
		return true
	}
	return t.slots[i].ForceStop
}

func (t *SlotTable) update(shooter ecs.EntityID, fn func(*Slot)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i, ok := t.index[shooter]; ok {
		fn(&t.slots[i])
	}
}

// AllInactive 所有槽位都被占用且都明确处于 inactive
// 空槽位与 unknown 都不算 inactive
func (t *SlotTable) AllInactive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, s := range t.slots {
		if !s.Occupied || s.Activity != types.ActivityInactive {
			return false
		}
	}
	return true
}

// OccupiedCount 已占用槽位数
func (t *SlotTable) OccupiedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.index)
}

// Snapshot 返回槽位快照
func (t *SlotTable) Snapshot() []Slot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Slot(nil), t.slots...)
}

// ExitCurved 射手离开 slot 时是否需要弧线路径：
// 以中间槽位 ceil(n/2)-1 为界，朝较近的一侧退出，途经的槽位有人占用时走弧线
func (t *SlotTable) ExitCurved(slot int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	middle := (len(t.slots)+1)/2 - 1
	start, end := 0, middle
	switch {
	case slot > middle:
		start, end = slot+1, len(t.slots)
	case slot < middle:
		start, end = 0, slot
	}
	for i := start; i < end; i++ {
		if t.slots[i].Occupied {
			return true
		}
	}
	return false
}

// FindMergeTriple 从左到右扫描槽位，按颜色分桶，返回第一个凑满 3 个可合并射手的颜色组
//
// 可合并条件：没有伙伴、已到位、未被强制停止，且（剩余弹药 >= 2 或当前明确 inactive）
func (t *SlotTable) FindMergeTriple() (MergeTriple, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	buckets := make(map[types.TargetColor]MergeTriple)
	for _, s := range t.slots {
		if !s.Occupied || !s.OnPosition || s.ForceStop {
			continue
		}
		if t.pairs != nil && t.pairs.HasFriend(s.Occupant) {
			continue
		}
		shooter, ok := ecs.GetComponent[*components.ShooterComponent](t.em, s.Occupant)
		if !ok {
			continue
		}
		if shooter.Ammo < 2 && s.Activity != types.ActivityInactive {
			continue
		}

		bucket := append(buckets[shooter.Color], s.Occupant)
		if len(bucket) == 3 {
			return bucket, true
		}
		buckets[shooter.Color] = bucket
	}
	return nil, false
}

// beginMerge 原子地校验并强制停止合并组的三个成员
func (t *SlotTable) beginMerge(triple MergeTriple) error {
	if len(triple) != 3 {
		return fmt.Errorf("merge of %d shooters: %w", len(triple), ErrInvalidMergeTriple)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, id := range triple {
		if _, ok := t.index[id]; !ok {
			return fmt.Errorf("merge shooter %d has no slot: %w", id, ErrInvalidMergeTriple)
		}
	}
	for _, id := range triple {
		t.slots[t.index[id]].ForceStop = true
	}
	return nil
}

// ObserveSlotsInactive 启动失败判定任务：每 poll 采样一次，
// 所有槽位 inactive 时累计 poll，否则清零；累计达到 confirm 时信号完成
func (t *SlotTable) ObserveSlotsInactive(ctx context.Context, s *sched.Scheduler, confirm, poll time.Duration) *sched.Signal {
	var inactive time.Duration
	var next time.Time

	return s.GoWithContext(ctx, "slots-inactive", sched.TaskFunc(func(ctx context.Context, now time.Time) (sched.Status, error) {
		if err := ctx.Err(); err != nil {
			return sched.Done, err
		}
		if now.Before(next) {
			return sched.Yield, nil
		}
		next = now.Add(poll)

		if !t.AllInactive() {
			inactive = 0
			return sched.Yield, nil
		}
		inactive += poll
		if inactive >= confirm {
			log.Printf("[SlotTable] All %d slots inactive for %v", len(t.slots), inactive)
			return sched.Done, nil
		}
		return sched.Yield, nil
	}))
}
