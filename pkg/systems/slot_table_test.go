package systems

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/gonewx/aimburst/pkg/ecs"
	"github.com/gonewx/aimburst/pkg/types"
	"github.com/gonewx/aimburst/pkg/utils"
)

func newSlotFixture(size int) (*ecs.EntityManager, *PairingTable, *SlotTable) {
	em := ecs.NewEntityManager()
	pairs := NewPairingTable()
	return em, pairs, NewSlotTable(em, pairs, size)
}

// TestTryReserveCapacity 4 个槽位依次预约成功，第 5 次失败且不修改表
func TestTryReserveCapacity(t *testing.T) {
	em, _, slots := newSlotFixture(4)

	for i := 0; i < 4; i++ {
		id := newTestShooter(em, types.ColorRed, 1, 0, utils.Vec3{})
		ok, err := slots.TryReserve(id)
		if err != nil || !ok {
			t.Fatalf("Reserve %d: expected success, got ok=%v err=%v", i, ok, err)
		}
		if slot, _ := slots.SlotOf(id); slot != i {
			t.Errorf("Expected slot %d, got %d", i, slot)
		}
	}

	before := slots.Snapshot()
	extra := newTestShooter(em, types.ColorRed, 1, 0, utils.Vec3{})
	ok, err := slots.TryReserve(extra)
	if err != nil || ok {
		t.Fatalf("Expected 5th reserve to fail cleanly, got ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(before, slots.Snapshot()) {
		t.Error("Expected table unchanged after failed reserve")
	}
	if slots.OccupiedCount() > slots.TotalSlots() {
		t.Errorf("Occupied %d exceeds capacity %d", slots.OccupiedCount(), slots.TotalSlots())
	}
}

// TestTryReserveAlreadyReserved 重复预约是契约错误
func TestTryReserveAlreadyReserved(t *testing.T) {
	em, _, slots := newSlotFixture(3)
	a := newTestShooter(em, types.ColorRed, 1, 0, utils.Vec3{})
	b := newTestShooter(em, types.ColorRed, 1, 0, utils.Vec3{})

	if ok, _ := slots.TryReserve(a); !ok {
		t.Fatal("Expected first reserve to succeed")
	}
	if _, err := slots.TryReserve(a); !errors.Is(err, ErrAlreadyReserved) {
		t.Errorf("Expected ErrAlreadyReserved, got %v", err)
	}
	if _, err := slots.TryReservePair(b, a); !errors.Is(err, ErrAlreadyReserved) {
		t.Errorf("Expected ErrAlreadyReserved for pair, got %v", err)
	}
	if _, ok := slots.SlotOf(b); ok {
		t.Error("Expected failed pair reserve to leave b unreserved")
	}
}

// TestTryReservePairAdjacent 配对只占用相邻的两个空槽位
func TestTryReservePairAdjacent(t *testing.T) {
	em, _, slots := newSlotFixture(4)
	ids := make([]ecs.EntityID, 6)
	for i := range ids {
		ids[i] = newTestShooter(em, types.ColorRed, 1, 0, utils.Vec3{})
	}

	// 布局: [空, X, 空, 空]
	slots.TryReserve(ids[0])
	slots.TryReserve(ids[1])
	slots.ReleaseSlot(ids[0])

	ok, err := slots.TryReservePair(ids[2], ids[3])
	if err != nil || !ok {
		t.Fatalf("Expected pair reserve to succeed, got ok=%v err=%v", ok, err)
	}
	if s, _ := slots.SlotOf(ids[2]); s != 2 {
		t.Errorf("Expected pair to start at slot 2, got %d", s)
	}
	if s, _ := slots.SlotOf(ids[3]); s != 3 {
		t.Errorf("Expected friend at slot 3, got %d", s)
	}

	// 只剩 slot 0，不能拆开放置
	before := slots.Snapshot()
	ok, err = slots.TryReservePair(ids[4], ids[5])
	if err != nil || ok {
		t.Fatalf("Expected pair reserve to fail, got ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(before, slots.Snapshot()) {
		t.Error("Expected table unchanged after failed pair reserve")
	}
}

// TestReleaseSlot 释放不存在的射手是空操作
func TestReleaseSlot(t *testing.T) {
	em, _, slots := newSlotFixture(2)
	a := newTestShooter(em, types.ColorRed, 1, 0, utils.Vec3{})
	slots.TryReserve(a)

	slots.ReleaseSlot(ecs.EntityID(999))
	if slots.OccupiedCount() != 1 {
		t.Fatalf("Expected 1 occupied slot, got %d", slots.OccupiedCount())
	}
	slots.ReleaseSlot(a)
	if slots.OccupiedCount() != 0 {
		t.Errorf("Expected empty table, got %d", slots.OccupiedCount())
	}
	if !slots.ForceStopped(a) {
		t.Error("Expected released shooter to report force stopped")
	}
}

// placeOnPosition 预约并标记到位
func placeOnPosition(t *testing.T, slots *SlotTable, ids ...ecs.EntityID) {
	t.Helper()
	for _, id := range ids {
		if ok, err := slots.TryReserve(id); !ok || err != nil {
			t.Fatalf("Reserve %d failed: ok=%v err=%v", id, ok, err)
		}
		slots.SetOnPosition(id, true)
	}
}

// TestFindMergeTripleExcludesPaired 有伙伴的射手不参与合并，无论扫描顺序
func TestFindMergeTripleExcludesPaired(t *testing.T) {
	em, pairs, slots := newSlotFixture(6)
	d := newTestShooter(em, types.ColorRed, 3, 0, utils.Vec3{})
	friend := newTestShooter(em, types.ColorBlue, 3, 1, utils.Vec3{})
	a := newTestShooter(em, types.ColorRed, 3, 0, utils.Vec3{})
	b := newTestShooter(em, types.ColorRed, 3, 0, utils.Vec3{})
	c := newTestShooter(em, types.ColorRed, 3, 0, utils.Vec3{})
	if _, err := pairs.Pair(d, friend); err != nil {
		t.Fatalf("Pair() failed: %v", err)
	}

	placeOnPosition(t, slots, d, a, b, c)

	triple, ok := slots.FindMergeTriple()
	if !ok {
		t.Fatal("Expected a merge triple")
	}
	want := MergeTriple{a, b, c}
	if !reflect.DeepEqual(triple, want) {
		t.Errorf("Expected %v, got %v", want, triple)
	}
}

// TestFindMergeTripleEligibility 测试合并资格
func TestFindMergeTripleEligibility(t *testing.T) {
	tests := []struct {
		name     string
		ammo     int
		activity types.SlotActivity
		onPos    bool
		stop     bool
		want     bool
	}{
		{"弹药充足", 2, types.ActivityActive, true, false, true},
		{"弹药不足但活跃", 1, types.ActivityActive, true, false, false},
		{"弹药不足且不活跃", 1, types.ActivityInactive, true, false, true},
		{"弹药不足且未知", 1, types.ActivityUnknown, true, false, false},
		{"未到位", 5, types.ActivityActive, false, false, false},
		{"强制停止", 5, types.ActivityActive, true, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			em, _, slots := newSlotFixture(3)
			probe := newTestShooter(em, types.ColorGreen, tt.ammo, 0, utils.Vec3{})
			x := newTestShooter(em, types.ColorGreen, 4, 0, utils.Vec3{})
			y := newTestShooter(em, types.ColorGreen, 4, 0, utils.Vec3{})
			placeOnPosition(t, slots, probe, x, y)
			slots.SetActivity(probe, tt.activity)
			slots.SetOnPosition(probe, tt.onPos)
			slots.SetForceStop(probe, tt.stop)

			_, ok := slots.FindMergeTriple()
			if ok != tt.want {
				t.Errorf("Expected merge found=%v, got %v", tt.want, ok)
			}
		})
	}
}

// TestFindMergeTripleFirstBucket 返回第一个凑满 3 个的颜色，按槽位顺序
func TestFindMergeTripleFirstBucket(t *testing.T) {
	em, _, slots := newSlotFixture(6)
	order := []types.TargetColor{types.ColorBlue, types.ColorRed, types.ColorRed, types.ColorBlue, types.ColorRed, types.ColorBlue}
	ids := make([]ecs.EntityID, len(order))
	for i, c := range order {
		ids[i] = newTestShooter(em, c, 3, 0, utils.Vec3{})
	}
	placeOnPosition(t, slots, ids...)

	triple, ok := slots.FindMergeTriple()
	if !ok {
		t.Fatal("Expected a merge triple")
	}
	want := MergeTriple{ids[1], ids[2], ids[4]}
	if !reflect.DeepEqual(triple, want) {
		t.Errorf("Expected red triple %v, got %v", want, triple)
	}
}

// TestAllInactive 空槽位与 unknown 都不算 inactive
func TestAllInactive(t *testing.T) {
	em, _, slots := newSlotFixture(2)
	a := newTestShooter(em, types.ColorRed, 1, 0, utils.Vec3{})
	b := newTestShooter(em, types.ColorRed, 1, 0, utils.Vec3{})

	if slots.AllInactive() {
		t.Error("Expected empty table not to be inactive")
	}
	slots.TryReserve(a)
	slots.SetActivity(a, types.ActivityInactive)
	if slots.AllInactive() {
		t.Error("Expected table with an empty slot not to be inactive")
	}
	slots.TryReserve(b)
	if slots.AllInactive() {
		t.Error("Expected unknown slot not to count as inactive")
	}
	slots.SetActivity(b, types.ActivityInactive)
	if !slots.AllInactive() {
		t.Error("Expected all inactive")
	}
}

// TestExitCurved 测试退场路径是否需要绕行
func TestExitCurved(t *testing.T) {
	tests := []struct {
		name     string
		occupied []int
		slot     int
		want     bool
	}{
		{"左侧无人", []int{3}, 1, false},
		{"左侧有人", []int{0}, 1, true},
		{"右侧有人", []int{4}, 3, true},
		{"右侧无人", []int{0, 1}, 3, false},
		{"中间槽位看左侧", []int{1}, 2, true},
		{"中间槽位右侧有人不影响", []int{4}, 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			em, _, slots := newSlotFixture(5)
			for i := 0; i < 5; i++ {
				slots.TryReserve(newTestShooter(em, types.ColorRed, 1, 0, utils.Vec3{}))
			}
			occupied := make(map[int]bool)
			for _, i := range tt.occupied {
				occupied[i] = true
			}
			for _, s := range slots.Snapshot() {
				if !occupied[s.Index] {
					slots.ReleaseSlot(s.Occupant)
				}
			}

			if got := slots.ExitCurved(tt.slot); got != tt.want {
				t.Errorf("ExitCurved(%d) = %v, expected %v", tt.slot, got, tt.want)
			}
		})
	}
}

// TestObserveSlotsInactive 4 个槽位连续 20 次 50ms 采样都 inactive 后判定
func TestObserveSlotsInactive(t *testing.T) {
	em, _, slots := newSlotFixture(4)
	s, clock := newTestScheduler()
	ids := make([]ecs.EntityID, 4)
	for i := range ids {
		ids[i] = newTestShooter(em, types.ColorRed, 1, 0, utils.Vec3{})
		slots.TryReserve(ids[i])
		slots.SetActivity(ids[i], types.ActivityInactive)
	}

	sig := slots.ObserveSlotsInactive(context.Background(), s, time.Second, 50*time.Millisecond)
	ticks, err := s.Drive(clock, 50*time.Millisecond, 100, sig.Done)
	if err != nil {
		t.Fatalf("Drive() failed: %v", err)
	}
	if ticks != 20 {
		t.Errorf("Expected resolution after 20 polls, got %d", ticks)
	}
}

// TestObserveSlotsInactiveReset 第 15 次采样时槽位 2 变为 active，累计时间清零
func TestObserveSlotsInactiveReset(t *testing.T) {
	em, _, slots := newSlotFixture(4)
	s, clock := newTestScheduler()
	ids := make([]ecs.EntityID, 4)
	for i := range ids {
		ids[i] = newTestShooter(em, types.ColorRed, 1, 0, utils.Vec3{})
		slots.TryReserve(ids[i])
		slots.SetActivity(ids[i], types.ActivityInactive)
	}

	step := 50 * time.Millisecond
	sig := slots.ObserveSlotsInactive(context.Background(), s, time.Second, step)
	if _, err := s.Drive(clock, step, 14, nil); err != nil {
		t.Fatalf("Drive() failed: %v", err)
	}
	if sig.Done() {
		t.Fatal("Expected observer still waiting after 14 polls")
	}

	slots.SetActivity(ids[2], types.ActivityActive)
	if _, err := s.Drive(clock, step, 1, nil); err != nil {
		t.Fatalf("Drive() failed: %v", err)
	}
	resetAt := clock.Now()
	slots.SetActivity(ids[2], types.ActivityInactive)

	if _, err := s.Drive(clock, step, 100, sig.Done); err != nil {
		t.Fatalf("Drive() failed: %v", err)
	}
	if !sig.Done() {
		t.Fatal("Expected observer to resolve")
	}
	if elapsed := clock.Now().Sub(resetAt); elapsed < 950*time.Millisecond {
		t.Errorf("Expected at least 950ms after reset, got %v", elapsed)
	}
}
