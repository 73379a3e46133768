package systems

import (
	"math"
	"testing"
	"time"

	"github.com/gonewx/aimburst/pkg/ecs"
	"github.com/gonewx/aimburst/pkg/types"
	"github.com/gonewx/aimburst/pkg/utils"
)

// TestOutcomeWin 目标清空时胜利，失败观察被取消
func TestOutcomeWin(t *testing.T) {
	em, _, slots := newSlotFixture(2)
	s, clock := newTestScheduler()
	counter := &fakeCounter{total: 4, current: 2}
	observer := NewOutcomeObserver(s, counter, slots, time.Second, 50*time.Millisecond)

	result := observer.Observe()
	s.Drive(clock, tick, 10, nil)
	if result.Done() {
		t.Fatal("Expected level still running")
	}

	counter.current = 0
	if _, err := s.Drive(clock, tick, 10, result.Done); err != nil {
		t.Fatalf("Drive() failed: %v", err)
	}
	if !result.Done() || result.Value() != OutcomeWin {
		t.Fatalf("Expected win, got %v (done=%v)", result.Value(), result.Done())
	}

	// 失败观察已被取消，不会再产生结果
	a := newTestShooter(em, types.ColorRed, 1, 0, utils.Vec3{})
	slots.TryReserve(a)
	slots.SetActivity(a, types.ActivityInactive)
	s.Drive(clock, tick, 5, nil)
	if s.Pending() != 0 {
		t.Errorf("Expected observers to finish, %d tasks pending", s.Pending())
	}
}

// TestOutcomeLose 所有槽位持续不活跃时失败
func TestOutcomeLose(t *testing.T) {
	em, _, slots := newSlotFixture(2)
	s, clock := newTestScheduler()
	for i := 0; i < 2; i++ {
		id := newTestShooter(em, types.ColorRed, 1, 0, utils.Vec3{})
		slots.TryReserve(id)
		slots.SetActivity(id, types.ActivityInactive)
	}
	observer := NewOutcomeObserver(s, &fakeCounter{total: 3, current: 3}, slots, 200*time.Millisecond, 50*time.Millisecond)

	result := observer.Observe()
	if _, err := s.Drive(clock, 50*time.Millisecond, 20, result.Done); err != nil {
		t.Fatalf("Drive() failed: %v", err)
	}
	if result.Value() != OutcomeLose {
		t.Fatalf("Expected lose, got %v", result.Value())
	}
}

// TestOutcomeCancelledWithLevel 关卡拆除时观察器随之结束且不报错
func TestOutcomeCancelledWithLevel(t *testing.T) {
	_, _, slots := newSlotFixture(1)
	s, clock := newTestScheduler()
	observer := NewOutcomeObserver(s, &fakeCounter{total: 1, current: 1}, slots, time.Second, 50*time.Millisecond)
	result := observer.Observe()

	s.Drive(clock, tick, 3, nil)
	s.Cancel()
	if _, err := s.Drive(clock, tick, 3, nil); err != nil {
		t.Fatalf("Expected cancellation not to be a fault, got %v", err)
	}
	if result.Done() {
		t.Error("Expected no outcome after cancellation")
	}
	if s.Pending() != 0 {
		t.Errorf("Expected all tasks unwound, got %d", s.Pending())
	}
}

type recordingSink struct {
	values []float64
}

func (r *recordingSink) SetProgress(p float64) {
	r.values = append(r.values, p)
}

// TestProgressReporter 进度只在变化时推送
func TestProgressReporter(t *testing.T) {
	counter := &fakeCounter{total: 4, current: 4}
	sink := &recordingSink{}
	reporter := NewProgressReporter(counter, sink)

	reporter.Update()
	reporter.Update()
	counter.current = 3
	reporter.Update()
	counter.current = 0
	if p := reporter.Update(); p != 1 {
		t.Errorf("Expected progress 1 when cleared, got %.3f", p)
	}

	want := []float64{0, 0.25, 1}
	if len(sink.values) != len(want) {
		t.Fatalf("Expected %d pushes, got %v", len(want), sink.values)
	}
	for i := range want {
		if math.Abs(sink.values[i]-want[i]) > 1e-9 {
			t.Errorf("Push %d: expected %.3f, got %.3f", i, want[i], sink.values[i])
		}
	}

	if p := NewProgressReporter(&fakeCounter{}, nil).Update(); p != 1 {
		t.Errorf("Expected empty level progress 1, got %.3f", p)
	}
}

// TestPairingTable 测试对称配对表
func TestPairingTable(t *testing.T) {
	pairs := NewPairingTable()
	a, b, c := ecs.EntityID(1), ecs.EntityID(2), ecs.EntityID(3)

	if _, err := pairs.Pair(a, b); err != nil {
		t.Fatalf("Pair() failed: %v", err)
	}
	if f, ok := pairs.FriendOf(a); !ok || f != b {
		t.Errorf("Expected friend of a to be b, got %d", f)
	}
	if f, ok := pairs.FriendOf(b); !ok || f != a {
		t.Errorf("Expected friend of b to be a, got %d", f)
	}
	if pairs.HasFriend(c) {
		t.Error("Expected c to have no friend")
	}
	if _, err := pairs.Pair(b, c); err == nil {
		t.Error("Expected error pairing an already paired shooter")
	}
	if _, err := pairs.Pair(c, c); err == nil {
		t.Error("Expected error pairing with itself")
	}
	if pairs.Len() != 1 {
		t.Errorf("Expected 1 pair, got %d", pairs.Len())
	}
}
