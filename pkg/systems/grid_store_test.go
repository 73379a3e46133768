package systems

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/gonewx/aimburst/pkg/ecs"
	"github.com/gonewx/aimburst/pkg/types"
	"github.com/gonewx/aimburst/pkg/utils"
)

type gridFixture struct {
	em      *ecs.EntityManager
	grid    *TargetGrid
	shifter *ColumnShifter
	targets *fakeTargets
}

func newGridFixture(t *testing.T, layout GridLayout, depthGate float64) *gridFixture {
	t.Helper()
	em := ecs.NewEntityManager()
	return newGridFixtureWith(t, em, layout, depthGate)
}

func newGridFixtureWith(t *testing.T, em *ecs.EntityManager, layout GridLayout, depthGate float64) *gridFixture {
	t.Helper()
	s, _ := newTestScheduler()
	shifter := NewColumnShifter(s, 1, 0, 0, utils.EaseLinear)
	targets := &fakeTargets{}
	grid, err := NewTargetGrid(em, layout, depthGate, shifter, targets)
	if err != nil {
		t.Fatalf("NewTargetGrid() failed: %v", err)
	}
	return &gridFixture{em: em, grid: grid, shifter: shifter, targets: targets}
}

func occupiedCells(grid *TargetGrid) int {
	n := 0
	for _, cols := range grid.Cells() {
		for _, queue := range cols {
			for _, cell := range queue {
				if cell.Occupied {
					n++
				}
			}
		}
	}
	return n
}

// TestLocateTwoColumnScenario 1 层 2 列：column0=[Red,Red]，column1=[Blue]
func TestLocateTwoColumnScenario(t *testing.T) {
	em := ecs.NewEntityManager()
	red0 := newTestTarget(em, types.ColorRed, 0, 0, 0)
	red1 := newTestTarget(em, types.ColorRed, 0, 0, 1)
	blue := newTestTarget(em, types.ColorBlue, 0, 1, 0)
	fx := newGridFixtureWith(t, em, GridLayout{0: {{red0, red1}, {blue}}}, 7)

	before := fx.grid.CurrentTargetsCount()
	if before != 3 {
		t.Fatalf("Expected 3 targets, got %d", before)
	}

	got, ok := fx.grid.Locate(utils.Vec3{Z: 6}, types.ColorRed)
	if !ok || got != red0 {
		t.Fatalf("Expected red front %d, got %d (ok=%v)", red0, got, ok)
	}

	if err := fx.grid.ReportHit(got, got, utils.Forward); err != nil {
		t.Fatalf("ReportHit() failed: %v", err)
	}

	if after := fx.grid.CurrentTargetsCount(); after != before-1 {
		t.Errorf("Expected count %d, got %d", before-1, after)
	}
	front := fx.grid.Cells()[0][0][0]
	if !front.Occupied || front.Target != red1 {
		t.Errorf("Expected column 0 front to be %d, got %+v", red1, front)
	}
	if len(fx.targets.killed) != 1 || fx.targets.killed[0] != red0 {
		t.Errorf("Expected red0 killed, got %v", fx.targets.killed)
	}
	if !fx.shifter.InFlight(0) {
		t.Error("Expected column 0 shift to start after bottom floor hit")
	}
	if fx.grid.PendingShifts() != 0 {
		t.Errorf("Expected pending shift cleared, got %d", fx.grid.PendingShifts())
	}
}

// TestLocateSelection 测试同层内的选择规则
func TestLocateSelection(t *testing.T) {
	tests := []struct {
		name   string
		origin utils.Vec3
		want   int // 期望命中的列
	}{
		{"靠近第1列", utils.Vec3{X: -1, Z: 5}, 1},
		{"靠近第0列", utils.Vec3{X: 0.2, Z: 5}, 0},
		{"等距取最小列", utils.Vec3{X: -0.5, Z: 5}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			em := ecs.NewEntityManager()
			c0 := newTestTarget(em, types.ColorRed, 0, 0, 0)
			c1 := newTestTarget(em, types.ColorRed, 0, 1, 0)
			fx := newGridFixtureWith(t, em, GridLayout{0: {{c0}, {c1}}}, 7)

			got, ok := fx.grid.Locate(tt.origin, types.ColorRed)
			if !ok {
				t.Fatal("Expected a target")
			}
			want := []ecs.EntityID{c0, c1}[tt.want]
			if got != want {
				t.Errorf("Expected target %d (column %d), got %d", want, tt.want, got)
			}
		})
	}
}

// TestLocateRejects 颜色不符或超出纵深门限的目标不会被返回，失败的查找不改变计数
func TestLocateRejects(t *testing.T) {
	tests := []struct {
		name   string
		origin utils.Vec3
		color  types.TargetColor
		wantOK bool
	}{
		{"颜色不符", utils.Vec3{Z: 6}, types.ColorBlue, false},
		{"超出纵深门限", utils.Vec3{Z: 7.5}, types.ColorRed, false},
		{"恰好在门限上", utils.Vec3{Z: 7}, types.ColorRed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			em := ecs.NewEntityManager()
			red := newTestTarget(em, types.ColorRed, 0, 0, 0)
			fx := newGridFixtureWith(t, em, GridLayout{0: {{red}}}, 7)

			got, ok := fx.grid.Locate(tt.origin, tt.color)
			if ok != tt.wantOK {
				t.Fatalf("Expected ok=%v, got %v (target %d)", tt.wantOK, ok, got)
			}
			wantCount := 1
			if tt.wantOK {
				wantCount = 0
				if got != red {
					t.Errorf("Expected target %d, got %d", red, got)
				}
			}
			if n := fx.grid.CurrentTargetsCount(); n != wantCount {
				t.Errorf("Expected count %d, got %d", wantCount, n)
			}
		})
	}
}

// TestLocateTopFloorFirst 高楼层存在合格目标时不再查看低楼层，即使低楼层更近
func TestLocateTopFloorFirst(t *testing.T) {
	em := ecs.NewEntityManager()
	low := newTestTarget(em, types.ColorRed, 0, 0, 0)
	lowOther := newTestTarget(em, types.ColorRed, 0, 1, 0)
	high := newTestTarget(em, types.ColorRed, 1, 1, 0)
	layout := GridLayout{
		0: {{low}, {lowOther}},
		1: {{ecs.InvalidEntity}, {high}},
	}
	fx := newGridFixtureWith(t, em, layout, 7)

	// 原点贴近第0列底层，但第1层有合格目标
	got, ok := fx.grid.Locate(utils.Vec3{X: 0, Z: 3}, types.ColorRed)
	if !ok || got != high {
		t.Fatalf("Expected top floor target %d, got %d", high, got)
	}
	if fx.grid.PendingShifts() != 0 {
		t.Error("Expected no pending shift for upper floor claim")
	}

	// 第1列底层此前被覆盖，现在可以认领；第0列更近
	got, ok = fx.grid.Locate(utils.Vec3{X: 0, Z: 3}, types.ColorRed)
	if !ok || got != low {
		t.Fatalf("Expected bottom target %d, got %d", low, got)
	}
	if fx.grid.PendingShifts() != 1 {
		t.Errorf("Expected 1 pending shift, got %d", fx.grid.PendingShifts())
	}
}

// TestLocateCoveredBottomCell 上层队首被占用时，底层队首不可认领
func TestLocateCoveredBottomCell(t *testing.T) {
	em := ecs.NewEntityManager()
	bottom := newTestTarget(em, types.ColorRed, 0, 0, 0)
	top := newTestTarget(em, types.ColorBlue, 1, 0, 0)
	fx := newGridFixtureWith(t, em, GridLayout{0: {{bottom}}, 1: {{top}}}, 7)

	if _, ok := fx.grid.Locate(utils.Vec3{Z: 6}, types.ColorRed); ok {
		t.Fatal("Expected covered bottom target to be skipped")
	}
	if got, ok := fx.grid.Locate(utils.Vec3{Z: 6}, types.ColorBlue); !ok || got != top {
		t.Fatalf("Expected top target, got %d", got)
	}
	if got, ok := fx.grid.Locate(utils.Vec3{Z: 6}, types.ColorRed); !ok || got != bottom {
		t.Fatalf("Expected uncovered bottom target, got %d", got)
	}
	if occupiedCells(fx.grid) != fx.grid.CurrentTargetsCount() {
		t.Errorf("Count invariant broken: %d cells vs %d", occupiedCells(fx.grid), fx.grid.CurrentTargetsCount())
	}
}

// TestLocateCountInvariant 任意 Locate/ReportHit 序列下计数等于占用格子数，且不重复返回
func TestLocateCountInvariant(t *testing.T) {
	em := ecs.NewEntityManager()
	colors := []types.TargetColor{types.ColorRed, types.ColorBlue, types.ColorGreen}
	rng := rand.New(rand.NewSource(7))

	layout := GridLayout{}
	const floors, columns, depth = 2, 4, 5
	for f := 0; f < floors; f++ {
		layout[f] = make([][]ecs.EntityID, columns)
		for c := 0; c < columns; c++ {
			for d := 0; d < depth; d++ {
				if f > 0 && rng.Intn(2) == 0 {
					layout[f][c] = append(layout[f][c], ecs.InvalidEntity)
					continue
				}
				layout[f][c] = append(layout[f][c], newTestTarget(em, colors[rng.Intn(len(colors))], f, c, d))
			}
		}
	}
	fx := newGridFixtureWith(t, em, layout, 100)

	handed := make(map[ecs.EntityID]bool)
	for i := 0; i < 200; i++ {
		color := colors[rng.Intn(len(colors))]
		origin := utils.Vec3{X: -rng.Float64() * columns, Z: 6}
		id, ok := fx.grid.Locate(origin, color)
		if ok {
			if handed[id] {
				t.Fatalf("Target %d returned twice", id)
			}
			handed[id] = true
			if c := targetColor(em, id); c != color {
				t.Fatalf("Expected color %v, got %v", color, c)
			}
			if err := fx.grid.ReportHit(id, id, utils.Forward); err != nil {
				t.Fatalf("ReportHit() failed: %v", err)
			}
		}
		if got, want := fx.grid.CurrentTargetsCount(), occupiedCells(fx.grid); got != want {
			t.Fatalf("Step %d: count %d != occupied cells %d", i, got, want)
		}
	}
}

func targetColor(em *ecs.EntityManager, id ecs.EntityID) types.TargetColor {
	tc, ok := targetComponent(em, id)
	if !ok {
		return types.ColorUnknown
	}
	return tc.Color
}

// TestReportHitMismatch 误击只让目标闪避，网格不变
func TestReportHitMismatch(t *testing.T) {
	em := ecs.NewEntityManager()
	a := newTestTarget(em, types.ColorRed, 0, 0, 0)
	b := newTestTarget(em, types.ColorRed, 0, 1, 0)
	fx := newGridFixtureWith(t, em, GridLayout{0: {{a}, {b}}}, 7)

	intended, _ := fx.grid.Locate(utils.Vec3{Z: 6}, types.ColorRed)
	other := a
	if intended == a {
		other = b
	}
	if err := fx.grid.ReportHit(other, intended, utils.Vec3{X: 1}); err != nil {
		t.Fatalf("ReportHit() failed: %v", err)
	}

	if len(fx.targets.dodged) != 1 || fx.targets.dodged[0] != other {
		t.Errorf("Expected %d to dodge, got %v", other, fx.targets.dodged)
	}
	if len(fx.targets.killed) != 0 {
		t.Errorf("Expected no kills, got %v", fx.targets.killed)
	}
	if fx.grid.CurrentTargetsCount() != 1 {
		t.Errorf("Expected count 1, got %d", fx.grid.CurrentTargetsCount())
	}
	if tc, _ := targetComponent(em, other); tc.Dodges != 1 {
		t.Errorf("Expected 1 dodge, got %d", tc.Dodges)
	}
}

// TestReportHitInvalid 无效句柄返回 ErrInvalidTarget
func TestReportHitInvalid(t *testing.T) {
	fx := newGridFixture(t, GridLayout{0: {{}}}, 7)
	if err := fx.grid.ReportHit(ecs.InvalidEntity, ecs.InvalidEntity, utils.Vec3{}); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("Expected ErrInvalidTarget, got %v", err)
	}
	if err := fx.grid.ReportHit(999, 999, utils.Vec3{}); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("Expected ErrInvalidTarget for unknown handle, got %v", err)
	}
}

// TestNewTargetGridErrors 测试网格构建的契约检查
func TestNewTargetGridErrors(t *testing.T) {
	em := ecs.NewEntityManager()
	s, _ := newTestScheduler()
	shifter := NewColumnShifter(s, 1, 0, 0, nil)

	_, err := NewTargetGrid(em, GridLayout{0: {{}}, 2: {{}}}, 7, shifter, &fakeTargets{})
	if !errors.Is(err, ErrNonContiguousFloors) {
		t.Errorf("Expected ErrNonContiguousFloors, got %v", err)
	}

	_, err = NewTargetGrid(em, GridLayout{1: {{}}}, 7, shifter, &fakeTargets{})
	if !errors.Is(err, ErrNonContiguousFloors) {
		t.Errorf("Expected ErrNonContiguousFloors when floor 0 is missing, got %v", err)
	}

	_, err = NewTargetGrid(em, GridLayout{0: {{}}}, 7, shifter, nil)
	if !errors.Is(err, ErrMissingCollaborator) {
		t.Errorf("Expected ErrMissingCollaborator, got %v", err)
	}
}

// TestColumnShiftBringsTargetsIntoRange 列下移后更深的目标进入纵深门限
func TestColumnShiftBringsTargetsIntoRange(t *testing.T) {
	em := ecs.NewEntityManager()
	s, clock := newTestScheduler()
	shifter := NewColumnShifter(s, 1, 0, 100*time.Millisecond, utils.EaseLinear)
	near := newTestTarget(em, types.ColorRed, 0, 0, 0)
	far := newTestTarget(em, types.ColorRed, 0, 0, 1)
	grid, err := NewTargetGrid(em, GridLayout{0: {{near, far}}}, 6.5, shifter, &fakeTargets{})
	if err != nil {
		t.Fatalf("NewTargetGrid() failed: %v", err)
	}

	origin := utils.Vec3{Z: 6}
	got, ok := grid.Locate(origin, types.ColorRed)
	if !ok || got != near {
		t.Fatalf("Expected near target, got %d", got)
	}
	if _, ok := grid.Locate(origin, types.ColorRed); ok {
		t.Fatal("Expected far target to be outside depth gate before shift")
	}

	if err := grid.ReportHit(near, near, utils.Forward); err != nil {
		t.Fatalf("ReportHit() failed: %v", err)
	}
	if _, err := s.Drive(clock, 20*time.Millisecond, 20, nil); err != nil {
		t.Fatalf("Drive() failed: %v", err)
	}

	if pos, _ := grid.TargetPosition(far); pos.Z != 0 {
		t.Errorf("Expected far target at Z=0 after shift, got %.2f", pos.Z)
	}
	if got, ok := grid.Locate(origin, types.ColorRed); !ok || got != far {
		t.Errorf("Expected far target after shift, got %d (ok=%v)", got, ok)
	}
}
