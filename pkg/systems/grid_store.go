package systems

import (
	"fmt"
	"log"
	"math"
	"sort"
	"sync"

	"github.com/gonewx/aimburst/pkg/components"
	"github.com/gonewx/aimburst/pkg/ecs"
	"github.com/gonewx/aimburst/pkg/types"
	"github.com/gonewx/aimburst/pkg/utils"
)

// Cell 网格中的一个位置：要么空，要么持有一个目标
type Cell struct {
	Occupied bool
	Target   ecs.EntityID
}

// GridLayout 初始布局：楼层 -> 列 -> 纵深队列
// 队列中 ecs.InvalidEntity 表示空位
type GridLayout map[int][][]ecs.EntityID

// TargetGrid 目标网格存储与索敌器
//
// 每个楼层的每一列是一个 FIFO 队列，只有队首（索引 0）可以被索敌。
// 所有修改都在 mu 保护下完成，临界区内不会挂起，也不会调用外部协作者。
type TargetGrid struct {
	mu sync.Mutex

	em        *ecs.EntityManager
	shifter   ColumnMover
	targets   TargetPresenter
	depthGate float64

	floors  [][][]Cell // floor -> column -> queue
	columns int
	total   int
	current int

	// 底层被认领但尚未确认销毁的目标 -> 所在列
	pending map[ecs.EntityID]int
}

// NewTargetGrid 根据布局创建网格
//
// 楼层索引必须是连续的 0..F-1，否则返回 ErrNonContiguousFloors。
// 列数不足的楼层用空队列补齐。
func NewTargetGrid(em *ecs.EntityManager, layout GridLayout, depthGate float64, shifter ColumnMover, targets TargetPresenter) (*TargetGrid, error) {
	if em == nil {
		return nil, fmt.Errorf("target grid entity manager: %w", ErrMissingCollaborator)
	}
	if shifter == nil {
		return nil, fmt.Errorf("target grid column shifter: %w", ErrMissingCollaborator)
	}
	if targets == nil {
		return nil, fmt.Errorf("target grid target presenter: %w", ErrMissingCollaborator)
	}

	indices := make([]int, 0, len(layout))
	columns := 0
	for floor, cols := range layout {
		indices = append(indices, floor)
		if len(cols) > columns {
			columns = len(cols)
		}
	}
	sort.Ints(indices)
	for i, floor := range indices {
		if floor != i {
			return nil, fmt.Errorf("floor %d found at position %d: %w", floor, i, ErrNonContiguousFloors)
		}
	}

	g := &TargetGrid{
		em:        em,
		shifter:   shifter,
		targets:   targets,
		depthGate: depthGate,
		floors:    make([][][]Cell, len(indices)),
		columns:   columns,
		pending:   make(map[ecs.EntityID]int),
	}

	for floor := range g.floors {
		g.floors[floor] = make([][]Cell, columns)
		for col, queue := range layout[floor] {
			cells := make([]Cell, len(queue))
			for i, id := range queue {
				if id == ecs.InvalidEntity {
					continue
				}
				cells[i] = Cell{Occupied: true, Target: id}
				g.total++
			}
			g.floors[floor][col] = cells
		}
	}
	g.current = g.total

	log.Printf("[TargetGrid] Created grid: %d floors, %d columns, %d targets", len(g.floors), columns, g.total)
	return g, nil
}

// Locate 查找并认领离 origin 最近的同色目标
//
// 从最高楼层向下搜索，只考察每列队首。一旦某楼层存在合格目标，
// 就在该楼层内取距离最小者（距离相同取列索引最小者），不再查看更低楼层。
// 被认领的格子立即置空；若认领发生在 0 层，该列所有楼层的队首一起出队，
// 并记录一条待下移记录，等目标确认销毁后触发列下移。
func (g *TargetGrid) Locate(origin utils.Vec3, color types.TargetColor) (ecs.EntityID, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for floor := len(g.floors) - 1; floor >= 0; floor-- {
		best := -1
		bestDist := math.MaxFloat64

		for col, queue := range g.floors[floor] {
			if len(queue) == 0 || !queue[0].Occupied {
				continue
			}
			if floor == 0 && g.coveredLocked(col) {
				continue
			}

			target, ok := ecs.GetComponent[*components.TargetComponent](g.em, queue[0].Target)
			if !ok || target.Color != color {
				continue
			}

			pos := g.worldPositionLocked(target)
			if origin.Z-pos.Z > g.depthGate {
				continue
			}

			if d := utils.Distance(origin, pos); d < bestDist {
				best = col
				bestDist = d
			}
		}

		if best < 0 {
			continue
		}

		id := g.floors[floor][best][0].Target
		g.floors[floor][best][0] = Cell{}
		g.current--

		if floor == 0 {
			for f := range g.floors {
				if q := g.floors[f][best]; len(q) > 0 {
					g.floors[f][best] = q[1:]
				}
			}
			for other, col := range g.pending {
				if col == best {
					log.Printf("[TargetGrid] Warning: column %d already has pending shift for target %d", best, other)
					break
				}
			}
			g.pending[id] = best
		}

		return id, true
	}

	return ecs.InvalidEntity, false
}

// coveredLocked 0 层的队首在更高楼层队首被占用时不可认领，
// 否则出队会连带移除尚未命中的上层目标
func (g *TargetGrid) coveredLocked(col int) bool {
	for f := 1; f < len(g.floors); f++ {
		if q := g.floors[f][col]; len(q) > 0 && q[0].Occupied {
			return true
		}
	}
	return false
}

// ReportHit 处理子弹命中
//
// 命中目标与预期目标一致时销毁该目标，若它有待下移记录则触发一次列下移；
// 否则让被误击的目标沿 dir 闪避，网格不变。
func (g *TargetGrid) ReportHit(hit, intended ecs.EntityID, dir utils.Vec3) error {
	if hit == ecs.InvalidEntity || intended == ecs.InvalidEntity {
		return ErrInvalidTarget
	}

	g.mu.Lock()
	target, ok := ecs.GetComponent[*components.TargetComponent](g.em, hit)
	if !ok {
		g.mu.Unlock()
		return fmt.Errorf("report hit on target %d: %w", hit, ErrInvalidTarget)
	}

	if hit != intended {
		target.Dodges++
		g.mu.Unlock()
		g.targets.DodgeBullet(hit, dir)
		return nil
	}

	if !target.Alive {
		g.mu.Unlock()
		return nil
	}
	target.Alive = false
	col, shift := g.pending[hit]
	delete(g.pending, hit)
	g.mu.Unlock()

	g.targets.Kill(hit)
	if shift {
		g.shifter.MoveDown(col)
	}
	return nil
}

// TotalTargetsCount 关卡开始时的目标总数
func (g *TargetGrid) TotalTargetsCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.total
}

// CurrentTargetsCount 网格中仍占用的格子数
func (g *TargetGrid) CurrentTargetsCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

// TargetPosition 返回目标的世界坐标（列内局部坐标 + 列下移位移）
func (g *TargetGrid) TargetPosition(id ecs.EntityID) (utils.Vec3, bool) {
	target, ok := ecs.GetComponent[*components.TargetComponent](g.em, id)
	if !ok {
		return utils.Vec3{}, false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.worldPositionLocked(target), true
}

func (g *TargetGrid) worldPositionLocked(target *components.TargetComponent) utils.Vec3 {
	return target.Local.Add(g.shifter.Displacement(target.Column))
}

// Floors 楼层数
func (g *TargetGrid) Floors() int {
	return len(g.floors)
}

// Columns 列数
func (g *TargetGrid) Columns() int {
	return g.columns
}

// PendingShifts 当前待下移记录数
func (g *TargetGrid) PendingShifts() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}

// Cells 返回网格快照，floor -> column -> queue
func (g *TargetGrid) Cells() [][][]Cell {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([][][]Cell, len(g.floors))
	for f, cols := range g.floors {
		out[f] = make([][]Cell, len(cols))
		for c, queue := range cols {
			out[f][c] = append([]Cell(nil), queue...)
		}
	}
	return out
}
