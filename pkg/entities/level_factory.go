package entities

import (
	"fmt"
	"log"

	"github.com/gonewx/aimburst/pkg/components"
	"github.com/gonewx/aimburst/pkg/config"
	"github.com/gonewx/aimburst/pkg/ecs"
	"github.com/gonewx/aimburst/pkg/systems"
	"github.com/gonewx/aimburst/pkg/types"
	"github.com/gonewx/aimburst/pkg/utils"
)

// NewTargetEntity 创建一个方块目标实体
//
// 参数:
//   - em: 实体管理器
//   - color: 方块颜色
//   - floor, column, depth: 楼层、列、纵深序号
//   - spacing: 方块间距
//
// 返回:
//   - ecs.EntityID: 创建的实体ID，失败时返回 0
//   - error: 参数非法时返回错误
//
// 局部坐标为 x = -column*spacing, y = floor*spacing, z = -depth*spacing，
// 世界坐标还要叠加所在列的下移位移。
func NewTargetEntity(em *ecs.EntityManager, color types.TargetColor, floor, column, depth int, spacing float64) (ecs.EntityID, error) {
	if em == nil {
		return 0, fmt.Errorf("entity manager cannot be nil")
	}
	if !color.IsValid() {
		return 0, fmt.Errorf("invalid target color %v", color)
	}
	if floor < 0 || column < 0 || depth < 0 {
		return 0, fmt.Errorf("invalid target cell floor=%d column=%d depth=%d", floor, column, depth)
	}

	id := em.CreateEntity()
	ecs.AddComponent(em, id, &components.TargetComponent{
		Color:  color,
		Floor:  floor,
		Column: column,
		Depth:  depth,
		Local: utils.Vec3{
			X: -float64(column) * spacing,
			Y: float64(floor) * spacing,
			Z: -float64(depth) * spacing,
		},
		Alive: true,
	})
	return id, nil
}

// BuildGrid 根据列配置创建所有方块并返回网格初始布局
//
// 每列的颜色段依次占据纵深序号；楼层数为 f 的段填充 0..f-1 层。
// 同一列所有楼层的队列补齐到相同长度，未填充的位置为 ecs.InvalidEntity。
func BuildGrid(em *ecs.EntityManager, cfg *config.LevelConfig) (systems.GridLayout, error) {
	if em == nil {
		return nil, fmt.Errorf("entity manager cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("level config cannot be nil")
	}

	floors := 1
	for _, col := range cfg.Columns {
		for _, set := range col.Sets {
			if set.Floors > floors {
				floors = set.Floors
			}
		}
	}

	layout := make(systems.GridLayout, floors)
	for f := 0; f < floors; f++ {
		layout[f] = make([][]ecs.EntityID, len(cfg.Columns))
	}

	created := 0
	for c, col := range cfg.Columns {
		depth := 0
		for _, set := range col.Sets {
			depth += set.Count
		}
		for f := 0; f < floors; f++ {
			layout[f][c] = make([]ecs.EntityID, depth)
		}

		d := 0
		for _, set := range col.Sets {
			for i := 0; i < set.Count; i++ {
				for f := 0; f < set.Floors; f++ {
					id, err := NewTargetEntity(em, set.Color, f, c, d, cfg.CubeSpacing)
					if err != nil {
						return nil, fmt.Errorf("column %d depth %d: %w", c, d, err)
					}
					layout[f][c][d] = id
					created++
				}
				d++
			}
		}
	}

	log.Printf("[LevelFactory] Built grid for level %s: %d columns, %d floors, %d targets", cfg.ID, len(cfg.Columns), floors, created)
	return layout, nil
}

// NewShooterEntity 创建一个射手实体
//
// 参数:
//   - em: 实体管理器
//   - sc: 射手组配置（颜色、弹药、射速、是否隐藏）
//   - lane: 所属行
//   - pos: 初始世界坐标
func NewShooterEntity(em *ecs.EntityManager, sc config.ShooterConfig, lane int, pos utils.Vec3) (ecs.EntityID, error) {
	if em == nil {
		return 0, fmt.Errorf("entity manager cannot be nil")
	}
	if !sc.Color.IsValid() {
		return 0, fmt.Errorf("invalid shooter color %v", sc.Color)
	}
	if sc.Ammo <= 0 {
		return 0, fmt.Errorf("shooter ammo must be positive, got %d", sc.Ammo)
	}

	id := em.CreateEntity()
	ecs.AddComponent(em, id, &components.ShooterComponent{
		Color:        sc.Color,
		Ammo:         sc.Ammo,
		LaneIndex:    lane,
		Positioning:  types.PositioningLane,
		Hidden:       sc.Hidden,
		FireInterval: sc.FireInterval(),
	})
	ecs.AddComponent(em, id, &components.PositionComponent{Pos: pos})
	return id, nil
}

// BuildLanes 展开每行的射手组并创建射手，返回 行 -> 队列顺序的射手ID
//
// 队首射手总是揭示颜色，隐藏只对排队中的射手生效。
func BuildLanes(em *ecs.EntityManager, cfg *config.LevelConfig, geo Geometry) ([][]ecs.EntityID, error) {
	if em == nil {
		return nil, fmt.Errorf("entity manager cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("level config cannot be nil")
	}

	lanes := make([][]ecs.EntityID, len(cfg.Lanes))
	total := 0
	for l, lane := range cfg.Lanes {
		for _, group := range lane.Shooters {
			for i := 0; i < group.Count; i++ {
				index := len(lanes[l])
				sc := group
				if index == 0 {
					sc.Hidden = false
				}
				id, err := NewShooterEntity(em, sc, l, geo.LanePosition(l, index))
				if err != nil {
					return nil, fmt.Errorf("lane %d position %d: %w", l, index, err)
				}
				lanes[l] = append(lanes[l], id)
			}
		}
		total += len(lanes[l])
	}

	log.Printf("[LevelFactory] Built %d lanes with %d shooters", len(lanes), total)
	return lanes, nil
}

// BuildPairs 把配置中的战斗伙伴写入配对表
func BuildPairs(cfg *config.LevelConfig, lanes [][]ecs.EntityID, pairs *systems.PairingTable) error {
	if cfg == nil || pairs == nil {
		return fmt.Errorf("level config and pairing table cannot be nil")
	}

	resolve := func(ref config.ShooterRef) (ecs.EntityID, error) {
		if ref.Lane < 0 || ref.Lane >= len(lanes) {
			return 0, fmt.Errorf("pair references unknown lane %d", ref.Lane)
		}
		if ref.Position < 0 || ref.Position >= len(lanes[ref.Lane]) {
			return 0, fmt.Errorf("pair references unknown position %d in lane %d", ref.Position, ref.Lane)
		}
		return lanes[ref.Lane][ref.Position], nil
	}

	for i, p := range cfg.Pairs {
		a, err := resolve(p.A)
		if err != nil {
			return fmt.Errorf("pair %d: %w", i, err)
		}
		b, err := resolve(p.B)
		if err != nil {
			return fmt.Errorf("pair %d: %w", i, err)
		}
		if _, err := pairs.Pair(a, b); err != nil {
			return fmt.Errorf("pair %d: %w", i, err)
		}
	}

	if len(cfg.Pairs) > 0 {
		log.Printf("[LevelFactory] Registered %d combat pairs", len(cfg.Pairs))
	}
	return nil
}
