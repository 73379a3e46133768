package game

import (
	"sort"
	"time"

	"github.com/gonewx/aimburst/pkg/components"
	"github.com/gonewx/aimburst/pkg/ecs"
	"github.com/gonewx/aimburst/pkg/stage"
	"github.com/gonewx/aimburst/pkg/systems"
	"github.com/gonewx/aimburst/pkg/types"
	"github.com/gonewx/aimburst/pkg/utils"
)

// TargetView 渲染用的方块快照
type TargetView struct {
	ID    ecs.EntityID
	Color types.TargetColor
	Floor int
	Depth int
	Pos   utils.Vec3 // 世界坐标，已叠加闪避偏移
	Fade  float64    // 击毁淡出进度 [0,1]
}

// Frame 一帧的只读快照，供前端绘制
type Frame struct {
	Targets  []TargetView // 先按楼层再按纵深由远到近排列，便于依次绘制
	Shooters []stage.ShooterView
	Bullets  []stage.Bullet
	Slots    []systems.Slot
	Progress float64
	Outcome  systems.Outcome
	Elapsed  time.Duration
}

// Frame 采集当前帧快照
//
// 使用自定义协作者时没有默认表现层，射手按 ECS 坐标输出，不含子弹与特效。
func (l *Level) Frame() Frame {
	f := Frame{
		Slots:    l.slots.Snapshot(),
		Progress: l.Progress(),
		Outcome:  l.Outcome(),
		Elapsed:  l.Elapsed(),
	}

	for _, id := range ecs.GetEntitiesWith1[*components.TargetComponent](l.em) {
		tc, _ := ecs.GetComponent[*components.TargetComponent](l.em, id)
		pos, _ := l.grid.TargetPosition(id)
		v := TargetView{ID: id, Color: tc.Color, Floor: tc.Floor, Depth: tc.Depth, Pos: pos}
		if l.stage != nil {
			fx := l.stage.TargetFx(id)
			v.Pos = v.Pos.Add(fx.Offset)
			v.Fade = fx.Fade
		}
		if !tc.Alive && (l.stage == nil || v.Fade >= 1) {
			continue
		}
		f.Targets = append(f.Targets, v)
	}
	sort.Slice(f.Targets, func(i, j int) bool {
		a, b := f.Targets[i], f.Targets[j]
		if a.Floor != b.Floor {
			return a.Floor < b.Floor
		}
		return a.Pos.Z < b.Pos.Z
	})

	if l.stage != nil {
		f.Shooters = l.stage.Shooters()
		f.Bullets = l.stage.Bullets()
		return f
	}
	for _, id := range ecs.GetEntitiesWith2[*components.ShooterComponent, *components.PositionComponent](l.em) {
		sc, _ := ecs.GetComponent[*components.ShooterComponent](l.em, id)
		pos, _ := ecs.GetComponent[*components.PositionComponent](l.em, id)
		f.Shooters = append(f.Shooters, stage.ShooterView{ID: id, Pos: pos.Pos, Color: sc.Color, Ammo: sc.Ammo, Hidden: sc.Hidden})
	}
	return f
}
