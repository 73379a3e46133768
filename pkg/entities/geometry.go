package entities

import (
	"github.com/gonewx/aimburst/pkg/config"
	"github.com/gonewx/aimburst/pkg/utils"
)

// Geometry 关卡的世界坐标布局
//
// 方块网格从 X=0 向 -X 展开，纵深沿 -Z；槽位与射手行位于网格前方（+Z），
// 两者都以网格的中心列对齐。
type Geometry struct {
	CenterX      float64
	SlotZ        float64
	SlotSpacing  float64
	Slots        int
	LaneStartZ   float64
	LaneSpacingX float64
	Lanes        int

	laneSpacing []float64
}

// NewGeometry 根据关卡配置计算布局
func NewGeometry(cfg *config.LevelConfig) Geometry {
	g := Geometry{
		CenterX:      -float64(len(cfg.Columns)-1) / 2 * cfg.CubeSpacing,
		SlotZ:        cfg.Stage.SlotZ,
		SlotSpacing:  cfg.Stage.SlotSpacing,
		Slots:        cfg.Slots,
		LaneStartZ:   cfg.Stage.LaneStartZ,
		LaneSpacingX: cfg.Stage.LaneSpacingX,
		Lanes:        len(cfg.Lanes),
		laneSpacing:  make([]float64, len(cfg.Lanes)),
	}
	for i, lane := range cfg.Lanes {
		g.laneSpacing[i] = lane.Spacing
	}
	return g
}

// SlotPosition 槽位的世界坐标，槽位 0 在最左侧（-X）
func (g Geometry) SlotPosition(slot int) utils.Vec3 {
	offset := float64(slot) - float64(g.Slots-1)/2
	return utils.Vec3{X: g.CenterX + offset*g.SlotSpacing, Z: g.SlotZ}
}

// LaneFront 行队首的世界坐标
func (g Geometry) LaneFront(lane int) utils.Vec3 {
	offset := float64(lane) - float64(g.Lanes-1)/2
	return utils.Vec3{X: g.CenterX + offset*g.LaneSpacingX, Z: g.LaneStartZ}
}

// LanePosition 行内第 index 个射手的初始坐标，沿 +Z 向后排列
func (g Geometry) LanePosition(lane, index int) utils.Vec3 {
	spacing := config.DefaultLaneSpacing
	if lane >= 0 && lane < len(g.laneSpacing) {
		spacing = g.laneSpacing[lane]
	}
	return g.LaneFront(lane).Add(utils.Forward.Scale(float64(index) * spacing))
}

// MiddleSlot 槽位表的中间槽位，离场方向以它为界
func (g Geometry) MiddleSlot() int {
	return (g.Slots+1)/2 - 1
}

// ExitPoint 射手离开槽位后的退场终点：中间槽位右侧的从右边离开，其余从左边离开
func (g Geometry) ExitPoint(slot int) utils.Vec3 {
	edge := float64(g.Slots+1)/2*g.SlotSpacing + g.SlotSpacing
	if slot > g.MiddleSlot() {
		return utils.Vec3{X: g.CenterX + edge, Z: g.SlotZ}
	}
	return utils.Vec3{X: g.CenterX - edge, Z: g.SlotZ}
}
