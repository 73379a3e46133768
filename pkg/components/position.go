package components

import "github.com/gonewx/aimburst/pkg/utils"

// PositionComponent 实体的世界坐标
// 射手的位置由表现层的移动动画写入，核心逻辑只读取它作为索敌原点
type PositionComponent struct {
	Pos utils.Vec3
}
