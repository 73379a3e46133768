package components

import (
	"github.com/gonewx/aimburst/pkg/types"
	"github.com/gonewx/aimburst/pkg/utils"
)

// TargetComponent 标识实体为网格中的目标方块
//
// Local 是方块相对所在列的位置；世界坐标 = Local + 列的下移位移
type TargetComponent struct {
	Color  types.TargetColor
	Floor  int        // 楼层索引，0 为最底层
	Column int        // 列索引
	Depth  int        // 在列队列中的初始纵深序号
	Local  utils.Vec3 // 列内局部坐标
	Alive  bool       // 被命中销毁后为 false（终态）
	Dodges int        // 被误击时的闪避次数
}
