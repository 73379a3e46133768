package systems

import (
	"github.com/gonewx/aimburst/pkg/ecs"
	"github.com/gonewx/aimburst/pkg/sched"
	"github.com/gonewx/aimburst/pkg/types"
	"github.com/gonewx/aimburst/pkg/utils"
)

// 核心逻辑通过以下窄接口驱动外部协作者（表现层、动画、命中检测）。
// 所有动作都是异步的：返回的信号在动作完成时触发，调用方在自己的
// 任务迭代中轮询，从不阻塞。

// ShooterPresenter 射手的表现层动作
type ShooterPresenter interface {
	// Shoot 向目标发射一颗子弹，子弹到达后由表现层调用 HitReporter.ReportHit
	Shoot(shooter, target ecs.EntityID) *sched.Signal
	// MoveToSlot 从行队首移动到槽位
	MoveToSlot(shooter ecs.EntityID, slot int) *sched.Signal
	// MoveOut 离开槽位并退场，curved 表示需要绕开其他占用的槽位
	MoveOut(shooter ecs.EntityID, slot int, curved bool) *sched.Signal
	// Kill 移除射手（合并中被吸收的两个射手）
	Kill(shooter ecs.EntityID) *sched.Signal
	// Merge 播放合并完成效果并显示新的弹药数
	Merge(shooter ecs.EntityID, newAmmo int) *sched.Signal
	// Advance 沿行向前移动 distance
	Advance(shooter ecs.EntityID, distance float64) *sched.Signal
}

// TargetPresenter 目标方块的表现层动作
type TargetPresenter interface {
	Kill(target ecs.EntityID) *sched.Signal
	DodgeBullet(target ecs.EntityID, dir utils.Vec3) *sched.Signal
}

// MergeAnimator 执行三合一合并动画，完成时给出存活的射手
type MergeAnimator interface {
	MergeShooters(triple MergeTriple) *sched.Future[ecs.EntityID]
}

// TargetLocator 索敌入口
type TargetLocator interface {
	Locate(origin utils.Vec3, color types.TargetColor) (ecs.EntityID, bool)
}

// HitReporter 命中上报入口
type HitReporter interface {
	ReportHit(hit, intended ecs.EntityID, dir utils.Vec3) error
}

// ColumnMover 列下移
type ColumnMover interface {
	MoveDown(column int)
	Displacement(column int) utils.Vec3
}

// TargetCounter 目标计数
type TargetCounter interface {
	TotalTargetsCount() int
	CurrentTargetsCount() int
}

// ProgressSink 接收关卡进度 [0, 1]
type ProgressSink interface {
	SetProgress(progress float64)
}
