package components

import (
	"time"

	"github.com/gonewx/aimburst/pkg/types"
)

// ShooterComponent 标识实体为射手
type ShooterComponent struct {
	Color         types.TargetColor
	Ammo          int // 剩余弹药
	LaneIndex     int // 所属行
	Positioning   types.ShooterPositioning
	Hidden        bool          // 隐藏射手到达队首后才揭示颜色
	FireInterval  time.Duration // 两次射击的最小间隔（1 / 射速）
	CooldownUntil time.Time     // 冷却结束时间
}

// HasAmmo 是否仍有弹药
func (s *ShooterComponent) HasAmmo() bool {
	return s.Ammo > 0
}

// OnCooldown 当前是否处于射击冷却
func (s *ShooterComponent) OnCooldown(now time.Time) bool {
	return now.Before(s.CooldownUntil)
}
