package types

// ShooterPositioning 射手所处的位置阶段
type ShooterPositioning int

const (
	// PositioningLane 在行队列中排队（非队首）
	PositioningLane ShooterPositioning = iota
	// PositioningFront 位于行队列队首，可以被点击
	PositioningFront
	// PositioningSlot 已离开行队列，前往或位于射击槽位
	PositioningSlot
)

// String 返回位置阶段名称
func (p ShooterPositioning) String() string {
	switch p {
	case PositioningLane:
		return "Lane"
	case PositioningFront:
		return "Front"
	case PositioningSlot:
		return "Slot"
	default:
		return "Unknown"
	}
}

// SlotActivity 槽位活跃度三态标记
//
// 新预约的槽位处于 Unknown，直到其射手第一次尝试索敌
type SlotActivity int

const (
	// ActivityUnknown 尚未尝试索敌
	ActivityUnknown SlotActivity = iota
	// ActivityActive 最近一次索敌成功并开火
	ActivityActive
	// ActivityInactive 最近一次索敌失败
	ActivityInactive
)

// String 返回活跃度名称
func (a SlotActivity) String() string {
	switch a {
	case ActivityActive:
		return "active"
	case ActivityInactive:
		return "inactive"
	default:
		return "unknown"
	}
}
