package utils

// LaneStrip 描述一条行队列在屏幕上的点击区域
type LaneStrip struct {
	Index  int     // 行索引
	StartX float64 // 左边界
	Width  float64 // 宽度
	StartY float64 // 上边界
	Height float64 // 高度
}

// ScreenToLane 将鼠标屏幕坐标转换为被点击的行索引
// 参数:
//   - mouseX, mouseY: 鼠标的屏幕坐标
//   - strips: 各行的点击区域
//
// 返回:
//   - lane: 行索引
//   - isValid: 是否点中了某一行
func ScreenToLane(mouseX, mouseY int, strips []LaneStrip) (lane int, isValid bool) {
	x := float64(mouseX)
	y := float64(mouseY)

	for _, s := range strips {
		if x < s.StartX || x >= s.StartX+s.Width {
			continue
		}
		if y < s.StartY || y >= s.StartY+s.Height {
			continue
		}
		return s.Index, true
	}
	return 0, false
}
