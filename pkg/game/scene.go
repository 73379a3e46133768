package game

import (
	"github.com/hajimehoshi/ebiten/v2"
)

// Scene 一个可切换的画面（关卡、结算等）
// 同一时刻只有一个场景的 Update 和 Draw 会被调用。
type Scene interface {
	// Update 推进一帧，返回非 nil 错误时游戏终止
	Update() error

	// Draw 把场景绘制到 screen
	Draw(screen *ebiten.Image)
}
