package app

import (
	"image/color"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// 退出全屏后窗口尺寸要等几帧才会生效
const windowResetFrames = 3

var letterboxColor = color.RGBA{R: 0x12, G: 0x14, B: 0x1c, A: 0xff}

// windowState F11 全屏切换
type windowState struct {
	resetIn int // >0 时倒数，归零后恢复窗口尺寸
}

func (w *windowState) update() {
	if w.resetIn > 0 {
		if w.resetIn--; w.resetIn == 0 {
			ebiten.SetWindowSize(WindowWidth, WindowHeight)
			log.Printf("[App] Window size restored to %dx%d", WindowWidth, WindowHeight)
		}
	}

	if !inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		return
	}
	if !ebiten.IsFullscreen() {
		ebiten.SetFullscreen(true)
		return
	}
	ebiten.SetFullscreen(false)
	if ebiten.IsWindowMaximized() || ebiten.IsWindowMinimized() {
		ebiten.RestoreWindow()
	}
	w.resetIn = windowResetFrames
}

func (w *windowState) drawFinal(screen ebiten.FinalScreen, offscreen *ebiten.Image, geoM ebiten.GeoM) {
	screen.Fill(letterboxColor)
	op := &ebiten.DrawImageOptions{GeoM: geoM, Filter: ebiten.FilterLinear}
	screen.DrawImage(offscreen, op)
}
