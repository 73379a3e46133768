package scenes

import (
	"image/color"

	"github.com/gonewx/aimburst/pkg/types"
)

var targetPalette = map[types.TargetColor]color.RGBA{
	types.ColorRed:    {R: 230, G: 72, B: 72, A: 255},
	types.ColorGreen:  {R: 88, G: 200, B: 96, A: 255},
	types.ColorBlue:   {R: 72, G: 120, B: 235, A: 255},
	types.ColorYellow: {R: 240, G: 210, B: 70, A: 255},
	types.ColorPurple: {R: 160, G: 90, B: 220, A: 255},
	types.ColorOrange: {R: 245, G: 150, B: 50, A: 255},
	types.ColorPink:   {R: 245, G: 130, B: 190, A: 255},
	types.ColorCyan:   {R: 80, G: 215, B: 225, A: 255},
}

var (
	hiddenColor     = color.RGBA{R: 110, G: 110, B: 120, A: 255}
	backgroundColor = color.RGBA{R: 28, G: 30, B: 38, A: 255}
	slotColor       = color.RGBA{R: 70, G: 74, B: 90, A: 255}
	slotBusyColor   = color.RGBA{R: 120, G: 126, B: 150, A: 255}
	laneColor       = color.RGBA{R: 40, G: 44, B: 56, A: 255}
	gateColor       = color.RGBA{R: 90, G: 60, B: 60, A: 255}
)

// ColorOf 目标颜色对应的绘制颜色
func ColorOf(c types.TargetColor) color.RGBA {
	if rgba, ok := targetPalette[c]; ok {
		return rgba
	}
	return hiddenColor
}

// fade 按淡出进度降低透明度
func fade(c color.RGBA, progress float64) color.RGBA {
	if progress <= 0 {
		return c
	}
	if progress >= 1 {
		return color.RGBA{}
	}
	k := 1 - progress
	return color.RGBA{R: uint8(float64(c.R) * k), G: uint8(float64(c.G) * k), B: uint8(float64(c.B) * k), A: uint8(float64(c.A) * k)}
}

// lighten 向白色混合，用于上层方块与合并高亮
func lighten(c color.RGBA, amount float64) color.RGBA {
	mix := func(v uint8) uint8 { return uint8(float64(v) + (255-float64(v))*amount) }
	return color.RGBA{R: mix(c.R), G: mix(c.G), B: mix(c.B), A: c.A}
}
