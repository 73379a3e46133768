package main

import (
	"fmt"
	"math"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/gonewx/aimburst/pkg/game"
	"github.com/gonewx/aimburst/pkg/systems"
	"github.com/gonewx/aimburst/pkg/types"
	"github.com/gonewx/aimburst/pkg/utils"
)

// 终端字符约为 1:2，X 方向每个世界单位占两倍的列
const (
	cellAspect = 2.0
	hudRows    = 2
	laneRows   = 4 // 行队列显示的射手数
)

var tcellColors = map[types.TargetColor]tcell.Color{
	types.ColorRed:    tcell.ColorRed,
	types.ColorGreen:  tcell.ColorGreen,
	types.ColorBlue:   tcell.ColorBlue,
	types.ColorYellow: tcell.ColorYellow,
	types.ColorPurple: tcell.ColorPurple,
	types.ColorOrange: tcell.ColorOrange,
	types.ColorPink:   tcell.ColorPink,
	types.ColorCyan:   tcell.ColorDarkCyan,
}

func colorStyle(c types.TargetColor) tcell.Style {
	fg, ok := tcellColors[c]
	if !ok {
		fg = tcell.ColorGray
	}
	return tcell.StyleDefault.Foreground(fg)
}

// view 世界坐标到终端单元格的映射
type view struct {
	minX, minZ float64
	scale      float64 // 每个世界单位的行数
	laneCols   []int   // 每一行队首所在的列
	laneHalf   int     // 行点击区域半宽
	laneTop    int     // 行点击区域起始行
}

func newView(level *game.Level, width, height int) view {
	cfg := level.Config()
	geo := level.Geometry()
	s := cfg.CubeSpacing

	minX := math.Min(geo.SlotPosition(0).X, geo.LaneFront(0).X) - s
	minX = math.Min(minX, -float64(len(cfg.Columns))*s)
	maxX := math.Max(geo.SlotPosition(geo.Slots-1).X, geo.LaneFront(geo.Lanes-1).X) + s
	maxX = math.Max(maxX, s)
	minZ := cfg.Stage.SlotZ - cfg.DepthGate - s
	maxZ := geo.LaneStartZ + float64(laneRows)*cfg.Lanes[0].Spacing

	scale := math.Min(float64(width)/((maxX-minX)*cellAspect), float64(height-hudRows)/(maxZ-minZ))
	if scale <= 0 {
		scale = 1
	}
	v := view{minX: minX, minZ: minZ, scale: scale}
	v.laneHalf = int(math.Max(1, geo.LaneSpacingX*scale*cellAspect/2-1))
	for lane := 0; lane < geo.Lanes; lane++ {
		x, y := v.cell(geo.LaneFront(lane))
		v.laneCols = append(v.laneCols, x)
		v.laneTop = y - 1
	}
	return v
}

func (v view) cell(p utils.Vec3) (x, y int) {
	x = int(math.Round((p.X - v.minX) * v.scale * cellAspect))
	y = hudRows + int(math.Round((p.Z-v.minZ)*v.scale-p.Y*0.5))
	return x, y
}

// laneAt 鼠标所在单元格对应的行
func (v view) laneAt(x, y int) (int, bool) {
	if y < v.laneTop {
		return 0, false
	}
	for lane, col := range v.laneCols {
		if x >= col-v.laneHalf && x <= col+v.laneHalf {
			return lane, true
		}
	}
	return 0, false
}

func drawText(screen tcell.Screen, x, y int, style tcell.Style, text string) {
	for i, r := range text {
		screen.SetContent(x+i, y, r, nil, style)
	}
}

// render 绘制一帧
func render(screen tcell.Screen, level *game.Level, v view, nextID string) {
	screen.Clear()
	frame := level.Frame()
	geo := level.Geometry()

	for _, col := range v.laneCols {
		for y := v.laneTop; y < v.laneTop+laneRows*2+1; y++ {
			screen.SetContent(col-v.laneHalf-1, y, '│', nil, tcell.StyleDefault.Foreground(tcell.ColorDimGray))
			screen.SetContent(col+v.laneHalf+1, y, '│', nil, tcell.StyleDefault.Foreground(tcell.ColorDimGray))
		}
	}

	for _, t := range frame.Targets {
		if t.Fade >= 0.5 {
			continue
		}
		x, y := v.cell(t.Pos)
		glyph := '■'
		if t.Floor > 0 {
			glyph = '▲'
		}
		screen.SetContent(x, y, glyph, nil, colorStyle(t.Color))
	}

	for _, slot := range frame.Slots {
		x, y := v.cell(geo.SlotPosition(slot.Index))
		style := tcell.StyleDefault.Foreground(tcell.ColorDimGray)
		if slot.Occupied {
			style = style.Foreground(tcell.ColorWhite)
		}
		screen.SetContent(x-1, y, '[', nil, style)
		screen.SetContent(x+1, y, ']', nil, style)
	}

	for _, sh := range frame.Shooters {
		if sh.Fade >= 0.5 {
			continue
		}
		x, y := v.cell(sh.Pos)
		style := colorStyle(sh.Color).Bold(sh.Flash > 0)
		glyph := rune('0' + min(sh.Ammo, 9))
		if sh.Hidden {
			style, glyph = tcell.StyleDefault.Foreground(tcell.ColorGray), '?'
		}
		screen.SetContent(x, y, glyph, nil, style.Reverse(true))
	}

	for _, b := range frame.Bullets {
		x, y := v.cell(b.Pos)
		screen.SetContent(x, y, '•', nil, colorStyle(b.Color))
	}

	cfg := level.Config()
	grid := level.Grid()
	drawText(screen, 0, 0, tcell.StyleDefault.Bold(true), fmt.Sprintf("AimBurst  %s %s", cfg.ID, cfg.Name))
	drawText(screen, 0, 1, tcell.StyleDefault, fmt.Sprintf("targets %d/%d  %3.0f%%  %v  [1-9] lane  [q] quit",
		grid.CurrentTargetsCount(), grid.TotalTargetsCount(), frame.Progress*100, frame.Elapsed.Round(100*time.Millisecond)))

	switch frame.Outcome {
	case systems.OutcomeWin:
		banner := "CLEAR!  [r] retry"
		if nextID != "" {
			banner += "  [n] next"
		}
		drawText(screen, 2, v.laneTop-2, tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true), banner)
	case systems.OutcomeLose:
		drawText(screen, 2, v.laneTop-2, tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true), "NO MOVES LEFT  [r] retry")
	}

	screen.Show()
}
