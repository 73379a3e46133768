package scenes

import (
	"math"

	"github.com/gonewx/aimburst/pkg/config"
	"github.com/gonewx/aimburst/pkg/entities"
	"github.com/gonewx/aimburst/pkg/utils"
)

const (
	// 画面边距（像素）
	viewMargin = 24.0
	// HUD 占用的顶部高度
	hudHeight = 40.0
	// 每层楼向上偏移的比例（相对方块间距）
	floorLift = 0.35
	// 行队列在画面中显示的射手数
	visibleLaneDepth = 4
)

// Projection 世界坐标到屏幕坐标的俯视投影
//
// 世界 X 对应屏幕 X，世界 Z 对应屏幕 Y（Z 越大越靠下），
// 楼层高度 Y 表现为向上的少量偏移。
type Projection struct {
	MinX, MinZ float64
	Scale      float64 // 每个世界单位的像素数
	OffsetX    float64
	OffsetY    float64
}

// NewProjection 让网格、槽位与行队首都落在 width x height 的画面内
func NewProjection(cfg *config.LevelConfig, geo entities.Geometry, width, height int) Projection {
	s := cfg.CubeSpacing
	minX := -float64(len(cfg.Columns)-1)*s - s
	maxX := s
	for _, p := range []utils.Vec3{geo.SlotPosition(0), geo.LaneFront(0)} {
		minX = math.Min(minX, p.X-geo.SlotSpacing)
	}
	for _, p := range []utils.Vec3{geo.SlotPosition(geo.Slots - 1), geo.LaneFront(geo.Lanes - 1)} {
		maxX = math.Max(maxX, p.X+geo.SlotSpacing)
	}

	minZ := -cfg.DepthGate - s
	maxZ := geo.LaneStartZ
	for lane := range cfg.Lanes {
		maxZ = math.Max(maxZ, geo.LanePosition(lane, visibleLaneDepth-1).Z)
	}
	maxZ += s

	availW := float64(width) - 2*viewMargin
	availH := float64(height) - 2*viewMargin - hudHeight
	scale := math.Min(availW/(maxX-minX), availH/(maxZ-minZ))

	return Projection{
		MinX:    minX,
		MinZ:    minZ,
		Scale:   scale,
		OffsetX: viewMargin + (availW-(maxX-minX)*scale)/2,
		OffsetY: viewMargin + hudHeight,
	}
}

// ToScreen 把世界坐标投影到屏幕
func (p Projection) ToScreen(v utils.Vec3) (x, y float64) {
	x = p.OffsetX + (v.X-p.MinX)*p.Scale
	y = p.OffsetY + (v.Z-p.MinZ)*p.Scale - v.Y*floorLift*p.Scale
	return x, y
}

// Size 把世界长度换算为像素
func (p Projection) Size(worldLen float64) float64 {
	return worldLen * p.Scale
}

// LaneStrips 每一行的点击区域：从行队首上方到画面底部
func (p Projection) LaneStrips(geo entities.Geometry, screenHeight int) []utils.LaneStrip {
	strips := make([]utils.LaneStrip, geo.Lanes)
	for lane := 0; lane < geo.Lanes; lane++ {
		x, y := p.ToScreen(geo.LaneFront(lane))
		w := p.Size(geo.LaneSpacingX)
		top := y - p.Size(0.75)
		strips[lane] = utils.LaneStrip{
			Index:  lane,
			StartX: x - w/2,
			Width:  w,
			StartY: top,
			Height: float64(screenHeight) - top,
		}
	}
	return strips
}
