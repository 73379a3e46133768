// Package scenes 提供 ebiten 桌面端的场景实现
package scenes

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/gonewx/aimburst/pkg/config"
	"github.com/gonewx/aimburst/pkg/game"
	"github.com/gonewx/aimburst/pkg/systems"
	"github.com/gonewx/aimburst/pkg/utils"
)

// 数字键 1-9 对应第 1-9 行
var laneKeys = []ebiten.Key{
	ebiten.Key1, ebiten.Key2, ebiten.Key3, ebiten.Key4, ebiten.Key5,
	ebiten.Key6, ebiten.Key7, ebiten.Key8, ebiten.Key9,
}

// LevelScene 一局关卡的画面与输入
type LevelScene struct {
	level        *game.Level
	sceneManager *game.SceneManager
	progress     *game.ProgressManager

	proj    Projection
	strips  []utils.LaneStrip
	width   int
	height  int
	nextID  string
	saved   bool
	lastHit int // 最近一次被接受点击的行，-1 表示无
}

// LevelSceneConfig 创建关卡场景所需的参数
type LevelSceneConfig struct {
	Level        *config.LevelConfig
	SceneManager *game.SceneManager
	Progress     *game.ProgressManager // 可为 nil，不记录成绩
	NextLevelID  string                // 为空表示没有下一关
	Width        int
	Height       int
}

// NewLevelScene 装配关卡并计算投影
func NewLevelScene(ctx context.Context, cfg LevelSceneConfig) (*LevelScene, error) {
	level, err := game.NewLevel(ctx, cfg.Level, game.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to create level %s: %w", cfg.Level.ID, err)
	}

	proj := NewProjection(cfg.Level, level.Geometry(), cfg.Width, cfg.Height)
	return &LevelScene{
		level:        level,
		sceneManager: cfg.SceneManager,
		progress:     cfg.Progress,
		proj:         proj,
		strips:       proj.LaneStrips(level.Geometry(), cfg.Height),
		width:        cfg.Width,
		height:       cfg.Height,
		nextID:       cfg.NextLevelID,
		lastHit:      -1,
	}, nil
}

// Update 处理输入并推进关卡
func (s *LevelScene) Update() error {
	if s.level.Finished() {
		return s.handleFinished()
	}

	if lane, ok := s.pressedLane(); ok {
		accepted, err := s.level.Click(lane)
		if err != nil {
			return err
		}
		if accepted {
			s.lastHit = lane
		}
	}

	if err := s.level.Update(); err != nil {
		return fmt.Errorf("level %s aborted: %w", s.level.Config().ID, err)
	}
	return nil
}

// pressedLane 本帧点中的行：鼠标、触摸或数字键
func (s *LevelScene) pressedLane() (int, bool) {
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		x, y := ebiten.CursorPosition()
		if lane, ok := utils.ScreenToLane(x, y, s.strips); ok {
			return lane, true
		}
	}
	for _, id := range inpututil.AppendJustPressedTouchIDs(nil) {
		x, y := ebiten.TouchPosition(id)
		if lane, ok := utils.ScreenToLane(x, y, s.strips); ok {
			return lane, true
		}
	}
	for i, key := range laneKeys {
		if i < len(s.strips) && inpututil.IsKeyJustPressed(key) {
			return i, true
		}
	}
	return 0, false
}

// handleFinished 结算后记录成绩，R 重玩，N/回车 进入下一关
func (s *LevelScene) handleFinished() error {
	// 结算后继续推进，让淡出动画播放完
	if err := s.level.Update(); err != nil {
		return err
	}

	if !s.saved {
		s.saved = true
		if s.progress != nil {
			won := s.level.Outcome() == systems.OutcomeWin
			if err := s.progress.RecordResult(s.level.Config().ID, won, s.level.Elapsed()); err != nil {
				log.Printf("[LevelScene] Warning: failed to save progress: %v", err)
			}
		}
	}

	if s.sceneManager == nil {
		return nil
	}
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyR):
		return s.sceneManager.LoadLevel(s.level.Config().ID)
	case s.nextID != "" && s.level.Outcome() == systems.OutcomeWin &&
		(inpututil.IsKeyJustPressed(ebiten.KeyN) || inpututil.IsKeyJustPressed(ebiten.KeyEnter)):
		return s.sceneManager.LoadLevel(s.nextID)
	}
	return nil
}

// Close 拆除关卡
func (s *LevelScene) Close() {
	s.level.Close()
}

// Level 当前关卡
func (s *LevelScene) Level() *game.Level {
	return s.level
}

// Draw 绘制网格、槽位、行队列、子弹与 HUD
func (s *LevelScene) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundColor)
	frame := s.level.Frame()

	s.drawBoard(screen)
	s.drawTargets(screen, frame)
	s.drawSlots(screen, frame)
	s.drawShooters(screen, frame)
	s.drawBullets(screen, frame)
	s.drawHUD(screen, frame)
}

func (s *LevelScene) drawBoard(screen *ebiten.Image) {
	for _, strip := range s.strips {
		clr := laneColor
		if strip.Index == s.lastHit && s.level.ClickBusy() {
			clr = lighten(laneColor, 0.15)
		}
		vector.DrawFilledRect(screen, float32(strip.StartX+2), float32(strip.StartY), float32(strip.Width-4), float32(strip.Height), clr, false)
	}

	// 索敌纵深门限：门限外的方块暂时无法被锁定
	cfg := s.level.Config()
	gateZ := cfg.Stage.SlotZ - cfg.DepthGate
	x0, y := s.proj.ToScreen(utils.Vec3{X: s.proj.MinX, Z: gateZ})
	x1 := float64(s.width) - viewMargin
	vector.StrokeLine(screen, float32(x0), float32(y), float32(x1), float32(y), 1, gateColor, false)
}

func (s *LevelScene) drawTargets(screen *ebiten.Image, frame game.Frame) {
	size := s.proj.Size(s.level.Config().CubeSpacing) * 0.86
	for _, t := range frame.Targets {
		x, y := s.proj.ToScreen(t.Pos)
		clr := ColorOf(t.Color)
		if t.Floor > 0 {
			clr = lighten(clr, 0.12*float64(t.Floor))
		}
		clr = fade(clr, t.Fade)
		vector.DrawFilledRect(screen, float32(x-size/2), float32(y-size/2), float32(size), float32(size), clr, false)
		vector.StrokeRect(screen, float32(x-size/2), float32(y-size/2), float32(size), float32(size), 1, fade(backgroundColor, t.Fade), false)
	}
}

func (s *LevelScene) drawSlots(screen *ebiten.Image, frame game.Frame) {
	geo := s.level.Geometry()
	size := s.proj.Size(geo.SlotSpacing) * 0.8
	for _, slot := range frame.Slots {
		x, y := s.proj.ToScreen(geo.SlotPosition(slot.Index))
		clr := slotColor
		if slot.Occupied {
			clr = slotBusyColor
		}
		vector.StrokeRect(screen, float32(x-size/2), float32(y-size/2), float32(size), float32(size), 2, clr, false)
	}
}

func (s *LevelScene) drawShooters(screen *ebiten.Image, frame game.Frame) {
	radius := s.proj.Size(s.level.Config().CubeSpacing) * 0.38
	for _, sh := range frame.Shooters {
		x, y := s.proj.ToScreen(sh.Pos)
		if y > float64(s.height)+radius {
			continue
		}
		clr := ColorOf(sh.Color)
		if sh.Hidden {
			clr = hiddenColor
		}
		if sh.Flash > 0 {
			clr = lighten(clr, 0.6*sh.Flash)
		}
		clr = fade(clr, sh.Fade)
		vector.DrawFilledCircle(screen, float32(x), float32(y), float32(radius), clr, true)
		if !sh.Hidden && sh.Fade == 0 {
			ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%d", sh.Ammo), int(x)-4, int(y)-8)
		}
	}
}

func (s *LevelScene) drawBullets(screen *ebiten.Image, frame game.Frame) {
	radius := float32(s.proj.Size(0.08) + 1)
	for _, b := range frame.Bullets {
		x, y := s.proj.ToScreen(b.Pos)
		vector.DrawFilledCircle(screen, float32(x), float32(y), radius, lighten(ColorOf(b.Color), 0.3), true)
	}
}

func (s *LevelScene) drawHUD(screen *ebiten.Image, frame game.Frame) {
	cfg := s.level.Config()
	grid := s.level.Grid()
	hud := fmt.Sprintf("Level %s  %s\nTargets %d/%d  Progress %3.0f%%  Time %v",
		cfg.ID, cfg.Name, grid.CurrentTargetsCount(), grid.TotalTargetsCount(),
		frame.Progress*100, frame.Elapsed.Round(100*time.Millisecond))
	ebitenutil.DebugPrintAt(screen, hud, int(viewMargin), 8)

	var banner string
	switch frame.Outcome {
	case systems.OutcomeWin:
		banner = "CLEAR!  [R] retry"
		if s.nextID != "" {
			banner += "  [N] next level"
		}
	case systems.OutcomeLose:
		banner = "NO MOVES LEFT  [R] retry"
	default:
		return
	}
	ebitenutil.DebugPrintAt(screen, banner, s.width/2-len(banner)*3, s.height/2)
}
