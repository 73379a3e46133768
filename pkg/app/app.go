// Package app 组装 ebiten 前端：嵌入关卡、进度存档与场景切换
// main.go 与 mobile 包共用同一个 App
package app

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/quasilyte/gdata/v2"

	"github.com/gonewx/aimburst/pkg/embedded"
	"github.com/gonewx/aimburst/pkg/game"
	"github.com/gonewx/aimburst/pkg/scenes"
)

// 逻辑画面尺寸
const (
	WindowWidth  = 800
	WindowHeight = 600
)

// Config 启动参数
type Config struct {
	Verbose bool   // 输出 [Component] 日志
	Level   string // 起始关卡；为空时取第一个未通关的关卡
}

// App 实现 ebiten.Game
type App struct {
	manager  *game.SceneManager
	progress *game.ProgressManager
	window   windowState
	cancel   context.CancelFunc
}

// NewApp 加载关卡列表与存档并进入起始关卡
// 调用前需先 embedded.Init()
func NewApp(cfg Config) (*App, error) {
	if !cfg.Verbose {
		log.SetOutput(io.Discard)
		log.SetFlags(0)
	}

	levelIDs, err := embedded.LevelIDs()
	if err != nil {
		return nil, fmt.Errorf("关卡列表加载失败: %w", err)
	}
	if len(levelIDs) == 0 {
		return nil, fmt.Errorf("没有可用的关卡")
	}

	// 存档不可用时降级为仅内存记录
	var gdataManager *gdata.Manager
	if m, err := gdata.Open(gdata.Config{AppName: "aimburst"}); err != nil {
		log.Printf("[App] Warning: progress storage unavailable: %v", err)
	} else {
		gdataManager = m
	}
	progress := game.NewProgressManager(gdataManager)

	ctx, cancel := context.WithCancel(context.Background())
	sceneManager := game.NewSceneManager()
	sceneManager.SetSceneFactory(func(levelID string) (game.Scene, error) {
		levelCfg, err := embedded.LoadLevel(levelID)
		if err != nil {
			return nil, err
		}
		return scenes.NewLevelScene(ctx, scenes.LevelSceneConfig{
			Level:        levelCfg,
			SceneManager: sceneManager,
			Progress:     progress,
			NextLevelID:  nextLevel(levelIDs, levelID),
			Width:        WindowWidth,
			Height:       WindowHeight,
		})
	})

	start := cfg.Level
	if start == "" {
		start = firstUncleared(levelIDs, progress)
	}
	log.Printf("[App] Starting level %s of %d", start, len(levelIDs))
	if err := sceneManager.LoadLevel(start); err != nil {
		cancel()
		return nil, err
	}

	return &App{
		manager:  sceneManager,
		progress: progress,
		cancel:   cancel,
	}, nil
}

// nextLevel 列表中 id 之后的关卡，没有时返回空
func nextLevel(ids []string, id string) string {
	for i, v := range ids {
		if v == id && i+1 < len(ids) {
			return ids[i+1]
		}
	}
	return ""
}

// firstUncleared 第一个尚未通关的关卡；全部通关时回到第一关
func firstUncleared(ids []string, progress *game.ProgressManager) string {
	for _, id := range ids {
		if !progress.Record(id).Cleared() {
			return id
		}
	}
	return ids[0]
}

func (a *App) Update() error {
	a.window.update()
	return a.manager.Update()
}

func (a *App) Draw(screen *ebiten.Image) {
	a.manager.Draw(screen)
}

// DrawFinalScreen 全屏时以背景色填充 letterbox
func (a *App) DrawFinalScreen(screen ebiten.FinalScreen, offscreen *ebiten.Image, geoM ebiten.GeoM) {
	a.window.drawFinal(screen, offscreen, geoM)
}

func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) {
	return WindowWidth, WindowHeight
}

// Shutdown 窗口关闭时拆除当前关卡并保存进度
func (a *App) Shutdown() {
	a.cancel()
	if err := a.progress.Save(); err != nil {
		log.Printf("[App] Warning: failed to save progress on exit: %v", err)
	}
}
