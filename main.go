package main

import (
	"flag"
	"log"
	"os"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/gonewx/aimburst/pkg/app"
	"github.com/gonewx/aimburst/pkg/embedded"
)

func main() {
	level := flag.String("level", "", "要加载的关卡ID（如 2），为空则从第一个未通关的关卡开始")
	verbose := flag.Bool("verbose", false, "启用详细日志输出")
	flag.Parse()

	// 初始化嵌入关卡数据
	embedded.Init(dataFS)

	gameApp, err := app.NewApp(app.Config{
		Verbose: *verbose,
		Level:   *level,
	})
	if err != nil {
		log.SetOutput(os.Stderr)
		log.Fatalf("游戏初始化失败: %v", err)
	}
	defer gameApp.Shutdown()

	ebiten.SetWindowSize(app.WindowWidth, app.WindowHeight)
	ebiten.SetWindowTitle("AimBurst")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(gameApp); err != nil {
		log.SetOutput(os.Stderr)
		log.Printf("游戏异常退出: %v", err)
		gameApp.Shutdown()
		os.Exit(1)
	}
}
