// aimburst-tui 在终端中游玩 AimBurst 关卡
//
// 用法：
//
//	go run ./cmd/aimburst-tui -level 2
//	go run ./cmd/aimburst-tui -levels ./data/levels -level 3 -log tui.log
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/quasilyte/gdata/v2"

	"github.com/gonewx/aimburst/pkg/config"
	"github.com/gonewx/aimburst/pkg/game"
	"github.com/gonewx/aimburst/pkg/systems"
)

const frameInterval = 16 * time.Millisecond // ~60 FPS

func main() {
	levelsDir := flag.String("levels", "data/levels", "关卡目录")
	levelID := flag.String("level", "1", "关卡ID")
	logPath := flag.String("log", "", "日志文件路径，为空则不输出日志")
	flag.Parse()

	// 终端被画面占用，日志只能写入文件
	log.SetOutput(io.Discard)
	if *logPath != "" {
		f, err := os.Create(*logPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "无法创建日志文件: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		log.SetOutput(f)
	}

	if err := run(*levelsDir, *levelID); err != nil {
		fmt.Fprintf(os.Stderr, "aimburst-tui: %v\n", err)
		os.Exit(1)
	}
}

// session 终端游玩状态：当前关卡与关卡列表
type session struct {
	dir      string
	ids      []string
	progress *game.ProgressManager

	ctx    context.Context
	level  *game.Level
	view   view
	nextID string
	saved  bool
}

func run(dir, levelID string) error {
	ids, err := listLevels(dir)
	if err != nil {
		return err
	}

	var gdataManager *gdata.Manager
	if m, err := gdata.Open(gdata.Config{AppName: "aimburst"}); err != nil {
		log.Printf("[TUI] Warning: progress storage unavailable: %v", err)
	} else {
		gdataManager = m
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()
	screen.EnableMouse()
	screen.HideCursor()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &session{dir: dir, ids: ids, progress: game.NewProgressManager(gdataManager), ctx: ctx}
	if err := s.load(levelID, screen); err != nil {
		return err
	}

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			eventChan <- ev
		}
	}()

	for {
		select {
		case ev := <-eventChan:
			quit, err := s.handleEvent(ev, screen)
			if err != nil || quit {
				s.level.Close()
				return err
			}
		case <-ticker.C:
			if err := s.update(); err != nil {
				return err
			}
			render(screen, s.level, s.view, s.nextID)
		}
	}
}

// listLevels 目录下所有关卡ID，按自然顺序排列
func listLevels(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no levels found in %s", dir)
	}
	ids := make([]string, 0, len(files))
	for _, f := range files {
		ids = append(ids, strings.TrimSuffix(filepath.Base(f), ".yaml"))
	}
	sort.Slice(ids, func(i, j int) bool {
		if len(ids[i]) != len(ids[j]) {
			return len(ids[i]) < len(ids[j])
		}
		return ids[i] < ids[j]
	})
	return ids, nil
}

func (s *session) load(id string, screen tcell.Screen) error {
	cfg, err := config.LoadLevelConfig(filepath.Join(s.dir, id+".yaml"))
	if err != nil {
		return err
	}
	level, err := game.NewLevel(s.ctx, cfg, game.Options{})
	if err != nil {
		return err
	}
	if s.level != nil {
		s.level.Close()
	}
	s.level = level
	s.saved = false
	s.nextID = ""
	for i, v := range s.ids {
		if v == id && i+1 < len(s.ids) {
			s.nextID = s.ids[i+1]
		}
	}
	w, h := screen.Size()
	s.view = newView(level, w, h)
	return nil
}

func (s *session) update() error {
	if err := s.level.Update(); err != nil {
		return fmt.Errorf("level %s aborted: %w", s.level.Config().ID, err)
	}
	if s.level.Finished() && !s.saved {
		s.saved = true
		won := s.level.Outcome() == systems.OutcomeWin
		if err := s.progress.RecordResult(s.level.Config().ID, won, s.level.Elapsed()); err != nil {
			log.Printf("[TUI] Warning: failed to save progress: %v", err)
		}
	}
	return nil
}

// handleEvent 处理按键、鼠标与窗口尺寸变化，返回是否退出
func (s *session) handleEvent(ev tcell.Event, screen tcell.Screen) (bool, error) {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			return true, nil
		}
		if ev.Key() != tcell.KeyRune {
			return false, nil
		}
		switch r := ev.Rune(); {
		case r == 'q':
			return true, nil
		case r == 'r':
			return false, s.load(s.level.Config().ID, screen)
		case r == 'n' && s.nextID != "" && s.level.Outcome() == systems.OutcomeWin:
			return false, s.load(s.nextID, screen)
		case r >= '1' && r <= '9':
			_, err := s.level.Click(int(r - '1'))
			return false, err
		}
	case *tcell.EventMouse:
		if ev.Buttons()&tcell.Button1 != 0 {
			x, y := ev.Position()
			if lane, ok := s.view.laneAt(x, y); ok {
				_, err := s.level.Click(lane)
				return false, err
			}
		}
	case *tcell.EventResize:
		w, h := screen.Size()
		s.view = newView(s.level, w, h)
		screen.Sync()
	}
	return false, nil
}
