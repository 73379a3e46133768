// simulate 无头批量模拟关卡，用于检查关卡可解性与平衡
//
// 配置先从 AIMBURST_* 环境变量读取默认值，再由命令行参数覆盖：
//
//	AIMBURST_RUNS=20 go run ./cmd/simulate -strategy random -levels data/levels
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/gonewx/aimburst/pkg/config"
	"github.com/gonewx/aimburst/pkg/systems"
)

// Config 模拟参数
type Config struct {
	LevelsDir  string        `env:"AIMBURST_LEVELS_DIR" envDefault:"data/levels"`
	Levels     []string      `env:"AIMBURST_LEVELS" envSeparator:","`
	Runs       int           `env:"AIMBURST_RUNS" envDefault:"1"`
	Parallel   int           `env:"AIMBURST_PARALLEL" envDefault:"4"`
	Strategy   string        `env:"AIMBURST_STRATEGY" envDefault:"greedy"`
	Seed       int64         `env:"AIMBURST_SEED" envDefault:"1"`
	Step       time.Duration `env:"AIMBURST_STEP" envDefault:"16ms"`
	MaxSimTime time.Duration `env:"AIMBURST_MAX_SIM_TIME" envDefault:"5m"`
	Verbose    bool          `env:"AIMBURST_VERBOSE"`
}

// parseConfig 先读环境变量，再解析命令行参数
func parseConfig(args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	fs.StringVar(&cfg.LevelsDir, "levels", cfg.LevelsDir, "关卡目录")
	only := fs.String("only", strings.Join(cfg.Levels, ","), "只模拟这些关卡ID（逗号分隔），为空则模拟全部")
	fs.IntVar(&cfg.Runs, "runs", cfg.Runs, "每个关卡的模拟次数")
	fs.IntVar(&cfg.Parallel, "parallel", cfg.Parallel, "并行数")
	fs.StringVar(&cfg.Strategy, "strategy", cfg.Strategy, "点击策略：greedy、random 或 idle")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "随机策略的种子")
	fs.DurationVar(&cfg.Step, "step", cfg.Step, "每帧的模拟时间")
	fs.DurationVar(&cfg.MaxSimTime, "max-sim-time", cfg.MaxSimTime, "单局最长模拟时间")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "输出详细日志")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	cfg.Levels = nil
	for _, id := range strings.Split(*only, ",") {
		if id = strings.TrimSpace(id); id != "" {
			cfg.Levels = append(cfg.Levels, id)
		}
	}
	if cfg.Runs < 1 {
		return cfg, fmt.Errorf("runs must be at least 1, got %d", cfg.Runs)
	}
	if cfg.Step <= 0 {
		return cfg, fmt.Errorf("step must be positive, got %v", cfg.Step)
	}
	return cfg, nil
}

// loadJobs 加载关卡并展开为任务列表
func loadJobs(cfg Config) ([]Job, error) {
	ids := cfg.Levels
	if len(ids) == 0 {
		files, err := filepath.Glob(filepath.Join(cfg.LevelsDir, "*.yaml"))
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			ids = append(ids, strings.TrimSuffix(filepath.Base(f), ".yaml"))
		}
		sort.Strings(ids)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no levels found in %s", cfg.LevelsDir)
	}

	var jobs []Job
	for _, id := range ids {
		levelCfg, err := config.LoadLevelConfig(filepath.Join(cfg.LevelsDir, id+".yaml"))
		if err != nil {
			return nil, err
		}
		for run := 1; run <= cfg.Runs; run++ {
			jobs = append(jobs, Job{Level: levelCfg, Run: run})
		}
	}
	return jobs, nil
}

// printSummary 按关卡汇总胜率与平均通关时间
func printSummary(w io.Writer, results []Result) {
	type summary struct {
		runs, wins, losses, timeouts int
		winTime                      time.Duration
	}
	var order []string
	byLevel := make(map[string]*summary)
	for _, r := range results {
		s, ok := byLevel[r.LevelID]
		if !ok {
			s = &summary{}
			byLevel[r.LevelID] = s
			order = append(order, r.LevelID)
		}
		s.runs++
		switch r.Outcome {
		case systems.OutcomeWin:
			s.wins++
			s.winTime += r.Elapsed
		case systems.OutcomeLose:
			s.losses++
		default:
			s.timeouts++
		}
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LEVEL\tRUNS\tWIN\tLOSE\tTIMEOUT\tAVG CLEAR")
	for _, id := range order {
		s := byLevel[id]
		avg := "-"
		if s.wins > 0 {
			avg = (s.winTime / time.Duration(s.wins)).Round(time.Millisecond).String()
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%s\n", id, s.runs, s.wins, s.losses, s.timeouts, avg)
	}
	tw.Flush()
}

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("simulate: %v", err)
	}
	if !cfg.Verbose {
		log.SetOutput(io.Discard)
	}

	jobs, err := loadJobs(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "simulate: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := runAll(ctx, jobs, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "simulate: %v\n", err)
		os.Exit(1)
	}
	printSummary(os.Stdout, results)
}
