package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gonewx/aimburst/pkg/config"
	"github.com/gonewx/aimburst/pkg/game"
	"github.com/gonewx/aimburst/pkg/sched"
	"github.com/gonewx/aimburst/pkg/systems"
)

// Result 一次模拟的结果
type Result struct {
	LevelID string
	Run     int
	Outcome systems.Outcome // 超时时为 OutcomePending
	Elapsed time.Duration   // 模拟时间
	Clicks  int             // 被接受的点击数
	Frames  int
}

// Job 一次模拟任务
type Job struct {
	Level *config.LevelConfig
	Run   int
}

// simulateLevel 用手动时钟逐帧推进一局关卡，直到分出胜负或超过 maxSim
func simulateLevel(ctx context.Context, cfg *config.LevelConfig, strategy Strategy, step, maxSim time.Duration) (Result, error) {
	clock := sched.NewManualClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	level, err := game.NewLevel(ctx, cfg, game.Options{Clock: clock})
	if err != nil {
		return Result{}, err
	}
	defer level.Close()

	res := Result{LevelID: cfg.ID}
	for !level.Finished() && level.Elapsed() < maxSim {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		clock.Advance(step)
		if lane, ok := strategy.Choose(level); ok {
			accepted, err := level.Click(lane)
			if err != nil {
				return res, err
			}
			if accepted {
				res.Clicks++
			}
		}
		if err := level.Update(); err != nil {
			return res, err
		}
		res.Frames++
	}

	res.Outcome = level.Outcome()
	res.Elapsed = level.Elapsed()
	return res, nil
}

// runAll 并行执行所有任务，结果顺序与任务顺序一致
//
// 任意一局出现故障时取消其余任务并返回该故障。
func runAll(ctx context.Context, jobs []Job, cfg Config) ([]Result, error) {
	results := make([]Result, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, cfg.Parallel))

	for i, job := range jobs {
		g.Go(func() error {
			strategy, err := NewStrategy(cfg.Strategy, cfg.Seed+int64(i))
			if err != nil {
				return err
			}
			res, err := simulateLevel(ctx, job.Level, strategy, cfg.Step, cfg.MaxSimTime)
			if err != nil {
				return fmt.Errorf("level %s run %d: %w", job.Level.ID, job.Run, err)
			}
			res.Run = job.Run
			results[i] = res
			log.Printf("[Simulate] Level %s run %d: %s in %v (%d clicks)", res.LevelID, res.Run, outcomeLabel(res.Outcome), res.Elapsed, res.Clicks)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func outcomeLabel(o systems.Outcome) string {
	if o == systems.OutcomePending {
		return "timeout"
	}
	return o.String()
}
