package main

import (
	"fmt"
	"math/rand"

	"github.com/gonewx/aimburst/pkg/components"
	"github.com/gonewx/aimburst/pkg/ecs"
	"github.com/gonewx/aimburst/pkg/game"
	"github.com/gonewx/aimburst/pkg/types"
)

// Strategy 自动点击策略，每帧询问一次要点击的行
type Strategy interface {
	Choose(level *game.Level) (lane int, ok bool)
}

// NewStrategy 按名称创建策略
//
// 支持的名称：greedy（按前排颜色匹配）、random（随机点击）、idle（从不点击）
func NewStrategy(name string, seed int64) (Strategy, error) {
	switch name {
	case "greedy":
		return greedyStrategy{}, nil
	case "random":
		return &randomStrategy{rng: rand.New(rand.NewSource(seed))}, nil
	case "idle":
		return idleStrategy{}, nil
	}
	return nil, fmt.Errorf("unknown strategy %q (want greedy, random or idle)", name)
}

// canClick 点击冷却结束且还有空槽位
func canClick(level *game.Level) bool {
	if level.ClickBusy() {
		return false
	}
	return level.Slots().OccupiedCount() < level.Slots().TotalSlots()
}

// laneColor 行队首射手的颜色
func laneColor(level *game.Level, lane int) (types.TargetColor, bool) {
	id, ok := level.Lanes()[lane].Peek()
	if !ok {
		return types.ColorUnknown, false
	}
	sc, ok := ecs.GetComponent[*components.ShooterComponent](level.Entities(), id)
	if !ok {
		return types.ColorUnknown, false
	}
	return sc.Color, true
}

// gridColors 统计网格中的颜色：front 只计各列队首，all 计全部
func gridColors(level *game.Level) (front, all map[types.TargetColor]int) {
	front = make(map[types.TargetColor]int)
	all = make(map[types.TargetColor]int)
	em := level.Entities()
	for _, floor := range level.Grid().Cells() {
		for _, queue := range floor {
			for depth, cell := range queue {
				if !cell.Occupied {
					continue
				}
				tc, ok := ecs.GetComponent[*components.TargetComponent](em, cell.Target)
				if !ok {
					continue
				}
				all[tc.Color]++
				if depth == 0 {
					front[tc.Color]++
				}
			}
		}
	}
	return front, all
}

// greedyStrategy 优先派出颜色与前排方块匹配最多的行
type greedyStrategy struct{}

func (greedyStrategy) Choose(level *game.Level) (int, bool) {
	if !canClick(level) {
		return 0, false
	}
	front, all := gridColors(level)

	best, bestScore := -1, 0
	fallback := -1
	for lane := range level.Lanes() {
		color, ok := laneColor(level, lane)
		if !ok {
			continue
		}
		if score := front[color]; score > bestScore {
			best, bestScore = lane, score
		}
		if fallback < 0 && all[color] > 0 {
			fallback = lane
		}
	}
	if best >= 0 {
		return best, true
	}

	// 前排没有匹配时至少留一个空槽位
	free := level.Slots().TotalSlots() - level.Slots().OccupiedCount()
	if fallback >= 0 && free >= 2 {
		return fallback, true
	}
	return 0, false
}

// randomStrategy 随机点击有射手的行
type randomStrategy struct {
	rng *rand.Rand
}

func (r *randomStrategy) Choose(level *game.Level) (int, bool) {
	if !canClick(level) {
		return 0, false
	}
	var lanes []int
	for lane, q := range level.Lanes() {
		if q.CurrentShootersCount() > 0 {
			lanes = append(lanes, lane)
		}
	}
	if len(lanes) == 0 {
		return 0, false
	}
	return lanes[r.rng.Intn(len(lanes))], true
}

// idleStrategy 从不点击，用于验证超时处理
type idleStrategy struct{}

func (idleStrategy) Choose(*game.Level) (int, bool) { return 0, false }
