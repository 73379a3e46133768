package game

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gonewx/aimburst/pkg/config"
	"github.com/gonewx/aimburst/pkg/ecs"
	"github.com/gonewx/aimburst/pkg/entities"
	"github.com/gonewx/aimburst/pkg/sched"
	"github.com/gonewx/aimburst/pkg/stage"
	"github.com/gonewx/aimburst/pkg/systems"
	"github.com/gonewx/aimburst/pkg/utils"
)

// Collaborators 核心逻辑驱动的外部协作者
type Collaborators struct {
	Shooters systems.ShooterPresenter
	Targets  systems.TargetPresenter
	Merger   systems.MergeAnimator

	// OnGridReady 网格创建后回调，用于把命中上报接回表现层
	OnGridReady func(grid *systems.TargetGrid)
}

// CollaboratorFactory 在网格与射手创建之前构造协作者
type CollaboratorFactory func(s *sched.Scheduler, em *ecs.EntityManager, cfg *config.LevelConfig) (Collaborators, error)

// Options 关卡运行选项
type Options struct {
	Clock         sched.Clock         // nil 时使用墙钟
	Collaborators CollaboratorFactory // nil 时使用无头表现层 stage.Stage
	Progress      systems.ProgressSink
}

// Level 一局关卡：按依赖顺序自底向上装配核心组件，并由 Update 驱动调度器
//
// 装配顺序：调度器 -> 实体 -> 协作者 -> 列下移 -> 网格 -> 射手行与配对 ->
// 槽位表 -> 发射器 -> 点击分发 -> 胜负观察。
type Level struct {
	cfg       *config.LevelConfig
	em        *ecs.EntityManager
	scheduler *sched.Scheduler
	stage     *stage.Stage
	geo       entities.Geometry

	shifter   *systems.ColumnShifter
	grid      *systems.TargetGrid
	pairs     *systems.PairingTable
	slots     *systems.SlotTable
	dispenser *systems.Dispenser
	lanes     []*systems.LaneQueue
	clicks    *systems.ClickDispatcher
	reporter  *systems.ProgressReporter

	outcome    *sched.Future[systems.Outcome]
	fault      error // 点击处理中的致命错误
	startedAt  time.Time
	finishedAt time.Time
	announced  bool
}

// StageCollaborators 默认协作者：无头运动学表现层
func StageCollaborators(st *stage.Stage) Collaborators {
	return Collaborators{
		Shooters: st,
		Targets:  st.Targets(),
		Merger:   st,
		OnGridReady: func(grid *systems.TargetGrid) {
			st.BindGrid(grid)
		},
	}
}

// NewLevel 装配关卡
//
// 参数：
//   - ctx: 父 context，取消时关卡内所有任务结束
//   - cfg: 已校验的关卡配置
//   - opts: 时钟、协作者与进度输出
func NewLevel(ctx context.Context, cfg *config.LevelConfig, opts Options) (*Level, error) {
	if cfg == nil {
		return nil, fmt.Errorf("level config cannot be nil")
	}

	s := sched.NewScheduler(ctx, opts.Clock)
	em := ecs.NewEntityManager()
	l := &Level{cfg: cfg, em: em, scheduler: s}

	var collab Collaborators
	if opts.Collaborators == nil {
		st, err := stage.New(s, em, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create stage: %w", err)
		}
		l.stage = st
		collab = StageCollaborators(st)
	} else {
		var err error
		if collab, err = opts.Collaborators(s, em, cfg); err != nil {
			return nil, fmt.Errorf("failed to create collaborators: %w", err)
		}
	}
	if collab.Targets == nil {
		return nil, fmt.Errorf("level target presenter: %w", systems.ErrMissingCollaborator)
	}

	ease, ok := utils.EasingByName(cfg.ColumnShift.Curve)
	if !ok {
		log.Printf("[Level] Warning: unknown shift curve %q, using linear", cfg.ColumnShift.Curve)
	}
	l.shifter = systems.NewColumnShifter(s, cfg.ColumnShift.Offset, cfg.ShiftDelay(), cfg.ShiftDuration(), ease)

	layout, err := entities.BuildGrid(em, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build grid: %w", err)
	}
	if l.grid, err = systems.NewTargetGrid(em, layout, cfg.DepthGate, l.shifter, collab.Targets); err != nil {
		return nil, fmt.Errorf("failed to create target grid: %w", err)
	}
	if collab.OnGridReady != nil {
		collab.OnGridReady(l.grid)
	}

	l.geo = entities.NewGeometry(cfg)
	laneIDs, err := entities.BuildLanes(em, cfg, l.geo)
	if err != nil {
		return nil, fmt.Errorf("failed to build lanes: %w", err)
	}
	l.pairs = systems.NewPairingTable()
	if err := entities.BuildPairs(cfg, laneIDs, l.pairs); err != nil {
		return nil, fmt.Errorf("failed to build pairs: %w", err)
	}

	l.slots = systems.NewSlotTable(em, l.pairs, cfg.Slots)
	l.dispenser, err = systems.NewDispenser(systems.DispenserConfig{
		Scheduler:    s,
		Entities:     em,
		Slots:        l.slots,
		Pairs:        l.pairs,
		Locator:      l.grid,
		Shooters:     collab.Shooters,
		Merger:       collab.Merger,
		ReleaseDelay: cfg.ReleaseDelay(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create dispenser: %w", err)
	}

	l.lanes = make([]*systems.LaneQueue, len(laneIDs))
	for i, ids := range laneIDs {
		l.lanes[i] = systems.NewLaneQueue(i, cfg.Lanes[i].Spacing, ids, em, s, collab.Shooters)
	}
	if l.clicks, err = systems.NewClickDispatcher(s, em, l.lanes, l.pairs, l.dispenser, cfg.ClickGate()); err != nil {
		return nil, fmt.Errorf("failed to create click dispatcher: %w", err)
	}

	observer := systems.NewOutcomeObserver(s, l.grid, l.slots, cfg.LoseConfirm(), cfg.LosePoll())
	l.outcome = observer.Observe()
	l.reporter = systems.NewProgressReporter(l.grid, opts.Progress)
	l.reporter.Update()
	l.startedAt = s.Now()

	log.Printf("[Level] Level %s (%s) ready: %d targets, %d lanes, %d slots",
		cfg.ID, cfg.Name, l.grid.TotalTargetsCount(), len(l.lanes), cfg.Slots)
	return l, nil
}

// Update 推进一帧：调度所有任务并刷新进度
//
// 任务故障会取消整个关卡；故障在这里记录并原样返回。
func (l *Level) Update() error {
	if err := l.scheduler.Tick(); err != nil {
		log.Printf("[Level] ERROR: level %s aborted: %v", l.cfg.ID, err)
		return err
	}
	l.reporter.Update()

	if !l.announced && l.outcome.Done() {
		l.announced = true
		l.finishedAt = l.scheduler.Now()
		log.Printf("[Level] Level %s finished: %s after %v", l.cfg.ID, l.outcome.Value(), l.Elapsed().Round(time.Millisecond))
	}
	return nil
}

// Click 玩家点击某一行
//
// 返回是否被接受：点击冷却中或行索引越界时返回 false。
// 致命错误与任务故障一样中止关卡。
func (l *Level) Click(lane int) (bool, error) {
	if l.Finished() || l.Err() != nil {
		return false, nil
	}
	accepted, err := l.clicks.HandleClick(lane)
	if err != nil {
		log.Printf("[Level] ERROR: level %s aborted on click lane %d: %v", l.cfg.ID, lane, err)
		l.fault = fmt.Errorf("click lane %d: %w", lane, err)
		l.scheduler.Cancel()
		return false, l.fault
	}
	return accepted, nil
}

// Outcome 当前胜负状态
func (l *Level) Outcome() systems.Outcome {
	if !l.outcome.Done() || l.outcome.Err() != nil {
		return systems.OutcomePending
	}
	return l.outcome.Value()
}

// Finished 是否已分出胜负
func (l *Level) Finished() bool {
	return l.Outcome() != systems.OutcomePending
}

// Elapsed 关卡已进行的时长，分出胜负后固定
func (l *Level) Elapsed() time.Duration {
	if !l.finishedAt.IsZero() {
		return l.finishedAt.Sub(l.startedAt)
	}
	return l.scheduler.Now().Sub(l.startedAt)
}

// Close 拆除关卡，所有任务在下一次调度时结束
func (l *Level) Close() {
	l.scheduler.Cancel()
	log.Printf("[Level] Level %s closed", l.cfg.ID)
}

// Err 导致关卡中止的故障
func (l *Level) Err() error {
	if l.fault != nil {
		return l.fault
	}
	return l.scheduler.Err()
}

// Config 关卡配置
func (l *Level) Config() *config.LevelConfig { return l.cfg }

// Entities 实体管理器
func (l *Level) Entities() *ecs.EntityManager { return l.em }

// Stage 默认表现层；使用自定义协作者时为 nil
func (l *Level) Stage() *stage.Stage { return l.stage }

// Geometry 世界坐标布局
func (l *Level) Geometry() entities.Geometry { return l.geo }

// Grid 目标网格
func (l *Level) Grid() *systems.TargetGrid { return l.grid }

// Shifter 列下移
func (l *Level) Shifter() *systems.ColumnShifter { return l.shifter }

// Slots 槽位表
func (l *Level) Slots() *systems.SlotTable { return l.slots }

// Lanes 射手行
func (l *Level) Lanes() []*systems.LaneQueue { return l.lanes }

// ClickBusy 点击是否处于处理或冷却中
func (l *Level) ClickBusy() bool { return l.clicks.Busy() }

// Progress 当前进度 [0,1]
func (l *Level) Progress() float64 { return l.reporter.Progress() }
