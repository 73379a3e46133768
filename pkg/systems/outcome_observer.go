package systems

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/gonewx/aimburst/pkg/sched"
)

// Outcome 关卡结果
type Outcome int

const (
	// OutcomePending 尚未结束
	OutcomePending Outcome = iota
	// OutcomeWin 所有目标已清除
	OutcomeWin
	// OutcomeLose 所有槽位持续不活跃
	OutcomeLose
)

// String 返回结果名称
func (o Outcome) String() string {
	switch o {
	case OutcomeWin:
		return "win"
	case OutcomeLose:
		return "lose"
	default:
		return "pending"
	}
}

// OutcomeObserver 胜负判定：胜利与失败两个观察任务竞争，先完成者结束关卡并取消另一方
type OutcomeObserver struct {
	scheduler *sched.Scheduler
	targets   TargetCounter
	slots     *SlotTable
	confirm   time.Duration
	poll      time.Duration
}

// NewOutcomeObserver 创建胜负观察器
func NewOutcomeObserver(s *sched.Scheduler, targets TargetCounter, slots *SlotTable, confirm, poll time.Duration) *OutcomeObserver {
	return &OutcomeObserver{
		scheduler: s,
		targets:   targets,
		slots:     slots,
		confirm:   confirm,
		poll:      poll,
	}
}

// ObserveWin 当前目标数归零时完成
func (o *OutcomeObserver) ObserveWin(ctx context.Context) *sched.Signal {
	return o.scheduler.GoWithContext(ctx, "observe-win", sched.TaskFunc(func(ctx context.Context, now time.Time) (sched.Status, error) {
		if err := ctx.Err(); err != nil {
			return sched.Done, err
		}
		if o.targets.CurrentTargetsCount() == 0 {
			return sched.Done, nil
		}
		return sched.Yield, nil
	}))
}

// ObserveLose 所有槽位在确认窗口内持续 inactive 时完成
func (o *OutcomeObserver) ObserveLose(ctx context.Context) *sched.Signal {
	return o.slots.ObserveSlotsInactive(ctx, o.scheduler, o.confirm, o.poll)
}

// Observe 启动胜负竞争，返回最终结果
func (o *OutcomeObserver) Observe() *sched.Future[Outcome] {
	ctx, cancel := context.WithCancel(o.scheduler.Context())
	win := o.ObserveWin(ctx)
	lose := o.ObserveLose(ctx)
	result := sched.NewFuture[Outcome]()

	o.scheduler.Go("outcome", sched.TaskFunc(func(rootCtx context.Context, now time.Time) (sched.Status, error) {
		if err := rootCtx.Err(); err != nil {
			cancel()
			return sched.Done, err
		}

		var outcome Outcome
		switch {
		case win.Done() && win.Err() == nil:
			outcome = OutcomeWin
		case lose.Done() && lose.Err() == nil:
			outcome = OutcomeLose
		default:
			return sched.Yield, nil
		}

		cancel()
		log.Printf("[OutcomeObserver] Level resolved: %s", outcome)
		result.Resolve(outcome)
		return sched.Done, nil
	}))

	return result
}

// ProgressReporter 将关卡进度 1 - current/total 推送给 ProgressSink，
// 只有变化超过阈值时才推送
type ProgressReporter struct {
	targets  TargetCounter
	sink     ProgressSink
	last     float64
	reported bool
}

// progressEpsilon 进度推送阈值
const progressEpsilon = 1e-4

// NewProgressReporter 创建进度上报器，sink 可以为 nil
func NewProgressReporter(targets TargetCounter, sink ProgressSink) *ProgressReporter {
	return &ProgressReporter{targets: targets, sink: sink}
}

// Progress 计算当前进度
func (r *ProgressReporter) Progress() float64 {
	total := r.targets.TotalTargetsCount()
	current := r.targets.CurrentTargetsCount()
	if total <= 0 || current <= 0 {
		return 1
	}
	return 1 - float64(current)/float64(total)
}

// Update 重新计算进度，变化足够大时推送，返回当前进度
func (r *ProgressReporter) Update() float64 {
	p := r.Progress()
	if r.reported && math.Abs(p-r.last) < progressEpsilon {
		return r.last
	}
	r.last = p
	r.reported = true
	if r.sink != nil {
		r.sink.SetProgress(p)
	}
	return p
}
