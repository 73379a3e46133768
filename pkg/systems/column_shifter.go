package systems

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gonewx/aimburst/pkg/sched"
	"github.com/gonewx/aimburst/pkg/utils"
)

// ColumnShifter 列下移动画触发器
//
// 每次 MoveDown 让列沿 +Z 再前进一个 offset，目标位移在上一次目标上累加。
// 若该列已有下移在进行，取消它并以零延迟立即重新开始（重启式防抖，不排队）。
type ColumnShifter struct {
	mu sync.Mutex

	scheduler *sched.Scheduler
	offset    float64
	delay     time.Duration
	duration  time.Duration
	ease      utils.EasingFunc

	columns map[int]*columnShift
}

type columnShift struct {
	current float64 // 当前位移
	target  float64 // 累计目标位移
	ctx     context.Context // 当前补间的 context，补间结束后即取消
	cancel  context.CancelFunc
	gen     int
}

// NewColumnShifter 创建列下移器
func NewColumnShifter(s *sched.Scheduler, offset float64, delay, duration time.Duration, ease utils.EasingFunc) *ColumnShifter {
	if ease == nil {
		ease = utils.EaseLinear
	}
	return &ColumnShifter{
		scheduler: s,
		offset:    offset,
		delay:     delay,
		duration:  duration,
		ease:      ease,
		columns:   make(map[int]*columnShift),
	}
}

// MoveDown 让 column 再下移一格
func (cs *ColumnShifter) MoveDown(column int) {
	cs.mu.Lock()
	st, ok := cs.columns[column]
	if !ok {
		st = &columnShift{}
		cs.columns[column] = st
	}

	delay := cs.delay
	if st.cancel != nil {
		st.cancel()
		delay = 0
		log.Printf("[ColumnShifter] Column %d shift restarted", column)
	}

	from := st.current
	st.target += cs.offset
	to := st.target
	st.gen++
	gen := st.gen

	ctx, cancel := context.WithCancel(cs.scheduler.Context())
	st.ctx, st.cancel = ctx, cancel
	cs.mu.Unlock()

	cs.scheduler.GoWithContext(ctx, fmt.Sprintf("column-shift-%d", column), cs.tween(column, gen, from, to, delay))
}

func (cs *ColumnShifter) tween(column, gen int, from, to float64, delay time.Duration) sched.TaskFunc {
	var started bool
	var begin time.Time
	var end sched.Deadline

	return func(ctx context.Context, now time.Time) (sched.Status, error) {
		if err := ctx.Err(); err != nil {
			return sched.Done, err
		}
		if !started {
			started = true
			begin = now.Add(delay)
			end = sched.After(begin, cs.duration)
		}
		if now.Before(begin) {
			return sched.Yield, nil
		}

		t := cs.ease(end.Progress(begin, now))
		finished := end.Passed(now)

		cs.mu.Lock()
		defer cs.mu.Unlock()

		st := cs.columns[column]
		if st.gen != gen {
			return sched.Done, nil
		}
		st.current = utils.Lerp(from, to, t)
		if finished {
			st.current = to
			st.cancel()
			st.cancel = nil
			return sched.Done, nil
		}
		return sched.Yield, nil
	}
}

// Displacement 列当前的下移位移
func (cs *ColumnShifter) Displacement(column int) utils.Vec3 {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if st, ok := cs.columns[column]; ok {
		return utils.Forward.Scale(st.current)
	}
	return utils.Vec3{}
}

// InFlight 该列是否正在下移
func (cs *ColumnShifter) InFlight(column int) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	st, ok := cs.columns[column]
	return ok && st.cancel != nil
}
