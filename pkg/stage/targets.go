package stage

import (
	"context"
	"fmt"
	"time"

	"github.com/gonewx/aimburst/pkg/ecs"
	"github.com/gonewx/aimburst/pkg/sched"
	"github.com/gonewx/aimburst/pkg/utils"
)

const (
	// dodgeDuration 误击闪避动画时长
	dodgeDuration = 250 * time.Millisecond
	// dodgeDistance 闪避的最大偏移
	dodgeDistance = 0.35
)

// TargetFx 方块的表现层状态
type TargetFx struct {
	Offset utils.Vec3 // 闪避偏移，叠加在网格坐标上
	Fade   float64    // 击毁淡出进度 [0,1]
}

type targetState struct {
	killedAt  time.Time
	killed    bool
	dodgeAt   time.Time
	dodgeDir  utils.Vec3
	dodgeSeen bool
}

// targetRig 方块表现层：击毁淡出与误击闪避
type targetRig struct {
	scheduler *sched.Scheduler
	states    map[ecs.EntityID]*targetState
}

func newTargetRig(s *sched.Scheduler) *targetRig {
	return &targetRig{scheduler: s, states: make(map[ecs.EntityID]*targetState)}
}

func (r *targetRig) state(id ecs.EntityID) *targetState {
	st, ok := r.states[id]
	if !ok {
		st = &targetState{}
		r.states[id] = st
	}
	return st
}

// Kill 方块淡出，信号在淡出结束时完成
func (r *targetRig) Kill(target ecs.EntityID) *sched.Signal {
	st := r.state(target)
	if st.killed {
		return sched.Completed()
	}
	st.killed = true
	st.killedAt = r.scheduler.Now()

	deadline := sched.After(st.killedAt, killFade)
	return r.scheduler.Go(fmt.Sprintf("target-%d-fade", target), sched.TaskFunc(func(ctx context.Context, now time.Time) (sched.Status, error) {
		if err := ctx.Err(); err != nil {
			return sched.Done, err
		}
		if deadline.Passed(now) {
			return sched.Done, nil
		}
		return sched.Yield, nil
	}))
}

// DodgeBullet 方块向子弹方向的侧面让开后回位
func (r *targetRig) DodgeBullet(target ecs.EntityID, dir utils.Vec3) *sched.Signal {
	st := r.state(target)
	side := dir.Cross(utils.Vec3{Y: 1})
	if side.Len() < 1e-9 {
		side = utils.Vec3{X: 1}
	}
	st.dodgeDir = side.Normalize()
	st.dodgeAt = r.scheduler.Now()
	st.dodgeSeen = true
	return sched.Completed()
}

func (r *targetRig) fx(id ecs.EntityID, now time.Time) TargetFx {
	st, ok := r.states[id]
	if !ok {
		return TargetFx{}
	}
	var fx TargetFx
	if st.killed {
		fx.Fade = sched.After(st.killedAt, killFade).Progress(st.killedAt, now)
	}
	if st.dodgeSeen {
		p := sched.After(st.dodgeAt, dodgeDuration).Progress(st.dodgeAt, now)
		if p < 1 {
			// 先让开再回位
			amount := 1 - (2*p-1)*(2*p-1)
			fx.Offset = st.dodgeDir.Scale(dodgeDistance * amount)
		}
	}
	return fx
}
