package stage

import (
	"context"
	"fmt"
	"time"

	"github.com/gonewx/aimburst/pkg/components"
	"github.com/gonewx/aimburst/pkg/ecs"
	"github.com/gonewx/aimburst/pkg/sched"
	"github.com/gonewx/aimburst/pkg/systems"
	"github.com/gonewx/aimburst/pkg/utils"
)

// motion 沿路径的定时移动
type motion struct {
	stage    *Stage
	id       ecs.EntityID
	gen      int
	path     Path
	start    time.Time
	duration time.Duration
	onDone   func(time.Time)
}

// Step 推进一帧；被更新的移动取代时直接结束
func (m *motion) Step(ctx context.Context, now time.Time) (sched.Status, error) {
	if err := ctx.Err(); err != nil {
		return sched.Done, err
	}
	if a := m.stage.actors[m.id]; a == nil || a.gen != m.gen {
		return sched.Done, nil
	}

	t := sched.After(m.start, m.duration).Progress(m.start, now)
	if pos, ok := m.stage.position(m.id); ok {
		pos.Pos = m.path.Point(m.stage.ease(t))
	}
	if t < 1 {
		return sched.Yield, nil
	}
	if m.onDone != nil {
		m.onDone(now)
	}
	return sched.Done, nil
}

// bulletFlight 子弹追踪目标的实时坐标飞行，到达后上报命中
//
// 飞行途中擦过的其他存活方块会以误击上报一次，由网格决定让它闪避。
type bulletFlight struct {
	stage  *Stage
	bullet *Bullet
	last   time.Time
	grazed map[ecs.EntityID]bool
}

// Step 推进一帧
func (f *bulletFlight) Step(ctx context.Context, now time.Time) (sched.Status, error) {
	st := f.stage
	if err := ctx.Err(); err != nil {
		delete(st.bullets, f.bullet.ID)
		return sched.Done, err
	}
	if st.grid == nil {
		delete(st.bullets, f.bullet.ID)
		return sched.Done, fmt.Errorf("bullet %d has no grid to report to: %w", f.bullet.ID, systems.ErrMissingCollaborator)
	}

	dest, ok := st.grid.TargetPosition(f.bullet.Target)
	if !ok {
		delete(st.bullets, f.bullet.ID)
		return sched.Done, fmt.Errorf("bullet %d lost target %d: %w", f.bullet.ID, f.bullet.Target, systems.ErrInvalidTarget)
	}

	dt := now.Sub(f.last).Seconds()
	f.last = now
	travel := st.bulletSpeed * dt
	delta := dest.Sub(f.bullet.Pos)
	dir := delta.Normalize()

	if st.bulletSpeed <= 0 || delta.Len() <= travel {
		f.bullet.Pos = dest
		delete(st.bullets, f.bullet.ID)
		return sched.Done, st.grid.ReportHit(f.bullet.Target, f.bullet.Target, dir)
	}

	f.bullet.Pos = f.bullet.Pos.Add(dir.Scale(travel))
	if err := f.graze(dir); err != nil {
		delete(st.bullets, f.bullet.ID)
		return sched.Done, err
	}
	return sched.Yield, nil
}

func (f *bulletFlight) graze(dir utils.Vec3) error {
	st := f.stage
	radius := grazeRadius * st.cubeSpacing
	for _, id := range ecs.GetEntitiesWith1[*components.TargetComponent](st.em) {
		if id == f.bullet.Target || f.grazed[id] {
			continue
		}
		target, _ := ecs.GetComponent[*components.TargetComponent](st.em, id)
		if !target.Alive {
			continue
		}
		pos, ok := st.grid.TargetPosition(id)
		if !ok || pos.Sub(f.bullet.Pos).Len() > radius {
			continue
		}
		f.grazed[id] = true
		if err := st.grid.ReportHit(id, f.bullet.Target, dir); err != nil {
			return err
		}
	}
	return nil
}
