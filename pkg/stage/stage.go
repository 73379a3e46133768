// Package stage 无头运动学表现层
//
// Stage 实现核心逻辑需要的射手表现层与合并动画，targetRig 实现方块表现层。
// 所有动作都以调度器任务推进，移动结果写回实体的 PositionComponent，
// 子弹到达后通过网格的 ReportHit 上报命中。渲染前端（ebiten 场景、终端界面）
// 只读取 Shooters/Bullets/TargetFx 快照。
//
// Stage 不加锁：所有方法都必须在驱动调度器的同一个 goroutine 中调用。
package stage

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/gonewx/aimburst/pkg/components"
	"github.com/gonewx/aimburst/pkg/config"
	"github.com/gonewx/aimburst/pkg/ecs"
	"github.com/gonewx/aimburst/pkg/entities"
	"github.com/gonewx/aimburst/pkg/sched"
	"github.com/gonewx/aimburst/pkg/systems"
	"github.com/gonewx/aimburst/pkg/types"
	"github.com/gonewx/aimburst/pkg/utils"
)

const (
	// mergeFlash 合并完成后的高亮时长
	mergeFlash = 300 * time.Millisecond
	// killFade 被吸收或被击毁的淡出时长
	killFade = 200 * time.Millisecond
	// grazeRadius 子弹擦过其他方块的判定半径（相对方块间距）
	grazeRadius = 0.3
	// exitBulge 弯曲离场时控制点向后偏移的距离（相对槽位间距）
	exitBulge = 2.0
)

// Grid 子弹需要的网格能力：目标的实时坐标与命中上报
type Grid interface {
	systems.HitReporter
	TargetPosition(id ecs.EntityID) (utils.Vec3, bool)
}

// ShooterView 渲染用的射手快照
type ShooterView struct {
	ID     ecs.EntityID
	Pos    utils.Vec3
	Color  types.TargetColor
	Ammo   int
	Hidden bool
	Flash  float64 // 合并高亮 [0,1]
	Fade   float64 // 淡出进度 [0,1]，1 表示已消失
}

// Bullet 飞行中的子弹
type Bullet struct {
	ID      int
	Shooter ecs.EntityID
	Target  ecs.EntityID
	Color   types.TargetColor
	Pos     utils.Vec3
}

type actor struct {
	gen        int
	gone       bool
	fadeStart  time.Time
	flashUntil time.Time
}

// Stage 射手表现层与合并动画
type Stage struct {
	em        *ecs.EntityManager
	scheduler *sched.Scheduler
	geo       entities.Geometry
	grid      Grid

	shooterSpeed  float64
	bulletSpeed   float64
	mergeDuration time.Duration
	cubeSpacing   float64
	ease          utils.EasingFunc

	actors     map[ecs.EntityID]*actor
	bullets    map[int]*Bullet
	nextBullet int

	targets *targetRig
}

// New 创建表现层
//
// 网格在表现层之后创建（它需要表现层作为 TargetPresenter），
// 因此子弹命中上报通过 BindGrid 延迟绑定。
func New(s *sched.Scheduler, em *ecs.EntityManager, cfg *config.LevelConfig) (*Stage, error) {
	if s == nil || em == nil {
		return nil, fmt.Errorf("stage scheduler and entity manager: %w", systems.ErrMissingCollaborator)
	}
	if cfg == nil {
		return nil, fmt.Errorf("level config cannot be nil")
	}

	st := &Stage{
		em:            em,
		scheduler:     s,
		geo:           entities.NewGeometry(cfg),
		shooterSpeed:  cfg.Stage.ShooterSpeed,
		bulletSpeed:   cfg.Stage.BulletSpeed,
		mergeDuration: cfg.Stage.MergeDuration(),
		cubeSpacing:   cfg.CubeSpacing,
		ease:          utils.EaseOutQuad,
		actors:        make(map[ecs.EntityID]*actor),
		bullets:       make(map[int]*Bullet),
	}
	st.targets = newTargetRig(s)
	return st, nil
}

// BindGrid 绑定子弹命中上报的网格
func (st *Stage) BindGrid(grid Grid) {
	st.grid = grid
}

// Targets 方块表现层
func (st *Stage) Targets() systems.TargetPresenter {
	return st.targets
}

// Geometry 关卡布局
func (st *Stage) Geometry() entities.Geometry {
	return st.geo
}

func (st *Stage) actorOf(id ecs.EntityID) *actor {
	a, ok := st.actors[id]
	if !ok {
		a = &actor{}
		st.actors[id] = a
	}
	return a
}

func (st *Stage) position(id ecs.EntityID) (*components.PositionComponent, bool) {
	return ecs.GetComponent[*components.PositionComponent](st.em, id)
}

// Shoot 从射手位置发射一颗子弹，信号在子弹出膛时完成
func (st *Stage) Shoot(shooter, target ecs.EntityID) *sched.Signal {
	pos, ok := st.position(shooter)
	if !ok {
		log.Printf("[Stage] Warning: shooter %d has no position, shot skipped", shooter)
		return sched.Completed()
	}
	color := types.ColorUnknown
	if sc, ok := ecs.GetComponent[*components.ShooterComponent](st.em, shooter); ok {
		color = sc.Color
	}

	st.nextBullet++
	b := &Bullet{ID: st.nextBullet, Shooter: shooter, Target: target, Color: color, Pos: pos.Pos}
	st.bullets[b.ID] = b
	st.scheduler.Go(fmt.Sprintf("bullet-%d", b.ID), &bulletFlight{
		stage:  st,
		bullet: b,
		last:   st.scheduler.Now(),
		grazed: make(map[ecs.EntityID]bool),
	})
	return sched.Completed()
}

// MoveToSlot 从队首直线移动到槽位
func (st *Stage) MoveToSlot(shooter ecs.EntityID, slot int) *sched.Signal {
	pos, ok := st.position(shooter)
	if !ok {
		return sched.Completed()
	}
	return st.moveBySpeed(shooter, Line(pos.Pos, st.geo.SlotPosition(slot)), nil)
}

// MoveOut 离开槽位；curved 时向后绕开其余占用的槽位
func (st *Stage) MoveOut(shooter ecs.EntityID, slot int, curved bool) *sched.Signal {
	pos, ok := st.position(shooter)
	if !ok {
		return sched.Completed()
	}
	exit := st.geo.ExitPoint(slot)
	path := Line(pos.Pos, exit)
	if curved {
		mid := utils.LerpVec3(pos.Pos, exit, 0.5)
		path = Curve(pos.Pos, mid.Add(utils.Forward.Scale(exitBulge*st.geo.SlotSpacing)), exit)
	}
	return st.moveBySpeed(shooter, path, func(now time.Time) {
		st.fadeOut(shooter, now)
	})
}

// Kill 让射手淡出
func (st *Stage) Kill(shooter ecs.EntityID) *sched.Signal {
	now := st.scheduler.Now()
	st.fadeOut(shooter, now)
	return st.wait(fmt.Sprintf("shooter-%d-fade", shooter), killFade)
}

func (st *Stage) fadeOut(shooter ecs.EntityID, now time.Time) {
	a := st.actorOf(shooter)
	a.gen++
	if !a.gone {
		a.gone = true
		a.fadeStart = now
	}
}

// Merge 合并完成高亮
func (st *Stage) Merge(shooter ecs.EntityID, newAmmo int) *sched.Signal {
	st.actorOf(shooter).flashUntil = st.scheduler.Now().Add(mergeFlash)
	log.Printf("[Stage] Shooter %d merged to %d ammo", shooter, newAmmo)
	return sched.Completed()
}

// Advance 沿行朝网格方向前进 distance
func (st *Stage) Advance(shooter ecs.EntityID, distance float64) *sched.Signal {
	pos, ok := st.position(shooter)
	if !ok {
		return sched.Completed()
	}
	to := pos.Pos.Sub(utils.Forward.Scale(distance))
	return st.moveBySpeed(shooter, Line(pos.Pos, to), nil)
}

// MergeShooters 合并动画：按 X 排序后保留中间的射手，两侧射手滑向它
// 被吸收的两个射手由调用方随后 Kill
func (st *Stage) MergeShooters(triple systems.MergeTriple) *sched.Future[ecs.EntityID] {
	result := sched.NewFuture[ecs.EntityID]()
	if len(triple) != 3 {
		result.Fail(fmt.Errorf("merge animation got %d shooters: %w", len(triple), systems.ErrInvalidMergeTriple))
		return result
	}

	ordered := append(systems.MergeTriple(nil), triple...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return st.posOrZero(ordered[i]).X < st.posOrZero(ordered[j]).X
	})
	survivor := ordered[1]
	center := st.posOrZero(survivor)

	moves := make([]sched.Awaitable, 0, 2)
	for _, id := range []ecs.EntityID{ordered[0], ordered[2]} {
		moves = append(moves, st.animate(id, Line(st.posOrZero(id), center), st.mergeDuration, nil))
	}

	st.scheduler.Go(fmt.Sprintf("merge-anim-%d", survivor), sched.TaskFunc(func(ctx context.Context, now time.Time) (sched.Status, error) {
		if err := ctx.Err(); err != nil {
			result.Fail(err)
			return sched.Done, err
		}
		if !sched.AllDone(moves...) {
			return sched.Yield, nil
		}
		result.Resolve(survivor)
		return sched.Done, nil
	}))
	return result
}

func (st *Stage) posOrZero(id ecs.EntityID) utils.Vec3 {
	if pos, ok := st.position(id); ok {
		return pos.Pos
	}
	return utils.Vec3{}
}

// moveBySpeed 以射手速度沿路径移动
func (st *Stage) moveBySpeed(id ecs.EntityID, path Path, onDone func(time.Time)) *sched.Signal {
	length := path.Length()
	if st.shooterSpeed <= 0 {
		return st.animate(id, path, 0, onDone)
	}
	return st.animate(id, path, time.Duration(length/st.shooterSpeed*float64(time.Second)), onDone)
}

// animate 在 duration 内沿路径移动实体，新的移动会取代进行中的移动
func (st *Stage) animate(id ecs.EntityID, path Path, duration time.Duration, onDone func(time.Time)) *sched.Signal {
	a := st.actorOf(id)
	a.gen++
	if duration <= 0 || path.Length() < 1e-9 {
		if pos, ok := st.position(id); ok {
			pos.Pos = path.To
		}
		if onDone != nil {
			onDone(st.scheduler.Now())
		}
		return sched.Completed()
	}
	return st.scheduler.Go(fmt.Sprintf("move-%d", id), &motion{
		stage:    st,
		id:       id,
		gen:      a.gen,
		path:     path,
		start:    st.scheduler.Now(),
		duration: duration,
		onDone:   onDone,
	})
}

func (st *Stage) wait(name string, d time.Duration) *sched.Signal {
	deadline := sched.After(st.scheduler.Now(), d)
	return st.scheduler.Go(name, sched.TaskFunc(func(ctx context.Context, now time.Time) (sched.Status, error) {
		if err := ctx.Err(); err != nil {
			return sched.Done, err
		}
		if deadline.Passed(now) {
			return sched.Done, nil
		}
		return sched.Yield, nil
	}))
}

// Shooters 返回所有射手的渲染快照，已完全淡出的射手不包含在内
func (st *Stage) Shooters() []ShooterView {
	now := st.scheduler.Now()
	ids := ecs.GetEntitiesWith2[*components.ShooterComponent, *components.PositionComponent](st.em)
	views := make([]ShooterView, 0, len(ids))
	for _, id := range ids {
		sc, _ := ecs.GetComponent[*components.ShooterComponent](st.em, id)
		pos, _ := ecs.GetComponent[*components.PositionComponent](st.em, id)
		v := ShooterView{ID: id, Pos: pos.Pos, Color: sc.Color, Ammo: sc.Ammo, Hidden: sc.Hidden}
		if a, ok := st.actors[id]; ok {
			if a.gone {
				v.Fade = sched.After(a.fadeStart, killFade).Progress(a.fadeStart, now)
				if v.Fade >= 1 {
					continue
				}
			}
			if now.Before(a.flashUntil) {
				v.Flash = float64(a.flashUntil.Sub(now)) / float64(mergeFlash)
			}
		}
		views = append(views, v)
	}
	return views
}

// Bullets 返回飞行中子弹的快照，按发射顺序排列
func (st *Stage) Bullets() []Bullet {
	out := make([]Bullet, 0, len(st.bullets))
	for _, b := range st.bullets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// TargetFx 方块的表现层状态（闪避偏移与击毁淡出）
func (st *Stage) TargetFx(id ecs.EntityID) TargetFx {
	return st.targets.fx(id, st.scheduler.Now())
}
