package stage

import "github.com/gonewx/aimburst/pkg/utils"

// curveSamples 曲线长度估算的分段数
const curveSamples = 16

// Path 一段移动路径：直线或二次贝塞尔曲线
type Path struct {
	From    utils.Vec3
	Control utils.Vec3
	To      utils.Vec3
	Curved  bool
}

// Line 直线路径
func Line(from, to utils.Vec3) Path {
	return Path{From: from, To: to}
}

// Curve 经过控制点弯曲的路径
func Curve(from, control, to utils.Vec3) Path {
	return Path{From: from, Control: control, To: to, Curved: true}
}

// Point 返回参数 t∈[0,1] 处的位置
func (p Path) Point(t float64) utils.Vec3 {
	if p.Curved {
		return utils.QuadraticBezier(p.From, p.Control, p.To, t)
	}
	return utils.LerpVec3(p.From, p.To, t)
}

// Length 路径长度，曲线按折线近似
func (p Path) Length() float64 {
	if !p.Curved {
		return utils.Distance(p.From, p.To)
	}
	total := 0.0
	prev := p.From
	for i := 1; i <= curveSamples; i++ {
		next := p.Point(float64(i) / curveSamples)
		total += utils.Distance(prev, next)
		prev = next
	}
	return total
}
