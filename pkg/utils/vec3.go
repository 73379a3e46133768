package utils

import "math"

// Vec3 三维向量（世界坐标）
//
// 坐标约定：
//   - X 轴：列方向，列索引越大 X 越小
//   - Y 轴：楼层高度
//   - Z 轴：纵深，射手位于 +Z 一侧，方块列沿 +Z 方向下移
type Vec3 struct {
	X, Y, Z float64
}

// Forward 列下移所沿的单位轴
var Forward = Vec3{Z: 1}

// Add 向量相加
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub 向量相减
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Scale 数乘
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Dot 点积
func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Cross 叉积
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

// Len 向量长度
func (v Vec3) Len() float64 {
	return math.Sqrt(v.Dot(v))
}

// Normalize 返回单位向量，零向量原样返回
func (v Vec3) Normalize() Vec3 {
	l := v.Len()
	if l == 0 {
		return v
	}
	return v.Scale(1 / l)
}

// Reflect 以 normal（单位向量）为法线反射
func (v Vec3) Reflect(normal Vec3) Vec3 {
	return v.Sub(normal.Scale(2 * v.Dot(normal)))
}

// Distance 两点间欧氏距离
func Distance(a, b Vec3) float64 {
	return b.Sub(a).Len()
}

// LerpVec3 向量线性插值，t 不做截断
func LerpVec3(a, b Vec3, t float64) Vec3 {
	return Vec3{Lerp(a.X, b.X, t), Lerp(a.Y, b.Y, t), Lerp(a.Z, b.Z, t)}
}

// QuadraticBezier 二次贝塞尔曲线求值
func QuadraticBezier(p0, p1, p2 Vec3, t float64) Vec3 {
	u := 1 - t
	return p0.Scale(u * u).Add(p1.Scale(2 * u * t)).Add(p2.Scale(t * t))
}
