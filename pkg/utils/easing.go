package utils

import (
	"math"
	"strings"
)

// EasingFunc 缓动曲线，输入进度 t ∈ [0, 1]，输出 ∈ [0, 1]
// 列平移与子弹飞行共用同一组曲线
type EasingFunc func(t float64) float64

// EaseLinear 匀速
func EaseLinear(t float64) float64 {
	return clamp01(t)
}

// EaseOutQuad 二次方缓出：f(t) = 1 - (1-t)²
func EaseOutQuad(t float64) float64 {
	t = clamp01(t)
	return 1 - (1-t)*(1-t)
}

// EaseInQuad 二次方缓入：f(t) = t²
func EaseInQuad(t float64) float64 {
	t = clamp01(t)
	return t * t
}

// EaseOutCubic 三次方缓出：f(t) = 1 - (1-t)³
func EaseOutCubic(t float64) float64 {
	return 1 - math.Pow(1-clamp01(t), 3)
}

// EaseInOutCubic 三次方缓入缓出
func EaseInOutCubic(t float64) float64 {
	t = clamp01(t)
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

// Lerp 在 a 与 b 之间插值，t 不做截断
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func clamp01(t float64) float64 {
	switch {
	case t < 0:
		return 0
	case t > 1:
		return 1
	}
	return t
}

// 关卡文件中的曲线名称（小写）
var easingByName = map[string]EasingFunc{
	"linear":         EaseLinear,
	"easeoutquad":    EaseOutQuad,
	"easeinquad":     EaseInQuad,
	"easeoutcubic":   EaseOutCubic,
	"easeinoutcubic": EaseInOutCubic,
}

// EasingByName 按名称查找缓动曲线，不区分大小写
// 空名称视为 linear；未知名称返回 EaseLinear 和 false
func EasingByName(name string) (EasingFunc, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return EaseLinear, true
	}
	if fn, ok := easingByName[name]; ok {
		return fn, true
	}
	return EaseLinear, false
}
