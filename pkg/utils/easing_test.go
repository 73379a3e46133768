package utils

import (
	"math"
	"testing"
)

const easeEpsilon = 1e-9

// TestEasingEndpoints 所有曲线在 0 和 1 处必须命中端点
func TestEasingEndpoints(t *testing.T) {
	for name, fn := range easingByName {
		t.Run(name, func(t *testing.T) {
			if got := fn(0); math.Abs(got) > easeEpsilon {
				t.Errorf("f(0) = %v, want 0", got)
			}
			if got := fn(1); math.Abs(got-1) > easeEpsilon {
				t.Errorf("f(1) = %v, want 1", got)
			}
		})
	}
}

// TestEasingMonotonic 进度单调递增时输出不回退
func TestEasingMonotonic(t *testing.T) {
	for name, fn := range easingByName {
		t.Run(name, func(t *testing.T) {
			prev := fn(0)
			for i := 1; i <= 100; i++ {
				cur := fn(float64(i) / 100)
				if cur+easeEpsilon < prev {
					t.Fatalf("f(%v) = %v < previous %v", float64(i)/100, cur, prev)
				}
				prev = cur
			}
		})
	}
}

func TestEasingValues(t *testing.T) {
	tests := []struct {
		name string
		fn   EasingFunc
		in   float64
		want float64
	}{
		{"线性中点", EaseLinear, 0.5, 0.5},
		{"二次缓出中点", EaseOutQuad, 0.5, 0.75},
		{"二次缓入中点", EaseInQuad, 0.5, 0.25},
		{"三次缓出中点", EaseOutCubic, 0.5, 0.875},
		{"三次缓入缓出中点", EaseInOutCubic, 0.5, 0.5},
		{"负进度截断", EaseOutQuad, -0.5, 0},
		{"超出进度截断", EaseInQuad, 1.5, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.in); math.Abs(got-tt.want) > easeEpsilon {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLerp(t *testing.T) {
	tests := []struct {
		name    string
		a, b, t float64
		want    float64
	}{
		{"起点", 2, 6, 0, 2},
		{"终点", 2, 6, 1, 6},
		{"中点", 2, 6, 0.5, 4},
		{"反向", 6, 2, 0.25, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Lerp(tt.a, tt.b, tt.t); math.Abs(got-tt.want) > easeEpsilon {
				t.Errorf("Lerp(%v, %v, %v) = %v, want %v", tt.a, tt.b, tt.t, got, tt.want)
			}
		})
	}
}

func TestEasingByName(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		wantOK bool
		probe  float64
	}{
		{"空名称为线性", "", true, 0.5},
		{"大小写不敏感", "EaseOutQuad", true, 0.75},
		{"两侧空白", "  linear ", true, 0.5},
		{"未知名称退回线性", "bounce", false, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, ok := EasingByName(tt.in)
			if ok != tt.wantOK {
				t.Errorf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got := fn(0.5); math.Abs(got-tt.probe) > easeEpsilon {
				t.Errorf("f(0.5) = %v, want %v", got, tt.probe)
			}
		})
	}
}
