// Package types 定义共享的基础类型
// 这个包不依赖任何其他业务包，用于解决循环引用问题
package types

import (
	"fmt"
	"strings"
)

// TargetColor 定义目标方块与射手的颜色
// 射手只能击毁与自身颜色相同的方块
type TargetColor int

const (
	// ColorUnknown 未知颜色（零值，配置中不允许出现）
	ColorUnknown TargetColor = iota
	// ColorRed 红色
	ColorRed
	// ColorGreen 绿色
	ColorGreen
	// ColorBlue 蓝色
	ColorBlue
	// ColorYellow 黄色
	ColorYellow
	// ColorPurple 紫色
	ColorPurple
	// ColorOrange 橙色
	ColorOrange
	// ColorPink 粉色
	ColorPink
	// ColorCyan 青色
	ColorCyan
)

var colorNames = map[TargetColor]string{
	ColorRed:    "red",
	ColorGreen:  "green",
	ColorBlue:   "blue",
	ColorYellow: "yellow",
	ColorPurple: "purple",
	ColorOrange: "orange",
	ColorPink:   "pink",
	ColorCyan:   "cyan",
}

// String 返回颜色的小写名称
func (c TargetColor) String() string {
	if name, ok := colorNames[c]; ok {
		return name
	}
	return "unknown"
}

// IsValid 判断颜色是否为已定义的具体颜色
func (c TargetColor) IsValid() bool {
	_, ok := colorNames[c]
	return ok
}

// ParseTargetColor 将颜色名称（大小写不敏感）解析为 TargetColor
func ParseTargetColor(name string) (TargetColor, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for c, n := range colorNames {
		if n == key {
			return c, nil
		}
	}
	return ColorUnknown, fmt.Errorf("unknown target color %q", name)
}

// UnmarshalYAML 支持在关卡 YAML 中直接书写颜色名称
func (c *TargetColor) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	parsed, err := ParseTargetColor(name)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalYAML 将颜色序列化为名称
func (c TargetColor) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}
