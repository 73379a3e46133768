package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gonewx/aimburst/pkg/types"
)

// 默认值常量
const (
	DefaultSlots           = 5
	DefaultClickGateMs     = 250
	DefaultReleaseDelayMs  = 300
	DefaultDepthGate       = 7.0
	DefaultCubeSpacing     = 1.0
	DefaultShiftDelayMs    = 100
	DefaultShiftDurationMs = 200
	DefaultShiftCurve      = "easeOutCubic"
	DefaultLoseConfirmMs   = 1000
	DefaultLosePollMs      = 50
	DefaultLaneSpacing     = 1.5
	DefaultFireRate        = 8.0
	DefaultSlotZ           = 6.0
	DefaultSlotSpacing     = 1.5
	DefaultLaneStartZ      = 9.0
	DefaultLaneSpacingX    = 2.0
	DefaultShooterSpeed    = 8.0
	DefaultBulletSpeed     = 30.0
	DefaultMergeDurationMs = 450
)

// LevelConfig 关卡配置数据结构
// 定义了方块网格、射手行队列、槽位数量与各项时序参数
type LevelConfig struct {
	ID          string `yaml:"id"`          // 关卡ID，如 "1"
	Name        string `yaml:"name"`        // 关卡名称
	Description string `yaml:"description"` // 关卡描述（可选）

	Slots          int     `yaml:"slots"`          // 射击槽位数量，关卡内固定
	ClickGateMs    int     `yaml:"clickGateMs"`    // 点击处理完成后的冷却（毫秒）
	ReleaseDelayMs int     `yaml:"releaseDelayMs"` // 弹药耗尽后离开槽位前的延迟（毫秒）
	DepthGate      float64 `yaml:"depthGate"`      // 索敌纵深门限
	CubeSpacing    float64 `yaml:"cubeSpacing"`    // 方块间距

	ColumnShift ColumnShiftConfig `yaml:"columnShift"` // 列下移动画参数
	Lose        LoseConfig        `yaml:"lose"`        // 失败判定参数
	Stage       StageConfig       `yaml:"stage"`       // 无头表现层几何参数

	Columns []ColumnConfig `yaml:"columns"` // 方块列，列索引即数组下标
	Lanes   []LaneConfig   `yaml:"lanes"`   // 射手行，行索引即数组下标
	Pairs   []PairConfig   `yaml:"pairs"`   // 战斗伙伴配对（可选）
}

// ColumnShiftConfig 列下移参数
type ColumnShiftConfig struct {
	DelayMs    int     `yaml:"delayMs"`    // 首次下移前的延迟
	DurationMs int     `yaml:"durationMs"` // 下移动画时长
	Offset     float64 `yaml:"offset"`     // 每次下移的距离，默认等于 cubeSpacing
	Curve      string  `yaml:"curve"`      // 缓动曲线名称，见 utils.EasingByName
}

// LoseConfig 失败判定参数
type LoseConfig struct {
	ConfirmMs int `yaml:"confirmMs"` // 所有槽位持续不活跃的确认时长
	PollMs    int `yaml:"pollMs"`    // 采样间隔
}

// StageConfig 表现层几何与速度参数
type StageConfig struct {
	SlotZ        float64 `yaml:"slotZ"`        // 槽位所在 Z
	SlotSpacing  float64 `yaml:"slotSpacing"`  // 槽位之间的 X 间距
	LaneStartZ   float64 `yaml:"laneStartZ"`   // 行队首所在 Z
	LaneSpacingX float64 `yaml:"laneSpacingX"` // 行之间的 X 间距
	ShooterSpeed float64 `yaml:"shooterSpeed"` // 射手移动速度（单位/秒）
	BulletSpeed  float64 `yaml:"bulletSpeed"`  // 子弹速度（单位/秒）
	MergeMs      int     `yaml:"mergeMs"`      // 合并动画总时长
}

// ColumnConfig 单列配置，由若干颜色段组成
type ColumnConfig struct {
	Sets []SetConfig `yaml:"sets"`
}

// SetConfig 列中的一段同色方块
type SetConfig struct {
	Color  types.TargetColor `yaml:"color"`  // 方块颜色
	Count  int               `yaml:"count"`  // 纵深方向的数量
	Floors int               `yaml:"floors"` // 堆叠层数，默认 1
}

// LaneConfig 单个射手行配置
type LaneConfig struct {
	Spacing  float64         `yaml:"spacing"`  // 射手间距（前进距离）
	Shooters []ShooterConfig `yaml:"shooters"` // 射手组，按队列顺序展开
}

// ShooterConfig 一组同色射手
type ShooterConfig struct {
	Color    types.TargetColor `yaml:"color"`
	Count    int               `yaml:"count"`    // 数量，默认 1
	Ammo     int               `yaml:"ammo"`     // 每个射手的弹药
	Hidden   bool              `yaml:"hidden"`   // 是否隐藏
	FireRate float64           `yaml:"fireRate"` // 射速（发/秒）
}

// ShooterRef 通过行索引与队列位置引用一个射手
type ShooterRef struct {
	Lane     int `yaml:"lane"`
	Position int `yaml:"position"`
}

// PairConfig 战斗伙伴配对
type PairConfig struct {
	A ShooterRef `yaml:"a"`
	B ShooterRef `yaml:"b"`
}

// LoadLevelConfig 从YAML文件加载关卡配置
// 参数：
//
//	filepath - 关卡配置文件的路径（相对或绝对路径）
//
// 返回：
//
//	*LevelConfig - 解析后的关卡配置对象
//	error - 如果文件读取或解析失败，返回错误信息
func LoadLevelConfig(filepath string) (*LevelConfig, error) {
	// 读取文件内容
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read level config file %s: %w", filepath, err)
	}

	levelConfig, err := ParseLevelConfig(data)
	if err != nil {
		return nil, fmt.Errorf("invalid level config in %s: %w", filepath, err)
	}
	return levelConfig, nil
}

// ParseLevelConfig 从YAML数据解析关卡配置（用于嵌入资源）
func ParseLevelConfig(data []byte) (*LevelConfig, error) {
	var levelConfig LevelConfig
	if err := yaml.Unmarshal(data, &levelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse level config YAML: %w", err)
	}

	// 应用默认值
	applyDefaults(&levelConfig)

	// 验证必填字段
	if err := validateLevelConfig(&levelConfig); err != nil {
		return nil, err
	}

	return &levelConfig, nil
}

// applyDefaults 为 LevelConfig 中缺失的可选字段设置默认值
func applyDefaults(config *LevelConfig) {
	if config.Slots == 0 {
		config.Slots = DefaultSlots
	}
	if config.ClickGateMs == 0 {
		config.ClickGateMs = DefaultClickGateMs
	}
	if config.ReleaseDelayMs == 0 {
		config.ReleaseDelayMs = DefaultReleaseDelayMs
	}
	if config.DepthGate == 0 {
		config.DepthGate = DefaultDepthGate
	}
	if config.CubeSpacing == 0 {
		config.CubeSpacing = DefaultCubeSpacing
	}

	// 列下移：偏移默认等于方块间距，使下一排恰好补到最前
	if config.ColumnShift.DelayMs == 0 {
		config.ColumnShift.DelayMs = DefaultShiftDelayMs
	}
	if config.ColumnShift.DurationMs == 0 {
		config.ColumnShift.DurationMs = DefaultShiftDurationMs
	}
	if config.ColumnShift.Offset == 0 {
		config.ColumnShift.Offset = config.CubeSpacing
	}
	if config.ColumnShift.Curve == "" {
		config.ColumnShift.Curve = DefaultShiftCurve
	}

	if config.Lose.ConfirmMs == 0 {
		config.Lose.ConfirmMs = DefaultLoseConfirmMs
	}
	if config.Lose.PollMs == 0 {
		config.Lose.PollMs = DefaultLosePollMs
	}

	applyStageDefaults(&config.Stage)

	for i := range config.Columns {
		for j := range config.Columns[i].Sets {
			if config.Columns[i].Sets[j].Floors == 0 {
				config.Columns[i].Sets[j].Floors = 1
			}
		}
	}

	for i := range config.Lanes {
		lane := &config.Lanes[i]
		if lane.Spacing == 0 {
			lane.Spacing = DefaultLaneSpacing
		}
		for j := range lane.Shooters {
			if lane.Shooters[j].Count == 0 {
				lane.Shooters[j].Count = 1
			}
			if lane.Shooters[j].FireRate == 0 {
				lane.Shooters[j].FireRate = DefaultFireRate
			}
		}
	}
}

func applyStageDefaults(stage *StageConfig) {
	if stage.SlotZ == 0 {
		stage.SlotZ = DefaultSlotZ
	}
	if stage.SlotSpacing == 0 {
		stage.SlotSpacing = DefaultSlotSpacing
	}
	if stage.LaneStartZ == 0 {
		stage.LaneStartZ = DefaultLaneStartZ
	}
	if stage.LaneSpacingX == 0 {
		stage.LaneSpacingX = DefaultLaneSpacingX
	}
	if stage.ShooterSpeed == 0 {
		stage.ShooterSpeed = DefaultShooterSpeed
	}
	if stage.BulletSpeed == 0 {
		stage.BulletSpeed = DefaultBulletSpeed
	}
	if stage.MergeMs == 0 {
		stage.MergeMs = DefaultMergeDurationMs
	}
}

// validateLevelConfig 验证关卡配置的完整性和合法性
func validateLevelConfig(config *LevelConfig) error {
	if config.ID == "" {
		return fmt.Errorf("level ID is required")
	}

	if config.Slots < 1 {
		return fmt.Errorf("slots must be at least 1, got %d", config.Slots)
	}
	if config.ClickGateMs < 0 || config.ReleaseDelayMs < 0 || config.ColumnShift.DelayMs < 0 {
		return fmt.Errorf("durations cannot be negative")
	}
	if config.Lose.PollMs <= 0 || config.Lose.ConfirmMs < config.Lose.PollMs {
		return fmt.Errorf("lose.confirmMs (%d) must be >= lose.pollMs (%d) > 0", config.Lose.ConfirmMs, config.Lose.PollMs)
	}

	if len(config.Columns) == 0 {
		return fmt.Errorf("at least one column is required")
	}
	for i, column := range config.Columns {
		if len(column.Sets) == 0 {
			return fmt.Errorf("column %d: at least one set is required", i)
		}
		for j, set := range column.Sets {
			if !set.Color.IsValid() {
				return fmt.Errorf("column %d, set %d: color is required", i, j)
			}
			if set.Count < 1 {
				return fmt.Errorf("column %d, set %d: count must be at least 1, got %d", i, j, set.Count)
			}
			if set.Floors < 1 {
				return fmt.Errorf("column %d, set %d: floors must be at least 1, got %d", i, j, set.Floors)
			}
		}
	}

	if len(config.Lanes) == 0 {
		return fmt.Errorf("at least one lane is required")
	}
	for i, lane := range config.Lanes {
		if lane.Spacing < 0 {
			return fmt.Errorf("lane %d: spacing cannot be negative", i)
		}
		for j, shooter := range lane.Shooters {
			if !shooter.Color.IsValid() {
				return fmt.Errorf("lane %d, shooter group %d: color is required", i, j)
			}
			if shooter.Count < 1 {
				return fmt.Errorf("lane %d, shooter group %d: count must be at least 1, got %d", i, j, shooter.Count)
			}
			if shooter.Ammo < 1 {
				return fmt.Errorf("lane %d, shooter group %d: ammo must be at least 1, got %d", i, j, shooter.Ammo)
			}
			if shooter.FireRate <= 0 {
				return fmt.Errorf("lane %d, shooter group %d: fireRate must be positive", i, j)
			}
		}
	}

	return validatePairs(config)
}

// validatePairs 验证战斗伙伴配对
//
// 同一行的配对必须在队列中相邻，否则第二次出队拿到的不是伙伴
func validatePairs(config *LevelConfig) error {
	used := make(map[ShooterRef]bool)

	for i, pair := range config.Pairs {
		for _, ref := range []ShooterRef{pair.A, pair.B} {
			if ref.Lane < 0 || ref.Lane >= len(config.Lanes) {
				return fmt.Errorf("pair %d: lane %d out of range", i, ref.Lane)
			}
			if ref.Position < 0 || ref.Position >= config.LaneLength(ref.Lane) {
				return fmt.Errorf("pair %d: position %d out of range for lane %d", i, ref.Position, ref.Lane)
			}
			if used[ref] {
				return fmt.Errorf("pair %d: shooter (lane %d, position %d) is already paired", i, ref.Lane, ref.Position)
			}
		}
		if pair.A == pair.B {
			return fmt.Errorf("pair %d: a shooter cannot pair with itself", i)
		}
		if pair.A.Lane == pair.B.Lane {
			diff := pair.A.Position - pair.B.Position
			if diff != 1 && diff != -1 {
				return fmt.Errorf("pair %d: same-lane pairs must be adjacent", i)
			}
		}
		used[pair.A] = true
		used[pair.B] = true
	}
	return nil
}

// LaneLength 返回指定行展开后的射手数量
func (c *LevelConfig) LaneLength(lane int) int {
	n := 0
	for _, group := range c.Lanes[lane].Shooters {
		n += group.Count
	}
	return n
}

// ClickGate 点击冷却时长
func (c *LevelConfig) ClickGate() time.Duration {
	return time.Duration(c.ClickGateMs) * time.Millisecond
}

// ReleaseDelay 离开槽位前的延迟
func (c *LevelConfig) ReleaseDelay() time.Duration {
	return time.Duration(c.ReleaseDelayMs) * time.Millisecond
}

// LoseConfirm 失败确认窗口
func (c *LevelConfig) LoseConfirm() time.Duration {
	return time.Duration(c.Lose.ConfirmMs) * time.Millisecond
}

// LosePoll 失败判定采样间隔
func (c *LevelConfig) LosePoll() time.Duration {
	return time.Duration(c.Lose.PollMs) * time.Millisecond
}

// ShiftDelay 列下移前的延迟
func (c *LevelConfig) ShiftDelay() time.Duration {
	return time.Duration(c.ColumnShift.DelayMs) * time.Millisecond
}

// ShiftDuration 列下移动画时长
func (c *LevelConfig) ShiftDuration() time.Duration {
	return time.Duration(c.ColumnShift.DurationMs) * time.Millisecond
}

// MergeDuration 合并动画时长
func (c *StageConfig) MergeDuration() time.Duration {
	return time.Duration(c.MergeMs) * time.Millisecond
}

// FireInterval 两次射击的最小间隔（1 / 射速）
func (s ShooterConfig) FireInterval() time.Duration {
	if s.FireRate <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / s.FireRate)
}
