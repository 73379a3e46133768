package game

import (
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/quasilyte/gdata/v2"
	"gopkg.in/yaml.v3"
)

// LevelRecord 单个关卡的历史成绩
type LevelRecord struct {
	Attempts    int    `yaml:"attempts"`    // 已结束的对局数
	Wins        int    `yaml:"wins"`        // 胜利次数
	Losses      int    `yaml:"losses"`      // 失败次数
	BestClearMs int64  `yaml:"bestClearMs"` // 最快通关耗时，0 表示尚未通关
	LastOutcome string `yaml:"lastOutcome"` // 最近一局结果
}

// Cleared 是否至少通关一次
func (r LevelRecord) Cleared() bool {
	return r.Wins > 0
}

// ProgressData 持久化的进度数据
type ProgressData struct {
	Levels map[string]*LevelRecord `yaml:"levels"`
}

// ProgressManager 关卡进度管理器
// 负责对局结果的记录、加载与保存
type ProgressManager struct {
	gdataManager *gdata.Manager // 可为 nil（降级模式，仅内存记录）
	data         *ProgressData
}

// 存储路径常量
const (
	progressObject   = "progress"
	progressProperty = "levels"
)

func emptyProgress() *ProgressData {
	return &ProgressData{Levels: make(map[string]*LevelRecord)}
}

// NewProgressManager 创建进度管理器
//
// 参数：
//   - gdataManager: gdata 跨平台存储管理器，可为 nil（降级模式）
//
// 加载失败不影响创建，使用空进度继续。
func NewProgressManager(gdataManager *gdata.Manager) *ProgressManager {
	pm := &ProgressManager{
		gdataManager: gdataManager,
		data:         emptyProgress(),
	}
	if err := pm.Load(); err != nil {
		log.Printf("[ProgressManager] Warning: Failed to load progress: %v (starting fresh)", err)
	}
	return pm
}

// Load 从 gdata 加载进度
func (pm *ProgressManager) Load() error {
	pm.data = emptyProgress()
	if pm.gdataManager == nil {
		return nil
	}
	if !pm.gdataManager.ObjectPropExists(progressObject, progressProperty) {
		return nil
	}

	raw, err := pm.gdataManager.LoadObjectProp(progressObject, progressProperty)
	if err != nil {
		return fmt.Errorf("failed to load progress: %w", err)
	}

	var loaded ProgressData
	if err := yaml.Unmarshal(raw, &loaded); err != nil {
		return fmt.Errorf("failed to unmarshal progress: %w", err)
	}
	if loaded.Levels == nil {
		loaded.Levels = make(map[string]*LevelRecord)
	}
	pm.data = &loaded
	log.Printf("[ProgressManager] Loaded progress for %d levels", len(loaded.Levels))
	return nil
}

// Save 保存进度到 gdata，降级模式下直接返回 nil
func (pm *ProgressManager) Save() error {
	if pm.gdataManager == nil {
		return nil
	}

	raw, err := yaml.Marshal(pm.data)
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}
	if err := pm.gdataManager.SaveObjectProp(progressObject, progressProperty, raw); err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

// RecordResult 记录一局结果并保存
//
// 参数：
//   - levelID: 关卡ID
//   - won: 是否胜利
//   - elapsed: 对局耗时，只有胜利时参与最快通关比较
func (pm *ProgressManager) RecordResult(levelID string, won bool, elapsed time.Duration) error {
	rec, ok := pm.data.Levels[levelID]
	if !ok {
		rec = &LevelRecord{}
		pm.data.Levels[levelID] = rec
	}

	rec.Attempts++
	if won {
		rec.Wins++
		rec.LastOutcome = "win"
		ms := elapsed.Milliseconds()
		if rec.BestClearMs == 0 || ms < rec.BestClearMs {
			rec.BestClearMs = ms
		}
	} else {
		rec.Losses++
		rec.LastOutcome = "lose"
	}

	log.Printf("[ProgressManager] Level %s: %s after %v (attempts=%d)", levelID, rec.LastOutcome, elapsed.Round(time.Millisecond), rec.Attempts)
	return pm.Save()
}

// Record 返回关卡成绩，未玩过的关卡返回零值
func (pm *ProgressManager) Record(levelID string) LevelRecord {
	if rec, ok := pm.data.Levels[levelID]; ok {
		return *rec
	}
	return LevelRecord{}
}

// ClearedLevels 已通关的关卡ID，按字典序排列
func (pm *ProgressManager) ClearedLevels() []string {
	ids := make([]string, 0, len(pm.data.Levels))
	for id, rec := range pm.data.Levels {
		if rec.Cleared() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
