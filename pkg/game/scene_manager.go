package game

import (
	"fmt"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
)

// SceneFactory 场景工厂函数类型
// 用于创建指定ID的关卡场景，避免循环依赖
type SceneFactory func(levelID string) (Scene, error)

// SceneManager 管理当前活动的场景
type SceneManager struct {
	currentScene Scene
	sceneFactory SceneFactory
	currentLevel string
}

// NewSceneManager 创建场景管理器，初始没有活动场景
func NewSceneManager() *SceneManager {
	return &SceneManager{}
}

// SetSceneFactory 设置场景工厂函数
func (sm *SceneManager) SetSceneFactory(factory SceneFactory) {
	sm.sceneFactory = factory
}

// SwitchTo 切换到指定场景
func (sm *SceneManager) SwitchTo(scene Scene) {
	sm.currentScene = scene
}

// GetCurrentScene 返回当前活动的场景，没有时返回 nil
func (sm *SceneManager) GetCurrentScene() Scene {
	return sm.currentScene
}

// CurrentLevel 最近一次成功加载的关卡ID
func (sm *SceneManager) CurrentLevel() string {
	return sm.currentLevel
}

// LoadLevel 加载指定ID的关卡场景
// 创建失败时保留当前场景并返回错误
func (sm *SceneManager) LoadLevel(levelID string) error {
	log.Printf("[SceneManager] 加载关卡: %s", levelID)

	if sm.sceneFactory == nil {
		return fmt.Errorf("scene factory not set")
	}

	newScene, err := sm.sceneFactory(levelID)
	if err != nil {
		log.Printf("[SceneManager] 错误: 无法创建关卡场景 %s: %v", levelID, err)
		return fmt.Errorf("failed to load level %s: %w", levelID, err)
	}

	// 旧关卡的任务需要随场景一起拆除
	if closer, ok := sm.currentScene.(interface{ Close() }); ok {
		closer.Close()
	}
	sm.SwitchTo(newScene)
	sm.currentLevel = levelID
	log.Printf("[SceneManager] 成功切换到关卡: %s", levelID)
	return nil
}

// Update 更新当前场景，没有场景时什么也不做
func (sm *SceneManager) Update() error {
	if sm.currentScene == nil {
		return nil
	}
	return sm.currentScene.Update()
}

// Draw 绘制当前场景，没有场景时什么也不做
func (sm *SceneManager) Draw(screen *ebiten.Image) {
	if sm.currentScene != nil {
		sm.currentScene.Draw(screen)
	}
}
