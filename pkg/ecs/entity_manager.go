// Package ecs 提供目标方块与射手共用的实体存储
//
// 实体以稳定的 EntityID 句柄标识，ID 单调递增且永不复用，
// 因此句柄可以安全地作为 map 键与日志标识使用。
// 一局关卡内实体只增不减：被击毁的方块与离场的射手保留终态，供表现层淡出。
package ecs

import (
	"reflect"
	"sort"
	"sync"
)

// EntityID 是实体的唯一标识符
type EntityID uint64

// InvalidEntity 表示"无实体"，ID 从 1 开始分配
const InvalidEntity EntityID = 0

// EntityManager 管理所有实体和组件
//
// 组件按类型分桶存储，查询时从最小的桶开始筛选。
type EntityManager struct {
	mu       sync.RWMutex
	lastID   EntityID
	entities map[EntityID]struct{}
	stores   map[reflect.Type]map[EntityID]interface{}
}

// NewEntityManager 创建一个新的 EntityManager 实例
func NewEntityManager() *EntityManager {
	return &EntityManager{
		entities: make(map[EntityID]struct{}),
		stores:   make(map[reflect.Type]map[EntityID]interface{}),
	}
}

// CreateEntity 创建新实体并返回唯一ID
func (em *EntityManager) CreateEntity() EntityID {
	em.mu.Lock()
	defer em.mu.Unlock()

	em.lastID++
	em.entities[em.lastID] = struct{}{}
	return em.lastID
}

// Exists 判断实体是否存在
func (em *EntityManager) Exists(id EntityID) bool {
	em.mu.RLock()
	defer em.mu.RUnlock()
	_, ok := em.entities[id]
	return ok
}

// Count 实体总数
func (em *EntityManager) Count() int {
	em.mu.RLock()
	defer em.mu.RUnlock()
	return len(em.entities)
}

// AddComponent 为实体添加组件，同类型组件会被替换
// 实体不存在时忽略
func (em *EntityManager) AddComponent(id EntityID, component interface{}) {
	em.mu.Lock()
	defer em.mu.Unlock()

	if _, ok := em.entities[id]; !ok {
		return
	}
	componentType := reflect.TypeOf(component)
	store, ok := em.stores[componentType]
	if !ok {
		store = make(map[EntityID]interface{})
		em.stores[componentType] = store
	}
	store[id] = component
}

// GetComponent 获取实体的特定类型组件
func (em *EntityManager) GetComponent(id EntityID, componentType reflect.Type) (interface{}, bool) {
	em.mu.RLock()
	defer em.mu.RUnlock()

	comp, ok := em.stores[componentType][id]
	return comp, ok
}

// HasComponent 检查实体是否拥有特定类型组件
func (em *EntityManager) HasComponent(id EntityID, componentType reflect.Type) bool {
	_, ok := em.GetComponent(id, componentType)
	return ok
}

// GetEntitiesWith 查询拥有指定组件类型组合的所有实体
// 返回的 ID 按升序排列，保证遍历顺序确定
func (em *EntityManager) GetEntitiesWith(componentTypes ...reflect.Type) []EntityID {
	em.mu.RLock()
	defer em.mu.RUnlock()

	if len(componentTypes) == 0 {
		return nil
	}

	// 从最小的桶开始，其余类型逐一过滤
	smallest := em.stores[componentTypes[0]]
	for _, ct := range componentTypes[1:] {
		if len(em.stores[ct]) < len(smallest) {
			smallest = em.stores[ct]
		}
	}

	result := make([]EntityID, 0, len(smallest))
	for id := range smallest {
		hasAll := true
		for _, ct := range componentTypes {
			if _, found := em.stores[ct][id]; !found {
				hasAll = false
				break
			}
		}
		if hasAll {
			result = append(result, id)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}
