package systems

import (
	"fmt"
	"sync"

	"github.com/gonewx/aimburst/pkg/ecs"
)

// PairingTable 对称的战斗伙伴表：pairID -> (A, B)
type PairingTable struct {
	mu       sync.RWMutex
	nextID   int
	pairs    map[int][2]ecs.EntityID
	byMember map[ecs.EntityID]int
}

// NewPairingTable 创建空的伙伴表
func NewPairingTable() *PairingTable {
	return &PairingTable{
		nextID:   1,
		pairs:    make(map[int][2]ecs.EntityID),
		byMember: make(map[ecs.EntityID]int),
	}
}

// Pair 将 a 与 b 结为伙伴，返回 pairID
func (p *PairingTable) Pair(a, b ecs.EntityID) (int, error) {
	if a == ecs.InvalidEntity || b == ecs.InvalidEntity {
		return 0, fmt.Errorf("pair (%d, %d): invalid shooter handle", a, b)
	}
	if a == b {
		return 0, fmt.Errorf("shooter %d cannot pair with itself", a)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.byMember[a]; ok {
		return 0, fmt.Errorf("shooter %d is already paired", a)
	}
	if _, ok := p.byMember[b]; ok {
		return 0, fmt.Errorf("shooter %d is already paired", b)
	}

	id := p.nextID
	p.nextID++
	p.pairs[id] = [2]ecs.EntityID{a, b}
	p.byMember[a] = id
	p.byMember[b] = id
	return id, nil
}

// FriendOf 返回 id 的伙伴
func (p *PairingTable) FriendOf(id ecs.EntityID) (ecs.EntityID, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	pairID, ok := p.byMember[id]
	if !ok {
		return ecs.InvalidEntity, false
	}
	members := p.pairs[pairID]
	if members[0] == id {
		return members[1], true
	}
	return members[0], true
}

// HasFriend 是否有伙伴
func (p *PairingTable) HasFriend(id ecs.EntityID) bool {
	_, ok := p.FriendOf(id)
	return ok
}

// Len 配对数量
func (p *PairingTable) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.pairs)
}
