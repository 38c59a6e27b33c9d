// Package chat 实现了聊天系统的核心服务层
// registry.go
// 核心职责：维护 userId -> 连接 的在线映射，每个用户只保留最新的一条连接
package chat

import "sync"

// Registry 在线连接注册表
type Registry interface {
	// Get 获取用户当前的连接
	Get(userId string) (Transport, bool)
	// Set 绑定用户与连接，返回被替换掉的旧连接（没有则为 nil）
	Set(userId string, t Transport) Transport
	// Remove 仅当用户当前绑定的仍是 t 时解除绑定
	Remove(userId string, t Transport) bool
}

// MemoryRegistry 进程内注册表
type MemoryRegistry struct {
	mu    sync.RWMutex
	conns map[string]Transport
}

// NewMemoryRegistry 创建进程内注册表
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{conns: make(map[string]Transport)}
}

func (r *MemoryRegistry) Get(userId string) (Transport, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.conns[userId]
	return t, ok
}

func (r *MemoryRegistry) Set(userId string, t Transport) Transport {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.conns[userId]
	r.conns[userId] = t
	if prev != nil && prev.ID() == t.ID() {
		return nil
	}
	return prev
}

func (r *MemoryRegistry) Remove(userId string, t Transport) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.conns[userId]
	if !ok || cur.ID() != t.ID() {
		return false
	}
	delete(r.conns, userId)
	return true
}

// Len 在线用户数
func (r *MemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

var _ Registry = (*MemoryRegistry)(nil)
