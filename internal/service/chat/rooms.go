package chat

import (
	"sort"
	"sync"
)

// Rooms 房间订阅表，房间名 -> 订阅的连接
type Rooms struct {
	mu      sync.RWMutex
	members map[string]map[string]Transport
	// joined 连接 ID -> 已加入的房间，用于断开时整体退出
	joined map[string]map[string]struct{}
}

// NewRooms 创建房间订阅表
func NewRooms() *Rooms {
	return &Rooms{
		members: make(map[string]map[string]Transport),
		joined:  make(map[string]map[string]struct{}),
	}
}

// Join 订阅房间，重复订阅无副作用
func (r *Rooms) Join(room string, t Transport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs, ok := r.members[room]
	if !ok {
		subs = make(map[string]Transport)
		r.members[room] = subs
	}
	subs[t.ID()] = t

	rooms, ok := r.joined[t.ID()]
	if !ok {
		rooms = make(map[string]struct{})
		r.joined[t.ID()] = rooms
	}
	rooms[room] = struct{}{}
}

// LeaveAll 退出连接加入的所有房间
func (r *Rooms) LeaveAll(t Transport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for room := range r.joined[t.ID()] {
		subs := r.members[room]
		delete(subs, t.ID())
		if len(subs) == 0 {
			delete(r.members, room)
		}
	}
	delete(r.joined, t.ID())
}

// Members 房间当前订阅者的快照
func (r *Rooms) Members(room string) []Transport {
	r.mu.RLock()
	defer r.mu.RUnlock()
	subs := r.members[room]
	out := make([]Transport, 0, len(subs))
	for _, t := range subs {
		out = append(out, t)
	}
	return out
}

// IsSubscribed 连接是否订阅了房间
func (r *Rooms) IsSubscribed(room string, t Transport) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[room][t.ID()]
	return ok
}

// RoomsOf 连接已加入的房间，按名称排序
func (r *Rooms) RoomsOf(t Transport) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.joined[t.ID()]))
	for room := range r.joined[t.ID()] {
		out = append(out, room)
	}
	sort.Strings(out)
	return out
}
