package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// 投递目标类型
const (
	TargetUser = "user"
	TargetRoom = "room"
)

// Delivery 一次投递：发给某个用户的当前连接，或某个房间的全部订阅者
type Delivery struct {
	Target string          `json:"target"`
	Key    string          `json:"key"`
	Except string          `json:"except,omitempty"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
}

// NewDelivery 序列化载荷
func NewDelivery(target, key, event string, payload any) (Delivery, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Delivery{}, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	return Delivery{Target: target, Key: key, Event: event, Data: data}, nil
}

// Fanout 投递通道
// local 模式直接写本进程的连接，kafka 模式经消息队列转发给所有节点
type Fanout interface {
	Deliver(ctx context.Context, d Delivery) error
}

// LocalFanout 基于本进程注册表和房间表的投递
type LocalFanout struct {
	registry Registry
	rooms    *Rooms
}

// NewLocalFanout 创建本地投递
func NewLocalFanout(registry Registry, rooms *Rooms) *LocalFanout {
	return &LocalFanout{registry: registry, rooms: rooms}
}

// Deliver 用户不在线时不做任何事
// 单个连接的出站队列满时跳过该连接，不影响其他订阅者
func (f *LocalFanout) Deliver(ctx context.Context, d Delivery) error {
	switch d.Target {
	case TargetUser:
		t, ok := f.registry.Get(d.Key)
		if !ok {
			return nil
		}
		return t.Emit(d.Event, d.Data)
	case TargetRoom:
		var errs []error
		for _, t := range f.rooms.Members(d.Key) {
			if d.Except != "" && t.UserID() == d.Except {
				continue
			}
			if err := t.Emit(d.Event, d.Data); err != nil {
				zap.L().Warn("room delivery skipped",
					zap.String("room", d.Key),
					zap.String("transport_id", t.ID()),
					zap.Error(err),
				)
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	default:
		return fmt.Errorf("unknown delivery target %q", d.Target)
	}
}

var _ Fanout = (*LocalFanout)(nil)
