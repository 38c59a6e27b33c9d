package chat

import (
	"context"

	"contract_chat_server/internal/dto/respond"

	"go.uber.org/zap"
)

// 通知类型
const (
	NotifyMention   = "mention"
	NotifyBroadcast = "broadcast"
)

// GroupMembers 群成员判断，用于过滤群聊中的提及通知
type GroupMembers interface {
	IsMember(ctx context.Context, groupUuid, userUuid string) (bool, error)
}

// Dispatcher 将已落库的消息投递给在线的接收者
// 投递尽力而为，错误只记录日志
type Dispatcher struct {
	fanout  Fanout
	members GroupMembers
}

// NewDispatcher 创建 Dispatcher
// members 为 nil 时群聊不发送逐个提及通知
func NewDispatcher(fanout Fanout, members GroupMembers) *Dispatcher {
	return &Dispatcher{fanout: fanout, members: members}
}

// Dispatch 投递消息
//   - 单聊：newMessage 发给接收者，messageSent 回显给发送者；AI 回复发给会话双方
//   - 群聊：newGroupMessage 发给房间内全部订阅者
//   - 被 @ 的在线用户额外收到 notification，群聊中的 @all 通知房间内除发送者外的所有人
//   - 提及通知只发给会话内的用户：单聊为双方，群聊为群成员
func (d *Dispatcher) Dispatch(ctx context.Context, env *Envelope) {
	payload := env.Payload()

	switch env.Scope {
	case ScopeDirect:
		if env.IsAIResponse {
			a, b := env.participants()
			d.deliver(ctx, TargetUser, a, "", EventNewMessage, payload)
			if b != a {
				d.deliver(ctx, TargetUser, b, "", EventNewMessage, payload)
			}
		} else {
			d.deliver(ctx, TargetUser, env.ReceiverId, "", EventNewMessage, payload)
			d.deliver(ctx, TargetUser, env.SenderId, "", EventMessageSent, payload)
		}
	case ScopeGroup:
		d.deliver(ctx, TargetRoom, RoomName(env.GroupId), "", EventNewGroupMessage, payload)
	default:
		zap.L().Error("dispatch with unknown scope", zap.String("scope", string(env.Scope)))
		return
	}

	d.notify(ctx, env)
}

func (d *Dispatcher) notify(ctx context.Context, env *Envelope) {
	notice := respond.NotificationPayload{
		Kind:       NotifyMention,
		MessageId:  env.PersistedId,
		SenderId:   env.SenderId,
		SenderName: env.SenderName,
		GroupId:    env.GroupId,
		Content:    env.Content,
	}

	// 群聊 @all 已覆盖房间内所有人，不再逐个发送提及通知
	if env.Scope == ScopeGroup && env.Tags.Has(SpecialBroadcastAll) {
		notice.Kind = NotifyBroadcast
		d.deliver(ctx, TargetRoom, RoomName(env.GroupId), env.SenderId, EventNotification, notice)
		return
	}

	notified := make(map[string]struct{}, len(env.Tags.Mentions))
	for _, m := range env.Tags.Mentions {
		if m.UserId == env.SenderId {
			continue
		}
		if _, ok := notified[m.UserId]; ok {
			continue
		}
		notified[m.UserId] = struct{}{}
		if !d.canSee(ctx, env, m.UserId) {
			zap.L().Debug("skip mention outside conversation",
				zap.String("conversation_id", env.ConversationId()),
				zap.String("user_id", m.UserId),
			)
			continue
		}
		d.deliver(ctx, TargetUser, m.UserId, "", EventNotification, notice)
	}
}

// canSee 判断用户是否能看到该会话，查询失败按不可见处理
func (d *Dispatcher) canSee(ctx context.Context, env *Envelope, userId string) bool {
	if env.Scope == ScopeDirect {
		a, b := env.participants()
		return userId == a || userId == b
	}
	if d.members == nil {
		return false
	}
	ok, err := d.members.IsMember(ctx, env.GroupId, userId)
	if err != nil {
		zap.L().Warn("check group member failed",
			zap.String("group_id", env.GroupId),
			zap.String("user_id", userId),
			zap.Error(err),
		)
		return false
	}
	return ok
}

func (d *Dispatcher) deliver(ctx context.Context, target, key, except, event string, payload any) {
	delivery, err := NewDelivery(target, key, event, payload)
	if err != nil {
		zap.L().Error("build delivery failed", zap.String("event", event), zap.Error(err))
		return
	}
	delivery.Except = except
	if err := d.fanout.Deliver(ctx, delivery); err != nil {
		zap.L().Warn("delivery failed",
			zap.String("target", target),
			zap.String("key", key),
			zap.String("event", event),
			zap.Error(err),
		)
	}
}
