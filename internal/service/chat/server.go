// Package chat 实现了聊天系统的核心服务层
// server.go
// 核心职责：聊天服务器聚合结构，处理每条连接上的事件
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	myredis "contract_chat_server/internal/dao/redis"
	"contract_chat_server/internal/dto/request"
	"contract_chat_server/internal/dto/respond"
	"contract_chat_server/pkg/constants"
	"contract_chat_server/pkg/errorx"
	"contract_chat_server/pkg/util/validate"

	"go.uber.org/zap"
)

// Deps ChatServer 依赖
type Deps struct {
	Registry    Registry
	Rooms       *Rooms
	Verifier    TokenVerifier
	Membership  MembershipStore
	Directory   UserDirectory
	Persistence Persistence
	Fanout      Fanout
	Bridge      *Bridge
	// Presence 在线状态集合，可为 nil
	Presence  myredis.AsyncCacheService
	IOTimeout time.Duration
}

// ChatServer 聊天服务器
type ChatServer struct {
	registry    Registry
	rooms       *Rooms
	verifier    TokenVerifier
	resolver    *Resolver
	parser      *Parser
	persistence Persistence
	dispatcher  *Dispatcher
	bridge      *Bridge
	presence    myredis.AsyncCacheService
	ioTimeout   time.Duration
}

// NewChatServer 创建聊天服务器
// Bridge 为 nil 时不响应 AI 指令
func NewChatServer(d Deps) *ChatServer {
	if d.IOTimeout <= 0 {
		d.IOTimeout = 5 * time.Second
	}
	return &ChatServer{
		registry:    d.Registry,
		rooms:       d.Rooms,
		verifier:    d.Verifier,
		resolver:    NewResolver(d.Membership, d.Rooms),
		parser:      NewParser(d.Directory),
		persistence: d.Persistence,
		dispatcher:  NewDispatcher(d.Fanout, d.Membership),
		bridge:      d.Bridge,
		presence:    d.Presence,
		ioTimeout:   d.IOTimeout,
	}
}

// HandleEvent 分发单个事件，panic 只影响当前事件
func (s *ChatServer) HandleEvent(ctx context.Context, t Transport, event string, data json.RawMessage) {
	defer func() {
		if rec := recover(); rec != nil {
			zap.L().Error("chat handler panic",
				zap.String("event", event),
				zap.String("transport_id", t.ID()),
				zap.Any("recover", rec),
			)
			emitError(t, errorx.ErrServerBusy)
		}
	}()

	switch event {
	case EventAuthenticate:
		s.authenticate(ctx, t, data)
	case EventPrivateMessage:
		s.privateMessage(ctx, t, data)
	case EventGroupMessage:
		s.groupMessage(ctx, t, data)
	case EventAnalyzeChat:
		s.analyzeChat(t, data)
	case EventDisconnect:
		_ = t.Close()
	default:
		emitError(t, errorx.Newf(errorx.CodeInvalidParam, "unknown event %q", event))
	}
}

// OnClose 连接断开时解除绑定并退出所有房间
// 已被新连接替换的旧连接不会影响新的绑定
func (s *ChatServer) OnClose(t Transport) {
	s.rooms.LeaveAll(t)
	userId := t.UserID()
	if userId == "" {
		return
	}
	if s.registry.Remove(userId, t) {
		s.setPresence(userId, false)
		zap.L().Info("user disconnected", zap.String("user_id", userId), zap.String("transport_id", t.ID()))
	}
}

// authenticate 认证失败直接关闭连接，不回任何消息
func (s *ChatServer) authenticate(ctx context.Context, t Transport, data json.RawMessage) {
	token := decodeToken(data)
	if token == "" {
		zap.L().Info("authenticate without token", zap.String("transport_id", t.ID()))
		_ = t.Close()
		return
	}

	userId, err := s.verifier.Verify(ctx, token)
	if err != nil || userId == "" {
		zap.L().Info("authenticate failed", zap.String("transport_id", t.ID()), zap.Error(err))
		_ = t.Close()
		return
	}

	// 同一连接换了用户，先解除旧绑定
	if old := t.UserID(); old != "" && old != userId {
		s.registry.Remove(old, t)
		s.rooms.LeaveAll(t)
	}
	t.Bind(userId)

	if prev := s.registry.Set(userId, t); prev != nil {
		// 旧连接不关闭也不通知，只是不再收到该用户的消息
		s.rooms.LeaveAll(prev)
		zap.L().Info("connection replaced",
			zap.String("user_id", userId),
			zap.String("old_transport_id", prev.ID()),
			zap.String("new_transport_id", t.ID()),
		)
	}

	qctx, cancel := context.WithTimeout(ctx, s.ioTimeout)
	groups := s.resolver.ResolveAndJoin(qctx, userId, t)
	cancel()

	// 查询群组期间已被同一用户的新连接替换，退出刚加入的房间
	if cur, ok := s.registry.Get(userId); !ok || cur.ID() != t.ID() {
		s.rooms.LeaveAll(t)
		zap.L().Info("connection replaced during authenticate",
			zap.String("user_id", userId),
			zap.String("transport_id", t.ID()),
		)
		return
	}

	s.setPresence(userId, true)
	if groups == nil {
		groups = []string{}
	}
	_ = t.Emit(EventAuthenticated, respond.AuthenticatedPayload{UserId: userId, Groups: groups})
	zap.L().Info("user authenticated", zap.String("user_id", userId), zap.String("transport_id", t.ID()), zap.Int("groups", len(groups)))
}

func (s *ChatServer) privateMessage(ctx context.Context, t Transport, data json.RawMessage) {
	userId, ok := s.requireAuth(t)
	if !ok {
		return
	}
	var req request.PrivateMessageRequest
	if !decodeAndValidate(t, data, &req) {
		return
	}
	env := &Envelope{
		SenderId:   userId,
		SenderName: userId,
		Scope:      ScopeDirect,
		ReceiverId: req.ReceiverId,
		Content:    req.MessageContent,
	}
	s.handleMessage(ctx, t, env)
}

func (s *ChatServer) groupMessage(ctx context.Context, t Transport, data json.RawMessage) {
	userId, ok := s.requireAuth(t)
	if !ok {
		return
	}
	var req request.GroupMessageRequest
	if !decodeAndValidate(t, data, &req) {
		return
	}
	if !s.rooms.IsSubscribed(RoomName(req.GroupId), t) {
		emitError(t, errorx.ErrForbidden)
		return
	}
	env := &Envelope{
		SenderId:   userId,
		SenderName: userId,
		Scope:      ScopeGroup,
		GroupId:    req.GroupId,
		Content:    req.MessageContent,
	}
	s.handleMessage(ctx, t, env)
}

// handleMessage 校验 -> 解析标签 -> 落库 -> 投递 -> 按需触发 AI
func (s *ChatServer) handleMessage(ctx context.Context, t Transport, env *Envelope) {
	env.Content = strings.TrimSpace(env.Content)
	if env.Content == "" {
		emitError(t, errorx.ErrEmptyContent)
		return
	}

	ioCtx, cancel := context.WithTimeout(ctx, s.ioTimeout)
	defer cancel()

	env.SenderName = s.senderName(ioCtx, env.SenderId)
	env.Tags = s.parser.Parse(ioCtx, env.Content, env.Scope)

	var err error
	if env.Scope == ScopeGroup {
		_, err = s.persistence.InsertGroupMessage(ioCtx, env)
	} else {
		_, err = s.persistence.InsertDirectMessage(ioCtx, env)
	}
	if err != nil {
		zap.L().Error("persist message failed",
			zap.String("sender_id", env.SenderId),
			zap.String("conversation_id", env.ConversationId()),
			zap.Error(err),
		)
		emitError(t, errorx.Wrap(err, errorx.CodeDBError, "message could not be saved"))
		return
	}

	s.dispatcher.Dispatch(ctx, env)

	if s.bridge != nil && env.Tags.Has(SpecialAIRequest) {
		s.bridge.Trigger(*env)
	}
}

func (s *ChatServer) analyzeChat(t Transport, data json.RawMessage) {
	userId, ok := s.requireAuth(t)
	if !ok {
		return
	}
	var req request.AnalyzeChatRequest
	if !decodeAndValidate(t, data, &req) {
		return
	}
	if s.bridge == nil {
		_ = t.Emit(EventAnalysisError, respond.ErrorPayload{
			Code:     errorx.CodeAIUnavailable,
			Msg:      errorx.ErrAIUnavailable.Msg,
			ChatId:   req.ChatId,
			ChatType: req.ChatType,
		})
		return
	}

	var conversationId string
	if req.ChatType == string(ScopeGroup) {
		if !s.rooms.IsSubscribed(RoomName(req.ChatId), t) {
			_ = t.Emit(EventAnalysisError, respond.ErrorPayload{
				Code:     errorx.CodeForbidden,
				Msg:      errorx.ErrForbidden.Msg,
				ChatId:   req.ChatId,
				ChatType: req.ChatType,
			})
			return
		}
		conversationId = req.ChatId
	} else {
		conversationId = (&Envelope{Scope: ScopeDirect, SenderId: userId, ReceiverId: req.ChatId}).ConversationId()
	}
	s.bridge.Analyze(t, conversationId, req.ChatType, req.ChatId)
}

func (s *ChatServer) requireAuth(t Transport) (string, bool) {
	userId := t.UserID()
	if userId == "" {
		emitError(t, errorx.ErrUnauthorized)
		return "", false
	}
	// 被新连接替换后的旧连接不能再以该用户身份发消息
	if cur, ok := s.registry.Get(userId); !ok || cur.ID() != t.ID() {
		emitError(t, errorx.ErrUnauthorized)
		return "", false
	}
	return userId, true
}

// senderName 通过用户目录取昵称，取不到时使用用户 ID
func (s *ChatServer) senderName(ctx context.Context, userId string) string {
	if s.parser.dir == nil {
		return userId
	}
	m, ok, err := s.parser.dir.LookupByUsernameOrId(ctx, userId)
	if err != nil || !ok || m.Username == "" {
		return userId
	}
	return m.Username
}

func (s *ChatServer) setPresence(userId string, online bool) {
	if s.presence == nil {
		return
	}
	s.presence.SubmitTask(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.ioTimeout)
		defer cancel()
		var err error
		if online {
			err = s.presence.AddToSet(ctx, constants.ONLINE_USERS_KEY, userId)
		} else {
			err = s.presence.RemoveFromSet(ctx, constants.ONLINE_USERS_KEY, userId)
		}
		if err != nil {
			zap.L().Warn("update presence failed", zap.String("user_id", userId), zap.Bool("online", online), zap.Error(err))
		}
	})
}

// decodeToken data 可以是 {"token": "..."} 或直接是字符串
func decodeToken(data json.RawMessage) string {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		return strings.TrimSpace(raw)
	}
	var req request.AuthenticateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return ""
	}
	if err := validate.Struct(&req); err != nil {
		return ""
	}
	return strings.TrimSpace(req.Token)
}

func decodeAndValidate(t Transport, data json.RawMessage, out any) bool {
	if len(data) == 0 {
		emitError(t, errorx.ErrInvalidParam)
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		emitError(t, errorx.Wrap(err, errorx.CodeInvalidParam, errorx.ErrInvalidParam.Msg))
		return false
	}
	if err := validate.Struct(out); err != nil {
		emitError(t, err)
		return false
	}
	return true
}

func emitError(t Transport, err error) {
	payload := respond.ErrorPayload{Code: errorx.CodeServerBusy, Msg: errorx.ErrServerBusy.Msg}
	var codeErr *errorx.CodeError
	if errors.As(err, &codeErr) {
		payload.Code = codeErr.Code
		payload.Msg = codeErr.Msg
	}
	_ = t.Emit(EventMessageError, payload)
}

var _ EventHandler = (*ChatServer)(nil)
