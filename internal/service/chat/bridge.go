// Package chat 实现了聊天系统的核心服务层
// bridge.go
// 核心职责：异步调用 AI 补全服务，把回复作为 AI 身份的消息落库并投递
package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"contract_chat_server/internal/dto/respond"
	"contract_chat_server/pkg/errorx"

	"go.uber.org/zap"
)

// AI 调用失败时代替回复的文案
const (
	ReplyTimeout = "The AI assistant is taking longer than usual to respond. Please try again in a moment."
	ReplyOffline = "The AI assistant is currently offline. Please try again later."
	ReplyGeneric = "Sorry, the AI assistant ran into a problem while generating a reply. Please try again."
)

// BridgeState 单次 AI 请求的状态
type BridgeState int

const (
	StateIdle BridgeState = iota
	StateRequestSent
	StateSucceeded
	StateTimedOut
	StateFailed
)

func (s BridgeState) String() string {
	switch s {
	case StateRequestSent:
		return "request_sent"
	case StateSucceeded:
		return "succeeded"
	case StateTimedOut:
		return "timed_out"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// BridgeConfig AI 桥接配置
type BridgeConfig struct {
	Identity        Identity
	Timeout         time.Duration
	HistoryLimit    int
	DefaultQuestion string
	// IOTimeout 读取历史和落库的超时
	IOTimeout time.Duration
}

// Bridge AI 桥接
// 每次触发在独立的 goroutine 中执行，与用户后续消息互不阻塞
type Bridge struct {
	cfg         BridgeConfig
	completer   Completer
	persistence Persistence
	dispatcher  *Dispatcher

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewBridge 创建 AI 桥接
func NewBridge(cfg BridgeConfig, completer Completer, persistence Persistence, dispatcher *Dispatcher) *Bridge {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 50
	}
	if cfg.IOTimeout <= 0 {
		cfg.IOTimeout = 5 * time.Second
	}
	return &Bridge{
		cfg:         cfg,
		completer:   completer,
		persistence: persistence,
		dispatcher:  dispatcher,
	}
}

// Identity AI 保留身份
func (b *Bridge) Identity() Identity {
	return b.cfg.Identity
}

// aiRequest 一次 AI 请求的状态机
type aiRequest struct {
	conversationId string
	triggerId      int64
	state          BridgeState
}

func (r *aiRequest) transition(to BridgeState) {
	zap.L().Debug("ai bridge transition",
		zap.String("conversation_id", r.conversationId),
		zap.Int64("trigger_id", r.triggerId),
		zap.Stringer("from", r.state),
		zap.Stringer("to", to),
	)
	r.state = to
}

// begin 登记一个进行中的请求，Shutdown 之后返回 false
func (b *Bridge) begin() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	b.wg.Add(1)
	return true
}

// Trigger 对一条已落库、带 AI 指令的消息发起回复
func (b *Bridge) Trigger(trigger Envelope) {
	if !b.begin() {
		zap.L().Warn("ai bridge closed, trigger dropped",
			zap.String("conversation_id", trigger.ConversationId()),
			zap.Int64("trigger_id", trigger.PersistedId),
		)
		return
	}
	go func() {
		defer b.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				zap.L().Error("ai bridge panic", zap.Any("recover", rec))
			}
		}()
		b.reply(&trigger)
	}()
}

func (b *Bridge) reply(trigger *Envelope) {
	req := &aiRequest{conversationId: trigger.ConversationId(), triggerId: trigger.PersistedId, state: StateIdle}

	question := StripDirectives(trigger.Content)
	if question == "" {
		question = b.cfg.DefaultQuestion
	}
	history := b.history(req.conversationId, trigger.PersistedId)

	req.transition(StateRequestSent)
	answer, err := b.ask(CompletionRequest{History: history, Question: question})

	reply := b.replyEnvelope(trigger)
	if err == nil {
		req.transition(StateSucceeded)
		reply.Content = answer
	} else {
		kind := ClassifyFailure(err)
		if kind == FailureTimeout {
			req.transition(StateTimedOut)
		} else {
			req.transition(StateFailed)
		}
		zap.L().Warn("ai completion failed",
			zap.String("conversation_id", req.conversationId),
			zap.Stringer("kind", kind),
			zap.Error(err),
		)
		reply.Content = cannedReply(kind)
		reply.IsError = true
	}

	b.deliver(reply)
	req.transition(StateIdle)
}

// ask 只发一次请求，超时后不重试
func (b *Bridge) ask(req CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.Timeout)
	defer cancel()

	answer, err := b.completer.Ask(ctx, req)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(answer) == "" && !req.AnalysisMode {
		return "", &CompletionError{Kind: FailureGeneric, Err: errorx.New(errorx.CodeAIUnavailable, "empty answer")}
	}
	return answer, nil
}

// history 拼接会话历史，读取失败时使用空历史继续
func (b *Bridge) history(conversationId string, beforeId int64) string {
	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.IOTimeout)
	defer cancel()

	lines, err := b.persistence.RecentHistory(ctx, conversationId, beforeId, b.cfg.HistoryLimit)
	if err != nil {
		zap.L().Warn("load ai history failed", zap.String("conversation_id", conversationId), zap.Error(err))
		return ""
	}
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		parts = append(parts, line.String())
	}
	return strings.Join(parts, "\n")
}

func (b *Bridge) replyEnvelope(trigger *Envelope) *Envelope {
	reply := &Envelope{
		SenderId:     b.cfg.Identity.UserId,
		SenderName:   b.cfg.Identity.Name,
		Scope:        trigger.Scope,
		Tags:         TagSet{Special: []string{SpecialAIResponse}},
		IsAIResponse: true,
	}
	if trigger.Scope == ScopeGroup {
		reply.GroupId = trigger.GroupId
	} else {
		a, c := trigger.participants()
		reply.ReceiverId = trigger.SenderId
		reply.Thread = [2]string{a, c}
	}
	return reply
}

// deliver 落库后投递，落库失败时不带 ID 直接投递
func (b *Bridge) deliver(reply *Envelope) {
	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.IOTimeout)
	defer cancel()

	var err error
	if reply.Scope == ScopeGroup {
		_, err = b.persistence.InsertGroupMessage(ctx, reply)
	} else {
		_, err = b.persistence.InsertDirectMessage(ctx, reply)
	}
	if err != nil {
		zap.L().Error("persist ai reply failed, delivering without id",
			zap.String("conversation_id", reply.ConversationId()),
			zap.Error(err),
		)
		reply.PersistedId = 0
		reply.CreatedAt = time.Now()
	}
	b.dispatcher.Dispatch(ctx, reply)
}

// Analyze 总结会话，结果只发给发起请求的连接
func (b *Bridge) Analyze(t Transport, conversationId, chatType, chatId string) {
	if !b.begin() {
		_ = t.Emit(EventAnalysisError, respond.ErrorPayload{
			Code:     errorx.CodeAIUnavailable,
			Msg:      errorx.ErrAIUnavailable.Msg,
			ChatId:   chatId,
			ChatType: chatType,
		})
		return
	}
	go func() {
		defer b.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				zap.L().Error("ai analysis panic", zap.Any("recover", rec))
			}
		}()

		history := b.history(conversationId, 0)
		if history == "" {
			_ = t.Emit(EventAnalysisError, respond.ErrorPayload{
				Code:     errorx.CodeNotFound,
				Msg:      "no messages to analyze",
				ChatId:   chatId,
				ChatType: chatType,
			})
			return
		}

		summary, err := b.ask(CompletionRequest{History: history, Question: "", AnalysisMode: true})
		if err != nil {
			kind := ClassifyFailure(err)
			zap.L().Warn("ai analysis failed",
				zap.String("conversation_id", conversationId),
				zap.Stringer("kind", kind),
				zap.Error(err),
			)
			_ = t.Emit(EventAnalysisError, respond.ErrorPayload{
				Code:     errorx.CodeAIUnavailable,
				Msg:      cannedReply(kind),
				ChatId:   chatId,
				ChatType: chatType,
			})
			return
		}
		_ = t.Emit(EventAnalysisComplete, respond.AnalysisPayload{ChatId: chatId, ChatType: chatType, Summary: summary})
	}()
}

// Shutdown 拒绝新的请求并等待进行中的请求结束
func (b *Bridge) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return b.Wait(ctx)
}

// Wait 等待所有进行中的 AI 请求结束，ctx 结束时提前返回
func (b *Bridge) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func cannedReply(kind FailureKind) string {
	switch kind {
	case FailureTimeout:
		return ReplyTimeout
	case FailureOffline:
		return ReplyOffline
	default:
		return ReplyGeneric
	}
}
