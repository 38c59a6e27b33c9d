// Package chat 实现了聊天系统的核心服务层
// ws_conn.go
// 核心职责：WebSocket 连接生命周期管理
// 1. 读协程按顺序读取事件并交给 EventHandler
// 2. 写协程从出站队列取消息写回客户端
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"contract_chat_server/internal/dto/respond"
	"contract_chat_server/pkg/constants"
	"contract_chat_server/pkg/errorx"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const writeWait = 10 * time.Second

// WsOptions 单条连接的参数
type WsOptions struct {
	SendBuffer     int
	RateLimit      float64
	RateBurst      int
	ReadLimitBytes int64
}

// WsConn 基于 gorilla/websocket 的 Transport 实现
type WsConn struct {
	conn    *websocket.Conn
	id      string
	limiter *rate.Limiter
	opts    WsOptions

	// SendBack 出站队列，只由写协程消费
	SendBack chan []byte

	mu     sync.RWMutex
	userId string

	done      chan struct{}
	closeOnce sync.Once
}

// NewWsConn 包装已升级的连接
func NewWsConn(conn *websocket.Conn, opts WsOptions) *WsConn {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = constants.CHANNEL_SIZE
	}
	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 1
	}
	return &WsConn{
		conn:     conn,
		id:       uuid.NewString(),
		limiter:  rate.NewLimiter(limit, opts.RateBurst),
		opts:     opts,
		SendBack: make(chan []byte, opts.SendBuffer),
		done:     make(chan struct{}),
	}
}

func (c *WsConn) ID() string { return c.id }

func (c *WsConn) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userId
}

func (c *WsConn) Bind(userId string) {
	c.mu.Lock()
	c.userId = userId
	c.mu.Unlock()
}

// Emit 序列化为 {"event","data"} 帧放入出站队列
// 队列满时丢弃并返回 ErrSendBufferFull
func (c *WsConn) Emit(event string, payload any) error {
	frame, err := json.Marshal(struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}{Event: event, Data: payload})
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrTransportClosed
	default:
	}

	select {
	case c.SendBack <- frame:
		return nil
	case <-c.done:
		return ErrTransportClosed
	default:
		zap.L().Warn("ws send buffer full, dropping frame", zap.String("transport_id", c.id), zap.String("event", event))
		return ErrSendBufferFull
	}
}

// Close 可重复调用
func (c *WsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = c.conn.Close()
	})
	return err
}

// Serve 启动读写协程
func (c *WsConn) Serve(ctx context.Context, handler EventHandler) {
	go c.Write()
	go c.Read(ctx, handler)
}

// Read 读取客户端事件，同一连接的事件严格按到达顺序处理
// 返回时关闭连接并通知 handler
func (c *WsConn) Read(ctx context.Context, handler EventHandler) {
	defer func() {
		_ = c.Close()
		handler.OnClose(c)
	}()

	if c.opts.ReadLimitBytes > 0 {
		c.conn.SetReadLimit(c.opts.ReadLimitBytes)
	}

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				zap.L().Warn("ws read failed", zap.String("transport_id", c.id), zap.Error(err))
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil || frame.Event == "" {
			c.emitError(errorx.ErrInvalidParam)
			continue
		}
		if !c.limiter.Allow() {
			c.emitError(errorx.ErrRateLimited)
			continue
		}

		handler.HandleEvent(ctx, c, frame.Event, frame.Data)

		select {
		case <-c.done:
			return
		default:
		}
	}
}

// Write 从 SendBack 取消息写回客户端
func (c *WsConn) Write() {
	for {
		select {
		case frame := <-c.SendBack:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					zap.L().Warn("ws write failed", zap.String("transport_id", c.id), zap.Error(err))
				}
				_ = c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *WsConn) emitError(err *errorx.CodeError) {
	_ = c.Emit(EventMessageError, respond.ErrorPayload{Code: err.Code, Msg: err.Msg})
}

var _ Transport = (*WsConn)(nil)
