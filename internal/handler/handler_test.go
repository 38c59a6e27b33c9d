package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	myredis "contract_chat_server/internal/dao/redis"
	"contract_chat_server/internal/service/chat"
	"contract_chat_server/pkg/constants"
	"contract_chat_server/pkg/errorx"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type envelope struct {
	Code int             `json:"code"`
	Msg  any             `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return env
}

// setCache 只实现集合读取，其余方法不会被调用
type setCache struct {
	myredis.CacheService
	members map[string][]string
	err     error
}

func (s *setCache) GetSetMembers(_ context.Context, key string) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.members[key], nil
}

func TestGetOnlineUsers(t *testing.T) {
	gin.SetMode(gin.TestMode)

	online := &setCache{members: map[string][]string{constants.ONLINE_USERS_KEY: {"U3", "U2", "U1"}}}
	tests := []struct {
		name  string
		cache myredis.CacheService
		query string
		code  int
		users []string
		total int
	}{
		{"sorted members", online, "", errorx.CodeSuccess, []string{"U1", "U2", "U3"}, 3},
		{"limit", online, "?limit=2", errorx.CodeSuccess, []string{"U1", "U2"}, 3},
		{"empty set", &setCache{}, "", errorx.CodeSuccess, []string{}, 0},
		{"limit out of range", online, "?limit=5000", errorx.CodeInvalidParam, nil, 0},
		{"limit not a number", online, "?limit=abc", errorx.CodeInvalidParam, nil, 0},
		{"cache error", &setCache{err: errorx.New(errorx.CodeCacheError, "redis down")}, "", errorx.CodeCacheError, nil, 0},
		{"no cache", nil, "", errorx.CodeServerBusy, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/chat/online", NewOnlineHandler(tt.cache).GetOnlineUsers)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/chat/online"+tt.query, nil))

			env := decodeEnvelope(t, w)
			if env.Code != tt.code {
				t.Fatalf("code = %d, want %d", env.Code, tt.code)
			}
			if tt.users == nil {
				return
			}
			var data struct {
				Users []string `json:"users"`
				Total int      `json:"total"`
			}
			if err := json.Unmarshal(env.Data, &data); err != nil {
				t.Fatal(err)
			}
			if strings.Join(data.Users, ",") != strings.Join(tt.users, ",") || data.Users == nil {
				t.Fatalf("users = %v, want %v", data.Users, tt.users)
			}
			if data.Total != tt.total {
				t.Fatalf("total = %d, want %d", data.Total, tt.total)
			}
		})
	}
}

func TestHandleErrorEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/biz", func(c *gin.Context) { HandleError(c, errorx.ErrForbidden) })
	r.GET("/sys", func(c *gin.Context) { HandleError(c, errors.New("boom")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/biz", nil))
	if env := decodeEnvelope(t, w); env.Code != errorx.CodeForbidden {
		t.Fatalf("biz code = %d", env.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sys", nil))
	if env := decodeEnvelope(t, w); env.Code != errorx.CodeServerBusy {
		t.Fatalf("sys code = %d", env.Code)
	}
}

// greeter 收到任何事件都回一个 hello
type greeter struct{}

func (greeter) HandleEvent(_ context.Context, t chat.Transport, event string, _ json.RawMessage) {
	_ = t.Emit("hello", map[string]string{"got": event})
}

func (greeter) OnClose(chat.Transport) {}

func TestWsLoginHandlerUpgrades(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/wss", NewWsHandler(greeter{}, chat.WsOptions{}).WsLoginHandler)
	srv := httptest.NewServer(r)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/wss", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]any{"event": chat.EventAuthenticate, "data": "tok"}); err != nil {
		t.Fatal(err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var frame chat.Frame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read: %v", err)
	}
	if frame.Event != "hello" || string(frame.Data) != `{"got":"authenticate"}` {
		t.Fatalf("frame = %s %s", frame.Event, frame.Data)
	}
}

func TestWsLoginHandlerRejectsPlainHTTP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/wss", NewWsHandler(greeter{}, chat.WsOptions{}).WsLoginHandler)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/wss", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
