package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"contract_chat_server/internal/dto/respond"
	"contract_chat_server/pkg/errorx"

	"github.com/gorilla/websocket"
)

// echoHandler 把收到的事件原样回给客户端
type echoHandler struct {
	mu     sync.Mutex
	closed []string
}

func (e *echoHandler) HandleEvent(_ context.Context, t Transport, event string, data json.RawMessage) {
	if event == EventDisconnect {
		_ = t.Close()
		return
	}
	t.Bind("u-" + event)
	_ = t.Emit("echo:"+event, data)
}

func (e *echoHandler) OnClose(t Transport) {
	e.mu.Lock()
	e.closed = append(e.closed, t.UserID())
	e.mu.Unlock()
}

func (e *echoHandler) closedUsers() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.closed...)
}

func startWsServer(t *testing.T, opts WsOptions, handler EventHandler) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		NewWsConn(conn, opts).Serve(context.Background(), handler)
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func readFrame(t *testing.T, client *websocket.Conn) Frame {
	t.Helper()
	_ = client.SetReadDeadline(time.Now().Add(3 * time.Second))
	var f Frame
	if err := client.ReadJSON(&f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

func TestWsConnRoundTrip(t *testing.T) {
	client := startWsServer(t, WsOptions{}, &echoHandler{})

	if err := client.WriteJSON(map[string]any{"event": "ping", "data": map[string]string{"x": "1"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	f := readFrame(t, client)
	if f.Event != "echo:ping" || string(f.Data) != `{"x":"1"}` {
		t.Fatalf("frame = %s %s", f.Event, f.Data)
	}
}

func TestWsConnMalformedFrameKeepsConnection(t *testing.T) {
	client := startWsServer(t, WsOptions{}, &echoHandler{})

	for _, raw := range []string{"not json", `{"data": 1}`} {
		if err := client.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
			t.Fatalf("write: %v", err)
		}
		f := readFrame(t, client)
		if f.Event != EventMessageError {
			t.Fatalf("event = %s, want %s", f.Event, EventMessageError)
		}
		var p respond.ErrorPayload
		if err := json.Unmarshal(f.Data, &p); err != nil || p.Code != errorx.CodeInvalidParam {
			t.Fatalf("payload = %s", f.Data)
		}
	}

	_ = client.WriteJSON(map[string]any{"event": "still-here"})
	if f := readFrame(t, client); f.Event != "echo:still-here" {
		t.Fatalf("event = %s", f.Event)
	}
}

func TestWsConnRateLimit(t *testing.T) {
	client := startWsServer(t, WsOptions{RateLimit: 0.001, RateBurst: 1}, &echoHandler{})

	_ = client.WriteJSON(map[string]any{"event": "first"})
	_ = client.WriteJSON(map[string]any{"event": "second"})

	if f := readFrame(t, client); f.Event != "echo:first" {
		t.Fatalf("event = %s", f.Event)
	}
	f := readFrame(t, client)
	var p respond.ErrorPayload
	_ = json.Unmarshal(f.Data, &p)
	if f.Event != EventMessageError || p.Code != errorx.CodeRateLimited {
		t.Fatalf("frame = %s %s", f.Event, f.Data)
	}
}

func TestWsConnCloseNotifiesHandler(t *testing.T) {
	handler := &echoHandler{}
	client := startWsServer(t, WsOptions{}, handler)

	_ = client.WriteJSON(map[string]any{"event": "hello"})
	readFrame(t, client)
	_ = client.WriteJSON(map[string]any{"event": EventDisconnect})

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if got := handler.closedUsers(); len(got) == 1 {
			if got[0] != "u-hello" {
				t.Fatalf("closed user = %q", got[0])
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("OnClose was not called")
}
