package chat

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPCompleterSuccess(t *testing.T) {
	var got CompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ask" || r.Method != http.MethodPost {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"answer": "Summary: ok"})
	}))
	defer srv.Close()

	c := NewHTTPCompleter(srv.URL+"/", nil)
	answer, err := c.Ask(context.Background(), CompletionRequest{History: "a: b", Question: "summarize"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer != "Summary: ok" {
		t.Fatalf("answer = %q", answer)
	}
	if got.History != "a: b" || got.Question != "summarize" || got.AnalysisMode {
		t.Fatalf("request = %+v", got)
	}
}

func TestHTTPCompleterFailureKinds(t *testing.T) {
	status := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer status.Close()

	malformed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer malformed.Close()

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	// 监听后立即关闭，得到一个拒绝连接的地址
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	refused := "http://" + ln.Addr().String()
	_ = ln.Close()

	tests := []struct {
		name    string
		baseURL string
		timeout time.Duration
		want    FailureKind
	}{
		{"non-2xx", status.URL, time.Second, FailureGeneric},
		{"malformed", malformed.URL, time.Second, FailureGeneric},
		{"timeout", slow.URL, 50 * time.Millisecond, FailureTimeout},
		{"offline", refused, time.Second, FailureOffline},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), tt.timeout)
			defer cancel()
			_, err := NewHTTPCompleter(tt.baseURL, nil).Ask(ctx, CompletionRequest{Question: "q"})
			if err == nil {
				t.Fatal("expected error")
			}
			if kind := ClassifyFailure(err); kind != tt.want {
				t.Fatalf("kind = %v, want %v (err=%v)", kind, tt.want, err)
			}
		})
	}
}
