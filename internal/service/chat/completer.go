package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// CompletionRequest AI 服务 /ask 请求体
type CompletionRequest struct {
	History      string `json:"history"`
	Question     string `json:"question"`
	AnalysisMode bool   `json:"analysis_mode"`
}

type completionResponse struct {
	Answer *string `json:"answer"`
}

// Completer AI 补全服务
type Completer interface {
	Ask(ctx context.Context, req CompletionRequest) (string, error)
}

// FailureKind AI 调用失败类别，决定返回给用户的提示文案
type FailureKind int

const (
	FailureGeneric FailureKind = iota
	FailureTimeout
	FailureOffline
)

func (k FailureKind) String() string {
	switch k {
	case FailureTimeout:
		return "timeout"
	case FailureOffline:
		return "offline"
	default:
		return "generic"
	}
}

// CompletionError AI 调用失败
type CompletionError struct {
	Kind   FailureKind
	Status int
	Err    error
}

func (e *CompletionError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("ai completion %s (status %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("ai completion %s: %v", e.Kind, e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }

// ClassifyFailure 非 CompletionError 按 generic 处理
func ClassifyFailure(err error) FailureKind {
	var ce *CompletionError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	return FailureGeneric
}

// HTTPCompleter 通过 HTTP 调用 AI 服务
// 超时由调用方的 ctx 控制，只发一次请求
type HTTPCompleter struct {
	baseURL string
	client  *http.Client
}

// NewHTTPCompleter client 为 nil 时使用默认客户端
func NewHTTPCompleter(baseURL string, client *http.Client) *HTTPCompleter {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPCompleter{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (c *HTTPCompleter) Ask(ctx context.Context, req CompletionRequest) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", &CompletionError{Kind: FailureGeneric, Err: fmt.Errorf("marshal request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ask", bytes.NewReader(data))
	if err != nil {
		return "", &CompletionError{Kind: FailureGeneric, Err: fmt.Errorf("create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", &CompletionError{Kind: transportFailure(ctx, err), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &CompletionError{Kind: transportFailure(ctx, err), Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &CompletionError{Kind: FailureGeneric, Status: resp.StatusCode, Err: fmt.Errorf("unexpected response: %s", truncate(string(body), 200))}
	}

	var out completionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", &CompletionError{Kind: FailureGeneric, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if out.Answer == nil {
		return "", &CompletionError{Kind: FailureGeneric, Status: resp.StatusCode, Err: errors.New("response has no answer")}
	}
	return *out.Answer, nil
}

// transportFailure 区分超时、服务不可达和其他网络错误
func transportFailure(ctx context.Context, err error) FailureKind {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return FailureOffline
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return FailureOffline
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return FailureOffline
	}
	return FailureGeneric
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ Completer = (*HTTPCompleter)(nil)
