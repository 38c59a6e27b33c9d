package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"contract_chat_server/internal/model"
	"contract_chat_server/pkg/errorx"
)

type emitted struct {
	Event string
	Data  json.RawMessage
}

type fakeTransport struct {
	id string

	mu     sync.Mutex
	userId string
	events []emitted
	closed bool
}

func newFakeTransport(id string) *fakeTransport {
	return &fakeTransport{id: id}
}

func (f *fakeTransport) ID() string { return f.id }

func (f *fakeTransport) UserID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.userId
}

func (f *fakeTransport) Bind(userId string) {
	f.mu.Lock()
	f.userId = userId
	f.mu.Unlock()
}

func (f *fakeTransport) Emit(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrTransportClosed
	}
	f.events = append(f.events, emitted{Event: event, Data: data})
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeTransport) eventsNamed(name string) []emitted {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []emitted
	for _, e := range f.events {
		if e.Event == name {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeTransport) count(name string) int {
	return len(f.eventsNamed(name))
}

// waitFor 轮询直到出现指定数量的事件
func (f *fakeTransport) waitFor(t *testing.T, name string, n int) []emitted {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if got := f.eventsNamed(name); len(got) >= n {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("transport %s: timed out waiting for %d %q events, have %d", f.id, n, name, f.count(name))
	return nil
}

func decode[T any](t *testing.T, e emitted) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(e.Data, &out); err != nil {
		t.Fatalf("decode %s payload: %v", e.Event, err)
	}
	return out
}

type fakeVerifier map[string]string

func (f fakeVerifier) Verify(_ context.Context, token string) (string, error) {
	if userId, ok := f[token]; ok {
		return userId, nil
	}
	return "", errorx.ErrUnauthorized
}

type fakeMembership struct {
	groups map[string][]string
	err    error
	// gate 在查询开始时调用，可用来阻塞查询
	gate func(userUuid string)
}

func (f *fakeMembership) FindGroupUuidsByUser(_ context.Context, userUuid string) ([]string, error) {
	if f.gate != nil {
		f.gate(userUuid)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.groups[userUuid], nil
}

func (f *fakeMembership) IsMember(_ context.Context, groupUuid, userUuid string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	for _, g := range f.groups[userUuid] {
		if g == groupUuid {
			return true, nil
		}
	}
	return false, nil
}

type fakeDirectory map[string]Mention

func (f fakeDirectory) LookupByUsernameOrId(_ context.Context, token string) (Mention, bool, error) {
	if token == "broken" {
		return Mention{}, false, errors.New("directory unavailable")
	}
	m, ok := f[token]
	return m, ok, nil
}

type fakePersistence struct {
	mu      sync.Mutex
	nextId  int64
	rows    []Envelope
	inserts int
	fail    func(env *Envelope) bool
}

func (f *fakePersistence) insert(env *Envelope) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts++
	if f.fail != nil && f.fail(env) {
		return 0, errorx.New(errorx.CodeDBError, "insert failed")
	}
	f.nextId++
	env.PersistedId = f.nextId
	env.CreatedAt = time.Now()
	f.rows = append(f.rows, *env)
	return env.PersistedId, nil
}

func (f *fakePersistence) InsertDirectMessage(_ context.Context, env *Envelope) (int64, error) {
	return f.insert(env)
}

func (f *fakePersistence) InsertGroupMessage(_ context.Context, env *Envelope) (int64, error) {
	return f.insert(env)
}

func (f *fakePersistence) RecentHistory(_ context.Context, conversationId string, beforeId int64, limit int) ([]HistoryLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var lines []HistoryLine
	for _, row := range f.rows {
		if row.ConversationId() != conversationId {
			continue
		}
		if beforeId > 0 && row.PersistedId >= beforeId {
			continue
		}
		lines = append(lines, HistoryLine{SenderName: row.SenderName, Content: row.Content})
	}
	if len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	return lines, nil
}

func (f *fakePersistence) seed(env Envelope) {
	if _, err := f.insert(&env); err != nil {
		panic(err)
	}
}

func (f *fakePersistence) insertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inserts
}

type completerFunc func(ctx context.Context, req CompletionRequest) (string, error)

func (f completerFunc) Ask(ctx context.Context, req CompletionRequest) (string, error) {
	return f(ctx, req)
}

// userStoreFunc 适配 UserStore
type userStoreFunc func(ctx context.Context, token string) (*model.UserInfo, error)

func (f userStoreFunc) FindByUuidOrNickname(ctx context.Context, token string) (*model.UserInfo, error) {
	return f(ctx, token)
}

func notFound(token string) error {
	return errorx.Newf(errorx.CodeNotFound, "user %s not found", token)
}

func lines(s ...string) string {
	return strings.Join(s, "\n")
}

var aiIdentity = Identity{UserId: "U_AI_ASSISTANT", Name: "AI Assistant"}

// harnessDirectory 同时支持昵称和用户 ID 查找
var harnessDirectory = fakeDirectory{
	"alice": {UserId: "1", Username: "alice"},
	"1":     {UserId: "1", Username: "alice"},
	"bob":   {UserId: "2", Username: "bob"},
	"2":     {UserId: "2", Username: "bob"},
	"carol": {UserId: "3", Username: "carol"},
	"3":     {UserId: "3", Username: "carol"},
}

type harness struct {
	server      *ChatServer
	registry    *MemoryRegistry
	rooms       *Rooms
	persistence *fakePersistence
	membership  *fakeMembership
}

func newHarness(t *testing.T, completer Completer) *harness {
	t.Helper()
	registry := NewMemoryRegistry()
	rooms := NewRooms()
	persistence := &fakePersistence{}
	membership := &fakeMembership{groups: map[string][]string{}}
	fanout := NewLocalFanout(registry, rooms)

	var bridge *Bridge
	if completer != nil {
		bridge = NewBridge(BridgeConfig{
			Identity:        aiIdentity,
			Timeout:         200 * time.Millisecond,
			HistoryLimit:    50,
			DefaultQuestion: "default question",
		}, completer, persistence, NewDispatcher(fanout, membership))
		t.Cleanup(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = bridge.Shutdown(ctx)
		})
	}

	server := NewChatServer(Deps{
		Registry:    registry,
		Rooms:       rooms,
		Verifier:    fakeVerifier{"tok-1": "1", "tok-2": "2", "tok-3": "3", "tok-9": "9"},
		Membership:  membership,
		Directory:   harnessDirectory,
		Persistence: persistence,
		Fanout:      fanout,
		Bridge:      bridge,
	})
	return &harness{server: server, registry: registry, rooms: rooms, persistence: persistence, membership: membership}
}

func (h *harness) send(t Transport, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("marshal %s: %v", event, err))
	}
	h.server.HandleEvent(context.Background(), t, event, data)
}

func (h *harness) connect(t *testing.T, id, token string) *fakeTransport {
	t.Helper()
	tr := newFakeTransport(id)
	h.send(tr, EventAuthenticate, map[string]string{"token": token})
	if tr.isClosed() {
		t.Fatalf("transport %s closed during authenticate", id)
	}
	return tr
}
