package mq

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"contract_chat_server/internal/config"
	"contract_chat_server/internal/service/chat"

	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

// fakeReader 依次返回队列中的消息，读完后返回 io.EOF
type fakeReader struct {
	msgs []kafka.Message
	errs []error
}

func (f *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return kafka.Message{}, err
	}
	if len(f.msgs) == 0 {
		return kafka.Message{}, io.EOF
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return m, nil
}

func (f *fakeReader) Close() error { return nil }

type recordingFanout struct {
	mu         sync.Mutex
	deliveries []chat.Delivery
}

func (r *recordingFanout) Deliver(_ context.Context, d chat.Delivery) error {
	r.mu.Lock()
	r.deliveries = append(r.deliveries, d)
	r.mu.Unlock()
	return nil
}

func TestDeliverPublishesKeyedMessage(t *testing.T) {
	w := &fakeWriter{}
	k := NewKafkaFanout(w, &fakeReader{}, &recordingFanout{})

	d, err := chat.NewDelivery(chat.TargetRoom, "group-42", chat.EventNewGroupMessage, map[string]string{"content": "hi"})
	if err != nil {
		t.Fatal(err)
	}
	d.Except = "1"
	if err := k.Deliver(context.Background(), d); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	if len(w.msgs) != 1 {
		t.Fatalf("published %d messages", len(w.msgs))
	}
	if string(w.msgs[0].Key) != "group-42" {
		t.Fatalf("key = %q", w.msgs[0].Key)
	}
	var got chat.Delivery
	if err := json.Unmarshal(w.msgs[0].Value, &got); err != nil {
		t.Fatal(err)
	}
	if got.Target != chat.TargetRoom || got.Except != "1" || string(got.Data) != `{"content":"hi"}` {
		t.Fatalf("delivery = %+v", got)
	}
}

func TestDeliverReportsWriteFailure(t *testing.T) {
	k := NewKafkaFanout(&fakeWriter{err: errors.New("broker down")}, &fakeReader{}, &recordingFanout{})
	if err := k.Deliver(context.Background(), chat.Delivery{Target: chat.TargetUser, Key: "2"}); err == nil {
		t.Fatal("expected publish error")
	}
}

func TestRunDeliversLocallyAndSkipsBadMessages(t *testing.T) {
	good, _ := json.Marshal(chat.Delivery{Target: chat.TargetUser, Key: "2", Event: chat.EventNewMessage, Data: json.RawMessage(`{}`)})
	reader := &fakeReader{msgs: []kafka.Message{
		{Value: []byte("garbage")},
		{Key: []byte("2"), Value: good},
	}}
	local := &recordingFanout{}
	k := NewKafkaFanout(&fakeWriter{}, reader, local)

	if err := k.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(local.deliveries) != 1 || local.deliveries[0].Key != "2" || local.deliveries[0].Event != chat.EventNewMessage {
		t.Fatalf("deliveries = %+v", local.deliveries)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reader := &fakeReader{errs: []error{errors.New("leader not available")}}
	k := NewKafkaFanout(&fakeWriter{}, reader, &recordingFanout{})

	done := make(chan error, 1)
	go func() { done <- k.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestInitRequiresBroker(t *testing.T) {
	if _, err := Init(&config.KafkaConfig{FanoutTopic: "chat_fanout"}, "node-1"); err == nil {
		t.Fatal("expected error without hostPort")
	}
}
