package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"contract_chat_server/pkg/errorx"

	"github.com/redis/go-redis/v9"
)

// 指向不可达地址的客户端，只用于验证 Worker 与错误包装
func newUnreachableCache(t *testing.T, workers, buffer int) *RedisCache {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	return NewRedisCache(client, workers, buffer)
}

func TestSubmitTaskRunsOnWorkers(t *testing.T) {
	rc := newUnreachableCache(t, 4, 16)

	var wg sync.WaitGroup
	var count int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		rc.SubmitTask(func() {
			defer wg.Done()
			atomic.AddInt32(&count, 1)
		})
	}
	wg.Wait()
	if got := atomic.LoadInt32(&count); got != 10 {
		t.Fatalf("ran %d tasks, want 10", got)
	}
	_ = rc.Close()
}

func TestSubmitTaskFallsBackWhenFull(t *testing.T) {
	rc := newUnreachableCache(t, 1, 1)
	defer rc.Close()

	block := make(chan struct{})
	started := make(chan struct{})
	rc.SubmitTask(func() {
		close(started)
		<-block
	})
	<-started
	// 占满缓冲区
	rc.SubmitTask(func() {})

	ran := false
	rc.SubmitTask(func() { ran = true })
	if !ran {
		t.Fatal("expected synchronous execution when the channel is full")
	}
	close(block)
}

func TestWorkerSurvivesPanic(t *testing.T) {
	rc := newUnreachableCache(t, 1, 4)
	defer rc.Close()

	done := make(chan struct{})
	rc.SubmitTask(func() { panic("boom") })
	rc.SubmitTask(func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not recover from panic")
	}
}

func TestCommandErrorsAreWrapped(t *testing.T) {
	rc := newUnreachableCache(t, 1, 1)
	defer rc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := rc.AddToSet(ctx, "chat:online_users", "U1")
	if err == nil {
		t.Fatal("expected error from unreachable redis")
	}
	if errorx.GetCode(err) != errorx.CodeCacheError {
		t.Fatalf("code = %d, want %d", errorx.GetCode(err), errorx.CodeCacheError)
	}
}
