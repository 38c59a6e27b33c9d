package mq

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// MessageWriter 向 Kafka 写消息
// *kafka.Writer 实现了该接口，测试中可替换
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MessageReader 从 Kafka 读消息
// *kafka.Reader 实现了该接口
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}
