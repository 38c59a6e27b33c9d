package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"contract_chat_server/internal/service/chat"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// readRetryWait 读失败后的等待时间
const readRetryWait = time.Second

// KafkaFanout 把投递写入 Kafka，由每个节点的消费者交给本地连接
// 用户连在哪个节点都能收到消息
type KafkaFanout struct {
	writer MessageWriter
	reader MessageReader
	local  chat.Fanout
}

// NewKafkaFanout local 为本节点的投递实现
func NewKafkaFanout(writer MessageWriter, reader MessageReader, local chat.Fanout) *KafkaFanout {
	return &KafkaFanout{writer: writer, reader: reader, local: local}
}

// Deliver 以目标 key 作为消息 key，同一用户或房间的投递落在同一分区保持顺序
func (k *KafkaFanout) Deliver(ctx context.Context, d chat.Delivery) error {
	value, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal delivery: %w", err)
	}
	if err := k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(d.Key), Value: value}); err != nil {
		return fmt.Errorf("publish delivery to kafka: %w", err)
	}
	return nil
}

// Run 持续消费并投递到本节点，ctx 取消或 reader 关闭时返回 nil
func (k *KafkaFanout) Run(ctx context.Context) error {
	for {
		msg, err := k.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			zap.L().Error("read kafka delivery failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(readRetryWait):
			}
			continue
		}

		var d chat.Delivery
		if err := json.Unmarshal(msg.Value, &d); err != nil {
			zap.L().Error("decode kafka delivery failed",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			continue
		}
		if err := k.local.Deliver(ctx, d); err != nil {
			zap.L().Warn("local delivery failed",
				zap.String("target", d.Target),
				zap.String("key", d.Key),
				zap.String("event", d.Event),
				zap.Error(err),
			)
		}
	}
}

var _ chat.Fanout = (*KafkaFanout)(nil)
