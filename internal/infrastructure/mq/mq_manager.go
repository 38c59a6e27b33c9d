package mq

import (
	"fmt"
	"time"

	myconfig "contract_chat_server/internal/config"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaService 持有跨节点投递用的读写端
type KafkaService struct {
	Writer MessageWriter
	Reader MessageReader
}

// Init 初始化 kafka 读写端
// 每个节点使用独立的消费者组，保证所有节点都能收到全量投递
func Init(conf *myconfig.KafkaConfig, nodeId string) (*KafkaService, error) {
	if conf.HostPort == "" {
		return nil, fmt.Errorf("kafka hostPort is empty")
	}
	groupID := conf.GroupID
	if groupID == "" {
		groupID = "chat-fanout-" + nodeId
	}
	if conf.Partition > 0 {
		createTopic(conf)
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(conf.HostPort),
		Topic:                  conf.FanoutTopic,
		Balancer:               &kafka.Hash{},
		WriteTimeout:           conf.Timeout * time.Second,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{conf.HostPort},
		Topic:          conf.FanoutTopic,
		CommitInterval: conf.Timeout * time.Second,
		GroupID:        groupID,
		StartOffset:    kafka.LastOffset,
	})
	zap.L().Info("kafka fanout ready",
		zap.String("broker", conf.HostPort),
		zap.String("topic", conf.FanoutTopic),
		zap.String("group_id", groupID),
	)
	return &KafkaService{Writer: writer, Reader: reader}, nil
}

// Close 关闭读写端
func (k *KafkaService) Close() {
	if err := k.Writer.Close(); err != nil {
		zap.L().Error("close kafka writer failed", zap.Error(err))
	}
	if err := k.Reader.Close(); err != nil {
		zap.L().Error("close kafka reader failed", zap.Error(err))
	}
}

// createTopic topic 已存在时 broker 返回错误，只记录日志
func createTopic(conf *myconfig.KafkaConfig) {
	conn, err := kafka.Dial("tcp", conf.HostPort)
	if err != nil {
		zap.L().Warn("dial kafka for topic creation failed", zap.Error(err))
		return
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             conf.FanoutTopic,
		NumPartitions:     conf.Partition,
		ReplicationFactor: 1,
	})
	if err != nil {
		zap.L().Warn("create kafka topic failed", zap.String("topic", conf.FanoutTopic), zap.Error(err))
	}
}
