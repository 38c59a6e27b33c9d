// Package config 提供应用程序的配置加载和管理功能
// 使用 TOML 格式的配置文件，支持多路径查找
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml" // TOML 配置文件解析库
)

// MainConfig 主配置，包含应用基本信息
type MainConfig struct {
	AppName   string `toml:"appName"`   // 应用名称，用于日志标识等
	Host      string `toml:"host"`      // 服务器监听地址，如 "0.0.0.0"
	Port      int    `toml:"port"`      // 服务器监听端口，如 8000
	Mode      string `toml:"mode"`      // 运行模式："dev" 或 "release"
	IOTimeout int    `toml:"ioTimeout"` // 数据库等 IO 操作超时（秒）
	ForceTLS  bool   `toml:"forceTLS"`  // 是否将 HTTP 重定向到 HTTPS
}

// MysqlConfig MySQL 数据库连接配置
type MysqlConfig struct {
	Host         string `toml:"host"`         // MySQL 服务器地址
	Port         int    `toml:"port"`         // MySQL 端口，默认 3306
	User         string `toml:"user"`         // 数据库用户名
	Password     string `toml:"password"`     // 数据库密码
	DatabaseName string `toml:"databaseName"` // 数据库名称
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Host       string `toml:"host"`       // Redis 服务器地址
	Port       int    `toml:"port"`       // Redis 端口，默认 6379
	Password   string `toml:"password"`   // Redis 密码，无密码留空
	Db         int    `toml:"db"`         // Redis 数据库编号，默认 0
	WorkerNum  int    `toml:"workerNum"`  // 异步缓存任务 Worker 数量
	TaskBuffer int    `toml:"taskBuffer"` // 异步缓存任务通道大小
}

// LogConfig 日志配置，使用 lumberjack 进行日志轮转
type LogConfig struct {
	LogPath    string `toml:"logPath"`    // 日志文件存储目录
	FileName   string `toml:"fileName"`   // 日志文件名
	MaxSize    int    `toml:"maxSize"`    // 单个日志文件最大大小（MB）
	MaxBackups int    `toml:"maxBackups"` // 保留旧日志文件的最大个数
	MaxAge     int    `toml:"maxAge"`     // 保留旧日志文件的最大天数
	Level      string `toml:"level"`      // 日志级别：debug, info, warn, error
}

// KafkaConfig Kafka 消息队列配置
type KafkaConfig struct {
	MessageMode string        `toml:"messageMode"` // 投递模式："local" 或 "kafka"
	HostPort    string        `toml:"hostPort"`    // Kafka 服务器地址，如 "localhost:9092"
	FanoutTopic string        `toml:"fanoutTopic"` // 跨节点投递主题
	GroupID     string        `toml:"groupId"`     // 消费者组，每个节点需唯一才能收到全量投递
	Partition   int           `toml:"partition"`   // 分区数
	Timeout     time.Duration `toml:"timeout"`     // 超时时间（秒）
}

// JWTConfig JWT 认证配置
type JWTConfig struct {
	Secret            string `toml:"secret"`            // JWT 签名密钥，建议 32 字符以上
	AccessTokenExpiry int    `toml:"accessTokenExpiry"` // Access Token 有效期（分钟）
}

// SnowflakeConfig 雪花算法配置
type SnowflakeConfig struct {
	MachineID int64 `toml:"machineId"` // 雪花算法节点 ID，范围 0-1023，分布式部署时每台机器需唯一
}

// AIConfig AI 补全服务配置
type AIConfig struct {
	BaseURL         string `toml:"baseURL"`         // AI 服务地址，请求发往 BaseURL + "/ask"
	TimeoutSeconds  int    `toml:"timeoutSeconds"`  // 单次请求硬超时（秒）
	HistoryLimit    int    `toml:"historyLimit"`    // 拼接上下文时最多取的历史消息条数
	BotUserID       string `toml:"botUserId"`       // AI 保留身份的用户 ID
	BotName         string `toml:"botName"`         // AI 保留身份的显示名
	DefaultQuestion string `toml:"defaultQuestion"` // 去掉指令后内容为空时使用的默认问题
}

// WsConfig WebSocket 连接配置
type WsConfig struct {
	SendBuffer     int     `toml:"sendBuffer"`     // 每个连接出站队列大小
	RateLimit      float64 `toml:"rateLimit"`      // 每个连接每秒允许的入站事件数
	RateBurst      int     `toml:"rateBurst"`      // 入站事件突发上限
	ReadLimitBytes int64   `toml:"readLimitBytes"` // 单帧最大字节数
}

// Config 应用程序总配置，聚合所有子配置
type Config struct {
	MainConfig      `toml:"mainConfig"`      // 主配置
	MysqlConfig     `toml:"mysqlConfig"`     // MySQL 配置
	RedisConfig     `toml:"redisConfig"`     // Redis 配置
	LogConfig       `toml:"logConfig"`       // 日志配置
	KafkaConfig     `toml:"kafkaConfig"`     // Kafka 配置
	JWTConfig       `toml:"jwtConfig"`       // JWT 配置
	SnowflakeConfig `toml:"snowflakeConfig"` // 雪花算法配置
	AIConfig        `toml:"aiConfig"`        // AI 服务配置
	WsConfig        `toml:"wsConfig"`        // WebSocket 配置
}

// config 全局配置单例，延迟加载
var config *Config

// LoadConfig 从多个候选路径加载配置文件
// 按顺序尝试加载，找到第一个可用的配置文件即停止
func LoadConfig() error {
	paths := []string{
		"configs/config_local.toml",
		"configs/config.toml",
		"../../configs/config_local.toml",
		"../../configs/config.toml",
	}

	for _, path := range paths {
		if _, err := toml.DecodeFile(path, config); err == nil {
			return nil
		}
	}

	return fmt.Errorf("could not find configuration file in any of the search paths")
}

// Decode 从 TOML 文本解析配置并补齐默认值
func Decode(data string) (*Config, error) {
	conf := new(Config)
	if _, err := toml.Decode(data, conf); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	conf.ApplyDefaults()
	return conf, nil
}

// ApplyDefaults 为未配置的字段填充默认值
func (c *Config) ApplyDefaults() {
	if c.MainConfig.Port == 0 {
		c.MainConfig.Port = 8000
	}
	if c.MainConfig.Mode == "" {
		c.MainConfig.Mode = "dev"
	}
	if c.MainConfig.IOTimeout <= 0 {
		c.MainConfig.IOTimeout = 5
	}
	if c.JWTConfig.AccessTokenExpiry <= 0 {
		c.JWTConfig.AccessTokenExpiry = 60
	}
	if c.RedisConfig.WorkerNum <= 0 {
		c.RedisConfig.WorkerNum = 15
	}
	if c.RedisConfig.TaskBuffer <= 0 {
		c.RedisConfig.TaskBuffer = 3000
	}
	if c.KafkaConfig.MessageMode == "" {
		c.KafkaConfig.MessageMode = "local"
	}
	if c.KafkaConfig.FanoutTopic == "" {
		c.KafkaConfig.FanoutTopic = "chat_fanout"
	}
	if c.KafkaConfig.Timeout <= 0 {
		c.KafkaConfig.Timeout = 1
	}
	if c.AIConfig.TimeoutSeconds <= 0 {
		c.AIConfig.TimeoutSeconds = 30
	}
	if c.AIConfig.HistoryLimit <= 0 {
		c.AIConfig.HistoryLimit = 50
	}
	if c.AIConfig.BotUserID == "" {
		c.AIConfig.BotUserID = "U_AI_ASSISTANT"
	}
	if c.AIConfig.BotName == "" {
		c.AIConfig.BotName = "AI Assistant"
	}
	if c.AIConfig.DefaultQuestion == "" {
		c.AIConfig.DefaultQuestion = "Please reply to the latest messages in this conversation."
	}
	if c.WsConfig.SendBuffer <= 0 {
		c.WsConfig.SendBuffer = 100
	}
	if c.WsConfig.RateLimit <= 0 {
		c.WsConfig.RateLimit = 10
	}
	if c.WsConfig.RateBurst <= 0 {
		c.WsConfig.RateBurst = 20
	}
	if c.WsConfig.ReadLimitBytes <= 0 {
		c.WsConfig.ReadLimitBytes = 64 * 1024
	}
}

// GetConfig 获取全局配置实例（单例模式）
// 首次调用时会自动加载配置文件
func GetConfig() *Config {
	if config == nil {
		config = new(Config)
		_ = LoadConfig() // 忽略加载错误，使用默认值
		config.ApplyDefaults()
	}
	return config
}
