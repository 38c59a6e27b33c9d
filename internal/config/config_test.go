package config

import (
	"testing"
	"time"
)

func TestDecodeAppliesDefaults(t *testing.T) {
	conf, err := Decode(`
[mainConfig]
appName = "contract_chat"

[aiConfig]
baseURL = "http://127.0.0.1:5000"
`)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if conf.AppName != "contract_chat" {
		t.Fatalf("appName = %q", conf.AppName)
	}
	if conf.AIConfig.TimeoutSeconds != 30 {
		t.Fatalf("ai timeout = %d, want 30", conf.AIConfig.TimeoutSeconds)
	}
	if conf.AIConfig.HistoryLimit != 50 {
		t.Fatalf("history limit = %d, want 50", conf.AIConfig.HistoryLimit)
	}
	if conf.KafkaConfig.MessageMode != "local" {
		t.Fatalf("message mode = %q, want local", conf.KafkaConfig.MessageMode)
	}
	if conf.AIConfig.BotUserID == "" {
		t.Fatal("bot user id must have a default")
	}
}

func TestDecodeKeepsExplicitValues(t *testing.T) {
	conf, err := Decode(`
[kafkaConfig]
messageMode = "kafka"
hostPort = "kafka:9092"
timeout = 3

[aiConfig]
timeoutSeconds = 10
botUserId = "U_BOT"
`)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if conf.KafkaConfig.MessageMode != "kafka" || conf.KafkaConfig.HostPort != "kafka:9092" {
		t.Fatalf("kafka config = %+v", conf.KafkaConfig)
	}
	if conf.KafkaConfig.Timeout != time.Duration(3) {
		t.Fatalf("kafka timeout = %v", conf.KafkaConfig.Timeout)
	}
	if conf.AIConfig.TimeoutSeconds != 10 || conf.AIConfig.BotUserID != "U_BOT" {
		t.Fatalf("ai config = %+v", conf.AIConfig)
	}
}

func TestDecodeRejectsMalformedToml(t *testing.T) {
	if _, err := Decode("[mainConfig\nport = "); err == nil {
		t.Fatal("expected error for malformed toml")
	}
}
