// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"qudao-go/internal/config"
	"qudao-go/pkg/database"
	"qudao-go/pkg/log"
	"qudao-go/pkg/tasks"
)

// ChatLogProcessor 定义了聊天记录消息的处理方。
// 消费者只依赖这个接口，与具体的业务实现解耦。
type ChatLogProcessor interface {
	Process(ctx context.Context, msg tasks.ChatLogMessage) error
}

// StartConsumer 启动一个 Kafka 消费者，持续灌入外部 AI 侧的聊天记录。
func StartConsumer(cfg config.KafkaConfig, processor ChatLogProcessor) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{cfg.Brokers},
		Topic:    cfg.Topic,
		GroupID:  "qudao-go-chatlog-consumer",
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)

	for {
		m, err := r.FetchMessage(context.Background())
		if err != nil {
			log.Error("从 Kafka 读取消息失败", err)
			break // 退出循环，可能需要重启策略
		}

		var msg tasks.ChatLogMessage
		if err := json.Unmarshal(m.Value, &msg); err != nil {
			log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
			// 消息格式错误，直接提交，避免阻塞队列
			if err := r.CommitMessages(context.Background(), m); err != nil {
				log.Errorf("提交错误消息失败: %v", err)
			}
			continue
		}

		if err := processor.Process(context.Background(), msg); err != nil {
			log.Errorf("写入聊天记录失败: userID=%d, offset=%d, err=%v", msg.UserID, m.Offset, err)
			// 使用 Redis 计数失败次数，达到阈值后提交 offset 终止重试
			attemptsKey := fmt.Sprintf("kafka:chatlog:attempts:%d:%d", m.Partition, m.Offset)
			attempts, incErr := database.RDB.Incr(context.Background(), attemptsKey).Result()
			if incErr == nil {
				_ = database.RDB.Expire(context.Background(), attemptsKey, 24*time.Hour).Err()
			}
			if incErr != nil {
				// Redis 异常时保守处理：不提交 offset，让 Kafka 重试
				continue
			}
			if attempts >= 3 {
				log.Errorf("聊天记录多次写入失败(>=3)，提交 offset 终止重试: offset=%d", m.Offset)
				if err := r.CommitMessages(context.Background(), m); err != nil {
					log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
				}
			}
			// attempts < 3 时，不提交 offset 让 Kafka 自动重试
		} else {
			_ = database.RDB.Del(context.Background(), fmt.Sprintf("kafka:chatlog:attempts:%d:%d", m.Partition, m.Offset)).Err()
			if err := r.CommitMessages(context.Background(), m); err != nil {
				log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
			}
		}
	}

	if err := r.Close(); err != nil {
		log.Fatalf("关闭 Kafka 消费者失败: %v", err)
	}
}
