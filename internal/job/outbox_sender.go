package job

import (
	"context"
	"log"
	"time"

	"loyaltysystem/internal/config"
	"loyaltysystem/internal/infrastructure/mq"
	"loyaltysystem/internal/repository"

	"gorm.io/gorm"
)

// OutboxSender 出站消息发送任务
//
// 业务事务只负责把事件写进 outbox 表，真正投递到 Kafka 由本任务
// 轮询完成。发送失败累加重试次数，超限后置为失败等待人工介入
type OutboxSender struct {
	outboxRepo *repository.OutboxRepository
	cfg        *config.Config
	interval   time.Duration
	batchSize  int
	stopCh     chan struct{}
}

func NewOutboxSender(db *gorm.DB, cfg *config.Config) *OutboxSender {
	return &OutboxSender{
		outboxRepo: repository.NewOutboxRepository(db),
		cfg:        cfg,
		interval:   3 * time.Second,
		batchSize:  100,
		stopCh:     make(chan struct{}),
	}
}

// Start 启动轮询，阻塞直到 ctx 取消或 Stop 被调用
func (s *OutboxSender) Start(ctx context.Context) {
	log.Println("[OutboxSender] 出站消息发送任务启动")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[OutboxSender] 收到退出信号，任务停止")
			return
		case <-s.stopCh:
			log.Println("[OutboxSender] 任务停止")
			return
		case <-ticker.C:
			s.processBatch(ctx)
		}
	}
}

func (s *OutboxSender) Stop() {
	close(s.stopCh)
}

func (s *OutboxSender) processBatch(ctx context.Context) {
	messages, err := s.outboxRepo.GetPendingMessages(ctx, s.batchSize)
	if err != nil {
		log.Printf("[OutboxSender] 查询待发送消息失败: %v", err)
		return
	}

	if len(messages) == 0 {
		return
	}

	maxRetry := s.cfg.Business.MaxRetryCount
	if maxRetry <= 0 {
		maxRetry = 3
	}

	for _, msg := range messages {
		if err := mq.SendMessage(msg.Topic, msg.MessageKey, msg.Payload); err != nil {
			log.Printf("[OutboxSender] 发送消息失败: id=%d, type=%s, err=%v", msg.ID, msg.EventType, err)

			if msg.RetryCount+1 >= maxRetry {
				if err := s.outboxRepo.MarkAsFailed(ctx, msg.ID); err != nil {
					log.Printf("[OutboxSender] 标记消息失败状态出错: id=%d, err=%v", msg.ID, err)
				}
				continue
			}

			if err := s.outboxRepo.IncrementRetryCount(ctx, msg.ID); err != nil {
				log.Printf("[OutboxSender] 累加重试次数失败: id=%d, err=%v", msg.ID, err)
			}
			continue
		}

		if err := s.outboxRepo.MarkAsSent(ctx, msg.ID); err != nil {
			log.Printf("[OutboxSender] 标记消息已发送失败: id=%d, err=%v", msg.ID, err)
		}
	}

	log.Printf("[OutboxSender] 本轮处理完成: count=%d", len(messages))
}
