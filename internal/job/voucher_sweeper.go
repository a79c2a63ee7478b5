package job

import (
	"context"
	"errors"
	"log"
	"time"

	"loyaltysystem/internal/repository"

	"gorm.io/gorm"
)

// VoucherSweeper 过期积分券清理任务
//
// 核销链路本身会按签发时刻 + 有效期实时判定过期，清理任务只是
// 把长期无人扫的 pending 券显式关闭，便于对账和报表。
// 任务与核销存在竞争：券恰好在清理瞬间被扫走时条件更新会落空，
// 此时以核销结果为准，清理侧跳过即可
type VoucherSweeper struct {
	earnCodeRepo *repository.EarnCodeRepository
	interval     time.Duration
	batchSize    int
	stopCh       chan struct{}
}

func NewVoucherSweeper(db *gorm.DB) *VoucherSweeper {
	return &VoucherSweeper{
		earnCodeRepo: repository.NewEarnCodeRepository(db),
		interval:     time.Minute,
		batchSize:    200,
		stopCh:       make(chan struct{}),
	}
}

// Start 启动轮询，阻塞直到 ctx 取消或 Stop 被调用
func (s *VoucherSweeper) Start(ctx context.Context) {
	log.Println("[VoucherSweeper] 过期积分券清理任务启动")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[VoucherSweeper] 收到退出信号，任务停止")
			return
		case <-s.stopCh:
			log.Println("[VoucherSweeper] 任务停止")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *VoucherSweeper) Stop() {
	close(s.stopCh)
}

func (s *VoucherSweeper) sweep(ctx context.Context) {
	now := time.Now()

	codes, err := s.earnCodeRepo.GetExpiredPending(ctx, now, s.batchSize)
	if err != nil {
		log.Printf("[VoucherSweeper] 查询过期券失败: %v", err)
		return
	}

	if len(codes) == 0 {
		return
	}

	closed := 0
	for _, code := range codes {
		if err := s.earnCodeRepo.MarkExpired(ctx, code.CodeID); err != nil {
			// 被并发核销抢先，不算错误
			if errors.Is(err, repository.ErrEarnCodeStatusInvalid) {
				continue
			}
			log.Printf("[VoucherSweeper] 关闭过期券失败: codeID=%s, err=%v", code.CodeID, err)
			continue
		}
		closed++
	}

	log.Printf("[VoucherSweeper] 本轮清理完成: scanned=%d, closed=%d", len(codes), closed)
}
