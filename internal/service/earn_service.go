package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"loyaltysystem/internal/config"
	"loyaltysystem/internal/infrastructure/lock"
	"loyaltysystem/internal/model"
	"loyaltysystem/internal/repository"
	"loyaltysystem/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// EarnService 积分券核销（加分）
//
// 核销是一次"读-校验-条件写"事务：
// 1. 读券与会员记录（所有读在写之前完成）
// 2. 校验：存在性 -> 状态白名单 -> 有效期，全部通过才允许写
// 3. 同一事务内：券置为 redeemed、余额加分、到店计数、追加流水、写出站事件
// 并发扫同一张券时，券状态的条件更新保证只有一个事务能提交加分
type EarnService struct {
	db           *gorm.DB
	redisClient  *redis.Client
	cfg          *config.Config
	earnCodeRepo *repository.EarnCodeRepository
	userRepo     *repository.UserRepository
	activityRepo *repository.ActivityRepository
	outboxRepo   *repository.OutboxRepository
}

func NewEarnService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *EarnService {
	return &EarnService{
		db:           db,
		redisClient:  redisClient,
		cfg:          cfg,
		earnCodeRepo: repository.NewEarnCodeRepository(db),
		userRepo:     repository.NewUserRepository(db),
		activityRepo: repository.NewActivityRepository(db),
		outboxRepo:   repository.NewOutboxRepository(db),
	}
}

// EarnResult 核销结果
type EarnResult struct {
	VoucherID    string `json:"voucher_id"`
	Points       int64  `json:"points"`        // 本次加分数额
	VisitCounted bool   `json:"visit_counted"` // 是否计入一次到店
	Balance      int64  `json:"balance"`       // 加分后余额
}

func (s *EarnService) visitWindow() time.Duration {
	hours := s.cfg.Business.VisitWindowHours
	if hours <= 0 {
		hours = 4
	}
	return time.Duration(hours) * time.Hour
}

// Redeem 核销一张积分券
func (s *EarnService) Redeem(ctx context.Context, uid, voucherID string) (*EarnResult, error) {
	// 按会员维度加锁，串行化同一会员的扫码请求；
	// 未配置 Redis 时退化为仅依赖数据库条件更新兜底
	if s.redisClient != nil {
		scanLock := lock.NewScanLock(s.redisClient, uid, voucherID)
		if err := scanLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
			return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
		}
		defer scanLock.Unlock(ctx)
	}

	// 本次事务尝试内唯一的时间基准，过期判断与到店判断共用
	now := time.Now()

	var result *EarnResult

	err := s.db.Transaction(func(tx *gorm.DB) error {
		voucher, err := s.earnCodeRepo.GetByCodeID(ctx, tx, voucherID)
		if err != nil {
			return err
		}

		// 状态白名单：只有 pending 可被核销
		switch voucher.Status {
		case model.EarnCodeStatusPending:
			// 继续
		case model.EarnCodeStatusExpired:
			return ErrVoucherExpired
		default:
			return repository.ErrEarnCodeStatusInvalid
		}

		// 有效期按签发时刻计算，不依赖后台清理任务是否跑过
		if voucher.IsExpiredAt(now) {
			return ErrVoucherExpired
		}

		user, err := s.userRepo.GetByUID(ctx, tx, uid)
		if err != nil {
			return err
		}

		// 到店判定：从未到店，或距上次计入超过去重窗口，才算新的一次到店
		visitCounted := user.LastVisitAt == nil || now.Sub(*user.LastVisitAt) > s.visitWindow()

		// 券置为 redeemed；输掉并发竞争的一方在这里拿到状态不合法错误
		if err := s.earnCodeRepo.MarkRedeemed(ctx, tx, voucherID, uid, now); err != nil {
			return err
		}

		if err := s.userRepo.Credit(ctx, tx, uid, voucher.Points, user.Version, visitCounted, now); err != nil {
			return fmt.Errorf("加分失败: %w", err)
		}

		activity := &model.Activity{
			ActivityNo:    idgen.GenerateActivityNo(),
			UID:           uid,
			Type:          model.ActivityTypeEarn,
			Points:        voucher.Points,
			VoucherID:     voucherID,
			BalanceBefore: user.Points,
			BalanceAfter:  user.Points + voucher.Points,
			Ts:            now,
		}
		if err := s.activityRepo.Create(ctx, tx, activity); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		msgPayload := map[string]interface{}{
			"uid":           uid,
			"voucher_id":    voucherID,
			"points":        voucher.Points,
			"visit_counted": visitCounted,
			"ts":            now.Format(time.RFC3339),
		}
		payloadBytes, _ := json.Marshal(msgPayload)

		outboxMsg := &model.OutboxMessage{
			MessageKey: uid,
			EventType:  model.EventTypeEarn,
			Topic:      s.cfg.Kafka.Topic.LoyaltyEvents,
			Payload:    string(payloadBytes),
			Status:     model.OutboxStatusPending,
		}
		if err := s.outboxRepo.Create(ctx, tx, outboxMsg); err != nil {
			return fmt.Errorf("写入消息失败: %w", err)
		}

		result = &EarnResult{
			VoucherID:    voucherID,
			Points:       voucher.Points,
			VisitCounted: visitCounted,
			Balance:      user.Points + voucher.Points,
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	log.Printf("积分券核销成功: voucherID=%s, uid=%s, points=%d, visitCounted=%v",
		voucherID, uid, result.Points, result.VisitCounted)

	return result, nil
}
