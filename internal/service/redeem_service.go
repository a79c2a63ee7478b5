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

// RedeemService 积分兑换（扣分）
//
// 两条扣分链路共用同一套规则：
// a) 扫兑换码：收银端为指定会员生成的单次兑换码
// b) 在线兑换：会员在奖品目录里直接兑换
// 扣分金额永远取库内记录，客户端/QR 携带的金额只做展示，
// 不参与任何计算
type RedeemService struct {
	db             *gorm.DB
	redisClient    *redis.Client
	cfg            *config.Config
	redeemCodeRepo *repository.RedeemCodeRepository
	rewardRepo     *repository.RewardRepository
	userRepo       *repository.UserRepository
	activityRepo   *repository.ActivityRepository
	outboxRepo     *repository.OutboxRepository
}

func NewRedeemService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *RedeemService {
	return &RedeemService{
		db:             db,
		redisClient:    redisClient,
		cfg:            cfg,
		redeemCodeRepo: repository.NewRedeemCodeRepository(db),
		rewardRepo:     repository.NewRewardRepository(db),
		userRepo:       repository.NewUserRepository(db),
		activityRepo:   repository.NewActivityRepository(db),
		outboxRepo:     repository.NewOutboxRepository(db),
	}
}

// SpendResult 扣分结果
type SpendResult struct {
	ItemName string `json:"item_name"` // 兑换物名称，供客户端确认展示
	Cost     int64  `json:"cost"`      // 实际扣分数额（库内可信值）
	Balance  int64  `json:"balance"`   // 扣分后余额
}

// CompleteCode 核销一张兑换码
// advisoryCost 为 QR 载荷中携带的金额，仅用于不一致告警，不参与计算
func (s *RedeemService) CompleteCode(ctx context.Context, uid, codeID string, advisoryCost int64) (*SpendResult, error) {
	if s.redisClient != nil {
		scanLock := lock.NewScanLock(s.redisClient, uid, codeID)
		if err := scanLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
			return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
		}
		defer scanLock.Unlock(ctx)
	}

	now := time.Now()

	var result *SpendResult

	err := s.db.Transaction(func(tx *gorm.DB) error {
		code, err := s.redeemCodeRepo.GetByCodeID(ctx, tx, codeID)
		if err != nil {
			return err
		}

		// 归属校验：兑换码只能由签发对象核销
		if code.UserUID != uid {
			return ErrPermissionDenied
		}

		if code.Type != model.RedeemCodeType {
			return ErrRedeemCodeTypeInvalid
		}

		// 状态白名单：只有 ACTIVE 可被核销
		if code.Status != model.RedeemCodeStatusActive {
			return repository.ErrRedeemCodeStatusInvalid
		}

		// 扣分金额以库内记录为准；QR 里的金额被篡改时只告警不采信
		cost := code.CostPoints
		if advisoryCost != cost {
			log.Printf("兑换码QR金额与库内不一致: codeID=%s, qr=%d, db=%d", codeID, advisoryCost, cost)
		}

		user, err := s.userRepo.GetByUID(ctx, tx, uid)
		if err != nil {
			return err
		}

		if user.Points < cost {
			return repository.ErrBalanceNotEnough
		}

		if err := s.redeemCodeRepo.MarkCompleted(ctx, tx, codeID, uid, now); err != nil {
			return err
		}

		if err := s.userRepo.Deduct(ctx, tx, uid, cost, user.Version); err != nil {
			return fmt.Errorf("扣分失败: %w", err)
		}

		activity := &model.Activity{
			ActivityNo:    idgen.GenerateActivityNo(),
			UID:           uid,
			Type:          model.ActivityTypeSpend,
			Points:        -cost,
			RedeemCodeID:  codeID,
			ItemName:      code.ItemName,
			BalanceBefore: user.Points,
			BalanceAfter:  user.Points - cost,
			Ts:            now,
		}
		if err := s.activityRepo.Create(ctx, tx, activity); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		if err := s.writeSpendEvent(ctx, tx, uid, codeID, code.ItemName, cost, now); err != nil {
			return err
		}

		result = &SpendResult{
			ItemName: code.ItemName,
			Cost:     cost,
			Balance:  user.Points - cost,
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	log.Printf("兑换码核销成功: codeID=%s, uid=%s, cost=%d", codeID, uid, result.Cost)

	return result, nil
}

// RedeemReward 在线兑换奖品
func (s *RedeemService) RedeemReward(ctx context.Context, uid string, rewardID int64) (*SpendResult, error) {
	if s.redisClient != nil {
		scanLock := lock.NewScanLock(s.redisClient, uid, fmt.Sprintf("reward-%d", rewardID))
		if err := scanLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
			return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
		}
		defer scanLock.Unlock(ctx)
	}

	now := time.Now()

	var result *SpendResult

	err := s.db.Transaction(func(tx *gorm.DB) error {
		reward, err := s.rewardRepo.GetByID(ctx, tx, rewardID)
		if err != nil {
			return err
		}

		if !reward.Active {
			return repository.ErrRewardInactive
		}

		// 成本取库内 redeem_points，绝不取客户端提交值
		cost := reward.RedeemPoints

		user, err := s.userRepo.GetByUID(ctx, tx, uid)
		if err != nil {
			return err
		}

		if user.Points < cost {
			return repository.ErrBalanceNotEnough
		}

		if err := s.userRepo.Deduct(ctx, tx, uid, cost, user.Version); err != nil {
			return fmt.Errorf("扣分失败: %w", err)
		}

		activity := &model.Activity{
			ActivityNo:    idgen.GenerateActivityNo(),
			UID:           uid,
			Type:          model.ActivityTypeRedeem,
			Points:        -cost,
			RewardID:      rewardID,
			ItemName:      reward.Name,
			BalanceBefore: user.Points,
			BalanceAfter:  user.Points - cost,
			Ts:            now,
		}
		if err := s.activityRepo.Create(ctx, tx, activity); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		if err := s.writeSpendEvent(ctx, tx, uid, fmt.Sprintf("reward-%d", rewardID), reward.Name, cost, now); err != nil {
			return err
		}

		result = &SpendResult{
			ItemName: reward.Name,
			Cost:     cost,
			Balance:  user.Points - cost,
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	log.Printf("奖品兑换成功: rewardID=%d, uid=%s, cost=%d", rewardID, uid, result.Cost)

	return result, nil
}

func (s *RedeemService) writeSpendEvent(ctx context.Context, tx *gorm.DB, uid, ref, itemName string, cost int64, now time.Time) error {
	msgPayload := map[string]interface{}{
		"uid":       uid,
		"ref":       ref,
		"item_name": itemName,
		"cost":      cost,
		"ts":        now.Format(time.RFC3339),
	}
	payloadBytes, _ := json.Marshal(msgPayload)

	outboxMsg := &model.OutboxMessage{
		MessageKey: uid,
		EventType:  model.EventTypeSpend,
		Topic:      s.cfg.Kafka.Topic.LoyaltyEvents,
		Payload:    string(payloadBytes),
		Status:     model.OutboxStatusPending,
	}
	if err := s.outboxRepo.Create(ctx, tx, outboxMsg); err != nil {
		return fmt.Errorf("写入消息失败: %w", err)
	}
	return nil
}
