package service

import (
	"context"
	"encoding/json"
	"errors"
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

// BonusService 生日奖励
//
// 客户端每次回到前台都会调用检查接口，幂等性完全由
// last_birthday_reward 日期戳的条件更新保证：
// 同一自然日无论检查多少次，最多加一次分
type BonusService struct {
	db           *gorm.DB
	redisClient  *redis.Client
	cfg          *config.Config
	userRepo     *repository.UserRepository
	activityRepo *repository.ActivityRepository
	outboxRepo   *repository.OutboxRepository
}

func NewBonusService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *BonusService {
	return &BonusService{
		db:           db,
		redisClient:  redisClient,
		cfg:          cfg,
		userRepo:     repository.NewUserRepository(db),
		activityRepo: repository.NewActivityRepository(db),
		outboxRepo:   repository.NewOutboxRepository(db),
	}
}

// BonusResult 生日奖励检查结果
type BonusResult struct {
	Granted bool  `json:"granted"` // 本次调用是否实际发放
	Points  int64 `json:"points"`  // 发放数额，未发放时为0
	Balance int64 `json:"balance"` // 当前余额
}

func (s *BonusService) bonusPoints() int64 {
	points := s.cfg.Business.BirthdayBonusPoints
	if points <= 0 {
		points = 15
	}
	return points
}

// CheckBirthday 检查并发放生日奖励
// 非生日、生日未填、今日已发放都不算错误，返回 Granted=false
func (s *BonusService) CheckBirthday(ctx context.Context, uid string) (*BonusResult, error) {
	now := time.Now()
	todayKey := now.Format("2006-01-02")

	user, err := s.userRepo.GetByUID(ctx, nil, uid)
	if err != nil {
		return nil, err
	}

	if user.Birthday == "" || !user.IsBirthday(now) {
		return &BonusResult{Granted: false, Balance: user.Points}, nil
	}

	// 幂等快路径：今天已经发过，不必开事务
	if user.LastBirthdayReward == todayKey {
		return &BonusResult{Granted: false, Balance: user.Points}, nil
	}

	if s.redisClient != nil {
		bonusLock := lock.NewBonusLock(s.redisClient, uid, todayKey)
		if err := bonusLock.Lock(ctx, 100*time.Millisecond, 10); err != nil {
			return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
		}
		defer bonusLock.Unlock(ctx)
	}

	points := s.bonusPoints()

	var result *BonusResult

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// 事务内重读，拿到最新余额作为流水基准
		user, err := s.userRepo.GetByUID(ctx, tx, uid)
		if err != nil {
			return err
		}

		// 日期戳条件更新：并发检查只有一个事务能走到这一步之后
		if err := s.userRepo.GrantBirthdayBonus(ctx, tx, uid, points, todayKey); err != nil {
			return err
		}

		activity := &model.Activity{
			ActivityNo:    idgen.GenerateActivityNo(),
			UID:           uid,
			Type:          model.ActivityTypeBonus,
			Points:        points,
			BalanceBefore: user.Points,
			BalanceAfter:  user.Points + points,
			Ts:            now,
		}
		if err := s.activityRepo.Create(ctx, tx, activity); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		msgPayload := map[string]interface{}{
			"uid":    uid,
			"points": points,
			"date":   todayKey,
			"ts":     now.Format(time.RFC3339),
		}
		payloadBytes, _ := json.Marshal(msgPayload)

		outboxMsg := &model.OutboxMessage{
			MessageKey: uid,
			EventType:  model.EventTypeBonus,
			Topic:      s.cfg.Kafka.Topic.LoyaltyEvents,
			Payload:    string(payloadBytes),
			Status:     model.OutboxStatusPending,
		}
		if err := s.outboxRepo.Create(ctx, tx, outboxMsg); err != nil {
			return fmt.Errorf("写入消息失败: %w", err)
		}

		result = &BonusResult{
			Granted: true,
			Points:  points,
			Balance: user.Points + points,
		}
		return nil
	})

	if err != nil {
		// 输掉并发竞争视同"今日已发放"，对调用方不是错误
		if errors.Is(err, repository.ErrBonusAlreadyIssued) {
			user, gerr := s.userRepo.GetByUID(ctx, nil, uid)
			if gerr != nil {
				return nil, gerr
			}
			return &BonusResult{Granted: false, Balance: user.Points}, nil
		}
		return nil, err
	}

	log.Printf("生日奖励发放成功: uid=%s, points=%d, date=%s", uid, result.Points, todayKey)

	return result, nil
}
