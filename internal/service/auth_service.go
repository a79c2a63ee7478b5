package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"loyaltysystem/internal/config"
	"loyaltysystem/internal/model"
	"loyaltysystem/internal/repository"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuthService 注册与邮箱验证
//
// 注册流程：
// 1. POST /api/register {email} -> 生成一次性验证令牌存入 Redis（带TTL），
//    验证邮件通过出站消息异步投递
// 2. POST /api/verify {token} -> 校验令牌，建档（或复用已有账户），
//    签发 customToken（JWT），客户端用它访问 /api/v1 下的所有接口
type AuthService struct {
	db          *gorm.DB
	redisClient *redis.Client
	cfg         *config.Config
	userRepo    *repository.UserRepository
	outboxRepo  *repository.OutboxRepository
}

func NewAuthService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *AuthService {
	return &AuthService{
		db:          db,
		redisClient: redisClient,
		cfg:         cfg,
		userRepo:    repository.NewUserRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db),
	}
}

const verifyTokenKeyPrefix = "auth:verify:"

// Register 接收注册邮箱，生成验证令牌并投递验证邮件
func (s *AuthService) Register(ctx context.Context, email string) error {
	token := uuid.NewString()
	ttl := time.Duration(s.cfg.Business.VerifyTokenTTLMin) * time.Minute
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	if err := s.redisClient.Set(ctx, verifyTokenKeyPrefix+token, email, ttl).Err(); err != nil {
		return fmt.Errorf("保存验证令牌失败: %w", err)
	}

	msgPayload := map[string]interface{}{
		"email": email,
		"token": token,
		"ts":    time.Now().Format(time.RFC3339),
	}
	payloadBytes, _ := json.Marshal(msgPayload)

	outboxMsg := &model.OutboxMessage{
		MessageKey: email,
		EventType:  model.EventTypeVerifyEmail,
		Topic:      s.cfg.Kafka.Topic.EmailOut,
		Payload:    string(payloadBytes),
		Status:     model.OutboxStatusPending,
	}
	if err := s.outboxRepo.Create(ctx, nil, outboxMsg); err != nil {
		return fmt.Errorf("写入消息失败: %w", err)
	}

	log.Printf("注册验证邮件已入队: email=%s", email)
	return nil
}

// VerifyResult 验证结果
type VerifyResult struct {
	OK          bool   `json:"ok"`
	Email       string `json:"email"`
	CustomToken string `json:"customToken"`
}

// Verify 校验一次性令牌，建档并签发会话令牌
func (s *AuthService) Verify(ctx context.Context, token string) (*VerifyResult, error) {
	key := verifyTokenKeyPrefix + token

	email, err := s.redisClient.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrVerifyTokenInvalid
		}
		return nil, err
	}

	// 令牌一次性：先删再用，重放的请求会拿到无效令牌错误
	if err := s.redisClient.Del(ctx, key).Err(); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			return nil, err
		}
		user = &model.User{
			UID:      uuid.NewString(),
			Email:    email,
			Verified: true,
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("建档失败: %w", err)
		}
	} else if !user.Verified {
		if err := s.userRepo.MarkVerified(ctx, user.UID); err != nil {
			return nil, err
		}
	}

	customToken, err := s.IssueToken(user.UID, email)
	if err != nil {
		return nil, err
	}

	log.Printf("邮箱验证成功: email=%s, uid=%s", email, user.UID)

	return &VerifyResult{
		OK:          true,
		Email:       email,
		CustomToken: customToken,
	}, nil
}

// IssueToken 签发 JWT 会话令牌，sub 为会员UID
func (s *AuthService) IssueToken(uid, email string) (string, error) {
	expire := time.Duration(s.cfg.JWT.ExpireMinutes) * time.Minute
	if expire <= 0 {
		expire = 30 * 24 * time.Hour
	}

	claims := jwt.MapClaims{
		"sub":   uid,
		"email": email,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(expire).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWT.Secret))
	if err != nil {
		return "", fmt.Errorf("签发令牌失败: %w", err)
	}
	return signed, nil
}
