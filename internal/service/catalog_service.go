package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"loyaltysystem/internal/model"
	"loyaltysystem/internal/repository"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// RewardService 奖品目录
// 目录读多写少，走 Redis 短TTL缓存，缓存不可用时直接回源数据库
type RewardService struct {
	rewardRepo  *repository.RewardRepository
	redisClient *redis.Client
}

func NewRewardService(db *gorm.DB, redisClient *redis.Client) *RewardService {
	return &RewardService{
		rewardRepo:  repository.NewRewardRepository(db),
		redisClient: redisClient,
	}
}

const (
	catalogCacheTTL = time.Minute
)

func (s *RewardService) List(ctx context.Context, category string) ([]*model.Reward, error) {
	cacheKey := fmt.Sprintf("cache:rewards:%s", category)

	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			var rewards []*model.Reward
			if err := json.Unmarshal([]byte(cached), &rewards); err == nil {
				return rewards, nil
			}
		}
	}

	rewards, err := s.rewardRepo.ListActive(ctx, category)
	if err != nil {
		return nil, err
	}

	if s.redisClient != nil {
		if data, err := json.Marshal(rewards); err == nil {
			if err := s.redisClient.Set(ctx, cacheKey, data, catalogCacheTTL).Err(); err != nil {
				log.Printf("写入奖品缓存失败: %v", err)
			}
		}
	}

	return rewards, nil
}

// MenuService 菜单浏览
type MenuService struct {
	menuRepo    *repository.MenuRepository
	redisClient *redis.Client
}

func NewMenuService(db *gorm.DB, redisClient *redis.Client) *MenuService {
	return &MenuService{
		menuRepo:    repository.NewMenuRepository(db),
		redisClient: redisClient,
	}
}

func (s *MenuService) List(ctx context.Context, category string) ([]*model.MenuItem, error) {
	cacheKey := fmt.Sprintf("cache:menu:%s", category)

	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			var items []*model.MenuItem
			if err := json.Unmarshal([]byte(cached), &items); err == nil {
				return items, nil
			}
		}
	}

	items, err := s.menuRepo.ListAvailable(ctx, category)
	if err != nil {
		return nil, err
	}

	if s.redisClient != nil {
		if data, err := json.Marshal(items); err == nil {
			if err := s.redisClient.Set(ctx, cacheKey, data, catalogCacheTTL).Err(); err != nil {
				log.Printf("写入菜单缓存失败: %v", err)
			}
		}
	}

	return items, nil
}

// MetaService 应用开关
type MetaService struct {
	metaRepo *repository.MetaRepository
}

func NewMetaService(db *gorm.DB) *MetaService {
	return &MetaService{
		metaRepo: repository.NewMetaRepository(db),
	}
}

func (s *MetaService) GetStatus(ctx context.Context) (*model.MetaStatus, error) {
	return s.metaRepo.GetStatus(ctx)
}
