package repository

import (
	"context"
	"errors"

	"loyaltysystem/internal/model"

	"gorm.io/gorm"
)

var (
	ErrRewardNotFound = errors.New("奖品不存在")
	ErrRewardInactive = errors.New("奖品已下架")
)

type RewardRepository struct {
	db *gorm.DB
}

func NewRewardRepository(db *gorm.DB) *RewardRepository {
	return &RewardRepository{db: db}
}

func (r *RewardRepository) Create(ctx context.Context, reward *model.Reward) error {
	return r.db.WithContext(ctx).Create(reward).Error
}

func (r *RewardRepository) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*model.Reward, error) {
	if tx == nil {
		tx = r.db
	}
	var reward model.Reward
	err := tx.WithContext(ctx).Where("id = ?", id).First(&reward).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRewardNotFound
		}
		return nil, err
	}
	return &reward, nil
}

// ListActive 查询上架奖品，按所需积分从低到高排序
// category 为空时不过滤分类
func (r *RewardRepository) ListActive(ctx context.Context, category string) ([]*model.Reward, error) {
	query := r.db.WithContext(ctx).Where("active = ?", true)
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var rewards []*model.Reward
	err := query.Order("redeem_points ASC").Find(&rewards).Error
	return rewards, err
}
