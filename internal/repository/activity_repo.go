package repository

import (
	"context"

	"loyaltysystem/internal/model"

	"gorm.io/gorm"
)

// ActivityRepository 活动流水仓储
// 只提供 Create 与查询，没有任何更新/删除入口，从接口层面保证流水只追加
type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Create(ctx context.Context, tx *gorm.DB, activity *model.Activity) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(activity).Error
}

func (r *ActivityRepository) ListByUID(ctx context.Context, uid string, page, pageSize int) ([]*model.Activity, int64, error) {
	var activities []*model.Activity
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Activity{}).Where("uid = ?", uid)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("ts DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&activities).Error

	return activities, total, err
}

// SumPointsByUID 汇总某会员全部流水的带符号积分增量
// 对账用：该值应等于会员当前余额
func (r *ActivityRepository) SumPointsByUID(ctx context.Context, uid string) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).
		Model(&model.Activity{}).
		Where("uid = ?", uid).
		Select("COALESCE(SUM(points), 0)").
		Scan(&sum).Error
	return sum, err
}

func (r *ActivityRepository) CountByUID(ctx context.Context, uid string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&model.Activity{}).
		Where("uid = ?", uid).
		Count(&total).Error
	return total, err
}
