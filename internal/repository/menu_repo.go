package repository

import (
	"context"

	"loyaltysystem/internal/model"

	"gorm.io/gorm"
)

type MenuRepository struct {
	db *gorm.DB
}

func NewMenuRepository(db *gorm.DB) *MenuRepository {
	return &MenuRepository{db: db}
}

func (r *MenuRepository) Create(ctx context.Context, item *model.MenuItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *MenuRepository) ListAvailable(ctx context.Context, category string) ([]*model.MenuItem, error) {
	query := r.db.WithContext(ctx).Where("available = ?", true)
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var items []*model.MenuItem
	err := query.Order("category ASC, name ASC").Find(&items).Error
	return items, err
}

// MetaRepository 应用开关仓储，meta_status 表只维护一行
type MetaRepository struct {
	db *gorm.DB
}

func NewMetaRepository(db *gorm.DB) *MetaRepository {
	return &MetaRepository{db: db}
}

// GetStatus 读取应用开关，表为空时视为开启
func (r *MetaRepository) GetStatus(ctx context.Context) (*model.MetaStatus, error) {
	var status model.MetaStatus
	err := r.db.WithContext(ctx).Order("id ASC").First(&status).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return &model.MetaStatus{IsActive: true}, nil
		}
		return nil, err
	}
	return &status, nil
}
