package repository

import (
	"context"
	"errors"
	"time"

	"loyaltysystem/internal/model"

	"gorm.io/gorm"
)

var (
	ErrRedeemCodeNotFound      = errors.New("兑换码不存在")
	ErrRedeemCodeStatusInvalid = errors.New("兑换码状态不合法")
)

type RedeemCodeRepository struct {
	db *gorm.DB
}

func NewRedeemCodeRepository(db *gorm.DB) *RedeemCodeRepository {
	return &RedeemCodeRepository{db: db}
}

func (r *RedeemCodeRepository) Create(ctx context.Context, tx *gorm.DB, code *model.RedeemCode) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(code).Error
}

func (r *RedeemCodeRepository) GetByCodeID(ctx context.Context, tx *gorm.DB, codeID string) (*model.RedeemCode, error) {
	if tx == nil {
		tx = r.db
	}
	var code model.RedeemCode
	err := tx.WithContext(ctx).Where("code_id = ?", codeID).First(&code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRedeemCodeNotFound
		}
		return nil, err
	}
	return &code, nil
}

// MarkCompleted 完成兑换：ACTIVE -> completed
// 条件更新保证同一张兑换码并发核销时最多成功一次
func (r *RedeemCodeRepository) MarkCompleted(ctx context.Context, tx *gorm.DB, codeID, uid string, now time.Time) error {
	if !model.CanRedeemCodeTransitionTo(model.RedeemCodeStatusActive, model.RedeemCodeStatusCompleted) {
		return ErrRedeemCodeStatusInvalid
	}

	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.RedeemCode{}).
		Where("code_id = ? AND status = ?", codeID, model.RedeemCodeStatusActive).
		Updates(map[string]interface{}{
			"status":       model.RedeemCodeStatusCompleted,
			"completed_at": now,
			"completed_by": uid,
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrRedeemCodeStatusInvalid
	}

	return nil
}
