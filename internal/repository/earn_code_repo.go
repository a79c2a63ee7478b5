package repository

import (
	"context"
	"errors"
	"time"

	"loyaltysystem/internal/model"

	"gorm.io/gorm"
)

var (
	ErrEarnCodeNotFound      = errors.New("积分券不存在")
	ErrEarnCodeStatusInvalid = errors.New("积分券状态不合法")
)

type EarnCodeRepository struct {
	db *gorm.DB
}

func NewEarnCodeRepository(db *gorm.DB) *EarnCodeRepository {
	return &EarnCodeRepository{db: db}
}

func (r *EarnCodeRepository) Create(ctx context.Context, tx *gorm.DB, code *model.EarnCode) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(code).Error
}

func (r *EarnCodeRepository) GetByCodeID(ctx context.Context, tx *gorm.DB, codeID string) (*model.EarnCode, error) {
	if tx == nil {
		tx = r.db
	}
	var code model.EarnCode
	err := tx.WithContext(ctx).Where("code_id = ?", codeID).First(&code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEarnCodeNotFound
		}
		return nil, err
	}
	return &code, nil
}

// MarkRedeemed 核销积分券：pending -> redeemed
// 条件更新保证并发扫同一张券时只有一个请求能成功，
// 输掉竞争的一方 RowsAffected=0，返回状态不合法错误
func (r *EarnCodeRepository) MarkRedeemed(ctx context.Context, tx *gorm.DB, codeID, uid string, now time.Time) error {
	if !model.CanEarnCodeTransitionTo(model.EarnCodeStatusPending, model.EarnCodeStatusRedeemed) {
		return ErrEarnCodeStatusInvalid
	}

	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.EarnCode{}).
		Where("code_id = ? AND status = ?", codeID, model.EarnCodeStatusPending).
		Updates(map[string]interface{}{
			"status":      model.EarnCodeStatusRedeemed,
			"redeemed_at": now,
			"redeemed_by": uid,
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrEarnCodeStatusInvalid
	}

	return nil
}

// MarkExpired 关闭过期券：pending -> expired，由后台清理任务调用
func (r *EarnCodeRepository) MarkExpired(ctx context.Context, codeID string) error {
	if !model.CanEarnCodeTransitionTo(model.EarnCodeStatusPending, model.EarnCodeStatusExpired) {
		return ErrEarnCodeStatusInvalid
	}

	result := r.db.WithContext(ctx).
		Model(&model.EarnCode{}).
		Where("code_id = ? AND status = ?", codeID, model.EarnCodeStatusPending).
		Update("status", model.EarnCodeStatusExpired)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrEarnCodeStatusInvalid
	}

	return nil
}

// GetExpiredPending 查询已超过有效期但仍处于 pending 的券
// 有效期是签发时刻 + valid_for_sec，逐条在应用侧比对
func (r *EarnCodeRepository) GetExpiredPending(ctx context.Context, now time.Time, limit int) ([]*model.EarnCode, error) {
	var codes []*model.EarnCode
	err := r.db.WithContext(ctx).
		Where("status = ?", model.EarnCodeStatusPending).
		Limit(limit).
		Find(&codes).Error
	if err != nil {
		return nil, err
	}

	expired := make([]*model.EarnCode, 0, len(codes))
	for _, c := range codes {
		if c.IsExpiredAt(now) {
			expired = append(expired, c)
		}
	}
	return expired, nil
}
