package repository

import (
	"context"
	"errors"
	"time"

	"loyaltysystem/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrUserNotFound       = errors.New("会员不存在")
	ErrBalanceNotEnough   = errors.New("积分不足")
	ErrOptimisticLock     = errors.New("乐观锁冲突，请重试")
	ErrBonusAlreadyIssued = errors.New("今日生日奖励已发放")
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) GetByUID(ctx context.Context, tx *gorm.DB, uid string) (*model.User, error) {
	if tx == nil {
		tx = r.db
	}
	var user model.User
	err := tx.WithContext(ctx).Where("uid = ?", uid).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetOrCreate(ctx context.Context, uid, email string) (*model.User, error) {
	user, err := r.GetByUID(ctx, nil, uid)
	if err == nil {
		return user, nil
	}

	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	newUser := &model.User{
		UID:   uid,
		Email: email,
	}

	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "uid"}},
			DoNothing: true,
		}).
		Create(newUser).Error

	if err != nil {
		return nil, err
	}

	return r.GetByUID(ctx, nil, uid)
}

// Credit 加分，visitCounted 为 true 时同时累加到店次数并刷新到店时间
//
// 与 Deduct 不同，加分不会把余额推成负数，不需要余额条件，
// 但仍通过 version 条件保证在同一事务读到的快照上更新
func (r *UserRepository) Credit(ctx context.Context, tx *gorm.DB, uid string, points int64, version int, visitCounted bool, now time.Time) error {
	if tx == nil {
		tx = r.db
	}

	updates := map[string]interface{}{
		"points":  gorm.Expr("points + ?", points),
		"version": gorm.Expr("version + 1"),
	}
	if visitCounted {
		updates["visits"] = gorm.Expr("visits + 1")
		updates["last_visit_at"] = now
	}

	result := tx.WithContext(ctx).
		Model(&model.User{}).
		Where("uid = ? AND version = ?", uid, version).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		if _, err := r.GetByUID(ctx, tx, uid); err != nil {
			return err
		}
		return ErrOptimisticLock
	}

	return nil
}

// Deduct 扣分
// 条件更新同时校验余额与版本号，保证余额永不为负：
// 余额不足与并发冲突都会表现为 RowsAffected=0，再回查区分两种情况
func (r *UserRepository) Deduct(ctx context.Context, tx *gorm.DB, uid string, points int64, version int) error {
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.User{}).
		Where("uid = ? AND points >= ? AND version = ?", uid, points, version).
		Updates(map[string]interface{}{
			"points":  gorm.Expr("points - ?", points),
			"version": gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		user, err := r.GetByUID(ctx, tx, uid)
		if err != nil {
			return err
		}
		if user.Points < points {
			return ErrBalanceNotEnough
		}
		return ErrOptimisticLock
	}

	return nil
}

// GrantBirthdayBonus 发放生日奖励
// 以 last_birthday_reward 日期戳作为幂等条件：同一自然日重复调用时
// RowsAffected=0，返回已发放错误，绝不会重复加分
func (r *UserRepository) GrantBirthdayBonus(ctx context.Context, tx *gorm.DB, uid string, points int64, todayKey string) error {
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.User{}).
		Where("uid = ? AND last_birthday_reward <> ?", uid, todayKey).
		Updates(map[string]interface{}{
			"points":               gorm.Expr("points + ?", points),
			"last_birthday_reward": todayKey,
			"version":              gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		if _, err := r.GetByUID(ctx, tx, uid); err != nil {
			return err
		}
		return ErrBonusAlreadyIssued
	}

	return nil
}

// UpdateProfile 更新个人资料字段
func (r *UserRepository) UpdateProfile(ctx context.Context, uid string, fullName, birthday, gender string) error {
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("uid = ?", uid).
		Updates(map[string]interface{}{
			"full_name": fullName,
			"birthday":  birthday,
			"gender":    gender,
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (r *UserRepository) MarkVerified(ctx context.Context, uid string) error {
	return r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("uid = ?", uid).
		Update("verified", true).Error
}
