package service

import (
	"context"
	"time"

	"loyaltysystem/internal/model"
	"loyaltysystem/internal/repository"

	"gorm.io/gorm"
)

// AccountService 会员账户与个人资料
type AccountService struct {
	db       *gorm.DB
	userRepo *repository.UserRepository
}

func NewAccountService(db *gorm.DB) *AccountService {
	return &AccountService{
		db:       db,
		userRepo: repository.NewUserRepository(db),
	}
}

func (s *AccountService) GetProfile(ctx context.Context, uid string) (*model.User, error) {
	return s.userRepo.GetByUID(ctx, nil, uid)
}

func (s *AccountService) GetBalance(ctx context.Context, uid string) (int64, error) {
	user, err := s.userRepo.GetByUID(ctx, nil, uid)
	if err != nil {
		return 0, err
	}
	return user.Points, nil
}

// UpdateProfile 更新个人资料
// 生日按 YYYY-MM-DD 严格校验；资料页是生日奖励的数据来源，
// 格式不合法的生日一律拒绝而不是静默忽略
func (s *AccountService) UpdateProfile(ctx context.Context, uid, fullName, birthday, gender string) error {
	if birthday != "" {
		if _, err := time.Parse("2006-01-02", birthday); err != nil {
			return ErrBirthdayFormatInvalid
		}
	}
	return s.userRepo.UpdateProfile(ctx, uid, fullName, birthday, gender)
}

// IsProfileComplete 资料是否完整（姓名与生日都已填写）
// 客户端用它决定是否强制跳转资料页
func (s *AccountService) IsProfileComplete(ctx context.Context, uid string) (bool, error) {
	user, err := s.userRepo.GetByUID(ctx, nil, uid)
	if err != nil {
		return false, err
	}
	return user.FullName != "" && user.Birthday != "", nil
}
