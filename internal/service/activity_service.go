package service

import (
	"context"

	"loyaltysystem/internal/model"
	"loyaltysystem/internal/repository"

	"gorm.io/gorm"
)

// ActivityService 活动流水查询
type ActivityService struct {
	activityRepo *repository.ActivityRepository
	userRepo     *repository.UserRepository
}

func NewActivityService(db *gorm.DB) *ActivityService {
	return &ActivityService{
		activityRepo: repository.NewActivityRepository(db),
		userRepo:     repository.NewUserRepository(db),
	}
}

func (s *ActivityService) List(ctx context.Context, uid string, page, pageSize int) ([]*model.Activity, int64, error) {
	return s.activityRepo.ListByUID(ctx, uid, page, pageSize)
}

// AuditResult 对账结果
type AuditResult struct {
	Balance    int64 `json:"balance"`     // 账户当前余额
	LedgerSum  int64 `json:"ledger_sum"`  // 全部流水带符号增量之和
	EntryCount int64 `json:"entry_count"` // 流水条数
	Consistent bool  `json:"consistent"`  // 两者是否一致
}

// Audit 对账：流水增量之和应等于当前余额
// 每笔余额变动都与流水同事务落库，这里不一致说明出现了绕过引擎的写入
func (s *ActivityService) Audit(ctx context.Context, uid string) (*AuditResult, error) {
	user, err := s.userRepo.GetByUID(ctx, nil, uid)
	if err != nil {
		return nil, err
	}

	sum, err := s.activityRepo.SumPointsByUID(ctx, uid)
	if err != nil {
		return nil, err
	}

	count, err := s.activityRepo.CountByUID(ctx, uid)
	if err != nil {
		return nil, err
	}

	return &AuditResult{
		Balance:    user.Points,
		LedgerSum:  sum,
		EntryCount: count,
		Consistent: user.Points == sum,
	}, nil
}
