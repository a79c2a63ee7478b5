package service

import (
	"context"
	"errors"
	"log"

	"loyaltysystem/internal/config"
	"loyaltysystem/internal/model"
	"loyaltysystem/internal/repository"
	"loyaltysystem/pkg/idgen"

	"gorm.io/gorm"
)

// CashierService 收银端签发
//
// 积分券与兑换码都由收银端签发，客户端只负责核销。
// 签发金额允许上游传小数（POS 按消费额折算），一律向零截断取整
type CashierService struct {
	db             *gorm.DB
	cfg            *config.Config
	earnCodeRepo   *repository.EarnCodeRepository
	redeemCodeRepo *repository.RedeemCodeRepository
	userRepo       *repository.UserRepository
}

func NewCashierService(db *gorm.DB, cfg *config.Config) *CashierService {
	return &CashierService{
		db:             db,
		cfg:            cfg,
		earnCodeRepo:   repository.NewEarnCodeRepository(db),
		redeemCodeRepo: repository.NewRedeemCodeRepository(db),
		userRepo:       repository.NewUserRepository(db),
	}
}

var (
	ErrIssuePointsInvalid = errors.New("签发积分必须大于0")
)

// IssueEarnCode 签发积分券
// validForSec<=0 时使用配置的默认有效期
func (s *CashierService) IssueEarnCode(ctx context.Context, points float64, validForSec int64) (*model.EarnCode, error) {
	// 向零截断，绝不四舍五入
	pointsInt := int64(points)
	if pointsInt <= 0 {
		return nil, ErrIssuePointsInvalid
	}

	if validForSec <= 0 {
		validForSec = s.cfg.Business.DefaultVoucherTTLSec
		if validForSec <= 0 {
			validForSec = 3600
		}
	}

	code := &model.EarnCode{
		CodeID:      idgen.GenerateEarnCodeID(),
		Status:      model.EarnCodeStatusPending,
		Points:      pointsInt,
		ValidForSec: validForSec,
	}

	if err := s.earnCodeRepo.Create(ctx, nil, code); err != nil {
		return nil, err
	}

	log.Printf("积分券签发成功: codeID=%s, points=%d, validForSec=%d", code.CodeID, pointsInt, validForSec)
	return code, nil
}

// IssueRedeemCode 为指定会员签发兑换码
func (s *CashierService) IssueRedeemCode(ctx context.Context, userUID, itemName string, costPoints float64) (*model.RedeemCode, error) {
	costInt := int64(costPoints)
	if costInt <= 0 {
		return nil, ErrIssuePointsInvalid
	}

	// 签发对象必须已建档
	if _, err := s.userRepo.GetByUID(ctx, nil, userUID); err != nil {
		return nil, err
	}

	code := &model.RedeemCode{
		CodeID:     idgen.GenerateRedeemCodeID(),
		Type:       model.RedeemCodeType,
		Status:     model.RedeemCodeStatusActive,
		CostPoints: costInt,
		UserUID:    userUID,
		ItemName:   itemName,
	}

	if err := s.redeemCodeRepo.Create(ctx, nil, code); err != nil {
		return nil, err
	}

	log.Printf("兑换码签发成功: codeID=%s, userUID=%s, cost=%d", code.CodeID, userUID, costInt)
	return code, nil
}
