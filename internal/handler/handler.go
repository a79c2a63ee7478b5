package handler

import (
	"errors"
	"strconv"

	"loyaltysystem/internal/config"
	"loyaltysystem/internal/repository"
	"loyaltysystem/internal/service"
	"loyaltysystem/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	authService     *service.AuthService
	accountService  *service.AccountService
	scanService     *service.ScanService
	earnService     *service.EarnService
	redeemService   *service.RedeemService
	bonusService    *service.BonusService
	activityService *service.ActivityService
	rewardService   *service.RewardService
	menuService     *service.MenuService
	metaService     *service.MetaService
	cashierService  *service.CashierService
}

// NewHandler 创建处理器实例
func NewHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *Handler {
	earnService := service.NewEarnService(db, rdb, cfg)
	redeemService := service.NewRedeemService(db, rdb, cfg)

	return &Handler{
		authService:     service.NewAuthService(db, rdb, cfg),
		accountService:  service.NewAccountService(db),
		scanService:     service.NewScanService(earnService, redeemService),
		earnService:     earnService,
		redeemService:   redeemService,
		bonusService:    service.NewBonusService(db, rdb, cfg),
		activityService: service.NewActivityService(db),
		rewardService:   service.NewRewardService(db, rdb),
		menuService:     service.NewMenuService(db, rdb),
		metaService:     service.NewMetaService(db),
		cashierService:  service.NewCashierService(db, cfg),
	}
}

// respondError 把引擎错误分类映射到业务错误码
// 校验类错误原样透传给客户端展示；其余按服务端错误处理
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrEarnCodeNotFound):
		response.BusinessError(c, response.CodeVoucherNotFound, err.Error())
	case errors.Is(err, repository.ErrEarnCodeStatusInvalid):
		response.BusinessError(c, response.CodeVoucherRedeemed, "积分券已被核销")
	case errors.Is(err, service.ErrVoucherExpired):
		response.BusinessError(c, response.CodeVoucherExpired, err.Error())
	case errors.Is(err, repository.ErrBalanceNotEnough):
		response.BusinessError(c, response.CodeBalanceNotEnough, err.Error())
	case errors.Is(err, service.ErrPermissionDenied):
		response.BusinessError(c, response.CodePermissionDenied, err.Error())
	case errors.Is(err, repository.ErrRedeemCodeNotFound):
		response.BusinessError(c, response.CodeRedeemCodeNotFound, err.Error())
	case errors.Is(err, repository.ErrRedeemCodeStatusInvalid), errors.Is(err, service.ErrRedeemCodeTypeInvalid):
		response.BusinessError(c, response.CodeRedeemCodeInvalid, err.Error())
	case errors.Is(err, repository.ErrRewardNotFound):
		response.BusinessError(c, response.CodeRewardNotFound, err.Error())
	case errors.Is(err, repository.ErrRewardInactive):
		response.BusinessError(c, response.CodeRewardInactive, err.Error())
	case errors.Is(err, repository.ErrUserNotFound):
		response.BusinessError(c, response.CodeUserNotFound, err.Error())
	case errors.Is(err, service.ErrQRFormatInvalid):
		response.BusinessError(c, response.CodeQRFormatInvalid, err.Error())
	case errors.Is(err, service.ErrBirthdayFormatInvalid), errors.Is(err, service.ErrVerifyTokenInvalid),
		errors.Is(err, service.ErrIssuePointsInvalid):
		response.ParamError(c, err.Error())
	default:
		response.ServerError(c, err.Error())
	}
}

// ============================================================
// 注册验证接口（对外契约，路径不带版本前缀）
// ============================================================

// RegisterRequest 注册请求
type RegisterRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// Register 接收注册邮箱
// POST /api/register
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.authService.Register(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{"ok": true})
}

// VerifyRequest 验证请求
type VerifyRequest struct {
	Token string `json:"token" binding:"required"`
}

// Verify 校验验证令牌并签发会话令牌
// POST /api/verify
func (h *Handler) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.authService.Verify(c.Request.Context(), req.Token)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, result)
}

// ============================================================
// 账户相关接口
// ============================================================

// GetProfile 查询个人资料
// GET /api/v1/user/profile
func (h *Handler) GetProfile(c *gin.Context) {
	uid := c.GetString(ContextKeyUID)

	user, err := h.accountService.GetProfile(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}

	complete := user.FullName != "" && user.Birthday != ""

	response.Success(c, gin.H{
		"uid":              user.UID,
		"email":            user.Email,
		"full_name":        user.FullName,
		"birthday":         user.Birthday,
		"gender":           user.Gender,
		"points":           user.Points,
		"visits":           user.Visits,
		"verified":         user.Verified,
		"profile_complete": complete,
	})
}

// UpdateProfileRequest 更新资料请求
type UpdateProfileRequest struct {
	FullName string `json:"full_name" binding:"required"`
	Birthday string `json:"birthday" binding:"required"` // YYYY-MM-DD
	Gender   string `json:"gender"`
}

// UpdateProfile 更新个人资料
// POST /api/v1/user/profile
func (h *Handler) UpdateProfile(c *gin.Context) {
	uid := c.GetString(ContextKeyUID)

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.accountService.UpdateProfile(c.Request.Context(), uid, req.FullName, req.Birthday, req.Gender); err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "资料已更新"})
}

// GetBalance 查询积分余额
// GET /api/v1/user/balance
func (h *Handler) GetBalance(c *gin.Context) {
	uid := c.GetString(ContextKeyUID)

	balance, err := h.accountService.GetBalance(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{
		"uid":     uid,
		"balance": balance,
	})
}

// ============================================================
// 扫码相关接口
// ============================================================

// ScanRequest 扫码请求，payload 为 QR 原文
type ScanRequest struct {
	Payload string `json:"payload" binding:"required"`
}

// Scan 处理一次扫码
// POST /api/v1/scan
//
// 扫码是整个系统最核心的操作，保证：
// 1. 原子性：券状态、余额、流水在同一个数据库事务内变更
// 2. 单次有效：同一张券/兑换码并发核销最多成功一次
// 3. 金额可信：扣分金额只取库内记录，QR 载荷仅作展示
func (h *Handler) Scan(c *gin.Context) {
	uid := c.GetString(ContextKeyUID)

	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.scanService.Process(c.Request.Context(), uid, req.Payload)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, result)
}

// ScanEarnRequest 积分券核销请求
type ScanEarnRequest struct {
	VoucherID string `json:"voucher_id" binding:"required"`
}

// ScanEarn 核销一张积分券
// POST /api/v1/scan/earn
func (h *Handler) ScanEarn(c *gin.Context) {
	uid := c.GetString(ContextKeyUID)

	var req ScanEarnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.earnService.Redeem(c.Request.Context(), uid, req.VoucherID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, result)
}

// ScanRedeemRequest 兑换码核销请求，payload 为 QR 原文
type ScanRedeemRequest struct {
	Payload string `json:"payload" binding:"required"`
}

// ScanRedeem 核销一张兑换码
// POST /api/v1/scan/redeem
func (h *Handler) ScanRedeem(c *gin.Context) {
	uid := c.GetString(ContextKeyUID)

	var req ScanRedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.scanService.ProcessRedeem(c.Request.Context(), uid, req.Payload)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, result)
}

// ============================================================
// 奖品相关接口
// ============================================================

// ListRewards 查询奖品目录
// GET /api/v1/reward/list?category=Food
func (h *Handler) ListRewards(c *gin.Context) {
	category := c.Query("category")

	rewards, err := h.rewardService.List(c.Request.Context(), category)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{"list": rewards})
}

// RedeemRewardRequest 在线兑换请求
type RedeemRewardRequest struct {
	RewardID int64 `json:"reward_id" binding:"required"`
}

// RedeemReward 在线兑换奖品
// POST /api/v1/reward/redeem
func (h *Handler) RedeemReward(c *gin.Context) {
	uid := c.GetString(ContextKeyUID)

	var req RedeemRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.redeemService.RedeemReward(c.Request.Context(), uid, req.RewardID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, result)
}

// ============================================================
// 生日奖励接口
// ============================================================

// CheckBirthdayBonus 检查并发放生日奖励
// POST /api/v1/bonus/birthday
func (h *Handler) CheckBirthdayBonus(c *gin.Context) {
	uid := c.GetString(ContextKeyUID)

	result, err := h.bonusService.CheckBirthday(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, result)
}

// ============================================================
// 活动流水接口
// ============================================================

// ListActivities 查询活动流水
// GET /api/v1/activity/list?page=1&page_size=10
func (h *Handler) ListActivities(c *gin.Context) {
	uid := c.GetString(ContextKeyUID)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	activities, total, err := h.activityService.List(c.Request.Context(), uid, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      activities,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// AuditActivities 流水对账
// GET /api/v1/activity/audit
func (h *Handler) AuditActivities(c *gin.Context) {
	uid := c.GetString(ContextKeyUID)

	result, err := h.activityService.Audit(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, result)
}

// ============================================================
// 菜单与应用状态接口
// ============================================================

// ListMenu 查询菜单
// GET /api/v1/menu/list?category=Drinks
func (h *Handler) ListMenu(c *gin.Context) {
	category := c.Query("category")

	items, err := h.menuService.List(c.Request.Context(), category)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{"list": items})
}

// GetMetaStatus 查询应用开关
// GET /api/v1/meta/status
func (h *Handler) GetMetaStatus(c *gin.Context) {
	status, err := h.metaService.GetStatus(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{
		"is_active": status.IsActive,
		"message":   status.Message,
	})
}

// ============================================================
// 收银端签发接口
// ============================================================

// IssueEarnCodeRequest 签发积分券请求
// points 允许小数，服务端向零截断
type IssueEarnCodeRequest struct {
	Points      float64 `json:"points" binding:"required,gt=0"`
	ValidForSec int64   `json:"valid_for_sec"`
}

// IssueEarnCode 签发积分券
// POST /api/v1/cashier/earn-code
func (h *Handler) IssueEarnCode(c *gin.Context) {
	var req IssueEarnCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	code, err := h.cashierService.IssueEarnCode(c.Request.Context(), req.Points, req.ValidForSec)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{
		"code_id":       code.CodeID,
		"points":        code.Points,
		"valid_for_sec": code.ValidForSec,
		"status":        code.Status,
	})
}

// IssueRedeemCodeRequest 签发兑换码请求
type IssueRedeemCodeRequest struct {
	UserUID    string  `json:"user_uid" binding:"required"`
	ItemName   string  `json:"item_name" binding:"required"`
	CostPoints float64 `json:"cost_points" binding:"required,gt=0"`
}

// IssueRedeemCode 为指定会员签发兑换码
// POST /api/v1/cashier/redeem-code
func (h *Handler) IssueRedeemCode(c *gin.Context) {
	var req IssueRedeemCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	code, err := h.cashierService.IssueRedeemCode(c.Request.Context(), req.UserUID, req.ItemName, req.CostPoints)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{
		"code_id":     code.CodeID,
		"user_uid":    code.UserUID,
		"item_name":   code.ItemName,
		"cost_points": code.CostPoints,
		"status":      code.Status,
		// 收银端打印的 QR 载荷
		"qr_payload": "REDEEM|" + code.CodeID + "|" + code.UserUID + "|" + strconv.FormatInt(code.CostPoints, 10),
	})
}
