package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CodeSuccess       = 0
	CodeParamError    = 400
	CodeUnauthorized  = 401
	CodeForbidden     = 403
	CodeNotFound      = 404
	CodeServerError   = 500
	CodeBusinessError = 1000
)

// 业务错误码，与积分引擎的错误分类一一对应
const (
	CodeVoucherNotFound    = 1001 // 积分券不存在
	CodeVoucherRedeemed    = 1002 // 积分券已核销/状态不合法
	CodeVoucherExpired     = 1003 // 积分券已过期
	CodeBalanceNotEnough   = 1004 // 积分不足
	CodePermissionDenied   = 1005 // 兑换码不属于当前会员
	CodeRedeemCodeNotFound = 1006 // 兑换码不存在
	CodeRedeemCodeInvalid  = 1007 // 兑换码状态/类型不合法
	CodeRewardNotFound     = 1008 // 奖品不存在
	CodeRewardInactive     = 1009 // 奖品已下架
	CodeUserNotFound       = 1010 // 会员不存在
	CodeBonusAlreadyIssued = 1011 // 今日生日奖励已发放
	CodeQRFormatInvalid    = 1012 // QR 载荷格式不合法
)

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}

func ParamError(c *gin.Context, message string) {
	Error(c, CodeParamError, message)
}

func Unauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, Response{
		Code:    CodeUnauthorized,
		Message: message,
	})
}

func ServerError(c *gin.Context, message string) {
	Error(c, CodeServerError, message)
}

func BusinessError(c *gin.Context, code int, message string) {
	Error(c, code, message)
}
