package service

import (
	"errors"
)

// 积分引擎错误分类
// 仓储层的哨兵错误（不存在/状态不合法/积分不足）直接向上透传，
// 这里只补充仓储层表达不了的校验类错误。
// 所有校验错误都在事务发出任何写操作之前抛出，数据库保证无半途写入。
var (
	ErrVoucherExpired        = errors.New("积分券已过期")
	ErrPermissionDenied      = errors.New("兑换码不属于当前会员")
	ErrRedeemCodeTypeInvalid = errors.New("兑换码类型不合法")
	ErrQRFormatInvalid       = errors.New("无法识别的二维码")
	ErrBirthdayFormatInvalid = errors.New("生日格式不合法，应为 YYYY-MM-DD")
	ErrVerifyTokenInvalid    = errors.New("验证令牌无效或已过期")
)
