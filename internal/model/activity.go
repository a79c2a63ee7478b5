package model

import (
	"time"
)

// ============================================================================
// 活动类型常量
// ============================================================================

const (
	ActivityTypeEarn   = "earn"   // 扫积分券加分
	ActivityTypeSpend  = "spend"  // 扫兑换码扣分
	ActivityTypeRedeem = "redeem" // 在线兑换奖品扣分
	ActivityTypeBonus  = "bonus"  // 生日奖励加分
	ActivityTypeScan   = "scan"   // 历史数据兼容类型，仅读取，不再写入
)

// ============================================================================
// 活动流水实体
// ============================================================================

// Activity 会员活动流水表
// 每一笔积分变动写一条流水，与余额变动在同一个数据库事务内落库
//
// 流水表约定：
// 1. 只追加，不修改，不删除，保证审计可追溯
// 2. points 为带符号增量：加分为正，扣分为负
// 3. 任意时刻，某会员全部流水 points 之和等于其当前余额
type Activity struct {
	ID           int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	ActivityNo   string `gorm:"type:varchar(64);uniqueIndex;not null" json:"activity_no"` // 流水号，全局唯一
	UID          string `gorm:"type:varchar(64);index;not null" json:"uid"`
	Type         string `gorm:"type:varchar(20);not null" json:"type"`
	Points       int64  `gorm:"not null" json:"points"` // 带符号积分增量
	VoucherID    string `gorm:"type:varchar(64)" json:"voucher_id,omitempty"`     // 关联积分券
	RedeemCodeID string `gorm:"type:varchar(64)" json:"redeem_code_id,omitempty"` // 关联兑换码
	RewardID     int64  `gorm:"default:0" json:"reward_id,omitempty"`             // 关联奖品
	ItemName     string `gorm:"type:varchar(128)" json:"item_name,omitempty"`
	// 变动前后余额，便于对账校验余额一致性
	BalanceBefore int64     `gorm:"not null" json:"balance_before"`
	BalanceAfter  int64     `gorm:"not null" json:"balance_after"`
	Ts            time.Time `gorm:"autoCreateTime;index" json:"ts"` // 服务端落库时刻
}

func (Activity) TableName() string {
	return "activity"
}
