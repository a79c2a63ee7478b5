package model

import (
	"time"
)

const (
	RedeemCodeStatusActive    = "ACTIVE"    // 收银端生成兑换码时的初始状态
	RedeemCodeStatusCompleted = "completed" // 已完成兑换扣分，终态
)

// RedeemCodeType 兑换码类型标记，QR 载荷与库内记录都必须等于该值
const RedeemCodeType = "REDEEM"

// ValidRedeemCodeTransitions 兑换码状态机，completed 为终态
var ValidRedeemCodeTransitions = map[string][]string{
	RedeemCodeStatusActive: {RedeemCodeStatusCompleted},
}

func CanRedeemCodeTransitionTo(currentStatus, targetStatus string) bool {
	allowed, exists := ValidRedeemCodeTransitions[currentStatus]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == targetStatus {
			return true
		}
	}
	return false
}

// RedeemCode 兑换码（扣分码）表
// 由收银系统为指定会员生成，单次有效；扣分金额以库内 cost_points 为准，
// QR 载荷里携带的金额仅作展示，绝不参与扣分计算
type RedeemCode struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	CodeID      string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"code_id"`
	Type        string     `gorm:"type:varchar(20);not null" json:"type"`
	Status      string     `gorm:"type:varchar(20);index;not null" json:"status"`
	CostPoints  int64      `gorm:"not null" json:"cost_points"` // 服务端可信的扣分金额
	UserUID     string     `gorm:"type:varchar(64);index;not null" json:"user_uid"` // 唯一允许核销此码的会员
	ItemName    string     `gorm:"type:varchar(128)" json:"item_name"`
	CompletedAt *time.Time `json:"completed_at"`
	CompletedBy string     `gorm:"type:varchar(64)" json:"completed_by"`
	CreatedAt   time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (RedeemCode) TableName() string {
	return "redeem_code"
}
