package model

import (
	"time"
)

const (
	EarnCodeStatusPending  = "pending"  // 收银端签发后的初始状态
	EarnCodeStatusRedeemed = "redeemed" // 已被会员扫码核销，终态
	EarnCodeStatusExpired  = "expired"  // 超过有效期被后台任务关闭，终态
)

// ValidEarnCodeTransitions 积分券状态机
// 只允许白名单内的状态流转，redeemed/expired 均为终态，永不回退
var ValidEarnCodeTransitions = map[string][]string{
	EarnCodeStatusPending: {EarnCodeStatusRedeemed, EarnCodeStatusExpired},
}

func CanEarnCodeTransitionTo(currentStatus, targetStatus string) bool {
	allowed, exists := ValidEarnCodeTransitions[currentStatus]
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

// EarnCode 积分券（加分码）表
// 由收银系统签发，单次有效、限时有效；QR 码内容即 code_id
type EarnCode struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	CodeID       string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"code_id"`
	Status       string     `gorm:"type:varchar(20);index;not null" json:"status"`
	Points       int64      `gorm:"not null" json:"points"`        // 签发时固定的积分面额
	ValidForSec  int64      `gorm:"not null" json:"valid_for_sec"` // 有效期（秒）
	RedeemedAt   *time.Time `json:"redeemed_at"`
	RedeemedBy   string     `gorm:"type:varchar(64);index" json:"redeemed_by"` // 核销人UID
	CreatedAt    time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (EarnCode) TableName() string {
	return "earn_code"
}

// ExpiresAt 计算过期时刻
func (c *EarnCode) ExpiresAt() time.Time {
	return c.CreatedAt.Add(time.Duration(c.ValidForSec) * time.Second)
}

// IsExpiredAt 判断在给定时刻券是否已过期
// 同一次事务内所有时间比较必须使用同一个 now，调用方负责只取一次
func (c *EarnCode) IsExpiredAt(now time.Time) bool {
	return now.Sub(c.CreatedAt) > time.Duration(c.ValidForSec)*time.Second
}
