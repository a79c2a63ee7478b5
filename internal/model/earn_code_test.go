package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEarnCodeTransitions(t *testing.T) {
	// pending 可流转到两个终态
	assert.True(t, CanEarnCodeTransitionTo(EarnCodeStatusPending, EarnCodeStatusRedeemed))
	assert.True(t, CanEarnCodeTransitionTo(EarnCodeStatusPending, EarnCodeStatusExpired))

	// 终态不可回退也不可互转
	assert.False(t, CanEarnCodeTransitionTo(EarnCodeStatusRedeemed, EarnCodeStatusPending))
	assert.False(t, CanEarnCodeTransitionTo(EarnCodeStatusRedeemed, EarnCodeStatusExpired))
	assert.False(t, CanEarnCodeTransitionTo(EarnCodeStatusExpired, EarnCodeStatusPending))
	assert.False(t, CanEarnCodeTransitionTo(EarnCodeStatusExpired, EarnCodeStatusRedeemed))

	// 未知状态一律拒绝
	assert.False(t, CanEarnCodeTransitionTo("unknown", EarnCodeStatusRedeemed))
}

func TestEarnCodeExpiry(t *testing.T) {
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	code := &EarnCode{
		CodeID:      "EARN001",
		Status:      EarnCodeStatusPending,
		Points:      30,
		ValidForSec: 3600,
		CreatedAt:   issued,
	}

	assert.Equal(t, issued.Add(time.Hour), code.ExpiresAt())

	// 有效期内
	assert.False(t, code.IsExpiredAt(issued.Add(30*time.Minute)))
	// 恰好到期时刻仍可核销，过期判定是严格大于
	assert.False(t, code.IsExpiredAt(issued.Add(time.Hour)))
	// 超过有效期
	assert.True(t, code.IsExpiredAt(issued.Add(time.Hour+time.Second)))
	assert.True(t, code.IsExpiredAt(issued.Add(2*time.Hour)))
}
