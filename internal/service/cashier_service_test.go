package service

import (
	"context"
	"testing"

	"loyaltysystem/internal/model"
	"loyaltysystem/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueEarnCode(t *testing.T) {
	db := newTestDB(t)
	svc := NewCashierService(db, newTestConfig())
	ctx := context.Background()

	// POS 按消费额折算出的小数面额，向零截断
	code, err := svc.IssueEarnCode(ctx, 49.9, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(49), code.Points)
	assert.Equal(t, model.EarnCodeStatusPending, code.Status)
	// 未指定有效期时使用配置默认值
	assert.Equal(t, int64(3600), code.ValidForSec)
	assert.NotEmpty(t, code.CodeID)

	// 指定有效期原样生效
	code, err = svc.IssueEarnCode(ctx, 10, 7200)
	require.NoError(t, err)
	assert.Equal(t, int64(7200), code.ValidForSec)
}

func TestIssueEarnCodeInvalidPoints(t *testing.T) {
	db := newTestDB(t)
	svc := NewCashierService(db, newTestConfig())
	ctx := context.Background()

	// 截断后为0同样拒绝
	_, err := svc.IssueEarnCode(ctx, 0.9, 0)
	assert.ErrorIs(t, err, ErrIssuePointsInvalid)

	_, err = svc.IssueEarnCode(ctx, -5, 0)
	assert.ErrorIs(t, err, ErrIssuePointsInvalid)
}

func TestIssueRedeemCode(t *testing.T) {
	db := newTestDB(t)
	svc := NewCashierService(db, newTestConfig())
	ctx := context.Background()

	seedUser(t, db, &model.User{UID: "u1", Points: 100})

	code, err := svc.IssueRedeemCode(ctx, "u1", "拿铁", 40.7)
	require.NoError(t, err)
	assert.Equal(t, model.RedeemCodeType, code.Type)
	assert.Equal(t, model.RedeemCodeStatusActive, code.Status)
	assert.Equal(t, int64(40), code.CostPoints)
	assert.Equal(t, "u1", code.UserUID)
	assert.Equal(t, "拿铁", code.ItemName)
}

func TestIssueRedeemCodeUnknownUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewCashierService(db, newTestConfig())

	_, err := svc.IssueRedeemCode(context.Background(), "ghost", "拿铁", 40)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}
