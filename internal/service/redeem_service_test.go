package service

import (
	"context"
	"testing"

	"loyaltysystem/internal/model"
	"loyaltysystem/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedRedeemCode(t *testing.T, db *gorm.DB, code *model.RedeemCode) *model.RedeemCode {
	t.Helper()
	if code.Type == "" {
		code.Type = model.RedeemCodeType
	}
	if code.Status == "" {
		code.Status = model.RedeemCodeStatusActive
	}
	require.NoError(t, db.Create(code).Error)
	return code
}

func TestCompleteCodeSuccess(t *testing.T) {
	db := newTestDB(t)
	svc := NewRedeemService(db, nil, newTestConfig())
	ctx := context.Background()

	seedUser(t, db, &model.User{UID: "u1", Points: 100})
	seedRedeemCode(t, db, &model.RedeemCode{
		CodeID:     "RDM001",
		CostPoints: 40,
		UserUID:    "u1",
		ItemName:   "拿铁",
	})

	result, err := svc.CompleteCode(ctx, "u1", "RDM001", 40)
	require.NoError(t, err)
	assert.Equal(t, "拿铁", result.ItemName)
	assert.Equal(t, int64(40), result.Cost)
	assert.Equal(t, int64(60), result.Balance)

	user := getUser(t, db, "u1")
	assert.Equal(t, int64(60), user.Points)

	var code model.RedeemCode
	require.NoError(t, db.Where("code_id = ?", "RDM001").First(&code).Error)
	assert.Equal(t, model.RedeemCodeStatusCompleted, code.Status)
	assert.Equal(t, "u1", code.CompletedBy)
	require.NotNil(t, code.CompletedAt)

	activities := listActivities(t, db, "u1")
	require.Len(t, activities, 1)
	assert.Equal(t, model.ActivityTypeSpend, activities[0].Type)
	assert.Equal(t, int64(-40), activities[0].Points)
	assert.Equal(t, int64(100), activities[0].BalanceBefore)
	assert.Equal(t, int64(60), activities[0].BalanceAfter)

	assert.Equal(t, int64(1), countOutbox(t, db, model.EventTypeSpend))
}

func TestCompleteCodeForgedAdvisoryCost(t *testing.T) {
	db := newTestDB(t)
	svc := NewRedeemService(db, nil, newTestConfig())

	seedUser(t, db, &model.User{UID: "u1", Points: 100})
	seedRedeemCode(t, db, &model.RedeemCode{
		CodeID:     "RDM001",
		CostPoints: 40,
		UserUID:    "u1",
		ItemName:   "甜点",
	})

	// QR 载荷被篡改成10分，实际扣分仍取库内40分
	result, err := svc.CompleteCode(context.Background(), "u1", "RDM001", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(40), result.Cost)
	assert.Equal(t, int64(60), result.Balance)
	assert.Equal(t, int64(60), getUser(t, db, "u1").Points)
}

func TestCompleteCodeBalanceNotEnough(t *testing.T) {
	db := newTestDB(t)
	svc := NewRedeemService(db, nil, newTestConfig())

	seedUser(t, db, &model.User{UID: "u1", Points: 50})
	seedRedeemCode(t, db, &model.RedeemCode{
		CodeID:     "RDM001",
		CostPoints: 60,
		UserUID:    "u1",
	})

	_, err := svc.CompleteCode(context.Background(), "u1", "RDM001", 60)
	assert.ErrorIs(t, err, repository.ErrBalanceNotEnough)

	// 余额不动，兑换码仍可在充值后使用
	assert.Equal(t, int64(50), getUser(t, db, "u1").Points)

	var code model.RedeemCode
	require.NoError(t, db.Where("code_id = ?", "RDM001").First(&code).Error)
	assert.Equal(t, model.RedeemCodeStatusActive, code.Status)
	assert.Empty(t, listActivities(t, db, "u1"))
}

func TestCompleteCodePermissionDenied(t *testing.T) {
	db := newTestDB(t)
	svc := NewRedeemService(db, nil, newTestConfig())

	seedUser(t, db, &model.User{UID: "u1", Points: 100})
	seedUser(t, db, &model.User{UID: "u2", Points: 100})
	seedRedeemCode(t, db, &model.RedeemCode{
		CodeID:     "RDM001",
		CostPoints: 40,
		UserUID:    "u1",
	})

	// 兑换码只能由签发对象核销
	_, err := svc.CompleteCode(context.Background(), "u2", "RDM001", 40)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	assert.Equal(t, int64(100), getUser(t, db, "u1").Points)
	assert.Equal(t, int64(100), getUser(t, db, "u2").Points)
}

func TestCompleteCodeDoubleComplete(t *testing.T) {
	db := newTestDB(t)
	svc := NewRedeemService(db, nil, newTestConfig())
	ctx := context.Background()

	seedUser(t, db, &model.User{UID: "u1", Points: 100})
	seedRedeemCode(t, db, &model.RedeemCode{
		CodeID:     "RDM001",
		CostPoints: 40,
		UserUID:    "u1",
	})

	_, err := svc.CompleteCode(ctx, "u1", "RDM001", 40)
	require.NoError(t, err)

	// 单次有效：第二次核销失败，且只扣过一次分
	_, err = svc.CompleteCode(ctx, "u1", "RDM001", 40)
	assert.ErrorIs(t, err, repository.ErrRedeemCodeStatusInvalid)

	assert.Equal(t, int64(60), getUser(t, db, "u1").Points)
	assert.Len(t, listActivities(t, db, "u1"), 1)
}

func TestCompleteCodeWrongType(t *testing.T) {
	db := newTestDB(t)
	svc := NewRedeemService(db, nil, newTestConfig())

	seedUser(t, db, &model.User{UID: "u1", Points: 100})
	seedRedeemCode(t, db, &model.RedeemCode{
		CodeID:     "RDM001",
		Type:       "GIFT",
		CostPoints: 40,
		UserUID:    "u1",
	})

	_, err := svc.CompleteCode(context.Background(), "u1", "RDM001", 40)
	assert.ErrorIs(t, err, ErrRedeemCodeTypeInvalid)
}

func TestRedeemRewardSuccess(t *testing.T) {
	db := newTestDB(t)
	svc := NewRedeemService(db, nil, newTestConfig())

	seedUser(t, db, &model.User{UID: "u1", Points: 100})
	reward := &model.Reward{Name: "卡布奇诺", Category: "Drinks", RedeemPoints: 35, Active: true}
	require.NoError(t, db.Create(reward).Error)

	result, err := svc.RedeemReward(context.Background(), "u1", reward.ID)
	require.NoError(t, err)
	assert.Equal(t, "卡布奇诺", result.ItemName)
	assert.Equal(t, int64(35), result.Cost)
	assert.Equal(t, int64(65), result.Balance)

	activities := listActivities(t, db, "u1")
	require.Len(t, activities, 1)
	assert.Equal(t, model.ActivityTypeRedeem, activities[0].Type)
	assert.Equal(t, int64(-35), activities[0].Points)
	assert.Equal(t, reward.ID, activities[0].RewardID)
}

func TestRedeemRewardInactive(t *testing.T) {
	db := newTestDB(t)
	svc := NewRedeemService(db, nil, newTestConfig())

	seedUser(t, db, &model.User{UID: "u1", Points: 100})
	reward := &model.Reward{Name: "下架奖品", RedeemPoints: 35, Active: true}
	require.NoError(t, db.Create(reward).Error)
	require.NoError(t, db.Model(reward).Update("active", false).Error)

	_, err := svc.RedeemReward(context.Background(), "u1", reward.ID)
	assert.ErrorIs(t, err, repository.ErrRewardInactive)

	assert.Equal(t, int64(100), getUser(t, db, "u1").Points)
}

func TestRedeemRewardBalanceNotEnough(t *testing.T) {
	db := newTestDB(t)
	svc := NewRedeemService(db, nil, newTestConfig())

	seedUser(t, db, &model.User{UID: "u1", Points: 20})
	reward := &model.Reward{Name: "高价奖品", RedeemPoints: 500, Active: true}
	require.NoError(t, db.Create(reward).Error)

	_, err := svc.RedeemReward(context.Background(), "u1", reward.ID)
	assert.ErrorIs(t, err, repository.ErrBalanceNotEnough)
	assert.Equal(t, int64(20), getUser(t, db, "u1").Points)
}
