package service

import (
	"context"
	"testing"
	"time"

	"loyaltysystem/internal/model"
	"loyaltysystem/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedEarnCode(t *testing.T, db *gorm.DB, code *model.EarnCode) *model.EarnCode {
	t.Helper()
	if code.Status == "" {
		code.Status = model.EarnCodeStatusPending
	}
	if code.ValidForSec == 0 {
		code.ValidForSec = 3600
	}
	require.NoError(t, db.Create(code).Error)
	return code
}

func TestEarnRedeemSuccess(t *testing.T) {
	db := newTestDB(t)
	svc := NewEarnService(db, nil, newTestConfig())
	ctx := context.Background()

	seedUser(t, db, &model.User{UID: "u1", Points: 100})
	seedEarnCode(t, db, &model.EarnCode{CodeID: "EARN001", Points: 30})

	result, err := svc.Redeem(ctx, "u1", "EARN001")
	require.NoError(t, err)
	assert.Equal(t, "EARN001", result.VoucherID)
	assert.Equal(t, int64(30), result.Points)
	assert.Equal(t, int64(130), result.Balance)
	assert.True(t, result.VisitCounted)

	// 余额、到店、券状态、流水、出站事件在同一事务内全部落库
	user := getUser(t, db, "u1")
	assert.Equal(t, int64(130), user.Points)
	assert.Equal(t, int64(1), user.Visits)
	require.NotNil(t, user.LastVisitAt)

	var code model.EarnCode
	require.NoError(t, db.Where("code_id = ?", "EARN001").First(&code).Error)
	assert.Equal(t, model.EarnCodeStatusRedeemed, code.Status)
	assert.Equal(t, "u1", code.RedeemedBy)

	activities := listActivities(t, db, "u1")
	require.Len(t, activities, 1)
	assert.Equal(t, model.ActivityTypeEarn, activities[0].Type)
	assert.Equal(t, int64(30), activities[0].Points)
	assert.Equal(t, int64(100), activities[0].BalanceBefore)
	assert.Equal(t, int64(130), activities[0].BalanceAfter)
	assert.Equal(t, "EARN001", activities[0].VoucherID)

	assert.Equal(t, int64(1), countOutbox(t, db, model.EventTypeEarn))
}

func TestEarnRedeemVoucherNotFound(t *testing.T) {
	db := newTestDB(t)
	svc := NewEarnService(db, nil, newTestConfig())

	seedUser(t, db, &model.User{UID: "u1", Points: 100})

	_, err := svc.Redeem(context.Background(), "u1", "EARN-MISSING")
	assert.ErrorIs(t, err, repository.ErrEarnCodeNotFound)

	assert.Equal(t, int64(100), getUser(t, db, "u1").Points)
}

func TestEarnRedeemAlreadyRedeemed(t *testing.T) {
	db := newTestDB(t)
	svc := NewEarnService(db, nil, newTestConfig())
	ctx := context.Background()

	seedUser(t, db, &model.User{UID: "u1", Points: 100})
	seedEarnCode(t, db, &model.EarnCode{CodeID: "EARN001", Points: 30})

	_, err := svc.Redeem(ctx, "u1", "EARN001")
	require.NoError(t, err)

	// 同一张券第二次核销必须失败，且不产生任何新变更
	_, err = svc.Redeem(ctx, "u1", "EARN001")
	assert.ErrorIs(t, err, repository.ErrEarnCodeStatusInvalid)

	assert.Equal(t, int64(130), getUser(t, db, "u1").Points)
	assert.Len(t, listActivities(t, db, "u1"), 1)
}

func TestEarnRedeemExpiredByTTL(t *testing.T) {
	db := newTestDB(t)
	svc := NewEarnService(db, nil, newTestConfig())

	seedUser(t, db, &model.User{UID: "u1", Points: 100})
	// 签发于2小时前，有效期1小时；后台清理任务还没跑过，状态仍是 pending
	seedEarnCode(t, db, &model.EarnCode{
		CodeID:      "EARN-OLD",
		Points:      30,
		ValidForSec: 3600,
		CreatedAt:   time.Now().Add(-2 * time.Hour),
	})

	_, err := svc.Redeem(context.Background(), "u1", "EARN-OLD")
	assert.ErrorIs(t, err, ErrVoucherExpired)

	// 过期判定不依赖清理任务，也不改任何状态
	user := getUser(t, db, "u1")
	assert.Equal(t, int64(100), user.Points)
	assert.Equal(t, int64(0), user.Visits)
	assert.Empty(t, listActivities(t, db, "u1"))
}

func TestEarnRedeemExpiredStatus(t *testing.T) {
	db := newTestDB(t)
	svc := NewEarnService(db, nil, newTestConfig())

	seedUser(t, db, &model.User{UID: "u1", Points: 100})
	seedEarnCode(t, db, &model.EarnCode{
		CodeID: "EARN-CLOSED",
		Points: 30,
		Status: model.EarnCodeStatusExpired,
	})

	_, err := svc.Redeem(context.Background(), "u1", "EARN-CLOSED")
	assert.ErrorIs(t, err, ErrVoucherExpired)
}

func TestEarnVisitWindowDedup(t *testing.T) {
	db := newTestDB(t)
	svc := NewEarnService(db, nil, newTestConfig())
	ctx := context.Background()

	// 1小时前刚计入过到店，4小时窗口内不再计数
	lastVisit := time.Now().Add(-time.Hour)
	seedUser(t, db, &model.User{UID: "u1", Points: 0, Visits: 3, LastVisitAt: &lastVisit})
	seedEarnCode(t, db, &model.EarnCode{CodeID: "EARN001", Points: 10})

	result, err := svc.Redeem(ctx, "u1", "EARN001")
	require.NoError(t, err)
	assert.False(t, result.VisitCounted)
	assert.Equal(t, int64(3), getUser(t, db, "u1").Visits)

	// 窗口外的下一次核销计入新到店
	stale := time.Now().Add(-5 * time.Hour)
	require.NoError(t, db.Model(&model.User{}).Where("uid = ?", "u1").
		Update("last_visit_at", stale).Error)
	seedEarnCode(t, db, &model.EarnCode{CodeID: "EARN002", Points: 10})

	result, err = svc.Redeem(ctx, "u1", "EARN002")
	require.NoError(t, err)
	assert.True(t, result.VisitCounted)
	assert.Equal(t, int64(4), getUser(t, db, "u1").Visits)
}

func TestEarnRedeemUserNotFound(t *testing.T) {
	db := newTestDB(t)
	svc := NewEarnService(db, nil, newTestConfig())

	seedEarnCode(t, db, &model.EarnCode{CodeID: "EARN001", Points: 10})

	_, err := svc.Redeem(context.Background(), "ghost", "EARN001")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	// 事务回滚，券仍然可用
	var code model.EarnCode
	require.NoError(t, db.Where("code_id = ?", "EARN001").First(&code).Error)
	assert.Equal(t, model.EarnCodeStatusPending, code.Status)
}
