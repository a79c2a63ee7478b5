package service

import (
	"testing"

	"loyaltysystem/internal/config"
	"loyaltysystem/internal/model"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// 服务层测试直接跑在内存 SQLite 上，Redis 传 nil，
// 走"仅依赖数据库条件更新兜底"的退化路径
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.EarnCode{},
		&model.RedeemCode{},
		&model.Reward{},
		&model.MenuItem{},
		&model.Activity{},
		&model.MetaStatus{},
		&model.OutboxMessage{},
	))
	return db
}

func newTestConfig() *config.Config {
	return &config.Config{
		Kafka: config.KafkaConfig{
			Topic: config.KafkaTopicConfig{
				LoyaltyEvents: "loyalty-events",
				EmailOut:      "loyalty-email-out",
			},
		},
		JWT: config.JWTConfig{
			Secret:        "test-secret",
			ExpireMinutes: 60,
		},
		Business: config.BusinessConfig{
			VisitWindowHours:     4,
			BirthdayBonusPoints:  15,
			DefaultVoucherTTLSec: 3600,
			VerifyTokenTTLMin:    30,
			MaxRetryCount:        3,
		},
	}
}

func seedUser(t *testing.T, db *gorm.DB, user *model.User) *model.User {
	t.Helper()
	if user.Email == "" {
		user.Email = user.UID + "@test.local"
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func getUser(t *testing.T, db *gorm.DB, uid string) *model.User {
	t.Helper()
	var user model.User
	require.NoError(t, db.Where("uid = ?", uid).First(&user).Error)
	return &user
}

func listActivities(t *testing.T, db *gorm.DB, uid string) []*model.Activity {
	t.Helper()
	var activities []*model.Activity
	require.NoError(t, db.Where("uid = ?", uid).Order("id ASC").Find(&activities).Error)
	return activities
}

func countOutbox(t *testing.T, db *gorm.DB, eventType string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&model.OutboxMessage{}).
		Where("event_type = ?", eventType).Count(&count).Error)
	return count
}
