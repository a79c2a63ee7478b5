package model

import (
	"time"
)

// User 会员账户表
// 记录会员的积分余额与到店次数，是整个积分系统的核心数据
type User struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UID       string `gorm:"type:varchar(64);uniqueIndex;not null" json:"uid"` // 会员UID，认证服务颁发，创建后不可变
	Email     string `gorm:"type:varchar(128);index" json:"email"`
	FullName  string `gorm:"type:varchar(128)" json:"full_name"`
	Birthday  string `gorm:"type:varchar(10)" json:"birthday"` // 生日，格式 YYYY-MM-DD，用户自填
	Gender    string `gorm:"type:varchar(16)" json:"gender"`
	Points    int64  `gorm:"not null;default:0" json:"points"` // 可用积分，任何时刻不允许为负
	Visits    int64  `gorm:"not null;default:0" json:"visits"` // 到店次数，按4小时去重窗口累加
	// 上次计入到店的时间，为空表示从未到店
	LastVisitAt *time.Time `json:"last_visit_at"`
	// 上次发放生日奖励的日期（YYYY-MM-DD），用于保证每个自然日最多发一次
	LastBirthdayReward string    `gorm:"type:varchar(10);not null;default:''" json:"last_birthday_reward"`
	Verified           bool      `gorm:"not null;default:false" json:"verified"`
	Version            int       `gorm:"not null;default:0" json:"version"` // 乐观锁版本号
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "user"
}

// BirthdayMonthDay 解析生日中的月/日，格式不合法时返回 false
func (u *User) BirthdayMonthDay() (month, day int, ok bool) {
	t, err := time.Parse("2006-01-02", u.Birthday)
	if err != nil {
		return 0, 0, false
	}
	return int(t.Month()), t.Day(), true
}

// IsBirthday 判断给定时刻是否为该会员的生日（仅比较月/日）
func (u *User) IsBirthday(now time.Time) bool {
	month, day, ok := u.BirthdayMonthDay()
	if !ok {
		return false
	}
	return int(now.Month()) == month && now.Day() == day
}
