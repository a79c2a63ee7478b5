package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBirthdayMonthDay(t *testing.T) {
	tests := []struct {
		name     string
		birthday string
		month    int
		day      int
		ok       bool
	}{
		{"合法生日", "1990-03-14", 3, 14, true},
		{"闰日", "2000-02-29", 2, 29, true},
		{"空生日", "", 0, 0, false},
		{"格式不合法", "14-03-1990", 0, 0, false},
		{"非日期", "hello", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &User{Birthday: tt.birthday}
			month, day, ok := u.BirthdayMonthDay()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.month, month)
			assert.Equal(t, tt.day, day)
		})
	}
}

func TestIsBirthday(t *testing.T) {
	u := &User{Birthday: "1990-03-14"}

	// 只比较月/日，年份无关
	assert.True(t, u.IsBirthday(time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)))
	assert.True(t, u.IsBirthday(time.Date(1990, 3, 14, 0, 0, 0, 0, time.UTC)))

	assert.False(t, u.IsBirthday(time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)))
	assert.False(t, u.IsBirthday(time.Date(2025, 4, 14, 10, 0, 0, 0, time.UTC)))

	// 生日未填或格式不合法都不算生日
	assert.False(t, (&User{}).IsBirthday(time.Now()))
	assert.False(t, (&User{Birthday: "bad"}).IsBirthday(time.Now()))
}
