package model

import (
	"time"
)

// Reward 奖品目录表
// active=false 的奖品不展示、不可兑换
type Reward struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"type:varchar(128);not null" json:"name"`
	Category     string    `gorm:"type:varchar(32);index" json:"category"` // Food / Drinks / Exclusive
	PriceMAD     float64   `gorm:"not null;default:0" json:"price_mad"`    // 门店售价，仅展示
	RedeemPoints int64     `gorm:"not null" json:"redeem_points"`          // 兑换所需积分，服务端可信
	ImagePath    string    `gorm:"type:varchar(256)" json:"image_path"`
	Active       bool      `gorm:"not null;default:true;index" json:"active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Reward) TableName() string {
	return "reward"
}

// MenuItem 菜单条目表，仅供客户端浏览
type MenuItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(128);not null" json:"name"`
	Category  string    `gorm:"type:varchar(32);index" json:"category"`
	PriceMAD  float64   `gorm:"not null;default:0" json:"price_mad"`
	ImagePath string    `gorm:"type:varchar(256)" json:"image_path"`
	Available bool      `gorm:"not null;default:true" json:"available"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (MenuItem) TableName() string {
	return "menu_item"
}

// MetaStatus 应用开关表，单行记录
// is_active=false 时客户端进入维护提示页
type MetaStatus struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	Message   string    `gorm:"type:varchar(256)" json:"message"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (MetaStatus) TableName() string {
	return "meta_status"
}
