package model

import "time"

// GeneratedOrder 生成订单与父订单的关联表（报表用）
type GeneratedOrder struct {
	ID            uint64    `gorm:"primaryKey;column:generated_order_id;autoIncrement"`
	ParentOrderID uint64    `gorm:"column:parent_order_id;index"`
	OrderID       uint64    `gorm:"column:order_id;uniqueIndex"`
	UID           string    `gorm:"column:uid;uniqueIndex"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (GeneratedOrder) TableName() string { return "generated_order" }
