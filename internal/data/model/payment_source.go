package model

import "time"

// PaymentSource 用户存储的支付方式（卡 token 等）
type PaymentSource struct {
	ID          uint64    `gorm:"primaryKey;column:payment_source_id;autoIncrement"`
	CustomerID  uint64    `gorm:"column:customer_id;index"`
	GatewayID   uint64    `gorm:"column:gateway_id"`
	Token       string    `gorm:"column:token"`
	Description string    `gorm:"column:description"`
	UID         string    `gorm:"column:uid;uniqueIndex"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (PaymentSource) TableName() string { return "payment_source" }
