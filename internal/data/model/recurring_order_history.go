package model

import "time"

// RecurringOrderHistory 循环订单历史快照表（追加写）
type RecurringOrderHistory struct {
	ID                 uint64    `gorm:"primaryKey;column:recurring_order_history_id;autoIncrement"`
	OrderID            uint64    `gorm:"column:order_id;index"`
	Status             string    `gorm:"column:status"`
	ErrorReason        string    `gorm:"column:error_reason"`
	ErrorCount         int       `gorm:"column:error_count"`
	RecurrenceInterval *int64    `gorm:"column:recurrence_interval"`
	Note               string    `gorm:"column:note"`
	UpdatedByUserID    uint64    `gorm:"column:updated_by_user_id"`
	UpdatedAttributes  string    `gorm:"column:updated_attributes"` // JSON 字段名数组
	UID                string    `gorm:"column:uid;uniqueIndex"`
	CreatedAt          time.Time `gorm:"column:created_at"`
}

func (RecurringOrderHistory) TableName() string { return "recurring_order_history" }
