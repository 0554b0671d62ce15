package model

import "time"

// RecurringOrder 循环订单记录表
type RecurringOrder struct {
	OrderID            uint64     `gorm:"primaryKey;column:order_id"`
	Status             string     `gorm:"column:status"`
	ErrorReason        string     `gorm:"column:error_reason"`
	ErrorCount         int        `gorm:"column:error_count"`
	RecurrenceInterval *int64     `gorm:"column:recurrence_interval"` // 秒数
	LastRecurrence     *time.Time `gorm:"column:last_recurrence"`
	NextRecurrence     *time.Time `gorm:"column:next_recurrence"`
	DateMarkedImminent *time.Time `gorm:"column:date_marked_imminent"`
	RetryDate          *time.Time `gorm:"column:retry_date"`
	PaymentSourceID    *uint64    `gorm:"column:payment_source_id"`
	Note               string     `gorm:"column:note"`
	Spec               string     `gorm:"column:spec"` // JSON 暂存排期
	OriginatingOrderID *uint64    `gorm:"column:originating_order_id;index"`
	ParentOrderID      *uint64    `gorm:"column:parent_order_id;index"`
	UID                string     `gorm:"column:uid;uniqueIndex"`
	CreatedAt          time.Time  `gorm:"column:created_at"`
	UpdatedAt          time.Time  `gorm:"column:updated_at"`
}

func (RecurringOrder) TableName() string { return "recurring_order" }
