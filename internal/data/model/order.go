package model

import "time"

// Order 订单表
type Order struct {
	ID                   uint64     `gorm:"primaryKey;column:order_id;autoIncrement"`
	Number               string     `gorm:"column:number;uniqueIndex"`
	CustomerID           uint64     `gorm:"column:customer_id;index"`
	Email                string     `gorm:"column:email"`
	GatewayID            uint64     `gorm:"column:gateway_id"`
	PaymentSourceID      *uint64    `gorm:"column:payment_source_id"`
	BillingAddressID     *uint64    `gorm:"column:billing_address_id"`
	ShippingAddressID    *uint64    `gorm:"column:shipping_address_id"`
	EstimatedBillingID   *uint64    `gorm:"column:estimated_billing_address_id"`
	EstimatedShippingID  *uint64    `gorm:"column:estimated_shipping_address_id"`
	CouponCode           string     `gorm:"column:coupon_code"`
	Currency             string     `gorm:"column:currency"`
	PaymentCurrency      string     `gorm:"column:payment_currency"`
	OrderLanguage        string     `gorm:"column:order_language"`
	Origin               string     `gorm:"column:origin"`
	ShippingMethodHandle string     `gorm:"column:shipping_method_handle"`
	IsCompleted          bool       `gorm:"column:is_completed"`
	DateOrdered          *time.Time `gorm:"column:date_ordered"`
	UID                  string     `gorm:"column:uid;uniqueIndex"`
	CreatedAt            time.Time  `gorm:"column:created_at"`
	UpdatedAt            time.Time  `gorm:"column:updated_at"`
}

func (Order) TableName() string { return "order" }

// OrderLineItem 订单行项目表，options 以 JSON 存储
type OrderLineItem struct {
	ID            uint64    `gorm:"primaryKey;column:line_item_id;autoIncrement"`
	OrderID       uint64    `gorm:"column:order_id;index"`
	PurchasableID uint64    `gorm:"column:purchasable_id"`
	Options       string    `gorm:"column:options;type:json"`
	Qty           int       `gorm:"column:qty"`
	Note          string    `gorm:"column:note"`
	SalePrice     float64   `gorm:"column:sale_price"`
	UID           string    `gorm:"column:uid;uniqueIndex"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (OrderLineItem) TableName() string { return "order_line_item" }
