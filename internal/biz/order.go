package biz

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Order 宿主商城订单的本地映像，只携带循环引擎关心的字段
type Order struct {
	ID                         uint64
	Number                     string
	CustomerID                 uint64
	Email                      string
	GatewayID                  uint64
	PaymentSourceID            uint64
	BillingAddressID           uint64
	ShippingAddressID          uint64
	EstimatedBillingAddressID  uint64
	EstimatedShippingAddressID uint64
	CouponCode                 string
	Currency                   string
	PaymentCurrency            string
	OrderLanguage              string
	Origin                     string
	ShippingMethodHandle       string
	IsCompleted                bool
	DateOrdered                *time.Time
	LineItems                  []*LineItem
	CreatedAt                  time.Time
	UpdatedAt                  time.Time
}

// LineItem 订单行项目
type LineItem struct {
	ID            uint64
	OrderID       uint64
	PurchasableID uint64
	Options       map[string]interface{}
	Qty           int
	Note          string
	SalePrice     float64
}

// Subtotal 行项目小计
func (li *LineItem) Subtotal() float64 {
	return li.SalePrice * float64(li.Qty)
}

// TotalQty 订单商品总数量
func (o *Order) TotalQty() int {
	total := 0
	for _, li := range o.LineItems {
		total += li.Qty
	}
	return total
}

// ItemTotal 订单商品总金额
func (o *Order) ItemTotal() float64 {
	total := 0.0
	for _, li := range o.LineItems {
		total += li.Subtotal()
	}
	return total
}

// OrderStore 宿主订单持久层接口
type OrderStore interface {
	// GetOrder 订单不存在时返回 (nil, nil)
	GetOrder(ctx context.Context, id uint64) (*Order, error)
	// SaveOrder 保存订单和行项目，新订单会被赋予 ID
	SaveOrder(ctx context.Context, order *Order) error
	// MarkOrderComplete 把订单标记为已完成
	MarkOrderComplete(ctx context.Context, order *Order) error
}

// LightClone 从源订单克隆出一个新的未保存订单
//
// 只复制结算相关属性白名单，并为每个行项目重建新的标识；
// 金额、状态、日期等由宿主在保存/完成时重新计算。源订单不会被修改。
func LightClone(order *Order) *Order {
	clone := &Order{
		Number:                     generateOrderNumber(),
		CustomerID:                 order.CustomerID,
		Email:                      order.Email,
		GatewayID:                  order.GatewayID,
		PaymentSourceID:            order.PaymentSourceID,
		BillingAddressID:           order.BillingAddressID,
		ShippingAddressID:          order.ShippingAddressID,
		EstimatedBillingAddressID:  order.EstimatedBillingAddressID,
		EstimatedShippingAddressID: order.EstimatedShippingAddressID,
		CouponCode:                 order.CouponCode,
		Currency:                   order.Currency,
		PaymentCurrency:            order.PaymentCurrency,
		OrderLanguage:              order.OrderLanguage,
		Origin:                     order.Origin,
		ShippingMethodHandle:       order.ShippingMethodHandle,
	}

	clone.LineItems = make([]*LineItem, 0, len(order.LineItems))
	for _, li := range order.LineItems {
		item := &LineItem{
			PurchasableID: li.PurchasableID,
			Qty:           li.Qty,
			Note:          li.Note,
			SalePrice:     li.SalePrice,
		}
		if li.Options != nil {
			item.Options = make(map[string]interface{}, len(li.Options))
			for k, v := range li.Options {
				item.Options[k] = v
			}
		}
		clone.LineItems = append(clone.LineItems, item)
	}

	return clone
}

func generateOrderNumber() string {
	return uuid.NewString()
}
