package data

import (
	"context"
	"encoding/json"
	"errors"
	"time"
	"xinyuan_tech/recurring-orders-service/internal/biz"
	"xinyuan_tech/recurring-orders-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// orderStore 宿主订单持久层实现
type orderStore struct {
	data *Data
	log  *log.Helper
}

// NewOrderStore 创建订单持久层
func NewOrderStore(data *Data, logger log.Logger) biz.OrderStore {
	return &orderStore{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// GetOrder 获取订单及其行项目，不存在时返回 (nil, nil)
func (s *orderStore) GetOrder(ctx context.Context, id uint64) (*biz.Order, error) {
	db := s.data.DB(ctx)

	var m model.Order
	err := db.Where("order_id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		s.log.Errorf("Failed to get order %d: %v", id, err)
		return nil, err
	}

	var items []model.OrderLineItem
	if err := db.Where("order_id = ?", id).Order("line_item_id ASC").Find(&items).Error; err != nil {
		s.log.Errorf("Failed to get line items for order %d: %v", id, err)
		return nil, err
	}

	return toBizOrder(&m, items)
}

// SaveOrder 保存订单和行项目，新订单会被赋予 ID
func (s *orderStore) SaveOrder(ctx context.Context, order *biz.Order) error {
	db := s.data.DB(ctx)

	m := toModelOrder(order)
	if m.ID == 0 {
		m.UID = uuid.NewString()
	}
	if err := db.Save(m).Error; err != nil {
		s.log.Errorf("Failed to save order %s: %v", order.Number, err)
		return err
	}
	order.ID = m.ID
	order.CreatedAt = m.CreatedAt
	order.UpdatedAt = m.UpdatedAt

	for _, li := range order.LineItems {
		im, err := toModelLineItem(m.ID, li)
		if err != nil {
			return err
		}
		if im.ID == 0 {
			im.UID = uuid.NewString()
		}
		if err := db.Save(im).Error; err != nil {
			s.log.Errorf("Failed to save line item for order %d: %v", m.ID, err)
			return err
		}
		li.ID = im.ID
		li.OrderID = m.ID
	}
	return nil
}

// MarkOrderComplete 把订单标记为已完成
func (s *orderStore) MarkOrderComplete(ctx context.Context, order *biz.Order) error {
	now := time.Now().UTC()
	if err := s.data.DB(ctx).Model(&model.Order{}).
		Where("order_id = ?", order.ID).
		Updates(map[string]interface{}{
			"is_completed": true,
			"date_ordered": now,
		}).Error; err != nil {
		s.log.Errorf("Failed to mark order %d complete: %v", order.ID, err)
		return err
	}
	order.IsCompleted = true
	order.DateOrdered = &now
	return nil
}

func toBizOrder(m *model.Order, items []model.OrderLineItem) (*biz.Order, error) {
	order := &biz.Order{
		ID:                   m.ID,
		Number:               m.Number,
		CustomerID:           m.CustomerID,
		Email:                m.Email,
		GatewayID:            m.GatewayID,
		CouponCode:           m.CouponCode,
		Currency:             m.Currency,
		PaymentCurrency:      m.PaymentCurrency,
		OrderLanguage:        m.OrderLanguage,
		Origin:               m.Origin,
		ShippingMethodHandle: m.ShippingMethodHandle,
		IsCompleted:          m.IsCompleted,
		DateOrdered:          m.DateOrdered,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
	if m.PaymentSourceID != nil {
		order.PaymentSourceID = *m.PaymentSourceID
	}
	if m.BillingAddressID != nil {
		order.BillingAddressID = *m.BillingAddressID
	}
	if m.ShippingAddressID != nil {
		order.ShippingAddressID = *m.ShippingAddressID
	}
	if m.EstimatedBillingID != nil {
		order.EstimatedBillingAddressID = *m.EstimatedBillingID
	}
	if m.EstimatedShippingID != nil {
		order.EstimatedShippingAddressID = *m.EstimatedShippingID
	}

	order.LineItems = make([]*biz.LineItem, 0, len(items))
	for i := range items {
		li, err := toBizLineItem(&items[i])
		if err != nil {
			return nil, err
		}
		order.LineItems = append(order.LineItems, li)
	}
	return order, nil
}

func toBizLineItem(m *model.OrderLineItem) (*biz.LineItem, error) {
	li := &biz.LineItem{
		ID:            m.ID,
		OrderID:       m.OrderID,
		PurchasableID: m.PurchasableID,
		Qty:           m.Qty,
		Note:          m.Note,
		SalePrice:     m.SalePrice,
	}
	if m.Options != "" {
		if err := json.Unmarshal([]byte(m.Options), &li.Options); err != nil {
			return nil, err
		}
	}
	return li, nil
}

func toModelOrder(order *biz.Order) *model.Order {
	m := &model.Order{
		ID:                   order.ID,
		Number:               order.Number,
		CustomerID:           order.CustomerID,
		Email:                order.Email,
		GatewayID:            order.GatewayID,
		CouponCode:           order.CouponCode,
		Currency:             order.Currency,
		PaymentCurrency:      order.PaymentCurrency,
		OrderLanguage:        order.OrderLanguage,
		Origin:               order.Origin,
		ShippingMethodHandle: order.ShippingMethodHandle,
		IsCompleted:          order.IsCompleted,
		DateOrdered:          order.DateOrdered,
		CreatedAt:            order.CreatedAt,
		UpdatedAt:            order.UpdatedAt,
	}
	if order.PaymentSourceID != 0 {
		id := order.PaymentSourceID
		m.PaymentSourceID = &id
	}
	if order.BillingAddressID != 0 {
		id := order.BillingAddressID
		m.BillingAddressID = &id
	}
	if order.ShippingAddressID != 0 {
		id := order.ShippingAddressID
		m.ShippingAddressID = &id
	}
	if order.EstimatedBillingAddressID != 0 {
		id := order.EstimatedBillingAddressID
		m.EstimatedBillingID = &id
	}
	if order.EstimatedShippingAddressID != 0 {
		id := order.EstimatedShippingAddressID
		m.EstimatedShippingID = &id
	}
	return m
}

func toModelLineItem(orderID uint64, li *biz.LineItem) (*model.OrderLineItem, error) {
	m := &model.OrderLineItem{
		ID:            li.ID,
		OrderID:       orderID,
		PurchasableID: li.PurchasableID,
		Qty:           li.Qty,
		Note:          li.Note,
		SalePrice:     li.SalePrice,
	}
	if li.Options != nil {
		payload, err := json.Marshal(li.Options)
		if err != nil {
			return nil, err
		}
		m.Options = string(payload)
	}
	return m, nil
}
