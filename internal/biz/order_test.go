package biz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSourceOrder() *Order {
	return &Order{
		ID:                   100,
		Number:               "src-number",
		CustomerID:           7,
		Email:                "jo@example.com",
		GatewayID:            2,
		PaymentSourceID:      4,
		BillingAddressID:     11,
		ShippingAddressID:    12,
		CouponCode:           "SAVE10",
		Currency:             "USD",
		PaymentCurrency:      "USD",
		OrderLanguage:        "en-US",
		Origin:               "web",
		ShippingMethodHandle: "standard",
		IsCompleted:          true,
		LineItems: []*LineItem{
			{ID: 1, OrderID: 100, PurchasableID: 9, Qty: 2, SalePrice: 10, Options: map[string]interface{}{"size": "L"}},
			{ID: 2, OrderID: 100, PurchasableID: 8, Qty: 1, SalePrice: 10, Note: "gift"},
		},
	}
}

func TestLightClone(t *testing.T) {
	src := newSourceOrder()
	clone := LightClone(src)

	// 结算白名单被复制
	assert.Equal(t, src.CustomerID, clone.CustomerID)
	assert.Equal(t, src.Email, clone.Email)
	assert.Equal(t, src.GatewayID, clone.GatewayID)
	assert.Equal(t, src.PaymentSourceID, clone.PaymentSourceID)
	assert.Equal(t, src.BillingAddressID, clone.BillingAddressID)
	assert.Equal(t, src.ShippingAddressID, clone.ShippingAddressID)
	assert.Equal(t, src.CouponCode, clone.CouponCode)
	assert.Equal(t, src.Currency, clone.Currency)
	assert.Equal(t, src.ShippingMethodHandle, clone.ShippingMethodHandle)

	// 标识和状态重新生成
	assert.Zero(t, clone.ID)
	assert.NotEmpty(t, clone.Number)
	assert.NotEqual(t, src.Number, clone.Number)
	assert.False(t, clone.IsCompleted)
	assert.Nil(t, clone.DateOrdered)

	// 行项目内容保真：数量 3 件、合计 30
	require.Len(t, clone.LineItems, 2)
	assert.Equal(t, 3, clone.TotalQty())
	assert.Equal(t, 30.0, clone.ItemTotal())
	assert.Equal(t, src.TotalQty(), clone.TotalQty())
	assert.Equal(t, src.ItemTotal(), clone.ItemTotal())

	// 行项目是新实体
	for _, li := range clone.LineItems {
		assert.Zero(t, li.ID)
		assert.Zero(t, li.OrderID)
	}
	assert.Equal(t, "L", clone.LineItems[0].Options["size"])
	assert.Equal(t, "gift", clone.LineItems[1].Note)
}

func TestLightClone_DoesNotMutateSource(t *testing.T) {
	src := newSourceOrder()
	clone := LightClone(src)

	clone.LineItems[0].Qty = 99
	clone.LineItems[0].Options["size"] = "XS"

	assert.Equal(t, 2, src.LineItems[0].Qty)
	assert.Equal(t, "L", src.LineItems[0].Options["size"])
	assert.Equal(t, uint64(100), src.ID)
	assert.True(t, src.IsCompleted)
}

func TestLightClone_UniqueNumbers(t *testing.T) {
	src := newSourceOrder()
	a := LightClone(src)
	b := LightClone(src)
	assert.NotEqual(t, a.Number, b.Number)
}
