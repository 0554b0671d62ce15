package biz

import (
	"context"
	"testing"
	"time"

	"xinyuan_tech/recurring-orders-service/internal/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteOrder_DerivesFromSpec(t *testing.T) {
	env := newTestEnv()
	env.orders.orders[20] = &Order{
		ID:         20,
		Number:     "original",
		CustomerID: 3,
		GatewayID:  2,
		Currency:   "USD",
		LineItems:  []*LineItem{{PurchasableID: 9, Qty: 1, SalePrice: 25}},
	}
	env.repo.records[20] = &RecurringOrder{
		OrderID: 20,
		Status:  constants.StatusActive,
		Spec: &Spec{
			RecurrenceInterval: "P1M",
			PaymentSourceID:    4,
		},
	}

	var notified []DerivedOrders
	env.events.OnDerivedOrders(func(ev DerivedOrders) {
		notified = append(notified, ev)
	})

	derived, err := env.uc.CompleteOrder(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, derived, 1)

	// 原订单已完成
	original, _ := env.orders.GetOrder(context.Background(), 20)
	assert.True(t, original.IsCompleted)

	// 派生订单是克隆出的新订单，也已完成
	derivedOrder, _ := env.orders.GetOrder(context.Background(), derived[0])
	require.NotNil(t, derivedOrder)
	assert.True(t, derivedOrder.IsCompleted)
	assert.NotEqual(t, "original", derivedOrder.Number)
	assert.Equal(t, uint64(3), derivedOrder.CustomerID)

	// 派生记录按 spec 初始化并指回源订单
	rec := env.repo.records[derived[0]]
	require.NotNil(t, rec)
	assert.Equal(t, uint64(20), rec.OriginatingOrderID)
	assert.True(t, rec.IsDerived())
	assert.Equal(t, constants.StatusActive, rec.Status)
	assert.Equal(t, int64(30*24*3600), rec.RecurrenceInterval)
	assert.Equal(t, uint64(4), rec.PaymentSourceID)
	require.NotNil(t, rec.NextRecurrence)
	assert.Equal(t, env.clock.now.Add(30*24*time.Hour), *rec.NextRecurrence)

	require.Len(t, notified, 1)
	assert.Equal(t, uint64(20), notified[0].OriginatingOrderID)
	assert.Equal(t, derived, notified[0].DerivedOrderIDs)
}

func TestCompleteOrder_AlreadyCompleted(t *testing.T) {
	env := newTestEnv()
	env.orders.orders[20] = &Order{ID: 20, IsCompleted: true}

	_, err := env.uc.CompleteOrder(context.Background(), 20)
	assert.Error(t, err)
}

func TestHandleOrderCompleted_EmptySpecNoDerivation(t *testing.T) {
	env := newTestEnv()
	env.orders.orders[20] = &Order{ID: 20}
	env.repo.records[20] = &RecurringOrder{OrderID: 20, Status: constants.StatusActive}

	derived, err := env.uc.HandleOrderCompleted(context.Background(), 20)
	require.NoError(t, err)
	assert.Empty(t, derived)
}

func TestHandleOrderCompleted_SkipsDerivedOrders(t *testing.T) {
	env := newTestEnv()
	env.orders.orders[21] = &Order{ID: 21}
	// 记录本身由 spec 派生而来，即使带 spec 也不再繁殖
	env.repo.records[21] = &RecurringOrder{
		OrderID:            21,
		Status:             constants.StatusActive,
		OriginatingOrderID: 20,
		Spec:               &Spec{RecurrenceInterval: "P1W"},
	}

	derived, err := env.uc.HandleOrderCompleted(context.Background(), 21)
	require.NoError(t, err)
	assert.Empty(t, derived)
}

func TestHandleOrderCompleted_SkipsGeneratedOrders(t *testing.T) {
	env := newTestEnv()
	env.orders.orders[22] = &Order{ID: 22}
	env.repo.records[22] = &RecurringOrder{
		OrderID:       22,
		Status:        constants.StatusActive,
		ParentOrderID: 1,
		Spec:          &Spec{RecurrenceInterval: "P1W"},
	}

	derived, err := env.uc.HandleOrderCompleted(context.Background(), 22)
	require.NoError(t, err)
	assert.Empty(t, derived)
}

func TestHandleOrderCompleted_SpecNextRecurrenceWins(t *testing.T) {
	env := newTestEnv()
	next := env.clock.now.Add(90 * 24 * time.Hour)
	env.orders.orders[20] = &Order{ID: 20}
	env.repo.records[20] = &RecurringOrder{
		OrderID: 20,
		Status:  constants.StatusActive,
		Spec: &Spec{
			RecurrenceInterval: "P1W",
			NextRecurrence:     &next,
		},
	}

	derived, err := env.uc.HandleOrderCompleted(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, derived, 1)

	rec := env.repo.records[derived[0]]
	require.NotNil(t, rec.NextRecurrence)
	assert.Equal(t, next, *rec.NextRecurrence)
}

func TestHandleOrderCompleted_MissingIntervalLeavesUnscheduled(t *testing.T) {
	env := newTestEnv()
	env.orders.orders[20] = &Order{ID: 20}
	env.repo.records[20] = &RecurringOrder{
		OrderID: 20,
		Status:  constants.StatusActive,
		Spec:    &Spec{Status: constants.StatusActive, PaymentSourceID: 4},
	}

	derived, err := env.uc.HandleOrderCompleted(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, derived, 1)

	rec := env.repo.records[derived[0]]
	assert.Nil(t, rec.NextRecurrence)
	assert.Equal(t, constants.StatusUnscheduled, rec.EffectiveStatus())
}
