package biz

import (
	"context"

	"xinyuan_tech/recurring-orders-service/internal/constants"
	"xinyuan_tech/recurring-orders-service/internal/errors"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
)

// CompleteOrder 把订单标记为完成，并触发一次派生检查
func (uc *RecurringOrderUsecase) CompleteOrder(ctx context.Context, orderID uint64) ([]uint64, error) {
	order, err := uc.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeOrderNotFound)
	}
	if order.IsCompleted {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeOrderAlreadyCompleted)
	}

	if err := uc.orders.MarkOrderComplete(ctx, order); err != nil {
		return nil, err
	}

	return uc.HandleOrderCompleted(ctx, orderID)
}

// HandleOrderCompleted 订单首次完成后的派生检查
//
// 订单本身是派生的（有源订单）或者是生成的（有父订单）时直接跳过，
// 防止派生/生成订单无限繁殖。
func (uc *RecurringOrderUsecase) HandleOrderCompleted(ctx context.Context, orderID uint64) ([]uint64, error) {
	rec, err := uc.repo.GetRecurringOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if rec.IsDerived() || rec.IsGenerated() {
		return nil, nil
	}

	return uc.replicateAsRecurring(ctx, orderID, rec)
}

// replicateAsRecurring 按暂存的 spec 派生一个新的循环订单
func (uc *RecurringOrderUsecase) replicateAsRecurring(ctx context.Context, orderID uint64, rec *RecurringOrder) ([]uint64, error) {
	if rec == nil || rec.Spec.IsEmpty() {
		return nil, nil
	}
	spec := rec.Spec

	order, err := uc.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeOrderNotFound)
	}

	newOrder := LightClone(order)
	if err := uc.orders.SaveOrder(ctx, newOrder); err != nil {
		uc.log.Errorf("Failed to save derived order for originating order %d: %v", orderID, err)
		return nil, err
	}

	newRec := &RecurringOrder{
		OrderID:            newOrder.ID,
		OriginatingOrderID: orderID,
		Status:             spec.Status,
		PaymentSourceID:    spec.PaymentSourceID,
	}
	if newRec.Status == "" {
		newRec.Status = constants.StatusActive
	}

	if spec.RecurrenceInterval != "" {
		if d, err := NormalizeIntervalAt(spec.RecurrenceInterval, uc.clock.Now()); err == nil {
			newRec.RecurrenceInterval = SecondsOf(d)
		} else {
			uc.log.Errorf("Invalid spec interval %q on order %d: %v", spec.RecurrenceInterval, orderID, err)
		}
	}

	if spec.NextRecurrence != nil {
		next := *spec.NextRecurrence
		newRec.NextRecurrence = &next
	} else if err := newRec.ResetNextRecurrence(uc.clock.Now()); err != nil {
		// spec 没有给出下次执行时间而且间隔缺失，照旧保存为未排期
		uc.log.Errorf("Derived order %d left unscheduled: %v", newOrder.ID, err)
	}

	err = uc.tx.Exec(ctx, func(ctx context.Context) error {
		if err := uc.repo.SaveRecurringOrder(ctx, newRec, 0); err != nil {
			return err
		}
		return uc.orders.MarkOrderComplete(ctx, newOrder)
	})
	if err != nil {
		uc.log.Errorf("Failed to complete derived order %d: %v", newOrder.ID, err)
		return nil, err
	}

	derived := []uint64{newOrder.ID}
	uc.events.notifyDerivedOrders(DerivedOrders{
		OriginatingOrderID: orderID,
		DerivedOrderIDs:    derived,
	})

	uc.log.Infof("Derived recurring order %d from completed order %d", newOrder.ID, orderID)
	return derived, nil
}
