package biz

import (
	"context"
	"fmt"
	"time"

	"xinyuan_tech/recurring-orders-service/internal/constants"
	"xinyuan_tech/recurring-orders-service/internal/errors"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
)

// RecurrenceAttributes 对循环记录的一次属性写入，nil 字段不修改
type RecurrenceAttributes struct {
	Status          *string
	Interval        *string // 间隔表达式：秒数、ISO-8601 或相对时间
	NextRecurrence  *time.Time
	PaymentSourceID *uint64
	Note            *string
	Spec            *Spec
}

// GetRecurringOrder 获取订单的循环记录，不存在时返回 nil
func (uc *RecurringOrderUsecase) GetRecurringOrder(ctx context.Context, orderID uint64) (*RecurringOrder, error) {
	return uc.repo.GetRecurringOrder(ctx, orderID)
}

// lockRecord 获取订单级分布式锁
//
// 所有对循环记录的写入都必须持锁进行，否则用户操作可能和正在
// 扣款的处理器互相覆盖。抢不到锁直接报忙，由调用方重试。
func (uc *RecurringOrderUsecase) lockRecord(ctx context.Context, orderID uint64) (func(), error) {
	lockKey := fmt.Sprintf("%s%d", constants.RecurrenceLockKeyPrefix, orderID)
	unlock, err := uc.locker.TryLock(ctx, lockKey)
	if err != nil {
		uc.log.Infof("Recurring order %d is busy: %v", orderID, err)
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeRecurrenceBusy)
	}
	return unlock, nil
}

// MakeOrderRecurring 把订单设置为循环订单（记录不存在时懒创建）
func (uc *RecurringOrderUsecase) MakeOrderRecurring(ctx context.Context, orderID uint64, attrs RecurrenceAttributes, resetNextRecurrence bool, updatedByUserID uint64) (*RecurringOrder, error) {
	uc.log.Infof("MakeOrderRecurring: orderID=%d, reset=%v", orderID, resetNextRecurrence)

	order, err := uc.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeOrderNotFound)
	}

	unlock, err := uc.lockRecord(ctx, orderID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	rec, err := uc.repo.GetRecurringOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = &RecurringOrder{OrderID: orderID}
	}
	oldStatus := rec.Status

	// 未指定状态时默认 active
	if attrs.Status != nil {
		if !isKnownStatus(*attrs.Status) {
			return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeInvalidStatus)
		}
		rec.Status = *attrs.Status
	} else if rec.Status == "" {
		rec.Status = constants.StatusActive
	}

	if attrs.Interval != nil {
		d, err := NormalizeIntervalAt(*attrs.Interval, uc.clock.Now())
		if err != nil {
			return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeInvalidInterval)
		}
		rec.RecurrenceInterval = SecondsOf(d)
	}
	if attrs.NextRecurrence != nil {
		next := *attrs.NextRecurrence
		rec.NextRecurrence = &next
	}
	if attrs.PaymentSourceID != nil {
		rec.PaymentSourceID = *attrs.PaymentSourceID
	}
	if attrs.Note != nil {
		rec.Note = *attrs.Note
	}
	if attrs.Spec != nil {
		if attrs.Spec.RecurrenceInterval != "" && !IsValidInterval(attrs.Spec.RecurrenceInterval) {
			return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeInvalidInterval)
		}
		rec.Spec = attrs.Spec
	}

	if resetNextRecurrence {
		if err := rec.ResetNextRecurrence(uc.clock.Now()); err != nil {
			return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeMissingInterval)
		}
	}

	if err := uc.saveRecord(ctx, rec, oldStatus, updatedByUserID); err != nil {
		return nil, err
	}
	return rec, nil
}

// PauseRecurrence 暂停循环
func (uc *RecurringOrderUsecase) PauseRecurrence(ctx context.Context, orderID uint64, updatedByUserID uint64) error {
	uc.log.Infof("PauseRecurrence: orderID=%d", orderID)

	unlock, err := uc.lockRecord(ctx, orderID)
	if err != nil {
		return err
	}
	defer unlock()

	rec, err := uc.repo.GetRecurringOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if !rec.IsManaged() {
		return pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeNotRecurring)
	}

	// 只能暂停 active（含未排期）状态的循环
	if rec.Status != constants.StatusActive {
		return pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeCannotPauseStatus)
	}

	oldStatus := rec.Status
	rec.Status = constants.StatusPaused
	return uc.saveRecord(ctx, rec, oldStatus, updatedByUserID)
}

// ResumeRecurrence 恢复循环
func (uc *RecurringOrderUsecase) ResumeRecurrence(ctx context.Context, orderID uint64, updatedByUserID uint64) error {
	uc.log.Infof("ResumeRecurrence: orderID=%d", orderID)

	unlock, err := uc.lockRecord(ctx, orderID)
	if err != nil {
		return err
	}
	defer unlock()

	rec, err := uc.repo.GetRecurringOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if !rec.IsManaged() {
		return pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeNotRecurring)
	}

	// 只能恢复 paused 状态的循环
	if rec.Status != constants.StatusPaused {
		return pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeCannotResumeStatus)
	}

	oldStatus := rec.Status
	rec.Status = constants.StatusActive
	return uc.saveRecord(ctx, rec, oldStatus, updatedByUserID)
}

// CancelRecurrence 取消循环
func (uc *RecurringOrderUsecase) CancelRecurrence(ctx context.Context, orderID uint64, updatedByUserID uint64) error {
	uc.log.Infof("CancelRecurrence: orderID=%d", orderID)

	unlock, err := uc.lockRecord(ctx, orderID)
	if err != nil {
		return err
	}
	defer unlock()

	rec, err := uc.repo.GetRecurringOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if !rec.IsManaged() {
		return pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeNotRecurring)
	}

	// 已取消的循环不能再次取消
	if rec.Status == constants.StatusCancelled {
		return pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeCannotCancelStatus)
	}

	oldStatus := rec.Status
	rec.Status = constants.StatusCancelled
	return uc.saveRecord(ctx, rec, oldStatus, updatedByUserID)
}

// ResetRecurrenceErrors 人工复位错误状态，重新进入自动重试
func (uc *RecurringOrderUsecase) ResetRecurrenceErrors(ctx context.Context, orderID uint64, updatedByUserID uint64) error {
	uc.log.Infof("ResetRecurrenceErrors: orderID=%d", orderID)

	unlock, err := uc.lockRecord(ctx, orderID)
	if err != nil {
		return err
	}
	defer unlock()

	rec, err := uc.repo.GetRecurringOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if !rec.IsManaged() {
		return pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeNotRecurring)
	}

	oldStatus := rec.Status
	rec.Status = constants.StatusActive
	rec.ErrorReason = ""
	rec.ErrorCount = 0
	rec.RetryDate = nil
	return uc.saveRecord(ctx, rec, oldStatus, updatedByUserID)
}

// MarkOrderImminent 标记订单即将执行循环（软标记，通知用）
func (uc *RecurringOrderUsecase) MarkOrderImminent(ctx context.Context, orderID uint64) error {
	unlock, err := uc.lockRecord(ctx, orderID)
	if err != nil {
		return err
	}
	defer unlock()

	rec, err := uc.repo.GetRecurringOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if !rec.IsManaged() {
		return pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeNotRecurring)
	}
	if rec.IsMarkedImminent() {
		return nil // 幂等
	}

	now := uc.clock.Now()
	rec.DateMarkedImminent = &now
	if err := uc.saveRecord(ctx, rec, rec.Status, 0); err != nil {
		return err
	}

	uc.events.notifyMarkedImminent(orderID)
	return nil
}

// ListRecurringOrders 按条件查询循环记录
func (uc *RecurringOrderUsecase) ListRecurringOrders(ctx context.Context, criteria *RecurrenceCriteria) ([]*RecurringOrder, error) {
	return uc.repo.FindRecurringOrders(ctx, criteria)
}

// CountRecurringOrders 按条件统计循环记录
func (uc *RecurringOrderUsecase) CountRecurringOrders(ctx context.Context, criteria *RecurrenceCriteria) (int, error) {
	return uc.repo.CountRecurringOrders(ctx, criteria)
}

// ListRecurrenceHistory 获取循环订单历史记录
func (uc *RecurringOrderUsecase) ListRecurrenceHistory(ctx context.Context, orderID uint64, page, pageSize int) ([]*RecurringOrderHistory, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > constants.MaxPageSize {
		pageSize = constants.DefaultPageSize
	}
	return uc.historyRepo.ListHistory(ctx, orderID, page, pageSize)
}

// ListGeneratedOrderIDs 获取某订单所有生成订单的 ID
func (uc *RecurringOrderUsecase) ListGeneratedOrderIDs(ctx context.Context, parentOrderID uint64) ([]uint64, error) {
	return uc.generatedRepo.ListGeneratedOrderIDs(ctx, parentOrderID)
}

// ListDerivedOrders 获取某订单派生出的循环记录
func (uc *RecurringOrderUsecase) ListDerivedOrders(ctx context.Context, originatingOrderID uint64) ([]*RecurringOrder, error) {
	return uc.repo.FindRecurringOrders(ctx, &RecurrenceCriteria{OriginatingOrderID: originatingOrderID})
}

func isKnownStatus(status string) bool {
	switch status {
	case constants.StatusActive, constants.StatusPaused, constants.StatusCancelled, constants.StatusError:
		return true
	}
	return false
}
