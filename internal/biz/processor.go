package biz

import (
	"context"
	"fmt"
	"time"

	"xinyuan_tech/recurring-orders-service/internal/conf"
	"xinyuan_tech/recurring-orders-service/internal/constants"
	"xinyuan_tech/recurring-orders-service/internal/errors"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/go-kratos/kratos/v2/log"
)

// ProcessResult 单次循环处理的结果
type ProcessResult struct {
	OrderID          uint64
	Outcome          string
	GeneratedOrderID uint64
	ErrorReason      string
	Message          string
}

// Success 本次处理是否成功
func (r *ProcessResult) Success() bool {
	return r.Outcome == constants.OutcomeSuccess
}

// RecurringOrderUsecase 循环订单业务逻辑
type RecurringOrderUsecase struct {
	repo          RecurringOrderRepo
	historyRepo   RecurringOrderHistoryRepo
	generatedRepo GeneratedOrderRepo
	orders        OrderStore
	sources       PaymentSourceStore
	gateway       PaymentGateway
	tx            Transaction
	locker        Locker
	clock         Clock
	events        *Events
	log           *log.Helper

	retryInterval     time.Duration
	imminenceInterval time.Duration
	chargeTimeout     time.Duration
	maxErrorCount     int
}

// NewRecurringOrderUsecase 创建循环订单业务用例
func NewRecurringOrderUsecase(
	repo RecurringOrderRepo,
	historyRepo RecurringOrderHistoryRepo,
	generatedRepo GeneratedOrderRepo,
	orders OrderStore,
	sources PaymentSourceStore,
	gateway PaymentGateway,
	tx Transaction,
	locker Locker,
	clock Clock,
	events *Events,
	c *conf.Bootstrap,
	logger log.Logger,
) *RecurringOrderUsecase {
	uc := &RecurringOrderUsecase{
		repo:          repo,
		historyRepo:   historyRepo,
		generatedRepo: generatedRepo,
		orders:        orders,
		sources:       sources,
		gateway:       gateway,
		tx:            tx,
		locker:        locker,
		clock:         clock,
		events:        events,
		log:           log.NewHelper(logger),

		retryInterval:     mustInterval(constants.DefaultRetryInterval),
		imminenceInterval: mustInterval(constants.DefaultImminenceInterval),
		chargeTimeout:     constants.DefaultChargeTimeout,
	}

	if c != nil && c.RecurringOrders != nil {
		ro := c.RecurringOrders
		if d, err := NormalizeInterval(ro.RetryInterval); err == nil {
			uc.retryInterval = d
		}
		if d, err := NormalizeInterval(ro.ImminenceInterval); err == nil {
			uc.imminenceInterval = d
		}
		if d, err := time.ParseDuration(ro.ChargeTimeout); err == nil && d > 0 {
			uc.chargeTimeout = d
		}
		uc.maxErrorCount = ro.MaxErrorCount
	}

	return uc
}

// ProcessOrderRecurrence 处理一次订单循环
//
// 在分布式锁内完成：准入检查、克隆订单、扣款、记录结果。
// 扣款是唯一有外部副作用（资金流动）的操作，不会被盲目重试；
// 扣款成功但结果落库失败时返回独立的 unrecordedSuccess 结果。
func (uc *RecurringOrderUsecase) ProcessOrderRecurrence(ctx context.Context, orderID uint64) (*ProcessResult, error) {
	result := &ProcessResult{OrderID: orderID}

	// 使用分布式锁防止并发进程对同一订单重复扣款
	lockKey := fmt.Sprintf("%s%d", constants.RecurrenceLockKeyPrefix, orderID)
	unlock, err := uc.locker.TryLock(ctx, lockKey)
	if err != nil {
		result.Outcome = constants.OutcomeLockBusy
		result.Message = "failed to acquire lock or already processing"
		uc.log.Infof("Skipping recurrence for order %d: lock busy or already processing", orderID)
		return result, nil
	}
	defer unlock()

	// 锁内重新读取记录，防止拿锁前的状态已经过期
	parentOrder, err := uc.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if parentOrder == nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeOrderNotFound)
	}

	rec, err := uc.repo.GetRecurringOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	// 准入检查：没有循环排期是调用方错误，不产生任何状态变更
	if !rec.IsManaged() || !rec.HasSchedule() {
		result.Outcome = constants.OutcomeNotRecurring
		result.Message = "order has no recurrence schedule"
		return result, nil
	}

	// 连续失败达到上限后不再自动重试，等待人工复位
	if rec.Status == constants.StatusError && uc.maxErrorCount > 0 && rec.ErrorCount >= uc.maxErrorCount {
		result.Outcome = constants.OutcomeErrorLimitReached
		result.Message = fmt.Sprintf("error count %d reached the configured limit %d", rec.ErrorCount, uc.maxErrorCount)
		return result, nil
	}

	// 解析支付方式
	var source *PaymentSource
	if rec.PaymentSourceID != 0 {
		source, err = uc.sources.GetPaymentSource(ctx, rec.PaymentSourceID)
		if err != nil {
			uc.log.Errorf("Failed to get payment source %d for order %d: %v", rec.PaymentSourceID, orderID, err)
		}
	}
	if source == nil {
		if err := uc.recordError(ctx, rec, constants.ErrorNoPaymentSource); err != nil {
			return nil, err
		}
		result.Outcome = constants.OutcomeNoPaymentSource
		result.ErrorReason = constants.ErrorNoPaymentSource
		result.Message = "recurrence payment source is missing"
		return result, nil
	}

	// 克隆父订单并建立血缘
	newOrder := LightClone(parentOrder)
	newOrder.PaymentSourceID = source.ID
	newOrder.GatewayID = source.GatewayID

	if err := uc.orders.SaveOrder(ctx, newOrder); err != nil {
		uc.log.Errorf("Failed to save generated order for parent %d: %v", orderID, err)
		if err := uc.recordError(ctx, rec, constants.ErrorUnknown); err != nil {
			return nil, err
		}
		result.Outcome = constants.OutcomePersistenceFailure
		result.ErrorReason = constants.ErrorUnknown
		result.Message = "could not save the generated order"
		return result, nil
	}
	result.GeneratedOrderID = newOrder.ID

	if err := uc.saveGeneratedRecord(ctx, newOrder.ID, orderID); err != nil {
		uc.log.Errorf("Failed to link generated order %d to parent %d: %v", newOrder.ID, orderID, err)
		if err := uc.recordError(ctx, rec, constants.ErrorUnknown); err != nil {
			return nil, err
		}
		result.Outcome = constants.OutcomePersistenceFailure
		result.ErrorReason = constants.ErrorUnknown
		result.Message = "could not link the generated order"
		return result, nil
	}

	// 扣款，带显式超时；超时按支付失败处理（结果不明时不能按成功记账）
	form := uc.gateway.BuildPaymentForm(source)
	chargeCtx, cancel := context.WithTimeout(ctx, uc.chargeTimeout)
	err = uc.gateway.Charge(chargeCtx, newOrder, form)
	cancel()
	if err != nil {
		uc.log.Errorf("Failed to charge generated order %d (parent %d): %v", newOrder.ID, orderID, err)
		if err := uc.recordError(ctx, rec, constants.ErrorPaymentIssue); err != nil {
			return nil, err
		}
		result.Outcome = constants.OutcomePaymentIssue
		result.ErrorReason = constants.ErrorPaymentIssue
		result.Message = "could not process payment for the generated order"
		return result, nil
	}

	// 成功记账：完成生成订单 + 父记录复位，放在同一个事务里
	err = uc.tx.Exec(ctx, func(ctx context.Context) error {
		if err := uc.orders.MarkOrderComplete(ctx, newOrder); err != nil {
			return err
		}
		return uc.recordSuccess(ctx, rec)
	})
	if err != nil {
		// 扣款已经成功，这里绝不能记一次循环失败去重新武装重试闸门，
		// 否则下一轮会再扣一次款。留给人工对账。
		uc.log.Errorf("CHARGE SUCCEEDED but bookkeeping failed for order %d (generated order %d): %v", orderID, newOrder.ID, err)
		result.Outcome = constants.OutcomeUnrecordedSuccess
		result.Message = "payment succeeded but the result could not be recorded; manual reconciliation required"
		return result, nil
	}

	result.Outcome = constants.OutcomeSuccess
	uc.log.Infof("Processed recurrence for order %d: generated order %d", orderID, newOrder.ID)
	return result, nil
}

// recordSuccess 记录一次成功的循环：复位错误状态并把排期推进一个周期
//
// 幂等，记录已经是 active 时重复调用效果一致。
func (uc *RecurringOrderUsecase) recordSuccess(ctx context.Context, rec *RecurringOrder) error {
	now := uc.clock.Now()
	oldStatus := rec.Status

	rec.Status = constants.StatusActive
	rec.ErrorReason = ""
	rec.ErrorCount = 0
	rec.RetryDate = nil
	rec.LastRecurrence = &now
	rec.DateMarkedImminent = nil
	if err := rec.ResetNextRecurrence(now); err != nil {
		return err
	}

	return uc.saveRecord(ctx, rec, oldStatus, 0)
}

// recordError 记录一次失败的循环
//
// 不清除 nextRecurrence：失败的排期保持原位，依靠 retryDate（时间闸门）
// 和 errorCount 上限（次数闸门）控制下一次尝试。
func (uc *RecurringOrderUsecase) recordError(ctx context.Context, rec *RecurringOrder, reason string) error {
	now := uc.clock.Now()
	oldStatus := rec.Status

	retryDate := now.Add(uc.retryInterval)
	rec.Status = constants.StatusError
	rec.ErrorReason = reason
	rec.ErrorCount++
	rec.RetryDate = &retryDate

	return uc.saveRecord(ctx, rec, oldStatus, 0)
}

// saveRecord 保存记录并在状态变化时通知订阅者
func (uc *RecurringOrderUsecase) saveRecord(ctx context.Context, rec *RecurringOrder, oldStatus string, updatedByUserID uint64) error {
	if err := uc.repo.SaveRecurringOrder(ctx, rec, updatedByUserID); err != nil {
		return err
	}
	if rec.Status != oldStatus {
		uc.events.notifyStatusChange(StatusChange{
			OrderID:   rec.OrderID,
			OldStatus: oldStatus,
			NewStatus: rec.Status,
		})
	}
	return nil
}

func (uc *RecurringOrderUsecase) saveGeneratedRecord(ctx context.Context, generatedOrderID, parentOrderID uint64) error {
	genRec := &RecurringOrder{
		OrderID:       generatedOrderID,
		ParentOrderID: parentOrderID,
	}
	if err := uc.repo.SaveRecurringOrder(ctx, genRec, 0); err != nil {
		return err
	}
	return uc.generatedRepo.AddGeneratedOrder(ctx, parentOrderID, generatedOrderID)
}

func mustInterval(value string) time.Duration {
	d, err := NormalizeInterval(value)
	if err != nil {
		panic(err)
	}
	return d
}
