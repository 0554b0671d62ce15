package biz

import (
	"context"

	"xinyuan_tech/recurring-orders-service/internal/constants"
)

// ProcessEligibleRecurrences 批量处理所有此刻可以执行的循环
//
// 外部调度器（cron）调用；单个订单的失败不会中断整批。
func (uc *RecurringOrderUsecase) ProcessEligibleRecurrences(ctx context.Context, dryRun bool) (int, int, int, []*ProcessResult, error) {
	uc.log.Infof("Starting recurrence processing (dryRun=%v)", dryRun)

	now := uc.clock.Now()
	records, err := uc.repo.FindRecurringOrders(ctx, EligibleCriteria(now, uc.maxErrorCount))
	if err != nil {
		uc.log.Errorf("Failed to find eligible recurring orders: %v", err)
		return 0, 0, 0, nil, err
	}

	totalCount := len(records)
	successCount := 0
	failedCount := 0
	results := make([]*ProcessResult, 0, totalCount)

	for _, rec := range records {
		if dryRun {
			// 测试模式，只记录不执行
			uc.log.Infof("[DRY RUN] Would process recurrence for order %d", rec.OrderID)
			results = append(results, &ProcessResult{
				OrderID: rec.OrderID,
				Outcome: constants.OutcomeDryRun,
				Message: "dry run - not executed",
			})
			continue
		}

		result, err := uc.ProcessOrderRecurrence(ctx, rec.OrderID)
		if err != nil {
			uc.log.Errorf("Failed to process recurrence for order %d: %v", rec.OrderID, err)
			failedCount++
			results = append(results, &ProcessResult{
				OrderID: rec.OrderID,
				Outcome: constants.OutcomePersistenceFailure,
				Message: err.Error(),
			})
			continue
		}

		if result.Success() {
			successCount++
		} else if result.Outcome != constants.OutcomeLockBusy {
			failedCount++
		}
		results = append(results, result)
	}

	uc.log.Infof("Recurrence processing completed: total=%d, success=%d, failed=%d", totalCount, successCount, failedCount)
	return totalCount, successCount, failedCount, results, nil
}

// MarkImminentOrders 把进入临近窗口的循环订单打上软标记
func (uc *RecurringOrderUsecase) MarkImminentOrders(ctx context.Context) (int, error) {
	now := uc.clock.Now()
	windowEnd := now.Add(uc.imminenceInterval)

	hasSchedule := true
	notMarked := false
	records, err := uc.repo.FindRecurringOrders(ctx, &RecurrenceCriteria{
		Statuses:         []string{constants.StatusActive, constants.StatusError},
		HasSchedule:      &hasSchedule,
		MarkedImminent:   &notMarked,
		NextRecurrenceTo: &windowEnd,
	})
	if err != nil {
		uc.log.Errorf("Failed to find imminent recurring orders: %v", err)
		return 0, err
	}

	marked := 0
	for _, rec := range records {
		if err := uc.MarkOrderImminent(ctx, rec.OrderID); err != nil {
			uc.log.Errorf("Failed to mark order %d imminent: %v", rec.OrderID, err)
			continue
		}
		marked++
	}

	uc.log.Infof("Marked %d recurring orders imminent (window ends %s)", marked, windowEnd.Format("2006-01-02 15:04:05"))
	return marked, nil
}

// ListOutstandingRecurrences 获取排期已到的循环记录（旧口径，忽略错误闸门）
func (uc *RecurringOrderUsecase) ListOutstandingRecurrences(ctx context.Context) ([]*RecurringOrder, error) {
	return uc.repo.FindRecurringOrders(ctx, OutstandingCriteria(uc.clock.Now()))
}

// ListEligibleRecurrences 获取此刻可以处理的循环记录
func (uc *RecurringOrderUsecase) ListEligibleRecurrences(ctx context.Context) ([]*RecurringOrder, error) {
	return uc.repo.FindRecurringOrders(ctx, EligibleCriteria(uc.clock.Now(), uc.maxErrorCount))
}
