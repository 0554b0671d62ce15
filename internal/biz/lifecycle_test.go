package biz

import (
	"context"
	"testing"
	"time"

	"xinyuan_tech/recurring-orders-service/internal/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeOrderRecurring_LazyCreation(t *testing.T) {
	env := newTestEnv()
	env.orders.orders[10] = &Order{ID: 10, Number: "n-10"}

	interval := "P1W"
	rec, err := env.uc.MakeOrderRecurring(context.Background(), 10, RecurrenceAttributes{
		Interval: &interval,
	}, true, 42)
	require.NoError(t, err)

	// 懒创建：状态默认 active，排期按 now + 间隔
	assert.Equal(t, constants.StatusActive, rec.Status)
	assert.Equal(t, int64(7*24*3600), rec.RecurrenceInterval)
	require.NotNil(t, rec.NextRecurrence)
	assert.Equal(t, env.clock.now.Add(7*24*time.Hour), *rec.NextRecurrence)

	saved, ok := env.repo.records[10]
	require.True(t, ok)
	assert.Equal(t, constants.StatusActive, saved.Status)
}

func TestMakeOrderRecurring_InvalidInterval(t *testing.T) {
	env := newTestEnv()
	env.orders.orders[10] = &Order{ID: 10}

	interval := "whenever"
	_, err := env.uc.MakeOrderRecurring(context.Background(), 10, RecurrenceAttributes{
		Interval: &interval,
	}, false, 0)
	assert.Error(t, err)

	// 验证失败时不落库
	_, ok := env.repo.records[10]
	assert.False(t, ok)
}

func TestMakeOrderRecurring_ResetWithoutInterval(t *testing.T) {
	env := newTestEnv()
	env.orders.orders[10] = &Order{ID: 10}

	_, err := env.uc.MakeOrderRecurring(context.Background(), 10, RecurrenceAttributes{}, true, 0)
	assert.Error(t, err)
}

func TestMakeOrderRecurring_OrderNotFound(t *testing.T) {
	env := newTestEnv()

	_, err := env.uc.MakeOrderRecurring(context.Background(), 999, RecurrenceAttributes{}, false, 0)
	assert.Error(t, err)
}

func TestMakeOrderRecurring_PartialUpdateKeepsFields(t *testing.T) {
	env := newTestEnv()
	env.addRecurringOrder(1)

	note := "vip customer"
	rec, err := env.uc.MakeOrderRecurring(context.Background(), 1, RecurrenceAttributes{
		Note: &note,
	}, false, 7)
	require.NoError(t, err)

	// 未指定的字段保持不变
	assert.Equal(t, "vip customer", rec.Note)
	assert.Equal(t, int64(86400), rec.RecurrenceInterval)
	assert.Equal(t, uint64(1), rec.PaymentSourceID)
}

func TestPauseResumeCancel(t *testing.T) {
	env := newTestEnv()
	env.addRecurringOrder(1)
	ctx := context.Background()

	require.NoError(t, env.uc.PauseRecurrence(ctx, 1, 0))
	assert.Equal(t, constants.StatusPaused, env.repo.records[1].Status)

	// 已暂停不能再暂停
	assert.Error(t, env.uc.PauseRecurrence(ctx, 1, 0))

	require.NoError(t, env.uc.ResumeRecurrence(ctx, 1, 0))
	assert.Equal(t, constants.StatusActive, env.repo.records[1].Status)

	// 活跃状态不能恢复
	assert.Error(t, env.uc.ResumeRecurrence(ctx, 1, 0))

	require.NoError(t, env.uc.CancelRecurrence(ctx, 1, 0))
	assert.Equal(t, constants.StatusCancelled, env.repo.records[1].Status)

	// 已取消不能再取消
	assert.Error(t, env.uc.CancelRecurrence(ctx, 1, 0))
}

func TestLifecycleWritesHoldOrderLock(t *testing.T) {
	env := newTestEnv()
	env.addRecurringOrder(1)

	require.NoError(t, env.uc.PauseRecurrence(context.Background(), 1, 0))

	// 用户操作和处理器竞争同一把订单锁
	assert.Equal(t, []string{constants.RecurrenceLockKeyPrefix + "1"}, env.locker.locked)
	assert.Equal(t, 1, env.locker.unlocks)
}

func TestLifecycleWritesRejectedWhileLocked(t *testing.T) {
	env := newTestEnv()
	env.addRecurringOrder(1)
	env.orders.orders[2] = &Order{ID: 2}
	env.locker.busy = true
	ctx := context.Background()

	// 处理器持锁期间（比如扣款进行中），用户改动直接报忙，
	// 不能落一个稍后会被成功回写覆盖的状态
	assert.Error(t, env.uc.PauseRecurrence(ctx, 1, 0))
	assert.Error(t, env.uc.ResumeRecurrence(ctx, 1, 0))
	assert.Error(t, env.uc.CancelRecurrence(ctx, 1, 0))
	assert.Error(t, env.uc.ResetRecurrenceErrors(ctx, 1, 0))
	assert.Error(t, env.uc.MarkOrderImminent(ctx, 1))
	_, err := env.uc.MakeOrderRecurring(ctx, 2, RecurrenceAttributes{}, false, 0)
	assert.Error(t, err)

	saved := env.repo.records[1]
	assert.Equal(t, constants.StatusActive, saved.Status)
	assert.Nil(t, saved.DateMarkedImminent)
	_, created := env.repo.records[2]
	assert.False(t, created)
}

func TestLifecycleOnNonRecurringOrder(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	assert.Error(t, env.uc.PauseRecurrence(ctx, 404, 0))
	assert.Error(t, env.uc.ResumeRecurrence(ctx, 404, 0))
	assert.Error(t, env.uc.CancelRecurrence(ctx, 404, 0))
	assert.Error(t, env.uc.ResetRecurrenceErrors(ctx, 404, 0))
}

func TestResetRecurrenceErrors(t *testing.T) {
	env := newTestEnv()
	rec := env.addRecurringOrder(1)
	retry := env.clock.now.Add(time.Hour)
	rec.Status = constants.StatusError
	rec.ErrorReason = constants.ErrorPaymentIssue
	rec.ErrorCount = 3
	rec.RetryDate = &retry

	require.NoError(t, env.uc.ResetRecurrenceErrors(context.Background(), 1, 9))

	saved := env.repo.records[1]
	assert.Equal(t, constants.StatusActive, saved.Status)
	assert.Empty(t, saved.ErrorReason)
	assert.Zero(t, saved.ErrorCount)
	assert.Nil(t, saved.RetryDate)
}

func TestMarkOrderImminent(t *testing.T) {
	env := newTestEnv()
	env.addRecurringOrder(1)

	var marked []uint64
	env.events.OnMarkedImminent(func(orderID uint64) {
		marked = append(marked, orderID)
	})

	require.NoError(t, env.uc.MarkOrderImminent(context.Background(), 1))
	saved := env.repo.records[1]
	require.NotNil(t, saved.DateMarkedImminent)
	assert.Equal(t, env.clock.now, *saved.DateMarkedImminent)
	assert.Equal(t, []uint64{1}, marked)

	// 幂等：重复标记不触发第二次通知
	require.NoError(t, env.uc.MarkOrderImminent(context.Background(), 1))
	assert.Len(t, marked, 1)
}

func TestListRecurrenceHistoryClampsPaging(t *testing.T) {
	env := newTestEnv()

	_, _, err := env.uc.ListRecurrenceHistory(context.Background(), 1, 0, 5000)
	require.NoError(t, err)
}
