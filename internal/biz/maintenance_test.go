package biz

import (
	"context"
	"testing"
	"time"

	"xinyuan_tech/recurring-orders-service/internal/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessEligibleRecurrences(t *testing.T) {
	env := newTestEnv()
	env.addRecurringOrder(1)
	env.addRecurringOrder(2)

	// 订单 3 的排期还没到，不应被处理
	future := env.clock.now.Add(time.Hour)
	env.repo.records[3] = &RecurringOrder{
		OrderID:            3,
		Status:             constants.StatusActive,
		RecurrenceInterval: 86400,
		NextRecurrence:     &future,
	}

	total, success, failed, results, err := env.uc.ProcessEligibleRecurrences(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, 2, success)
	assert.Zero(t, failed)
	assert.Len(t, results, 2)
}

func TestProcessEligibleRecurrences_DryRun(t *testing.T) {
	env := newTestEnv()
	env.addRecurringOrder(1)

	total, success, failed, results, err := env.uc.ProcessEligibleRecurrences(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Zero(t, success)
	assert.Zero(t, failed)
	require.Len(t, results, 1)

	// 测试模式的结果不能冒充成功
	assert.Equal(t, constants.OutcomeDryRun, results[0].Outcome)
	assert.False(t, results[0].Success())

	// 测试模式不触碰任何东西
	assert.Empty(t, env.gateway.chargedForms)
	assert.Equal(t, constants.StatusActive, env.repo.records[1].Status)
}

func TestProcessEligibleRecurrences_RetryGate(t *testing.T) {
	env := newTestEnv()
	rec := env.addRecurringOrder(1)
	retry := env.clock.now.Add(time.Hour)
	rec.Status = constants.StatusError
	rec.ErrorCount = 1
	rec.RetryDate = &retry

	// 重试时间未到，记录不在可处理集合里
	total, _, _, _, err := env.uc.ProcessEligibleRecurrences(context.Background(), false)
	require.NoError(t, err)
	assert.Zero(t, total)

	// 重试时间已过则恢复可处理
	past := env.clock.now.Add(-time.Minute)
	rec.RetryDate = &past
	total, success, _, _, err := env.uc.ProcessEligibleRecurrences(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, success)
}

func TestProcessEligibleRecurrences_ErrorLimitGate(t *testing.T) {
	env := newTestEnv()
	rec := env.addRecurringOrder(1)
	rec.Status = constants.StatusError
	rec.ErrorCount = 3 // 上限是 3

	total, _, _, _, err := env.uc.ProcessEligibleRecurrences(context.Background(), false)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestProcessEligibleRecurrences_SkipsPausedAndCancelled(t *testing.T) {
	env := newTestEnv()
	rec1 := env.addRecurringOrder(1)
	rec1.Status = constants.StatusPaused
	rec2 := env.addRecurringOrder(2)
	rec2.Status = constants.StatusCancelled

	total, _, _, _, err := env.uc.ProcessEligibleRecurrences(context.Background(), false)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestMarkImminentOrders(t *testing.T) {
	env := newTestEnv()

	// 窗口内（一周）的排期应被标记
	soon := env.clock.now.Add(2 * 24 * time.Hour)
	env.repo.records[1] = &RecurringOrder{
		OrderID:            1,
		Status:             constants.StatusActive,
		RecurrenceInterval: 86400,
		NextRecurrence:     &soon,
	}

	// 窗口外的不标记
	far := env.clock.now.Add(30 * 24 * time.Hour)
	env.repo.records[2] = &RecurringOrder{
		OrderID:            2,
		Status:             constants.StatusActive,
		RecurrenceInterval: 86400,
		NextRecurrence:     &far,
	}

	// 已标记过的不重复标记
	marked := env.clock.now.Add(-24 * time.Hour)
	env.repo.records[3] = &RecurringOrder{
		OrderID:            3,
		Status:             constants.StatusActive,
		RecurrenceInterval: 86400,
		NextRecurrence:     &soon,
		DateMarkedImminent: &marked,
	}

	count, err := env.uc.MarkImminentOrders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	assert.NotNil(t, env.repo.records[1].DateMarkedImminent)
	assert.Nil(t, env.repo.records[2].DateMarkedImminent)
	assert.Equal(t, marked, *env.repo.records[3].DateMarkedImminent)
}

func TestListEligibleAndOutstanding(t *testing.T) {
	env := newTestEnv()

	past := env.clock.now.Add(-time.Hour)
	retry := env.clock.now.Add(time.Hour)
	// 排期已到但重试时间未到：outstanding 包含，eligible 不包含
	env.repo.records[1] = &RecurringOrder{
		OrderID:            1,
		Status:             constants.StatusError,
		RecurrenceInterval: 86400,
		NextRecurrence:     &past,
		RetryDate:          &retry,
		ErrorCount:         1,
	}

	outstanding, err := env.uc.ListOutstandingRecurrences(context.Background())
	require.NoError(t, err)
	assert.Len(t, outstanding, 1)

	eligible, err := env.uc.ListEligibleRecurrences(context.Background())
	require.NoError(t, err)
	assert.Empty(t, eligible)
}
