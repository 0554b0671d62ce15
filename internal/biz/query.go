package biz

import (
	"time"

	"xinyuan_tech/recurring-orders-service/internal/constants"
)

// RecurrenceCriteria 循环订单查询条件集合
//
// 指针字段为 nil 表示不过滤。数据层把它翻译成 SQL，
// Matches 是同一套谓词的内存版本，两边必须保持一致。
type RecurrenceCriteria struct {
	HasStatus   *bool
	HasSchedule *bool
	Statuses    []string

	ErrorReasons []string
	ErrorCount   *int

	IntervalSeconds *int64

	LastRecurrenceFrom *time.Time
	LastRecurrenceTo   *time.Time
	NextRecurrenceFrom *time.Time
	NextRecurrenceTo   *time.Time
	RetryDateTo        *time.Time

	MarkedImminent         *bool
	DateMarkedImminentFrom *time.Time
	DateMarkedImminentTo   *time.Time

	HasOriginatingOrder *bool
	OriginatingOrderID  uint64
	HasParentOrder      *bool
	ParentOrderID       uint64

	// OutstandingAt 过滤下次执行时间早于该时刻的记录（忽略错误状态的旧口径）
	OutstandingAt *time.Time

	// EligibleAt 过滤当前可以处理的记录，与处理器的准入检查同口径
	EligibleAt *time.Time
	// MaxErrorCount 连续失败上限，0 表示不限制，仅与 EligibleAt 联用
	MaxErrorCount int
}

// EligibleCriteria 构造“可以处理”的复合查询条件
func EligibleCriteria(now time.Time, maxErrorCount int) *RecurrenceCriteria {
	return &RecurrenceCriteria{
		EligibleAt:    &now,
		MaxErrorCount: maxErrorCount,
	}
}

// OutstandingCriteria 构造“排期已到”的复合查询条件
func OutstandingCriteria(now time.Time) *RecurrenceCriteria {
	return &RecurrenceCriteria{
		OutstandingAt: &now,
	}
}

// IsEligible 判断一条记录此刻是否可以进入循环处理
//
// 状态是 active 或 error，下次执行时间已过，重试时间（如果有）已过，
// 且连续失败次数未达到上限（如果配置了上限）。
func IsEligible(rec *RecurringOrder, now time.Time, maxErrorCount int) bool {
	if rec == nil {
		return false
	}
	if rec.Status != constants.StatusActive && rec.Status != constants.StatusError {
		return false
	}
	if rec.NextRecurrence == nil || !rec.NextRecurrence.Before(now) {
		return false
	}
	if rec.RetryDate != nil && !rec.RetryDate.Before(now) {
		return false
	}
	if maxErrorCount > 0 && rec.ErrorCount >= maxErrorCount {
		return false
	}
	return true
}

// Matches 判断一条记录是否满足全部查询条件（与数据层 SQL 同口径）
func (c *RecurrenceCriteria) Matches(rec *RecurringOrder) bool {
	if rec == nil {
		return false
	}

	if c.HasStatus != nil && (rec.Status != "") != *c.HasStatus {
		return false
	}
	if c.HasSchedule != nil && rec.HasSchedule() != *c.HasSchedule {
		return false
	}
	if len(c.Statuses) > 0 && !containsString(c.Statuses, rec.Status) {
		return false
	}
	if len(c.ErrorReasons) > 0 && !containsString(c.ErrorReasons, rec.ErrorReason) {
		return false
	}
	if c.ErrorCount != nil && rec.ErrorCount != *c.ErrorCount {
		return false
	}
	if c.IntervalSeconds != nil && rec.RecurrenceInterval != *c.IntervalSeconds {
		return false
	}

	if !matchTimeRange(rec.LastRecurrence, c.LastRecurrenceFrom, c.LastRecurrenceTo) {
		return false
	}
	if !matchTimeRange(rec.NextRecurrence, c.NextRecurrenceFrom, c.NextRecurrenceTo) {
		return false
	}
	if c.RetryDateTo != nil && (rec.RetryDate == nil || !rec.RetryDate.Before(*c.RetryDateTo)) {
		return false
	}

	if c.MarkedImminent != nil && rec.IsMarkedImminent() != *c.MarkedImminent {
		return false
	}
	if !matchTimeRange(rec.DateMarkedImminent, c.DateMarkedImminentFrom, c.DateMarkedImminentTo) {
		return false
	}

	if c.HasOriginatingOrder != nil && rec.IsDerived() != *c.HasOriginatingOrder {
		return false
	}
	if c.OriginatingOrderID != 0 && rec.OriginatingOrderID != c.OriginatingOrderID {
		return false
	}
	if c.HasParentOrder != nil && rec.IsGenerated() != *c.HasParentOrder {
		return false
	}
	if c.ParentOrderID != 0 && rec.ParentOrderID != c.ParentOrderID {
		return false
	}

	if c.OutstandingAt != nil {
		if rec.NextRecurrence == nil || !rec.NextRecurrence.Before(*c.OutstandingAt) {
			return false
		}
	}
	if c.EligibleAt != nil && !IsEligible(rec, *c.EligibleAt, c.MaxErrorCount) {
		return false
	}

	return true
}

func containsString(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

func matchTimeRange(t, from, to *time.Time) bool {
	if from != nil && (t == nil || t.Before(*from)) {
		return false
	}
	if to != nil && (t == nil || !t.Before(*to)) {
		return false
	}
	return true
}
