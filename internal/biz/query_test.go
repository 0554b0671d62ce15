package biz

import (
	"testing"
	"time"

	"xinyuan_tech/recurring-orders-service/internal/constants"

	"github.com/stretchr/testify/assert"
)

func TestIsEligible(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		rec  *RecurringOrder
		max  int
		want bool
	}{
		{
			name: "active and due",
			rec:  &RecurringOrder{Status: constants.StatusActive, NextRecurrence: &past},
			want: true,
		},
		{
			name: "error and due with retry passed",
			rec:  &RecurringOrder{Status: constants.StatusError, NextRecurrence: &past, RetryDate: &past, ErrorCount: 1},
			max:  3,
			want: true,
		},
		{
			name: "not due yet",
			rec:  &RecurringOrder{Status: constants.StatusActive, NextRecurrence: &future},
			want: false,
		},
		{
			name: "no schedule",
			rec:  &RecurringOrder{Status: constants.StatusActive},
			want: false,
		},
		{
			name: "retry gate holds",
			rec:  &RecurringOrder{Status: constants.StatusError, NextRecurrence: &past, RetryDate: &future},
			want: false,
		},
		{
			name: "error count at limit",
			rec:  &RecurringOrder{Status: constants.StatusError, NextRecurrence: &past, ErrorCount: 3},
			max:  3,
			want: false,
		},
		{
			name: "error count unlimited when max is zero",
			rec:  &RecurringOrder{Status: constants.StatusError, NextRecurrence: &past, ErrorCount: 50},
			max:  0,
			want: true,
		},
		{
			name: "paused never eligible",
			rec:  &RecurringOrder{Status: constants.StatusPaused, NextRecurrence: &past},
			want: false,
		},
		{
			name: "cancelled never eligible",
			rec:  &RecurringOrder{Status: constants.StatusCancelled, NextRecurrence: &past},
			want: false,
		},
		{
			name: "nil record",
			rec:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsEligible(tt.rec, now, tt.max))
		})
	}
}

// EligibleCriteria.Matches 必须与 IsEligible 同口径
func TestEligibleCriteriaMatchesIsEligible(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	maxErrors := 3

	records := []*RecurringOrder{
		{Status: constants.StatusActive, NextRecurrence: &past},
		{Status: constants.StatusActive, NextRecurrence: &future},
		{Status: constants.StatusError, NextRecurrence: &past, RetryDate: &future},
		{Status: constants.StatusError, NextRecurrence: &past, RetryDate: &past, ErrorCount: 2},
		{Status: constants.StatusError, NextRecurrence: &past, ErrorCount: 3},
		{Status: constants.StatusPaused, NextRecurrence: &past},
		{Status: constants.StatusActive},
	}

	criteria := EligibleCriteria(now, maxErrors)
	for i, rec := range records {
		assert.Equal(t, IsEligible(rec, now, maxErrors), criteria.Matches(rec), "record %d", i)
	}
}

func TestCriteriaMatches(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	boolTrue := true
	boolFalse := false

	rec := &RecurringOrder{
		OrderID:            1,
		Status:             constants.StatusActive,
		RecurrenceInterval: 86400,
		NextRecurrence:     &past,
		OriginatingOrderID: 5,
	}

	t.Run("status filter", func(t *testing.T) {
		assert.True(t, (&RecurrenceCriteria{Statuses: []string{constants.StatusActive}}).Matches(rec))
		assert.False(t, (&RecurrenceCriteria{Statuses: []string{constants.StatusPaused}}).Matches(rec))
	})

	t.Run("has schedule", func(t *testing.T) {
		assert.True(t, (&RecurrenceCriteria{HasSchedule: &boolTrue}).Matches(rec))
		assert.False(t, (&RecurrenceCriteria{HasSchedule: &boolFalse}).Matches(rec))

		unscheduled := &RecurringOrder{OrderID: 2, Status: constants.StatusActive}
		assert.False(t, (&RecurrenceCriteria{HasSchedule: &boolTrue}).Matches(unscheduled))
	})

	t.Run("marked imminent", func(t *testing.T) {
		assert.True(t, (&RecurrenceCriteria{MarkedImminent: &boolFalse}).Matches(rec))

		marked := *rec
		marked.DateMarkedImminent = &now
		assert.True(t, (&RecurrenceCriteria{MarkedImminent: &boolTrue}).Matches(&marked))
	})

	t.Run("lineage", func(t *testing.T) {
		assert.True(t, (&RecurrenceCriteria{HasOriginatingOrder: &boolTrue}).Matches(rec))
		assert.True(t, (&RecurrenceCriteria{OriginatingOrderID: 5}).Matches(rec))
		assert.False(t, (&RecurrenceCriteria{OriginatingOrderID: 6}).Matches(rec))
		assert.False(t, (&RecurrenceCriteria{HasParentOrder: &boolTrue}).Matches(rec))
	})

	t.Run("time ranges", func(t *testing.T) {
		from := now.Add(-2 * time.Hour)
		to := now
		assert.True(t, (&RecurrenceCriteria{NextRecurrenceFrom: &from, NextRecurrenceTo: &to}).Matches(rec))

		lateFrom := now.Add(-30 * time.Minute)
		assert.False(t, (&RecurrenceCriteria{NextRecurrenceFrom: &lateFrom}).Matches(rec))
	})

	t.Run("outstanding", func(t *testing.T) {
		assert.True(t, OutstandingCriteria(now).Matches(rec))
		early := now.Add(-2 * time.Hour)
		assert.False(t, OutstandingCriteria(early).Matches(rec))
	})
}
