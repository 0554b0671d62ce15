package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"xinyuan_tech/recurring-orders-service/internal/biz"
	"xinyuan_tech/recurring-orders-service/internal/constants"
	"xinyuan_tech/recurring-orders-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// recurringOrderRepo 循环订单记录仓库实现
type recurringOrderRepo struct {
	data *Data
	log  *log.Helper
}

// NewRecurringOrderRepo 创建循环订单记录仓库
func NewRecurringOrderRepo(data *Data, logger log.Logger) biz.RecurringOrderRepo {
	return &recurringOrderRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// GetRecurringOrder 获取订单的循环记录
//
// 记录不存在时返回未初始化的空白记录（状态为空），不报错。
// 订单第一次保存循环属性时才真正落库。
func (r *recurringOrderRepo) GetRecurringOrder(ctx context.Context, orderID uint64) (*biz.RecurringOrder, error) {
	var m model.RecurringOrder
	err := r.data.DB(ctx).Where("order_id = ?", orderID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &biz.RecurringOrder{OrderID: orderID}, nil
	}
	if err != nil {
		r.log.Errorf("Failed to get recurring order %d: %v", orderID, err)
		return nil, err
	}
	return toBizRecurringOrder(&m)
}

// SaveRecurringOrder 保存循环记录
//
// 被跟踪字段发生变化时追加一条历史快照，记录变化的字段名和操作人。
func (r *recurringOrderRepo) SaveRecurringOrder(ctx context.Context, rec *biz.RecurringOrder, updatedByUserID uint64) error {
	db := r.data.DB(ctx)

	var existing model.RecurringOrder
	err := db.Where("order_id = ?", rec.OrderID).First(&existing).Error
	isNew := errors.Is(err, gorm.ErrRecordNotFound)
	if err != nil && !isNew {
		r.log.Errorf("Failed to load recurring order %d before save: %v", rec.OrderID, err)
		return err
	}

	m, err := toModelRecurringOrder(rec)
	if err != nil {
		return err
	}
	if isNew {
		m.UID = uuid.NewString()
	} else {
		m.UID = existing.UID
		m.CreatedAt = existing.CreatedAt
	}

	var changed []string
	if isNew {
		changed = []string{"status", "errorReason", "errorCount", "recurrenceInterval", "note"}
	} else {
		changed = changedAttributes(&existing, m)
	}

	// order_id 是自然主键，新记录必须显式 Create，Save 只会按主键 UPDATE
	if isNew {
		err = db.Create(m).Error
	} else {
		err = db.Save(m).Error
	}
	if err != nil {
		r.log.Errorf("Failed to save recurring order %d: %v", rec.OrderID, err)
		return err
	}
	rec.CreatedAt = m.CreatedAt
	rec.UpdatedAt = m.UpdatedAt

	// 仅在有实际变化时写历史，避免无意义的快照
	if len(changed) == 0 {
		return nil
	}
	attrs, err := json.Marshal(changed)
	if err != nil {
		return err
	}
	h := &model.RecurringOrderHistory{
		OrderID:            rec.OrderID,
		Status:             rec.Status,
		ErrorReason:        rec.ErrorReason,
		ErrorCount:         rec.ErrorCount,
		RecurrenceInterval: m.RecurrenceInterval,
		Note:               rec.Note,
		UpdatedByUserID:    updatedByUserID,
		UpdatedAttributes:  string(attrs),
		UID:                uuid.NewString(),
	}
	if err := db.Create(h).Error; err != nil {
		r.log.Errorf("Failed to add history for recurring order %d: %v", rec.OrderID, err)
		return err
	}
	return nil
}

// FindRecurringOrders 按条件查询循环记录
func (r *recurringOrderRepo) FindRecurringOrders(ctx context.Context, criteria *biz.RecurrenceCriteria) ([]*biz.RecurringOrder, error) {
	var models []model.RecurringOrder
	query := applyCriteria(r.data.DB(ctx).Model(&model.RecurringOrder{}), criteria)
	if err := query.Order("order_id ASC").Find(&models).Error; err != nil {
		r.log.Errorf("Failed to find recurring orders: %v", err)
		return nil, err
	}

	records := make([]*biz.RecurringOrder, 0, len(models))
	for i := range models {
		rec, err := toBizRecurringOrder(&models[i])
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// CountRecurringOrders 按条件统计循环记录数量
func (r *recurringOrderRepo) CountRecurringOrders(ctx context.Context, criteria *biz.RecurrenceCriteria) (int, error) {
	var total int64
	query := applyCriteria(r.data.DB(ctx).Model(&model.RecurringOrder{}), criteria)
	if err := query.Count(&total).Error; err != nil {
		r.log.Errorf("Failed to count recurring orders: %v", err)
		return 0, err
	}
	return int(total), nil
}

// applyCriteria 把查询条件翻译成 SQL，口径与 biz.RecurrenceCriteria.Matches 一致
func applyCriteria(db *gorm.DB, c *biz.RecurrenceCriteria) *gorm.DB {
	if c == nil {
		return db
	}

	if c.HasStatus != nil {
		if *c.HasStatus {
			db = db.Where("status <> ''")
		} else {
			db = db.Where("status = ''")
		}
	}
	if c.HasSchedule != nil {
		if *c.HasSchedule {
			db = db.Where("recurrence_interval IS NOT NULL AND recurrence_interval > 0 AND next_recurrence IS NOT NULL")
		} else {
			db = db.Where("recurrence_interval IS NULL OR recurrence_interval <= 0 OR next_recurrence IS NULL")
		}
	}
	if len(c.Statuses) > 0 {
		db = db.Where("status IN ?", c.Statuses)
	}
	if len(c.ErrorReasons) > 0 {
		db = db.Where("error_reason IN ?", c.ErrorReasons)
	}
	if c.ErrorCount != nil {
		db = db.Where("error_count = ?", *c.ErrorCount)
	}
	if c.IntervalSeconds != nil {
		db = db.Where("recurrence_interval = ?", *c.IntervalSeconds)
	}

	if c.LastRecurrenceFrom != nil {
		db = db.Where("last_recurrence >= ?", *c.LastRecurrenceFrom)
	}
	if c.LastRecurrenceTo != nil {
		db = db.Where("last_recurrence < ?", *c.LastRecurrenceTo)
	}
	if c.NextRecurrenceFrom != nil {
		db = db.Where("next_recurrence >= ?", *c.NextRecurrenceFrom)
	}
	if c.NextRecurrenceTo != nil {
		db = db.Where("next_recurrence < ?", *c.NextRecurrenceTo)
	}
	if c.RetryDateTo != nil {
		db = db.Where("retry_date < ?", *c.RetryDateTo)
	}

	if c.MarkedImminent != nil {
		if *c.MarkedImminent {
			db = db.Where("date_marked_imminent IS NOT NULL")
		} else {
			db = db.Where("date_marked_imminent IS NULL")
		}
	}
	if c.DateMarkedImminentFrom != nil {
		db = db.Where("date_marked_imminent >= ?", *c.DateMarkedImminentFrom)
	}
	if c.DateMarkedImminentTo != nil {
		db = db.Where("date_marked_imminent < ?", *c.DateMarkedImminentTo)
	}

	if c.HasOriginatingOrder != nil {
		if *c.HasOriginatingOrder {
			db = db.Where("originating_order_id IS NOT NULL")
		} else {
			db = db.Where("originating_order_id IS NULL")
		}
	}
	if c.OriginatingOrderID != 0 {
		db = db.Where("originating_order_id = ?", c.OriginatingOrderID)
	}
	if c.HasParentOrder != nil {
		if *c.HasParentOrder {
			db = db.Where("parent_order_id IS NOT NULL")
		} else {
			db = db.Where("parent_order_id IS NULL")
		}
	}
	if c.ParentOrderID != 0 {
		db = db.Where("parent_order_id = ?", c.ParentOrderID)
	}

	if c.OutstandingAt != nil {
		db = db.Where("next_recurrence < ?", *c.OutstandingAt)
	}

	if c.EligibleAt != nil {
		now := *c.EligibleAt
		db = db.Where("status IN ?", []string{constants.StatusActive, constants.StatusError}).
			Where("next_recurrence < ?", now).
			Where("retry_date IS NULL OR retry_date < ?", now)
		if c.MaxErrorCount > 0 {
			db = db.Where("error_count < ?", c.MaxErrorCount)
		}
	}

	return db
}

// changedAttributes 比较被跟踪字段，返回发生变化的字段名
func changedAttributes(old, cur *model.RecurringOrder) []string {
	var changed []string
	if old.Status != cur.Status {
		changed = append(changed, "status")
	}
	if old.ErrorReason != cur.ErrorReason {
		changed = append(changed, "errorReason")
	}
	if old.ErrorCount != cur.ErrorCount {
		changed = append(changed, "errorCount")
	}
	if !int64PtrEqual(old.RecurrenceInterval, cur.RecurrenceInterval) {
		changed = append(changed, "recurrenceInterval")
	}
	if old.Note != cur.Note {
		changed = append(changed, "note")
	}
	return changed
}

func int64PtrEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func toBizRecurringOrder(m *model.RecurringOrder) (*biz.RecurringOrder, error) {
	rec := &biz.RecurringOrder{
		OrderID:            m.OrderID,
		Status:             m.Status,
		ErrorReason:        m.ErrorReason,
		ErrorCount:         m.ErrorCount,
		LastRecurrence:     m.LastRecurrence,
		NextRecurrence:     m.NextRecurrence,
		DateMarkedImminent: m.DateMarkedImminent,
		RetryDate:          m.RetryDate,
		Note:               m.Note,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
	if m.RecurrenceInterval != nil {
		rec.RecurrenceInterval = *m.RecurrenceInterval
	}
	if m.PaymentSourceID != nil {
		rec.PaymentSourceID = *m.PaymentSourceID
	}
	if m.OriginatingOrderID != nil {
		rec.OriginatingOrderID = *m.OriginatingOrderID
	}
	if m.ParentOrderID != nil {
		rec.ParentOrderID = *m.ParentOrderID
	}
	if m.Spec != "" {
		var spec biz.Spec
		if err := json.Unmarshal([]byte(m.Spec), &spec); err != nil {
			return nil, fmt.Errorf("invalid spec payload for order %d: %w", m.OrderID, err)
		}
		rec.Spec = &spec
	}
	return rec, nil
}

func toModelRecurringOrder(rec *biz.RecurringOrder) (*model.RecurringOrder, error) {
	m := &model.RecurringOrder{
		OrderID:            rec.OrderID,
		Status:             rec.Status,
		ErrorReason:        rec.ErrorReason,
		ErrorCount:         rec.ErrorCount,
		LastRecurrence:     rec.LastRecurrence,
		NextRecurrence:     rec.NextRecurrence,
		DateMarkedImminent: rec.DateMarkedImminent,
		RetryDate:          rec.RetryDate,
		Note:               rec.Note,
		CreatedAt:          rec.CreatedAt,
		UpdatedAt:          rec.UpdatedAt,
	}
	if rec.RecurrenceInterval > 0 {
		interval := rec.RecurrenceInterval
		m.RecurrenceInterval = &interval
	}
	if rec.PaymentSourceID != 0 {
		id := rec.PaymentSourceID
		m.PaymentSourceID = &id
	}
	if rec.OriginatingOrderID != 0 {
		id := rec.OriginatingOrderID
		m.OriginatingOrderID = &id
	}
	if rec.ParentOrderID != 0 {
		id := rec.ParentOrderID
		m.ParentOrderID = &id
	}
	if !rec.Spec.IsEmpty() {
		payload, err := json.Marshal(rec.Spec)
		if err != nil {
			return nil, err
		}
		m.Spec = string(payload)
	}
	return m, nil
}
