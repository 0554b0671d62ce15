package data

import (
	"context"
	"encoding/json"
	"xinyuan_tech/recurring-orders-service/internal/biz"
	"xinyuan_tech/recurring-orders-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
)

// historyRepo 循环订单历史仓库实现
type historyRepo struct {
	data *Data
	log  *log.Helper
}

// NewRecurringOrderHistoryRepo 创建循环订单历史仓库
func NewRecurringOrderHistoryRepo(data *Data, logger log.Logger) biz.RecurringOrderHistoryRepo {
	return &historyRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// ListHistory 分页获取订单的循环历史，按时间倒序
func (r *historyRepo) ListHistory(ctx context.Context, orderID uint64, page, pageSize int) ([]*biz.RecurringOrderHistory, int, error) {
	var models []model.RecurringOrderHistory
	var total int64

	db := r.data.DB(ctx)

	// 获取总数
	if err := db.Model(&model.RecurringOrderHistory{}).Where("order_id = ?", orderID).Count(&total).Error; err != nil {
		r.log.Errorf("Failed to count history for order %d: %v", orderID, err)
		return nil, 0, err
	}

	// 分页查询
	offset := (page - 1) * pageSize
	if err := db.
		Where("order_id = ?", orderID).
		Order("created_at DESC, recurring_order_history_id DESC").
		Limit(pageSize).
		Offset(offset).
		Find(&models).Error; err != nil {
		r.log.Errorf("Failed to get history for order %d: %v", orderID, err)
		return nil, 0, err
	}

	// 转换为业务对象
	items := make([]*biz.RecurringOrderHistory, len(models))
	for i, m := range models {
		var attrs []string
		if m.UpdatedAttributes != "" {
			if err := json.Unmarshal([]byte(m.UpdatedAttributes), &attrs); err != nil {
				r.log.Warnf("Invalid updated attributes payload in history %d: %v", m.ID, err)
			}
		}
		item := &biz.RecurringOrderHistory{
			ID:                m.ID,
			OrderID:           m.OrderID,
			Status:            m.Status,
			ErrorReason:       m.ErrorReason,
			ErrorCount:        m.ErrorCount,
			Note:              m.Note,
			UpdatedByUserID:   m.UpdatedByUserID,
			UpdatedAttributes: attrs,
			CreatedAt:         m.CreatedAt,
		}
		if m.RecurrenceInterval != nil {
			item.RecurrenceInterval = *m.RecurrenceInterval
		}
		items[i] = item
	}

	return items, int(total), nil
}
