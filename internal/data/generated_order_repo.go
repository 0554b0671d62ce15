package data

import (
	"context"
	"xinyuan_tech/recurring-orders-service/internal/biz"
	"xinyuan_tech/recurring-orders-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// generatedOrderRepo 生成订单关联仓库实现
type generatedOrderRepo struct {
	data *Data
	log  *log.Helper
}

// NewGeneratedOrderRepo 创建生成订单关联仓库
func NewGeneratedOrderRepo(data *Data, logger log.Logger) biz.GeneratedOrderRepo {
	return &generatedOrderRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// AddGeneratedOrder 记录一条父订单到生成订单的关联
func (r *generatedOrderRepo) AddGeneratedOrder(ctx context.Context, parentOrderID, orderID uint64) error {
	m := &model.GeneratedOrder{
		ParentOrderID: parentOrderID,
		OrderID:       orderID,
		UID:           uuid.NewString(),
	}
	if err := r.data.DB(ctx).Create(m).Error; err != nil {
		r.log.Errorf("Failed to add generated order %d for parent %d: %v", orderID, parentOrderID, err)
		return err
	}
	return nil
}

// ListGeneratedOrderIDs 获取父订单生成的全部订单 ID，按生成先后排序
func (r *generatedOrderRepo) ListGeneratedOrderIDs(ctx context.Context, parentOrderID uint64) ([]uint64, error) {
	var ids []uint64
	if err := r.data.DB(ctx).Model(&model.GeneratedOrder{}).
		Where("parent_order_id = ?", parentOrderID).
		Order("generated_order_id ASC").
		Pluck("order_id", &ids).Error; err != nil {
		r.log.Errorf("Failed to list generated orders for parent %d: %v", parentOrderID, err)
		return nil, err
	}
	return ids, nil
}
