package data

import (
	"context"
	"errors"
	"xinyuan_tech/recurring-orders-service/internal/biz"
	"xinyuan_tech/recurring-orders-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// paymentSourceRepo 支付方式仓库实现
type paymentSourceRepo struct {
	data *Data
	log  *log.Helper
}

// NewPaymentSourceStore 创建支付方式仓库
func NewPaymentSourceStore(data *Data, logger log.Logger) biz.PaymentSourceStore {
	return &paymentSourceRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// GetPaymentSource 获取支付方式，不存在时返回 (nil, nil)
func (r *paymentSourceRepo) GetPaymentSource(ctx context.Context, id uint64) (*biz.PaymentSource, error) {
	var m model.PaymentSource
	err := r.data.DB(ctx).Where("payment_source_id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		r.log.Errorf("Failed to get payment source %d: %v", id, err)
		return nil, err
	}
	return &biz.PaymentSource{
		ID:          m.ID,
		CustomerID:  m.CustomerID,
		GatewayID:   m.GatewayID,
		Token:       m.Token,
		Description: m.Description,
	}, nil
}
