package biz

import (
	"context"
	"errors"
	"time"

	"xinyuan_tech/recurring-orders-service/internal/constants"
)

// ErrMissingInterval 未设置循环间隔，无法计算下次执行时间
var ErrMissingInterval = errors.New("recurrence interval is not set")

// RecurringOrder 一条循环订单记录（与订单 1:1，按订单 ID 关联）
//
// 订单第一次写入循环属性时才懒创建；没有记录就表示“非循环订单”。
type RecurringOrder struct {
	OrderID            uint64
	Status             string // active, paused, cancelled, error（unscheduled 为派生状态，不落库）
	ErrorReason        string
	ErrorCount         int
	RecurrenceInterval int64 // 秒数，0 表示未设置
	LastRecurrence     *time.Time
	NextRecurrence     *time.Time
	DateMarkedImminent *time.Time
	RetryDate          *time.Time
	PaymentSourceID    uint64 // 0 表示未设置
	Note               string
	Spec               *Spec
	OriginatingOrderID uint64 // 由 spec 派生而来时指向源订单
	ParentOrderID      uint64 // 由某次循环处理生成时指向父订单
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Spec 暂存的未来排期描述，原始订单完成后据此派生一个新的循环订单
type Spec struct {
	Status             string     `json:"status,omitempty"`
	RecurrenceInterval string     `json:"recurrenceInterval,omitempty"`
	NextRecurrence     *time.Time `json:"nextRecurrence,omitempty"`
	PaymentSourceID    uint64     `json:"paymentSourceId,omitempty"`
}

// IsEmpty 判断 spec 是否为空白（空白 spec 不派生订单）
func (s *Spec) IsEmpty() bool {
	if s == nil {
		return true
	}
	return s.Status == "" && s.RecurrenceInterval == "" && s.NextRecurrence == nil && s.PaymentSourceID == 0
}

// EffectiveStatus 返回对外展示的状态
//
// 记录可以是 active 状态但排期还没设置好，这时对外展示为 unscheduled。
// 这是纯展示口径，永远不落库。
func (r *RecurringOrder) EffectiveStatus() string {
	if r.Status == constants.StatusActive && !r.HasSchedule() {
		return constants.StatusUnscheduled
	}
	return r.Status
}

// HasSchedule 循环间隔和下次执行时间是否都已设置
func (r *RecurringOrder) HasSchedule() bool {
	return r.RecurrenceInterval > 0 && r.NextRecurrence != nil
}

// IsManaged 记录是否已被初始化（状态非空）
func (r *RecurringOrder) IsManaged() bool {
	return r != nil && r.Status != ""
}

// IsDerived 是否由 spec 派生而来
func (r *RecurringOrder) IsDerived() bool {
	return r != nil && r.OriginatingOrderID != 0
}

// IsGenerated 是否由某次循环处理生成
func (r *RecurringOrder) IsGenerated() bool {
	return r != nil && r.ParentOrderID != 0
}

// IsMarkedImminent 是否已标记为即将执行
func (r *RecurringOrder) IsMarkedImminent() bool {
	return r != nil && r.DateMarkedImminent != nil
}

// ResetNextRecurrence 把下次执行时间重置为 now + 循环间隔
func (r *RecurringOrder) ResetNextRecurrence(now time.Time) error {
	if r.RecurrenceInterval <= 0 {
		return ErrMissingInterval
	}
	next := now.Add(time.Duration(r.RecurrenceInterval) * time.Second)
	r.NextRecurrence = &next
	return nil
}

// RecurringOrderHistory 循环订单历史快照（追加写，不修改）
type RecurringOrderHistory struct {
	ID                 uint64
	OrderID            uint64
	Status             string
	ErrorReason        string
	ErrorCount         int
	RecurrenceInterval int64
	Note               string
	UpdatedByUserID    uint64 // 0 表示系统操作
	UpdatedAttributes  []string
	CreatedAt          time.Time
}

// RecurringOrderRepo 循环订单记录仓库接口
//
// SaveRecurringOrder 在被跟踪字段发生变化时追加一条历史快照。
type RecurringOrderRepo interface {
	GetRecurringOrder(ctx context.Context, orderID uint64) (*RecurringOrder, error)
	SaveRecurringOrder(ctx context.Context, rec *RecurringOrder, updatedByUserID uint64) error
	FindRecurringOrders(ctx context.Context, criteria *RecurrenceCriteria) ([]*RecurringOrder, error)
	CountRecurringOrders(ctx context.Context, criteria *RecurrenceCriteria) (int, error)
}

// RecurringOrderHistoryRepo 循环订单历史仓库接口
type RecurringOrderHistoryRepo interface {
	ListHistory(ctx context.Context, orderID uint64, page, pageSize int) ([]*RecurringOrderHistory, int, error)
}

// GeneratedOrderRepo 生成订单关联仓库接口（报表用）
type GeneratedOrderRepo interface {
	AddGeneratedOrder(ctx context.Context, parentOrderID, orderID uint64) error
	ListGeneratedOrderIDs(ctx context.Context, parentOrderID uint64) ([]uint64, error)
}

// PaymentSource 客户保存在网关侧的可复用支付方式
type PaymentSource struct {
	ID          uint64
	CustomerID  uint64
	GatewayID   uint64
	Token       string
	Description string
	ExpiresAt   *time.Time
}

// PaymentSourceStore 支付方式仓库接口（宿主提供）
type PaymentSourceStore interface {
	GetPaymentSource(ctx context.Context, id uint64) (*PaymentSource, error)
}

// PaymentForm 从支付方式构造的扣款表单
type PaymentForm struct {
	GatewayID uint64
	Token     string
}

// PaymentGateway 支付网关接口 (防腐层)
type PaymentGateway interface {
	BuildPaymentForm(source *PaymentSource) *PaymentForm
	Charge(ctx context.Context, order *Order, form *PaymentForm) error
}
