package service

import (
	"context"
	"fmt"
	"time"
	"xinyuan_tech/recurring-orders-service/internal/biz"

	"github.com/google/wire"
)

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(NewRecurringOrderService)

// RecurringOrderService 循环订单 HTTP 服务
type RecurringOrderService struct {
	uc *biz.RecurringOrderUsecase
}

// NewRecurringOrderService 创建循环订单服务
func NewRecurringOrderService(uc *biz.RecurringOrderUsecase) *RecurringOrderService {
	return &RecurringOrderService{uc: uc}
}

// SpecPayload 暂存排期描述
type SpecPayload struct {
	Status             string     `json:"status,omitempty"`
	RecurrenceInterval string     `json:"recurrence_interval,omitempty"`
	NextRecurrence     *time.Time `json:"next_recurrence,omitempty"`
	PaymentSourceID    uint64     `json:"payment_source_id,omitempty"`
}

// RecurringOrderReply 循环记录视图
type RecurringOrderReply struct {
	OrderID            uint64       `json:"order_id"`
	Status             string       `json:"status"`
	ErrorReason        string       `json:"error_reason,omitempty"`
	ErrorCount         int          `json:"error_count"`
	RecurrenceInterval int64        `json:"recurrence_interval,omitempty"`
	LastRecurrence     *time.Time   `json:"last_recurrence,omitempty"`
	NextRecurrence     *time.Time   `json:"next_recurrence,omitempty"`
	DateMarkedImminent *time.Time   `json:"date_marked_imminent,omitempty"`
	RetryDate          *time.Time   `json:"retry_date,omitempty"`
	PaymentSourceID    uint64       `json:"payment_source_id,omitempty"`
	Note               string       `json:"note,omitempty"`
	Spec               *SpecPayload `json:"spec,omitempty"`
	OriginatingOrderID uint64       `json:"originating_order_id,omitempty"`
	ParentOrderID      uint64       `json:"parent_order_id,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// MakeRecurringRequest 设置循环属性请求，nil 字段不修改
type MakeRecurringRequest struct {
	OrderID             uint64       `json:"order_id"`
	Status              *string      `json:"status,omitempty"`
	Interval            *string      `json:"interval,omitempty"`
	NextRecurrence      *time.Time   `json:"next_recurrence,omitempty"`
	PaymentSourceID     *uint64      `json:"payment_source_id,omitempty"`
	Note                *string      `json:"note,omitempty"`
	Spec                *SpecPayload `json:"spec,omitempty"`
	ResetNextRecurrence bool         `json:"reset_next_recurrence,omitempty"`
	UpdatedByUserID     uint64       `json:"updated_by_user_id,omitempty"`
}

// LifecycleRequest 暂停/恢复/取消/复位请求
type LifecycleRequest struct {
	OrderID         uint64 `json:"order_id"`
	UpdatedByUserID uint64 `json:"updated_by_user_id,omitempty"`
}

// OperationReply 无数据操作的统一响应
type OperationReply struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ProcessResultReply 单次循环处理结果
type ProcessResultReply struct {
	OrderID          uint64 `json:"order_id"`
	Outcome          string `json:"outcome"`
	GeneratedOrderID uint64 `json:"generated_order_id,omitempty"`
	ErrorReason      string `json:"error_reason,omitempty"`
	Message          string `json:"message,omitempty"`
}

// ProcessAllReply 批量处理汇总
type ProcessAllReply struct {
	Total   int                   `json:"total"`
	Success int                   `json:"success"`
	Failed  int                   `json:"failed"`
	Results []*ProcessResultReply `json:"results"`
}

// HistoryItemReply 历史快照视图
type HistoryItemReply struct {
	ID                 uint64    `json:"id"`
	OrderID            uint64    `json:"order_id"`
	Status             string    `json:"status"`
	ErrorReason        string    `json:"error_reason,omitempty"`
	ErrorCount         int       `json:"error_count"`
	RecurrenceInterval int64     `json:"recurrence_interval,omitempty"`
	Note               string    `json:"note,omitempty"`
	UpdatedByUserID    uint64    `json:"updated_by_user_id,omitempty"`
	UpdatedAttributes  []string  `json:"updated_attributes,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// HistoryReply 分页历史响应
type HistoryReply struct {
	Items    []*HistoryItemReply `json:"items"`
	Total    int                 `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"page_size"`
}

// CompleteOrderReply 完成订单响应
type CompleteOrderReply struct {
	OrderID         uint64   `json:"order_id"`
	DerivedOrderIDs []uint64 `json:"derived_order_ids,omitempty"`
}

// ListRecurrencesRequest 循环记录查询条件
type ListRecurrencesRequest struct {
	Statuses           []string `json:"statuses,omitempty"`
	ErrorReasons       []string `json:"error_reasons,omitempty"`
	HasSchedule        *bool    `json:"has_schedule,omitempty"`
	MarkedImminent     *bool    `json:"marked_imminent,omitempty"`
	OriginatingOrderID uint64   `json:"originating_order_id,omitempty"`
	ParentOrderID      uint64   `json:"parent_order_id,omitempty"`
}

// ListRecurrencesReply 循环记录列表响应
type ListRecurrencesReply struct {
	Items []*RecurringOrderReply `json:"items"`
	Total int                    `json:"total"`
}

// GetRecurringOrder 获取订单的循环记录
func (s *RecurringOrderService) GetRecurringOrder(ctx context.Context, orderID uint64) (*RecurringOrderReply, error) {
	rec, err := s.uc.GetRecurringOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return toRecurringOrderReply(rec), nil
}

// MakeOrderRecurring 把订单设置为循环订单
func (s *RecurringOrderService) MakeOrderRecurring(ctx context.Context, req *MakeRecurringRequest) (*RecurringOrderReply, error) {
	attrs := biz.RecurrenceAttributes{
		Status:          req.Status,
		Interval:        req.Interval,
		NextRecurrence:  req.NextRecurrence,
		PaymentSourceID: req.PaymentSourceID,
		Note:            req.Note,
	}
	if req.Spec != nil {
		attrs.Spec = &biz.Spec{
			Status:             req.Spec.Status,
			RecurrenceInterval: req.Spec.RecurrenceInterval,
			NextRecurrence:     req.Spec.NextRecurrence,
			PaymentSourceID:    req.Spec.PaymentSourceID,
		}
	}
	rec, err := s.uc.MakeOrderRecurring(ctx, req.OrderID, attrs, req.ResetNextRecurrence, req.UpdatedByUserID)
	if err != nil {
		return nil, err
	}
	return toRecurringOrderReply(rec), nil
}

// PauseRecurrence 暂停循环
func (s *RecurringOrderService) PauseRecurrence(ctx context.Context, req *LifecycleRequest) (*OperationReply, error) {
	if err := s.uc.PauseRecurrence(ctx, req.OrderID, req.UpdatedByUserID); err != nil {
		return nil, err
	}
	return &OperationReply{Success: true, Message: "Recurrence paused successfully"}, nil
}

// ResumeRecurrence 恢复循环
func (s *RecurringOrderService) ResumeRecurrence(ctx context.Context, req *LifecycleRequest) (*OperationReply, error) {
	if err := s.uc.ResumeRecurrence(ctx, req.OrderID, req.UpdatedByUserID); err != nil {
		return nil, err
	}
	return &OperationReply{Success: true, Message: "Recurrence resumed successfully"}, nil
}

// CancelRecurrence 取消循环
func (s *RecurringOrderService) CancelRecurrence(ctx context.Context, req *LifecycleRequest) (*OperationReply, error) {
	if err := s.uc.CancelRecurrence(ctx, req.OrderID, req.UpdatedByUserID); err != nil {
		return nil, err
	}
	return &OperationReply{Success: true, Message: "Recurrence cancelled successfully"}, nil
}

// ResetRecurrenceErrors 人工复位错误状态
func (s *RecurringOrderService) ResetRecurrenceErrors(ctx context.Context, req *LifecycleRequest) (*OperationReply, error) {
	if err := s.uc.ResetRecurrenceErrors(ctx, req.OrderID, req.UpdatedByUserID); err != nil {
		return nil, err
	}
	return &OperationReply{Success: true, Message: "Recurrence errors reset successfully"}, nil
}

// ProcessOrderRecurrence 立即处理一次订单循环
func (s *RecurringOrderService) ProcessOrderRecurrence(ctx context.Context, orderID uint64) (*ProcessResultReply, error) {
	result, err := s.uc.ProcessOrderRecurrence(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return toProcessResultReply(result), nil
}

// ProcessEligibleRecurrences 批量处理所有可执行的循环
func (s *RecurringOrderService) ProcessEligibleRecurrences(ctx context.Context, dryRun bool) (*ProcessAllReply, error) {
	total, success, failed, results, err := s.uc.ProcessEligibleRecurrences(ctx, dryRun)
	if err != nil {
		return nil, err
	}
	reply := &ProcessAllReply{
		Total:   total,
		Success: success,
		Failed:  failed,
		Results: make([]*ProcessResultReply, len(results)),
	}
	for i, r := range results {
		reply.Results[i] = toProcessResultReply(r)
	}
	return reply, nil
}

// CompleteOrder 把订单标记为完成并触发派生检查
func (s *RecurringOrderService) CompleteOrder(ctx context.Context, orderID uint64) (*CompleteOrderReply, error) {
	derived, err := s.uc.CompleteOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &CompleteOrderReply{OrderID: orderID, DerivedOrderIDs: derived}, nil
}

// ListRecurrenceHistory 分页获取循环历史
func (s *RecurringOrderService) ListRecurrenceHistory(ctx context.Context, orderID uint64, page, pageSize int) (*HistoryReply, error) {
	items, total, err := s.uc.ListRecurrenceHistory(ctx, orderID, page, pageSize)
	if err != nil {
		return nil, err
	}
	reply := &HistoryReply{
		Items:    make([]*HistoryItemReply, len(items)),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
	for i, h := range items {
		reply.Items[i] = &HistoryItemReply{
			ID:                 h.ID,
			OrderID:            h.OrderID,
			Status:             h.Status,
			ErrorReason:        h.ErrorReason,
			ErrorCount:         h.ErrorCount,
			RecurrenceInterval: h.RecurrenceInterval,
			Note:               h.Note,
			UpdatedByUserID:    h.UpdatedByUserID,
			UpdatedAttributes:  h.UpdatedAttributes,
			CreatedAt:          h.CreatedAt,
		}
	}
	return reply, nil
}

// ListGeneratedOrders 获取某订单生成的全部订单 ID
func (s *RecurringOrderService) ListGeneratedOrders(ctx context.Context, parentOrderID uint64) ([]uint64, error) {
	return s.uc.ListGeneratedOrderIDs(ctx, parentOrderID)
}

// ListDerivedOrders 获取某订单派生出的循环记录
func (s *RecurringOrderService) ListDerivedOrders(ctx context.Context, originatingOrderID uint64) ([]*RecurringOrderReply, error) {
	records, err := s.uc.ListDerivedOrders(ctx, originatingOrderID)
	if err != nil {
		return nil, err
	}
	replies := make([]*RecurringOrderReply, len(records))
	for i, rec := range records {
		replies[i] = toRecurringOrderReply(rec)
	}
	return replies, nil
}

// ListRecurringOrders 按条件查询循环记录
func (s *RecurringOrderService) ListRecurringOrders(ctx context.Context, req *ListRecurrencesRequest) (*ListRecurrencesReply, error) {
	criteria := toCriteria(req)
	records, err := s.uc.ListRecurringOrders(ctx, criteria)
	if err != nil {
		return nil, err
	}
	return toListReply(records), nil
}

// CountRecurringOrders 按条件统计循环记录数量
func (s *RecurringOrderService) CountRecurringOrders(ctx context.Context, req *ListRecurrencesRequest) (int, error) {
	return s.uc.CountRecurringOrders(ctx, toCriteria(req))
}

// ListOutstandingRecurrences 获取排期已到的循环记录
func (s *RecurringOrderService) ListOutstandingRecurrences(ctx context.Context) (*ListRecurrencesReply, error) {
	records, err := s.uc.ListOutstandingRecurrences(ctx)
	if err != nil {
		return nil, err
	}
	return toListReply(records), nil
}

// ListEligibleRecurrences 获取当前可以处理的循环记录
func (s *RecurringOrderService) ListEligibleRecurrences(ctx context.Context) (*ListRecurrencesReply, error) {
	records, err := s.uc.ListEligibleRecurrences(ctx)
	if err != nil {
		return nil, err
	}
	return toListReply(records), nil
}

// MarkImminentOrders 批量标记即将执行的循环订单
func (s *RecurringOrderService) MarkImminentOrders(ctx context.Context) (*OperationReply, error) {
	marked, err := s.uc.MarkImminentOrders(ctx)
	if err != nil {
		return nil, err
	}
	return &OperationReply{Success: true, Message: fmt.Sprintf("Marked %d orders imminent", marked)}, nil
}

func toCriteria(req *ListRecurrencesRequest) *biz.RecurrenceCriteria {
	if req == nil {
		return &biz.RecurrenceCriteria{}
	}
	criteria := &biz.RecurrenceCriteria{
		Statuses:           req.Statuses,
		ErrorReasons:       req.ErrorReasons,
		HasSchedule:        req.HasSchedule,
		MarkedImminent:     req.MarkedImminent,
		OriginatingOrderID: req.OriginatingOrderID,
		ParentOrderID:      req.ParentOrderID,
	}
	return criteria
}

func toListReply(records []*biz.RecurringOrder) *ListRecurrencesReply {
	reply := &ListRecurrencesReply{
		Items: make([]*RecurringOrderReply, len(records)),
		Total: len(records),
	}
	for i, rec := range records {
		reply.Items[i] = toRecurringOrderReply(rec)
	}
	return reply
}

func toRecurringOrderReply(rec *biz.RecurringOrder) *RecurringOrderReply {
	if rec == nil {
		return nil
	}
	reply := &RecurringOrderReply{
		OrderID:            rec.OrderID,
		Status:             rec.EffectiveStatus(),
		ErrorReason:        rec.ErrorReason,
		ErrorCount:         rec.ErrorCount,
		RecurrenceInterval: rec.RecurrenceInterval,
		LastRecurrence:     rec.LastRecurrence,
		NextRecurrence:     rec.NextRecurrence,
		DateMarkedImminent: rec.DateMarkedImminent,
		RetryDate:          rec.RetryDate,
		PaymentSourceID:    rec.PaymentSourceID,
		Note:               rec.Note,
		OriginatingOrderID: rec.OriginatingOrderID,
		ParentOrderID:      rec.ParentOrderID,
		CreatedAt:          rec.CreatedAt,
		UpdatedAt:          rec.UpdatedAt,
	}
	if rec.Spec != nil {
		reply.Spec = &SpecPayload{
			Status:             rec.Spec.Status,
			RecurrenceInterval: rec.Spec.RecurrenceInterval,
			NextRecurrence:     rec.Spec.NextRecurrence,
			PaymentSourceID:    rec.Spec.PaymentSourceID,
		}
	}
	return reply
}

func toProcessResultReply(r *biz.ProcessResult) *ProcessResultReply {
	return &ProcessResultReply{
		OrderID:          r.OrderID,
		Outcome:          r.Outcome,
		GeneratedOrderID: r.GeneratedOrderID,
		ErrorReason:      r.ErrorReason,
		Message:          r.Message,
	}
}
