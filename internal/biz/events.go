package biz

import "sync"

// StatusChange 循环状态变更通知
type StatusChange struct {
	OrderID   uint64
	OldStatus string
	NewStatus string
}

// DerivedOrders 派生订单完成通知
type DerivedOrders struct {
	OriginatingOrderID uint64
	DerivedOrderIDs    []uint64
}

// Events 循环引擎的观察者列表
//
// 核心逻辑不依赖任何订阅者存在；订阅用于宿主侧扩展
// （例如刷新 UI 缓存、发送临近提醒通知）。
type Events struct {
	mu             sync.RWMutex
	statusChange   []func(StatusChange)
	markedImminent []func(orderID uint64)
	derivedOrders  []func(DerivedOrders)
}

// NewEvents 创建事件中心
func NewEvents() *Events {
	return &Events{}
}

// OnStatusChange 订阅状态变更事件
func (e *Events) OnStatusChange(fn func(StatusChange)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.statusChange = append(e.statusChange, fn)
}

// OnMarkedImminent 订阅临近标记事件
func (e *Events) OnMarkedImminent(fn func(orderID uint64)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.markedImminent = append(e.markedImminent, fn)
}

// OnDerivedOrders 订阅派生完成事件
func (e *Events) OnDerivedOrders(fn func(DerivedOrders)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.derivedOrders = append(e.derivedOrders, fn)
}

func (e *Events) notifyStatusChange(ev StatusChange) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, fn := range e.statusChange {
		fn(ev)
	}
}

func (e *Events) notifyMarkedImminent(orderID uint64) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, fn := range e.markedImminent {
		fn(orderID)
	}
}

func (e *Events) notifyDerivedOrders(ev DerivedOrders) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, fn := range e.derivedOrders {
		fn(ev)
	}
}
