package biz

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"xinyuan_tech/recurring-orders-service/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
)

func discardLogger() log.Logger {
	return log.NewStdLogger(io.Discard)
}

// fixedClock 固定时钟，测试排期计算用
type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

type fakeRepo struct {
	mu      sync.Mutex
	records map[uint64]*RecurringOrder
	saveErr error
	saves   int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[uint64]*RecurringOrder)}
}

func (r *fakeRepo) GetRecurringOrder(ctx context.Context, orderID uint64) (*RecurringOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[orderID]; ok {
		cp := *rec
		return &cp, nil
	}
	return &RecurringOrder{OrderID: orderID}, nil
}

func (r *fakeRepo) SaveRecurringOrder(ctx context.Context, rec *RecurringOrder, updatedByUserID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	cp := *rec
	r.records[rec.OrderID] = &cp
	r.saves++
	return nil
}

func (r *fakeRepo) FindRecurringOrders(ctx context.Context, criteria *RecurrenceCriteria) ([]*RecurringOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*RecurringOrder
	for _, rec := range r.records {
		if criteria == nil || criteria.Matches(rec) {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeRepo) CountRecurringOrders(ctx context.Context, criteria *RecurrenceCriteria) (int, error) {
	records, err := r.FindRecurringOrders(ctx, criteria)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

type fakeHistoryRepo struct {
	items []*RecurringOrderHistory
}

func (r *fakeHistoryRepo) ListHistory(ctx context.Context, orderID uint64, page, pageSize int) ([]*RecurringOrderHistory, int, error) {
	var out []*RecurringOrderHistory
	for _, h := range r.items {
		if h.OrderID == orderID {
			out = append(out, h)
		}
	}
	return out, len(out), nil
}

type fakeGeneratedRepo struct {
	links map[uint64][]uint64
}

func newFakeGeneratedRepo() *fakeGeneratedRepo {
	return &fakeGeneratedRepo{links: make(map[uint64][]uint64)}
}

func (r *fakeGeneratedRepo) AddGeneratedOrder(ctx context.Context, parentOrderID, orderID uint64) error {
	r.links[parentOrderID] = append(r.links[parentOrderID], orderID)
	return nil
}

func (r *fakeGeneratedRepo) ListGeneratedOrderIDs(ctx context.Context, parentOrderID uint64) ([]uint64, error) {
	return r.links[parentOrderID], nil
}

type fakeOrderStore struct {
	mu        sync.Mutex
	orders    map[uint64]*Order
	nextID    uint64
	saveErr   error
	completed []uint64
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{orders: make(map[uint64]*Order), nextID: 1000}
}

func (s *fakeOrderStore) GetOrder(ctx context.Context, id uint64) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[id]; ok {
		return o, nil
	}
	return nil, nil
}

func (s *fakeOrderStore) SaveOrder(ctx context.Context, order *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	if order.ID == 0 {
		s.nextID++
		order.ID = s.nextID
	}
	s.orders[order.ID] = order
	return nil
}

func (s *fakeOrderStore) MarkOrderComplete(ctx context.Context, order *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order.IsCompleted = true
	now := time.Now().UTC()
	order.DateOrdered = &now
	s.completed = append(s.completed, order.ID)
	return nil
}

type fakeSourceStore struct {
	sources map[uint64]*PaymentSource
}

func newFakeSourceStore() *fakeSourceStore {
	return &fakeSourceStore{sources: make(map[uint64]*PaymentSource)}
}

func (s *fakeSourceStore) GetPaymentSource(ctx context.Context, id uint64) (*PaymentSource, error) {
	return s.sources[id], nil
}

type fakeGateway struct {
	chargeErr    error
	blockCharge  bool
	chargedForms []*PaymentForm
}

func (g *fakeGateway) BuildPaymentForm(source *PaymentSource) *PaymentForm {
	return &PaymentForm{GatewayID: source.GatewayID, Token: source.Token}
}

func (g *fakeGateway) Charge(ctx context.Context, order *Order, form *PaymentForm) error {
	if g.blockCharge {
		<-ctx.Done()
		return ctx.Err()
	}
	if g.chargeErr != nil {
		return g.chargeErr
	}
	g.chargedForms = append(g.chargedForms, form)
	return nil
}

type fakeTx struct {
	execErr error
}

func (t *fakeTx) Exec(ctx context.Context, fn func(ctx context.Context) error) error {
	if t.execErr != nil {
		return t.execErr
	}
	return fn(ctx)
}

type fakeLocker struct {
	busy    bool
	locked  []string
	unlocks int
}

func (l *fakeLocker) TryLock(ctx context.Context, key string) (func(), error) {
	if l.busy {
		return nil, errors.New("lock busy")
	}
	l.locked = append(l.locked, key)
	return func() { l.unlocks++ }, nil
}

// testEnv 处理器测试环境
type testEnv struct {
	uc        *RecurringOrderUsecase
	repo      *fakeRepo
	generated *fakeGeneratedRepo
	orders    *fakeOrderStore
	sources   *fakeSourceStore
	gateway   *fakeGateway
	tx        *fakeTx
	locker    *fakeLocker
	clock     *fixedClock
	events    *Events
}

func newTestEnv() *testEnv {
	env := &testEnv{
		repo:      newFakeRepo(),
		generated: newFakeGeneratedRepo(),
		orders:    newFakeOrderStore(),
		sources:   newFakeSourceStore(),
		gateway:   &fakeGateway{},
		tx:        &fakeTx{},
		locker:    &fakeLocker{},
		clock:     &fixedClock{now: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)},
		events:    NewEvents(),
	}
	c := &conf.Bootstrap{
		RecurringOrders: &conf.RecurringOrders{
			RetryInterval:     "PT1H",
			MaxErrorCount:     3,
			ImminenceInterval: "P1W",
			ChargeTimeout:     "100ms",
		},
	}
	env.uc = NewRecurringOrderUsecase(
		env.repo, &fakeHistoryRepo{}, env.generated,
		env.orders, env.sources, env.gateway,
		env.tx, env.locker, env.clock, env.events,
		c, discardLogger(),
	)
	return env
}

// addRecurringOrder 注册一个带排期且可处理的循环订单
func (env *testEnv) addRecurringOrder(orderID uint64) *RecurringOrder {
	past := env.clock.now.Add(-time.Hour)
	rec := &RecurringOrder{
		OrderID:            orderID,
		Status:             "active",
		RecurrenceInterval: 86400,
		NextRecurrence:     &past,
		PaymentSourceID:    1,
	}
	env.repo.records[orderID] = rec

	env.orders.orders[orderID] = &Order{
		ID:         orderID,
		Number:     "test-order",
		CustomerID: 7,
		GatewayID:  2,
		Currency:   "USD",
		LineItems: []*LineItem{
			{PurchasableID: 11, Qty: 2, SalePrice: 10},
		},
	}
	env.sources.sources[1] = &PaymentSource{ID: 1, CustomerID: 7, GatewayID: 2, Token: "tok_test"}
	return rec
}
