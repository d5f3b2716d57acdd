package services_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jefthah/My-marketplace-sub000/internal/model"
	"github.com/jefthah/My-marketplace-sub000/internal/repository"

	"github.com/jackc/pgx/v5"
)

// memLedger is an in-memory stand-in for the Postgres ledger. The guards in
// each method mirror the SQL predicates of the real repositories so the
// idempotency and race rules behave the same way.
type memLedger struct {
	mu       sync.Mutex
	payments map[int64]*model.Payment
	orders   map[int64]*model.Order
	payouts  map[string]*model.Payout

	nextPaymentID int64
	nextOrderID   int64
	nextPayoutID  int64

	failWrites bool

	// beforeApply, when set, runs once at the start of the next status write.
	// It lets a test land a concurrent update between a handler's read and
	// its write.
	beforeApply func()
}

func newMemLedger() *memLedger {
	return &memLedger{
		payments: map[int64]*model.Payment{},
		orders:   map[int64]*model.Order{},
		payouts:  map[string]*model.Payout{},
	}
}

// fakeTx satisfies pgx.Tx for the methods the services actually call.
type fakeTx struct{ pgx.Tx }

func (fakeTx) Commit(context.Context) error   { return nil }
func (fakeTx) Rollback(context.Context) error { return nil }

func (l *memLedger) addOrder(o model.Order) *model.Order {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextOrderID++
	o.OrderID = l.nextOrderID
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	l.orders[o.OrderID] = &o
	return &o
}

func (l *memLedger) addPayment(p model.Payment) *model.Payment {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextPaymentID++
	p.PaymentID = l.nextPaymentID
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	l.payments[p.PaymentID] = &p
	return &p
}

func (l *memLedger) payment(id int64) model.Payment {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.payments[id]
}

func (l *memLedger) order(id int64) model.Order {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.orders[id]
}

func (l *memLedger) payoutCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.payouts)
}

// ---- PaymentStore ----

type memPayments struct{ l *memLedger }

func (m memPayments) Begin(context.Context) (pgx.Tx, error) { return fakeTx{}, nil }

func (m memPayments) Create(_ context.Context, p *model.Payment) (int64, error) {
	return m.CreateTx(context.Background(), nil, p)
}

func (m memPayments) CreateTx(_ context.Context, _ pgx.Tx, p *model.Payment) (int64, error) {
	l := m.l
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failWrites {
		return 0, errors.New("write refused")
	}
	for _, existing := range l.payments {
		if existing.TransactionID == p.TransactionID {
			return 0, errors.New("duplicate transaction id")
		}
	}
	l.nextPaymentID++
	cp := *p
	cp.PaymentID = l.nextPaymentID
	cp.CreatedAt = time.Now()
	l.payments[cp.PaymentID] = &cp
	return cp.PaymentID, nil
}

func (m memPayments) ByID(_ context.Context, id int64) (*model.Payment, error) {
	m.l.mu.Lock()
	defer m.l.mu.Unlock()
	p, ok := m.l.payments[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m memPayments) ByTransactionID(_ context.Context, transactionID string) (*model.Payment, error) {
	m.l.mu.Lock()
	defer m.l.mu.Unlock()
	for _, p := range m.l.payments {
		if p.TransactionID == transactionID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m memPayments) ActiveByOrderID(_ context.Context, orderID int64) (*model.Payment, error) {
	m.l.mu.Lock()
	defer m.l.mu.Unlock()
	var best *model.Payment
	for _, p := range m.l.payments {
		if p.OrderID == orderID && p.Status.Active() {
			if best == nil || p.PaymentID > best.PaymentID {
				best = p
			}
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (m memPayments) ListByUser(_ context.Context, userID int64) ([]model.Payment, error) {
	m.l.mu.Lock()
	defer m.l.mu.Unlock()
	var out []model.Payment
	for _, p := range m.l.payments {
		if o, ok := m.l.orders[p.OrderID]; ok && o.Owner.BelongsTo(userID) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m memPayments) ApplyStatusTx(_ context.Context, _ pgx.Tx, paymentID int64, from, to model.PaymentStatus, gatewayResponse []byte, paymentDate *time.Time) (bool, error) {
	if hook := m.l.beforeApply; hook != nil {
		m.l.beforeApply = nil
		hook()
	}
	m.l.mu.Lock()
	defer m.l.mu.Unlock()
	if m.l.failWrites {
		return false, errors.New("write refused")
	}
	p, ok := m.l.payments[paymentID]
	if !ok {
		return false, errors.New("no such payment")
	}
	if p.Status != from {
		return false, nil
	}
	p.Status = to
	if gatewayResponse != nil {
		p.GatewayResponse = gatewayResponse
	}
	if paymentDate != nil {
		p.PaymentDate = paymentDate
	}
	return true, nil
}

func (m memPayments) SaveGatewayResponse(_ context.Context, paymentID int64, gatewayResponse []byte) error {
	m.l.mu.Lock()
	defer m.l.mu.Unlock()
	if m.l.failWrites {
		return errors.New("write refused")
	}
	if p, ok := m.l.payments[paymentID]; ok {
		p.GatewayResponse = gatewayResponse
	}
	return nil
}

func (m memPayments) SweepExpiredTx(_ context.Context, _ pgx.Tx, cutoff time.Time) ([]repository.ExpiredPayment, error) {
	m.l.mu.Lock()
	defer m.l.mu.Unlock()
	var out []repository.ExpiredPayment
	for _, p := range m.l.payments {
		if p.Status == model.PaymentPending && !p.CreatedAt.After(cutoff) {
			p.Status = model.PaymentFailed
			out = append(out, repository.ExpiredPayment{PaymentID: p.PaymentID, OrderID: p.OrderID})
		}
	}
	return out, nil
}

func (m memPayments) ExpirePendingTx(_ context.Context, _ pgx.Tx, paymentID int64) (bool, error) {
	m.l.mu.Lock()
	defer m.l.mu.Unlock()
	p, ok := m.l.payments[paymentID]
	if !ok || p.Status != model.PaymentPending {
		return false, nil
	}
	p.Status = model.PaymentFailed
	return true, nil
}

func (m memPayments) SupersedeTx(_ context.Context, _ pgx.Tx, orderID int64) error {
	m.l.mu.Lock()
	defer m.l.mu.Unlock()
	for _, p := range m.l.payments {
		if p.OrderID == orderID {
			switch p.Status {
			case model.PaymentPending, model.PaymentProcessing, model.PaymentFailed:
				p.Status = model.PaymentSuperseded
			}
		}
	}
	return nil
}

func (m memPayments) CancelPendingTx(_ context.Context, _ pgx.Tx, orderID int64) error {
	m.l.mu.Lock()
	defer m.l.mu.Unlock()
	for _, p := range m.l.payments {
		if p.OrderID == orderID {
			switch p.Status {
			case model.PaymentPending, model.PaymentProcessing:
				p.Status = model.PaymentCancelled
			}
		}
	}
	return nil
}

// ---- OrderStore ----

type memOrders struct{ l *memLedger }

func (m memOrders) Create(_ context.Context, o *model.Order) (int64, error) {
	m.l.mu.Lock()
	defer m.l.mu.Unlock()
	if m.l.failWrites {
		return 0, errors.New("write refused")
	}
	m.l.nextOrderID++
	cp := *o
	cp.OrderID = m.l.nextOrderID
	cp.CreatedAt = time.Now()
	m.l.orders[cp.OrderID] = &cp
	return cp.OrderID, nil
}

func (m memOrders) ByID(_ context.Context, orderID int64) (*model.Order, error) {
	m.l.mu.Lock()
	defer m.l.mu.Unlock()
	o, ok := m.l.orders[orderID]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (m memOrders) ListByUser(_ context.Context, userID int64) ([]model.Order, error) {
	m.l.mu.Lock()
	defer m.l.mu.Unlock()
	var out []model.Order
	for _, o := range m.l.orders {
		if o.Owner.BelongsTo(userID) {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m memOrders) SetStatus(_ context.Context, orderID int64, status model.OrderStatus) error {
	return m.SetStatusTx(context.Background(), nil, orderID, status)
}

func (m memOrders) SetStatusTx(_ context.Context, _ pgx.Tx, orderID int64, status model.OrderStatus) error {
	m.l.mu.Lock()
	defer m.l.mu.Unlock()
	if m.l.failWrites {
		return errors.New("write refused")
	}
	o, ok := m.l.orders[orderID]
	if !ok {
		return errors.New("no such order")
	}
	o.Status = status
	return nil
}

func (m memOrders) FailPendingTx(_ context.Context, _ pgx.Tx, orderIDs []int64) error {
	m.l.mu.Lock()
	defer m.l.mu.Unlock()
	for _, id := range orderIDs {
		if o, ok := m.l.orders[id]; ok && o.Status == model.OrderPending {
			o.Status = model.OrderFailed
		}
	}
	return nil
}

func (m memOrders) CancelPendingTx(_ context.Context, _ pgx.Tx, orderID int64) (bool, error) {
	m.l.mu.Lock()
	defer m.l.mu.Unlock()
	o, ok := m.l.orders[orderID]
	if !ok || o.Status != model.OrderPending {
		return false, nil
	}
	o.Status = model.OrderCancelled
	return true, nil
}

// ---- PayoutStore ----

type memPayouts struct{ l *memLedger }

func (m memPayouts) CreateIfAbsentTx(_ context.Context, _ pgx.Tx, p *model.Payout) (bool, error) {
	m.l.mu.Lock()
	defer m.l.mu.Unlock()
	if m.l.failWrites {
		return false, errors.New("write refused")
	}
	if _, exists := m.l.payouts[p.TransactionID]; exists {
		return false, nil
	}
	m.l.nextPayoutID++
	cp := *p
	cp.PayoutID = m.l.nextPayoutID
	m.l.payouts[cp.TransactionID] = &cp
	p.PayoutID = cp.PayoutID
	return true, nil
}

func (m memPayouts) ByTransactionID(_ context.Context, transactionID string) (*model.Payout, error) {
	m.l.mu.Lock()
	defer m.l.mu.Unlock()
	p, ok := m.l.payouts[transactionID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m memPayouts) List(context.Context) ([]model.Payout, error) {
	m.l.mu.Lock()
	defer m.l.mu.Unlock()
	var out []model.Payout
	for _, p := range m.l.payouts {
		out = append(out, *p)
	}
	return out, nil
}

func (m memPayouts) MarkRefundRequested(_ context.Context, payoutID int64, reason string, requestedAt time.Time) (bool, error) {
	m.l.mu.Lock()
	defer m.l.mu.Unlock()
	for _, p := range m.l.payouts {
		if p.PayoutID == payoutID {
			if p.Status != model.PayoutCompleted || p.IsRefunded {
				return false, nil
			}
			p.Status = model.PayoutRefundRequested
			p.IsRefunded = true
			p.RefundReason = &reason
			p.RefundRequestedAt = &requestedAt
			return true, nil
		}
	}
	return false, nil
}

func (m memPayouts) Stats(context.Context) (repository.PayoutStats, error) {
	m.l.mu.Lock()
	defer m.l.mu.Unlock()
	var s repository.PayoutStats
	for _, p := range m.l.payouts {
		s.TotalSales++
		s.TotalRevenue += p.Amount
		if p.Status == model.PayoutRefundRequested {
			s.RefundRequests++
		}
	}
	return s, nil
}
