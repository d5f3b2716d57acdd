package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	mt "github.com/jefthah/My-marketplace-sub000/external/midtrans"
	"github.com/jefthah/My-marketplace-sub000/internal/model"
	"github.com/jefthah/My-marketplace-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// PaymentWindow bounds how long a pending payment may wait for the gateway
// before the sweeper classifies it as failed.
const PaymentWindow = 10 * time.Minute

const GatewayMidtrans = "midtrans"

// Actor identifies the requester: a registered user (UserID > 0), a guest
// (email only), or an operator.
type Actor struct {
	UserID int64
	Email  string
	Admin  bool
}

type PaymentStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Create(ctx context.Context, p *model.Payment) (int64, error)
	CreateTx(ctx context.Context, tx pgx.Tx, p *model.Payment) (int64, error)
	ByID(ctx context.Context, paymentID int64) (*model.Payment, error)
	ByTransactionID(ctx context.Context, transactionID string) (*model.Payment, error)
	ActiveByOrderID(ctx context.Context, orderID int64) (*model.Payment, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Payment, error)
	ApplyStatusTx(ctx context.Context, tx pgx.Tx, paymentID int64, from, to model.PaymentStatus, gatewayResponse []byte, paymentDate *time.Time) (bool, error)
	SaveGatewayResponse(ctx context.Context, paymentID int64, gatewayResponse []byte) error
	SweepExpiredTx(ctx context.Context, tx pgx.Tx, cutoff time.Time) ([]repository.ExpiredPayment, error)
	ExpirePendingTx(ctx context.Context, tx pgx.Tx, paymentID int64) (bool, error)
	SupersedeTx(ctx context.Context, tx pgx.Tx, orderID int64) error
	CancelPendingTx(ctx context.Context, tx pgx.Tx, orderID int64) error
}

type OrderStore interface {
	Create(ctx context.Context, o *model.Order) (int64, error)
	ByID(ctx context.Context, orderID int64) (*model.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Order, error)
	SetStatus(ctx context.Context, orderID int64, status model.OrderStatus) error
	SetStatusTx(ctx context.Context, tx pgx.Tx, orderID int64, status model.OrderStatus) error
	FailPendingTx(ctx context.Context, tx pgx.Tx, orderIDs []int64) error
	CancelPendingTx(ctx context.Context, tx pgx.Tx, orderID int64) (bool, error)
}

type PayoutStore interface {
	CreateIfAbsentTx(ctx context.Context, tx pgx.Tx, p *model.Payout) (bool, error)
	ByTransactionID(ctx context.Context, transactionID string) (*model.Payout, error)
	List(ctx context.Context) ([]model.Payout, error)
	MarkRefundRequested(ctx context.Context, payoutID int64, reason string, requestedAt time.Time) (bool, error)
	Stats(ctx context.Context) (repository.PayoutStats, error)
}

// PaymentGateway is the external processor, reached through exactly two
// calls plus the server key needed for webhook signatures.
type PaymentGateway interface {
	CreateTransaction(orderRef string, amount int64, cust mt.Customer, items []mt.Item) (string, string, error)
	TransactionStatus(transactionID string) (string, string, []byte, error)
	ServerKey() string
}

type PaymentService struct {
	Payments PaymentStore
	Orders   OrderStore
	Payouts  PayoutStore
	Gateway  PaymentGateway
	Notifier *NotifyDispatcher
	Log      *slog.Logger
}

func NewPaymentService(
	payments PaymentStore,
	orders OrderStore,
	payouts PayoutStore,
	gateway PaymentGateway,
	notifier *NotifyDispatcher,
	log *slog.Logger,
) *PaymentService {
	return &PaymentService{
		Payments: payments,
		Orders:   orders,
		Payouts:  payouts,
		Gateway:  gateway,
		Notifier: notifier,
		Log:      log,
	}
}

func newTransactionID(orderID int64) string {
	return fmt.Sprintf("ORDER-%d-%s", orderID, uuid.NewString())
}

func authorizeOrder(order *model.Order, actor Actor) error {
	if actor.Admin {
		return nil
	}
	if order.Owner.BelongsTo(actor.UserID) {
		return nil
	}
	if !order.Owner.IsUser() && actor.Email != "" && strings.EqualFold(order.Owner.Email, actor.Email) {
		return nil
	}
	return fmt.Errorf("%w: not your order", ErrForbidden)
}

// CreateForOrder mints a gateway transaction for a pending order and records
// the pending payment. The gateway call happens first: if it fails there is
// no partial payment row to clean up.
func (s *PaymentService) CreateForOrder(ctx context.Context, orderID int64, actor Actor) (*model.Payment, error) {
	order, err := s.Orders.ByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if order == nil {
		return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
	}
	if err := authorizeOrder(order, actor); err != nil {
		return nil, err
	}
	if order.Status != model.OrderPending {
		return nil, fmt.Errorf("%w: order is %s", ErrConflict, order.Status)
	}

	active, err := s.Payments.ActiveByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if active != nil {
		return nil, fmt.Errorf("%w: order already has an active payment", ErrConflict)
	}

	transactionID := newTransactionID(orderID)
	token, redirectURL, err := s.Gateway.CreateTransaction(
		transactionID,
		order.TotalAmount,
		mt.Customer{Email: order.Owner.Email, Name: order.Owner.Name},
		[]mt.Item{{
			ID:    strconv.FormatInt(order.ProductID, 10),
			Name:  order.ProductName,
			Price: order.UnitPrice,
			Qty:   int32(order.Quantity),
		}},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	p := &model.Payment{
		OrderID:       orderID,
		TransactionID: transactionID,
		Gateway:       GatewayMidtrans,
		Amount:        order.TotalAmount,
		Status:        model.PaymentPending,
		SnapToken:     token,
		RedirectURL:   redirectURL,
	}
	id, err := s.Payments.Create(ctx, p)
	if err != nil {
		// the partial unique index backs up the active-payment check above
		if repository.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: order already has an active payment", ErrConflict)
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	p.PaymentID = id
	p.CreatedAt = time.Now()
	return p, nil
}

// HandleNotification is the webhook path: validate, verify, reconcile,
// persist. Persistence failures come back wrapped in ErrPersistence so the
// receiver can answer 500 and let the gateway redeliver.
func (s *PaymentService) HandleNotification(ctx context.Context, n model.GatewayNotification, raw []byte) error {
	if err := n.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if !mt.VerifySignature(
		n.TransactionID,
		n.SignatureStatusCode(),
		n.GrossAmount,
		n.SignatureKey,
		s.Gateway.ServerKey(),
	) {
		// possible forged call, worth alerting on
		s.Log.Warn("webhook signature mismatch",
			"transaction_id", n.TransactionID,
			"transaction_status", n.TransactionStatus)
		return fmt.Errorf("%w: transaction %s", ErrSignature, n.TransactionID)
	}

	payment, err := s.Payments.ByTransactionID(ctx, n.TransactionID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if payment == nil {
		return fmt.Errorf("%w: unknown transaction %s", ErrNotFound, n.TransactionID)
	}

	order, err := s.Orders.ByID(ctx, payment.OrderID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if order == nil {
		return fmt.Errorf("%w: order %d", ErrNotFound, payment.OrderID)
	}

	if gross, ok := n.Gross(); ok && !gross.Equal(decimal.NewFromInt(payment.Amount)) {
		// the signature already covers gross_amount, so this is a ledger
		// discrepancy rather than tampering
		s.Log.Warn("webhook gross amount differs from ledger",
			"transaction_id", n.TransactionID,
			"gross_amount", n.GrossAmount,
			"ledger_amount", payment.Amount)
	}

	return s.apply(ctx, payment, order, Reconcile(payment.Status, n.TransactionStatus, n.FraudStatus), raw)
}

// apply persists a reconciliation outcome: payment status, order projection
// and, on completion, the idempotent payout, all in one transaction. The
// status write is a compare-and-set against the status the outcome was
// computed from, so two handlers racing on the same transaction cannot
// interleave a stale status over a newer one. The confirmation mail is
// enqueued only when this call created the payout, so replays and races
// never notify twice.
func (s *PaymentService) apply(ctx context.Context, payment *model.Payment, order *model.Order, out Outcome, raw []byte) error {
	if payment.Status == model.PaymentCompleted {
		if len(raw) > 0 {
			if err := s.Payments.SaveGatewayResponse(ctx, payment.PaymentID, raw); err != nil {
				return fmt.Errorf("%w: %v", ErrPersistence, err)
			}
		}
		return nil
	}

	tx, err := s.Payments.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	defer tx.Rollback(ctx)

	completing := out.PaymentStatus == model.PaymentCompleted
	var paymentDate *time.Time
	if completing {
		now := time.Now()
		paymentDate = &now
	}

	applied, err := s.Payments.ApplyStatusTx(ctx, tx, payment.PaymentID, payment.Status, out.PaymentStatus, raw, paymentDate)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !applied {
		// a concurrent handler advanced this payment between our read and
		// this write; their outcome stands and ours is discarded. The caller
		// can ack: the stored state is already reconciled, and the gateway
		// redelivers anyway if it wants a newer report applied.
		if fresh, err := s.Payments.ByID(ctx, payment.PaymentID); err == nil && fresh != nil {
			*payment = *fresh
		}
		s.Log.Info("reconciliation lost to a concurrent update",
			"transaction_id", payment.TransactionID,
			"status", payment.Status)
		return nil
	}

	if out.OrderStatus != "" {
		if err := s.Orders.SetStatusTx(ctx, tx, order.OrderID, out.OrderStatus); err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
	}

	payoutCreated := false
	if completing {
		payout := &model.Payout{
			TransactionID: payment.TransactionID,
			OrderID:       order.OrderID,
			PaymentID:     payment.PaymentID,
			Amount:        payment.Amount,
			Status:        model.PayoutCompleted,
			ProductName:   order.ProductName,
			CustomerEmail: order.Owner.Email,
			CustomerName:  order.Owner.Name,
			CompletedAt:   *paymentDate,
		}
		payoutCreated, err = s.Payouts.CreateIfAbsentTx(ctx, tx, payout)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	payment.Status = out.PaymentStatus
	payment.PaymentDate = paymentDate
	if out.OrderStatus != "" {
		order.Status = out.OrderStatus
	}

	if out.Notify && payoutCreated {
		s.Notifier.Enqueue(order.Owner.Email,
			model.OrderSummary{
				OrderID:     order.OrderID,
				ProductName: order.ProductName,
				Quantity:    order.Quantity,
				TotalAmount: order.TotalAmount,
			},
			model.DownloadInfo{URL: order.DownloadURL})
	}

	return nil
}

func (s *PaymentService) paymentWithOrder(ctx context.Context, paymentID int64) (*model.Payment, *model.Order, error) {
	payment, err := s.Payments.ByID(ctx, paymentID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if payment == nil {
		return nil, nil, fmt.Errorf("%w: payment %d", ErrNotFound, paymentID)
	}
	order, err := s.Orders.ByID(ctx, payment.OrderID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if order == nil {
		return nil, nil, fmt.Errorf("%w: order %d", ErrNotFound, payment.OrderID)
	}
	return payment, order, nil
}

// Get returns a payment detail. A pending payment past its window is lazily
// expired here, so the client countdown is advisory only.
func (s *PaymentService) Get(ctx context.Context, paymentID int64, actor Actor) (*model.Payment, error) {
	payment, order, err := s.paymentWithOrder(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if err := authorizeOrder(order, actor); err != nil {
		return nil, err
	}

	if err := s.expireIfStale(ctx, payment, order); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *PaymentService) expireIfStale(ctx context.Context, payment *model.Payment, order *model.Order) error {
	if payment.Status != model.PaymentPending || time.Since(payment.CreatedAt) < PaymentWindow {
		return nil
	}

	tx, err := s.Payments.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	defer tx.Rollback(ctx)

	// the status guard loses against a webhook that completed the payment
	// between our read and this write
	expired, err := s.Payments.ExpirePendingTx(ctx, tx, payment.PaymentID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if expired {
		if err := s.Orders.FailPendingTx(ctx, tx, []int64{order.OrderID}); err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if expired {
		payment.Status = model.PaymentFailed
		if order.Status == model.OrderPending {
			order.Status = model.OrderFailed
		}
	}
	return nil
}

// ListForUser returns the requester's payments, newest first.
func (s *PaymentService) ListForUser(ctx context.Context, actor Actor) ([]model.Payment, error) {
	if actor.UserID == 0 {
		return nil, fmt.Errorf("%w: listing requires an account", ErrForbidden)
	}
	payments, err := s.Payments.ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return payments, nil
}

// Poll is the pull-based fallback for lost webhooks: ask the gateway for
// the transaction status and run it through the same reconciliation,
// persisting only when the computed status differs from the stored one.
func (s *PaymentService) Poll(ctx context.Context, paymentID int64, actor Actor) (*model.Payment, error) {
	payment, order, err := s.paymentWithOrder(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if err := authorizeOrder(order, actor); err != nil {
		return nil, err
	}

	if payment.Gateway != GatewayMidtrans {
		return payment, nil
	}

	status, fraudStatus, raw, err := s.Gateway.TransactionStatus(payment.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	out := Reconcile(payment.Status, status, fraudStatus)
	if out.PaymentStatus != payment.Status || out.OrderStatus != "" {
		if err := s.apply(ctx, payment, order, out, raw); err != nil {
			return nil, err
		}
	}

	if err := s.expireIfStale(ctx, payment, order); err != nil {
		return nil, err
	}
	return payment, nil
}

// SweepExpired fails every pending payment older than the window, together
// with its still-pending order, in one transaction. Re-running it is a
// no-op because the swept payments are no longer pending.
func (s *PaymentService) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.Add(-PaymentWindow)

	tx, err := s.Payments.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	defer tx.Rollback(ctx)

	expired, err := s.Payments.SweepExpiredTx(ctx, tx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	orderIDs := make([]int64, 0, len(expired))
	for _, e := range expired {
		orderIDs = append(orderIDs, e.OrderID)
	}
	if err := s.Orders.FailPendingTx(ctx, tx, orderIDs); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if len(expired) > 0 {
		s.Log.Info("swept expired pending payments", "count", len(expired))
	}
	return int64(len(expired)), nil
}

// Retry mints a fresh payment attempt for a pending or failed order. The
// previous attempt is marked superseded for the audit trail; the gateway
// call happens before any write so a gateway failure leaves the ledger
// untouched.
func (s *PaymentService) Retry(ctx context.Context, orderID int64, actor Actor) (*model.Payment, error) {
	order, err := s.Orders.ByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if order == nil {
		return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
	}
	if err := authorizeOrder(order, actor); err != nil {
		return nil, err
	}
	if order.Status != model.OrderPending && order.Status != model.OrderFailed {
		return nil, fmt.Errorf("%w: order is %s", ErrConflict, order.Status)
	}

	active, err := s.Payments.ActiveByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if active != nil && active.Status == model.PaymentCompleted {
		return nil, fmt.Errorf("%w: order already paid", ErrConflict)
	}

	transactionID := newTransactionID(orderID)
	token, redirectURL, err := s.Gateway.CreateTransaction(
		transactionID,
		order.TotalAmount,
		mt.Customer{Email: order.Owner.Email, Name: order.Owner.Name},
		[]mt.Item{{
			ID:    strconv.FormatInt(order.ProductID, 10),
			Name:  order.ProductName,
			Price: order.UnitPrice,
			Qty:   int32(order.Quantity),
		}},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	tx, err := s.Payments.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	defer tx.Rollback(ctx)

	if err := s.Payments.SupersedeTx(ctx, tx, orderID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	p := &model.Payment{
		OrderID:       orderID,
		TransactionID: transactionID,
		Gateway:       GatewayMidtrans,
		Amount:        order.TotalAmount,
		Status:        model.PaymentPending,
		SnapToken:     token,
		RedirectURL:   redirectURL,
	}
	id, err := s.Payments.CreateTx(ctx, tx, p)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: a concurrent retry won", ErrConflict)
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if err := s.Orders.SetStatusTx(ctx, tx, orderID, model.OrderPending); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	p.PaymentID = id
	p.CreatedAt = time.Now()
	order.Status = model.OrderPending
	return p, nil
}
