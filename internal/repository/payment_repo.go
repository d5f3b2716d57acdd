package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jefthah/My-marketplace-sub000/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PaymentRepository struct {
	DB *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{DB: db}
}

// Begin starts a ledger transaction. Transitions touching both payments and
// orders go through one of these so a lost write cannot split the pair.
func (r *PaymentRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.DB.Begin(ctx)
}

const paymentColumns = `
	payment_id, order_id, transaction_id, gateway, amount, status,
	gateway_response, snap_token, redirect_url, created_at, payment_date
`

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var p model.Payment
	err := row.Scan(
		&p.PaymentID,
		&p.OrderID,
		&p.TransactionID,
		&p.Gateway,
		&p.Amount,
		&p.Status,
		&p.GatewayResponse,
		&p.SnapToken,
		&p.RedirectURL,
		&p.CreatedAt,
		&p.PaymentDate,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) Create(ctx context.Context, p *model.Payment) (int64, error) {
	var paymentID int64
	q := `
		INSERT INTO payments
			(order_id, transaction_id, gateway, amount, status,
			 gateway_response, snap_token, redirect_url, created_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING payment_id
	`
	err := r.DB.QueryRow(
		ctx, q,
		p.OrderID, p.TransactionID, p.Gateway, p.Amount, p.Status,
		p.GatewayResponse, p.SnapToken, p.RedirectURL,
	).Scan(&paymentID)

	return paymentID, err
}

// CreateTx is Create inside an existing ledger transaction (retry flow).
func (r *PaymentRepository) CreateTx(ctx context.Context, tx pgx.Tx, p *model.Payment) (int64, error) {
	var paymentID int64
	q := `
		INSERT INTO payments
			(order_id, transaction_id, gateway, amount, status,
			 gateway_response, snap_token, redirect_url, created_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING payment_id
	`
	err := tx.QueryRow(
		ctx, q,
		p.OrderID, p.TransactionID, p.Gateway, p.Amount, p.Status,
		p.GatewayResponse, p.SnapToken, p.RedirectURL,
	).Scan(&paymentID)

	return paymentID, err
}

func (r *PaymentRepository) ByID(ctx context.Context, paymentID int64) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE payment_id=$1`
	p, err := scanPayment(r.DB.QueryRow(ctx, q, paymentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (r *PaymentRepository) ByTransactionID(ctx context.Context, transactionID string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE transaction_id=$1`
	p, err := scanPayment(r.DB.QueryRow(ctx, q, transactionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// ActiveByOrderID returns the payment currently occupying the order's single
// payment slot (pending, processing or completed), or nil.
func (r *PaymentRepository) ActiveByOrderID(ctx context.Context, orderID int64) (*model.Payment, error) {
	q := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE order_id=$1 AND status IN ('pending','processing','completed')
		ORDER BY payment_id DESC
		LIMIT 1
	`
	p, err := scanPayment(r.DB.QueryRow(ctx, q, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (r *PaymentRepository) ListByUser(ctx context.Context, userID int64) ([]model.Payment, error) {
	q := `
		SELECT p.payment_id, p.order_id, p.transaction_id, p.gateway, p.amount,
		       p.status, p.gateway_response, p.snap_token, p.redirect_url,
		       p.created_at, p.payment_date
		FROM payments p
		JOIN orders o ON o.order_id = p.order_id
		WHERE o.user_id=$1
		ORDER BY p.payment_id DESC
	`
	rows, err := r.DB.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// ApplyStatusTx writes a reconciled status plus the last-seen gateway
// payload. paymentDate is set only on completion. The write is a
// compare-and-set against the status the reconciliation was computed from:
// zero rows affected means a concurrent handler advanced the payment first,
// and the caller must not act on its stale outcome.
func (r *PaymentRepository) ApplyStatusTx(
	ctx context.Context,
	tx pgx.Tx,
	paymentID int64,
	from, to model.PaymentStatus,
	gatewayResponse []byte,
	paymentDate *time.Time,
) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE payments
		SET status=$3,
		    gateway_response=COALESCE($4, gateway_response),
		    payment_date=COALESCE($5, payment_date)
		WHERE payment_id=$1 AND status=$2
	`, paymentID, from, to, gatewayResponse, paymentDate)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SaveGatewayResponse re-saves the raw payload without touching status.
// Used for replayed webhooks on an already-completed payment.
func (r *PaymentRepository) SaveGatewayResponse(ctx context.Context, paymentID int64, gatewayResponse []byte) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE payments SET gateway_response=$2 WHERE payment_id=$1
	`, paymentID, gatewayResponse)
	return err
}

type ExpiredPayment struct {
	PaymentID int64
	OrderID   int64
}

// SweepExpiredTx fails every pending payment created at or before the
// cutoff. The status='pending' predicate makes a second sweep a no-op.
func (r *PaymentRepository) SweepExpiredTx(ctx context.Context, tx pgx.Tx, cutoff time.Time) ([]ExpiredPayment, error) {
	rows, err := tx.Query(ctx, `
		UPDATE payments
		SET status='failed'
		WHERE status='pending' AND created_at <= $1
		RETURNING payment_id, order_id
	`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExpiredPayment
	for rows.Next() {
		var e ExpiredPayment
		if err := rows.Scan(&e.PaymentID, &e.OrderID); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CancelPendingTx voids an order's not-yet-settled attempt during a
// user-initiated cancellation.
func (r *PaymentRepository) CancelPendingTx(ctx context.Context, tx pgx.Tx, orderID int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE payments
		SET status='cancelled'
		WHERE order_id=$1 AND status IN ('pending','processing')
	`, orderID)
	return err
}

// ExpirePendingTx fails a single stale payment. The pending guard means a
// webhook that completed the payment in the meantime wins the race.
func (r *PaymentRepository) ExpirePendingTx(ctx context.Context, tx pgx.Tx, paymentID int64) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE payments SET status='failed' WHERE payment_id=$1 AND status='pending'
	`, paymentID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SupersedeTx retires the order's previous attempts before a retry mints a
// new one. Completed payments are never superseded.
func (r *PaymentRepository) SupersedeTx(ctx context.Context, tx pgx.Tx, orderID int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE payments
		SET status='superseded'
		WHERE order_id=$1 AND status IN ('pending','processing','failed')
	`, orderID)
	return err
}
