package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jefthah/My-marketplace-sub000/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PayoutRepository struct {
	DB *pgxpool.Pool
}

func NewPayoutRepository(db *pgxpool.Pool) *PayoutRepository {
	return &PayoutRepository{DB: db}
}

const payoutColumns = `
	payout_id, transaction_id, order_id, payment_id, amount, status,
	product_name, customer_email, customer_name, completed_at,
	is_refunded, refund_reason, refund_requested_at
`

func scanPayout(row pgx.Row) (*model.Payout, error) {
	var p model.Payout
	err := row.Scan(
		&p.PayoutID,
		&p.TransactionID,
		&p.OrderID,
		&p.PaymentID,
		&p.Amount,
		&p.Status,
		&p.ProductName,
		&p.CustomerEmail,
		&p.CustomerName,
		&p.CompletedAt,
		&p.IsRefunded,
		&p.RefundReason,
		&p.RefundRequestedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateIfAbsentTx inserts the payout keyed by the unique transaction_id.
// The ON CONFLICT clause is the idempotency mechanism: the insert either
// wins or finds the row already there, never both. Returns false when the
// payout already existed.
func (r *PayoutRepository) CreateIfAbsentTx(ctx context.Context, tx pgx.Tx, p *model.Payout) (bool, error) {
	var payoutID int64
	q := `
		INSERT INTO payouts
			(transaction_id, order_id, payment_id, amount, status,
			 product_name, customer_email, customer_name, completed_at, is_refunded)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE)
		ON CONFLICT (transaction_id) DO NOTHING
		RETURNING payout_id
	`
	err := tx.QueryRow(
		ctx, q,
		p.TransactionID, p.OrderID, p.PaymentID, p.Amount, p.Status,
		p.ProductName, p.CustomerEmail, p.CustomerName, p.CompletedAt,
	).Scan(&payoutID)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	p.PayoutID = payoutID
	return true, nil
}

func (r *PayoutRepository) ByTransactionID(ctx context.Context, transactionID string) (*model.Payout, error) {
	q := `SELECT ` + payoutColumns + ` FROM payouts WHERE transaction_id=$1`
	p, err := scanPayout(r.DB.QueryRow(ctx, q, transactionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (r *PayoutRepository) List(ctx context.Context) ([]model.Payout, error) {
	q := `SELECT ` + payoutColumns + ` FROM payouts ORDER BY payout_id DESC`
	rows, err := r.DB.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Payout
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// MarkRefundRequested records the refund request, guarded so a raced second
// request loses: only a completed, not-yet-refunded payout matches.
func (r *PayoutRepository) MarkRefundRequested(ctx context.Context, payoutID int64, reason string, requestedAt time.Time) (bool, error) {
	tag, err := r.DB.Exec(ctx, `
		UPDATE payouts
		SET status='refund_requested',
		    is_refunded=TRUE,
		    refund_reason=$2,
		    refund_requested_at=$3
		WHERE payout_id=$1 AND status='completed' AND is_refunded=FALSE
	`, payoutID, reason, requestedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

type PayoutStats struct {
	TotalSales     int64 `json:"total_sales"`
	TotalRevenue   int64 `json:"total_revenue"`
	RefundRequests int64 `json:"refund_requests"`
}

func (r *PayoutRepository) Stats(ctx context.Context) (PayoutStats, error) {
	var s PayoutStats
	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(amount), 0),
		       COUNT(*) FILTER (WHERE status='refund_requested')
		FROM payouts
	`).Scan(&s.TotalSales, &s.TotalRevenue, &s.RefundRequests)
	return s, err
}
