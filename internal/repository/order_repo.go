package repository

import (
	"context"
	"errors"

	"github.com/jefthah/My-marketplace-sub000/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderRepository struct {
	DB *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{DB: db}
}

const orderColumns = `
	order_id, owner_kind, user_id, guest_email, guest_name,
	product_id, product_name, download_url, quantity, unit_price,
	total_amount, status, created_at
`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	var kind string
	var userID *int64
	var email, name *string

	err := row.Scan(
		&o.OrderID,
		&kind,
		&userID,
		&email,
		&name,
		&o.ProductID,
		&o.ProductName,
		&o.DownloadURL,
		&o.Quantity,
		&o.UnitPrice,
		&o.TotalAmount,
		&o.Status,
		&o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.Owner = model.Owner{Kind: model.OwnerKind(kind)}
	if userID != nil {
		o.Owner.UserID = *userID
	}
	if email != nil {
		o.Owner.Email = *email
	}
	if name != nil {
		o.Owner.Name = *name
	}
	return &o, nil
}

func (r *OrderRepository) Create(ctx context.Context, o *model.Order) (int64, error) {
	var userID *int64
	if o.Owner.IsUser() {
		id := o.Owner.UserID
		userID = &id
	}

	var orderID int64
	q := `
		INSERT INTO orders
			(owner_kind, user_id, guest_email, guest_name,
			 product_id, product_name, download_url, quantity, unit_price,
			 total_amount, status, created_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		RETURNING order_id
	`
	err := r.DB.QueryRow(
		ctx, q,
		o.Owner.Kind, userID, o.Owner.Email, o.Owner.Name,
		o.ProductID, o.ProductName, o.DownloadURL, o.Quantity, o.UnitPrice,
		o.TotalAmount, o.Status,
	).Scan(&orderID)

	return orderID, err
}

func (r *OrderRepository) ByID(ctx context.Context, orderID int64) (*model.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE order_id=$1`
	o, err := scanOrder(r.DB.QueryRow(ctx, q, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return o, nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE user_id=$1 ORDER BY order_id DESC`
	rows, err := r.DB.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (r *OrderRepository) SetStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE orders SET status=$2 WHERE order_id=$1`, orderID, status)
	return err
}

func (r *OrderRepository) SetStatusTx(ctx context.Context, tx pgx.Tx, orderID int64, status model.OrderStatus) error {
	_, err := tx.Exec(ctx,
		`UPDATE orders SET status=$2 WHERE order_id=$1`, orderID, status)
	return err
}

// FailPendingTx fails only orders still pending; orders already moved on by
// a completed payment are left alone.
func (r *OrderRepository) FailPendingTx(ctx context.Context, tx pgx.Tx, orderIDs []int64) error {
	if len(orderIDs) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx,
		`UPDATE orders SET status='failed' WHERE order_id = ANY($1) AND status='pending'`,
		orderIDs)
	return err
}

// CancelPendingTx flips a still-pending order to cancelled. Returns false
// when the order was not pending anymore (already confirmed, failed, ...).
func (r *OrderRepository) CancelPendingTx(ctx context.Context, tx pgx.Tx, orderID int64) (bool, error) {
	tag, err := tx.Exec(ctx,
		`UPDATE orders SET status='cancelled' WHERE order_id=$1 AND status='pending'`,
		orderID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
