package model

import "time"

type PayoutStatus string

const (
	PayoutCompleted       PayoutStatus = "completed"
	PayoutRefundRequested PayoutStatus = "refund_requested"
)

// Payout is the ledger record of a completed sale. Created exactly once per
// transaction id; the product/customer fields are snapshotted at creation
// and never updated afterwards.
type Payout struct {
	PayoutID      int64        `db:"payout_id" json:"payout_id"`
	TransactionID string       `db:"transaction_id" json:"transaction_id"`
	OrderID       int64        `db:"order_id" json:"order_id"`
	PaymentID     int64        `db:"payment_id" json:"payment_id"`
	Amount        int64        `db:"amount" json:"amount"`
	Status        PayoutStatus `db:"status" json:"status"`
	ProductName   string       `db:"product_name" json:"product_name"`
	CustomerEmail string       `db:"customer_email" json:"customer_email"`
	CustomerName  string       `db:"customer_name" json:"customer_name"`
	CompletedAt   time.Time    `db:"completed_at" json:"completed_at"`

	IsRefunded        bool       `db:"is_refunded" json:"is_refunded"`
	RefundReason      *string    `db:"refund_reason" json:"refund_reason,omitempty"`
	RefundRequestedAt *time.Time `db:"refund_requested_at" json:"refund_requested_at,omitempty"`
}
