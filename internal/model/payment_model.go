package model

import "time"

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
	PaymentCancelled  PaymentStatus = "cancelled"
	// PaymentSuperseded marks an attempt replaced by a retry. Kept for audit,
	// never reported back to the gateway.
	PaymentSuperseded PaymentStatus = "superseded"
)

// Active means the payment still occupies the order's single payment slot.
func (s PaymentStatus) Active() bool {
	return s == PaymentPending || s == PaymentProcessing || s == PaymentCompleted
}

// Terminal statuses are never advanced again except by a gateway-confirmed
// completion, which outranks a local expiry classification.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentCompleted || s == PaymentFailed || s == PaymentCancelled || s == PaymentSuperseded
}

type Payment struct {
	PaymentID       int64         `db:"payment_id" json:"payment_id"`
	OrderID         int64         `db:"order_id" json:"order_id"`
	TransactionID   string        `db:"transaction_id" json:"transaction_id"`
	Gateway         string        `db:"gateway" json:"gateway"`
	Amount          int64         `db:"amount" json:"amount"`
	Status          PaymentStatus `db:"status" json:"status"`
	GatewayResponse []byte        `db:"gateway_response" json:"-"`
	SnapToken       string        `db:"snap_token" json:"snap_token,omitempty"`
	RedirectURL     string        `db:"redirect_url" json:"redirect_url,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	PaymentDate     *time.Time    `db:"payment_date" json:"payment_date,omitempty"`
}
