package model

import (
	"errors"

	"github.com/shopspring/decimal"
)

// GatewayNotification is the parsed webhook body. It is never persisted as
// its own entity; after reconciliation the raw payload is folded into
// Payment.GatewayResponse and the struct is discarded.
type GatewayNotification struct {
	TransactionID        string `json:"order_id"`
	TransactionStatus    string `json:"transaction_status"`
	FraudStatus          string `json:"fraud_status"`
	PaymentType          string `json:"payment_type"`
	GrossAmount          string `json:"gross_amount"`
	StatusCode           string `json:"status_code"`
	SignatureKey         string `json:"signature_key"`
	GatewayTransactionID string `json:"transaction_id"`
}

// Validate checks the fields the receiver cannot proceed without. The
// signature is checked separately, after this passes.
func (n GatewayNotification) Validate() error {
	if n.TransactionID == "" {
		return errors.New("missing order_id")
	}
	if n.TransactionStatus == "" {
		return errors.New("missing transaction_status")
	}
	if n.GrossAmount == "" {
		return errors.New("missing gross_amount")
	}
	return nil
}

// SignatureStatusCode is the status_code used in the signature formula;
// the gateway omits it on some notification types, in which case "200" is
// the documented default.
func (n GatewayNotification) SignatureStatusCode() string {
	if n.StatusCode == "" {
		return "200"
	}
	return n.StatusCode
}

// Gross parses the decimal gross_amount string. Returns false when the
// field is not a valid decimal.
func (n GatewayNotification) Gross() (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(n.GrossAmount)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
