package services

import "github.com/jefthah/My-marketplace-sub000/internal/model"

// Outcome is the result of mapping a gateway report onto internal state.
// An empty OrderStatus means the order is left as it is.
type Outcome struct {
	PaymentStatus model.PaymentStatus
	OrderStatus   model.OrderStatus
	Notify        bool
}

// MapGatewayStatus translates the gateway's transaction/fraud vocabulary
// into internal payment and order statuses.
//
//	capture+accept    -> completed / confirmed / notify
//	capture+challenge -> processing
//	capture+other     -> failed
//	settlement        -> completed / confirmed / notify
//	pending           -> pending
//	deny|expire|cancel-> failed / cancelled
//	anything else     -> pending
func MapGatewayStatus(transactionStatus, fraudStatus string) Outcome {
	switch transactionStatus {
	case "capture":
		switch fraudStatus {
		case "accept":
			return Outcome{model.PaymentCompleted, model.OrderConfirmed, true}
		case "challenge":
			return Outcome{PaymentStatus: model.PaymentProcessing}
		default:
			return Outcome{PaymentStatus: model.PaymentFailed}
		}
	case "settlement":
		return Outcome{model.PaymentCompleted, model.OrderConfirmed, true}
	case "pending":
		return Outcome{PaymentStatus: model.PaymentPending}
	case "deny", "expire", "cancel":
		return Outcome{model.PaymentFailed, model.OrderCancelled, false}
	default:
		return Outcome{PaymentStatus: model.PaymentPending}
	}
}

// Reconcile applies monotonicity on top of the raw mapping, given the
// currently stored payment status:
//
//   - a stored `completed` payment is never reverted; replays re-save the
//     raw payload only, with no order change and no notification
//   - a locally terminal payment (expired sweep, cancellation, supersede)
//     can only be revived by a gateway-confirmed completion; the gateway
//     is authoritative over local classifications, even when it reports late
func Reconcile(current model.PaymentStatus, transactionStatus, fraudStatus string) Outcome {
	if current == model.PaymentCompleted {
		return Outcome{PaymentStatus: model.PaymentCompleted}
	}

	out := MapGatewayStatus(transactionStatus, fraudStatus)

	if current.Terminal() && out.PaymentStatus != model.PaymentCompleted {
		return Outcome{PaymentStatus: current}
	}

	return out
}
