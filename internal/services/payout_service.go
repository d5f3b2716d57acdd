package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jefthah/My-marketplace-sub000/internal/model"
	"github.com/jefthah/My-marketplace-sub000/internal/repository"
)

// RefundWindow is how long after completion a payout stays refundable.
const RefundWindow = 7 * 24 * time.Hour

type PayoutService struct {
	Payouts PayoutStore
	Log     *slog.Logger
}

func NewPayoutService(payouts PayoutStore, log *slog.Logger) *PayoutService {
	return &PayoutService{Payouts: payouts, Log: log}
}

// RequestRefund records a refund request against a completed payout. No
// funds move; fulfillment is a manual ops step. Eligibility: the payout is
// completed, inside the refund window, and not already refunded.
func (s *PayoutService) RequestRefund(ctx context.Context, transactionID string, actor Actor, reason string) (*model.Payout, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: refund reason is required", ErrValidation)
	}

	payout, err := s.Payouts.ByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if payout == nil {
		return nil, fmt.Errorf("%w: payout for transaction %s", ErrNotFound, transactionID)
	}

	if !actor.Admin && !strings.EqualFold(payout.CustomerEmail, actor.Email) {
		return nil, fmt.Errorf("%w: not your purchase", ErrForbidden)
	}

	if payout.IsRefunded || payout.Status != model.PayoutCompleted {
		return nil, fmt.Errorf("%w: refund already requested", ErrConflict)
	}

	now := time.Now()
	if now.Sub(payout.CompletedAt) > RefundWindow {
		return nil, fmt.Errorf("%w: refund window elapsed", ErrExpired)
	}

	ok, err := s.Payouts.MarkRefundRequested(ctx, payout.PayoutID, reason, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !ok {
		// lost a race against a concurrent request
		return nil, fmt.Errorf("%w: refund already requested", ErrConflict)
	}

	s.Log.Info("refund requested",
		"transaction_id", transactionID,
		"payout_id", payout.PayoutID,
		"amount", payout.Amount)

	payout.Status = model.PayoutRefundRequested
	payout.IsRefunded = true
	payout.RefundReason = &reason
	payout.RefundRequestedAt = &now
	return payout, nil
}

func (s *PayoutService) List(ctx context.Context) ([]model.Payout, error) {
	payouts, err := s.Payouts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return payouts, nil
}

// Stats is the read-only sales rollup for the operator dashboard.
func (s *PayoutService) Stats(ctx context.Context) (repository.PayoutStats, error) {
	stats, err := s.Payouts.Stats(ctx)
	if err != nil {
		return repository.PayoutStats{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return stats, nil
}
