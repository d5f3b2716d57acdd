package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jefthah/My-marketplace-sub000/internal/model"
)

// NotificationSender is the outbound mail collaborator. Dispatch is fire
// and forget: the reconciliation path never waits on it.
type NotificationSender interface {
	SendPurchaseConfirmation(ctx context.Context, recipient string, summary model.OrderSummary, download model.DownloadInfo) error
}

type purchaseNotice struct {
	recipient string
	summary   model.OrderSummary
	download  model.DownloadInfo
}

// NotifyDispatcher runs purchase confirmations on a bounded worker pool.
// Failures are logged and dropped; a lost confirmation is recoverable by an
// operator resend, never by failing the webhook. There is no outbox backing
// this queue, so notices enqueued right before a crash are lost.
type NotifyDispatcher struct {
	sender NotificationSender
	log    *slog.Logger
	jobs   chan purchaseNotice
	wg     sync.WaitGroup
}

func NewNotifyDispatcher(sender NotificationSender, log *slog.Logger, workers, buffer int) *NotifyDispatcher {
	if workers < 1 {
		workers = 1
	}
	d := &NotifyDispatcher{
		sender: sender,
		log:    log,
		jobs:   make(chan purchaseNotice, buffer),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

func (d *NotifyDispatcher) worker() {
	defer d.wg.Done()
	for n := range d.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := d.sender.SendPurchaseConfirmation(ctx, n.recipient, n.summary, n.download); err != nil {
			d.log.Error("purchase confirmation failed",
				"recipient", n.recipient,
				"order_id", n.summary.OrderID,
				"err", err)
		}
		cancel()
	}
}

// Enqueue never blocks the caller. When the queue is full the notice is
// dropped and logged.
func (d *NotifyDispatcher) Enqueue(recipient string, summary model.OrderSummary, download model.DownloadInfo) {
	select {
	case d.jobs <- purchaseNotice{recipient: recipient, summary: summary, download: download}:
	default:
		d.log.Warn("notification queue full, dropping confirmation",
			"recipient", recipient,
			"order_id", summary.OrderID)
	}
}

// Close drains the queue and stops the workers.
func (d *NotifyDispatcher) Close() {
	close(d.jobs)
	d.wg.Wait()
}
