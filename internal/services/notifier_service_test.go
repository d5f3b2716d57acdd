package services_test

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/jefthah/My-marketplace-sub000/internal/model"
	"github.com/jefthah/My-marketplace-sub000/internal/services"
)

func TestNotifyDispatcherDeliversAll(t *testing.T) {
	sender := &senderMock{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := services.NewNotifyDispatcher(sender, log, 3, 32)

	for i := 0; i < 20; i++ {
		d.Enqueue(fmt.Sprintf("buyer%d@example.com", i),
			model.OrderSummary{OrderID: int64(i), ProductName: "Starter Pack", Quantity: 1, TotalAmount: 150000},
			model.DownloadInfo{URL: "https://cdn.example/starter.zip"})
	}
	d.Close()

	if got := sender.count(); got != 20 {
		t.Fatalf("delivered %d confirmations, want 20", got)
	}
}

func TestNotifyDispatcherSwallowsSendFailures(t *testing.T) {
	sender := &senderMock{err: errors.New("smtp down")}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := services.NewNotifyDispatcher(sender, log, 1, 4)

	// a failing sender must never panic or block the producer
	d.Enqueue("buyer@example.com", model.OrderSummary{OrderID: 1}, model.DownloadInfo{})
	d.Close()

	if got := sender.count(); got != 0 {
		t.Fatalf("recorded %d sends from a failing sender", got)
	}
}
