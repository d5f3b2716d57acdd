package resend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jefthah/My-marketplace-sub000/internal/model"
)

type ResendMailer struct {
	apiKey  string
	from    string
	client  *http.Client
	baseURL string
}

func NewResendMailer(from string) (*ResendMailer, error) {
	key := os.Getenv("RESEND_API_KEY")
	if key == "" {
		return nil, errors.New("RESEND_API_KEY not set")
	}

	return &ResendMailer{
		apiKey: key,
		from:   from,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
		baseURL: "https://api.resend.com",
	}, nil
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (m *ResendMailer) SendPurchaseConfirmation(
	ctx context.Context,
	recipient string,
	summary model.OrderSummary,
	download model.DownloadInfo,
) error {
	body := sendRequest{
		From:    m.from,
		To:      []string{recipient},
		Subject: fmt.Sprintf("Your order #%d is confirmed", summary.OrderID),
		HTML: fmt.Sprintf(`
			<p>Thank you for your purchase!</p>
			<p>%s &times; %d — total %d</p>
			<p><a href="%s">Download your product</a></p>
		`, summary.ProductName, summary.Quantity, summary.TotalAmount, download.URL),
	}

	b, _ := json.Marshal(body)

	req, _ := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		m.baseURL+"/emails",
		bytes.NewBuffer(b),
	)

	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		buf := new(bytes.Buffer)
		buf.ReadFrom(resp.Body)
		return errors.New(
			"failed to send purchase confirmation: " + buf.String(),
		)
	}

	return nil
}
