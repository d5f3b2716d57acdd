package midtrans

import (
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
)

// Gateway wraps the two Midtrans surfaces the payment flow needs: Snap for
// minting checkout transactions and Core API for pull-based status checks.
type Gateway struct {
	snap      *snap.Client
	core      *coreapi.Client
	serverKey string
}

func NewGateway(serverKey string, production bool) *Gateway {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}

	var s snap.Client
	s.New(serverKey, env)

	var c coreapi.Client
	c.New(serverKey, env)

	return &Gateway{snap: &s, core: &c, serverKey: serverKey}
}

func (g *Gateway) ServerKey() string { return g.serverKey }

type Customer struct {
	Email string
	Name  string
}

type Item struct {
	ID    string
	Name  string
	Price int64
	Qty   int32
}

// CreateTransaction mints a Snap transaction for the given order reference
// and returns the snap token plus the hosted payment page URL.
func (g *Gateway) CreateTransaction(orderRef string, amount int64, cust Customer, items []Item) (string, string, error) {
	details := make([]midtrans.ItemDetails, 0, len(items))
	for _, it := range items {
		details = append(details, midtrans.ItemDetails{
			ID:    it.ID,
			Name:  it.Name,
			Price: it.Price,
			Qty:   it.Qty,
		})
	}

	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderRef,
			GrossAmt: amount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: cust.Name,
			Email: cust.Email,
		},
		Items: &details,
	}

	resp, snapErr := g.snap.CreateTransaction(req)
	if snapErr != nil {
		return "", "", snapErr
	}

	return resp.Token, resp.RedirectURL, nil
}

// TransactionStatus queries the Core API for the authoritative state of a
// transaction. The raw response is returned so callers can persist it as
// the last-seen gateway payload.
func (g *Gateway) TransactionStatus(transactionID string) (string, string, []byte, error) {
	resp, apiErr := g.core.CheckTransaction(transactionID)
	if apiErr != nil {
		return "", "", nil, apiErr
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		return "", "", nil, err
	}

	return resp.TransactionStatus, resp.FraudStatus, raw, nil
}

// VerifySignature checks webhook authenticity:
// hex(sha512(orderID + statusCode + grossAmount + serverKey)).
func VerifySignature(
	orderID string,
	statusCode string,
	grossAmount string,
	signature string,
	serverKey string,
) bool {

	raw := orderID + statusCode + grossAmount + serverKey
	hash := sha512.Sum512([]byte(raw))
	expected := hex.EncodeToString(hash[:])

	return expected == signature
}
