package midtrans

import (
	"crypto/sha512"
	"encoding/hex"
	"testing"
)

func signFor(orderID, statusCode, grossAmount, serverKey string) string {
	hash := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(hash[:])
}

func TestVerifySignature(t *testing.T) {
	const (
		orderID   = "ORDER-42-7f3a1c9e"
		status    = "200"
		gross     = "150000.00"
		serverKey = "SB-Mid-server-testkey"
	)
	sig := signFor(orderID, status, gross, serverKey)

	if !VerifySignature(orderID, status, gross, sig, serverKey) {
		t.Fatal("valid signature rejected")
	}
}

func TestVerifySignatureRejectsTampering(t *testing.T) {
	const (
		orderID   = "ORDER-42-7f3a1c9e"
		status    = "200"
		gross     = "150000.00"
		serverKey = "SB-Mid-server-testkey"
	)
	sig := signFor(orderID, status, gross, serverKey)

	tests := []struct {
		name                                string
		orderID, status, gross, signatureIn string
	}{
		{"different order", "ORDER-43-7f3a1c9e", status, gross, sig},
		{"different status code", orderID, "201", gross, sig},
		{"different gross amount", orderID, status, "150001.00", sig},
		{"truncated signature", orderID, status, gross, sig[:len(sig)-1]},
		{"empty signature", orderID, status, gross, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if VerifySignature(tt.orderID, tt.status, tt.gross, tt.signatureIn, serverKey) {
				t.Error("tampered input accepted")
			}
		})
	}

	// every single-character corruption of the signature must flip the result
	for i := 0; i < len(sig); i += 17 {
		mutated := []byte(sig)
		if mutated[i] == 'a' {
			mutated[i] = 'b'
		} else {
			mutated[i] = 'a'
		}
		if VerifySignature(orderID, status, gross, string(mutated), serverKey) {
			t.Errorf("signature mutated at index %d accepted", i)
		}
	}
}

func TestVerifySignatureWrongServerKey(t *testing.T) {
	sig := signFor("ORDER-1-x", "200", "5000.00", "key-a")
	if VerifySignature("ORDER-1-x", "200", "5000.00", sig, "key-b") {
		t.Fatal("signature from a different server key accepted")
	}
}
