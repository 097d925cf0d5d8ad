package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestSignatureValid(t *testing.T) {
	const secret = "test_secret"
	valid := sign(secret, "order_123", "pay_456")

	assert.True(t, SignatureValid(secret, "order_123", "pay_456", valid))

	// Any change to the signed material or the signature must fail.
	assert.False(t, SignatureValid(secret, "order_124", "pay_456", valid))
	assert.False(t, SignatureValid(secret, "order_123", "pay_457", valid))
	assert.False(t, SignatureValid(secret, "order_123", "pay_456", sign(secret, "order_999", "pay_456")))
	assert.False(t, SignatureValid("other_secret", "order_123", "pay_456", valid))
	assert.False(t, SignatureValid(secret, "order_123", "pay_456", ""))
	assert.False(t, SignatureValid(secret, "order_123", "pay_456", "not-hex"))
}
