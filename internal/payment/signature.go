package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureValid recomputes the checkout signature and compares it to
// the one the client submitted. The signature is the hex-encoded
// HMAC-SHA256 of "orderID|paymentID" under the gateway key secret; the
// comparison is constant time. A booking must never be confirmed on a
// mismatch.
func SignatureValid(secret, orderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
