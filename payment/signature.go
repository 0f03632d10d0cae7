// Package payment authenticates payment processor callbacks.
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// CanonicalString is the message the processor signs for a payment callback.
func CanonicalString(processorOrderID, paymentID string) string {
	return processorOrderID + "|" + paymentID
}

// Sign returns the lowercase hex HMAC-SHA256 of the canonical string.
func Sign(secret []byte, processorOrderID, paymentID string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(CanonicalString(processorOrderID, paymentID)))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares signature against the expected value in constant
// time. The comparison is exact: case and length must match.
func VerifySignature(secret []byte, processorOrderID, paymentID, signature string) bool {
	expected := Sign(secret, processorOrderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}
