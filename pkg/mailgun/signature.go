package mailgun

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrInvalidSignature is returned when a webhook signature does not verify
var ErrInvalidSignature = errors.New("invalid signature")

// Sign computes the webhook signature for timestamp and token.
func Sign(signingKey, timestamp, token string) string {
	mac := hmac.New(sha256.New, []byte(signingKey))
	mac.Write([]byte(timestamp + token))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks hex(HMAC-SHA256(key, timestamp+token)) against
// signature in constant time. An empty key never verifies.
func VerifySignature(signingKey, timestamp, token, signature string) error {
	if signingKey == "" || signature == "" {
		return ErrInvalidSignature
	}
	expected := Sign(signingKey, timestamp, token)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}
