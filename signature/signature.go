// Package signature provides HMAC-SHA256 signing and verification for
// outbound webhook deliveries.
package signature

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Header names added to signed deliveries.
const (
	SignatureHeader = "X-Conduit-Signature"
	TimestampHeader = "X-Conduit-Timestamp"
)

// SecretPrefix marks generated signing secrets.
const SecretPrefix = "chsec_"

// Sign generates the HMAC-SHA256 signature for the given payload.
// The content to sign is "{timestamp}.{payload}".
// Returns a versioned signature in the format "v1=<hex>".
func Sign(payload []byte, secret string, timestamp int64) string {
	content := fmt.Sprintf("%d.%s", timestamp, payload)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(content))
	return "v1=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks whether sig matches the expected HMAC-SHA256 signature
// for the payload, secret, and timestamp.
func Verify(payload []byte, secret string, timestamp int64, sig string) bool {
	expected := Sign(payload, secret, timestamp)
	return hmac.Equal([]byte(expected), []byte(sig))
}

// VerifyWithTolerance additionally rejects timestamps further than
// tolerance from now, bounding replay of captured deliveries.
func VerifyWithTolerance(payload []byte, secret string, timestamp int64, sig string, tolerance time.Duration) bool {
	age := time.Since(time.Unix(timestamp, 0))
	if age < 0 {
		age = -age
	}
	if age > tolerance {
		return false
	}
	return Verify(payload, secret, timestamp, sig)
}

// GenerateSecret creates a cryptographically random signing secret.
// Format: "chsec_" + 32 bytes hex = 70 characters total.
func GenerateSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("conduit: failed to generate random secret: " + err.Error())
	}
	return SecretPrefix + hex.EncodeToString(b)
}
