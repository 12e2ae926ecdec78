package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

const signaturePrefix = "sha256="

// verifySignature checks a GitHub X-Hub-Signature-256 header against the raw
// payload. GitHub sends the HMAC SHA-256 of the body as "sha256=<hex>"; the
// comparison is constant-time.
func verifySignature(payload []byte, header, secret string) error {
	if header == "" {
		return errors.New("missing X-Hub-Signature-256 header")
	}
	if !strings.HasPrefix(header, signaturePrefix) {
		return errors.New("invalid signature format, expected 'sha256=<hash>'")
	}
	received := strings.TrimPrefix(header, signaturePrefix)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(received), []byte(expected)) {
		return errors.New("signature mismatch")
	}
	return nil
}
