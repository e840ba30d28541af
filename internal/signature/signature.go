// Package signature verifies GitHub webhook HMAC-SHA256 signatures.
//
// Verification uses constant-time comparison (crypto/subtle) to prevent
// timing attacks, and all errors are generic so no format details leak to
// callers that echo them into responses.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

// Verify checks a GitHub X-Hub-Signature-256 header value against the raw
// request body. The header carries "sha256=<hex>"; a bare hex digest is
// also accepted. Returns nil if the signature is valid, error otherwise.
func Verify(body []byte, signature, secret string) error {
	if secret == "" {
		return fmt.Errorf("webhook verification failed")
	}

	if signature == "" {
		return fmt.Errorf("webhook verification failed")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expectedMAC := mac.Sum(nil)

	actualMAC, err := parseSignature(signature)
	if err != nil {
		// Generic error - don't leak format details
		return fmt.Errorf("webhook verification failed")
	}

	if subtle.ConstantTimeCompare(expectedMAC, actualMAC) != 1 {
		return fmt.Errorf("webhook verification failed")
	}

	return nil
}

// parseSignature extracts and decodes the HMAC digest from the header value.
func parseSignature(signature string) ([]byte, error) {
	if strings.HasPrefix(signature, "sha256=") {
		hexSig := strings.TrimPrefix(signature, "sha256=")
		return hex.DecodeString(hexSig)
	}

	return hex.DecodeString(signature)
}

// Compute returns the hex-encoded HMAC-SHA256 digest of body keyed by
// secret. Used for testing and for constructing outbound signatures.
func Compute(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// FormatGitHub formats a hex digest in GitHub's X-Hub-Signature-256 form.
func FormatGitHub(hexSig string) string {
	return "sha256=" + hexSig
}
