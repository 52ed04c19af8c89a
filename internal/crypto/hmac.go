package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"
)

// WebhookAuth signs outgoing webhook deliveries so receivers can verify the
// payload came from this service. The signature is
// HMAC-SHA256(secret, timestamp || body), base64-encoded.
type WebhookAuth struct {
	Secret string
}

// Headers returns the delivery headers for a webhook payload.
//
// Returned header keys:
//   - X-Predictd-Timestamp
//   - X-Predictd-Signature
func (w *WebhookAuth) Headers(body []byte) map[string]string {
	return w.HeadersAt(body, time.Now().Unix())
}

// HeadersAt is like Headers but takes the Unix timestamp explicitly, which
// keeps tests deterministic.
func (w *WebhookAuth) HeadersAt(body []byte, unixTS int64) map[string]string {
	ts := strconv.FormatInt(unixTS, 10)
	return map[string]string{
		"X-Predictd-Timestamp": ts,
		"X-Predictd-Signature": hmacSHA256Base64([]byte(w.Secret), ts, body),
	}
}

// Verify checks a received signature against the payload and timestamp.
func (w *WebhookAuth) Verify(body []byte, unixTS int64, signature string) bool {
	expected := hmacSHA256Base64([]byte(w.Secret), strconv.FormatInt(unixTS, 10), body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// String returns a redacted representation suitable for logging.
func (w *WebhookAuth) String() string {
	s := w.Secret
	if len(s) <= 4 {
		return "WebhookAuth{secret=****}"
	}
	return fmt.Sprintf("WebhookAuth{secret=%s****}", s[:4])
}

func hmacSHA256Base64(key []byte, ts string, body []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(ts))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
