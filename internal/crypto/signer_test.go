package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestSignAndRecoverRequest(t *testing.T) {
	signer, err := NewSigner(testKey)
	require.NoError(t, err)

	body := []byte(`{"market_id":1,"side":"yes","amount":10000}`)
	sig, err := signer.SignRequest(1_700_000_000, "POST", "/v1/bets", body)
	require.NoError(t, err)

	got, err := RecoverSigner(1_700_000_000, "POST", "/v1/bets", body, sig)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), got)

	// Any change to the signed material recovers a different address.
	other, err := RecoverSigner(1_700_000_000, "POST", "/v1/bets", []byte(`{}`), sig)
	require.NoError(t, err)
	assert.NotEqual(t, signer.Address(), other)

	_, err = RecoverSigner(1_700_000_000, "POST", "/v1/bets", body, "0xdeadbeef")
	assert.Error(t, err)
}

func TestEncryptDecryptKey(t *testing.T) {
	blob, err := EncryptKey(testKey, "hunter22")
	require.NoError(t, err)

	got, err := DecryptKey(blob, "hunter22")
	require.NoError(t, err)
	assert.Equal(t, testKey, got)

	_, err = DecryptKey(blob, "wrong")
	assert.Error(t, err)
}

func TestWebhookAuthVerify(t *testing.T) {
	auth := &WebhookAuth{Secret: "topsecret"}
	body := []byte(`{"event":"market_resolved"}`)

	headers := auth.HeadersAt(body, 1_700_000_000)
	assert.True(t, auth.Verify(body, 1_700_000_000, headers["X-Predictd-Signature"]))
	assert.False(t, auth.Verify(body, 1_700_000_001, headers["X-Predictd-Signature"]))
	assert.False(t, auth.Verify([]byte("tampered"), 1_700_000_000, headers["X-Predictd-Signature"]))
}
