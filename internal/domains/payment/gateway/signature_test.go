package gateway

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignProducesHexDigest(t *testing.T) {
	sig := Sign("secret", []byte(`{"amount":100}`))

	assert.Len(t, sig, 64)
	assert.Equal(t, sig, Sign("secret", []byte(`{"amount":100}`)))
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"transaction_id":"txn_1","order_id":"ord_1"}`)
	sig := Sign("secret", payload)

	assert.True(t, VerifySignature("secret", payload, sig))

	// Uppercase hex from the provider still verifies.
	assert.True(t, VerifySignature("secret", payload, strings.ToUpper(sig)))
}

func TestVerifySignatureRejects(t *testing.T) {
	payload := []byte(`{"amount":100}`)
	sig := Sign("secret", payload)

	assert.False(t, VerifySignature("other-secret", payload, sig), "wrong secret")
	assert.False(t, VerifySignature("secret", []byte(`{"amount":101}`), sig), "tampered payload")
	assert.False(t, VerifySignature("secret", payload, ""), "empty signature")
	assert.False(t, VerifySignature("", payload, sig), "empty secret")
}

func TestSignatureCoversRawBytesNotReserialized(t *testing.T) {
	// Same JSON value, different byte layout. Only the exact wire bytes
	// must verify.
	compact := []byte(`{"a":1}`)
	spaced := []byte(`{"a": 1}`)

	sig := Sign("secret", compact)
	assert.True(t, VerifySignature("secret", compact, sig))
	assert.False(t, VerifySignature("secret", spaced, sig))
}
