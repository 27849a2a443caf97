package service

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Valid 32-byte key in hex (64 chars)
const testAESKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestAESEncryptionService_InvalidKeys(t *testing.T) {
	for _, key := range []string{"shortkey", "zz", "0123456789abcdef"} {
		_, err := NewAESEncryptionService(key)
		assert.Error(t, err, key)
	}
}

func TestAESEncryptionService_RoundTrip(t *testing.T) {
	svc, err := NewAESEncryptionService(testAESKey)
	require.NoError(t, err)

	payload := `{"recipient_owner_id":"b7c1","amount":"5000","from_currency":"HTG"}`
	sealed, err := svc.Encrypt(payload)
	require.NoError(t, err)
	assert.NotContains(t, sealed, "5000")

	opened, err := svc.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, payload, opened)
}

func TestAESEncryptionService_FreshNonce(t *testing.T) {
	svc, err := NewAESEncryptionService(testAESKey)
	require.NoError(t, err)

	c1, err := svc.Encrypt("same")
	require.NoError(t, err)
	c2, err := svc.Encrypt("same")
	require.NoError(t, err)
	assert.NotEqual(t, c1, c2)
}

func TestAESEncryptionService_RejectsBadInput(t *testing.T) {
	svc, err := NewAESEncryptionService(testAESKey)
	require.NoError(t, err)

	sealed, err := svc.Encrypt("payload")
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	tampered := base64.RawURLEncoding.EncodeToString(raw)

	_, err = svc.Decrypt(tampered)
	assert.Error(t, err)

	_, err = svc.Decrypt("!!not-base64!!")
	assert.Error(t, err)

	_, err = svc.Decrypt("AAAA")
	assert.ErrorIs(t, err, errCiphertextTooShort)
}
