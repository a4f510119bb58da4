package mfa

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAESGCMEncryptor_RoundTrip(t *testing.T) {
	t.Parallel()

	enc := NewAESGCMEncryptor(StaticKeyProvider{KeyBytes: bytes.Repeat([]byte{7}, 32)})
	scope := Scope{UserID: 42, Purpose: PurposeTOTPSecret}

	sealed, err := enc.Encrypt([]byte("JBSWY3DPEHPK3PXP"), scope)
	require.NoError(t, err)

	plain, err := enc.Decrypt(sealed, scope)
	require.NoError(t, err)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", string(plain))

	_, err = enc.Decrypt(sealed, Scope{UserID: 43, Purpose: PurposeTOTPSecret})
	require.ErrorIs(t, err, ErrDecryptFailed)

	sealed[len(sealed)-1] ^= 0xff
	_, err = enc.Decrypt(sealed, scope)
	require.ErrorIs(t, err, ErrDecryptFailed)
}

func TestAESGCMEncryptor_Errors(t *testing.T) {
	t.Parallel()

	scope := Scope{UserID: 1, Purpose: PurposeTOTPSecret}

	_, err := NewAESGCMEncryptor(StaticKeyProvider{KeyBytes: []byte("short")}).Encrypt([]byte("x"), scope)
	require.ErrorIs(t, err, ErrInvalidKeyLength)

	_, err = NewAESGCMEncryptor(StaticKeyProvider{}).Encrypt([]byte("x"), scope)
	require.ErrorIs(t, err, ErrMissingStaticKey)

	var nilEnc *AESGCMEncryptor
	_, err = nilEnc.Encrypt([]byte("x"), scope)
	require.ErrorIs(t, err, ErrEncryptorNotConfigured)

	enc := NewAESGCMEncryptor(StaticKeyProvider{KeyBytes: bytes.Repeat([]byte{1}, 32)})
	_, err = enc.Encrypt(nil, scope)
	require.ErrorIs(t, err, ErrPlaintextEmpty)

	_, err = enc.Decrypt([]byte{0, 1}, scope)
	require.ErrorIs(t, err, ErrCiphertextTooShort)

	bad := append([]byte{0, 9}, bytes.Repeat([]byte{0}, 30)...)
	_, err = enc.Decrypt(bad, scope)
	require.ErrorIs(t, err, ErrUnsupportedCiphertextVersion)
}
