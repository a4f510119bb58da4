// Package mfa seals second-factor material (TOTP secrets) at rest.
//
// Ciphertexts are bound to the owning account and purpose through GCM
// additional data, so a secret copied onto another account row fails to open.
package mfa

import "fmt"

// Purpose names what a sealed value is used for.
type Purpose string

// PurposeTOTPSecret marks an authenticator enrollment secret.
const PurposeTOTPSecret Purpose = "totp_secret"

// Scope binds a ciphertext to an account and purpose.
type Scope struct {
	UserID  int64
	Purpose Purpose
}

func (s Scope) String() string {
	return fmt.Sprintf("uid=%d\npurpose=%s\n", s.UserID, s.Purpose)
}

// Encryptor seals and opens scoped secrets.
type Encryptor interface {
	Encrypt(plaintext []byte, scope Scope) ([]byte, error)
	Decrypt(ciphertext []byte, scope Scope) ([]byte, error)
}

// KeyProvider returns the 32-byte AES key for a scope.
type KeyProvider interface {
	Key(scope Scope) ([]byte, error)
}

// StaticKeyProvider returns one configured key for every scope.
type StaticKeyProvider struct {
	KeyBytes []byte
}

func (p StaticKeyProvider) Key(_ Scope) ([]byte, error) {
	if len(p.KeyBytes) == 0 {
		return nil, ErrMissingStaticKey
	}
	return append([]byte(nil), p.KeyBytes...), nil
}
