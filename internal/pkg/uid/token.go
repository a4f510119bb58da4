package uid

import (
	"crypto/rand"
	"encoding/hex"
)

// TokenLength is the length of strings produced by Token.
const TokenLength = 64

// Token generates opaque 64-character hex strings from 32 random bytes.
// Refresh tokens use it; only their HMAC digest is ever persisted.
type Token struct{}

// NewToken returns a Token generator.
func NewToken() *Token {
	return &Token{}
}

func (Token) Generate() string {
	var raw [TokenLength / 2]byte
	// crypto/rand.Read never returns an error on supported platforms.
	_, _ = rand.Read(raw[:])
	return hex.EncodeToString(raw[:])
}
