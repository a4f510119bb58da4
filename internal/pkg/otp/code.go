package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// CodeDigits is the length of emailed one-time codes.
const CodeDigits = 6

var codeSpace = big.NewInt(1_000_000)

// NewCode returns a uniformly random, zero padded 6 digit code.
func NewCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", CodeDigits, n.Int64()), nil
}
