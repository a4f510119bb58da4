package hash

import "fmt"

// Hash produces and checks digests of plaintext secrets.
type Hash interface {
	Hash(plaintext string) ([]byte, error)
	Verify(hashed, plaintext string) bool
}

// Algorithm names accepted by NewPassword.
const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

// NewPassword returns the password hasher named by algorithm.
func NewPassword(algorithm string, bcryptCost int, pepper string) (Hash, error) {
	switch algorithm {
	case "", AlgorithmBcrypt:
		return NewBcrypt(bcryptCost, pepper), nil
	case AlgorithmArgon2id:
		return NewArgon2id(pepper), nil
	default:
		return nil, fmt.Errorf("hash: unknown password algorithm %q", algorithm)
	}
}
