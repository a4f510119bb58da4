package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		algorithm string
	}{
		{name: "bcrypt", algorithm: AlgorithmBcrypt},
		{name: "default is bcrypt", algorithm: ""},
		{name: "argon2id", algorithm: AlgorithmArgon2id},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h, err := NewPassword(tt.algorithm, 4, "pepper")
			require.NoError(t, err)

			hashed, err := h.Hash("correct horse battery")
			require.NoError(t, err)

			assert.True(t, h.Verify(string(hashed), "correct horse battery"))
			assert.False(t, h.Verify(string(hashed), "wrong"))
			assert.False(t, h.Verify("", "correct horse battery"))
		})
	}
}

func TestNewPassword_Unknown(t *testing.T) {
	t.Parallel()

	_, err := NewPassword("md5", 0, "")
	require.Error(t, err)
}

func TestHMACSHA256(t *testing.T) {
	t.Parallel()

	h := NewHMACSHA256("secret")
	a, err := h.Hash("123456")
	require.NoError(t, err)
	b, err := h.Hash("123456")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.True(t, h.Verify(string(a), "123456"))
	assert.False(t, h.Verify(string(a), "654321"))

	other, _ := NewHMACSHA256("other").Hash("123456")
	assert.NotEqual(t, a, other)
}
