package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmailInDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		email  string
		domain string
		want   bool
	}{
		{"a@narayanagroup.com", "narayanagroup.com", true},
		{" A@NarayanaGroup.com ", "@narayanagroup.com", true},
		{"a@gmail.com", "narayanagroup.com", false},
		{"a@sub.narayanagroup.com", "narayanagroup.com", false},
		{"no-at-sign", "narayanagroup.com", false},
		{"a@gmail.com", "", true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, EmailInDomain(tt.email, tt.domain), tt.email)
	}
}

func TestUser_Role(t *testing.T) {
	t.Parallel()

	assert.Equal(t, RoleMember, User{}.Role())
	assert.Equal(t, RoleStaff, User{IsStaff: true}.Role())
	assert.Equal(t, RoleSuperuser, User{IsStaff: true, IsSuperuser: true}.Role())
}

func TestUser_HasTOTP(t *testing.T) {
	t.Parallel()

	assert.False(t, User{TOTPEnabled: true}.HasTOTP())
	assert.False(t, User{TOTPSecret: []byte{1}}.HasTOTP())
	assert.True(t, User{TOTPEnabled: true, TOTPSecret: []byte{1}}.HasTOTP())
}
