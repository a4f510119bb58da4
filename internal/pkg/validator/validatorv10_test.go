package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"omitempty,password"`
	OTP      string `json:"otp" validate:"omitempty,otp"`
}

func TestV10Validator_Validate(t *testing.T) {
	t.Parallel()

	v, err := NewV10Validator()
	require.NoError(t, err)

	tests := []struct {
		name   string
		in     sample
		fields []string
	}{
		{name: "valid", in: sample{Email: "a@narayanagroup.com", Password: "longenough", OTP: "012345"}},
		{name: "missing email", in: sample{}, fields: []string{"email"}},
		{name: "short password", in: sample{Email: "a@b.co", Password: "short"}, fields: []string{"password"}},
		{name: "non numeric otp", in: sample{Email: "a@b.co", OTP: "12ab56"}, fields: []string{"otp"}},
		{name: "five digit otp", in: sample{Email: "a@b.co", OTP: "12345"}, fields: []string{"otp"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := v.Validate(tt.in)
			if len(tt.fields) == 0 {
				require.NoError(t, err)
				return
			}

			var verr V10ValidationError
			require.True(t, errors.As(err, &verr))
			for _, f := range tt.fields {
				assert.Contains(t, verr.Values(), f)
			}
			assert.NotEmpty(t, verr.Error())
		})
	}
}

func TestV10Validator_OTPMessage(t *testing.T) {
	t.Parallel()

	v, err := NewV10Validator()
	require.NoError(t, err)

	err = v.Validate(sample{Email: "a@b.co", OTP: "1"})
	var verr V10ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "otp must be a 6 digit code", verr["otp"])
}
