package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViper_Getters(t *testing.T) {
	t.Parallel()

	raw := []byte(`
modules:
  identity:
    otp:
      ttl_minutes: 5
    allowed_email_domain: narayanagroup.com
cors:
  origins: "http://a.test, ,http://b.test"
  methods:
    - GET
    - POST
authz:
  roles: "staff:users, superuser:users"
mfa:
  secret: "AAECAw=="
`)

	cfg, err := NewViperFromBytes("yaml", raw, WithDefaults(map[string]any{
		"modules.identity.refresh_token_ttl_hours": 24,
		"modules.identity.otp.ttl_minutes":         10,
	}))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.GetMinute("modules.identity.otp.ttl_minutes"))
	assert.Equal(t, 24*time.Hour, cfg.GetHour("modules.identity.refresh_token_ttl_hours"))
	assert.Equal(t, "narayanagroup.com", cfg.GetString("modules.identity.allowed_email_domain"))
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.GetArray("cors.origins"))
	assert.Equal(t, []string{"GET", "POST"}, cfg.GetArray("cors.methods"))
	assert.Equal(t, map[string]string{"staff": "users", "superuser": "users"}, cfg.GetMap("authz.roles"))
	assert.Equal(t, []byte{0, 1, 2, 3}, cfg.GetBinary("mfa.secret"))
	assert.Empty(t, cfg.GetArray("missing"))
	assert.NoError(t, cfg.Close())
}

func TestNewViperFromBytes_RequiresType(t *testing.T) {
	t.Parallel()

	_, err := NewViperFromBytes(" ", nil)
	require.Error(t, err)
}
