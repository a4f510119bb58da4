package pgxcasbin

import (
	"testing"

	"github.com/casbin/casbin/v3/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhereClause(t *testing.T) {
	t.Run("skips wildcard values", func(t *testing.T) {
		where, params, err := whereClause("p", 1, []string{"identity.users", "", "allow"})
		require.NoError(t, err)
		assert.Equal(t, "ptype = $1 and v1 = $2 and v3 = $3", where)
		assert.Equal(t, []any{"p", "identity.users", "allow"}, params)
	})

	t.Run("rejects values past the last column", func(t *testing.T) {
		_, _, err := whereClause("p", 4, []string{"a", "b", "c"})
		assert.ErrorIs(t, err, ErrRuleTooLong)
	})
}

func TestNormalizeRuleRow(t *testing.T) {
	row, err := normalizeRuleRow([]string{"p", "staff", "identity.users", "delete"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p", "staff", "identity.users", "delete", "", "", ""}, row)
	assert.Equal(t, []string{"p", "staff", "identity.users", "delete"}, trimTrailingEmpty(row))

	_, err = normalizeRuleRow(nil)
	assert.ErrorIs(t, err, ErrRuleEmpty)

	_, err = normalizeRuleRow([]string{"p", "1", "2", "3", "4", "5", "6", "7"})
	assert.ErrorIs(t, err, ErrRuleTooLong)
}

func TestCollectRules(t *testing.T) {
	m, err := model.NewModelFromString(`
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`)
	require.NoError(t, err)

	m["p"]["p"].Policy = [][]string{{"staff", "identity.users", "delete"}}
	m["g"]["g"].Policy = [][]string{{"superuser", "staff"}}

	assert.ElementsMatch(t, [][]string{
		{"p", "staff", "identity.users", "delete"},
		{"g", "superuser", "staff"},
	}, collectRules(m))
}

func TestSetTableName(t *testing.T) {
	s := newStore(nil)
	assert.Equal(t, defaultTableName, s.tableName)

	s.setTableName("IdentityCasbinRules")
	assert.Equal(t, "identity_casbin_rules", s.tableName)
}
