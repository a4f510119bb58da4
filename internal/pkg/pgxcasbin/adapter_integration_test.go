//go:build integration

package pgxcasbin

import (
	"context"
	"testing"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/shandysiswandi/portalauth/internal/pkg/pgtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act)
`

func TestAdapter_Enforcer(t *testing.T) {
	ctx := context.Background()
	pool, stop, err := pgtest.Start(ctx)
	require.NoError(t, err)
	t.Cleanup(stop)

	adapter, err := NewAdapter(ctx, pool, WithTableName("identity_casbin_rules"))
	require.NoError(t, err)

	m, err := model.NewModelFromString(rbacModel)
	require.NoError(t, err)

	e, err := casbin.NewEnforcer(m, adapter)
	require.NoError(t, err)

	t.Run("seeded policies are loaded", func(t *testing.T) {
		ok, err := e.Enforce("staff", "identity.users", "delete")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = e.Enforce("member", "identity.users", "delete")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("auto-saved grant survives a reload", func(t *testing.T) {
		_, err := e.AddGroupingPolicy("member", "staff")
		require.NoError(t, err)
		require.NoError(t, e.LoadPolicy())

		ok, err := e.Enforce("member", "identity.users", "delete")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("removed grant stays removed", func(t *testing.T) {
		_, err := e.RemoveFilteredGroupingPolicy(0, "member")
		require.NoError(t, err)
		require.NoError(t, e.LoadPolicy())

		ok, err := e.Enforce("member", "identity.users", "delete")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("save policy rewrites the table", func(t *testing.T) {
		require.NoError(t, e.SavePolicy())

		lines, err := adapter.store.selectWhere(ctx, "p", 0, "superuser")
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"p", "superuser", "*", "*"}}, lines)
	})
}
