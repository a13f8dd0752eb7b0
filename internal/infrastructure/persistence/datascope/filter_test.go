package datascope

import (
	"context"
	"testing"

	"github.com/echodesk/backend/internal/domain/identity"
	"github.com/echodesk/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFilter(t *testing.T) {
	tenantID := uuid.New()
	userID := uuid.New()

	t.Run("creates filter with empty roles", func(t *testing.T) {
		ctx := context.Background()
		filter := NewFilter(ctx, []identity.Role{})

		assert.NotNil(t, filter)
		assert.Empty(t, filter.dataScopes)
	})

	t.Run("creates filter with user ID from context", func(t *testing.T) {
		ctx := context.Background()
		ctx, _ = logger.WithUserID(ctx, logger.FromContext(ctx), userID.String())

		filter := NewFilter(ctx, []identity.Role{})

		assert.Equal(t, userID, filter.userID)
	})

	t.Run("merges data scopes from multiple roles", func(t *testing.T) {
		ctx := context.Background()

		role1, _ := identity.NewRole(tenantID, "ROLE1", "Role 1")
		ds1, _ := identity.NewDataScope("call", identity.DataScopeSelf)
		_ = role1.SetDataScope(*ds1)

		role2, _ := identity.NewRole(tenantID, "ROLE2", "Role 2")
		ds2, _ := identity.NewDataScope("call", identity.DataScopeAll)
		_ = role2.SetDataScope(*ds2)

		filter := NewFilter(ctx, []identity.Role{*role1, *role2})

		// Should have ALL scope (higher permission wins)
		assert.Equal(t, identity.DataScopeAll, filter.GetScopeType("call"))
	})

	t.Run("ignores disabled roles", func(t *testing.T) {
		ctx := context.Background()

		role1, _ := identity.NewRole(tenantID, "ROLE1", "Role 1")
		ds1, _ := identity.NewDataScope("call", identity.DataScopeAll)
		_ = role1.SetDataScope(*ds1)
		_ = role1.Disable()

		role2, _ := identity.NewRole(tenantID, "ROLE2", "Role 2")
		ds2, _ := identity.NewDataScope("call", identity.DataScopeSelf)
		_ = role2.SetDataScope(*ds2)

		filter := NewFilter(ctx, []identity.Role{*role1, *role2})

		// Role1 is disabled, so should use SELF from role2
		assert.Equal(t, identity.DataScopeSelf, filter.GetScopeType("call"))
	})
}

func TestFilter_GetScopeType(t *testing.T) {
	tenantID := uuid.New()

	t.Run("returns ALL for unconfigured resource", func(t *testing.T) {
		filter := NewFilter(context.Background(), []identity.Role{})

		scopeType := filter.GetScopeType("unconfigured_resource")

		assert.Equal(t, identity.DataScopeAll, scopeType)
	})

	t.Run("returns configured scope type", func(t *testing.T) {
		ctx := context.Background()

		role, _ := identity.NewRole(tenantID, "ROLE1", "Role 1")
		ds, _ := identity.NewDataScope("call", identity.DataScopeSelf)
		_ = role.SetDataScope(*ds)

		filter := NewFilter(ctx, []identity.Role{*role})

		assert.Equal(t, identity.DataScopeSelf, filter.GetScopeType("call"))
	})
}

func TestFilter_HasScope(t *testing.T) {
	tenantID := uuid.New()

	t.Run("returns false for unconfigured resource", func(t *testing.T) {
		filter := NewFilter(context.Background(), []identity.Role{})

		assert.False(t, filter.HasScope("unconfigured_resource"))
	})

	t.Run("returns true for configured resource", func(t *testing.T) {
		ctx := context.Background()

		role, _ := identity.NewRole(tenantID, "ROLE1", "Role 1")
		ds, _ := identity.NewDataScope("call", identity.DataScopeSelf)
		_ = role.SetDataScope(*ds)

		filter := NewFilter(ctx, []identity.Role{*role})

		assert.True(t, filter.HasScope("call"))
	})
}

func TestFilter_CanAccessAll(t *testing.T) {
	tenantID := uuid.New()

	t.Run("returns true for unconfigured resource", func(t *testing.T) {
		filter := NewFilter(context.Background(), []identity.Role{})

		assert.True(t, filter.CanAccessAll("unconfigured_resource"))
	})

	t.Run("returns true for ALL scope", func(t *testing.T) {
		ctx := context.Background()

		role, _ := identity.NewRole(tenantID, "ROLE1", "Role 1")
		ds, _ := identity.NewDataScope("call", identity.DataScopeAll)
		_ = role.SetDataScope(*ds)

		filter := NewFilter(ctx, []identity.Role{*role})

		assert.True(t, filter.CanAccessAll("call"))
	})

	t.Run("returns false for SELF scope", func(t *testing.T) {
		ctx := context.Background()

		role, _ := identity.NewRole(tenantID, "ROLE1", "Role 1")
		ds, _ := identity.NewDataScope("call", identity.DataScopeSelf)
		_ = role.SetDataScope(*ds)

		filter := NewFilter(ctx, []identity.Role{*role})

		assert.False(t, filter.CanAccessAll("call"))
	})
}

func TestFilter_IsOwner(t *testing.T) {
	userID := uuid.New()

	t.Run("returns false for nil createdBy", func(t *testing.T) {
		ctx := context.Background()
		ctx, _ = logger.WithUserID(ctx, logger.FromContext(ctx), userID.String())

		filter := NewFilter(ctx, []identity.Role{})

		assert.False(t, filter.IsOwner(nil))
	})

	t.Run("returns false for nil userID", func(t *testing.T) {
		filter := NewFilter(context.Background(), []identity.Role{})
		createdBy := uuid.New()

		assert.False(t, filter.IsOwner(&createdBy))
	})

	t.Run("returns true when user is owner", func(t *testing.T) {
		ctx := context.Background()
		ctx, _ = logger.WithUserID(ctx, logger.FromContext(ctx), userID.String())

		filter := NewFilter(ctx, []identity.Role{})

		assert.True(t, filter.IsOwner(&userID))
	})

	t.Run("returns false when user is not owner", func(t *testing.T) {
		ctx := context.Background()
		ctx, _ = logger.WithUserID(ctx, logger.FromContext(ctx), userID.String())

		filter := NewFilter(ctx, []identity.Role{})
		otherUser := uuid.New()

		assert.False(t, filter.IsOwner(&otherUser))
	})
}

func TestWithDataScopes(t *testing.T) {
	tenantID := uuid.New()

	t.Run("stores data scopes in context", func(t *testing.T) {
		ctx := context.Background()

		role, _ := identity.NewRole(tenantID, "ROLE1", "Role 1")
		ds1, _ := identity.NewDataScope("call", identity.DataScopeSelf)
		ds2, _ := identity.NewDataScope("ticket", identity.DataScopeAll)
		_ = role.SetDataScope(*ds1)
		_ = role.SetDataScope(*ds2)

		ctx = WithDataScopes(ctx, []identity.Role{*role})

		scopes, ok := ctx.Value(ScopesKey).(map[string]identity.DataScope)
		require.True(t, ok)
		assert.Len(t, scopes, 2)
		assert.Equal(t, identity.DataScopeSelf, scopes["call"].ScopeType)
		assert.Equal(t, identity.DataScopeAll, scopes["ticket"].ScopeType)
	})
}

func TestNewFilterFromContext(t *testing.T) {
	tenantID := uuid.New()
	userID := uuid.New()

	t.Run("creates filter from context scopes", func(t *testing.T) {
		ctx := context.Background()
		ctx, _ = logger.WithUserID(ctx, logger.FromContext(ctx), userID.String())

		role, _ := identity.NewRole(tenantID, "ROLE1", "Role 1")
		ds, _ := identity.NewDataScope("call", identity.DataScopeSelf)
		_ = role.SetDataScope(*ds)

		ctx = WithDataScopes(ctx, []identity.Role{*role})

		filter := NewFilterFromContext(ctx)

		assert.Equal(t, userID, filter.userID)
		assert.Equal(t, identity.DataScopeSelf, filter.GetScopeType("call"))
	})

	t.Run("handles missing scopes in context", func(t *testing.T) {
		filter := NewFilterFromContext(context.Background())

		assert.Empty(t, filter.dataScopes)
		assert.Equal(t, identity.DataScopeAll, filter.GetScopeType("any_resource"))
	})
}

func TestCompareScopeLevel(t *testing.T) {
	testCases := []struct {
		name     string
		a        identity.DataScopeType
		b        identity.DataScopeType
		expected int
	}{
		{"ALL > SELF", identity.DataScopeAll, identity.DataScopeSelf, 90},
		{"ALL > CUSTOM", identity.DataScopeAll, identity.DataScopeCustom, 60},
		{"SELF < ALL", identity.DataScopeSelf, identity.DataScopeAll, -90},
		{"SELF == SELF", identity.DataScopeSelf, identity.DataScopeSelf, 0},
		{"ALL == ALL", identity.DataScopeAll, identity.DataScopeAll, 0},
		{"CUSTOM > SELF", identity.DataScopeCustom, identity.DataScopeSelf, 30},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := compareScopeLevel(tc.a, tc.b)
			assert.Equal(t, tc.expected, result)
		})
	}
}

func TestMergeScopes(t *testing.T) {
	t.Run("merges empty lists", func(t *testing.T) {
		result := MergeScopes()
		assert.Empty(t, result)
	})

	t.Run("merges single list", func(t *testing.T) {
		ds1, _ := identity.NewDataScope("call", identity.DataScopeSelf)
		ds2, _ := identity.NewDataScope("ticket", identity.DataScopeAll)

		result := MergeScopes([]identity.DataScope{*ds1, *ds2})

		assert.Len(t, result, 2)
		assert.Equal(t, identity.DataScopeSelf, result["call"].ScopeType)
		assert.Equal(t, identity.DataScopeAll, result["ticket"].ScopeType)
	})

	t.Run("merges multiple lists keeping higher permission", func(t *testing.T) {
		ds1, _ := identity.NewDataScope("call", identity.DataScopeSelf)
		ds2, _ := identity.NewDataScope("call", identity.DataScopeAll)
		ds3, _ := identity.NewDataScope("ticket", identity.DataScopeSelf)

		result := MergeScopes(
			[]identity.DataScope{*ds1},
			[]identity.DataScope{*ds2, *ds3},
		)

		assert.Len(t, result, 2)
		assert.Equal(t, identity.DataScopeAll, result["call"].ScopeType)
		assert.Equal(t, identity.DataScopeSelf, result["ticket"].ScopeType)
	})

	t.Run("handles overlapping resources correctly", func(t *testing.T) {
		ds1, _ := identity.NewDataScope("call", identity.DataScopeCustom)
		ds2, _ := identity.NewDataScope("call", identity.DataScopeSelf)
		ds3, _ := identity.NewDataScope("call", identity.DataScopeAll)

		result := MergeScopes(
			[]identity.DataScope{*ds1},
			[]identity.DataScope{*ds2},
			[]identity.DataScope{*ds3},
		)

		assert.Len(t, result, 1)
		assert.Equal(t, identity.DataScopeAll, result["call"].ScopeType)
	})
}

func TestFilter_GetUserID(t *testing.T) {
	t.Run("returns user ID from context", func(t *testing.T) {
		userID := uuid.New()
		ctx := context.Background()
		ctx, _ = logger.WithUserID(ctx, logger.FromContext(ctx), userID.String())

		filter := NewFilter(ctx, []identity.Role{})

		assert.Equal(t, userID, filter.GetUserID())
	})

	t.Run("returns nil UUID for missing user ID", func(t *testing.T) {
		filter := NewFilter(context.Background(), []identity.Role{})

		assert.Equal(t, uuid.Nil, filter.GetUserID())
	})
}

func TestDataScopeScopeFromContext(t *testing.T) {
	tenantID := uuid.New()

	t.Run("creates GORM scope function", func(t *testing.T) {
		ctx := context.Background()

		role, _ := identity.NewRole(tenantID, "ROLE1", "Role 1")
		ds, _ := identity.NewDataScope("call", identity.DataScopeSelf)
		_ = role.SetDataScope(*ds)

		ctx = WithDataScopes(ctx, []identity.Role{*role})

		scopeFunc := DataScopeScopeFromContext(ctx, "call")

		assert.NotNil(t, scopeFunc)
	})
}

func TestFilter_getDefaultScopeField(t *testing.T) {
	filter := &Filter{}

	testCases := []struct {
		resource      string
		expectedField string
	}{
		{"call", "handled_by"},
		{"recording", "created_by"},
		{"ticket", "assigned_to"},
		{"client", ""},
		{"user", ""},
		{"unknown_resource", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.resource, func(t *testing.T) {
			field := filter.getDefaultScopeField(tc.resource)
			assert.Equal(t, tc.expectedField, field)
		})
	}
}

func TestFilter_CustomScopeWithField(t *testing.T) {
	tenantID := uuid.New()
	agentID := uuid.New()

	t.Run("uses custom scope field when specified", func(t *testing.T) {
		ctx := context.Background()

		role, _ := identity.NewRole(tenantID, "SUPERVISOR", "Team Supervisor")
		ds, _ := identity.NewCustomDataScopeWithField("ticket", "assigned_to", []string{agentID.String()})
		_ = role.SetDataScope(*ds)

		filter := NewFilter(ctx, []identity.Role{*role})

		// Verify the filter has the correct scope field
		scopeType := filter.GetScopeType("ticket")
		assert.Equal(t, identity.DataScopeCustom, scopeType)
	})

	t.Run("falls back to default field when scope field is empty", func(t *testing.T) {
		ctx := context.Background()

		role, _ := identity.NewRole(tenantID, "SUPERVISOR", "Team Supervisor")
		ds, _ := identity.NewCustomDataScope("call", []string{agentID.String()})
		_ = role.SetDataScope(*ds)

		filter := NewFilter(ctx, []identity.Role{*role})

		// The filter should use default field mapping
		defaultField := filter.getDefaultScopeField("call")
		assert.Equal(t, "handled_by", defaultField)
	})
}

func TestCustomDataScopeWithField(t *testing.T) {
	t.Run("creates custom scope with field", func(t *testing.T) {
		ds, err := identity.NewCustomDataScopeWithField("ticket", "assigned_to", []string{"agent-1", "agent-2"})
		require.NoError(t, err)

		assert.Equal(t, "ticket", ds.Resource)
		assert.Equal(t, identity.DataScopeCustom, ds.ScopeType)
		assert.Equal(t, "assigned_to", ds.ScopeField)
		assert.Equal(t, []string{"agent-1", "agent-2"}, ds.ScopeValues)
	})

	t.Run("fails with empty scope field", func(t *testing.T) {
		_, err := identity.NewCustomDataScopeWithField("ticket", "", []string{"agent-1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Scope field cannot be empty")
	})

	t.Run("fails with empty scope values", func(t *testing.T) {
		_, err := identity.NewCustomDataScopeWithField("ticket", "assigned_to", []string{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least one scope value")
	})
}
