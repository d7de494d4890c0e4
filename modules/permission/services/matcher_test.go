package services

import (
	"testing"

	"github.com/cleargate-io/cleargate/modules/permission/domain/types"
)

func evalCtx(viewer types.User, target types.User) types.EvaluationContext {
	return BuildContext(viewer, target)
}

func TestMatches_RoleIsHardFilter(t *testing.T) {
	t.Parallel()
	ctx := evalCtx(
		types.User{ID: "u1", Role: types.RoleUser},
		types.User{ID: "u2", Role: types.RoleUser},
	)

	rule := types.AccessRule{Role: types.RoleAdmin, Condition: types.ConditionAny}
	if Matches(rule, types.RoleUser, ctx) {
		t.Fatal("rule scoped to admin matched a user")
	}
	if !Matches(rule, types.RoleAdmin, ctx) {
		t.Fatal("rule scoped to admin rejected an admin")
	}

	anyRule := types.AccessRule{Role: types.RoleAny, Condition: types.ConditionAny}
	for _, role := range []types.Role{types.RoleUser, types.RoleModerator, types.RoleAdmin, types.RoleSuperAdmin} {
		if !Matches(anyRule, role, ctx) {
			t.Fatalf("any/any rule rejected role %s", role)
		}
	}
}

func TestMatches_SelfConditionForEveryRole(t *testing.T) {
	t.Parallel()
	for _, role := range []types.Role{types.RoleUser, types.RoleModerator, types.RoleAdmin, types.RoleSuperAdmin} {
		self := types.User{ID: "u1", Role: role}
		rule := types.AccessRule{Role: types.RoleAny, Condition: types.ConditionSelf}

		if !Matches(rule, role, evalCtx(self, self)) {
			t.Errorf("self rule rejected %s looking at itself", role)
		}
		other := types.User{ID: "u2", Role: role}
		if Matches(rule, role, evalCtx(self, other)) {
			t.Errorf("self rule matched %s looking at someone else", role)
		}
	}
}

func TestMatches_TenantConditions(t *testing.T) {
	t.Parallel()
	rule := types.AccessRule{Role: types.RoleAny, Condition: types.ConditionSameTenant}

	sameTenant := evalCtx(
		types.User{ID: "u1", Role: types.RoleUser, TenantID: "t1"},
		types.User{ID: "u2", Role: types.RoleUser, TenantID: "t1"},
	)
	if !Matches(rule, types.RoleUser, sameTenant) {
		t.Fatal("same_tenant rejected two users of the same tenant")
	}

	crossTenant := evalCtx(
		types.User{ID: "u1", Role: types.RoleUser, TenantID: "t1"},
		types.User{ID: "u2", Role: types.RoleUser, TenantID: "t2"},
	)
	if Matches(rule, types.RoleUser, crossTenant) {
		t.Fatal("same_tenant matched across tenants")
	}

	// An empty tenant on either side never counts as shared.
	noTenant := evalCtx(
		types.User{ID: "u1", Role: types.RoleUser},
		types.User{ID: "u2", Role: types.RoleUser},
	)
	if Matches(rule, types.RoleUser, noTenant) {
		t.Fatal("same_tenant matched two tenantless users")
	}
}

func TestMatches_TenantAdmin(t *testing.T) {
	t.Parallel()
	rule := types.AccessRule{Role: types.RoleAny, Condition: types.ConditionTenantAdmin}

	adminSameTenant := evalCtx(
		types.User{ID: "a1", Role: types.RoleAdmin, TenantID: "t1"},
		types.User{ID: "u2", Role: types.RoleUser, TenantID: "t1"},
	)
	if !Matches(rule, types.RoleAdmin, adminSameTenant) {
		t.Fatal("tenant_admin rejected an admin in the same tenant")
	}

	userSameTenant := evalCtx(
		types.User{ID: "u1", Role: types.RoleUser, TenantID: "t1"},
		types.User{ID: "u2", Role: types.RoleUser, TenantID: "t1"},
	)
	if Matches(rule, types.RoleUser, userSameTenant) {
		t.Fatal("tenant_admin matched a non-admin")
	}

	adminCrossTenant := evalCtx(
		types.User{ID: "a1", Role: types.RoleAdmin, TenantID: "t1"},
		types.User{ID: "u2", Role: types.RoleUser, TenantID: "t2"},
	)
	if Matches(rule, types.RoleAdmin, adminCrossTenant) {
		t.Fatal("tenant_admin matched across tenants")
	}
}

func TestMatches_LevelConditions(t *testing.T) {
	t.Parallel()
	admin := types.User{ID: "a", Role: types.RoleAdmin}
	user := types.User{ID: "u", Role: types.RoleUser}
	mod := types.User{ID: "m", Role: types.RoleModerator}

	lower := types.AccessRule{Role: types.RoleAny, Condition: types.ConditionLowerLevel}
	if !Matches(lower, admin.Role, evalCtx(admin, user)) {
		t.Fatal("lower_level rejected admin over user")
	}
	if Matches(lower, user.Role, evalCtx(user, admin)) {
		t.Fatal("lower_level matched user over admin")
	}
	if Matches(lower, mod.Role, evalCtx(mod, mod)) {
		t.Fatal("lower_level matched equal levels")
	}

	higher := types.AccessRule{Role: types.RoleAny, Condition: types.ConditionHigherLevel}
	if !Matches(higher, user.Role, evalCtx(user, admin)) {
		t.Fatal("higher_level rejected user looking at admin")
	}
	if Matches(higher, admin.Role, evalCtx(admin, user)) {
		t.Fatal("higher_level matched admin looking at user")
	}

	same := types.AccessRule{Role: types.RoleAny, Condition: types.ConditionSameLevel}
	if !Matches(same, mod.Role, evalCtx(mod, mod)) {
		t.Fatal("same_level rejected equal levels")
	}
	if Matches(same, admin.Role, evalCtx(admin, user)) {
		t.Fatal("same_level matched unequal levels")
	}
}

// The role hierarchy is strictly ordered; lower_level must agree with the
// numeric ranking for every pair of canonical roles.
func TestMatches_LevelMonotonicity(t *testing.T) {
	t.Parallel()
	roles := []types.Role{types.RoleUser, types.RoleModerator, types.RoleAdmin, types.RoleSuperAdmin}
	rule := types.AccessRule{Role: types.RoleAny, Condition: types.ConditionLowerLevel}

	for _, viewerRole := range roles {
		for _, targetRole := range roles {
			ctx := evalCtx(
				types.User{ID: "v", Role: viewerRole},
				types.User{ID: "t", Role: targetRole},
			)
			want := viewerRole.Level() > targetRole.Level()
			if got := Matches(rule, viewerRole, ctx); got != want {
				t.Errorf("lower_level %s vs %s = %v, want %v", viewerRole, targetRole, got, want)
			}
		}
	}
}

func TestMatches_UnknownRoleRanksLowest(t *testing.T) {
	t.Parallel()
	// A role outside the canonical set levels at 0, same as a plain user.
	// Inherited behavior; changing it would silently shift grants.
	ghost := types.Role("ghost")
	if got := ghost.Level(); got != 0 {
		t.Fatalf("unknown role level = %d, want 0", got)
	}

	rule := types.AccessRule{Role: types.RoleAny, Condition: types.ConditionLowerLevel}
	ctx := evalCtx(
		types.User{ID: "m", Role: types.RoleModerator},
		types.User{ID: "g", Role: ghost},
	)
	if !Matches(rule, types.RoleModerator, ctx) {
		t.Fatal("moderator should outrank an unknown role")
	}
}

func TestMatches_UnknownConditionFailsClosed(t *testing.T) {
	t.Parallel()
	ctx := evalCtx(
		types.User{ID: "u1", Role: types.RoleSuperAdmin},
		types.User{ID: "u1", Role: types.RoleSuperAdmin},
	)
	rule := types.AccessRule{Role: types.RoleAny, Condition: types.ConditionKind("owns_record")}
	if Matches(rule, types.RoleSuperAdmin, ctx) {
		t.Fatal("unknown condition granted access")
	}
}

func TestMatches_CustomCondition(t *testing.T) {
	t.Parallel()
	ctx := evalCtx(
		types.User{ID: "a", Role: types.RoleAdmin, TenantID: "t1"},
		types.User{ID: "u", Role: types.RoleUser, TenantID: "t1"},
	)

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"level comparison", "viewer_level >= 2 && same_tenant", true},
		{"role equality", "viewer_role == 'admin' && target_role == 'user'", true},
		{"false branch", "is_self", false},
		{"tenant mismatch guard", "viewer_tenant_id == 'other'", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rule := types.AccessRule{Role: types.RoleAny, Condition: types.ConditionCustom, CustomCondition: tc.expr}
			if got := Matches(rule, types.RoleAdmin, ctx); got != tc.want {
				t.Fatalf("custom %q = %v, want %v", tc.expr, got, tc.want)
			}
		})
	}
}

// A broken custom expression denies its own rule and nothing else.
func TestMatches_CustomConditionErrorsDeny(t *testing.T) {
	t.Parallel()
	ctx := evalCtx(
		types.User{ID: "a", Role: types.RoleAdmin},
		types.User{ID: "a", Role: types.RoleAdmin},
	)
	for _, expr := range []string{"", "   ", "viewer_level >", "unknown_var == 1", "'not a bool'"} {
		rule := types.AccessRule{Role: types.RoleAny, Condition: types.ConditionCustom, CustomCondition: expr}
		if Matches(rule, types.RoleAdmin, ctx) {
			t.Errorf("broken custom condition %q granted access", expr)
		}
	}
}

func TestCompileCondition(t *testing.T) {
	t.Parallel()
	if err := CompileCondition("viewer_level > target_level"); err != nil {
		t.Fatalf("valid expression rejected: %v", err)
	}
	if err := CompileCondition("viewer_level +"); err == nil {
		t.Fatal("syntax error accepted")
	}
	if err := CompileCondition("viewer_level + 1"); err == nil {
		t.Fatal("non-boolean expression accepted")
	}
	if err := CompileCondition("  "); err == nil {
		t.Fatal("blank expression accepted")
	}
}
