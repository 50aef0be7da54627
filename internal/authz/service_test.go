package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accessd/accessd/internal/db/models"
	"github.com/accessd/accessd/internal/errs"
)

func TestInvalidArguments(t *testing.T) {
	h := newHarness(t)
	u := h.user("alice")

	testCases := []struct {
		name string
		call func() (Decision, error)
	}{
		{name: "zero user", call: func() (Decision, error) { return h.svc.HasPermission(h.ctx, 0, "users.read") }},
		{name: "blank permission", call: func() (Decision, error) { return h.svc.HasPermission(h.ctx, u.ID, " ") }},
		{name: "blank code in any list", call: func() (Decision, error) {
			return h.svc.HasAnyPermission(h.ctx, u.ID, []string{"users.read", ""})
		}},
		{name: "blank role", call: func() (Decision, error) { return h.svc.HasRole(h.ctx, u.ID, "") }},
		{name: "blank role in all list", call: func() (Decision, error) { return h.svc.HasAllRoles(h.ctx, u.ID, []string{""}) }},
		{name: "zero menu", call: func() (Decision, error) { return h.svc.CanAccessMenu(h.ctx, u.ID, 0) }},
		{name: "blank resource", call: func() (Decision, error) { return h.svc.CanAccessResource(h.ctx, u.ID, "", "read") }},
		{name: "blank action", call: func() (Decision, error) { return h.svc.CanAccessResource(h.ctx, u.ID, "users", "") }},
		{name: "zero user admin", call: func() (Decision, error) { return h.svc.IsAdmin(h.ctx, 0) }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.call()
			require.ErrorIs(t, err, errs.ErrInvalidArgument)
		})
	}

	_, err := h.svc.PermissionsForRole(h.ctx, 0)
	require.ErrorIs(t, err, errs.ErrInvalidArgument)

	_, err = h.svc.Dominates(h.ctx, 1, 0)
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestEmptyListsDeny(t *testing.T) {
	h := newHarness(t)

	r := h.role("manager", 1, nil, false)
	h.grant(r, h.perm("users.read"), nil)

	u := h.user("alice")
	h.assign(u, r)

	testCases := []struct {
		name string
		call func() (Decision, error)
	}{
		{name: "any permission", call: func() (Decision, error) { return h.svc.HasAnyPermission(h.ctx, u.ID, nil) }},
		{name: "all permissions", call: func() (Decision, error) { return h.svc.HasAllPermissions(h.ctx, u.ID, []string{}) }},
		{name: "any role", call: func() (Decision, error) { return h.svc.HasAnyRole(h.ctx, u.ID, nil) }},
		{name: "all roles", call: func() (Decision, error) { return h.svc.HasAllRoles(h.ctx, u.ID, nil) }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := tc.call()
			require.NoError(t, err)
			assert.False(t, d.Allowed)
			assert.Equal(t, ReasonEmptyList, d.Reason)
		})
	}
}

func TestDenialReasons(t *testing.T) {
	h := newHarness(t)

	r := h.role("manager", 1, nil, false)
	h.grant(r, h.perm("users.read"), nil)

	active, idle, locked := h.user("active"), h.user("idle"), h.user("locked")
	h.assign(active, r)
	h.assign(locked, r)

	_, err := h.svc.SetUserStatus(h.ctx, SystemActor, locked.ID, models.UserStatusLocked)
	require.NoError(t, err)

	testCases := []struct {
		name       string
		userID     uint64
		code       string
		wantReason string
	}{
		{name: "granted", userID: active.ID, code: "users.read", wantReason: ReasonGranted},
		{name: "missing", userID: active.ID, code: "users.delete", wantReason: ReasonMissingPermission},
		{name: "no roles", userID: idle.ID, code: "users.read", wantReason: ReasonNoRoles},
		{name: "locked", userID: locked.ID, code: "users.read", wantReason: ReasonInactiveUser},
		{name: "unknown user", userID: 999, code: "users.read", wantReason: ReasonInactiveUser},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := h.svc.HasPermission(h.ctx, tc.userID, tc.code)
			require.NoError(t, err)
			assert.Equal(t, tc.wantReason == ReasonGranted, d.Allowed)
			assert.Equal(t, tc.wantReason, d.Reason)
		})
	}

	// reactivating restores the grants
	_, err = h.svc.SetUserStatus(h.ctx, SystemActor, locked.ID, models.UserStatusActive)
	require.NoError(t, err)
	assert.True(t, h.allowed(h.svc.HasPermission(h.ctx, locked.ID, "users.read")))
}

func TestMenuAccess(t *testing.T) {
	h := newHarness(t)

	r := h.role("manager", 1, nil, false)
	read := h.perm("users.read")

	shown := h.menu("users", true)
	hidden := h.menu("audit", false)
	gone := h.menu("legacy", true)
	unrelated := h.menu("billing", true)

	h.grant(r, read, shown)
	h.grant(r, read, hidden)
	h.grant(r, read, gone)

	u := h.user("alice")
	h.assign(u, r)

	require.NoError(t, h.svc.DeactivateMenu(h.ctx, SystemActor, gone.ID))

	testCases := []struct {
		name   string
		menuID uint64
		want   bool
	}{
		{name: "visible and granted", menuID: shown.ID, want: true},
		{name: "hidden", menuID: hidden.ID},
		{name: "deactivated", menuID: gone.ID},
		{name: "not granted", menuID: unrelated.ID},
		{name: "unknown", menuID: 999},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := h.svc.CanAccessMenu(h.ctx, u.ID, tc.menuID)
			require.NoError(t, err)
			assert.Equal(t, tc.want, d.Allowed)
		})
	}

	_, err := h.svc.UpdateMenu(h.ctx, SystemActor, hidden.ID, MenuUpdate{IsVisible: ptr(true)})
	require.NoError(t, err)
	assert.True(t, h.allowed(h.svc.CanAccessMenu(h.ctx, u.ID, hidden.ID)))
}

func TestCanAccessResource(t *testing.T) {
	h := newHarness(t)

	r := h.role("editor", 2, nil, false)
	h.grant(r, h.perm("articles.edit"), nil)
	h.perm("articles.publish")

	u := h.user("alice")
	h.assign(u, r)

	assert.True(t, h.allowed(h.svc.CanAccessResource(h.ctx, u.ID, "articles", "edit")))
	assert.False(t, h.allowed(h.svc.CanAccessResource(h.ctx, u.ID, "articles", "publish")))
	assert.False(t, h.allowed(h.svc.CanAccessResource(h.ctx, u.ID, "comments", "edit")))

	actions, err := h.svc.ResourceActions(h.ctx, "articles")
	require.NoError(t, err)
	assert.Equal(t, []string{"edit", "publish"}, actions)

	actions, err = h.svc.ResourceActions(h.ctx, "comments")
	require.NoError(t, err)
	assert.Empty(t, actions)
}

func TestAdminChecks(t *testing.T) {
	h := newHarness(t)

	super := h.role("super_admin", 0, nil, true)
	admin := h.role("admin", 1, super, true)
	ops := h.role("ops", 1, nil, true)
	manager := h.role("manager", 1, nil, false)

	testCases := []struct {
		name      string
		role      *models.Role
		wantAdmin bool
		wantSuper bool
	}{
		{name: "super admin", role: super, wantAdmin: true, wantSuper: true},
		{name: "admin by code", role: admin, wantAdmin: true},
		{name: "system role outside the admin set", role: ops},
		{name: "regular role", role: manager},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			u := h.user("holder-" + tc.role.Code)
			h.assign(u, tc.role)

			assert.Equal(t, tc.wantAdmin, h.allowed(h.svc.IsAdmin(h.ctx, u.ID)))
			assert.Equal(t, tc.wantSuper, h.allowed(h.svc.IsSuperAdmin(h.ctx, u.ID)))
		})
	}
}

func TestAdminByLevel(t *testing.T) {
	h := newHarness(t)

	cfg := testAuthz()
	cfg.AdminRoleCodes = nil
	cfg.AdminMaxLevel = 1
	svc := NewService(h.db, h.cache, cfg)

	ops := h.role("ops", 1, nil, true)
	support := h.role("support", 2, nil, true)

	a, b := h.user("a"), h.user("b")
	h.assign(a, ops)
	h.assign(b, support)

	assert.True(t, h.allowed(svc.IsAdmin(h.ctx, a.ID)))
	assert.False(t, h.allowed(svc.IsAdmin(h.ctx, b.ID)))
}

func TestDirectGrantsAreAdditive(t *testing.T) {
	h := newHarness(t)

	r := h.role("viewer", 3, nil, false)
	read := h.perm("reports.read")
	export := h.perm("reports.export")
	h.grant(r, read, nil)

	u := h.user("alice")
	h.assign(u, r)

	_, err := h.svc.GrantUserPermission(h.ctx, SystemActor, u.ID, export.ID)
	require.NoError(t, err)

	perms, err := h.svc.EffectivePermissions(h.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"reports.export", "reports.read"}, perms)

	// a user without roles still receives direct grants
	solo := h.user("solo")
	_, err = h.svc.GrantUserPermission(h.ctx, SystemActor, solo.ID, export.ID)
	require.NoError(t, err)
	assert.True(t, h.allowed(h.svc.HasPermission(h.ctx, solo.ID, "reports.export")))

	require.NoError(t, h.svc.RevokeUserPermission(h.ctx, SystemActor, u.ID, export.ID))
	assert.False(t, h.allowed(h.svc.HasPermission(h.ctx, u.ID, "reports.export")))
	assert.True(t, h.allowed(h.svc.HasPermission(h.ctx, u.ID, "reports.read")))
}

func TestUserAuthorizations(t *testing.T) {
	h := newHarness(t)

	manager := h.role("manager", 1, nil, false)
	editor := h.role("editor", 2, manager, false)
	m := h.menu("articles", true)
	h.grant(editor, h.perm("articles.edit"), m)

	u := h.user("alice")
	h.assign(u, manager)

	got, err := h.svc.UserAuthorizations(h.ctx, u.ID)
	require.NoError(t, err)

	assert.True(t, got.Active)
	assert.False(t, got.IsAdmin)
	require.NotNil(t, got.HighestRole)
	assert.Equal(t, "manager", got.HighestRole.Code)
	require.Len(t, got.Roles, 2)
	assert.Equal(t, "manager", got.Roles[0].Code)
	assert.Equal(t, "editor", got.Roles[1].Code)
	assert.Equal(t, []string{"articles.edit"}, got.Permissions)
	require.Len(t, got.Menus, 1)
	assert.Equal(t, m.ID, got.Menus[0].ID)
}

func TestUserMenus(t *testing.T) {
	h := newHarness(t)

	r := h.role("manager", 1, nil, false)
	read := h.perm("admin.read")

	in := func(code string, parent *models.Menu, order int) *models.Menu {
		mi := MenuInput{Code: code, SortOrder: order}
		if parent != nil {
			mi.ParentID = &parent.ID
		}

		m, err := h.svc.CreateMenu(h.ctx, SystemActor, mi)
		require.NoError(t, err)

		return m
	}

	admin := in("admin", nil, 1)
	users := in("admin.users", admin, 2)
	roles := in("admin.roles", admin, 1)
	reports := in("reports", nil, 0)
	daily := in("reports.daily", reports, 0)

	for _, m := range []*models.Menu{admin, users, roles, daily} {
		h.grant(r, read, m)
	}

	u := h.user("alice")
	h.assign(u, r)

	tree, err := h.svc.UserMenus(h.ctx, u.ID)
	require.NoError(t, err)

	// reports is not granted so its child surfaces as a root
	require.Len(t, tree, 2)
	assert.Equal(t, "reports.daily", tree[0].Code)
	assert.Equal(t, "admin", tree[1].Code)
	require.Len(t, tree[1].Children, 2)
	assert.Equal(t, "admin.roles", tree[1].Children[0].Code)
	assert.Equal(t, "admin.users", tree[1].Children[1].Code)

	empty, err := h.svc.UserMenus(h.ctx, h.user("bob").ID)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPermissionsForRoleFollowsGrants(t *testing.T) {
	h := newHarness(t)

	parent := h.role("manager", 1, nil, false)
	child := h.role("editor", 2, parent, false)
	h.grant(child, h.perm("articles.edit"), nil)

	codes, err := h.svc.PermissionsForRole(h.ctx, parent.ID)
	require.NoError(t, err)
	assert.Empty(t, codes, "role permissions are not inherited")

	h.grant(parent, h.perm("articles.publish"), nil)

	codes, err = h.svc.PermissionsForRole(h.ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"articles.publish"}, codes)
}

func TestRolesHierarchyAndDominates(t *testing.T) {
	h := newHarness(t)

	director := h.role("director", 1, nil, false)
	manager := h.role("manager", 2, director, false)
	peer := h.role("peer", 2, nil, false)

	tree, err := h.svc.RolesHierarchy(h.ctx)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, "director", tree[0].Code)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, "manager", tree[0].Children[0].Code)
	assert.Equal(t, "peer", tree[1].Code)

	ok, err := h.svc.Dominates(h.ctx, director.ID, manager.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.svc.Dominates(h.ctx, manager.ID, peer.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = h.svc.Dominates(h.ctx, director.ID, 999)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestCheckPolicy(t *testing.T) {
	h := newHarness(t)

	r := h.role("editor", 2, nil, false)
	m := h.menu("articles", true)
	h.grant(r, h.perm("articles.edit"), m)
	h.grant(r, h.perm("articles.read"), nil)

	u := h.user("alice")
	h.assign(u, r)

	testCases := []struct {
		name       string
		policy     Policy
		want       bool
		wantReason string
		wantKind   errs.Kind
	}{
		{
			name:   "permission any",
			policy: Policy{Type: PolicyPermission, Conditions: Conditions{Operator: OperatorAny, Permissions: []string{"x.y", "articles.edit"}}},
			want:   true,
		},
		{
			name:       "permission all",
			policy:     Policy{Type: PolicyPermission, Conditions: Conditions{Operator: OperatorAll, Permissions: []string{"x.y", "articles.edit"}}},
			wantReason: ReasonMissingPermission,
		},
		{
			name:       "missing operator",
			policy:     Policy{Type: PolicyPermission, Conditions: Conditions{Permissions: []string{"articles.edit"}}},
			wantReason: ReasonUnknownPolicy,
		},
		{
			name:       "empty permissions",
			policy:     Policy{Type: PolicyPermission, Conditions: Conditions{Operator: OperatorAny}},
			wantReason: ReasonEmptyList,
		},
		{
			name:   "role",
			policy: Policy{Type: PolicyRole, Conditions: Conditions{Operator: OperatorAll, Roles: []string{"editor"}}},
			want:   true,
		},
		{
			name:   "menu",
			policy: Policy{Type: PolicyMenu, Conditions: Conditions{Operator: OperatorAny, MenuIDs: []uint64{m.ID}}},
			want:   true,
		},
		{
			name:   "resource",
			policy: Policy{Type: PolicyResource, Conditions: Conditions{Operator: OperatorAll, Resource: "articles", Actions: []string{"read", "edit"}}},
			want:   true,
		},
		{
			name:       "resource without name",
			policy:     Policy{Type: PolicyResource, Conditions: Conditions{Operator: OperatorAll, Actions: []string{"read"}}},
			wantReason: ReasonUnknownPolicy,
		},
		{
			name: "complex with optional rule",
			policy: Policy{Type: PolicyComplex, Conditions: Conditions{Rules: []Rule{
				{Type: PolicyRole, Conditions: Conditions{Operator: OperatorAny, Roles: []string{"editor"}}},
				{Type: PolicyPermission, Conditions: Conditions{Operator: OperatorAny, Permissions: []string{"articles.delete"}}, Required: ptr(false)},
			}}},
			want: true,
		},
		{
			name: "complex with failing rule",
			policy: Policy{Type: PolicyComplex, Conditions: Conditions{Rules: []Rule{
				{Type: PolicyRole, Conditions: Conditions{Operator: OperatorAny, Roles: []string{"editor"}}},
				{Type: PolicyPermission, Conditions: Conditions{Operator: OperatorAny, Permissions: []string{"articles.delete"}}},
			}}},
			wantReason: ReasonRuleFailed,
		},
		{
			name:       "complex without rules",
			policy:     Policy{Type: PolicyComplex},
			wantReason: ReasonEmptyList,
		},
		{
			name:     "unknown type",
			policy:   Policy{Type: "time", Conditions: Conditions{Operator: OperatorAny}},
			wantKind: errs.InvalidArgument,
		},
		{
			name:     "unknown operator",
			policy:   Policy{Type: PolicyRole, Conditions: Conditions{Operator: "most", Roles: []string{"editor"}}},
			wantKind: errs.InvalidArgument,
		},
		{
			name:     "blank permission code",
			policy:   Policy{Type: PolicyPermission, Conditions: Conditions{Operator: OperatorAny, Permissions: []string{""}}},
			wantKind: errs.InvalidArgument,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := h.svc.CheckPolicy(h.ctx, u.ID, tc.policy)

			if tc.wantKind != 0 {
				require.Error(t, err)
				assert.Equal(t, tc.wantKind, errs.KindOf(err))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, d.Allowed)

			if !tc.want {
				assert.Equal(t, tc.wantReason, d.Reason)
			}
		})
	}
}

func TestPolicyAndDependencies(t *testing.T) {
	h := newHarness(t)

	editor := h.role("editor", 2, nil, false)
	viewer := h.role("viewer", 3, nil, false)
	edit := h.perm("articles.edit")
	read := h.perm("articles.read")
	h.perm("articles.archive")
	m := h.menu("articles", true)

	h.grant(editor, edit, m)
	h.grant(editor, read, nil)
	h.grant(viewer, read, m)

	matrix, err := h.svc.Policy(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, PolicyMatrix{
		"editor": {"articles.edit": {"articles"}, "articles.read": {}},
		"viewer": {"articles.read": {"articles"}},
	}, matrix)

	deps, err := h.svc.PermissionsDependencies(h.ctx)
	require.NoError(t, err)
	require.Len(t, deps, 3)

	byCode := map[string]PermissionDependency{}
	for _, d := range deps {
		byCode[d.Code] = d
	}

	assert.Equal(t, []string{"editor", "viewer"}, byCode["articles.read"].Roles)
	assert.Equal(t, []string{"articles"}, byCode["articles.read"].Menus)
	assert.Equal(t, 2, byCode["articles.read"].Authorizations)
	assert.Equal(t, 1, byCode["articles.edit"].Authorizations)
	assert.Empty(t, byCode["articles.archive"].Roles)
	assert.Equal(t, 0, byCode["articles.archive"].Authorizations)
}
