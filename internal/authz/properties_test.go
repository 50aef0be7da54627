package authz

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accessd/accessd/internal/db/models"
	"github.com/accessd/accessd/internal/errs"
)

func TestUserWithoutRolesIsDeniedEverything(t *testing.T) {
	h := newHarness(t)

	r := h.role("manager", 1, nil, false)
	p := h.perm("users.create")
	m := h.menu("users", true)
	h.grant(r, p, m)

	u := h.user("nobody")

	perms, err := h.svc.EffectivePermissions(h.ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, perms)

	highest, err := h.svc.HighestRole(h.ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, highest)

	assert.False(t, h.allowed(h.svc.HasPermission(h.ctx, u.ID, "users.create")))
	assert.False(t, h.allowed(h.svc.HasAnyPermission(h.ctx, u.ID, []string{"users.create"})))
	assert.False(t, h.allowed(h.svc.HasAllPermissions(h.ctx, u.ID, []string{"users.create"})))
	assert.False(t, h.allowed(h.svc.HasRole(h.ctx, u.ID, "manager")))
	assert.False(t, h.allowed(h.svc.HasAnyRole(h.ctx, u.ID, []string{"manager"})))
	assert.False(t, h.allowed(h.svc.HasAllRoles(h.ctx, u.ID, []string{"manager"})))
	assert.False(t, h.allowed(h.svc.CanAccessMenu(h.ctx, u.ID, m.ID)))
	assert.False(t, h.allowed(h.svc.CanAccessResource(h.ctx, u.ID, "users", "create")))
	assert.False(t, h.allowed(h.svc.IsAdmin(h.ctx, u.ID)))

	// unknown users behave the same and are not an error
	perms, err = h.svc.EffectivePermissions(h.ctx, 4242)
	require.NoError(t, err)
	assert.Empty(t, perms)
	assert.False(t, h.allowed(h.svc.HasPermission(h.ctx, 4242, "users.create")))
}

func TestInheritanceFlowsDownOnly(t *testing.T) {
	h := newHarness(t)

	r1 := h.role("director", 1, nil, false)
	r2 := h.role("manager", 2, r1, false)
	r3 := h.role("clerk", 3, r2, false)

	h.grant(r1, h.perm("budget.approve"), nil)
	h.grant(r2, h.perm("users.create"), nil)
	h.grant(r3, h.perm("users.read"), nil)

	holder1 := h.user("holder1")
	holder2 := h.user("holder2")
	h.assign(holder1, r1)
	h.assign(holder2, r2)

	perms, err := h.svc.EffectivePermissions(h.ctx, holder2.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"users.create", "users.read"}, perms)
	assert.False(t, h.allowed(h.svc.HasPermission(h.ctx, holder2.ID, "budget.approve")))
	assert.False(t, h.allowed(h.svc.HasRole(h.ctx, holder2.ID, "director")))
	assert.True(t, h.allowed(h.svc.HasRole(h.ctx, holder2.ID, "clerk")))

	perms, err = h.svc.EffectivePermissions(h.ctx, holder1.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"budget.approve", "users.create", "users.read"}, perms)
	assert.True(t, h.allowed(h.svc.HasAllRoles(h.ctx, holder1.ID, []string{"director", "manager", "clerk"})))
}

func TestCreateAuthorizationTwiceConflicts(t *testing.T) {
	h := newHarness(t)

	r := h.role("manager", 1, nil, false)
	p := h.perm("users.create")
	m := h.menu("users", true)

	h.grant(r, p, m)

	_, err := h.svc.CreateAuthorization(h.ctx, SystemActor, CreateAuthorizationInput{RoleID: r.ID, PermissionID: p.ID, MenuID: &m.ID})
	require.ErrorIs(t, err, errs.ErrConflict)

	var rows int64
	require.NoError(t, h.db.Unscoped().Model(&models.Authorization{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	for range 3 {
		require.NoError(t, h.svc.InvalidateCache(h.ctx, SystemActor, InvalidateInput{Scope: ScopeAll}))
		require.NoError(t, h.svc.InvalidateCache(h.ctx, SystemActor, InvalidateInput{Scope: ScopeUser, UserID: 7}))
	}
}

func TestRevokeIsVisibleToTheNextDecision(t *testing.T) {
	h := newHarness(t)

	r := h.role("manager", 1, nil, false)
	u := h.user("alice")
	h.assign(u, r)

	a := h.grant(r, h.perm("users.create"), nil)

	// warm the cache
	assert.True(t, h.allowed(h.svc.HasPermission(h.ctx, u.ID, "users.create")))
	assert.True(t, h.allowed(h.svc.HasPermission(h.ctx, u.ID, "users.create")))

	_, err := h.svc.RevokeAuthorization(h.ctx, SystemActor, a.ID)
	require.NoError(t, err)

	assert.False(t, h.allowed(h.svc.HasPermission(h.ctx, u.ID, "users.create")))

	// re-granting restores the same row
	again := h.grant(r, &models.Permission{Base: models.Base{ID: a.PermissionID}}, nil)
	assert.Equal(t, a.ID, again.ID)
	assert.True(t, h.allowed(h.svc.HasPermission(h.ctx, u.ID, "users.create")))

	_, err = h.svc.RevokeRole(h.ctx, SystemActor, u.ID, r.ID)
	require.NoError(t, err)
	assert.False(t, h.allowed(h.svc.HasPermission(h.ctx, u.ID, "users.create")))
}

func TestHighestRoleTieBreak(t *testing.T) {
	h := newHarness(t)

	first := h.role("alpha", 2, nil, false)
	second := h.role("beta", 2, nil, false)
	h.role("gamma", 1, nil, false)

	u := h.user("bob")
	h.assign(u, second)
	h.assign(u, first)

	for range 3 {
		got, err := h.svc.HighestRole(h.ctx, u.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, first.ID, got.ID)
		assert.Equal(t, "alpha", got.Code)
	}
}

func TestSuperAdminHoldsEverything(t *testing.T) {
	h := newHarness(t)

	super := h.role("super_admin", 0, nil, true)
	perms := []*models.Permission{h.perm("users.create"), h.perm("users.read"), h.perm("roles.manage")}
	menus := []*models.Menu{h.menu("users", true), h.menu("roles", true)}

	for _, p := range perms {
		for _, m := range menus {
			h.grant(super, p, m)
		}
	}

	u := h.user("root")
	h.assign(u, super)

	got, err := h.svc.EffectivePermissions(h.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"roles.manage", "users.create", "users.read"}, got)

	assert.True(t, h.allowed(h.svc.IsAdmin(h.ctx, u.ID)))
	assert.True(t, h.allowed(h.svc.IsSuperAdmin(h.ctx, u.ID)))

	for _, m := range menus {
		assert.True(t, h.allowed(h.svc.CanAccessMenu(h.ctx, u.ID, m.ID)))
	}
}

func TestHasAllPermissionsAcrossRoles(t *testing.T) {
	h := newHarness(t)

	manager := h.role("manager", 2, nil, false)
	editor := h.role("editor", 3, nil, false)
	create := h.perm("users.create")
	read := h.perm("users.read")

	h.grant(manager, create, nil)
	h.grant(editor, read, nil)

	u := h.user("carol")
	h.assign(u, manager)

	both := []string{"users.create", "users.read"}

	assert.False(t, h.allowed(h.svc.HasAllPermissions(h.ctx, u.ID, both)))
	assert.True(t, h.allowed(h.svc.HasAnyPermission(h.ctx, u.ID, both)))

	h.grant(manager, read, nil)

	assert.True(t, h.allowed(h.svc.HasAllPermissions(h.ctx, u.ID, both)))
}

func TestDeactivatedPermissionLeavesEveryRole(t *testing.T) {
	h := newHarness(t)

	manager := h.role("manager", 1, nil, false)
	editor := h.role("editor", 2, nil, false)
	create := h.perm("users.create")
	h.perm("users.read")

	h.grant(manager, create, nil)
	h.grant(editor, create, nil)

	alice, bob := h.user("alice"), h.user("bob")
	h.assign(alice, manager)
	h.assign(bob, editor)

	for _, u := range []*models.User{alice, bob} {
		assert.True(t, h.allowed(h.svc.HasPermission(h.ctx, u.ID, "users.create")))
	}

	codes, err := h.svc.PermissionsForRole(h.ctx, editor.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"users.create"}, codes)

	require.NoError(t, h.svc.DeactivatePermission(h.ctx, SystemActor, create.ID))

	for _, u := range []*models.User{alice, bob} {
		assert.False(t, h.allowed(h.svc.HasPermission(h.ctx, u.ID, "users.create")))
	}

	codes, err = h.svc.PermissionsForRole(h.ctx, editor.ID)
	require.NoError(t, err)
	assert.Empty(t, codes)

	actions, err := h.svc.ResourceActions(h.ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, []string{"read"}, actions)
}

func TestConcurrentDecisionsAcrossInvalidation(t *testing.T) {
	h := newHarness(t)

	r := h.role("manager", 1, nil, false)
	h.grant(r, h.perm("users.read"), nil)

	u := h.user("dave")
	h.assign(u, r)

	var wg sync.WaitGroup

	for range 16 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			d, err := h.svc.HasPermission(h.ctx, u.ID, "users.read")
			assert.NoError(t, err)
			assert.True(t, d.Allowed)
		}()
	}

	wg.Wait()

	_, err := h.svc.RevokeRole(h.ctx, SystemActor, u.ID, r.ID)
	require.NoError(t, err)

	for range 16 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			d, err := h.svc.HasPermission(h.ctx, u.ID, "users.read")
			assert.NoError(t, err)
			assert.False(t, d.Allowed)
		}()
	}

	wg.Wait()
}
