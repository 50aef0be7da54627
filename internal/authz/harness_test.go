package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/accessd/accessd/internal/authz/cache"
	"github.com/accessd/accessd/internal/config"
	"github.com/accessd/accessd/internal/db/controller/user"
	"github.com/accessd/accessd/internal/db/dbtest"
	"github.com/accessd/accessd/internal/db/models"
)

func ptr[T any](v T) *T { return &v }

func testAuthz() config.Authz {
	return config.Authz{
		AdminRoleCodes:     []string{"super_admin", "admin"},
		AdminMaxLevel:      0,
		SuperAdminRoleCode: "super_admin",
	}
}

type harness struct {
	t     *testing.T
	ctx   context.Context
	db    *gorm.DB
	cache *cache.Cache
	svc   *Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	m, err := cache.NewMemory(128)
	require.NoError(t, err)

	return newHarnessWith(t, cache.New(m))
}

func newHarnessWith(t *testing.T, c *cache.Cache) *harness {
	t.Helper()

	db := dbtest.Open(t)

	return &harness{t: t, ctx: context.Background(), db: db, cache: c, svc: NewService(db, c, testAuthz())}
}

func (h *harness) role(code string, level int, parent *models.Role, system bool) *models.Role {
	h.t.Helper()

	in := RoleInput{Code: code, Level: level, IsSystem: system}
	if parent != nil {
		in.ParentID = &parent.ID
	}

	r, err := h.svc.CreateRole(h.ctx, SystemActor, in)
	require.NoError(h.t, err)

	return r
}

func (h *harness) perm(code string) *models.Permission {
	h.t.Helper()

	p, err := h.svc.CreatePermission(h.ctx, SystemActor, PermissionInput{Code: code})
	require.NoError(h.t, err)

	return p
}

func (h *harness) menu(code string, visible bool) *models.Menu {
	h.t.Helper()

	m, err := h.svc.CreateMenu(h.ctx, SystemActor, MenuInput{Code: code, IsVisible: &visible})
	require.NoError(h.t, err)

	return m
}

func (h *harness) user(username string) *models.User {
	h.t.Helper()

	u, err := user.Create(h.db, &models.User{Username: username})
	require.NoError(h.t, err)

	return u
}

func (h *harness) assign(u *models.User, r *models.Role) {
	h.t.Helper()

	_, err := h.svc.AssignRole(h.ctx, SystemActor, u.ID, r.ID)
	require.NoError(h.t, err)
}

func (h *harness) grant(r *models.Role, p *models.Permission, m *models.Menu) *models.Authorization {
	h.t.Helper()

	in := CreateAuthorizationInput{RoleID: r.ID, PermissionID: p.ID}
	if m != nil {
		in.MenuID = &m.ID
	}

	a, err := h.svc.CreateAuthorization(h.ctx, SystemActor, in)
	require.NoError(h.t, err)

	return a
}

func (h *harness) allowed(d Decision, err error) bool {
	h.t.Helper()
	require.NoError(h.t, err)

	return d.Allowed
}
