package daemon

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/accessd/accessd/internal/authz"
	"github.com/accessd/accessd/internal/config"
	"github.com/accessd/accessd/internal/db/controller/menu"
	"github.com/accessd/accessd/internal/db/controller/permission"
	"github.com/accessd/accessd/internal/db/controller/person"
	"github.com/accessd/accessd/internal/db/controller/role"
	"github.com/accessd/accessd/internal/db/controller/user"
	"github.com/accessd/accessd/internal/db/models"
	"github.com/accessd/accessd/internal/errs"
)

// AdminRoleCode is the seeded administrator role below the super admin.
const AdminRoleCode = "admin"

// AdministrationMenu is the root of the seeded menus.
const AdministrationMenu = "administration"

type seedMenu struct {
	code, label, route string
	order              int
}

// one menu per permission group, below the administration menu
var systemMenus = []seedMenu{ //nolint:gochecknoglobals
	{"users", "Users", "/admin/users", 1},
	{"roles", "Roles", "/admin/roles", 2},
	{"permissions", "Permissions", "/admin/permissions", 3},
	{"menus", "Menus", "/admin/menus", 4},
	{"authorizations", "Authorizations", "/admin/authorizations", 5},
}

var adminPermissions = []string{ //nolint:gochecknoglobals
	authz.PermUsersRead,
	authz.PermUsersManage,
	authz.PermRolesRead,
	authz.PermPermissionsRead,
	authz.PermMenusRead,
	authz.PermAuthorizationsRead,
	authz.PermAuthorizationsVerify,
}

// SeedResult reports what Seed found or created.
type SeedResult struct {
	SuperAdminRoleID uint64
	AdminRoleID      uint64
	UserID           uint64
	Permissions      int
	Menus            int
	Authorizations   int
}

type seeder struct {
	ctx context.Context
	db  *gorm.DB
	svc *authz.Service
	res SeedResult
}

// Seed creates the system permissions and menus, the super admin and admin roles and the
// configured super admin account. Existing rows are kept, so Seed can run on every start.
func Seed(ctx context.Context, db *gorm.DB, svc *authz.Service, cfg *config.Config) (SeedResult, error) {
	s := &seeder{ctx: ctx, db: db.WithContext(ctx), svc: svc}

	perms, err := s.permissions()
	if err != nil {
		return s.res, errors.Wrap(err, "seed permissions")
	}

	menus, err := s.menus()
	if err != nil {
		return s.res, errors.Wrap(err, "seed menus")
	}

	code := cfg.Authz.SuperAdminRoleCode

	super, err := s.role(authz.RoleInput{Code: code, Label: "Super administrator", Level: 0, IsSystem: true})
	if err != nil {
		return s.res, errors.Wrap(err, "seed super admin role")
	}

	s.res.SuperAdminRoleID = super.ID

	admin, err := s.role(authz.RoleInput{Code: AdminRoleCode, Label: "Administrator", Level: 1, ParentID: &super.ID, IsSystem: true})
	if err != nil {
		return s.res, errors.Wrap(err, "seed admin role")
	}

	s.res.AdminRoleID = admin.ID

	for _, p := range perms {
		if err = s.grant(super.ID, p.ID, nil); err != nil {
			return s.res, errors.Wrap(err, "seed super admin grants")
		}

		for _, m := range menus {
			if err = s.grant(super.ID, p.ID, &m.ID); err != nil {
				return s.res, errors.Wrap(err, "seed super admin menu grants")
			}
		}
	}

	for _, c := range adminPermissions {
		for _, p := range perms {
			if p.Code != c {
				continue
			}

			if err = s.grant(admin.ID, p.ID, nil); err != nil {
				return s.res, errors.Wrap(err, "seed admin grants")
			}
		}
	}

	if cfg.Seed.AdminUsername != "" {
		if err = s.account(cfg.Seed, super.ID); err != nil {
			return s.res, errors.Wrap(err, "seed super admin account")
		}
	}

	log.Info().Uint64("super_admin_role_id", s.res.SuperAdminRoleID).Uint64("user_id", s.res.UserID).
		Int("permissions", s.res.Permissions).Int("menus", s.res.Menus).Int("authorizations", s.res.Authorizations).
		Msg("seed completed")

	return s.res, nil
}

func (s *seeder) permissions() ([]*models.Permission, error) {
	out := make([]*models.Permission, 0, len(authz.SystemPermissions()))

	for _, sp := range authz.SystemPermissions() {
		p, err := permission.GetByCode(s.db, sp.Code)
		if errs.Is(err, errs.NotFound) {
			p, err = s.svc.CreatePermission(s.ctx, authz.SystemActor, authz.PermissionInput{
				Code: sp.Code, Group: sp.Group, Label: sp.Label, IsSystem: true,
			})
			s.res.Permissions++
		}

		if err != nil {
			return nil, err
		}

		out = append(out, p)
	}

	return out, nil
}

func (s *seeder) menu(in authz.MenuInput) (*models.Menu, error) {
	m, err := menu.GetByCode(s.db, in.Code)
	if !errs.Is(err, errs.NotFound) {
		return m, err
	}

	s.res.Menus++

	return s.svc.CreateMenu(s.ctx, authz.SystemActor, in)
}

func (s *seeder) menus() ([]*models.Menu, error) {
	root, err := s.menu(authz.MenuInput{Code: AdministrationMenu, Label: "Administration", Route: "/admin", IsSystem: true})
	if err != nil {
		return nil, err
	}

	out := []*models.Menu{root}

	for _, sm := range systemMenus {
		m, err := s.menu(authz.MenuInput{
			Code: sm.code, Label: sm.label, Route: sm.route, ParentID: &root.ID, IsSystem: true, SortOrder: sm.order,
		})
		if err != nil {
			return nil, err
		}

		out = append(out, m)
	}

	return out, nil
}

func (s *seeder) role(in authz.RoleInput) (*models.Role, error) {
	r, err := role.GetByCode(s.db, in.Code)
	if !errs.Is(err, errs.NotFound) {
		return r, err
	}

	return s.svc.CreateRole(s.ctx, authz.SystemActor, in)
}

func (s *seeder) grant(roleID, permissionID uint64, menuID *uint64) error {
	_, err := s.svc.CreateAuthorization(s.ctx, authz.SystemActor, authz.CreateAuthorizationInput{
		RoleID: roleID, PermissionID: permissionID, MenuID: menuID,
	})

	switch {
	case errs.Is(err, errs.Conflict):
		return nil
	case err != nil:
		return err
	}

	s.res.Authorizations++

	return nil
}

func (s *seeder) account(cfg config.Seed, roleID uint64) error {
	u, err := user.GetByUsername(s.db, cfg.AdminUsername)
	if errs.Is(err, errs.NotFound) {
		in := authz.UserInput{Username: cfg.AdminUsername}

		if cfg.AdminEmail != "" {
			p, err := s.person(cfg)
			if err != nil {
				return err
			}

			in.PersonID = &p.ID
		}

		u, err = s.svc.CreateUser(s.ctx, authz.SystemActor, in)
	}

	if err != nil {
		return err
	}

	s.res.UserID = u.ID

	if _, err = s.svc.AssignRole(s.ctx, authz.SystemActor, u.ID, roleID); errs.Is(err, errs.Conflict) {
		return nil
	}

	return err
}

func (s *seeder) person(cfg config.Seed) (*models.Person, error) {
	p, err := person.GetByEmail(s.db, cfg.AdminEmail)
	if !errs.Is(err, errs.NotFound) {
		return p, err
	}

	return person.Create(s.db, &models.Person{FirstName: cfg.AdminFirstName, LastName: cfg.AdminLastName, Email: cfg.AdminEmail})
}
