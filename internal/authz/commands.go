package authz

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/accessd/accessd/internal/db/controller/access"
	"github.com/accessd/accessd/internal/db/controller/authorization"
	"github.com/accessd/accessd/internal/db/controller/menu"
	"github.com/accessd/accessd/internal/db/controller/permission"
	"github.com/accessd/accessd/internal/db/controller/role"
	"github.com/accessd/accessd/internal/db/controller/user"
	"github.com/accessd/accessd/internal/db/controller/userpermission"
	"github.com/accessd/accessd/internal/db/models"
	"github.com/accessd/accessd/internal/db/query"
	"github.com/accessd/accessd/internal/errs"
)

// SystemActor runs commands on behalf of accessd itself (seeding, CLI). It bypasses the
// protected entity checks and is never derived from a request.
const SystemActor uint64 = 0

// Scope of a cache invalidation.
type Scope string

// Invalidation scopes.
const (
	ScopeUser Scope = "user"
	ScopeAll  Scope = "all"
)

// CreateAuthorizationInput grants a permission to a role, optionally scoped to a menu.
type CreateAuthorizationInput struct {
	RoleID       uint64  `json:"roleId" validate:"required"`
	PermissionID uint64  `json:"permissionId" validate:"required"`
	MenuID       *uint64 `json:"menuId,omitempty" validate:"omitempty,gt=0"`
}

// RoleInput creates a role.
type RoleInput struct {
	Code        string  `json:"code" validate:"required,max=100"`
	Label       string  `json:"label" validate:"max=255"`
	Description string  `json:"description" validate:"max=255"`
	Level       int     `json:"level" validate:"gte=0"`
	ParentID    *uint64 `json:"parentId,omitempty" validate:"omitempty,gt=0"`
	IsSystem    bool    `json:"isSystem"`
}

// RoleUpdate changes a role; absent fields are kept.
type RoleUpdate struct {
	Label       *string `json:"label,omitempty" validate:"omitempty,max=255"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=255"`
	Level       *int    `json:"level,omitempty" validate:"omitempty,gte=0"`
	ParentID    *uint64 `json:"parentId,omitempty" validate:"omitempty,gt=0"`
	ClearParent bool    `json:"clearParent"`
}

// PermissionInput creates a permission.
type PermissionInput struct {
	Code        string `json:"code" validate:"required,max=150"`
	Group       string `json:"group" validate:"max=100"`
	Label       string `json:"label" validate:"max=255"`
	Description string `json:"description" validate:"max=255"`
	IsSystem    bool   `json:"isSystem"`
}

// PermissionUpdate changes a permission; absent fields are kept.
type PermissionUpdate struct {
	Code        *string `json:"code,omitempty" validate:"omitempty,max=150"`
	Group       *string `json:"group,omitempty" validate:"omitempty,max=100"`
	Label       *string `json:"label,omitempty" validate:"omitempty,max=255"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=255"`
}

// MenuInput creates a menu. IsVisible defaults to true.
type MenuInput struct {
	Code      string  `json:"code" validate:"required,max=100"`
	Label     string  `json:"label" validate:"max=255"`
	Route     string  `json:"route" validate:"max=255"`
	Icon      string  `json:"icon" validate:"max=100"`
	ParentID  *uint64 `json:"parentId,omitempty" validate:"omitempty,gt=0"`
	IsSystem  bool    `json:"isSystem"`
	IsVisible *bool   `json:"isVisible,omitempty"`
	SortOrder int     `json:"sortOrder"`
}

// MenuUpdate changes a menu; absent fields are kept.
type MenuUpdate struct {
	Label       *string `json:"label,omitempty" validate:"omitempty,max=255"`
	Route       *string `json:"route,omitempty" validate:"omitempty,max=255"`
	Icon        *string `json:"icon,omitempty" validate:"omitempty,max=100"`
	ParentID    *uint64 `json:"parentId,omitempty" validate:"omitempty,gt=0"`
	ClearParent bool    `json:"clearParent"`
	IsVisible   *bool   `json:"isVisible,omitempty"`
	SortOrder   *int    `json:"sortOrder,omitempty"`
}

// UserInput creates a user account. Status defaults to active.
type UserInput struct {
	Username string            `json:"username" validate:"required,max=100"`
	Status   models.UserStatus `json:"status" validate:"omitempty,oneof=active inactive locked"`
	PersonID *uint64           `json:"personId,omitempty" validate:"omitempty,gt=0"`
}

// InvalidateInput selects what InvalidateCache drops.
type InvalidateInput struct {
	Scope  Scope  `json:"scope" validate:"required,oneof=user all"`
	UserID uint64 `json:"userId" validate:"required_if=Scope user"`
}

func actorRef(actor uint64) *uint64 {
	if actor == SystemActor {
		return nil
	}

	return &actor
}

func (s *Service) tx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

// requireAdmin fails with ProtectedEntity unless actor is an administrator.
func (s *Service) requireAdmin(ctx context.Context, op string, actor uint64, what string) error {
	if actor == SystemActor {
		return nil
	}

	d, err := s.IsAdmin(ctx, actor)
	if err != nil {
		return err
	}

	if !d.Allowed {
		return errs.Errorf(errs.ProtectedEntity, op, "%s is a system entity and requires an administrator", what)
	}

	return nil
}

// requireSuperAdmin fails with ProtectedEntity unless actor holds the super admin role.
func (s *Service) requireSuperAdmin(ctx context.Context, op string, actor uint64, what string) error {
	if actor == SystemActor {
		return nil
	}

	d, err := s.IsSuperAdmin(ctx, actor)
	if err != nil {
		return err
	}

	if !d.Allowed {
		return errs.Errorf(errs.ProtectedEntity, op, "%s requires the %s role", what, s.cfg.SuperAdminRoleCode)
	}

	return nil
}

func (s *Service) guardRole(ctx context.Context, op string, actor, roleID uint64) (*models.Role, error) {
	r, err := role.Get(s.db.WithContext(ctx), roleID)
	if err != nil {
		return nil, err
	}

	if r.IsSystem {
		if err = s.requireAdmin(ctx, op, actor, "role "+r.Code); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func (s *Service) guardPermission(ctx context.Context, op string, actor, permissionID uint64) (*models.Permission, error) {
	p, err := permission.Get(s.db.WithContext(ctx), permissionID)
	if err != nil {
		return nil, err
	}

	if p.IsSystem {
		if err = s.requireAdmin(ctx, op, actor, "permission "+p.Code); err != nil {
			return nil, err
		}
	}

	return p, nil
}

func (s *Service) guardMenu(ctx context.Context, op string, actor, menuID uint64) (*models.Menu, error) {
	m, err := menu.Get(s.db.WithContext(ctx), menuID)
	if err != nil {
		return nil, err
	}

	if m.IsSystem {
		if err = s.requireAdmin(ctx, op, actor, "menu "+m.Code); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// invalidateUsers drops the views of users after a committed mutation. A failure leaves the
// cache bypassed until the next rebuild, so it is logged rather than returned.
func (s *Service) invalidateUsers(ctx context.Context, op string, users ...uint64) {
	ctx = context.WithoutCancel(ctx)

	for _, id := range users {
		if err := s.cache.InvalidateUser(ctx, id); err != nil {
			l := s.logger(op, SystemActor)
			l.Error().Err(err).Uint64("user_id", id).Msg("cache invalidation failed")

			return
		}
	}
}

func (s *Service) invalidateAll(ctx context.Context, op string) {
	if err := s.cache.InvalidateAll(context.WithoutCancel(ctx)); err != nil {
		l := s.logger(op, SystemActor)
		l.Error().Err(err).Msg("cache invalidation failed")
	}
}

// CreateAuthorization grants a permission to a role within an optional menu.
func (s *Service) CreateAuthorization(ctx context.Context, actor uint64, in CreateAuthorizationInput) (*models.Authorization, error) {
	const op = "CreateAuthorization"

	if err := Validate(op, in); err != nil {
		return nil, err
	}

	if _, err := s.guardRole(ctx, op, actor, in.RoleID); err != nil {
		return nil, err
	}

	if _, err := s.guardPermission(ctx, op, actor, in.PermissionID); err != nil {
		return nil, err
	}

	if in.MenuID != nil {
		if _, err := s.guardMenu(ctx, op, actor, *in.MenuID); err != nil {
			return nil, err
		}
	}

	var a *models.Authorization

	err := s.tx(ctx, func(tx *gorm.DB) error {
		var err error
		a, err = authorization.Create(tx, in.RoleID, in.PermissionID, in.MenuID, actorRef(actor))

		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidateAll(ctx, op)

	l := s.logger(op, actor)
	l.Info().Uint64("authorization_id", a.ID).Uint64("role_id", a.RoleID).
		Uint64("permission_id", a.PermissionID).Msg("authorization granted")

	return a, nil
}

// guardAuthorization protects authorizations of system roles. The row may be soft-deleted.
func (s *Service) guardAuthorization(ctx context.Context, op string, actor, id uint64) error {
	if id == 0 {
		return errs.E(errs.InvalidArgument, op, "authorization id must be positive")
	}

	var a models.Authorization

	err := s.db.WithContext(ctx).Unscoped().First(&a, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.E(errs.NotFound, op, "authorization not found")
	}

	if err != nil {
		return query.Translate(op, err)
	}

	db := s.db.WithContext(ctx)

	r, err := role.Get(db, a.RoleID)
	if err != nil && !errs.Is(err, errs.NotFound) {
		return err
	}

	if r != nil && r.IsSystem {
		return s.requireAdmin(ctx, op, actor, "role "+r.Code)
	}

	p, err := permission.Get(db, a.PermissionID)
	if err != nil && !errs.Is(err, errs.NotFound) {
		return err
	}

	if p != nil && p.IsSystem {
		return s.requireAdmin(ctx, op, actor, "permission "+p.Code)
	}

	if a.MenuID == nil {
		return nil
	}

	m, err := menu.Get(db, *a.MenuID)
	if err != nil && !errs.Is(err, errs.NotFound) {
		return err
	}

	if m != nil && m.IsSystem {
		return s.requireAdmin(ctx, op, actor, "menu "+m.Code)
	}

	return nil
}

// RevokeAuthorization soft-deletes an authorization.
func (s *Service) RevokeAuthorization(ctx context.Context, actor, id uint64) (*models.Authorization, error) {
	const op = "RevokeAuthorization"

	if err := s.guardAuthorization(ctx, op, actor, id); err != nil {
		return nil, err
	}

	var a *models.Authorization

	err := s.tx(ctx, func(tx *gorm.DB) error {
		var err error
		a, err = authorization.Revoke(tx, id)

		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidateAll(ctx, op)

	l := s.logger(op, actor)
	l.Info().Uint64("authorization_id", id).Msg("authorization revoked")

	return a, nil
}

// HardDeleteAuthorization physically removes an authorization row.
func (s *Service) HardDeleteAuthorization(ctx context.Context, actor, id uint64) (*models.Authorization, error) {
	const op = "HardDeleteAuthorization"

	if err := s.guardAuthorization(ctx, op, actor, id); err != nil {
		return nil, err
	}

	var a *models.Authorization

	err := s.tx(ctx, func(tx *gorm.DB) error {
		var err error
		a, err = authorization.HardDelete(tx, id)

		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidateAll(ctx, op)

	l := s.logger(op, actor)
	l.Info().Uint64("authorization_id", id).Msg("authorization deleted")

	return a, nil
}

// AssignRole gives a role to a user.
func (s *Service) AssignRole(ctx context.Context, actor, userID, roleID uint64) (*models.Access, error) {
	const op = "AssignRole"

	if userID == 0 || roleID == 0 {
		return nil, errs.E(errs.InvalidArgument, op, "user and role ids must be positive")
	}

	if _, err := s.guardRole(ctx, op, actor, roleID); err != nil {
		return nil, err
	}

	var a *models.Access

	err := s.tx(ctx, func(tx *gorm.DB) error {
		var err error
		a, err = access.Assign(tx, userID, roleID, actorRef(actor))

		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidateUsers(ctx, op, userID)

	l := s.logger(op, actor)
	l.Info().Uint64("user_id", userID).Uint64("role_id", roleID).Msg("role assigned")

	return a, nil
}

// RevokeRole revokes a user's active role assignment.
func (s *Service) RevokeRole(ctx context.Context, actor, userID, roleID uint64) (*models.Access, error) {
	const op = "RevokeRole"

	if userID == 0 || roleID == 0 {
		return nil, errs.E(errs.InvalidArgument, op, "user and role ids must be positive")
	}

	if _, err := s.guardRole(ctx, op, actor, roleID); err != nil && !errs.Is(err, errs.NotFound) {
		return nil, err
	}

	var a *models.Access

	err := s.tx(ctx, func(tx *gorm.DB) error {
		var err error
		a, err = access.Revoke(tx, userID, roleID)

		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidateUsers(ctx, op, userID)

	l := s.logger(op, actor)
	l.Info().Uint64("user_id", userID).Uint64("role_id", roleID).Msg("role revoked")

	return a, nil
}

// GrantUserPermission grants a permission directly to a user.
func (s *Service) GrantUserPermission(ctx context.Context, actor, userID, permissionID uint64) (*models.UserPermission, error) {
	const op = "GrantUserPermission"

	if userID == 0 || permissionID == 0 {
		return nil, errs.E(errs.InvalidArgument, op, "user and permission ids must be positive")
	}

	if _, err := s.guardPermission(ctx, op, actor, permissionID); err != nil {
		return nil, err
	}

	var up *models.UserPermission

	err := s.tx(ctx, func(tx *gorm.DB) error {
		var err error
		up, err = userpermission.Grant(tx, userID, permissionID, actorRef(actor))

		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidateUsers(ctx, op, userID)

	l := s.logger(op, actor)
	l.Info().Uint64("user_id", userID).Uint64("permission_id", permissionID).Msg("permission granted to user")

	return up, nil
}

// RevokeUserPermission removes a direct grant.
func (s *Service) RevokeUserPermission(ctx context.Context, actor, userID, permissionID uint64) error {
	const op = "RevokeUserPermission"

	if userID == 0 || permissionID == 0 {
		return errs.E(errs.InvalidArgument, op, "user and permission ids must be positive")
	}

	if _, err := s.guardPermission(ctx, op, actor, permissionID); err != nil && !errs.Is(err, errs.NotFound) {
		return err
	}

	if err := s.tx(ctx, func(tx *gorm.DB) error {
		return userpermission.Revoke(tx, userID, permissionID)
	}); err != nil {
		return err
	}

	s.invalidateUsers(ctx, op, userID)

	l := s.logger(op, actor)
	l.Info().Uint64("user_id", userID).Uint64("permission_id", permissionID).Msg("permission revoked from user")

	return nil
}

// SetUserStatus changes a user's status. Only active users resolve roles and grants.
func (s *Service) SetUserStatus(ctx context.Context, actor, userID uint64, status models.UserStatus) (*models.User, error) {
	const op = "SetUserStatus"

	if err := checkUserID(op, userID); err != nil {
		return nil, err
	}

	var u *models.User

	err := s.tx(ctx, func(tx *gorm.DB) error {
		var err error
		u, err = user.SetStatus(tx, userID, status)

		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidateUsers(ctx, op, userID)

	l := s.logger(op, actor)
	l.Info().Uint64("user_id", userID).Str("status", string(status)).Msg("user status changed")

	return u, nil
}

// CreateUser creates a user account. A view resolved for the id before it existed is dropped.
func (s *Service) CreateUser(ctx context.Context, actor uint64, in UserInput) (*models.User, error) {
	const op = "CreateUser"

	if err := Validate(op, in); err != nil {
		return nil, err
	}

	u := &models.User{Username: in.Username, Status: in.Status, PersonID: in.PersonID}
	u.CreatedBy = actorRef(actor)

	err := s.tx(ctx, func(tx *gorm.DB) error {
		var err error
		u, err = user.Create(tx, u)

		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidateUsers(ctx, op, u.ID)

	l := s.logger(op, actor)
	l.Info().Uint64("user_id", u.ID).Str("username", u.Username).Msg("user created")

	return u, nil
}

// DeleteUser soft-deletes a user with its assignments and direct grants.
func (s *Service) DeleteUser(ctx context.Context, actor, userID uint64) error {
	const op = "DeleteUser"

	if err := checkUserID(op, userID); err != nil {
		return err
	}

	if err := s.tx(ctx, func(tx *gorm.DB) error {
		return user.Delete(tx, userID)
	}); err != nil {
		return err
	}

	s.invalidateUsers(ctx, op, userID)

	l := s.logger(op, actor)
	l.Info().Uint64("user_id", userID).Msg("user deleted")

	return nil
}

// CreateRole creates a role. Creating a system role requires an administrator.
func (s *Service) CreateRole(ctx context.Context, actor uint64, in RoleInput) (*models.Role, error) {
	const op = "CreateRole"

	if err := Validate(op, in); err != nil {
		return nil, err
	}

	if in.IsSystem {
		if err := s.requireAdmin(ctx, op, actor, "role "+in.Code); err != nil {
			return nil, err
		}
	}

	r := &models.Role{
		Code:        in.Code,
		Label:       in.Label,
		Description: in.Description,
		Level:       in.Level,
		ParentID:    in.ParentID,
		IsSystem:    in.IsSystem,
	}
	r.CreatedBy = actorRef(actor)

	err := s.tx(ctx, func(tx *gorm.DB) error {
		var err error
		r, err = role.Create(tx, r)

		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidateAll(ctx, op)

	l := s.logger(op, actor)
	l.Info().Uint64("role_id", r.ID).Str("code", r.Code).Msg("role created")

	return r, nil
}

// UpdateRole changes a role. The level of a system role can only be changed by a super admin.
func (s *Service) UpdateRole(ctx context.Context, actor, id uint64, in RoleUpdate) (*models.Role, error) {
	const op = "UpdateRole"

	if err := Validate(op, in); err != nil {
		return nil, err
	}

	cur, err := s.guardRole(ctx, op, actor, id)
	if err != nil {
		return nil, err
	}

	if cur.IsSystem && in.Level != nil && *in.Level != cur.Level {
		if err = s.requireSuperAdmin(ctx, op, actor, "changing the level of role "+cur.Code); err != nil {
			return nil, err
		}
	}

	var r *models.Role

	err = s.tx(ctx, func(tx *gorm.DB) error {
		var err error
		r, err = role.Update(tx, id, role.UpdateInput{
			Label:       in.Label,
			Description: in.Description,
			Level:       in.Level,
			ParentID:    in.ParentID,
			ClearParent: in.ClearParent,
		})

		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidateAll(ctx, op)

	l := s.logger(op, actor)
	l.Info().Uint64("role_id", id).Msg("role updated")

	return r, nil
}

// DeactivateRole soft-deletes a role with its authorizations and assignments.
func (s *Service) DeactivateRole(ctx context.Context, actor, id uint64) error {
	const op = "DeactivateRole"

	if _, err := s.guardRole(ctx, op, actor, id); err != nil {
		return err
	}

	var users []uint64

	err := s.tx(ctx, func(tx *gorm.DB) error {
		var err error
		users, err = role.Deactivate(tx, id)

		return err
	})
	if err != nil {
		return err
	}

	s.invalidateAll(ctx, op)

	l := s.logger(op, actor)
	l.Info().Uint64("role_id", id).Int("users", len(users)).Msg("role deactivated")

	return nil
}

// DeleteRole soft-deletes a role without dependents. System roles can only be deactivated.
func (s *Service) DeleteRole(ctx context.Context, actor, id uint64) error {
	const op = "DeleteRole"

	if err := s.tx(ctx, func(tx *gorm.DB) error {
		return role.Delete(tx, id)
	}); err != nil {
		return err
	}

	s.invalidateAll(ctx, op)

	l := s.logger(op, actor)
	l.Info().Uint64("role_id", id).Msg("role deleted")

	return nil
}

// CreatePermission creates a permission. Creating a system permission requires an administrator.
func (s *Service) CreatePermission(ctx context.Context, actor uint64, in PermissionInput) (*models.Permission, error) {
	const op = "CreatePermission"

	if err := Validate(op, in); err != nil {
		return nil, err
	}

	if in.IsSystem {
		if err := s.requireAdmin(ctx, op, actor, "permission "+in.Code); err != nil {
			return nil, err
		}
	}

	p := &models.Permission{
		Code:        in.Code,
		Group:       in.Group,
		Label:       in.Label,
		Description: in.Description,
		IsSystem:    in.IsSystem,
	}
	p.CreatedBy = actorRef(actor)

	err := s.tx(ctx, func(tx *gorm.DB) error {
		var err error
		p, err = permission.Create(tx, p)

		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidateAll(ctx, op)

	l := s.logger(op, actor)
	l.Info().Uint64("permission_id", p.ID).Str("code", p.Code).Msg("permission created")

	return p, nil
}

// UpdatePermission changes a permission. The code is immutable once referenced.
func (s *Service) UpdatePermission(ctx context.Context, actor, id uint64, in PermissionUpdate) (*models.Permission, error) {
	const op = "UpdatePermission"

	if err := Validate(op, in); err != nil {
		return nil, err
	}

	if _, err := s.guardPermission(ctx, op, actor, id); err != nil {
		return nil, err
	}

	var p *models.Permission

	err := s.tx(ctx, func(tx *gorm.DB) error {
		var err error
		p, err = permission.Update(tx, id, permission.UpdateInput{
			Code:        in.Code,
			Group:       in.Group,
			Label:       in.Label,
			Description: in.Description,
		})

		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidateAll(ctx, op)

	l := s.logger(op, actor)
	l.Info().Uint64("permission_id", id).Msg("permission updated")

	return p, nil
}

// DeactivatePermission soft-deletes a permission with its authorizations and direct grants.
func (s *Service) DeactivatePermission(ctx context.Context, actor, id uint64) error {
	const op = "DeactivatePermission"

	if _, err := s.guardPermission(ctx, op, actor, id); err != nil {
		return err
	}

	if err := s.tx(ctx, func(tx *gorm.DB) error {
		_, err := permission.Deactivate(tx, id)

		return err
	}); err != nil {
		return err
	}

	s.invalidateAll(ctx, op)

	l := s.logger(op, actor)
	l.Info().Uint64("permission_id", id).Msg("permission deactivated")

	return nil
}

// DeletePermission soft-deletes a permission without dependents.
func (s *Service) DeletePermission(ctx context.Context, actor, id uint64) error {
	const op = "DeletePermission"

	if err := s.tx(ctx, func(tx *gorm.DB) error {
		return permission.Delete(tx, id)
	}); err != nil {
		return err
	}

	s.invalidateAll(ctx, op)

	l := s.logger(op, actor)
	l.Info().Uint64("permission_id", id).Msg("permission deleted")

	return nil
}

// CreateMenu creates a menu. Creating a system menu requires an administrator.
func (s *Service) CreateMenu(ctx context.Context, actor uint64, in MenuInput) (*models.Menu, error) {
	const op = "CreateMenu"

	if err := Validate(op, in); err != nil {
		return nil, err
	}

	if in.IsSystem {
		if err := s.requireAdmin(ctx, op, actor, "menu "+in.Code); err != nil {
			return nil, err
		}
	}

	m := &models.Menu{
		Code:      in.Code,
		Label:     in.Label,
		Route:     in.Route,
		Icon:      in.Icon,
		ParentID:  in.ParentID,
		IsSystem:  in.IsSystem,
		IsVisible: in.IsVisible == nil || *in.IsVisible,
		SortOrder: in.SortOrder,
	}
	m.CreatedBy = actorRef(actor)

	err := s.tx(ctx, func(tx *gorm.DB) error {
		var err error
		m, err = menu.Create(tx, m)

		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidateAll(ctx, op)

	l := s.logger(op, actor)
	l.Info().Uint64("menu_id", m.ID).Str("code", m.Code).Msg("menu created")

	return m, nil
}

// UpdateMenu changes a menu. Hiding a menu removes it from every user's accessible menus.
func (s *Service) UpdateMenu(ctx context.Context, actor, id uint64, in MenuUpdate) (*models.Menu, error) {
	const op = "UpdateMenu"

	if err := Validate(op, in); err != nil {
		return nil, err
	}

	if _, err := s.guardMenu(ctx, op, actor, id); err != nil {
		return nil, err
	}

	var m *models.Menu

	err := s.tx(ctx, func(tx *gorm.DB) error {
		var err error
		m, err = menu.Update(tx, id, menu.UpdateInput{
			Label:       in.Label,
			Route:       in.Route,
			Icon:        in.Icon,
			ParentID:    in.ParentID,
			ClearParent: in.ClearParent,
			IsVisible:   in.IsVisible,
			SortOrder:   in.SortOrder,
		})

		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidateAll(ctx, op)

	l := s.logger(op, actor)
	l.Info().Uint64("menu_id", id).Msg("menu updated")

	return m, nil
}

// DeactivateMenu soft-deletes a menu with its authorizations.
func (s *Service) DeactivateMenu(ctx context.Context, actor, id uint64) error {
	const op = "DeactivateMenu"

	if _, err := s.guardMenu(ctx, op, actor, id); err != nil {
		return err
	}

	if err := s.tx(ctx, func(tx *gorm.DB) error {
		return menu.Deactivate(tx, id)
	}); err != nil {
		return err
	}

	s.invalidateAll(ctx, op)

	l := s.logger(op, actor)
	l.Info().Uint64("menu_id", id).Msg("menu deactivated")

	return nil
}

// DeleteMenu soft-deletes a menu without dependents.
func (s *Service) DeleteMenu(ctx context.Context, actor, id uint64) error {
	const op = "DeleteMenu"

	if err := s.tx(ctx, func(tx *gorm.DB) error {
		return menu.Delete(tx, id)
	}); err != nil {
		return err
	}

	s.invalidateAll(ctx, op)

	l := s.logger(op, actor)
	l.Info().Uint64("menu_id", id).Msg("menu deleted")

	return nil
}

// InvalidateCache drops the cached views of one user or of everyone.
// Unlike mutations, a failure here is returned as a Cache error.
func (s *Service) InvalidateCache(ctx context.Context, actor uint64, in InvalidateInput) error {
	const op = "InvalidateCache"

	if err := Validate(op, in); err != nil {
		return err
	}

	var err error

	if in.Scope == ScopeUser {
		err = s.cache.InvalidateUser(ctx, in.UserID)
	} else {
		err = s.cache.InvalidateAll(ctx)
	}

	if err != nil {
		return err
	}

	l := s.logger(op, actor)
	l.Info().Str("scope", string(in.Scope)).Uint64("user_id", in.UserID).Msg("authorization cache invalidated")

	return nil
}

// RebuildCache flushes the cache and re-enables it after a failed invalidation.
func (s *Service) RebuildCache(ctx context.Context, actor uint64) error {
	if err := s.cache.Rebuild(ctx); err != nil {
		return err
	}

	l := s.logger("RebuildCache", actor)
	l.Info().Msg("authorization cache rebuilt")

	return nil
}
