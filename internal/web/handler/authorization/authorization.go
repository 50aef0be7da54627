// Package authorization serves user views, verification queries, policies, grants and the cache.
package authorization

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/accessd/accessd/internal/authz"
	controller "github.com/accessd/accessd/internal/db/controller/authorization"
	"github.com/accessd/accessd/internal/web/handler"
)

// Path is the route group of the handler.
const Path = "/authorizations"

// Service is the authorization handler service.
type Service struct {
	handler.Service
	db  *gorm.DB
	svc *authz.Service
}

// Init registers the routes. Literal segments are registered before /:id.
func (s *Service) Init(router fiber.Router, db *gorm.DB, svc *authz.Service) error {
	if router == nil || db == nil || svc == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.db = db
	s.svc = svc

	read := authz.RequirePermission(svc, authz.PermAuthorizationsRead)
	verify := authz.RequirePermission(svc, authz.PermAuthorizationsVerify)
	manage := authz.RequirePermission(svc, authz.PermAuthorizationsManage)

	router.Route(Path, func(r fiber.Router) {
		r.Get("/user/:userId", s.selfOrRead, s.User)
		r.Get("/user/:userId/effective", s.selfOrRead, s.Effective)
		r.Get("/user/:userId/highest-role", s.selfOrRead, s.HighestRole)
		r.Get("/user/:userId/is-admin", s.selfOrRead, s.IsAdmin)
		r.Get("/user/:userId/menus", s.selfOrRead, s.Menus)

		r.Get("/verify/any/:permissions", verify, s.VerifyAny)
		r.Get("/verify/all/:permissions", verify, s.VerifyAll)
		r.Get("/verify/role/any/:roles", verify, s.VerifyAnyRole)
		r.Get("/verify/role/all/:roles", verify, s.VerifyAllRoles)
		r.Get("/verify/role/:role", verify, s.VerifyRole)
		r.Get("/verify/menu/:menuId", verify, s.VerifyMenu)
		r.Get("/verify/resource/:resource/:action", verify, s.VerifyResource)
		r.Get("/verify/:permission", verify, s.Verify)
		r.Post("/check/policy", verify, s.CheckPolicy)

		r.Get("/roles/hierarchy", read, s.Hierarchy)
		r.Get("/policy", read, s.Policy)
		r.Get("/permissions/dependencies", read, s.Dependencies)
		r.Get("/role/:roleId", read, s.ByRole)
		r.Get("/permission/:permissionId", read, s.ByPermission)
		r.Get("/menu/:menuId", read, s.ByMenu)
		r.Get("/resources/:resource/actions", read, s.ResourceActions)

		r.Post("/cache/invalidate", manage, s.InvalidateCache)
		r.Post("/cache/rebuild", manage, s.RebuildCache)

		r.Get(handler.RootPath, read, s.List)
		r.Post(handler.RootPath, manage, s.Create)
		r.Get("/:id", read, s.Get)
		r.Delete("/:id", manage, s.Revoke)
		r.Delete("/:id/hard", manage, s.HardDelete)
	})

	return nil
}

// selfOrRead lets a principal read its own view and requires authorizations.read for anybody else.
func (s *Service) selfOrRead(c *fiber.Ctx) error {
	userID, err := handler.ParamID(c, "userId")
	if err != nil {
		return err
	}

	if userID == handler.Actor(c) {
		return c.Next()
	}

	return authz.RequirePermission(s.svc, authz.PermAuthorizationsRead)(c)
}

func (s *Service) decide(c *fiber.Ctx, d authz.Decision, err error) error {
	if err != nil {
		return err
	}

	return c.JSON(d)
}

// User returns the roles, permissions and menus of a user.
func (s *Service) User(c *fiber.Ctx) error {
	userID, _ := handler.ParamID(c, "userId")

	out, err := s.svc.UserAuthorizations(c.UserContext(), userID)
	if err != nil {
		return err
	}

	return c.JSON(out)
}

// Effective returns the effective permission codes of a user.
func (s *Service) Effective(c *fiber.Ctx) error {
	userID, _ := handler.ParamID(c, "userId")

	perms, err := s.svc.EffectivePermissions(c.UserContext(), userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"userId": userID, "permissions": perms})
}

// HighestRole returns the highest role of a user, null when the user holds none.
func (s *Service) HighestRole(c *fiber.Ctx) error {
	userID, _ := handler.ParamID(c, "userId")

	r, err := s.svc.HighestRole(c.UserContext(), userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"userId": userID, "highestRole": r})
}

// IsAdmin reports whether a user is an administrator.
func (s *Service) IsAdmin(c *fiber.Ctx) error {
	userID, _ := handler.ParamID(c, "userId")

	d, err := s.svc.IsAdmin(c.UserContext(), userID)

	return s.decide(c, d, err)
}

// Menus returns the accessible menu tree of a user.
func (s *Service) Menus(c *fiber.Ctx) error {
	userID, _ := handler.ParamID(c, "userId")

	tree, err := s.svc.UserMenus(c.UserContext(), userID)
	if err != nil {
		return err
	}

	return c.JSON(tree)
}

// Verify checks one permission of the principal.
func (s *Service) Verify(c *fiber.Ctx) error {
	d, err := s.svc.HasPermission(c.UserContext(), handler.Actor(c), c.Params("permission"))

	return s.decide(c, d, err)
}

// VerifyAny checks that the principal holds at least one of the permissions.
func (s *Service) VerifyAny(c *fiber.Ctx) error {
	d, err := s.svc.HasAnyPermission(c.UserContext(), handler.Actor(c), handler.ParamList(c, "permissions"))

	return s.decide(c, d, err)
}

// VerifyAll checks that the principal holds every permission.
func (s *Service) VerifyAll(c *fiber.Ctx) error {
	d, err := s.svc.HasAllPermissions(c.UserContext(), handler.Actor(c), handler.ParamList(c, "permissions"))

	return s.decide(c, d, err)
}

// VerifyRole checks one role of the principal.
func (s *Service) VerifyRole(c *fiber.Ctx) error {
	d, err := s.svc.HasRole(c.UserContext(), handler.Actor(c), c.Params("role"))

	return s.decide(c, d, err)
}

// VerifyAnyRole checks that the principal holds at least one of the roles.
func (s *Service) VerifyAnyRole(c *fiber.Ctx) error {
	d, err := s.svc.HasAnyRole(c.UserContext(), handler.Actor(c), handler.ParamList(c, "roles"))

	return s.decide(c, d, err)
}

// VerifyAllRoles checks that the principal holds every role.
func (s *Service) VerifyAllRoles(c *fiber.Ctx) error {
	d, err := s.svc.HasAllRoles(c.UserContext(), handler.Actor(c), handler.ParamList(c, "roles"))

	return s.decide(c, d, err)
}

// VerifyMenu checks menu access of the principal.
func (s *Service) VerifyMenu(c *fiber.Ctx) error {
	menuID, err := handler.ParamID(c, "menuId")
	if err != nil {
		return err
	}

	d, err := s.svc.CanAccessMenu(c.UserContext(), handler.Actor(c), menuID)

	return s.decide(c, d, err)
}

// VerifyResource checks a resource action of the principal.
func (s *Service) VerifyResource(c *fiber.Ctx) error {
	d, err := s.svc.CanAccessResource(c.UserContext(), handler.Actor(c), c.Params("resource"), c.Params("action"))

	return s.decide(c, d, err)
}

// CheckPolicy evaluates the policy in the body for the principal.
func (s *Service) CheckPolicy(c *fiber.Ctx) error {
	var p authz.Policy
	if err := handler.Bind(c, &p); err != nil {
		return err
	}

	d, err := s.svc.CheckPolicy(c.UserContext(), handler.Actor(c), p)

	return s.decide(c, d, err)
}

// Hierarchy returns the role forest.
func (s *Service) Hierarchy(c *fiber.Ctx) error {
	tree, err := s.svc.RolesHierarchy(c.UserContext())
	if err != nil {
		return err
	}

	return c.JSON(tree)
}

// Policy returns the role to permission to menu matrix.
func (s *Service) Policy(c *fiber.Ctx) error {
	m, err := s.svc.Policy(c.UserContext())
	if err != nil {
		return err
	}

	return c.JSON(m)
}

// Dependencies returns what references each permission.
func (s *Service) Dependencies(c *fiber.Ctx) error {
	deps, err := s.svc.PermissionsDependencies(c.UserContext())
	if err != nil {
		return err
	}

	return c.JSON(deps)
}

func (s *Service) grants(c *fiber.Ctx, param string, filter func(id uint64) controller.Filter) ([]controller.Grant, error) {
	id, err := handler.ParamID(c, param)
	if err != nil {
		return nil, err
	}

	return controller.Grants(s.db.WithContext(c.UserContext()), filter(id))
}

// ByRole returns the role's own permission codes and its grants.
func (s *Service) ByRole(c *fiber.Ctx) error {
	grants, err := s.grants(c, "roleId", func(id uint64) controller.Filter { return controller.Filter{RoleID: &id} })
	if err != nil {
		return err
	}

	roleID, _ := handler.ParamID(c, "roleId")

	codes, err := s.svc.PermissionsForRole(c.UserContext(), roleID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"roleId": roleID, "permissions": codes, "grants": grants})
}

// ByPermission returns the grants of a permission.
func (s *Service) ByPermission(c *fiber.Ctx) error {
	grants, err := s.grants(c, "permissionId", func(id uint64) controller.Filter { return controller.Filter{PermissionID: &id} })
	if err != nil {
		return err
	}

	return c.JSON(grants)
}

// ByMenu returns the grants scoped to a menu.
func (s *Service) ByMenu(c *fiber.Ctx) error {
	grants, err := s.grants(c, "menuId", func(id uint64) controller.Filter { return controller.Filter{MenuID: &id} })
	if err != nil {
		return err
	}

	return c.JSON(grants)
}

// ResourceActions returns the actions known for a resource.
func (s *Service) ResourceActions(c *fiber.Ctx) error {
	resource := c.Params("resource")

	actions, err := s.svc.ResourceActions(c.UserContext(), resource)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"resource": resource, "actions": actions})
}

// InvalidateCache drops cached views.
func (s *Service) InvalidateCache(c *fiber.Ctx) error {
	var in authz.InvalidateInput
	if err := handler.Bind(c, &in); err != nil {
		return err
	}

	if err := s.svc.InvalidateCache(c.UserContext(), handler.Actor(c), in); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// RebuildCache flushes the cache and leaves bypass mode.
func (s *Service) RebuildCache(c *fiber.Ctx) error {
	if err := s.svc.RebuildCache(c.UserContext(), handler.Actor(c)); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// List returns one page of live authorizations.
func (s *Service) List(c *fiber.Ctx) error {
	var filter controller.Filter

	page, err := handler.Query(c, &filter)
	if err != nil {
		return err
	}

	res, err := controller.List(s.db.WithContext(c.UserContext()), filter, page)
	if err != nil {
		return err
	}

	return c.JSON(res)
}

// Get returns one live authorization.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		return err
	}

	a, err := controller.Get(s.db.WithContext(c.UserContext()), id)
	if err != nil {
		return err
	}

	return c.JSON(a)
}

// Create grants a permission to a role.
func (s *Service) Create(c *fiber.Ctx) error {
	var in authz.CreateAuthorizationInput
	if err := handler.Bind(c, &in); err != nil {
		return err
	}

	a, err := s.svc.CreateAuthorization(c.UserContext(), handler.Actor(c), in)
	if err != nil {
		return err
	}

	return handler.Created(c, a)
}

// Revoke soft-deletes an authorization.
func (s *Service) Revoke(c *fiber.Ctx) error {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		return err
	}

	a, err := s.svc.RevokeAuthorization(c.UserContext(), handler.Actor(c), id)
	if err != nil {
		return err
	}

	return c.JSON(a)
}

// HardDelete removes an authorization row.
func (s *Service) HardDelete(c *fiber.Ctx) error {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		return err
	}

	a, err := s.svc.HardDeleteAuthorization(c.UserContext(), handler.Actor(c), id)
	if err != nil {
		return err
	}

	return c.JSON(a)
}
