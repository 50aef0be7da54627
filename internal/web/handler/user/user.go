// Package user serves user accounts, their role assignments and direct grants.
package user

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/accessd/accessd/internal/authz"
	"github.com/accessd/accessd/internal/db/controller/access"
	controller "github.com/accessd/accessd/internal/db/controller/user"
	"github.com/accessd/accessd/internal/db/controller/userpermission"
	"github.com/accessd/accessd/internal/db/models"
	"github.com/accessd/accessd/internal/web/handler"
)

// Path is the route group of the handler.
const Path = "/users"

// Service is the user handler service.
type Service struct {
	handler.Service
	db  *gorm.DB
	svc *authz.Service
}

// Detail is a user with its assignments and direct grants.
type Detail struct {
	*models.User
	Accesses    []models.Access         `json:"accesses"`
	Permissions []models.UserPermission `json:"permissions"`
}

type statusInput struct {
	Status models.UserStatus `json:"status"`
}

type roleInput struct {
	RoleID uint64 `json:"roleId"`
}

type permissionInput struct {
	PermissionID uint64 `json:"permissionId"`
}

// Init registers the routes.
func (s *Service) Init(router fiber.Router, db *gorm.DB, svc *authz.Service) error {
	if router == nil || db == nil || svc == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.db = db
	s.svc = svc

	read := authz.RequirePermission(svc, authz.PermUsersRead)
	manage := authz.RequirePermission(svc, authz.PermUsersManage)

	router.Route(Path, func(r fiber.Router) {
		r.Get(handler.RootPath, read, s.List)
		r.Post(handler.RootPath, manage, s.Create)
		r.Get("/:userId", read, s.Get)
		r.Delete("/:userId", manage, s.Delete)
		r.Put("/:userId/status", manage, s.SetStatus)

		r.Get("/:userId/roles", read, s.Roles)
		r.Post("/:userId/roles", manage, s.AssignRole)
		r.Delete("/:userId/roles/:roleId", manage, s.RevokeRole)

		r.Get("/:userId/permissions", read, s.Permissions)
		r.Post("/:userId/permissions", manage, s.GrantPermission)
		r.Delete("/:userId/permissions/:permissionId", manage, s.RevokePermission)
	})

	return nil
}

// List returns one page of live users.
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

// Create creates a user account.
func (s *Service) Create(c *fiber.Ctx) error {
	var in authz.UserInput
	if err := handler.Bind(c, &in); err != nil {
		return err
	}

	u, err := s.svc.CreateUser(c.UserContext(), handler.Actor(c), in)
	if err != nil {
		return err
	}

	return handler.Created(c, u)
}

// Get returns a user with its assignments and direct grants.
func (s *Service) Get(c *fiber.Ctx) error {
	userID, err := handler.ParamID(c, "userId")
	if err != nil {
		return err
	}

	db := s.db.WithContext(c.UserContext())

	u, err := controller.Get(db, userID)
	if err != nil {
		return err
	}

	accesses, err := access.ListByUser(db, userID)
	if err != nil {
		return err
	}

	perms, err := userpermission.ListByUser(db, userID)
	if err != nil {
		return err
	}

	return c.JSON(Detail{User: u, Accesses: accesses, Permissions: perms})
}

// Delete soft-deletes a user.
func (s *Service) Delete(c *fiber.Ctx) error {
	userID, err := handler.ParamID(c, "userId")
	if err != nil {
		return err
	}

	if err = s.svc.DeleteUser(c.UserContext(), handler.Actor(c), userID); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// SetStatus changes the status of a user.
func (s *Service) SetStatus(c *fiber.Ctx) error {
	userID, err := handler.ParamID(c, "userId")
	if err != nil {
		return err
	}

	var in statusInput
	if err = handler.Bind(c, &in); err != nil {
		return err
	}

	u, err := s.svc.SetUserStatus(c.UserContext(), handler.Actor(c), userID, in.Status)
	if err != nil {
		return err
	}

	return c.JSON(u)
}

// Roles returns the assignments of a user, active and revoked.
func (s *Service) Roles(c *fiber.Ctx) error {
	userID, err := handler.ParamID(c, "userId")
	if err != nil {
		return err
	}

	out, err := access.ListByUser(s.db.WithContext(c.UserContext()), userID)
	if err != nil {
		return err
	}

	return c.JSON(out)
}

// AssignRole assigns the role in the body.
func (s *Service) AssignRole(c *fiber.Ctx) error {
	userID, err := handler.ParamID(c, "userId")
	if err != nil {
		return err
	}

	var in roleInput
	if err = handler.Bind(c, &in); err != nil {
		return err
	}

	a, err := s.svc.AssignRole(c.UserContext(), handler.Actor(c), userID, in.RoleID)
	if err != nil {
		return err
	}

	return handler.Created(c, a)
}

// RevokeRole revokes a role assignment.
func (s *Service) RevokeRole(c *fiber.Ctx) error {
	userID, err := handler.ParamID(c, "userId")
	if err != nil {
		return err
	}

	roleID, err := handler.ParamID(c, "roleId")
	if err != nil {
		return err
	}

	a, err := s.svc.RevokeRole(c.UserContext(), handler.Actor(c), userID, roleID)
	if err != nil {
		return err
	}

	return c.JSON(a)
}

// Permissions returns the direct grants of a user.
func (s *Service) Permissions(c *fiber.Ctx) error {
	userID, err := handler.ParamID(c, "userId")
	if err != nil {
		return err
	}

	out, err := userpermission.ListByUser(s.db.WithContext(c.UserContext()), userID)
	if err != nil {
		return err
	}

	return c.JSON(out)
}

// GrantPermission grants the permission in the body directly.
func (s *Service) GrantPermission(c *fiber.Ctx) error {
	userID, err := handler.ParamID(c, "userId")
	if err != nil {
		return err
	}

	var in permissionInput
	if err = handler.Bind(c, &in); err != nil {
		return err
	}

	up, err := s.svc.GrantUserPermission(c.UserContext(), handler.Actor(c), userID, in.PermissionID)
	if err != nil {
		return err
	}

	return handler.Created(c, up)
}

// RevokePermission removes a direct grant.
func (s *Service) RevokePermission(c *fiber.Ctx) error {
	userID, err := handler.ParamID(c, "userId")
	if err != nil {
		return err
	}

	permissionID, err := handler.ParamID(c, "permissionId")
	if err != nil {
		return err
	}

	if err = s.svc.RevokeUserPermission(c.UserContext(), handler.Actor(c), userID, permissionID); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}
