// Package permission serves permission management.
package permission

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/accessd/accessd/internal/authz"
	controller "github.com/accessd/accessd/internal/db/controller/permission"
	"github.com/accessd/accessd/internal/web/handler"
)

// Path is the route group of the handler.
const Path = "/permissions"

// Service is the permission handler service.
type Service struct {
	handler.Service
	db  *gorm.DB
	svc *authz.Service
}

// Init registers the routes.
func (s *Service) Init(router fiber.Router, db *gorm.DB, svc *authz.Service) error {
	if router == nil || db == nil || svc == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.db = db
	s.svc = svc

	read := authz.RequirePermission(svc, authz.PermPermissionsRead)
	manage := authz.RequirePermission(svc, authz.PermPermissionsManage)

	router.Route(Path, func(r fiber.Router) {
		r.Get(handler.RootPath, read, s.List)
		r.Post(handler.RootPath, manage, s.Create)
		r.Get("/:id", read, s.Get)
		r.Put("/:id", manage, s.Update)
		r.Post("/:id/deactivate", manage, s.Deactivate)
		r.Delete("/:id", manage, s.Delete)
	})

	return nil
}

// List returns one page of live permissions.
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

// Get returns one live permission.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		return err
	}

	p, err := controller.Get(s.db.WithContext(c.UserContext()), id)
	if err != nil {
		return err
	}

	return c.JSON(p)
}

// Create creates a permission.
func (s *Service) Create(c *fiber.Ctx) error {
	var in authz.PermissionInput
	if err := handler.Bind(c, &in); err != nil {
		return err
	}

	p, err := s.svc.CreatePermission(c.UserContext(), handler.Actor(c), in)
	if err != nil {
		return err
	}

	return handler.Created(c, p)
}

// Update changes a permission.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		return err
	}

	var in authz.PermissionUpdate
	if err = handler.Bind(c, &in); err != nil {
		return err
	}

	p, err := s.svc.UpdatePermission(c.UserContext(), handler.Actor(c), id, in)
	if err != nil {
		return err
	}

	return c.JSON(p)
}

// Deactivate soft-deletes a permission with its grants.
func (s *Service) Deactivate(c *fiber.Ctx) error {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		return err
	}

	if err = s.svc.DeactivatePermission(c.UserContext(), handler.Actor(c), id); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Delete soft-deletes a permission without dependents.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		return err
	}

	if err = s.svc.DeletePermission(c.UserContext(), handler.Actor(c), id); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}
