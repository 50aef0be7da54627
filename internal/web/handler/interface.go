package handler

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/accessd/accessd/internal/authz"
)

// Service is the interface for a web handler service.
type Service interface {
	Init(router fiber.Router, db *gorm.DB, svc *authz.Service) error
}
