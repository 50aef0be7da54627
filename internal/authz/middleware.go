package authz

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/accessd/accessd/internal/errs"
)

const principalKey = "accessd.principal"

// Principal reads the authenticated user id set by the upstream identity service from header
// and stores it for PrincipalID. A missing header is Unauthorized, a malformed one InvalidArgument.
func Principal(header string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := strings.TrimSpace(c.Get(header))
		if raw == "" {
			return fiber.ErrUnauthorized
		}

		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return errs.Errorf(errs.InvalidArgument, "principal", "%s must be a positive integer", header)
		}

		c.Locals(principalKey, id)

		return c.Next()
	}
}

// PrincipalID returns the user id stored by Principal, 0 when absent.
func PrincipalID(c *fiber.Ctx) uint64 {
	id, _ := c.Locals(principalKey).(uint64)

	return id
}

func forbidden(c *fiber.Ctx, d Decision, permissions ...string) error {
	log.Warn().Uint64("user_id", PrincipalID(c)).Strs("permissions", permissions).Str("reason", d.Reason).
		Str("path", c.Path()).Msg("User lacks required permission")

	return fiber.NewError(fiber.StatusForbidden, "forbidden: "+d.Reason)
}

// RequirePermission creates Fiber middleware that requires a specific permission.
func RequirePermission(s *Service, permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := PrincipalID(c)
		if id == 0 {
			return fiber.ErrUnauthorized
		}

		d, err := s.HasPermission(c.UserContext(), id, permission)
		if err != nil {
			return err
		}

		if !d.Allowed {
			return forbidden(c, d, permission)
		}

		return c.Next()
	}
}

// RequireAnyPermission creates Fiber middleware that requires at least one of the given permissions.
func RequireAnyPermission(s *Service, permissions ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := PrincipalID(c)
		if id == 0 {
			return fiber.ErrUnauthorized
		}

		d, err := s.HasAnyPermission(c.UserContext(), id, permissions)
		if err != nil {
			return err
		}

		if !d.Allowed {
			return forbidden(c, d, permissions...)
		}

		return c.Next()
	}
}
