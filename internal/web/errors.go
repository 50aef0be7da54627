package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/accessd/accessd/internal/errs"
)

var statusByKind = map[errs.Kind]int{ //nolint:gochecknoglobals
	errs.InvalidArgument: fiber.StatusBadRequest,
	errs.NotFound:        fiber.StatusNotFound,
	errs.Conflict:        fiber.StatusConflict,
	errs.Constraint:      fiber.StatusConflict,
	errs.ProtectedEntity: fiber.StatusForbidden,
	errs.Cache:           fiber.StatusServiceUnavailable,
}

var codeByStatus = map[int]string{ //nolint:gochecknoglobals
	fiber.StatusBadRequest:       "bad_request",
	fiber.StatusUnauthorized:     "unauthorized",
	fiber.StatusForbidden:        "forbidden",
	fiber.StatusNotFound:         "not_found",
	fiber.StatusMethodNotAllowed: "method_not_allowed",
	fiber.StatusRequestTimeout:   "timeout",
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// StatusOf returns the HTTP status of a tagged error.
func StatusOf(err error) int {
	if status, ok := statusByKind[errs.KindOf(err)]; ok {
		return status
	}

	return fiber.StatusInternalServerError
}

// ErrorHandler renders errors as JSON. Tagged errors are mapped by kind, fiber errors keep their
// status and everything else is an internal error whose message is not exposed.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code, ok := codeByStatus[fe.Code]
		if !ok {
			code = "http_error"
		}

		return c.Status(fe.Code).JSON(ErrorResponse{Error: code, Message: fe.Message})
	}

	kind := errs.KindOf(err)
	status := StatusOf(err)

	if status == fiber.StatusInternalServerError {
		log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("request failed")

		return c.Status(status).JSON(ErrorResponse{Error: errs.Internal.String(), Message: "internal error"})
	}

	return c.Status(status).JSON(ErrorResponse{Error: kind.String(), Message: err.Error()})
}
