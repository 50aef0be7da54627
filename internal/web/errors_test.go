package web_test

import (
	"errors"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"github.com/accessd/accessd/internal/errs"
	"github.com/accessd/accessd/internal/web"
)

func TestStatusOf(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want int
	}{
		{name: "invalid argument", err: errs.E(errs.InvalidArgument, "op", "bad"), want: fiber.StatusBadRequest},
		{name: "not found", err: errs.ErrNotFound, want: fiber.StatusNotFound},
		{name: "conflict", err: errs.ErrConflict, want: fiber.StatusConflict},
		{name: "constraint", err: errs.ErrConstraint, want: fiber.StatusConflict},
		{name: "protected", err: errs.ErrProtectedEntity, want: fiber.StatusForbidden},
		{name: "cache", err: errs.ErrCache, want: fiber.StatusServiceUnavailable},
		{name: "untagged", err: errors.New("boom"), want: fiber.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, web.StatusOf(tc.err))
		})
	}
}
