package authz

import (
	"errors"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accessd/accessd/internal/errs"
)

const testHeader = "X-User-Id"

func newTestApp(s *Service) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.SendStatus(fe.Code)
			}

			if errs.Is(err, errs.InvalidArgument) {
				return c.SendStatus(fiber.StatusBadRequest)
			}

			return c.SendStatus(fiber.StatusInternalServerError)
		},
	})

	ok := func(c *fiber.Ctx) error { return c.SendString(strconv.FormatUint(PrincipalID(c), 10)) }

	app.Use(Principal(testHeader))
	app.Get("/reports", RequirePermission(s, "reports.read"), ok)
	app.Get("/either", RequireAnyPermission(s, "reports.export", "reports.read"), ok)

	return app
}

func TestMiddleware(t *testing.T) {
	h := newHarness(t)

	r := h.role("analyst", 2, nil, false)
	h.grant(r, h.perm("reports.read"), nil)

	analyst, guest := h.user("analyst"), h.user("guest")
	h.assign(analyst, r)

	app := newTestApp(h.svc)

	testCases := []struct {
		name       string
		path       string
		header     string
		wantStatus int
	}{
		{name: "missing principal", path: "/reports", wantStatus: fiber.StatusUnauthorized},
		{name: "malformed principal", path: "/reports", header: "abc", wantStatus: fiber.StatusBadRequest},
		{name: "zero principal", path: "/reports", header: "0", wantStatus: fiber.StatusBadRequest},
		{name: "denied", path: "/reports", header: strconv.FormatUint(guest.ID, 10), wantStatus: fiber.StatusForbidden},
		{name: "allowed", path: "/reports", header: strconv.FormatUint(analyst.ID, 10), wantStatus: fiber.StatusOK},
		{name: "any allowed", path: "/either", header: strconv.FormatUint(analyst.ID, 10), wantStatus: fiber.StatusOK},
		{name: "any denied", path: "/either", header: strconv.FormatUint(guest.ID, 10), wantStatus: fiber.StatusForbidden},
		{name: "unknown user", path: "/reports", header: "4242", wantStatus: fiber.StatusForbidden},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set(testHeader, tc.header)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)

			defer resp.Body.Close()

			assert.Equal(t, tc.wantStatus, resp.StatusCode)
		})
	}
}
