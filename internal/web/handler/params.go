package handler

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/accessd/accessd/internal/authz"
	"github.com/accessd/accessd/internal/db/query"
	"github.com/accessd/accessd/internal/errs"
)

// ParamID parses a positive numeric route parameter.
func ParamID(c *fiber.Ctx, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errs.Errorf(errs.InvalidArgument, "params", "%s must be a positive integer", name)
	}

	return id, nil
}

// ParamList splits a comma separated route parameter. Blank items are kept so the engine can reject them.
func ParamList(c *fiber.Ctx, name string) []string {
	raw := c.Params(name)
	if raw == "" {
		return []string{}
	}

	items := strings.Split(raw, ",")
	for i := range items {
		items[i] = strings.TrimSpace(items[i])
	}

	return items
}

// Bind parses the JSON body into v.
func Bind(c *fiber.Ctx, v any) error {
	if err := c.BodyParser(v); err != nil {
		return errs.E(errs.InvalidArgument, "body", err)
	}

	return nil
}

// Query parses the query string into filter and the pagination parameters.
func Query(c *fiber.Ctx, filter any) (query.Page, error) {
	var page query.Page

	if err := c.QueryParser(&page); err != nil {
		return page, errs.E(errs.InvalidArgument, "query", err)
	}

	if filter != nil {
		if err := c.QueryParser(filter); err != nil {
			return page, errs.E(errs.InvalidArgument, "query", err)
		}
	}

	return page, nil
}

// Actor returns the principal that issued the request.
func Actor(c *fiber.Ctx) uint64 {
	return authz.PrincipalID(c)
}

// Created answers 201 with v as JSON.
func Created(c *fiber.Ctx, v any) error {
	return c.Status(fiber.StatusCreated).JSON(v)
}
