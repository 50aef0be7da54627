// Package main provides the entry point of accessd, a role based authorization service.
// It stores users, roles, permissions, menus and their grants with gorm, resolves each user
// into a cached authorization view and answers permission, role, menu and policy checks
// through a REST API served by Fiber.
package main
