// Package authz resolves users into authorization views and answers access decisions.
//
// The model is role based:
//   - Users hold roles through active Access rows
//   - Roles form a tree; holding a role grants every role below it
//   - Authorizations grant a permission to a role, optionally within a menu
//   - Users can receive permissions directly, which only ever add to the role grants
//
// # Resolution
//
// The Aggregator turns a user into a cache.View: the inherited role set ordered by level,
// the highest role, the sorted effective permission codes and the accessible menus. Views are
// memoized in the authorization cache and recomputed at most once per user and cache generation.
// Users that are unknown or not active resolve to an empty view, so every check denies.
//
// # Decisions
//
// The Service answers point queries with a Decision carrying the outcome and a reason:
//   - HasPermission, HasAnyPermission, HasAllPermissions
//   - HasRole, HasAnyRole, HasAllRoles
//   - CanAccessMenu, CanAccessResource
//   - IsAdmin, IsSuperAdmin
//   - CheckPolicy for declarative permission, role, menu, resource and complex policies
//
// Denial is never an error. Errors are reserved for malformed input and store failures
// and always carry an errs.Kind.
//
// # Commands
//
// Mutations run in one transaction and invalidate the cache only after the commit:
// changes to a user's assignments, direct grants or status drop that user's view, every
// other change drops the whole cache.
//
// Example usage:
//
//	c := cache.New(backend)
//	svc := authz.NewService(db, c, cfg.Authz)
//
//	d, err := svc.HasPermission(ctx, userID, "users.create")
//
//	app.Get("/api/roles",
//	    authz.RequirePermission(svc, authz.PermRolesRead),
//	    handler,
//	)
package authz
