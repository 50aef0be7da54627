package authz

// Permission constants guard accessd's own HTTP surface.
// They are seeded as system permissions and follow the resource.action convention.
const (
	// PermUsersRead allows listing users and their assignments.
	PermUsersRead = "users.read"
	// PermUsersManage allows changing user status, role assignments and direct grants.
	PermUsersManage = "users.manage"

	// PermRolesRead allows listing roles and the hierarchy.
	PermRolesRead = "roles.read"
	// PermRolesManage allows creating, updating, deactivating and deleting roles.
	PermRolesManage = "roles.manage"

	// PermPermissionsRead allows listing permissions.
	PermPermissionsRead = "permissions.read"
	// PermPermissionsManage allows creating, updating, deactivating and deleting permissions.
	PermPermissionsManage = "permissions.manage"

	// PermMenusRead allows listing menus.
	PermMenusRead = "menus.read"
	// PermMenusManage allows creating, updating, deactivating and deleting menus.
	PermMenusManage = "menus.manage"

	// PermAuthorizationsRead allows reading authorizations, views of other users and the policy.
	PermAuthorizationsRead = "authorizations.read"
	// PermAuthorizationsVerify allows a principal to run verification queries about itself.
	PermAuthorizationsVerify = "authorizations.verify"
	// PermAuthorizationsManage allows granting and revoking authorizations and operating the cache.
	PermAuthorizationsManage = "authorizations.manage"
)

// SystemPermission describes a seeded permission.
type SystemPermission struct {
	Code  string
	Group string
	Label string
}

// SystemPermissions returns accessd's own permissions in seeding order.
func SystemPermissions() []SystemPermission {
	return []SystemPermission{
		{PermUsersRead, "users", "Read users"},
		{PermUsersManage, "users", "Manage users"},
		{PermRolesRead, "roles", "Read roles"},
		{PermRolesManage, "roles", "Manage roles"},
		{PermPermissionsRead, "permissions", "Read permissions"},
		{PermPermissionsManage, "permissions", "Manage permissions"},
		{PermMenusRead, "menus", "Read menus"},
		{PermMenusManage, "menus", "Manage menus"},
		{PermAuthorizationsRead, "authorizations", "Read authorizations"},
		{PermAuthorizationsVerify, "authorizations", "Verify own authorizations"},
		{PermAuthorizationsManage, "authorizations", "Manage authorizations"},
	}
}
