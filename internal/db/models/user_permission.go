package models

// UserPermission is a direct grant of a permission to a user. Grants are additive only.
type UserPermission struct {
	Base
	// UserID is the grantee.
	UserID uint64 `gorm:"not null;uniqueIndex:idx_user_permission" json:"userId"`
	// PermissionID is the granted permission.
	PermissionID uint64 `gorm:"not null;uniqueIndex:idx_user_permission;index" json:"permissionId"`
}

// TableName specifies the database table name for the UserPermission model.
func (UserPermission) TableName() string {
	return "user_permissions"
}
