package models

import "gorm.io/gorm"

// Authorization grants a role a permission within a menu context.
// There is one row per (role, permission, menu) triple including soft-deleted rows.
type Authorization struct {
	Base
	// RoleID is the granted role.
	RoleID uint64 `gorm:"not null;uniqueIndex:idx_authorization_triple" json:"roleId"`
	// PermissionID is the granted permission.
	PermissionID uint64 `gorm:"not null;uniqueIndex:idx_authorization_triple;index" json:"permissionId"`
	// MenuID scopes the grant to a menu, nil means not menu scoped.
	MenuID *uint64 `gorm:"index" json:"menuId,omitempty"`
	// MenuKey mirrors MenuID with 0 for unscoped grants. NULLs never collide in a unique index,
	// so the triple is enforced on this column.
	MenuKey uint64 `gorm:"not null;default:0;uniqueIndex:idx_authorization_triple" json:"-"`
}

// TableName specifies the database table name for the Authorization model.
func (Authorization) TableName() string {
	return "authorizations"
}

// BeforeSave keeps MenuKey in step with MenuID.
func (a *Authorization) BeforeSave(_ *gorm.DB) error {
	a.MenuKey = 0
	if a.MenuID != nil {
		a.MenuKey = *a.MenuID
	}

	return nil
}
