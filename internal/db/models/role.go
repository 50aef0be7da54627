package models

// Role is a named bundle of authorizations. Lower Level means more authority.
// Roles form a tree through ParentID; a role holder inherits every descendant role.
type Role struct {
	Base
	// Code is the unique, stable identifier used by business logic (e.g. "super_admin").
	Code string `gorm:"size:100;uniqueIndex;not null" json:"code"`
	// Label is the display name.
	Label string `gorm:"size:255" json:"label"`
	// Description provides a human-readable description of the role's purpose.
	Description string `gorm:"size:255" json:"description,omitempty"`
	// IsSystem protects the role from deletion and from modification by non-admins.
	IsSystem bool `gorm:"default:false" json:"isSystem"`
	// Level is non-negative, 0 is the highest authority.
	Level int `gorm:"not null;default:0;index" json:"level"`
	// ParentID is the parent role in the hierarchy tree.
	ParentID *uint64 `gorm:"index" json:"parentId,omitempty"`
}

// TableName specifies the database table name for the Role model.
func (Role) TableName() string {
	return "roles"
}
