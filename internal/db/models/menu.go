package models

// Menu is a navigable application surface. Menus form a tree through ParentID.
type Menu struct {
	Base
	// Code is the unique identifier.
	Code string `gorm:"size:100;uniqueIndex;not null" json:"code"`
	// Label is the display name.
	Label string `gorm:"size:255" json:"label"`
	// Route is the client side path.
	Route string `gorm:"size:255" json:"route,omitempty"`
	// Icon is an optional icon name.
	Icon string `gorm:"size:100" json:"icon,omitempty"`
	// ParentID is the parent menu.
	ParentID *uint64 `gorm:"index" json:"parentId,omitempty"`
	// IsSystem protects the menu from modification by non-admins.
	IsSystem bool `gorm:"default:false" json:"isSystem"`
	// IsVisible hides the menu from access checks and menu trees when false.
	IsVisible bool `gorm:"not null" json:"isVisible"`
	// SortOrder orders siblings ascending.
	SortOrder int `gorm:"default:0" json:"sortOrder"`
}

// TableName specifies the database table name for the Menu model.
func (Menu) TableName() string {
	return "menus"
}
