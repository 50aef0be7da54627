package models

import "strings"

// Permission is a granular access right in resource.action format (e.g. "users.create").
type Permission struct {
	Base
	// Code is unique and immutable once referenced by an Authorization.
	Code string `gorm:"size:150;uniqueIndex;not null" json:"code"`
	// Group is a category label used for display.
	Group string `gorm:"column:group_name;size:100" json:"group,omitempty"`
	// Label is the display name.
	Label string `gorm:"size:255" json:"label,omitempty"`
	// Description provides a human-readable explanation of what this permission grants.
	Description string `gorm:"size:255" json:"description,omitempty"`
	// IsSystem protects the permission from modification by non-admins.
	IsSystem bool `gorm:"default:false" json:"isSystem"`
}

// TableName specifies the database table name for the Permission model.
func (Permission) TableName() string {
	return "permissions"
}

// SplitCode splits a permission code into resource and action on the last dot.
// ok is false when the code does not follow the resource.action convention.
func SplitCode(code string) (resource, action string, ok bool) {
	i := strings.LastIndexByte(code, '.')
	if i <= 0 || i == len(code)-1 {
		return "", "", false
	}

	return code[:i], code[i+1:], true
}
