package models

import "time"

// AccessStatus is the state of a user role assignment.
type AccessStatus string

const (
	// AccessStatusActive assignments contribute roles.
	AccessStatusActive AccessStatus = "active"
	// AccessStatusRevoked assignments are kept for history and ignored.
	AccessStatusRevoked AccessStatus = "revoked"
)

// Access assigns a Role to a User. There is at most one row per (user, role) pair.
type Access struct {
	Base
	// UserID is the assigned user.
	UserID uint64 `gorm:"not null;uniqueIndex:idx_access_user_role" json:"userId"`
	// RoleID is the assigned role.
	RoleID uint64 `gorm:"not null;uniqueIndex:idx_access_user_role;index" json:"roleId"`
	// Status is active or revoked.
	Status AccessStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	// RevokedAt is set when Status becomes revoked.
	RevokedAt *time.Time `json:"revokedAt,omitempty"`
}

// TableName specifies the database table name for the Access model.
func (Access) TableName() string {
	return "accesses"
}
