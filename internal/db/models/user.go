package models

// UserStatus is the lifecycle state of a user account.
type UserStatus string

const (
	// UserStatusActive users resolve their roles and grants.
	UserStatusActive UserStatus = "active"
	// UserStatusInactive users resolve to an empty view.
	UserStatusInactive UserStatus = "inactive"
	// UserStatusLocked users resolve to an empty view.
	UserStatusLocked UserStatus = "locked"
)

// Valid reports whether s is a known status.
func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusActive, UserStatusInactive, UserStatusLocked:
		return true
	default:
		return false
	}
}

// User represents an account. Credentials live in the upstream identity service.
type User struct {
	Base
	// PersonID references the owning Person, nil for system accounts.
	PersonID *uint64 `gorm:"uniqueIndex" json:"personId,omitempty"`
	// Username is the unique login name.
	Username string `gorm:"size:100;uniqueIndex;not null" json:"username"`
	// Status is one of active, inactive, locked.
	Status UserStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
}

// TableName specifies the database table name for the User model.
func (User) TableName() string {
	return "users"
}
