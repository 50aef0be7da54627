// Package models contains database model definitions.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base holds the columns shared by every table.
type Base struct {
	// ID is the unique numeric identifier.
	ID uint64 `gorm:"primaryKey" json:"id"`
	// UID is a stable external identifier generated on insert.
	UID uuid.UUID `gorm:"type:char(36);uniqueIndex;not null" json:"uid"`
	// CreatedBy is the user id of the principal that created the row, nil for seeded rows.
	CreatedBy *uint64 `json:"createdBy,omitempty"`
	// CreatedAt is the timestamp when the row was created (managed by GORM).
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is the timestamp when the row was last updated (managed by GORM).
	UpdatedAt time.Time `json:"updatedAt"`
	// DeletedAt is the soft delete marker (managed by GORM).
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns the UID.
func (b *Base) BeforeCreate(_ *gorm.DB) error {
	if b.UID == uuid.Nil {
		b.UID = uuid.New()
	}

	return nil
}

// Deleted reports whether the row is soft-deleted.
func (b *Base) Deleted() bool {
	return b.DeletedAt.Valid
}

// All returns every model in migration order.
func All() []any {
	return []any{
		&Person{},
		&User{},
		&Role{},
		&Permission{},
		&Menu{},
		&Access{},
		&Authorization{},
		&UserPermission{},
	}
}
