// Package role provides CRUD, soft delete and cascading deactivation for roles.
package role

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/accessd/accessd/internal/db/models"
	"github.com/accessd/accessd/internal/db/query"
	"github.com/accessd/accessd/internal/errs"
)

const (
	codeQueryPattern = "code = ?"
	tableName        = "roles"
)

var (
	// ErrCodeEmpty is returned when a role code is blank.
	ErrCodeEmpty = errs.E(errs.InvalidArgument, "role", "role code cannot be empty")
	// ErrNegativeLevel is returned for a level below zero.
	ErrNegativeLevel = errs.E(errs.InvalidArgument, "role", "role level must be non-negative")
	// ErrSystemRole is returned when deleting a system role; system roles can only be deactivated.
	ErrSystemRole = errs.E(errs.ProtectedEntity, "role", "system roles cannot be deleted")
)

// Filter narrows List.
type Filter struct {
	IsSystem *bool   `query:"isSystem"`
	ParentID *uint64 `query:"parentId"`
	Search   string  `query:"search"`
}

// UpdateInput holds the mutable fields of a role; nil fields are left unchanged.
type UpdateInput struct {
	Label       *string
	Description *string
	Level       *int
	ParentID    *uint64
	// ClearParent detaches the role from its parent; ParentID is ignored when set.
	ClearParent bool
}

func notFound(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.E(errs.NotFound, op, "role not found")
	}

	return query.Translate(op, err)
}

// Get retrieves a live role by id.
func Get(db *gorm.DB, id uint64) (*models.Role, error) {
	const op = "role.Get"

	if db == nil {
		return nil, query.ErrDBNil
	}

	if id == 0 {
		return nil, errs.E(errs.InvalidArgument, op, "role id must be positive")
	}

	var role models.Role
	if err := db.First(&role, id).Error; err != nil {
		return nil, notFound(op, err)
	}

	return &role, nil
}

// GetByCode retrieves a live role by code.
func GetByCode(db *gorm.DB, code string) (*models.Role, error) {
	const op = "role.GetByCode"

	if db == nil {
		return nil, query.ErrDBNil
	}

	if strings.TrimSpace(code) == "" {
		return nil, ErrCodeEmpty
	}

	var role models.Role
	if err := db.Where(codeQueryPattern, code).First(&role).Error; err != nil {
		return nil, notFound(op, err)
	}

	return &role, nil
}

// ListAll returns every live role ordered by id.
func ListAll(db *gorm.DB) ([]models.Role, error) {
	if db == nil {
		return nil, query.ErrDBNil
	}

	var roles []models.Role
	if err := db.Order("id").Find(&roles).Error; err != nil {
		return nil, query.Translate("role.ListAll", err)
	}

	return roles, nil
}

// List returns one page of live roles ordered by level then id.
func List(db *gorm.DB, filter Filter, page query.Page) (query.Result[models.Role], error) {
	if db == nil {
		return query.Result[models.Role]{}, query.ErrDBNil
	}

	q := db.Model(&models.Role{})

	if filter.IsSystem != nil {
		q = q.Where("is_system = ?", *filter.IsSystem)
	}

	if filter.ParentID != nil {
		q = q.Where("parent_id = ?", *filter.ParentID)
	}

	if filter.Search != "" {
		like := query.Like(filter.Search)
		q = q.Where("(LOWER(code) LIKE ? OR LOWER(label) LIKE ?)", like, like)
	}

	res, err := query.Paginate[models.Role](q, page, "level, id")

	return res, query.Translate("role.List", err)
}

// Create inserts a new role.
func Create(db *gorm.DB, role *models.Role) (*models.Role, error) {
	const op = "role.Create"

	if db == nil {
		return nil, query.ErrDBNil
	}

	role.Code = strings.TrimSpace(role.Code)
	if role.Code == "" {
		return nil, ErrCodeEmpty
	}

	if role.Level < 0 {
		return nil, ErrNegativeLevel
	}

	if role.ParentID != nil {
		if err := query.MustExist(db, op, "parent role", &models.Role{}, *role.ParentID); err != nil {
			return nil, err
		}
	}

	// codes stay reserved by deactivated roles
	var existing int64
	if err := db.Unscoped().Model(&models.Role{}).Where(codeQueryPattern, role.Code).Count(&existing).Error; err != nil {
		return nil, query.Translate(op, err)
	}

	if existing > 0 {
		return nil, errs.Errorf(errs.Conflict, op, "role code %q already exists", role.Code)
	}

	role.ID = 0
	if err := db.Create(role).Error; err != nil {
		return nil, query.Translate(op, err)
	}

	return role, nil
}

// Update applies in to the live role id.
func Update(db *gorm.DB, id uint64, in UpdateInput) (*models.Role, error) {
	const op = "role.Update"

	role, err := Get(db, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}

	if in.Label != nil {
		updates["label"] = *in.Label
	}

	if in.Description != nil {
		updates["description"] = *in.Description
	}

	if in.Level != nil {
		if *in.Level < 0 {
			return nil, ErrNegativeLevel
		}

		updates["level"] = *in.Level
	}

	switch {
	case in.ClearParent:
		updates["parent_id"] = nil
	case in.ParentID != nil:
		if err = query.MustExist(db, op, "parent role", &models.Role{}, *in.ParentID); err != nil {
			return nil, err
		}

		if err = query.CheckParentChain(db, op, tableName, id, *in.ParentID); err != nil {
			return nil, err
		}

		updates["parent_id"] = *in.ParentID
	}

	if len(updates) == 0 {
		return role, nil
	}

	if err = db.Model(role).Updates(updates).Error; err != nil {
		return nil, query.Translate(op, err)
	}

	return Get(db, id)
}

// Delete soft-deletes a role without dependents.
// Live authorizations, active assignments or child roles block the delete with a Constraint error.
func Delete(db *gorm.DB, id uint64) error {
	const op = "role.Delete"

	role, err := Get(db, id)
	if err != nil {
		return err
	}

	if role.IsSystem {
		return ErrSystemRole
	}

	checks := []struct {
		model any
		what  string
		where string
	}{
		{&models.Authorization{}, "authorizations", "role_id = ?"},
		{&models.Access{}, "active assignments", "role_id = ? AND status = '" + string(models.AccessStatusActive) + "'"},
		{&models.Role{}, "child roles", "parent_id = ?"},
	}

	for _, c := range checks {
		n, err := query.Count(db, c.model, c.where, id)
		if err != nil {
			return query.Translate(op, err)
		}

		if n > 0 {
			return errs.Errorf(errs.Constraint, op, "role %d has %d live %s", id, n, c.what)
		}
	}

	return query.Translate(op, db.Delete(&models.Role{}, id).Error)
}

// Deactivate soft-deletes the role together with its authorizations and assignments in one
// transaction. Child roles are moved up to the deactivated role's parent.
// It returns the ids of users that held the role.
func Deactivate(db *gorm.DB, id uint64) ([]uint64, error) {
	const op = "role.Deactivate"

	if db == nil {
		return nil, query.ErrDBNil
	}

	var users []uint64

	err := db.Transaction(func(tx *gorm.DB) error {
		role, err := Get(tx, id)
		if err != nil {
			return err
		}

		if err = tx.Model(&models.Access{}).Where("role_id = ?", id).Distinct().Pluck("user_id", &users).Error; err != nil {
			return query.Translate(op, err)
		}

		if err = tx.Where("role_id = ?", id).Delete(&models.Authorization{}).Error; err != nil {
			return query.Translate(op, err)
		}

		if err = tx.Where("role_id = ?", id).Delete(&models.Access{}).Error; err != nil {
			return query.Translate(op, err)
		}

		if err = tx.Model(&models.Role{}).Where("parent_id = ?", id).Update("parent_id", role.ParentID).Error; err != nil {
			return query.Translate(op, err)
		}

		return query.Translate(op, tx.Delete(role).Error)
	})

	return users, err
}
