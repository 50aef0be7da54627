// Package permission provides CRUD, soft delete and cascading deactivation for permissions.
package permission

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/accessd/accessd/internal/db/models"
	"github.com/accessd/accessd/internal/db/query"
	"github.com/accessd/accessd/internal/errs"
)

const codeQueryPattern = "code = ?"

var (
	// ErrCodeEmpty is returned when a permission code is blank.
	ErrCodeEmpty = errs.E(errs.InvalidArgument, "permission", "permission code cannot be empty")
	// ErrCodeFormat is returned when a code does not follow the resource.action convention.
	ErrCodeFormat = errs.E(errs.InvalidArgument, "permission", "permission code must be resource.action")
	// ErrCodeReferenced is returned when renaming a permission that authorizations already reference.
	ErrCodeReferenced = errs.E(errs.Constraint, "permission", "permission code is immutable once referenced")
	// ErrSystemPermission is returned when deleting a system permission.
	ErrSystemPermission = errs.E(errs.ProtectedEntity, "permission", "system permissions cannot be deleted")
)

// Filter narrows List.
type Filter struct {
	Group    string `query:"group"`
	Resource string `query:"resource"`
	IsSystem *bool  `query:"isSystem"`
	Search   string `query:"search"`
}

// UpdateInput holds the mutable fields of a permission; nil fields are left unchanged.
type UpdateInput struct {
	Code        *string
	Group       *string
	Label       *string
	Description *string
}

func checkCode(code string) error {
	if code == "" {
		return ErrCodeEmpty
	}

	if _, _, ok := models.SplitCode(code); !ok || strings.ContainsAny(code, " ,") {
		return ErrCodeFormat
	}

	return nil
}

func notFound(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.E(errs.NotFound, op, "permission not found")
	}

	return query.Translate(op, err)
}

// Get retrieves a live permission by id.
func Get(db *gorm.DB, id uint64) (*models.Permission, error) {
	const op = "permission.Get"

	if db == nil {
		return nil, query.ErrDBNil
	}

	if id == 0 {
		return nil, errs.E(errs.InvalidArgument, op, "permission id must be positive")
	}

	var p models.Permission
	if err := db.First(&p, id).Error; err != nil {
		return nil, notFound(op, err)
	}

	return &p, nil
}

// GetByCode retrieves a live permission by code.
func GetByCode(db *gorm.DB, code string) (*models.Permission, error) {
	const op = "permission.GetByCode"

	if db == nil {
		return nil, query.ErrDBNil
	}

	if strings.TrimSpace(code) == "" {
		return nil, ErrCodeEmpty
	}

	var p models.Permission
	if err := db.Where(codeQueryPattern, code).First(&p).Error; err != nil {
		return nil, notFound(op, err)
	}

	return &p, nil
}

// ListAll returns every live permission ordered by code.
func ListAll(db *gorm.DB) ([]models.Permission, error) {
	if db == nil {
		return nil, query.ErrDBNil
	}

	var out []models.Permission
	if err := db.Order("code").Find(&out).Error; err != nil {
		return nil, query.Translate("permission.ListAll", err)
	}

	return out, nil
}

// Codes returns every live permission code sorted ascending.
func Codes(db *gorm.DB) ([]string, error) {
	if db == nil {
		return nil, query.ErrDBNil
	}

	var codes []string
	if err := db.Model(&models.Permission{}).Order("code").Pluck("code", &codes).Error; err != nil {
		return nil, query.Translate("permission.Codes", err)
	}

	return codes, nil
}

// List returns one page of live permissions ordered by code.
func List(db *gorm.DB, filter Filter, page query.Page) (query.Result[models.Permission], error) {
	if db == nil {
		return query.Result[models.Permission]{}, query.ErrDBNil
	}

	q := db.Model(&models.Permission{})

	if filter.Group != "" {
		q = q.Where("group_name = ?", filter.Group)
	}

	if filter.Resource != "" {
		q = q.Where("code LIKE ?", filter.Resource+".%")
	}

	if filter.IsSystem != nil {
		q = q.Where("is_system = ?", *filter.IsSystem)
	}

	if filter.Search != "" {
		like := query.Like(filter.Search)
		q = q.Where("(LOWER(code) LIKE ? OR LOWER(label) LIKE ?)", like, like)
	}

	res, err := query.Paginate[models.Permission](q, page, "code")

	return res, query.Translate("permission.List", err)
}

func codeTaken(db *gorm.DB, op, code string) error {
	var n int64
	if err := db.Unscoped().Model(&models.Permission{}).Where(codeQueryPattern, code).Count(&n).Error; err != nil {
		return query.Translate(op, err)
	}

	if n > 0 {
		return errs.Errorf(errs.Conflict, op, "permission code %q already exists", code)
	}

	return nil
}

// Create inserts a new permission.
func Create(db *gorm.DB, p *models.Permission) (*models.Permission, error) {
	const op = "permission.Create"

	if db == nil {
		return nil, query.ErrDBNil
	}

	p.Code = strings.TrimSpace(p.Code)
	if err := checkCode(p.Code); err != nil {
		return nil, err
	}

	if err := codeTaken(db, op, p.Code); err != nil {
		return nil, err
	}

	p.ID = 0
	if err := db.Create(p).Error; err != nil {
		return nil, query.Translate(op, err)
	}

	return p, nil
}

// Referenced reports whether any authorization row, live or soft-deleted, points at the permission.
func Referenced(db *gorm.DB, id uint64) (bool, error) {
	var n int64
	if err := db.Unscoped().Model(&models.Authorization{}).Where("permission_id = ?", id).Count(&n).Error; err != nil {
		return false, query.Translate("permission.Referenced", err)
	}

	return n > 0, nil
}

// Update applies in to the live permission id. The code can only change while unreferenced.
func Update(db *gorm.DB, id uint64, in UpdateInput) (*models.Permission, error) {
	const op = "permission.Update"

	p, err := Get(db, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}

	if in.Code != nil && strings.TrimSpace(*in.Code) != p.Code {
		code := strings.TrimSpace(*in.Code)
		if err = checkCode(code); err != nil {
			return nil, err
		}

		referenced, err := Referenced(db, id)
		if err != nil {
			return nil, err
		}

		if referenced {
			return nil, ErrCodeReferenced
		}

		if err = codeTaken(db, op, code); err != nil {
			return nil, err
		}

		updates["code"] = code
	}

	if in.Group != nil {
		updates["group_name"] = *in.Group
	}

	if in.Label != nil {
		updates["label"] = *in.Label
	}

	if in.Description != nil {
		updates["description"] = *in.Description
	}

	if len(updates) == 0 {
		return p, nil
	}

	if err = db.Model(p).Updates(updates).Error; err != nil {
		return nil, query.Translate(op, err)
	}

	return Get(db, id)
}

// Delete soft-deletes a permission that no live authorization or direct grant references.
func Delete(db *gorm.DB, id uint64) error {
	const op = "permission.Delete"

	p, err := Get(db, id)
	if err != nil {
		return err
	}

	if p.IsSystem {
		return ErrSystemPermission
	}

	for what, model := range map[string]any{"authorizations": &models.Authorization{}, "user grants": &models.UserPermission{}} {
		n, err := query.Count(db, model, "permission_id = ?", id)
		if err != nil {
			return query.Translate(op, err)
		}

		if n > 0 {
			return errs.Errorf(errs.Constraint, op, "permission %d has %d live %s", id, n, what)
		}
	}

	return query.Translate(op, db.Delete(p).Error)
}

// Deactivate soft-deletes the permission with its authorizations and direct grants in one transaction.
// It returns the ids of users holding a direct grant.
func Deactivate(db *gorm.DB, id uint64) ([]uint64, error) {
	const op = "permission.Deactivate"

	if db == nil {
		return nil, query.ErrDBNil
	}

	var users []uint64

	err := db.Transaction(func(tx *gorm.DB) error {
		p, err := Get(tx, id)
		if err != nil {
			return err
		}

		if err = tx.Model(&models.UserPermission{}).Where("permission_id = ?", id).Pluck("user_id", &users).Error; err != nil {
			return query.Translate(op, err)
		}

		if err = tx.Where("permission_id = ?", id).Delete(&models.Authorization{}).Error; err != nil {
			return query.Translate(op, err)
		}

		if err = tx.Where("permission_id = ?", id).Delete(&models.UserPermission{}).Error; err != nil {
			return query.Translate(op, err)
		}

		return query.Translate(op, tx.Delete(p).Error)
	})

	return users, err
}
