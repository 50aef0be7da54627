// Package menu provides CRUD, soft delete and cascading deactivation for menus.
package menu

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
	tableName        = "menus"
)

var (
	// ErrCodeEmpty is returned when a menu code is blank.
	ErrCodeEmpty = errs.E(errs.InvalidArgument, "menu", "menu code cannot be empty")
	// ErrSystemMenu is returned when deleting a system menu.
	ErrSystemMenu = errs.E(errs.ProtectedEntity, "menu", "system menus cannot be deleted")
)

// Filter narrows List.
type Filter struct {
	ParentID  *uint64 `query:"parentId"`
	IsVisible *bool   `query:"isVisible"`
	Search    string  `query:"search"`
}

// UpdateInput holds the mutable fields of a menu; nil fields are left unchanged.
type UpdateInput struct {
	Label       *string
	Route       *string
	Icon        *string
	ParentID    *uint64
	ClearParent bool
	IsVisible   *bool
	SortOrder   *int
}

func notFound(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.E(errs.NotFound, op, "menu not found")
	}

	return query.Translate(op, err)
}

// Get retrieves a live menu by id.
func Get(db *gorm.DB, id uint64) (*models.Menu, error) {
	const op = "menu.Get"

	if db == nil {
		return nil, query.ErrDBNil
	}

	if id == 0 {
		return nil, errs.E(errs.InvalidArgument, op, "menu id must be positive")
	}

	var m models.Menu
	if err := db.First(&m, id).Error; err != nil {
		return nil, notFound(op, err)
	}

	return &m, nil
}

// GetByCode retrieves a live menu by code.
func GetByCode(db *gorm.DB, code string) (*models.Menu, error) {
	const op = "menu.GetByCode"

	if db == nil {
		return nil, query.ErrDBNil
	}

	if strings.TrimSpace(code) == "" {
		return nil, ErrCodeEmpty
	}

	var m models.Menu
	if err := db.Where(codeQueryPattern, code).First(&m).Error; err != nil {
		return nil, notFound(op, err)
	}

	return &m, nil
}

// ListAll returns every live menu ordered for display.
func ListAll(db *gorm.DB) ([]models.Menu, error) {
	if db == nil {
		return nil, query.ErrDBNil
	}

	var out []models.Menu
	if err := db.Order("sort_order, id").Find(&out).Error; err != nil {
		return nil, query.Translate("menu.ListAll", err)
	}

	return out, nil
}

// List returns one page of live menus.
func List(db *gorm.DB, filter Filter, page query.Page) (query.Result[models.Menu], error) {
	if db == nil {
		return query.Result[models.Menu]{}, query.ErrDBNil
	}

	q := db.Model(&models.Menu{})

	if filter.ParentID != nil {
		q = q.Where("parent_id = ?", *filter.ParentID)
	}

	if filter.IsVisible != nil {
		q = q.Where("is_visible = ?", *filter.IsVisible)
	}

	if filter.Search != "" {
		like := query.Like(filter.Search)
		q = q.Where("(LOWER(code) LIKE ? OR LOWER(label) LIKE ?)", like, like)
	}

	res, err := query.Paginate[models.Menu](q, page, "sort_order, id")

	return res, query.Translate("menu.List", err)
}

// Create inserts a new menu.
func Create(db *gorm.DB, m *models.Menu) (*models.Menu, error) {
	const op = "menu.Create"

	if db == nil {
		return nil, query.ErrDBNil
	}

	m.Code = strings.TrimSpace(m.Code)
	if m.Code == "" {
		return nil, ErrCodeEmpty
	}

	if m.ParentID != nil {
		if err := query.MustExist(db, op, "parent menu", &models.Menu{}, *m.ParentID); err != nil {
			return nil, err
		}
	}

	var n int64
	if err := db.Unscoped().Model(&models.Menu{}).Where(codeQueryPattern, m.Code).Count(&n).Error; err != nil {
		return nil, query.Translate(op, err)
	}

	if n > 0 {
		return nil, errs.Errorf(errs.Conflict, op, "menu code %q already exists", m.Code)
	}

	m.ID = 0
	if err := db.Create(m).Error; err != nil {
		return nil, query.Translate(op, err)
	}

	return m, nil
}

// Update applies in to the live menu id.
func Update(db *gorm.DB, id uint64, in UpdateInput) (*models.Menu, error) {
	const op = "menu.Update"

	m, err := Get(db, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}

	if in.Label != nil {
		updates["label"] = *in.Label
	}

	if in.Route != nil {
		updates["route"] = *in.Route
	}

	if in.Icon != nil {
		updates["icon"] = *in.Icon
	}

	if in.IsVisible != nil {
		updates["is_visible"] = *in.IsVisible
	}

	if in.SortOrder != nil {
		updates["sort_order"] = *in.SortOrder
	}

	switch {
	case in.ClearParent:
		updates["parent_id"] = nil
	case in.ParentID != nil:
		if err = query.MustExist(db, op, "parent menu", &models.Menu{}, *in.ParentID); err != nil {
			return nil, err
		}

		if err = query.CheckParentChain(db, op, tableName, id, *in.ParentID); err != nil {
			return nil, err
		}

		updates["parent_id"] = *in.ParentID
	}

	if len(updates) == 0 {
		return m, nil
	}

	if err = db.Model(m).Updates(updates).Error; err != nil {
		return nil, query.Translate(op, err)
	}

	return Get(db, id)
}

// Delete soft-deletes a menu without live authorizations or child menus.
func Delete(db *gorm.DB, id uint64) error {
	const op = "menu.Delete"

	m, err := Get(db, id)
	if err != nil {
		return err
	}

	if m.IsSystem {
		return ErrSystemMenu
	}

	if n, err := query.Count(db, &models.Authorization{}, "menu_id = ?", id); err != nil {
		return query.Translate(op, err)
	} else if n > 0 {
		return errs.Errorf(errs.Constraint, op, "menu %d has %d live authorizations", id, n)
	}

	if n, err := query.Count(db, &models.Menu{}, "parent_id = ?", id); err != nil {
		return query.Translate(op, err)
	} else if n > 0 {
		return errs.Errorf(errs.Constraint, op, "menu %d has %d child menus", id, n)
	}

	return query.Translate(op, db.Delete(m).Error)
}

// Deactivate soft-deletes the menu and its authorizations in one transaction.
// Child menus are moved up to the deactivated menu's parent.
func Deactivate(db *gorm.DB, id uint64) error {
	const op = "menu.Deactivate"

	if db == nil {
		return query.ErrDBNil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		m, err := Get(tx, id)
		if err != nil {
			return err
		}

		if err = tx.Where("menu_id = ?", id).Delete(&models.Authorization{}).Error; err != nil {
			return query.Translate(op, err)
		}

		if err = tx.Model(&models.Menu{}).Where("parent_id = ?", id).Update("parent_id", m.ParentID).Error; err != nil {
			return query.Translate(op, err)
		}

		return query.Translate(op, tx.Delete(m).Error)
	})
}
