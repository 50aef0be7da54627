// Package query holds the pagination and error translation shared by the entity controllers.
package query

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/accessd/accessd/internal/errs"
)

const (
	// DefaultPageSize is used when Page.PageSize is zero.
	DefaultPageSize = 50
	// MaxPageSize bounds Page.PageSize.
	MaxPageSize = 500
)

// ErrDBNil is returned when the database connection is nil.
var ErrDBNil = errors.New("database connection is nil")

// Page selects a window of a listing. Page is 1-based, zero means the first page.
type Page struct {
	Page     int `json:"page" query:"page"`
	PageSize int `json:"pageSize" query:"pageSize"`
}

// Normalize validates p and fills in defaults.
func (p Page) Normalize() (Page, error) {
	if p.Page < 0 || p.PageSize < 0 || p.PageSize > MaxPageSize {
		return p, errs.Errorf(errs.InvalidArgument, "page", "page %d with size %d is out of range", p.Page, p.PageSize)
	}

	if p.Page == 0 {
		p.Page = 1
	}

	if p.PageSize == 0 {
		p.PageSize = DefaultPageSize
	}

	return p, nil
}

// Scope applies limit and offset. p must be normalized.
func (p Page) Scope(db *gorm.DB) *gorm.DB {
	return db.Offset((p.Page - 1) * p.PageSize).Limit(p.PageSize)
}

// Result is one page of a listing.
type Result[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
}

// Paginate counts the rows matched by q and loads the requested page ordered by order.
func Paginate[T any](q *gorm.DB, page Page, order string) (Result[T], error) {
	var (
		res = Result[T]{Items: []T{}}
		err error
	)

	if page, err = page.Normalize(); err != nil {
		return res, err
	}

	res.Page, res.PageSize = page.Page, page.PageSize

	if err = q.Session(&gorm.Session{}).Count(&res.Total).Error; err != nil {
		return res, err
	}

	if err = page.Scope(q.Session(&gorm.Session{})).Order(order).Find(&res.Items).Error; err != nil {
		return res, err
	}

	return res, nil
}

// Like returns a case-insensitive LIKE pattern for a search term.
func Like(term string) string {
	return "%" + strings.ToLower(strings.TrimSpace(term)) + "%"
}

// Translate tags a gorm error with its kind. Callers tag ErrRecordNotFound themselves
// when they need a more specific message.
func Translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errs.KindOf(err) != errs.Internal:
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errs.E(errs.NotFound, op, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return errs.E(errs.Conflict, op, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return errs.E(errs.Constraint, op, err)
	default:
		return errs.E(errs.Internal, op, err)
	}
}

// Live reports whether a live row of model with the given id exists.
func Live(db *gorm.DB, model any, id uint64) (bool, error) {
	var count int64

	if err := db.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

// MustExist returns a NotFound error naming what unless a live row with id exists.
func MustExist(db *gorm.DB, op, what string, model any, id uint64) error {
	ok, err := Live(db, model, id)
	if err != nil {
		return Translate(op, err)
	}

	if !ok {
		return errs.Errorf(errs.NotFound, op, "%s %d not found", what, id)
	}

	return nil
}

// Count returns the number of live rows of model matching where.
func Count(db *gorm.DB, model any, where string, args ...any) (int64, error) {
	var n int64

	err := db.Model(model).Where(where, args...).Count(&n).Error

	return n, err
}

// CheckParentChain walks the parent pointers starting at parentID and fails with a
// Constraint error if id is reached or a cycle is found. table must have id and parent_id columns.
func CheckParentChain(db *gorm.DB, op, table string, id, parentID uint64) error {
	seen := map[uint64]bool{}

	for cur := parentID; cur != 0; {
		if cur == id {
			return errs.Errorf(errs.Constraint, op, "%s %d can not be its own ancestor", strings.TrimSuffix(table, "s"), id)
		}

		if seen[cur] {
			return errs.Errorf(errs.Constraint, op, "cycle in %s hierarchy at %d", table, cur)
		}

		seen[cur] = true

		var row struct{ ParentID *uint64 }

		err := db.Table(table).Select("parent_id").Where("id = ? AND deleted_at IS NULL", cur).Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}

		if err != nil {
			return Translate(op, err)
		}

		if row.ParentID == nil {
			return nil
		}

		cur = *row.ParentID
	}

	return nil
}
