// Package user provides CRUD and status changes for user accounts.
package user

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/accessd/accessd/internal/db/models"
	"github.com/accessd/accessd/internal/db/query"
	"github.com/accessd/accessd/internal/errs"
)

var (
	// ErrUsernameEmpty is returned when a username is blank.
	ErrUsernameEmpty = errs.E(errs.InvalidArgument, "user", "username cannot be empty")
	// ErrInvalidStatus is returned for a status outside active, inactive, locked.
	ErrInvalidStatus = errs.E(errs.InvalidArgument, "user", "unknown user status")
)

// Filter narrows List.
type Filter struct {
	Status models.UserStatus `query:"status"`
	Search string            `query:"search"`
}

func notFound(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.E(errs.NotFound, op, "user not found")
	}

	return query.Translate(op, err)
}

// Get retrieves a live user by id.
func Get(db *gorm.DB, id uint64) (*models.User, error) {
	const op = "user.Get"

	if db == nil {
		return nil, query.ErrDBNil
	}

	if id == 0 {
		return nil, errs.E(errs.InvalidArgument, op, "user id must be positive")
	}

	var u models.User
	if err := db.First(&u, id).Error; err != nil {
		return nil, notFound(op, err)
	}

	return &u, nil
}

// Find retrieves a live user by id, returning nil without error when there is none.
func Find(db *gorm.DB, id uint64) (*models.User, error) {
	u, err := Get(db, id)
	if errs.Is(err, errs.NotFound) {
		return nil, nil
	}

	return u, err
}

// GetByUsername retrieves a live user by username.
func GetByUsername(db *gorm.DB, username string) (*models.User, error) {
	const op = "user.GetByUsername"

	if db == nil {
		return nil, query.ErrDBNil
	}

	if strings.TrimSpace(username) == "" {
		return nil, ErrUsernameEmpty
	}

	var u models.User
	if err := db.Where("username = ?", username).First(&u).Error; err != nil {
		return nil, notFound(op, err)
	}

	return &u, nil
}

// List returns one page of live users ordered by username.
func List(db *gorm.DB, filter Filter, page query.Page) (query.Result[models.User], error) {
	if db == nil {
		return query.Result[models.User]{}, query.ErrDBNil
	}

	q := db.Model(&models.User{})

	if filter.Status != "" {
		if !filter.Status.Valid() {
			return query.Result[models.User]{}, ErrInvalidStatus
		}

		q = q.Where("status = ?", filter.Status)
	}

	if filter.Search != "" {
		q = q.Where("LOWER(username) LIKE ?", query.Like(filter.Search))
	}

	res, err := query.Paginate[models.User](q, page, "username")

	return res, query.Translate("user.List", err)
}

// Create inserts a user account. A referenced person must be live and not own another account.
func Create(db *gorm.DB, u *models.User) (*models.User, error) {
	const op = "user.Create"

	if db == nil {
		return nil, query.ErrDBNil
	}

	u.Username = strings.TrimSpace(u.Username)
	if u.Username == "" {
		return nil, ErrUsernameEmpty
	}

	if u.Status == "" {
		u.Status = models.UserStatusActive
	}

	if !u.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	if u.PersonID != nil {
		if err := query.MustExist(db, op, "person", &models.Person{}, *u.PersonID); err != nil {
			return nil, err
		}

		n, err := query.Count(db.Unscoped(), &models.User{}, "person_id = ?", *u.PersonID)
		if err != nil {
			return nil, query.Translate(op, err)
		}

		if n > 0 {
			return nil, errs.Errorf(errs.Conflict, op, "person %d already owns a user account", *u.PersonID)
		}
	}

	n, err := query.Count(db.Unscoped(), &models.User{}, "username = ?", u.Username)
	if err != nil {
		return nil, query.Translate(op, err)
	}

	if n > 0 {
		return nil, errs.Errorf(errs.Conflict, op, "username %q already exists", u.Username)
	}

	u.ID = 0
	if err = db.Create(u).Error; err != nil {
		return nil, query.Translate(op, err)
	}

	return u, nil
}

// SetStatus changes the status of a live user.
func SetStatus(db *gorm.DB, id uint64, status models.UserStatus) (*models.User, error) {
	const op = "user.SetStatus"

	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	u, err := Get(db, id)
	if err != nil {
		return nil, err
	}

	if err = db.Model(u).Update("status", status).Error; err != nil {
		return nil, query.Translate(op, err)
	}

	u.Status = status

	return u, nil
}

// Delete soft-deletes a user with its role assignments and direct grants in one transaction.
func Delete(db *gorm.DB, id uint64) error {
	const op = "user.Delete"

	if db == nil {
		return query.ErrDBNil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		u, err := Get(tx, id)
		if err != nil {
			return err
		}

		if err = tx.Where("user_id = ?", id).Delete(&models.Access{}).Error; err != nil {
			return query.Translate(op, err)
		}

		if err = tx.Where("user_id = ?", id).Delete(&models.UserPermission{}).Error; err != nil {
			return query.Translate(op, err)
		}

		return query.Translate(op, tx.Delete(u).Error)
	})
}
