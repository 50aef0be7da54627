// Package person provides CRUD operations for people.
package person

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/accessd/accessd/internal/db/models"
	"github.com/accessd/accessd/internal/db/query"
	"github.com/accessd/accessd/internal/errs"
)

// ErrEmailEmpty is returned when a person has no email.
var ErrEmailEmpty = errs.E(errs.InvalidArgument, "person", "email cannot be empty")

// UpdateInput holds the mutable fields of a person.
type UpdateInput struct {
	FirstName *string
	LastName  *string
	Email     *string
	Phone     *string
}

func notFound(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.E(errs.NotFound, op, "person not found")
	}

	return query.Translate(op, err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func emailTaken(db *gorm.DB, op, email string) error {
	n, err := query.Count(db, &models.Person{}, "email = ?", email)
	if err != nil {
		return query.Translate(op, err)
	}

	if n > 0 {
		return errs.Errorf(errs.Conflict, op, "email %q is already registered", email)
	}

	return nil
}

// Get retrieves a live person by id.
func Get(db *gorm.DB, id uint64) (*models.Person, error) {
	const op = "person.Get"

	if db == nil {
		return nil, query.ErrDBNil
	}

	if id == 0 {
		return nil, errs.E(errs.InvalidArgument, op, "person id must be positive")
	}

	var p models.Person
	if err := db.First(&p, id).Error; err != nil {
		return nil, notFound(op, err)
	}

	return &p, nil
}

// GetByEmail retrieves a live person by email, case-insensitively.
func GetByEmail(db *gorm.DB, email string) (*models.Person, error) {
	const op = "person.GetByEmail"

	if db == nil {
		return nil, query.ErrDBNil
	}

	email = normalizeEmail(email)
	if email == "" {
		return nil, ErrEmailEmpty
	}

	var p models.Person
	if err := db.Where("email = ?", email).First(&p).Error; err != nil {
		return nil, notFound(op, err)
	}

	return &p, nil
}

// List returns one page of live people ordered by last and first name.
func List(db *gorm.DB, search string, page query.Page) (query.Result[models.Person], error) {
	if db == nil {
		return query.Result[models.Person]{}, query.ErrDBNil
	}

	q := db.Model(&models.Person{})
	if search != "" {
		like := query.Like(search)
		q = q.Where("(LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR email LIKE ?)", like, like, like)
	}

	res, err := query.Paginate[models.Person](q, page, "last_name, first_name, id")

	return res, query.Translate("person.List", err)
}

// Create inserts a person. Emails are stored lower case.
func Create(db *gorm.DB, p *models.Person) (*models.Person, error) {
	const op = "person.Create"

	if db == nil {
		return nil, query.ErrDBNil
	}

	p.Email = normalizeEmail(p.Email)
	if p.Email == "" {
		return nil, ErrEmailEmpty
	}

	if err := emailTaken(db, op, p.Email); err != nil {
		return nil, err
	}

	p.ID = 0
	if err := db.Create(p).Error; err != nil {
		return nil, query.Translate(op, err)
	}

	return p, nil
}

// Update applies in to the live person id.
func Update(db *gorm.DB, id uint64, in UpdateInput) (*models.Person, error) {
	const op = "person.Update"

	p, err := Get(db, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}

	if in.FirstName != nil {
		updates["first_name"] = *in.FirstName
	}

	if in.LastName != nil {
		updates["last_name"] = *in.LastName
	}

	if in.Phone != nil {
		updates["phone"] = *in.Phone
	}

	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if email == "" {
			return nil, ErrEmailEmpty
		}

		if email != p.Email {
			if err = emailTaken(db, op, email); err != nil {
				return nil, err
			}

			updates["email"] = email
		}
	}

	if len(updates) == 0 {
		return p, nil
	}

	if err = db.Model(p).Updates(updates).Error; err != nil {
		return nil, query.Translate(op, err)
	}

	return Get(db, id)
}

// Delete soft-deletes a person that owns no live user account.
func Delete(db *gorm.DB, id uint64) error {
	const op = "person.Delete"

	p, err := Get(db, id)
	if err != nil {
		return err
	}

	n, err := query.Count(db, &models.User{}, "person_id = ?", id)
	if err != nil {
		return query.Translate(op, err)
	}

	if n > 0 {
		return errs.Errorf(errs.Constraint, op, "person %d owns a live user account", id)
	}

	return query.Translate(op, db.Delete(p).Error)
}
