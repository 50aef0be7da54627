package person

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accessd/accessd/internal/db/dbtest"
	"github.com/accessd/accessd/internal/db/models"
	"github.com/accessd/accessd/internal/db/query"
	"github.com/accessd/accessd/internal/errs"
)

func ptr[T any](v T) *T { return &v }

func TestPersonLifecycle(t *testing.T) {
	db := dbtest.Open(t)

	_, err := Create(db, &models.Person{FirstName: "No", LastName: "Mail"})
	require.ErrorIs(t, err, ErrEmailEmpty)

	erin, err := Create(db, &models.Person{FirstName: "Erin", LastName: "Example", Email: " Erin@Example.com "})
	require.NoError(t, err)
	assert.Equal(t, "erin@example.com", erin.Email)

	_, err = Create(db, &models.Person{Email: "ERIN@example.com"})
	require.ErrorIs(t, err, errs.ErrConflict)

	frank, err := Create(db, &models.Person{FirstName: "Frank", LastName: "Other", Email: "frank@example.com"})
	require.NoError(t, err)

	_, err = Update(db, frank.ID, UpdateInput{Email: ptr("erin@example.com")})
	require.ErrorIs(t, err, errs.ErrConflict)

	frank, err = Update(db, frank.ID, UpdateInput{Phone: ptr("+49 30 1234")})
	require.NoError(t, err)
	assert.Equal(t, "+49 30 1234", frank.Phone)

	found, err := GetByEmail(db, "ERIN@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, erin.ID, found.ID)

	res, err := List(db, "erin", query.Page{})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, erin.ID, res.Items[0].ID)

	require.NoError(t, db.Create(&models.User{Username: "erin", PersonID: &erin.ID}).Error)
	require.ErrorIs(t, Delete(db, erin.ID), errs.ErrConstraint)
	require.NoError(t, Delete(db, frank.ID))

	_, err = Get(db, frank.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)
}
