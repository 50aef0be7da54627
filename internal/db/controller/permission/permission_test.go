package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/accessd/accessd/internal/db/dbtest"
	"github.com/accessd/accessd/internal/db/models"
	"github.com/accessd/accessd/internal/db/query"
	"github.com/accessd/accessd/internal/errs"
)

func ptr[T any](v T) *T { return &v }

func seedPermissions(t *testing.T, db *gorm.DB, codes ...string) []models.Permission {
	t.Helper()

	out := make([]models.Permission, 0, len(codes))

	for _, code := range codes {
		p := models.Permission{Code: code, Group: "test"}
		require.NoError(t, db.Create(&p).Error, "failed to seed permission")
		out = append(out, p)
	}

	return out
}

func TestCreate(t *testing.T) {
	db := dbtest.Open(t)
	seedPermissions(t, db, "users.read")

	testCases := []struct {
		name    string
		dbParam *gorm.DB
		code    string
		wantErr error
	}{
		{name: "nil database", dbParam: nil, code: "users.create", wantErr: query.ErrDBNil},
		{name: "empty", dbParam: db, code: "", wantErr: ErrCodeEmpty},
		{name: "no action", dbParam: db, code: "users", wantErr: ErrCodeFormat},
		{name: "trailing dot", dbParam: db, code: "users.", wantErr: ErrCodeFormat},
		{name: "leading dot", dbParam: db, code: ".read", wantErr: ErrCodeFormat},
		{name: "comma", dbParam: db, code: "users.read,write", wantErr: ErrCodeFormat},
		{name: "duplicate", dbParam: db, code: "users.read", wantErr: errs.ErrConflict},
		{name: "nested resource", dbParam: db, code: "reports.sales.export"},
		{name: "ok", dbParam: db, code: " users.create "},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Create(tc.dbParam, &models.Permission{Code: tc.code})
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, p)

				return
			}

			require.NoError(t, err)
			assert.NotZero(t, p.ID)
		})
	}

	codes, err := Codes(db)
	require.NoError(t, err)
	assert.Equal(t, []string{"reports.sales.export", "users.create", "users.read"}, codes)
}

func TestUpdateCodeImmutableOnceReferenced(t *testing.T) {
	db := dbtest.Open(t)
	perms := seedPermissions(t, db, "users.read", "users.list", "users.write")

	// free permission can be renamed
	p, err := Update(db, perms[0].ID, UpdateInput{Code: ptr("users.view"), Label: ptr("View users")})
	require.NoError(t, err)
	assert.Equal(t, "users.view", p.Code)
	assert.Equal(t, "View users", p.Label)

	// renaming onto an existing code conflicts
	_, err = Update(db, perms[0].ID, UpdateInput{Code: ptr("users.list")})
	require.ErrorIs(t, err, errs.ErrConflict)

	// a soft-deleted authorization still pins the code
	a := models.Authorization{RoleID: 1, PermissionID: perms[2].ID}
	require.NoError(t, db.Create(&a).Error)
	require.NoError(t, db.Delete(&a).Error)

	_, err = Update(db, perms[2].ID, UpdateInput{Code: ptr("users.edit")})
	require.ErrorIs(t, err, ErrCodeReferenced)
	require.ErrorIs(t, err, errs.ErrConstraint)

	// other fields remain editable
	p, err = Update(db, perms[2].ID, UpdateInput{Code: ptr("users.write"), Group: ptr("users")})
	require.NoError(t, err)
	assert.Equal(t, "users", p.Group)
}

func TestList(t *testing.T) {
	db := dbtest.Open(t)
	seedPermissions(t, db, "users.read", "users.create", "roles.read", "usersettings.read")

	testCases := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{name: "all", want: []string{"roles.read", "users.create", "users.read", "usersettings.read"}},
		{name: "resource prefix is exact", filter: Filter{Resource: "users"}, want: []string{"users.create", "users.read"}},
		{name: "search", filter: Filter{Search: "settings"}, want: []string{"usersettings.read"}},
		{name: "group", filter: Filter{Group: "none"}, want: []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := List(db, tc.filter, query.Page{})
			require.NoError(t, err)

			got := []string{}
			for _, p := range res.Items {
				got = append(got, p.Code)
			}

			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDelete(t *testing.T) {
	db := dbtest.Open(t)
	perms := seedPermissions(t, db, "a.read", "b.read", "c.read")

	require.NoError(t, db.Create(&models.Authorization{RoleID: 1, PermissionID: perms[0].ID}).Error)
	require.NoError(t, db.Create(&models.UserPermission{UserID: 1, PermissionID: perms[1].ID}).Error)
	require.NoError(t, db.Model(&perms[2]).Update("is_system", true).Error)

	require.ErrorIs(t, Delete(db, perms[0].ID), errs.ErrConstraint)
	require.ErrorIs(t, Delete(db, perms[1].ID), errs.ErrConstraint)
	require.ErrorIs(t, Delete(db, perms[2].ID), ErrSystemPermission)
	require.ErrorIs(t, Delete(db, 404), errs.ErrNotFound)
	require.ErrorIs(t, Delete(db, 0), errs.ErrInvalidArgument)
}

func TestDeactivate(t *testing.T) {
	db := dbtest.Open(t)
	perms := seedPermissions(t, db, "a.read", "b.read")

	require.NoError(t, db.Create(&models.Authorization{RoleID: 1, PermissionID: perms[0].ID}).Error)
	require.NoError(t, db.Create(&models.Authorization{RoleID: 1, PermissionID: perms[1].ID}).Error)
	require.NoError(t, db.Create(&models.UserPermission{UserID: 5, PermissionID: perms[0].ID}).Error)

	users, err := Deactivate(db, perms[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []uint64{5}, users)

	_, err = GetByCode(db, "a.read")
	require.ErrorIs(t, err, errs.ErrNotFound)

	n, err := query.Count(db, &models.Authorization{}, "1 = 1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = query.Count(db, &models.UserPermission{}, "1 = 1")
	require.NoError(t, err)
	assert.Zero(t, n)

	// the code stays reserved
	_, err = Create(db, &models.Permission{Code: "a.read"})
	require.ErrorIs(t, err, errs.ErrConflict)
}
