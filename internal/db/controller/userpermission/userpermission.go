// Package userpermission manages permissions granted directly to users.
package userpermission

import (
	"errors"

	"gorm.io/gorm"

	"github.com/accessd/accessd/internal/db/models"
	"github.com/accessd/accessd/internal/db/query"
	"github.com/accessd/accessd/internal/errs"
)

const pairQueryPattern = "user_id = ? AND permission_id = ?"

// Grant gives permissionID directly to userID. A soft-deleted grant is restored.
func Grant(db *gorm.DB, userID, permissionID uint64, createdBy *uint64) (*models.UserPermission, error) {
	const op = "userpermission.Grant"

	if db == nil {
		return nil, query.ErrDBNil
	}

	if userID == 0 || permissionID == 0 {
		return nil, errs.E(errs.InvalidArgument, op, "user and permission ids must be positive")
	}

	if err := query.MustExist(db, op, "user", &models.User{}, userID); err != nil {
		return nil, err
	}

	if err := query.MustExist(db, op, "permission", &models.Permission{}, permissionID); err != nil {
		return nil, err
	}

	var existing models.UserPermission

	err := db.Unscoped().Where(pairQueryPattern, userID, permissionID).First(&existing).Error

	switch {
	case err == nil && !existing.Deleted():
		return nil, errs.Errorf(errs.Conflict, op, "user %d already holds permission %d", userID, permissionID)
	case err == nil:
		if err = db.Unscoped().Model(&existing).Updates(map[string]any{
			"deleted_at": nil,
			"created_by": createdBy,
		}).Error; err != nil {
			return nil, query.Translate(op, err)
		}

		existing.DeletedAt = gorm.DeletedAt{}
		existing.CreatedBy = createdBy

		return &existing, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, query.Translate(op, err)
	}

	up := &models.UserPermission{UserID: userID, PermissionID: permissionID}
	up.CreatedBy = createdBy

	if err = db.Create(up).Error; err != nil {
		return nil, query.Translate(op, err)
	}

	return up, nil
}

// Revoke soft-deletes a live direct grant.
func Revoke(db *gorm.DB, userID, permissionID uint64) error {
	const op = "userpermission.Revoke"

	if db == nil {
		return query.ErrDBNil
	}

	if userID == 0 || permissionID == 0 {
		return errs.E(errs.InvalidArgument, op, "user and permission ids must be positive")
	}

	res := db.Where(pairQueryPattern, userID, permissionID).Delete(&models.UserPermission{})
	if res.Error != nil {
		return query.Translate(op, res.Error)
	}

	if res.RowsAffected == 0 {
		return errs.Errorf(errs.NotFound, op, "user %d has no direct grant of permission %d", userID, permissionID)
	}

	return nil
}

// Codes returns the codes of live permissions granted directly to the user, ascending.
func Codes(db *gorm.DB, userID uint64) ([]string, error) {
	if db == nil {
		return nil, query.ErrDBNil
	}

	codes := []string{}

	err := db.Model(&models.UserPermission{}).
		Joins("JOIN permissions ON permissions.id = user_permissions.permission_id AND permissions.deleted_at IS NULL").
		Where("user_permissions.user_id = ?", userID).
		Order("permissions.code").
		Pluck("permissions.code", &codes).Error
	if err != nil {
		return nil, query.Translate("userpermission.Codes", err)
	}

	return codes, nil
}

// ListByUser returns the user's live direct grants.
func ListByUser(db *gorm.DB, userID uint64) ([]models.UserPermission, error) {
	if db == nil {
		return nil, query.ErrDBNil
	}

	var out []models.UserPermission
	if err := db.Where("user_id = ?", userID).Order("permission_id").Find(&out).Error; err != nil {
		return nil, query.Translate("userpermission.ListByUser", err)
	}

	return out, nil
}
