// Package access manages user role assignments.
package access

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/accessd/accessd/internal/db/models"
	"github.com/accessd/accessd/internal/db/query"
	"github.com/accessd/accessd/internal/errs"
)

const pairQueryPattern = "user_id = ? AND role_id = ?"

// Assign gives roleID to userID. Re-assigning a revoked or soft-deleted pair reactivates the
// existing row; assigning an already active pair is a Conflict.
func Assign(db *gorm.DB, userID, roleID uint64, createdBy *uint64) (*models.Access, error) {
	const op = "access.Assign"

	if db == nil {
		return nil, query.ErrDBNil
	}

	if userID == 0 || roleID == 0 {
		return nil, errs.E(errs.InvalidArgument, op, "user and role ids must be positive")
	}

	if err := query.MustExist(db, op, "user", &models.User{}, userID); err != nil {
		return nil, err
	}

	if err := query.MustExist(db, op, "role", &models.Role{}, roleID); err != nil {
		return nil, err
	}

	var existing models.Access

	err := db.Unscoped().Where(pairQueryPattern, userID, roleID).First(&existing).Error

	switch {
	case err == nil && !existing.Deleted() && existing.Status == models.AccessStatusActive:
		return nil, errs.Errorf(errs.Conflict, op, "user %d already holds role %d", userID, roleID)
	case err == nil:
		if err = db.Unscoped().Model(&existing).Updates(map[string]any{
			"deleted_at": nil,
			"status":     models.AccessStatusActive,
			"revoked_at": nil,
			"created_by": createdBy,
		}).Error; err != nil {
			return nil, query.Translate(op, err)
		}

		return get(db, op, userID, roleID)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, query.Translate(op, err)
	}

	a := &models.Access{UserID: userID, RoleID: roleID, Status: models.AccessStatusActive}
	a.CreatedBy = createdBy

	if err = db.Create(a).Error; err != nil {
		return nil, query.Translate(op, err)
	}

	return a, nil
}

func get(db *gorm.DB, op string, userID, roleID uint64) (*models.Access, error) {
	var a models.Access
	if err := db.Where(pairQueryPattern, userID, roleID).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Errorf(errs.NotFound, op, "user %d has no assignment of role %d", userID, roleID)
		}

		return nil, query.Translate(op, err)
	}

	return &a, nil
}

// Revoke marks an active assignment as revoked. The row is kept for history.
func Revoke(db *gorm.DB, userID, roleID uint64) (*models.Access, error) {
	const op = "access.Revoke"

	if db == nil {
		return nil, query.ErrDBNil
	}

	if userID == 0 || roleID == 0 {
		return nil, errs.E(errs.InvalidArgument, op, "user and role ids must be positive")
	}

	a, err := get(db, op, userID, roleID)
	if err != nil {
		return nil, err
	}

	if a.Status != models.AccessStatusActive {
		return nil, errs.Errorf(errs.NotFound, op, "user %d has no active assignment of role %d", userID, roleID)
	}

	now := time.Now().UTC()
	if err = db.Model(a).Updates(map[string]any{"status": models.AccessStatusRevoked, "revoked_at": now}).Error; err != nil {
		return nil, query.Translate(op, err)
	}

	a.Status, a.RevokedAt = models.AccessStatusRevoked, &now

	return a, nil
}

// ActiveRoleIDs returns the live roles the user holds through active assignments, ascending.
func ActiveRoleIDs(db *gorm.DB, userID uint64) ([]uint64, error) {
	if db == nil {
		return nil, query.ErrDBNil
	}

	ids := []uint64{}

	err := db.Model(&models.Access{}).
		Joins("JOIN roles ON roles.id = accesses.role_id AND roles.deleted_at IS NULL").
		Where("accesses.user_id = ? AND accesses.status = ?", userID, models.AccessStatusActive).
		Order("accesses.role_id").
		Pluck("accesses.role_id", &ids).Error
	if err != nil {
		return nil, query.Translate("access.ActiveRoleIDs", err)
	}

	return ids, nil
}

// ListByUser returns the user's live assignments, active and revoked.
func ListByUser(db *gorm.DB, userID uint64) ([]models.Access, error) {
	if db == nil {
		return nil, query.ErrDBNil
	}

	var out []models.Access
	if err := db.Where("user_id = ?", userID).Order("role_id").Find(&out).Error; err != nil {
		return nil, query.Translate("access.ListByUser", err)
	}

	return out, nil
}

// UserIDs returns the users holding roleID through an active assignment.
func UserIDs(db *gorm.DB, roleID uint64) ([]uint64, error) {
	if db == nil {
		return nil, query.ErrDBNil
	}

	ids := []uint64{}

	err := db.Model(&models.Access{}).
		Where("role_id = ? AND status = ?", roleID, models.AccessStatusActive).
		Order("user_id").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, query.Translate("access.UserIDs", err)
	}

	return ids, nil
}
