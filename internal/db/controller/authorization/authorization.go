// Package authorization manages the (role, permission, menu) grant rows and the joins that
// resolve them into permission codes and menus.
package authorization

import (
	"errors"

	"gorm.io/gorm"

	"github.com/accessd/accessd/internal/db/models"
	"github.com/accessd/accessd/internal/db/query"
	"github.com/accessd/accessd/internal/errs"
)

const (
	joinLivePermissions = "JOIN permissions ON permissions.id = authorizations.permission_id AND permissions.deleted_at IS NULL"
	joinLiveRoles       = "JOIN roles ON roles.id = authorizations.role_id AND roles.deleted_at IS NULL"
	joinLiveMenus       = "JOIN menus ON menus.id = authorizations.menu_id AND menus.deleted_at IS NULL"
	leftJoinMenus       = "LEFT JOIN menus ON menus.id = authorizations.menu_id"
)

// Filter narrows List.
type Filter struct {
	RoleID       *uint64 `query:"roleId"`
	PermissionID *uint64 `query:"permissionId"`
	MenuID       *uint64 `query:"menuId"`
}

// Grant is one live authorization with the codes it links.
type Grant struct {
	ID             uint64  `json:"id"`
	RoleID         uint64  `json:"roleId"`
	RoleCode       string  `json:"roleCode"`
	PermissionID   uint64  `json:"permissionId"`
	PermissionCode string  `json:"permissionCode"`
	MenuID         *uint64 `json:"menuId,omitempty"`
	MenuCode       *string `json:"menuCode,omitempty"`
}

func notFound(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.E(errs.NotFound, op, "authorization not found")
	}

	return query.Translate(op, err)
}

func tripleScope(roleID, permissionID uint64, menuID *uint64) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("role_id = ? AND permission_id = ?", roleID, permissionID)
		if menuID == nil {
			return db.Where("menu_id IS NULL")
		}

		return db.Where("menu_id = ?", *menuID)
	}
}

// Get retrieves a live authorization by id.
func Get(db *gorm.DB, id uint64) (*models.Authorization, error) {
	const op = "authorization.Get"

	if db == nil {
		return nil, query.ErrDBNil
	}

	if id == 0 {
		return nil, errs.E(errs.InvalidArgument, op, "authorization id must be positive")
	}

	var a models.Authorization
	if err := db.First(&a, id).Error; err != nil {
		return nil, notFound(op, err)
	}

	return &a, nil
}

// Create grants permissionID to roleID within menuID. The role, permission and menu must be live.
// A live duplicate triple is a Conflict; a soft-deleted one is restored so each triple keeps one row.
func Create(db *gorm.DB, roleID, permissionID uint64, menuID, createdBy *uint64) (*models.Authorization, error) {
	const op = "authorization.Create"

	if db == nil {
		return nil, query.ErrDBNil
	}

	if roleID == 0 || permissionID == 0 || (menuID != nil && *menuID == 0) {
		return nil, errs.E(errs.InvalidArgument, op, "role, permission and menu ids must be positive")
	}

	if err := query.MustExist(db, op, "role", &models.Role{}, roleID); err != nil {
		return nil, err
	}

	if err := query.MustExist(db, op, "permission", &models.Permission{}, permissionID); err != nil {
		return nil, err
	}

	if menuID != nil {
		if err := query.MustExist(db, op, "menu", &models.Menu{}, *menuID); err != nil {
			return nil, err
		}
	}

	var existing models.Authorization

	err := db.Unscoped().Scopes(tripleScope(roleID, permissionID, menuID)).Order("id").First(&existing).Error

	switch {
	case err == nil && !existing.Deleted():
		return nil, errs.Errorf(errs.Conflict, op, "authorization %d already grants this triple", existing.ID)
	case err == nil:
		if err = db.Unscoped().Model(&existing).Updates(map[string]any{
			"deleted_at": nil,
			"created_by": createdBy,
		}).Error; err != nil {
			return nil, query.Translate(op, err)
		}

		return Get(db, existing.ID)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, query.Translate(op, err)
	}

	a := &models.Authorization{RoleID: roleID, PermissionID: permissionID, MenuID: menuID}
	a.CreatedBy = createdBy

	if err = db.Create(a).Error; err != nil {
		return nil, query.Translate(op, err)
	}

	return a, nil
}

// Revoke soft-deletes a live authorization.
func Revoke(db *gorm.DB, id uint64) (*models.Authorization, error) {
	const op = "authorization.Revoke"

	a, err := Get(db, id)
	if err != nil {
		return nil, err
	}

	if err = db.Delete(a).Error; err != nil {
		return nil, query.Translate(op, err)
	}

	return a, nil
}

// HardDelete physically removes an authorization row, live or soft-deleted.
func HardDelete(db *gorm.DB, id uint64) (*models.Authorization, error) {
	const op = "authorization.HardDelete"

	if db == nil {
		return nil, query.ErrDBNil
	}

	if id == 0 {
		return nil, errs.E(errs.InvalidArgument, op, "authorization id must be positive")
	}

	var a models.Authorization
	if err := db.Unscoped().First(&a, id).Error; err != nil {
		return nil, notFound(op, err)
	}

	if err := db.Unscoped().Delete(&a).Error; err != nil {
		return nil, query.Translate(op, err)
	}

	return &a, nil
}

// List returns one page of live authorizations ordered by id.
func List(db *gorm.DB, filter Filter, page query.Page) (query.Result[models.Authorization], error) {
	if db == nil {
		return query.Result[models.Authorization]{}, query.ErrDBNil
	}

	q := db.Model(&models.Authorization{})

	if filter.RoleID != nil {
		q = q.Where("role_id = ?", *filter.RoleID)
	}

	if filter.PermissionID != nil {
		q = q.Where("permission_id = ?", *filter.PermissionID)
	}

	if filter.MenuID != nil {
		q = q.Where("menu_id = ?", *filter.MenuID)
	}

	res, err := query.Paginate[models.Authorization](q, page, "id")

	return res, query.Translate("authorization.List", err)
}

func listBy(db *gorm.DB, op, column string, id uint64) ([]models.Authorization, error) {
	if db == nil {
		return nil, query.ErrDBNil
	}

	var out []models.Authorization
	if err := db.Where(column+" = ?", id).Order("id").Find(&out).Error; err != nil {
		return nil, query.Translate(op, err)
	}

	return out, nil
}

// ListByRole returns the live authorizations of a role.
func ListByRole(db *gorm.DB, roleID uint64) ([]models.Authorization, error) {
	return listBy(db, "authorization.ListByRole", "role_id", roleID)
}

// ListByPermission returns the live authorizations of a permission.
func ListByPermission(db *gorm.DB, permissionID uint64) ([]models.Authorization, error) {
	return listBy(db, "authorization.ListByPermission", "permission_id", permissionID)
}

// ListByMenu returns the live authorizations scoped to a menu.
func ListByMenu(db *gorm.DB, menuID uint64) ([]models.Authorization, error) {
	return listBy(db, "authorization.ListByMenu", "menu_id", menuID)
}

// PermissionCodes returns the distinct codes of live permissions granted to any of roleIDs
// through live authorizations, sorted ascending.
func PermissionCodes(db *gorm.DB, roleIDs []uint64) ([]string, error) {
	if db == nil {
		return nil, query.ErrDBNil
	}

	codes := []string{}
	if len(roleIDs) == 0 {
		return codes, nil
	}

	err := db.Model(&models.Authorization{}).
		Joins(joinLivePermissions).
		Joins(joinLiveRoles).
		Where("authorizations.role_id IN ?", roleIDs).
		Distinct().
		Order("permissions.code").
		Pluck("permissions.code", &codes).Error
	if err != nil {
		return nil, query.Translate("authorization.PermissionCodes", err)
	}

	return codes, nil
}

// MenuIDs returns the distinct live, visible menus reachable through live authorizations of roleIDs.
func MenuIDs(db *gorm.DB, roleIDs []uint64) ([]uint64, error) {
	if db == nil {
		return nil, query.ErrDBNil
	}

	ids := []uint64{}
	if len(roleIDs) == 0 {
		return ids, nil
	}

	err := db.Model(&models.Authorization{}).
		Joins(joinLivePermissions).
		Joins(joinLiveRoles).
		Joins(joinLiveMenus).
		Where("authorizations.role_id IN ? AND menus.is_visible = ?", roleIDs, true).
		Distinct().
		Order("authorizations.menu_id").
		Pluck("authorizations.menu_id", &ids).Error
	if err != nil {
		return nil, query.Translate("authorization.MenuIDs", err)
	}

	return ids, nil
}

// Grants returns every live authorization whose role and permission are live, with codes resolved.
// Authorizations pointing at a soft-deleted menu are skipped. Optional filter narrows the result.
func Grants(db *gorm.DB, filter Filter) ([]Grant, error) {
	if db == nil {
		return nil, query.ErrDBNil
	}

	q := db.Model(&models.Authorization{}).
		Select("authorizations.id, authorizations.role_id, roles.code AS role_code, " +
			"authorizations.permission_id, permissions.code AS permission_code, " +
			"authorizations.menu_id, menus.code AS menu_code").
		Joins(joinLivePermissions).
		Joins(joinLiveRoles).
		Joins(leftJoinMenus).
		Where("(authorizations.menu_id IS NULL OR menus.deleted_at IS NULL)")

	if filter.RoleID != nil {
		q = q.Where("authorizations.role_id = ?", *filter.RoleID)
	}

	if filter.PermissionID != nil {
		q = q.Where("authorizations.permission_id = ?", *filter.PermissionID)
	}

	if filter.MenuID != nil {
		q = q.Where("authorizations.menu_id = ?", *filter.MenuID)
	}

	out := []Grant{}
	if err := q.Order("roles.code, permissions.code, authorizations.menu_id").Scan(&out).Error; err != nil {
		return nil, query.Translate("authorization.Grants", err)
	}

	return out, nil
}
