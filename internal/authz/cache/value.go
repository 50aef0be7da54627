package cache

import (
	"strconv"
	"strings"
)

// Key identifies a cache entry.
type Key string

const (
	userPrefix = "user:"
	rolePrefix = "role:"
)

// UserKey is the key of a user's resolved view.
func UserKey(userID uint64) Key {
	return Key(userPrefix + strconv.FormatUint(userID, 10))
}

// RoleKey is the key of a role's own (non-inherited) permission codes.
func RoleKey(roleID uint64) Key {
	return Key(rolePrefix + strconv.FormatUint(roleID, 10))
}

// UserID returns the user id of a user key.
func (k Key) UserID() (uint64, bool) {
	s, ok := strings.CutPrefix(string(k), userPrefix)
	if !ok {
		return 0, false
	}

	id, err := strconv.ParseUint(s, 10, 64)

	return id, err == nil
}

// RoleRef is the part of a role a decision needs.
type RoleRef struct {
	ID       uint64 `json:"id"`
	Code     string `json:"code"`
	Label    string `json:"label,omitempty"`
	Level    int    `json:"level"`
	IsSystem bool   `json:"isSystem"`
}

// View is the resolved authorization state of one user.
// A View is never modified once it has been handed to the cache.
type View struct {
	UserID uint64 `json:"userId"`
	// Active is false for unknown users and users whose status is not active.
	Active bool `json:"active"`
	// HeldRoleIDs are the roles assigned through active accesses, ascending.
	HeldRoleIDs []uint64 `json:"heldRoleIds"`
	// Roles is the inherited role set ordered by level then id.
	Roles []RoleRef `json:"roles"`
	// Highest is Roles[0], nil when the user holds no role.
	Highest *RoleRef `json:"highest,omitempty"`
	// Permissions are the effective permission codes, sorted.
	Permissions []string `json:"permissions"`
	// MenuIDs are the live, visible menus reachable through the inherited roles, ascending.
	MenuIDs []uint64 `json:"menuIds"`
}

// HasRoleCode reports whether the inherited set contains code.
func (v *View) HasRoleCode(code string) bool {
	for _, r := range v.Roles {
		if r.Code == code {
			return true
		}
	}

	return false
}

// HasPermission reports whether code is effective. Permissions is sorted.
func (v *View) HasPermission(code string) bool {
	lo, hi := 0, len(v.Permissions)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if v.Permissions[mid] < code {
			lo = mid + 1
		} else {
			hi = mid
		}
	}

	return lo < len(v.Permissions) && v.Permissions[lo] == code
}

// HasMenu reports whether menuID is reachable.
func (v *View) HasMenu(menuID uint64) bool {
	for _, id := range v.MenuIDs {
		if id == menuID {
			return true
		}
	}

	return false
}

// Value is what the cache stores under a Key: a user View or a role's permission codes.
type Value struct {
	View        *View    `json:"view,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}
