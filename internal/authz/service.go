package authz

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/accessd/accessd/internal/authz/cache"
	"github.com/accessd/accessd/internal/config"
	"github.com/accessd/accessd/internal/db/controller/menu"
	"github.com/accessd/accessd/internal/db/models"
	"github.com/accessd/accessd/internal/errs"
)

// Reasons attached to decisions for audit logging.
const (
	ReasonGranted           = "granted"
	ReasonInactiveUser      = "inactive_user"
	ReasonNoRoles           = "no_active_roles"
	ReasonMissingPermission = "missing_permission"
	ReasonMissingRole       = "missing_role"
	ReasonMenuNotAccessible = "menu_not_accessible"
	ReasonEmptyList         = "empty_list"
	ReasonNotAdmin          = "not_admin"
	ReasonUnknownPolicy     = "unknown_policy"
	ReasonRuleFailed        = "rule_failed"
)

var decisions = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
	Name: "accessd_authz_decisions_total",
	Help: "Authorization decisions by operation and outcome.",
}, []string{"op", "outcome"})

// Decision is the result of an access check. Denial is a Decision, never an error.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

func allow() Decision {
	return Decision{Allowed: true, Reason: ReasonGranted}
}

func deny(reason string) Decision {
	return Decision{Reason: reason}
}

// Service answers access decisions and runs the administrative commands that change them.
type Service struct {
	db    *gorm.DB
	cache *cache.Cache
	agg   *Aggregator
	cfg   config.Authz
}

// NewService creates a new authorization service. The cache is owned by the caller.
func NewService(db *gorm.DB, c *cache.Cache, cfg config.Authz) *Service {
	return &Service{db: db, cache: c, agg: NewAggregator(db, c), cfg: cfg}
}

// Cache returns the authorization cache of the service.
func (s *Service) Cache() *cache.Cache {
	return s.cache
}

func checkUserID(op string, userID uint64) error {
	if userID == 0 {
		return errs.E(errs.InvalidArgument, op, "user id must be positive")
	}

	return nil
}

func checkCodes(op string, codes []string) error {
	for _, c := range codes {
		if strings.TrimSpace(c) == "" {
			return errs.E(errs.InvalidArgument, op, "codes cannot be empty")
		}
	}

	return nil
}

func (s *Service) view(ctx context.Context, op string, userID uint64) (*cache.View, error) {
	if err := checkUserID(op, userID); err != nil {
		return nil, err
	}

	return s.agg.View(ctx, userID)
}

func record(op string, userID uint64, d Decision, args ...string) Decision {
	outcome := "deny"
	if d.Allowed {
		outcome = "allow"
	}

	decisions.WithLabelValues(op, outcome).Inc()

	if e := log.Debug(); e.Enabled() {
		e.Str("op", op).Uint64("user_id", userID).Strs("args", args).
			Bool("allowed", d.Allowed).Str("reason", d.Reason).Msg("authorization decision")
	}

	return d
}

// gate returns the denial shared by every check when the view cannot grant anything.
func gate(v *cache.View) (Decision, bool) {
	switch {
	case !v.Active:
		return deny(ReasonInactiveUser), true
	case len(v.Roles) == 0 && len(v.Permissions) == 0:
		return deny(ReasonNoRoles), true
	default:
		return Decision{}, false
	}
}

func hasPermission(v *cache.View, code string) Decision {
	if d, stop := gate(v); stop {
		return d
	}

	if v.HasPermission(code) {
		return allow()
	}

	return deny(ReasonMissingPermission)
}

func hasAnyPermission(v *cache.View, codes []string) Decision {
	if len(codes) == 0 {
		return deny(ReasonEmptyList)
	}

	if d, stop := gate(v); stop {
		return d
	}

	if slices.ContainsFunc(codes, v.HasPermission) {
		return allow()
	}

	return deny(ReasonMissingPermission)
}

func hasAllPermissions(v *cache.View, codes []string) Decision {
	if len(codes) == 0 {
		return deny(ReasonEmptyList)
	}

	if d, stop := gate(v); stop {
		return d
	}

	for _, c := range codes {
		if !v.HasPermission(c) {
			return deny(ReasonMissingPermission)
		}
	}

	return allow()
}

func hasAnyRole(v *cache.View, codes []string) Decision {
	if len(codes) == 0 {
		return deny(ReasonEmptyList)
	}

	if d, stop := gate(v); stop {
		return d
	}

	if slices.ContainsFunc(codes, v.HasRoleCode) {
		return allow()
	}

	return deny(ReasonMissingRole)
}

func hasAllRoles(v *cache.View, codes []string) Decision {
	if len(codes) == 0 {
		return deny(ReasonEmptyList)
	}

	if d, stop := gate(v); stop {
		return d
	}

	for _, c := range codes {
		if !v.HasRoleCode(c) {
			return deny(ReasonMissingRole)
		}
	}

	return allow()
}

func canAccessMenu(v *cache.View, menuID uint64) Decision {
	if d, stop := gate(v); stop {
		return d
	}

	if v.HasMenu(menuID) {
		return allow()
	}

	return deny(ReasonMenuNotAccessible)
}

func (s *Service) isAdmin(v *cache.View) Decision {
	if d, stop := gate(v); stop {
		return d
	}

	h := v.Highest
	if h == nil || !h.IsSystem {
		return deny(ReasonNotAdmin)
	}

	if h.Level <= s.cfg.AdminMaxLevel || slices.Contains(s.cfg.AdminRoleCodes, h.Code) {
		return allow()
	}

	return deny(ReasonNotAdmin)
}

func (s *Service) isSuperAdmin(v *cache.View) Decision {
	if d, stop := gate(v); stop {
		return d
	}

	if v.HasRoleCode(s.cfg.SuperAdminRoleCode) {
		return allow()
	}

	return deny(ReasonNotAdmin)
}

// HasPermission reports whether code is in the user's effective permission set.
func (s *Service) HasPermission(ctx context.Context, userID uint64, code string) (Decision, error) {
	const op = "HasPermission"

	if err := checkCodes(op, []string{code}); err != nil {
		return Decision{}, err
	}

	v, err := s.view(ctx, op, userID)
	if err != nil {
		return Decision{}, err
	}

	return record(op, userID, hasPermission(v, code), code), nil
}

// HasAnyPermission reports whether at least one of codes is effective. An empty list is denied.
func (s *Service) HasAnyPermission(ctx context.Context, userID uint64, codes []string) (Decision, error) {
	const op = "HasAnyPermission"

	if err := checkCodes(op, codes); err != nil {
		return Decision{}, err
	}

	v, err := s.view(ctx, op, userID)
	if err != nil {
		return Decision{}, err
	}

	return record(op, userID, hasAnyPermission(v, codes), codes...), nil
}

// HasAllPermissions reports whether every one of codes is effective. An empty list is denied.
func (s *Service) HasAllPermissions(ctx context.Context, userID uint64, codes []string) (Decision, error) {
	const op = "HasAllPermissions"

	if err := checkCodes(op, codes); err != nil {
		return Decision{}, err
	}

	v, err := s.view(ctx, op, userID)
	if err != nil {
		return Decision{}, err
	}

	return record(op, userID, hasAllPermissions(v, codes), codes...), nil
}

// HasRole reports whether the inherited role set contains roleCode.
func (s *Service) HasRole(ctx context.Context, userID uint64, roleCode string) (Decision, error) {
	const op = "HasRole"

	if err := checkCodes(op, []string{roleCode}); err != nil {
		return Decision{}, err
	}

	v, err := s.view(ctx, op, userID)
	if err != nil {
		return Decision{}, err
	}

	return record(op, userID, hasAnyRole(v, []string{roleCode}), roleCode), nil
}

// HasAnyRole reports whether the inherited role set contains one of codes.
func (s *Service) HasAnyRole(ctx context.Context, userID uint64, codes []string) (Decision, error) {
	const op = "HasAnyRole"

	if err := checkCodes(op, codes); err != nil {
		return Decision{}, err
	}

	v, err := s.view(ctx, op, userID)
	if err != nil {
		return Decision{}, err
	}

	return record(op, userID, hasAnyRole(v, codes), codes...), nil
}

// HasAllRoles reports whether the inherited role set contains every one of codes.
func (s *Service) HasAllRoles(ctx context.Context, userID uint64, codes []string) (Decision, error) {
	const op = "HasAllRoles"

	if err := checkCodes(op, codes); err != nil {
		return Decision{}, err
	}

	v, err := s.view(ctx, op, userID)
	if err != nil {
		return Decision{}, err
	}

	return record(op, userID, hasAllRoles(v, codes), codes...), nil
}

// CanAccessMenu reports whether a live authorization of the user's roles targets the live, visible menu.
func (s *Service) CanAccessMenu(ctx context.Context, userID, menuID uint64) (Decision, error) {
	const op = "CanAccessMenu"

	if menuID == 0 {
		return Decision{}, errs.E(errs.InvalidArgument, op, "menu id must be positive")
	}

	v, err := s.view(ctx, op, userID)
	if err != nil {
		return Decision{}, err
	}

	return record(op, userID, canAccessMenu(v, menuID)), nil
}

// CanAccessResource is HasPermission on resource.action.
func (s *Service) CanAccessResource(ctx context.Context, userID uint64, resource, action string) (Decision, error) {
	const op = "CanAccessResource"

	if err := checkCodes(op, []string{resource, action}); err != nil {
		return Decision{}, err
	}

	v, err := s.view(ctx, op, userID)
	if err != nil {
		return Decision{}, err
	}

	code := resource + "." + action

	return record(op, userID, hasPermission(v, code), code), nil
}

// IsAdmin reports whether the user's highest role is a system role at an administrative
// level or with an administrative code.
func (s *Service) IsAdmin(ctx context.Context, userID uint64) (Decision, error) {
	const op = "IsAdmin"

	v, err := s.view(ctx, op, userID)
	if err != nil {
		return Decision{}, err
	}

	return record(op, userID, s.isAdmin(v)), nil
}

// IsSuperAdmin reports whether the user holds the super admin role.
func (s *Service) IsSuperAdmin(ctx context.Context, userID uint64) (Decision, error) {
	const op = "IsSuperAdmin"

	v, err := s.view(ctx, op, userID)
	if err != nil {
		return Decision{}, err
	}

	return record(op, userID, s.isSuperAdmin(v)), nil
}

// HighestRole returns the user's role with the lowest level, nil when the user holds none.
func (s *Service) HighestRole(ctx context.Context, userID uint64) (*cache.RoleRef, error) {
	v, err := s.view(ctx, "HighestRole", userID)
	if err != nil {
		return nil, err
	}

	return v.Highest, nil
}

// EffectivePermissions returns the user's permission codes sorted ascending.
func (s *Service) EffectivePermissions(ctx context.Context, userID uint64) ([]string, error) {
	v, err := s.view(ctx, "EffectivePermissions", userID)
	if err != nil {
		return nil, err
	}

	return slices.Clone(v.Permissions), nil
}

// UserAuthorizations is the materialized view of one user.
type UserAuthorizations struct {
	UserID      uint64          `json:"userId"`
	Active      bool            `json:"active"`
	Roles       []cache.RoleRef `json:"roles"`
	HighestRole *cache.RoleRef  `json:"highestRole"`
	Permissions []string        `json:"permissions"`
	Menus       []models.Menu   `json:"menus"`
	IsAdmin     bool            `json:"isAdmin"`
}

// UserAuthorizations returns the roles, permissions and menus of the user.
func (s *Service) UserAuthorizations(ctx context.Context, userID uint64) (*UserAuthorizations, error) {
	v, err := s.view(ctx, "UserAuthorizations", userID)
	if err != nil {
		return nil, err
	}

	menus, err := s.menus(ctx, v)
	if err != nil {
		return nil, err
	}

	return &UserAuthorizations{
		UserID:      userID,
		Active:      v.Active,
		Roles:       slices.Clone(v.Roles),
		HighestRole: v.Highest,
		Permissions: slices.Clone(v.Permissions),
		Menus:       menus,
		IsAdmin:     s.isAdmin(v).Allowed,
	}, nil
}

func (s *Service) menus(ctx context.Context, v *cache.View) ([]models.Menu, error) {
	out := []models.Menu{}
	if len(v.MenuIDs) == 0 {
		return out, nil
	}

	all, err := menu.ListAll(s.db.WithContext(ctx))
	if err != nil {
		return nil, err
	}

	for _, m := range all {
		if v.HasMenu(m.ID) {
			out = append(out, m)
		}
	}

	return out, nil
}

// MenuNode is one accessible menu with its accessible children.
type MenuNode struct {
	models.Menu
	Children []*MenuNode `json:"children"`
}

// UserMenus returns the accessible menus as a tree ordered by sort order.
// A menu whose parent is not accessible is returned as a root.
func (s *Service) UserMenus(ctx context.Context, userID uint64) ([]*MenuNode, error) {
	v, err := s.view(ctx, "UserMenus", userID)
	if err != nil {
		return nil, err
	}

	menus, err := s.menus(ctx, v)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(menus, func(a, b models.Menu) int {
		if a.SortOrder != b.SortOrder {
			return cmp.Compare(a.SortOrder, b.SortOrder)
		}

		return cmp.Compare(a.ID, b.ID)
	})

	nodes := make(map[uint64]*MenuNode, len(menus))
	for _, m := range menus {
		nodes[m.ID] = &MenuNode{Menu: m, Children: []*MenuNode{}}
	}

	roots := []*MenuNode{}

	for _, m := range menus {
		n := nodes[m.ID]
		if m.ParentID != nil {
			if p, ok := nodes[*m.ParentID]; ok {
				p.Children = append(p.Children, n)

				continue
			}
		}

		roots = append(roots, n)
	}

	return roots, nil
}

// PermissionsForRole returns the codes granted to the role itself, without inheritance.
func (s *Service) PermissionsForRole(ctx context.Context, roleID uint64) ([]string, error) {
	if roleID == 0 {
		return nil, errs.E(errs.InvalidArgument, "PermissionsForRole", "role id must be positive")
	}

	codes, err := s.agg.RolePermissions(ctx, roleID)
	if err != nil {
		return nil, err
	}

	return slices.Clone(codes), nil
}

// ResourceActions returns the actions defined for resource by the known permission codes.
func (s *Service) ResourceActions(ctx context.Context, resource string) ([]string, error) {
	if err := checkCodes("ResourceActions", []string{resource}); err != nil {
		return nil, err
	}

	return s.agg.ResourceActions(ctx, resource)
}

// RolesHierarchy returns the forest of live roles.
func (s *Service) RolesHierarchy(ctx context.Context) ([]*RoleNode, error) {
	h, err := LoadHierarchy(ctx, s.db)
	if err != nil {
		return nil, err
	}

	return h.Tree(), nil
}

// Dominates reports whether role a carries more authority than role b.
func (s *Service) Dominates(ctx context.Context, a, b uint64) (bool, error) {
	if a == 0 || b == 0 {
		return false, errs.E(errs.InvalidArgument, "Dominates", "role ids must be positive")
	}

	h, err := LoadHierarchy(ctx, s.db)
	if err != nil {
		return false, err
	}

	return h.Dominates(a, b)
}

// logger returns a sub logger for command audit entries.
func (s *Service) logger(op string, actor uint64) zerolog.Logger {
	return log.With().Str("op", op).Uint64("actor", actor).Logger()
}
