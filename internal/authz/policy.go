package authz

import (
	"context"
	"slices"

	"github.com/accessd/accessd/internal/authz/cache"
	"github.com/accessd/accessd/internal/db/controller/authorization"
	"github.com/accessd/accessd/internal/db/controller/permission"
)

// PolicyType selects what a policy checks.
type PolicyType string

// Policy types.
const (
	PolicyPermission PolicyType = "permission"
	PolicyRole       PolicyType = "role"
	PolicyMenu       PolicyType = "menu"
	PolicyResource   PolicyType = "resource"
	PolicyComplex    PolicyType = "complex"
)

// Operator combines the values of a condition.
type Operator string

// Operators.
const (
	OperatorAny Operator = "any"
	OperatorAll Operator = "all"
)

// Conditions are the arguments of a policy. Which fields are read depends on the policy type.
type Conditions struct {
	Operator    Operator `json:"operator,omitempty" validate:"omitempty,oneof=any all"`
	Permissions []string `json:"permissions,omitempty" validate:"dive,required"`
	Roles       []string `json:"roles,omitempty" validate:"dive,required"`
	MenuIDs     []uint64 `json:"menuIds,omitempty" validate:"dive,gt=0"`
	Resource    string   `json:"resource,omitempty"`
	Actions     []string `json:"actions,omitempty" validate:"dive,required"`
	Rules       []Rule   `json:"rules,omitempty" validate:"dive"`
}

// Rule is one clause of a complex policy. Rules are required unless Required is false;
// an optional rule never changes the outcome.
type Rule struct {
	Type PolicyType `json:"type" validate:"required,oneof=permission role menu resource"`
	Conditions
	Required *bool `json:"required,omitempty"`
}

// Policy is a declarative access check.
type Policy struct {
	Type       PolicyType `json:"type" validate:"required,oneof=permission role menu resource complex"`
	Conditions Conditions `json:"conditions"`
}

func combine(op Operator, n int, granted func(i int) bool) (bool, bool) {
	switch op {
	case OperatorAny:
		for i := range n {
			if granted(i) {
				return true, true
			}
		}

		return false, true
	case OperatorAll:
		if n == 0 {
			return false, true
		}

		for i := range n {
			if !granted(i) {
				return false, true
			}
		}

		return true, true
	default:
		return false, false
	}
}

func listDecision(op Operator, n int, granted func(i int) bool, missing string) Decision {
	if n == 0 {
		return deny(ReasonEmptyList)
	}

	ok, known := combine(op, n, granted)

	switch {
	case !known:
		return deny(ReasonUnknownPolicy)
	case ok:
		return allow()
	default:
		return deny(missing)
	}
}

func evaluate(v *cache.View, t PolicyType, c *Conditions) Decision {
	if d, stop := gate(v); stop {
		return d
	}

	switch t {
	case PolicyPermission:
		return listDecision(c.Operator, len(c.Permissions), func(i int) bool {
			return v.HasPermission(c.Permissions[i])
		}, ReasonMissingPermission)
	case PolicyRole:
		return listDecision(c.Operator, len(c.Roles), func(i int) bool {
			return v.HasRoleCode(c.Roles[i])
		}, ReasonMissingRole)
	case PolicyMenu:
		return listDecision(c.Operator, len(c.MenuIDs), func(i int) bool {
			return v.HasMenu(c.MenuIDs[i])
		}, ReasonMenuNotAccessible)
	case PolicyResource:
		if c.Resource == "" {
			return deny(ReasonUnknownPolicy)
		}

		return listDecision(c.Operator, len(c.Actions), func(i int) bool {
			return v.HasPermission(c.Resource + "." + c.Actions[i])
		}, ReasonMissingPermission)
	case PolicyComplex:
		if len(c.Rules) == 0 {
			return deny(ReasonEmptyList)
		}

		for i := range c.Rules {
			r := &c.Rules[i]
			if r.Required != nil && !*r.Required {
				continue
			}

			if d := evaluate(v, r.Type, &r.Conditions); !d.Allowed {
				return deny(ReasonRuleFailed)
			}
		}

		return allow()
	default:
		return deny(ReasonUnknownPolicy)
	}
}

// CheckPolicy evaluates p against one consistent view of the user.
func (s *Service) CheckPolicy(ctx context.Context, userID uint64, p Policy) (Decision, error) {
	const op = "CheckPolicy"

	if err := Validate(op, p); err != nil {
		return Decision{}, err
	}

	v, err := s.view(ctx, op, userID)
	if err != nil {
		return Decision{}, err
	}

	return record(op, userID, evaluate(v, p.Type, &p.Conditions), string(p.Type)), nil
}

// PolicyMatrix maps role code to permission code to the menu codes the grant is scoped to.
// A grant without menu has an empty menu list.
type PolicyMatrix map[string]map[string][]string

// Policy returns the matrix of every live authorization.
func (s *Service) Policy(ctx context.Context) (PolicyMatrix, error) {
	grants, err := authorization.Grants(s.db.WithContext(ctx), authorization.Filter{})
	if err != nil {
		return nil, err
	}

	m := PolicyMatrix{}

	for _, g := range grants {
		perms, ok := m[g.RoleCode]
		if !ok {
			perms = map[string][]string{}
			m[g.RoleCode] = perms
		}

		menus := perms[g.PermissionCode]
		if menus == nil {
			menus = []string{}
		}

		if g.MenuCode != nil && !slices.Contains(menus, *g.MenuCode) {
			menus = append(menus, *g.MenuCode)
			slices.Sort(menus)
		}

		perms[g.PermissionCode] = menus
	}

	return m, nil
}

// PermissionDependency lists what references one live permission.
type PermissionDependency struct {
	PermissionID   uint64   `json:"permissionId"`
	Code           string   `json:"code"`
	Roles          []string `json:"roles"`
	Menus          []string `json:"menus"`
	Authorizations int      `json:"authorizations"`
}

// PermissionsDependencies returns, per live permission, the roles and menus of its live authorizations.
func (s *Service) PermissionsDependencies(ctx context.Context) ([]PermissionDependency, error) {
	db := s.db.WithContext(ctx)

	perms, err := permission.ListAll(db)
	if err != nil {
		return nil, err
	}

	grants, err := authorization.Grants(db, authorization.Filter{})
	if err != nil {
		return nil, err
	}

	out := make([]PermissionDependency, 0, len(perms))
	index := make(map[uint64]int, len(perms))

	for _, p := range perms {
		index[p.ID] = len(out)
		out = append(out, PermissionDependency{PermissionID: p.ID, Code: p.Code, Roles: []string{}, Menus: []string{}})
	}

	for _, g := range grants {
		i, ok := index[g.PermissionID]
		if !ok {
			continue
		}

		d := &out[i]
		d.Authorizations++

		if !slices.Contains(d.Roles, g.RoleCode) {
			d.Roles = append(d.Roles, g.RoleCode)
		}

		if g.MenuCode != nil && !slices.Contains(d.Menus, *g.MenuCode) {
			d.Menus = append(d.Menus, *g.MenuCode)
		}
	}

	for i := range out {
		slices.Sort(out[i].Roles)
		slices.Sort(out[i].Menus)
	}

	return out, nil
}
