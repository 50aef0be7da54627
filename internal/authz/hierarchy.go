package authz

import (
	"context"
	"sort"

	"gorm.io/gorm"

	"github.com/accessd/accessd/internal/authz/cache"
	"github.com/accessd/accessd/internal/db/controller/role"
	"github.com/accessd/accessd/internal/db/models"
	"github.com/accessd/accessd/internal/errs"
)

type node struct {
	ref      cache.RoleRef
	parentID uint64
	children []uint64
}

// Hierarchy is an arena of live roles indexed by id.
// A parent reference to a role that is not live makes the role a root.
type Hierarchy struct {
	nodes map[uint64]*node
	roots []uint64
}

// RoleNode is one role of the hierarchy tree.
type RoleNode struct {
	cache.RoleRef
	ParentID *uint64     `json:"parentId,omitempty"`
	Children []*RoleNode `json:"children"`
}

func refOf(r *models.Role) cache.RoleRef {
	return cache.RoleRef{ID: r.ID, Code: r.Code, Label: r.Label, Level: r.Level, IsSystem: r.IsSystem}
}

// byAuthority orders roles by level, then id.
func byAuthority(a, b cache.RoleRef) bool {
	if a.Level != b.Level {
		return a.Level < b.Level
	}

	return a.ID < b.ID
}

// LoadHierarchy builds the hierarchy of every live role.
func LoadHierarchy(ctx context.Context, db *gorm.DB) (*Hierarchy, error) {
	roles, err := role.ListAll(db.WithContext(ctx))
	if err != nil {
		return nil, err
	}

	return NewHierarchy(roles)
}

// NewHierarchy builds the arena and fails with a Constraint error when the parent
// references contain a cycle.
func NewHierarchy(roles []models.Role) (*Hierarchy, error) {
	h := &Hierarchy{nodes: make(map[uint64]*node, len(roles))}

	for i := range roles {
		n := &node{ref: refOf(&roles[i])}
		if roles[i].ParentID != nil {
			n.parentID = *roles[i].ParentID
		}

		h.nodes[n.ref.ID] = n
	}

	for id, n := range h.nodes {
		parent, ok := h.nodes[n.parentID]
		if !ok {
			n.parentID = 0
			h.roots = append(h.roots, id)

			continue
		}

		parent.children = append(parent.children, id)
	}

	for _, n := range h.nodes {
		sort.Slice(n.children, func(i, j int) bool {
			return byAuthority(h.nodes[n.children[i]].ref, h.nodes[n.children[j]].ref)
		})
	}

	sort.Slice(h.roots, func(i, j int) bool { return byAuthority(h.nodes[h.roots[i]].ref, h.nodes[h.roots[j]].ref) })

	if err := h.checkCycles(); err != nil {
		return nil, err
	}

	return h, nil
}

// checkCycles fails if a role is reachable from itself through parent references.
// Roles on a cycle are never reachable from a root, so the walk from the roots must see every node.
func (h *Hierarchy) checkCycles() error {
	seen := make(map[uint64]bool, len(h.nodes))
	stack := append([]uint64(nil), h.roots...)

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		seen[id] = true
		stack = append(stack, h.nodes[id].children...)
	}

	if len(seen) == len(h.nodes) {
		return nil
	}

	var onCycle []uint64

	for id := range h.nodes {
		if !seen[id] {
			onCycle = append(onCycle, id)
		}
	}

	sort.Slice(onCycle, func(i, j int) bool { return onCycle[i] < onCycle[j] })

	return errs.Errorf(errs.Constraint, "hierarchy", "role hierarchy contains a cycle through roles %v", onCycle)
}

// Len returns the number of roles.
func (h *Hierarchy) Len() int {
	return len(h.nodes)
}

// Role returns the live role with the given id.
func (h *Hierarchy) Role(id uint64) (cache.RoleRef, bool) {
	n, ok := h.nodes[id]
	if !ok {
		return cache.RoleRef{}, false
	}

	return n.ref, true
}

// Ancestors returns the root-ward chain of id, nearest parent first.
func (h *Hierarchy) Ancestors(id uint64) ([]cache.RoleRef, error) {
	n, ok := h.nodes[id]
	if !ok {
		return nil, errs.Errorf(errs.NotFound, "hierarchy.Ancestors", "role %d not found", id)
	}

	out := []cache.RoleRef{}

	for p, ok := h.nodes[n.parentID]; ok; p, ok = h.nodes[p.parentID] {
		out = append(out, p.ref)
	}

	return out, nil
}

// Descendants returns the whole subtree below id, excluding id, ordered by level then id.
func (h *Hierarchy) Descendants(id uint64) ([]cache.RoleRef, error) {
	n, ok := h.nodes[id]
	if !ok {
		return nil, errs.Errorf(errs.NotFound, "hierarchy.Descendants", "role %d not found", id)
	}

	out := []cache.RoleRef{}
	stack := append([]uint64(nil), n.children...)

	for len(stack) > 0 {
		c := h.nodes[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]
		out = append(out, c.ref)
		stack = append(stack, c.children...)
	}

	sort.Slice(out, func(i, j int) bool { return byAuthority(out[i], out[j]) })

	return out, nil
}

// IsAncestor reports whether a is a strict ancestor of b.
func (h *Hierarchy) IsAncestor(a, b uint64) bool {
	n, ok := h.nodes[b]
	if !ok {
		return false
	}

	for p, ok := h.nodes[n.parentID]; ok; p, ok = h.nodes[p.parentID] {
		if p.ref.ID == a {
			return true
		}
	}

	return false
}

// Dominates reports whether a carries strictly more authority than b.
// Level decides when the levels differ, even against the tree; on equal levels the ancestor dominates.
func (h *Hierarchy) Dominates(a, b uint64) (bool, error) {
	na, ok := h.nodes[a]
	if !ok {
		return false, errs.Errorf(errs.NotFound, "hierarchy.Dominates", "role %d not found", a)
	}

	nb, ok := h.nodes[b]
	if !ok {
		return false, errs.Errorf(errs.NotFound, "hierarchy.Dominates", "role %d not found", b)
	}

	if na.ref.Level != nb.ref.Level {
		return na.ref.Level < nb.ref.Level, nil
	}

	return h.IsAncestor(a, b), nil
}

// Inherited returns the held roles and every role below them, ordered by level then id.
// Held ids that are not live are ignored.
func (h *Hierarchy) Inherited(held []uint64) []cache.RoleRef {
	seen := map[uint64]bool{}
	stack := make([]uint64, 0, len(held))

	for _, id := range held {
		if _, ok := h.nodes[id]; ok {
			stack = append(stack, id)
		}
	}

	out := []cache.RoleRef{}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if seen[id] {
			continue
		}

		seen[id] = true
		n := h.nodes[id]
		out = append(out, n.ref)
		stack = append(stack, n.children...)
	}

	sort.Slice(out, func(i, j int) bool { return byAuthority(out[i], out[j]) })

	return out
}

// Highest returns the role with the lowest level, equal levels resolving to the lowest id.
func Highest(roles []cache.RoleRef) *cache.RoleRef {
	if len(roles) == 0 {
		return nil
	}

	best := roles[0]
	for _, r := range roles[1:] {
		if byAuthority(r, best) {
			best = r
		}
	}

	return &best
}

// Tree returns the forest of roles, children ordered by level then id.
func (h *Hierarchy) Tree() []*RoleNode {
	var build func(id uint64) *RoleNode

	build = func(id uint64) *RoleNode {
		n := h.nodes[id]
		rn := &RoleNode{RoleRef: n.ref, Children: make([]*RoleNode, 0, len(n.children))}

		if n.parentID != 0 {
			parentID := n.parentID
			rn.ParentID = &parentID
		}

		for _, c := range n.children {
			rn.Children = append(rn.Children, build(c))
		}

		return rn
	}

	out := make([]*RoleNode, 0, len(h.roots))
	for _, id := range h.roots {
		out = append(out, build(id))
	}

	return out
}
