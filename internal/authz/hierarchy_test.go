package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accessd/accessd/internal/authz/cache"
	"github.com/accessd/accessd/internal/db/models"
	"github.com/accessd/accessd/internal/errs"
)

func testRole(id uint64, code string, level int, parent uint64) models.Role {
	r := models.Role{Code: code, Level: level}
	r.ID = id

	if parent != 0 {
		r.ParentID = &parent
	}

	return r
}

func ids(refs []cache.RoleRef) []uint64 {
	out := make([]uint64, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.ID)
	}

	return out
}

// root(1) > manager(2) > editor(3) > viewer(4), manager(2) > auditor(5).
// orphan(6) points at a role that is not live.
func testHierarchy(t *testing.T) *Hierarchy {
	t.Helper()

	h, err := NewHierarchy([]models.Role{
		testRole(1, "root", 0, 0),
		testRole(2, "manager", 1, 1),
		testRole(3, "editor", 2, 2),
		testRole(4, "viewer", 3, 3),
		testRole(5, "auditor", 2, 2),
		testRole(6, "orphan", 1, 42),
	})
	require.NoError(t, err)

	return h
}

func TestAncestors(t *testing.T) {
	h := testHierarchy(t)

	testCases := []struct {
		name string
		id   uint64
		want []uint64
	}{
		{"root has none", 1, []uint64{}},
		{"nearest first", 4, []uint64{3, 2, 1}},
		{"missing parent is a root", 6, []uint64{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := h.Ancestors(tc.id)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ids(got))
		})
	}

	_, err := h.Ancestors(99)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestDescendants(t *testing.T) {
	h := testHierarchy(t)

	got, err := h.Descendants(2)
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 5, 4}, ids(got), "ordered by level then id")

	got, err = h.Descendants(4)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = h.Descendants(99)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestInherited(t *testing.T) {
	h := testHierarchy(t)

	testCases := []struct {
		name string
		held []uint64
		want []uint64
	}{
		{"nothing held", nil, []uint64{}},
		{"leaf inherits nothing above it", []uint64{4}, []uint64{4}},
		{"subtree", []uint64{3}, []uint64{3, 4}},
		{"whole tree", []uint64{1}, []uint64{1, 2, 3, 5, 4}},
		{"overlapping holdings are deduplicated", []uint64{2, 3, 4}, []uint64{2, 3, 5, 4}},
		{"deleted roles are ignored", []uint64{99, 6}, []uint64{6}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ids(h.Inherited(tc.held)))
		})
	}
}

func TestDominates(t *testing.T) {
	h, err := NewHierarchy([]models.Role{
		testRole(1, "root", 0, 0),
		testRole(2, "lead", 2, 1),
		testRole(3, "peer", 2, 1),
		testRole(4, "nested", 2, 2),
		// nested below lead but with more authority by level
		testRole(5, "specialist", 1, 2),
	})
	require.NoError(t, err)

	testCases := []struct {
		name string
		a, b uint64
		want bool
	}{
		{"lower level dominates", 1, 2, true},
		{"higher level does not", 2, 1, false},
		{"equal level, ancestor dominates", 2, 4, true},
		{"equal level, descendant does not", 4, 2, false},
		{"equal level, unrelated", 2, 3, false},
		{"level wins over the tree", 5, 2, true},
		{"ancestor with higher level number does not", 2, 5, false},
		{"a role does not dominate itself", 2, 2, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := h.Dominates(tc.a, tc.b)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err = h.Dominates(1, 99)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestHighest(t *testing.T) {
	assert.Nil(t, Highest(nil))

	got := Highest([]cache.RoleRef{
		{ID: 9, Code: "z", Level: 2},
		{ID: 4, Code: "y", Level: 2},
		{ID: 7, Code: "x", Level: 3},
	})
	require.NotNil(t, got)
	assert.Equal(t, uint64(4), got.ID)
}

func TestCycleDetection(t *testing.T) {
	testCases := []struct {
		name  string
		roles []models.Role
	}{
		{"own parent", []models.Role{testRole(1, "self", 0, 1)}},
		{"two roles", []models.Role{testRole(1, "a", 0, 2), testRole(2, "b", 1, 1)}},
		{"cycle below a valid root", []models.Role{
			testRole(1, "root", 0, 0),
			testRole(2, "a", 1, 4),
			testRole(3, "b", 1, 2),
			testRole(4, "c", 1, 3),
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewHierarchy(tc.roles)
			require.ErrorIs(t, err, errs.ErrConstraint)
		})
	}
}

func TestTree(t *testing.T) {
	tree := testHierarchy(t).Tree()

	require.Len(t, tree, 2)
	assert.Equal(t, "root", tree[0].Code)
	assert.Nil(t, tree[0].ParentID)
	assert.Equal(t, "orphan", tree[1].Code)
	assert.Nil(t, tree[1].ParentID, "dangling parent is dropped")

	manager := tree[0].Children[0]
	assert.Equal(t, "manager", manager.Code)
	require.NotNil(t, manager.ParentID)
	assert.Equal(t, uint64(1), *manager.ParentID)
	require.Len(t, manager.Children, 2)
	assert.Equal(t, "editor", manager.Children[0].Code)
	assert.Equal(t, "auditor", manager.Children[1].Code)
	assert.Equal(t, "viewer", manager.Children[0].Children[0].Code)
}
