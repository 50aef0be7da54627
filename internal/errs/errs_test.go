package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want Kind
	}{
		{"plain error is internal", errors.New("boom"), Internal},
		{"tagged", E(NotFound, "role.Get", "role 4 not found"), NotFound},
		{"wrapped tagged", fmt.Errorf("outer: %w", E(Conflict, "role.Create", nil)), Conflict},
		{"formatted", Errorf(Constraint, "role.Delete", "%d live authorizations", 3), Constraint},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, KindOf(tc.err))
		})
	}
}

func TestSentinels(t *testing.T) {
	err := fmt.Errorf("create: %w", E(Conflict, "authorization.Create", "duplicate grant"))

	require.ErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.True(t, Is(err, Conflict))
	assert.False(t, Is(nil, Conflict))
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "menu.Get: menu 3 not found", E(NotFound, "menu.Get", "menu 3 not found").Error())
	assert.Equal(t, "menu.Get: not_found", E(NotFound, "menu.Get", nil).Error())
	assert.Equal(t, "cache", ErrCache.Error())
	assert.Equal(t, "protected_entity", ProtectedEntity.String())
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := E(Cache, "cache.Flush", cause)

	require.ErrorIs(t, err, cause)
}
