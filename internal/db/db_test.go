package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accessd/accessd/internal/config"
	"github.com/accessd/accessd/internal/db/models"
)

func TestOpenAndMigrate(t *testing.T) {
	cfg := &config.Config{DB: config.DB{GormEngine: config.EngineSQLite}}

	gdb, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, Migrate(gdb))

	for _, m := range models.All() {
		assert.True(t, gdb.Migrator().HasTable(m))
	}

	role := models.Role{Code: "viewer", Level: 3}
	require.NoError(t, gdb.Create(&role).Error)
	assert.NotZero(t, role.ID)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", role.UID.String())
}

func TestOpenUnknownEngine(t *testing.T) {
	_, err := Open(&config.Config{DB: config.DB{GormEngine: "oracle"}})
	require.ErrorIs(t, err, config.ErrUnknownGormEngine)
}
