package dsn

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/accessd/accessd/internal/config"
)

func TestCreate(t *testing.T) {
	cfg := &config.Config{DB: config.DB{
		User: "accessd", Password: "secret", Host: "db", Port: 3306, Name: "rbac", Extras: "parseTime=true",
	}}

	assert.Equal(t, "accessd:secret@tcp(db:3306)/rbac?parseTime=true", Create(cfg))
}

func TestPostgres(t *testing.T) {
	testCases := []struct {
		name   string
		extras string
		want   string
	}{
		{"no extras", "", "host=db port=5432 user=accessd password=secret dbname=rbac"},
		{"query style extras", "sslmode=disable&TimeZone=UTC", "host=db port=5432 user=accessd password=secret dbname=rbac sslmode=disable TimeZone=UTC"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &config.Config{DB: config.DB{
				User: "accessd", Password: "secret", Host: "db", Port: 5432, Name: "rbac", Extras: tc.extras,
			}}

			assert.Equal(t, tc.want, Postgres(cfg))
		})
	}
}

func TestSQLite(t *testing.T) {
	assert.Equal(t, ":memory:", SQLite(&config.Config{}))
	assert.Equal(t, "/var/lib/accessd.db", SQLite(&config.Config{DB: config.DB{Path: "/var/lib/accessd.db"}}))
}
