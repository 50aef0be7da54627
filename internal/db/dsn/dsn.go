// Package dsn provides Data Source Name construction utilities for database connections.
package dsn

import (
	"fmt"
	"strings"

	"github.com/accessd/accessd/internal/config"
)

// Create builds the MySQL Data Source Name from the configuration.
func Create(dbCfg *config.Config) string {
	out := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		dbCfg.DB.User,
		dbCfg.DB.Password,
		dbCfg.DB.Host,
		dbCfg.DB.Port,
		dbCfg.DB.Name,
		dbCfg.DB.Extras,
	)

	return out
}

// Postgres builds the key=value Data Source Name understood by pgx.
// DB.Extras is appended as given, e.g. "sslmode=disable TimeZone=UTC".
func Postgres(dbCfg *config.Config) string {
	parts := []string{
		"host=" + dbCfg.DB.Host,
		fmt.Sprintf("port=%d", dbCfg.DB.Port),
		"user=" + dbCfg.DB.User,
		"password=" + dbCfg.DB.Password,
		"dbname=" + dbCfg.DB.Name,
	}

	if dbCfg.DB.Extras != "" {
		parts = append(parts, strings.ReplaceAll(dbCfg.DB.Extras, "&", " "))
	}

	return strings.Join(parts, " ")
}

// SQLite returns the database file path, ":memory:" when none is configured.
func SQLite(dbCfg *config.Config) string {
	if dbCfg.DB.Path == "" {
		return ":memory:"
	}

	return dbCfg.DB.Path
}
