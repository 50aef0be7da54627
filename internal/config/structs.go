package config

import (
	"time"

	"github.com/accessd/accessd/internal/logger"
)

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Redis     Redis
	Cache     Cache
	Authz     Authz
	Seed      Seed
	Log       logger.Log
	Title     string
	Webserver Webserver
}

// Webserver implement webserver settings.
type Webserver struct {
	DisableRecover  bool          // disable recover middleware
	Port            int           // listening port for the webserver
	ShutDownTime    int           // wait time for shutdown
	URL             string        // base url for the webserver
	CheckAliveURI   string        // liveness probe path
	PrincipalHeader string        // header carrying the authenticated numeric user id
	ReadTimeout     time.Duration // fiber read timeout
	WriteTimeout    time.Duration // fiber write timeout
}

// Cache holds the authorization cache settings.
type Cache struct {
	Backend string        // memory or redis
	Size    int           // max entries of the memory backend
	TTL     time.Duration // optional expiry of redis entries, 0 keeps entries until invalidated
}

// Authz holds the decision engine settings.
type Authz struct {
	// AdminRoleCodes are the role codes treated as administrators when they are system roles.
	AdminRoleCodes []string
	// AdminMaxLevel is the highest level number still considered administrative.
	AdminMaxLevel int
	// SuperAdminRoleCode is the code of the highest-privilege role.
	SuperAdminRoleCode string
}

// Seed holds the bootstrap data settings.
type Seed struct {
	Enabled        bool // seed on daemon start
	AdminUsername  string
	AdminEmail     string
	AdminFirstName string
	AdminLastName  string
}
