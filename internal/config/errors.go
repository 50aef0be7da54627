package config

import (
	"errors"
)

var (
	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("toml config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("toml config webserver.port listening port can not be 0")

	// ErrUnknownGormEngine error if config db.gormEngine is not one of mysql, postgres or sqlite.
	ErrUnknownGormEngine = errors.New("toml config db.gormEngine must be mysql, postgres or sqlite")

	// ErrUnknownCacheBackend error if config cache.backend is not memory or redis.
	ErrUnknownCacheBackend = errors.New("toml config cache.backend must be memory or redis")

	// ErrRedisAddrEmpty error if the redis cache backend is selected without an address.
	ErrRedisAddrEmpty = errors.New("toml config redis.addr can not be empty with cache.backend redis")

	// ErrNegativeAdminLevel error if config authz.adminMaxLevel is negative.
	ErrNegativeAdminLevel = errors.New("toml config authz.adminMaxLevel can not be negative")
)
