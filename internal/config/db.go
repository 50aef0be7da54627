package config

// DB holds the database configuration settings.
type DB struct {
	Extras     string
	Host       string
	Port       int
	User       string
	Password   string
	Name       string
	GormEngine string // mysql, postgres or sqlite
	Path       string // sqlite file, ":memory:" for an ephemeral database
	Debug      bool   // log every statement at debug level
}

// Redis holds the connection settings of the shared authorization cache.
type Redis struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}
