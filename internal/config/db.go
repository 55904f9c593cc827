package config

// Supported gorm engines.
const (
	EngineSQLite   = "sqlite"
	EngineMySQL    = "mysql"
	EnginePostgres = "postgres"
)

// DB holds the database configuration settings.
type DB struct {
	Engine   string // sqlite, mysql or postgres
	Path     string // database file for sqlite, ":memory:" allowed
	Extras   string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	MaxConns int
}
