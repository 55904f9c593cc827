// Package dsn provides Data Source Name construction utilities for database connections.
package dsn

import (
	"fmt"
	"strings"

	"github.com/scopeguard/scopeguard/internal/config"
)

// SQLitePragmas are appended to every sqlite DSN.
const SQLitePragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// Create builds the Data Source Name for the configured engine.
// Extras are appended verbatim for mysql (query string) and postgres (key=value pairs).
func Create(dbCfg *config.Config) (string, error) {
	switch dbCfg.DB.Engine {
	case config.EngineSQLite, "":
		return sqlite(dbCfg.DB.Path), nil
	case config.EngineMySQL:
		out := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s",
			dbCfg.DB.User,
			dbCfg.DB.Password,
			dbCfg.DB.Host,
			dbCfg.DB.Port,
			dbCfg.DB.Name,
		)

		if dbCfg.DB.Extras != "" {
			out += "?" + dbCfg.DB.Extras
		}

		return out, nil
	case config.EnginePostgres:
		out := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
			dbCfg.DB.Host,
			dbCfg.DB.Port,
			dbCfg.DB.User,
			dbCfg.DB.Password,
			dbCfg.DB.Name,
		)

		if dbCfg.DB.Extras != "" {
			out += " " + dbCfg.DB.Extras
		}

		return out, nil
	default:
		return "", fmt.Errorf("%w: %s", config.ErrUnknownDBEngine, dbCfg.DB.Engine)
	}
}

func sqlite(path string) string {
	if path == "" {
		path = ":memory:"
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}

	return path + sep + SQLitePragmas
}
