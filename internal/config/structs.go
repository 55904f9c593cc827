package config

import (
	"time"

	"github.com/scopeguard/scopeguard/internal/logger"
)

// Config overall data structure.
type Config struct {
	DevMode     bool   // enable dev mode for development
	Title       string // service title shown in logs and /checkalive
	CatalogFile string // role catalog seed file, relative to the config dir when not absolute
	DB          DB
	Log         logger.Log
	Webserver   Webserver
	Sweeper     Sweeper
	Access      Access
}

// Webserver implement webserver settings.
type Webserver struct {
	Port           int    // listening port for the webserver
	URL            string // base url for the webserver
	ShutDownTime   int    // wait time for shutdown in seconds
	ReadBufferSize int    // fiber read buffer size
}

// Sweeper holds the expiry sweeper schedule.
type Sweeper struct {
	Enabled  bool   // run the sweeper inside the start command
	Schedule string // cron spec, e.g. "@every 1m"
}

// Access tunes the decision engine.
type Access struct {
	CacheSize           int           // max cached effective permission sets, 0 disables the cache
	CacheTTL            time.Duration // upper bound for a cached set's lifetime
	EnforceConflicts    bool          // reject assignments incompatible with another active one
	RedactionMarker     string        // fixed marker used by the redact strategy
	PartialRevealLength int           // trailing characters kept by partial-reveal
	CurrencyGranularity float64       // rounding step of currency-round
	HistoryLimit        int           // default number of history rows
	BulkConcurrency     int           // parallel per-user units of a bulk assign
}
