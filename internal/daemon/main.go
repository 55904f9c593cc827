// Package daemon wires configuration, storage and the engine components into
// the running service.
package daemon

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/scopeguard/scopeguard/internal/access/aggregate"
	"github.com/scopeguard/scopeguard/internal/access/field"
	"github.com/scopeguard/scopeguard/internal/assignment"
	"github.com/scopeguard/scopeguard/internal/audit"
	"github.com/scopeguard/scopeguard/internal/catalog"
	"github.com/scopeguard/scopeguard/internal/config"
	"github.com/scopeguard/scopeguard/internal/db"
	"github.com/scopeguard/scopeguard/internal/web"
	"github.com/scopeguard/scopeguard/internal/web/handler"
)

// ErrConfigNil is returned by New without a config.
var ErrConfigNil = errors.New("config is nil")

// Daemon represents the main application daemon.
type Daemon struct {
	cfg *config.Config
	db  *gorm.DB

	Catalog     *catalog.Catalog
	Aggregator  *aggregate.Aggregator
	Assignments *assignment.Store
	Fields      *field.Resolver
	Audit       *audit.Log
}

// New opens and migrates the database and builds the engine components.
func New(cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}

	gdb, err := db.Open(cfg)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	if err = db.Migrate(gdb); err != nil {
		_ = db.Close(gdb)
		return nil, err //nolint:wrapcheck
	}

	d := &Daemon{
		cfg:        cfg,
		db:         gdb,
		Catalog:    catalog.New(gdb),
		Aggregator: aggregate.New(gdb, aggregate.Options{CacheSize: cfg.Access.CacheSize, CacheTTL: cfg.Access.CacheTTL}),
		Audit:      audit.New(gdb),
	}

	d.Assignments = assignment.New(gdb, assignment.Config{
		Catalog:          d.Catalog,
		Audit:            d.Audit,
		Invalidator:      d.Aggregator,
		EnforceConflicts: cfg.Access.EnforceConflicts,
		HistoryLimit:     cfg.Access.HistoryLimit,
		BulkConcurrency:  cfg.Access.BulkConcurrency,
	})

	d.Fields = field.NewResolver(field.Masker{
		Marker:       cfg.Access.RedactionMarker,
		RevealLength: cfg.Access.PartialRevealLength,
		Granularity:  cfg.Access.CurrencyGranularity,
	}, d.Audit)

	log.Info().Str("engine", cfg.DB.Engine).Msg("database ready")

	return d, nil
}

// DB returns the opened database.
func (d *Daemon) DB() *gorm.DB {
	return d.db
}

// Start serves the web API and, when enabled, the expiry sweeper until a
// shutdown signal arrives.
func (d *Daemon) Start() error {
	defer d.Close()

	if d.cfg.Sweeper.Enabled {
		sw, err := assignment.NewSweeper(d.Assignments, d.cfg.Sweeper.Schedule)
		if err != nil {
			return err //nolint:wrapcheck
		}

		sw.Start()
		defer sw.Stop()
	}

	webService := web.New(d.cfg, &handler.Deps{
		Catalog:     d.Catalog,
		Aggregator:  d.Aggregator,
		Assignments: d.Assignments,
		Fields:      d.Fields,
	})

	go webService.WaitShutdown()

	return webService.Start(fmt.Sprintf(":%d", d.cfg.Webserver.Port))
}

// Expire runs one expiry sweep.
func (d *Daemon) Expire(ctx context.Context) (int, error) {
	return d.Assignments.ExpireDue(ctx, d.Assignments.Now()) //nolint:wrapcheck
}

// Close releases the database.
func (d *Daemon) Close() {
	if err := db.Close(d.db); err != nil {
		log.Error().Err(err).Msg("failed to close database")
	}
}
