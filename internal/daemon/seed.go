package daemon

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/scopeguard/scopeguard/internal/catalog"
)

// ErrNoCatalogFile is returned by Seed when the config names no catalog file.
var ErrNoCatalogFile = errors.New("config CatalogFile is empty")

// Seed loads the configured catalog file.
func (d *Daemon) Seed(ctx context.Context) (catalog.Summary, error) {
	if d.cfg.CatalogFile == "" {
		return catalog.Summary{}, ErrNoCatalogFile
	}

	summary, err := catalog.SeedFile(ctx, d.db, d.cfg.CatalogFile)
	if err != nil {
		return summary, err //nolint:wrapcheck
	}

	// cached sets may reference replaced rules
	d.Aggregator.Purge()

	log.Debug().Str("file", d.cfg.CatalogFile).Msg("effective set cache purged")

	return summary, nil
}
