package assignment

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/scopeguard/scopeguard/internal/access"
	"github.com/scopeguard/scopeguard/internal/audit"
	"github.com/scopeguard/scopeguard/internal/db/models"
	"github.com/scopeguard/scopeguard/internal/metrics"
)

// ExpireDue deactivates every active assignment whose validity ended at or
// before now and returns how many it deactivated. Rows a concurrent writer
// deactivated first are skipped, so repeated calls are safe.
func (s *Store) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	start := time.Now()
	defer func() {
		metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}()

	now = now.UTC()

	var due []models.RoleAssignment
	if err := s.db.WithContext(ctx).
		Where("is_active = ? AND valid_until IS NOT NULL AND valid_until <= ?", true, now).
		Order("id").
		Find(&due).Error; err != nil {
		return 0, failed("expire", access.Internal(err, "list due assignments"), "", 0)
	}

	expired := 0

	for i := range due {
		if err := ctx.Err(); err != nil {
			return expired, err //nolint:wrapcheck
		}

		a := &due[i]

		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return s.deactivate(ctx, tx, a, audit.SystemActor, models.ReasonExpired, now)
		})

		switch {
		case err == nil:
			expired++

			s.committed("expire", a.TenantID, a.UserID)
			metrics.ExpiredAssignments.Inc()
		case errors.Is(err, access.ErrConflict):
			log.Debug().Uint64("assignment", a.ID).Msg("assignment already deactivated")
		default:
			return expired, failed("expire", err, a.TenantID, a.UserID)
		}
	}

	if expired > 0 {
		log.Info().Int("expired", expired).Time("now", now).Msg("expired role assignments")
	}

	return expired, nil
}

// Sweeper runs ExpireDue on a cron schedule.
type Sweeper struct {
	store    *Store
	cron     *cron.Cron
	schedule string
}

// NewSweeper schedules the store's expiry on schedule, a standard cron spec
// or a descriptor such as "@every 1m".
func NewSweeper(store *Store, schedule string) (*Sweeper, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	sw := &Sweeper{store: store, cron: c, schedule: schedule}

	if _, err := c.AddFunc(schedule, sw.run); err != nil {
		return nil, errors.Join(access.ErrValidation, err)
	}

	return sw, nil
}

func (sw *Sweeper) run() {
	if _, err := sw.store.ExpireDue(context.Background(), sw.store.now()); err != nil {
		log.Error().Err(err).Msg("expiry sweep failed")
	}
}

// Start begins the schedule in its own goroutine.
func (sw *Sweeper) Start() {
	sw.cron.Start()
	log.Info().Str("schedule", sw.schedule).Msg("expiry sweeper started")
}

// Stop halts the schedule and waits for a running sweep to finish.
func (sw *Sweeper) Stop() {
	<-sw.cron.Stop().Done()
	log.Info().Msg("expiry sweeper stopped")
}
