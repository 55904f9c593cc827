package assignment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/scopeguard/scopeguard/internal/access"
	"github.com/scopeguard/scopeguard/internal/audit"
	"github.com/scopeguard/scopeguard/internal/db/models"
)

type (
	// BulkInput assigns one role to many users.
	BulkInput struct {
		TenantID   string   `json:"tenant_id"   validate:"required,max=64"`
		UserIDs    []uint64 `json:"user_ids"    validate:"required,min=1,max=1000,unique,dive,required"`
		ModuleCode string   `json:"module_code" validate:"required,max=64"`
		RoleID     uint     `json:"role_id"     validate:"required"`
		AssignedBy string   `json:"assigned_by" validate:"required,max=100"`
	}

	// Result is the outcome for one user of a bulk assignment.
	Result struct {
		UserID     uint64                 `json:"user_id"`
		Assignment *models.RoleAssignment `json:"assignment,omitempty"`
		Error      string                 `json:"error,omitempty"`
		Kind       access.Kind            `json:"-"`
	}

	// BulkResult reports every user of a batch in input order.
	BulkResult struct {
		BatchID         string   `json:"batch_id"`
		Results         []Result `json:"results"`
		SuccessfulCount int      `json:"successful_count"`
		FailedCount     int      `json:"failed_count"`
	}
)

// BulkAssign assigns the role to every listed user. Users are processed
// independently: a failure for one never rolls back the others.
func (s *Store) BulkAssign(ctx context.Context, in BulkInput) (*BulkResult, error) {
	const op = "bulk"

	if err := s.check(in); err != nil {
		return nil, failed(op, err, in.TenantID, 0)
	}

	res := &BulkResult{
		BatchID: uuid.NewString(),
		Results: make([]Result, len(in.UserIDs)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.BulkConcurrency)

	for i, userID := range in.UserIDs {
		i, userID := i, userID

		g.Go(func() error {
			r := Result{UserID: userID}

			a, err := s.Assign(gctx, AssignInput{
				TenantID:   in.TenantID,
				UserID:     userID,
				ModuleCode: in.ModuleCode,
				RoleID:     in.RoleID,
				AssignedBy: in.AssignedBy,
			})
			if err != nil {
				r.Error = err.Error()
				r.Kind = access.KindOf(err)
			} else {
				r.Assignment = a
			}

			res.Results[i] = r

			// per-user failures are reported, never propagated
			return nil
		})
	}

	_ = g.Wait()

	for _, r := range res.Results {
		if r.Error == "" {
			res.SuccessfulCount++
		} else {
			res.FailedCount++
		}
	}

	if err := s.cfg.Audit.Record(ctx, nil, audit.Entry{
		TenantID:     in.TenantID,
		Actor:        in.AssignedBy,
		Action:       audit.ActionAssignmentBulk,
		ResourceType: audit.ResourceBatch,
		ResourceID:   res.BatchID,
		Details: map[string]any{
			"module_code":      in.ModuleCode,
			"role_id":          in.RoleID,
			"user_count":       len(in.UserIDs),
			"successful_count": res.SuccessfulCount,
			"failed_count":     res.FailedCount,
		},
		PerformedAt: s.now(),
	}); err != nil {
		return res, failed(op, fmt.Errorf("record batch %s: %w", res.BatchID, err), in.TenantID, 0)
	}

	log.Info().
		Str("batch", res.BatchID).
		Str("tenant", in.TenantID).
		Str("module", in.ModuleCode).
		Int("ok", res.SuccessfulCount).
		Int("failed", res.FailedCount).
		Msg("bulk assignment finished")

	return res, nil
}
