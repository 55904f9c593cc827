// Package assignment serves the role assignment routes.
package assignment

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	store "github.com/scopeguard/scopeguard/internal/assignment"
	"github.com/scopeguard/scopeguard/internal/web/handler"
)

const (
	// RolePath is the user's role in one module.
	RolePath = "/modules/:module/role"
	// TemporaryPath creates time boxed grants.
	TemporaryPath = "/modules/:module/temporary"
	// HistoryPath lists every assignment of the user.
	HistoryPath = "/role-history"
	// BulkPath assigns one role to many users.
	BulkPath = "/modules/:module/bulk-assign"
)

type (
	// AssignRequest is the body of POST RolePath.
	AssignRequest struct {
		RoleID     uint       `json:"role_id"     validate:"required"`
		ValidFrom  *time.Time `json:"valid_from"`
		ValidUntil *time.Time `json:"valid_until"`
	}

	// UpdateRequest is the body of PUT RolePath.
	UpdateRequest struct {
		RoleID     uint       `json:"role_id"     validate:"required"`
		ValidUntil *time.Time `json:"valid_until"`
	}

	// TemporaryRequest is the body of POST TemporaryPath.
	TemporaryRequest struct {
		RoleID        uint   `json:"role_id"        validate:"required"`
		DurationHours int    `json:"duration_hours" validate:"required"`
		Reason        string `json:"reason"         validate:"max=500"`
	}

	// BulkRequest is the body of POST BulkPath.
	BulkRequest struct {
		RoleID  uint     `json:"role_id"  validate:"required"`
		UserIDs []uint64 `json:"user_ids" validate:"required,min=1"`
	}

	// BulkResultView is one user's line of a bulk response.
	BulkResultView struct {
		UserID     uint64                  `json:"user_id"`
		Success    bool                    `json:"success"`
		Assignment *handler.AssignmentView `json:"assignment,omitempty"`
		Error      string                  `json:"error,omitempty"`
		Kind       string                  `json:"kind,omitempty"`
	}

	// BulkResponse is the body answered by BulkPath.
	BulkResponse struct {
		BatchID         string           `json:"batch_id"`
		Results         []BulkResultView `json:"results"`
		SuccessfulCount int              `json:"successful_count"`
		FailedCount     int              `json:"failed_count"`
		AuditError      string           `json:"audit_error,omitempty"`
	}
)

// Service is the role assignment handler service.
type Service struct {
	handler.Service
	store     *store.Store
	validator *validator.Validate
}

// Handler is the role assignment handler.
var Handler = Service{} //nolint:gochecknoglobals

// Init registers the assignment routes below router, which must be the tenant group.
func (s *Service) Init(router fiber.Router, deps *handler.Deps) error {
	if router == nil || deps == nil || deps.Assignments == nil {
		return errors.New(handler.ErrNilDepsFatalLogMsg)
	}

	s.store = deps.Assignments
	s.validator = validator.New()

	router.Route(handler.UserPath, func(user fiber.Router) {
		user.Post(RolePath, s.Assign)
		user.Put(RolePath, s.Update)
		user.Delete(RolePath, s.Remove)
		user.Post(TemporaryPath, s.Temporary)
		user.Get(HistoryPath, s.History)
	})
	router.Post(BulkPath, s.Bulk)

	return nil
}

// Assign handles POST RolePath.
func (s *Service) Assign(c *fiber.Ctx) error {
	tenant, userID, err := target(c)
	if err != nil {
		return err
	}

	req := new(AssignRequest)
	if err = handler.Bind(c, s.validator, req); err != nil {
		return err
	}

	a, err := s.store.Assign(c.UserContext(), store.AssignInput{
		TenantID:   tenant,
		UserID:     userID,
		ModuleCode: c.Params("module"),
		RoleID:     req.RoleID,
		AssignedBy: handler.Actor(c),
		ValidFrom:  req.ValidFrom,
		ValidUntil: req.ValidUntil,
	})
	if err != nil {
		return err //nolint:wrapcheck
	}

	return c.Status(fiber.StatusCreated).JSON(handler.NewAssignmentView(a))
}

// Update handles PUT RolePath.
func (s *Service) Update(c *fiber.Ctx) error {
	tenant, userID, err := target(c)
	if err != nil {
		return err
	}

	req := new(UpdateRequest)
	if err = handler.Bind(c, s.validator, req); err != nil {
		return err
	}

	a, err := s.store.Update(c.UserContext(), store.UpdateInput{
		TenantID:   tenant,
		UserID:     userID,
		ModuleCode: c.Params("module"),
		RoleID:     req.RoleID,
		AssignedBy: handler.Actor(c),
		ValidUntil: req.ValidUntil,
	})
	if err != nil {
		return err //nolint:wrapcheck
	}

	return c.JSON(handler.NewAssignmentView(a))
}

// Remove handles DELETE RolePath.
func (s *Service) Remove(c *fiber.Ctx) error {
	tenant, userID, err := target(c)
	if err != nil {
		return err
	}

	if err = s.store.Remove(c.UserContext(), tenant, userID, c.Params("module"), handler.Actor(c)); err != nil {
		return err //nolint:wrapcheck
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Temporary handles POST TemporaryPath.
func (s *Service) Temporary(c *fiber.Ctx) error {
	tenant, userID, err := target(c)
	if err != nil {
		return err
	}

	req := new(TemporaryRequest)
	if err = handler.Bind(c, s.validator, req); err != nil {
		return err
	}

	a, err := s.store.CreateTemporary(c.UserContext(), store.TemporaryInput{
		TenantID:      tenant,
		UserID:        userID,
		ModuleCode:    c.Params("module"),
		RoleID:        req.RoleID,
		AssignedBy:    handler.Actor(c),
		DurationHours: req.DurationHours,
		Reason:        req.Reason,
	})
	if err != nil {
		return err //nolint:wrapcheck
	}

	return c.Status(fiber.StatusCreated).JSON(handler.NewAssignmentView(a))
}

// History handles GET HistoryPath. The optional limit query caps the rows.
func (s *Service) History(c *fiber.Ctx) error {
	tenant, userID, err := target(c)
	if err != nil {
		return err
	}

	rows, err := s.store.History(c.UserContext(), tenant, userID, c.QueryInt("limit", 0))
	if err != nil {
		return err //nolint:wrapcheck
	}

	return c.JSON(handler.NewAssignmentViews(rows))
}

// Bulk handles POST BulkPath. Per-user failures are part of the 200 answer.
func (s *Service) Bulk(c *fiber.Ctx) error {
	tenant, err := handler.Tenant(c)
	if err != nil {
		return err //nolint:wrapcheck
	}

	req := new(BulkRequest)
	if err = handler.Bind(c, s.validator, req); err != nil {
		return err //nolint:wrapcheck
	}

	res, err := s.store.BulkAssign(c.UserContext(), store.BulkInput{
		TenantID:   tenant,
		UserIDs:    req.UserIDs,
		ModuleCode: c.Params("module"),
		RoleID:     req.RoleID,
		AssignedBy: handler.Actor(c),
	})
	if res == nil {
		return err //nolint:wrapcheck
	}

	out := BulkResponse{
		BatchID:         res.BatchID,
		Results:         make([]BulkResultView, 0, len(res.Results)),
		SuccessfulCount: res.SuccessfulCount,
		FailedCount:     res.FailedCount,
	}

	// the assignments are committed; only the batch record is missing
	if err != nil {
		out.AuditError = err.Error()
	}

	for _, r := range res.Results {
		line := BulkResultView{UserID: r.UserID, Success: r.Error == ""}

		if r.Assignment != nil {
			v := handler.NewAssignmentView(r.Assignment)
			line.Assignment = &v
		} else {
			line.Error = r.Error
			line.Kind = r.Kind.String()
		}

		out.Results = append(out.Results, line)
	}

	return c.JSON(out)
}

func target(c *fiber.Ctx) (string, uint64, error) {
	tenant, err := handler.Tenant(c)
	if err != nil {
		return "", 0, err //nolint:wrapcheck
	}

	userID, err := handler.UserID(c)
	if err != nil {
		return "", 0, err //nolint:wrapcheck
	}

	return tenant, userID, nil
}
