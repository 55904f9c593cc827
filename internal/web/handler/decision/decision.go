// Package decision serves the read side of the engine: the effective
// permission set and scope and field decisions.
package decision

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/scopeguard/scopeguard/internal/access"
	"github.com/scopeguard/scopeguard/internal/access/aggregate"
	"github.com/scopeguard/scopeguard/internal/access/field"
	"github.com/scopeguard/scopeguard/internal/access/scope"
	"github.com/scopeguard/scopeguard/internal/assignment"
	"github.com/scopeguard/scopeguard/internal/catalog"
	"github.com/scopeguard/scopeguard/internal/web/handler"
)

const (
	// EffectivePath renders the effective permission set.
	EffectivePath = "/effective-permissions"
	// ScopePath resolves a data scope.
	ScopePath = "/scope"
	// FieldsPath resolves the fields of a record.
	FieldsPath = "/fields"
)

type (
	// PermissionView is one held permission with its levels.
	PermissionView struct {
		Permission string          `json:"permission"`
		Resource   string          `json:"resource"`
		Action     string          `json:"action"`
		Scopes     access.ScopeSet `json:"scopes"`
	}

	// EffectiveResponse is the body answered by EffectivePath.
	EffectiveResponse struct {
		*access.EffectivePermissionSet
		Permissions []PermissionView               `json:"permissions"`
		FieldGrants map[string][]access.FieldGrant `json:"field_grants"`
		Active      []handler.AssignmentView       `json:"active_assignments"`
	}

	// ScopeRequest is the body of ScopePath. Level picks one granted level
	// instead of the broadest.
	ScopeRequest struct {
		Resource string `json:"resource" validate:"required,max=100"`
		Action   string `json:"action"   validate:"required,max=50"`
		Level    string `json:"level"    validate:"omitempty,oneof=none own team department tenant global"`
	}

	// ScopeResponse is the body answered by ScopePath.
	ScopeResponse struct {
		Decision scope.Decision `json:"decision"`
		Filter   scope.Filter   `json:"filter"`
		Subject  scope.Subject  `json:"subject"`
	}

	// FieldsRequest is the body of FieldsPath.
	FieldsRequest struct {
		Resource string         `json:"resource"  validate:"required,max=100"`
		RecordID string         `json:"record_id" validate:"max=100"`
		Record   map[string]any `json:"record"    validate:"required"`
	}

	// FieldsResponse is the body answered by FieldsPath.
	FieldsResponse struct {
		Record    map[string]any   `json:"record"`
		Decisions []field.Decision `json:"decisions"`
	}
)

// Service is the decision handler service.
type Service struct {
	handler.Service
	catalog     *catalog.Catalog
	aggregator  *aggregate.Aggregator
	assignments *assignment.Store
	fields      *field.Resolver
	validator   *validator.Validate
}

// Handler is the decision handler.
var Handler = Service{} //nolint:gochecknoglobals

// Init registers the decision routes below router, which must be the tenant group.
func (s *Service) Init(router fiber.Router, deps *handler.Deps) error {
	if router == nil || deps == nil || deps.Catalog == nil || deps.Aggregator == nil || deps.Fields == nil {
		return errors.New(handler.ErrNilDepsFatalLogMsg)
	}

	s.catalog = deps.Catalog
	s.aggregator = deps.Aggregator
	s.assignments = deps.Assignments
	s.fields = deps.Fields
	s.validator = validator.New()

	router.Route(handler.UserPath, func(user fiber.Router) {
		user.Get(EffectivePath, s.Effective)
		user.Post(ScopePath, s.Scope)
		user.Post(FieldsPath, s.Fields)
	})

	return nil
}

// Effective handles GET EffectivePath.
func (s *Service) Effective(c *fiber.Ctx) error {
	ctx := c.UserContext()

	set, tenant, userID, err := s.effective(ctx, c)
	if err != nil {
		return err
	}

	out := EffectiveResponse{
		EffectivePermissionSet: set,
		Permissions:            make([]PermissionView, 0, len(set.ScopesByPermission)),
		FieldGrants:            set.FieldGrants,
	}

	for _, k := range set.Permissions() {
		levels, _ := set.Scopes(k)
		out.Permissions = append(out.Permissions, PermissionView{
			Permission: k.String(),
			Resource:   k.Resource,
			Action:     k.Action,
			Scopes:     levels,
		})
	}

	if s.assignments != nil {
		rows, errList := s.assignments.ActiveAssignments(ctx, tenant, userID)
		if errList != nil {
			return errList //nolint:wrapcheck
		}

		out.Active = handler.NewAssignmentViews(rows)
	}

	return c.JSON(out)
}

// Scope handles POST ScopePath.
func (s *Service) Scope(c *fiber.Ctx) error {
	ctx := c.UserContext()

	req := new(ScopeRequest)
	if err := handler.Bind(c, s.validator, req); err != nil {
		return err //nolint:wrapcheck
	}

	if err := s.catalog.KnownPermission(ctx, req.Resource, req.Action); err != nil {
		return err //nolint:wrapcheck
	}

	set, tenant, userID, err := s.effective(ctx, c)
	if err != nil {
		return err
	}

	subject, err := s.catalog.Subject(ctx, tenant, userID)
	if err != nil {
		return err //nolint:wrapcheck
	}

	d := scope.ResolveScope(set, req.Resource, req.Action)
	out := ScopeResponse{Decision: d, Filter: d.Filter(subject), Subject: subject}

	if req.Level != "" {
		level, errLevel := access.ParseDataScopeLevel(req.Level)
		if errLevel != nil {
			return errLevel //nolint:wrapcheck
		}

		if out.Filter, err = d.FilterAt(level, subject); err != nil {
			return err //nolint:wrapcheck
		}
	}

	return c.JSON(out)
}

// Fields handles POST FieldsPath. Denied fields are audited.
func (s *Service) Fields(c *fiber.Ctx) error {
	ctx := c.UserContext()

	req := new(FieldsRequest)
	if err := handler.Bind(c, s.validator, req); err != nil {
		return err //nolint:wrapcheck
	}

	if err := s.catalog.KnownResource(ctx, req.Resource); err != nil {
		return err //nolint:wrapcheck
	}

	set, _, _, err := s.effective(ctx, c)
	if err != nil {
		return err
	}

	view, decisions, err := s.fields.ResolveRecord(ctx, set, req.Resource, req.RecordID, req.Record)
	if err != nil {
		return err //nolint:wrapcheck
	}

	return c.JSON(FieldsResponse{Record: view, Decisions: decisions})
}

// effective loads the set of the route's user after checking it exists.
func (s *Service) effective(ctx context.Context, c *fiber.Ctx) (*access.EffectivePermissionSet, string, uint64, error) {
	tenant, err := handler.Tenant(c)
	if err != nil {
		return nil, "", 0, err //nolint:wrapcheck
	}

	userID, err := handler.UserID(c)
	if err != nil {
		return nil, "", 0, err //nolint:wrapcheck
	}

	ok, err := s.catalog.UserExists(ctx, tenant, userID)
	if err != nil {
		return nil, "", 0, err //nolint:wrapcheck
	}

	if !ok {
		return nil, "", 0, fmt.Errorf("user %d in tenant %s: %w", userID, tenant, access.ErrNotFound)
	}

	set, err := s.aggregator.Effective(ctx, tenant, userID)
	if err != nil {
		return nil, "", 0, err //nolint:wrapcheck
	}

	return set, tenant, userID, nil
}
