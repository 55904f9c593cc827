// Package system serves operational routes not bound to a tenant.
package system

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/scopeguard/scopeguard/internal/assignment"
	"github.com/scopeguard/scopeguard/internal/web/handler"
)

// ExpirePath runs the expiry sweep once.
const ExpirePath = "/system/expire"

// ExpireResponse is the body answered by ExpirePath.
type ExpireResponse struct {
	ExpiredAssignments int `json:"expired_assignments"`
}

// Service is the system handler service.
type Service struct {
	handler.Service
	store *assignment.Store
}

// Handler is the system handler.
var Handler = Service{} //nolint:gochecknoglobals

// Init registers the system routes below router, which must be the API group.
func (s *Service) Init(router fiber.Router, deps *handler.Deps) error {
	if router == nil || deps == nil || deps.Assignments == nil {
		return errors.New(handler.ErrNilDepsFatalLogMsg)
	}

	s.store = deps.Assignments

	router.Post(ExpirePath, s.Expire)

	return nil
}

// Expire handles POST ExpirePath.
func (s *Service) Expire(c *fiber.Ctx) error {
	n, err := s.store.ExpireDue(c.UserContext(), s.store.Now())
	if err != nil {
		return err //nolint:wrapcheck
	}

	log.Info().Str("actor", handler.Actor(c)).Int("expired", n).Msg("expiry requested")

	return c.JSON(ExpireResponse{ExpiredAssignments: n})
}
