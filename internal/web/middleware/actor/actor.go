package actor

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/scopeguard/scopeguard/internal/web/handler"
)

// MaxActorLength bounds the header value, matching the assigned_by column.
const MaxActorLength = 100

// Middleware is a Fiber middleware that extracts the caller identity.
func Middleware(c *fiber.Ctx) error {
	actor := strings.TrimSpace(c.Get(handler.HeaderActor))

	if len(actor) > MaxActorLength {
		return c.Status(fiber.StatusBadRequest).JSON(handler.ErrorResponse{
			Error: handler.HeaderActor + " header too long",
			Kind:  "validation",
		})
	}

	if actor == "" && IsMutation(c) {
		log.Warn().Str("method", c.Method()).Str("path", c.Path()).Msg("mutating request without actor")

		return c.Status(fiber.StatusBadRequest).JSON(handler.ErrorResponse{
			Error: "missing " + handler.HeaderActor + " header",
			Kind:  "validation",
		})
	}

	c.Locals(handler.LocalActor, actor)

	return c.Next()
}

// IsMutation reports whether the request changes state.
func IsMutation(c *fiber.Ctx) bool {
	switch c.Method() {
	case fiber.MethodPost, fiber.MethodPut, fiber.MethodPatch, fiber.MethodDelete:
		return !IsReadOnlyPost(c)
	}

	return false
}

// IsReadOnlyPost checks if the current request is a POST that only evaluates
// decisions (scope and field resolution).
func IsReadOnlyPost(c *fiber.Ctx) bool {
	if c.Method() != fiber.MethodPost {
		return false
	}

	p := strings.ToLower(c.Path())

	return strings.HasSuffix(p, "/scope") || strings.HasSuffix(p, "/fields")
}
