package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/scopeguard/scopeguard/internal/access/aggregate"
	"github.com/scopeguard/scopeguard/internal/access/field"
	"github.com/scopeguard/scopeguard/internal/assignment"
	"github.com/scopeguard/scopeguard/internal/catalog"
)

// Deps are the engine components handlers call into.
type Deps struct {
	Catalog     *catalog.Catalog
	Aggregator  *aggregate.Aggregator
	Assignments *assignment.Store
	Fields      *field.Resolver
}

// Service is the interface for a web handler service.
type Service interface {
	Init(router fiber.Router, deps *Deps) error
}
