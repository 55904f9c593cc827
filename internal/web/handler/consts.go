package handler

const (
	// APIPrefix is the root of every versioned route.
	APIPrefix = "/api/v1"

	// TenantPath is the route group of tenant scoped operations.
	TenantPath = "/tenants/:tenant"

	// UserPath is the route group of user scoped operations below TenantPath.
	UserPath = "/users/:user"

	// HeaderActor carries the identity of the caller, verified upstream.
	HeaderActor = "X-Actor"

	// LocalActor is the fiber.Locals key holding the actor.
	LocalActor = "actor"

	// ErrNilDepsFatalLogMsg is used if router or deps is nil.
	ErrNilDepsFatalLogMsg = "router or deps is nil"
)
