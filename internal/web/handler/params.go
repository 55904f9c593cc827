package handler

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/scopeguard/scopeguard/internal/access"
)

// Tenant returns the :tenant route parameter.
func Tenant(c *fiber.Ctx) (string, error) {
	tenant := c.Params("tenant")
	if tenant == "" {
		return "", fmt.Errorf("%w: missing tenant", access.ErrValidation)
	}

	return tenant, nil
}

// UserID parses the :user route parameter.
func UserID(c *fiber.Ctx) (uint64, error) {
	id, err := strconv.ParseUint(c.Params("user"), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid user id %q", access.ErrValidation, c.Params("user"))
	}

	return id, nil
}

// Actor returns the caller set by the actor middleware.
func Actor(c *fiber.Ctx) string {
	actor, _ := c.Locals(LocalActor).(string)
	return actor
}

// Bind parses the JSON body into dst and validates it.
func Bind(c *fiber.Ctx, v *validator.Validate, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return fmt.Errorf("%w: invalid request body: %w", access.ErrValidation, err)
	}

	if err := v.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			ve := validationErrors[0]

			return fmt.Errorf("%w: field '%s' failed validation tag '%s'", access.ErrValidation, ve.Field(), ve.Tag())
		}

		return fmt.Errorf("%w: %w", access.ErrValidation, err)
	}

	return nil
}
