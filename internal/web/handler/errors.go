package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/scopeguard/scopeguard/internal/access"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// Status maps an error kind to its HTTP status.
func Status(kind access.Kind) int {
	switch kind {
	case access.KindNotFound:
		return fiber.StatusNotFound
	case access.KindValidation, access.KindInvalidState:
		return fiber.StatusBadRequest
	case access.KindConflict:
		return fiber.StatusConflict
	case access.KindInternal, access.KindUnknown:
		return fiber.StatusInternalServerError
	}

	return fiber.StatusInternalServerError
}

// ErrorHandler renders errors returned by handlers as JSON.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(ErrorResponse{Error: fe.Message, Kind: "http"})
	}

	kind := access.KindOf(err)
	status := Status(kind)

	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("request failed")

		msg = "internal error"
	}

	return c.Status(status).JSON(ErrorResponse{Error: msg, Kind: kind.String()})
}
