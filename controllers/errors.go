package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"taxnexy/engine"
)

// statusForError maps the engine error taxonomy onto HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, engine.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, engine.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, engine.ErrExpired):
		return fiber.StatusGone
	case errors.Is(err, engine.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, engine.ErrTransport):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError converts an engine error into a JSON error response.
// Internal errors stay opaque to the caller.
func respondError(c *fiber.Ctx, err error) error {
	status := statusForError(err)
	message := err.Error()
	if status == fiber.StatusInternalServerError {
		message = "Something went wrong"
	}
	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}
