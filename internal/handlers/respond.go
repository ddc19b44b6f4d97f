package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"policy-lifecycle/internal/models"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

// respondError maps workflow errors onto HTTP statuses. Everything the
// engines did not classify is treated as an infrastructure failure.
func respondError(c fiber.Ctx, operation string, err error) error {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return c.Status(http.StatusNotFound).JSON(
			models.CreateErrorResponse("NOT_FOUND", err.Error()))
	case errors.Is(err, models.ErrInvalidActor):
		return c.Status(http.StatusForbidden).JSON(
			models.CreateErrorResponse("FORBIDDEN", err.Error()))
	case errors.Is(err, models.ErrDeadlineExpired):
		return c.Status(http.StatusConflict).JSON(
			models.CreateErrorResponse("DEADLINE_EXPIRED", err.Error()))
	case errors.Is(err, models.ErrConflict):
		return c.Status(http.StatusConflict).JSON(
			models.CreateErrorResponse("CONFLICT", err.Error()))
	case errors.Is(err, models.ErrInvalidTransition):
		return c.Status(http.StatusUnprocessableEntity).JSON(
			models.CreateErrorResponse("INVALID_TRANSITION", err.Error()))
	default:
		slog.Error("request failed", "operation", operation, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			models.CreateErrorResponse("INTERNAL_ERROR", "Internal server error"))
	}
}

func respondValidation(c fiber.Ctx, err error) error {
	return c.Status(http.StatusBadRequest).JSON(
		models.CreateErrorResponse("VALIDATION_ERROR", err.Error()))
}

// actorID extracts the authenticated caller set by the gateway. An empty
// second return means the 401 response has already been written.
func actorID(c fiber.Ctx) (string, bool) {
	userID := c.Get("X-User-ID")
	if userID == "" {
		c.Status(http.StatusUnauthorized).JSON(
			models.CreateErrorResponse("UNAUTHORIZED", "User ID is required"))
		return "", false
	}
	return userID, true
}

func parseIDParam(c fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		c.Status(http.StatusBadRequest).JSON(
			models.CreateErrorResponse("INVALID_UUID", "Invalid "+name+" format"))
		return uuid.Nil, false
	}
	return id, true
}
