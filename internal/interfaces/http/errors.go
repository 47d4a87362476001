package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/rentals-api/internal/application/dto"
	"github.com/jhoicas/rentals-api/internal/domain"
)

// errorStatus traduce un error del motor a status HTTP y código.
// El orden importa: los sentinels concretos van antes que su clase.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrAlreadyIssued), errors.Is(err, domain.ErrDuplicate):
		return fiber.StatusConflict, "ALREADY_ISSUED"
	case errors.Is(err, domain.ErrIssuanceInProgress):
		return fiber.StatusConflict, "ISSUANCE_IN_PROGRESS"
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict, "VERSION_CONFLICT"
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrLifecycle):
		return fiber.StatusConflict, "INVALID_STATE"
	case errors.Is(err, domain.ErrCounterUnavailable):
		return fiber.StatusServiceUnavailable, "COUNTER_UNAVAILABLE"
	case errors.Is(err, domain.ErrArtifact):
		return fiber.StatusBadGateway, "ARTIFACT_FAILED"
	case errors.Is(err, domain.ErrPersistence):
		return fiber.StatusInternalServerError, "PERSISTENCE"
	default:
		return fiber.StatusInternalServerError, "INTERNAL"
	}
}

func toErrorResponse(err error) *dto.ErrorResponse {
	_, code := errorStatus(err)
	return &dto.ErrorResponse{Code: code, Message: err.Error()}
}

func writeError(c *fiber.Ctx, err error) error {
	status, code := errorStatus(err)
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: err.Error()})
}
