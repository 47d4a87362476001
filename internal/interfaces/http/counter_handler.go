package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/rentals-api/internal/application/billing"
	"github.com/jhoicas/rentals-api/internal/application/dto"
)

// CounterHandler inspección de contadores de numeración.
type CounterHandler struct {
	sequence *billing.SequenceService
}

// NewCounterHandler construye el handler.
func NewCounterHandler(sequence *billing.SequenceService) *CounterHandler {
	return &CounterHandler{sequence: sequence}
}

// Get godoc
// @Summary      Estado del contador de un grupo emisor
// @Tags         counters
// @Security     Bearer
// @Produce      json
// @Param        group_id  path  string  true  "Grupo emisor"
// @Param        year      path  int     true  "Año"
// @Success      200  {object}  dto.CounterResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/counters/{group_id}/{year} [get]
func (h *CounterHandler) Get(c *fiber.Ctx) error {
	groupID := c.Params("group_id")
	year, err := strconv.Atoi(c.Params("year"))
	if err != nil || year <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "año inválido"})
	}
	counter, err := h.sequence.Counter(c.UserContext(), groupID, year)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromCounter(groupID, year, counter))
}
