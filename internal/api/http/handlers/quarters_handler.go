package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/Jlndre/Capstone-eLife/internal/api/dto"
	"github.com/Jlndre/Capstone-eLife/internal/service"
	apperrors "github.com/Jlndre/Capstone-eLife/pkg/util/errorutil"
)

// QuartersHandler exposes the caller's quarterly obligations.
type QuartersHandler struct {
	ledger *service.LedgerService
}

// NewQuartersHandler constructs handler.
func NewQuartersHandler(ledger *service.LedgerService) *QuartersHandler {
	return &QuartersHandler{ledger: ledger}
}

// List handles GET /quarters?year=.
func (h *QuartersHandler) List(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	year := 0
	if raw := c.Query("year"); raw != "" {
		year, err = strconv.Atoi(raw)
		if err != nil || year < 1900 || year > 9999 {
			return apperrors.NewInputError("invalid year", map[string]any{"year": raw})
		}
	}

	rows, err := h.ledger.List(c.UserContext(), principal.User.ID, year)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewQuarterObligationResponses(rows)})
}
