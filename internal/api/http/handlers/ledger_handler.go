package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lethalgem/accountability-app/internal/api/dto"
	"github.com/lethalgem/accountability-app/internal/service"
)

// LedgerHandler exposes the ledger read endpoints.
type LedgerHandler struct {
	ledger *service.LedgerService
}

// NewLedgerHandler constructs handler.
func NewLedgerHandler(ledgerService *service.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledger: ledgerService}
}

// Entries handles GET /api/ledger.
func (h *LedgerHandler) Entries(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	entries, err := h.ledger.Entries(c.UserContext(), user.ID)
	if err != nil {
		return err
	}
	items := make([]dto.LedgerEntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, dto.NewLedgerEntryResponse(&entries[i], user.ID))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Balance handles GET /api/ledger/balance.
func (h *LedgerHandler) Balance(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	summary, err := h.ledger.Balance(c.UserContext(), user.ID)
	if err != nil {
		return err
	}

	resp := dto.BalanceResponse{
		Balance:   summary.Balance.Amount.StringFixed(2),
		Direction: string(summary.Balance.Direction()),
		Summary:   summary.Summary,
	}
	if summary.Partner != nil {
		resp.PartnerName = &summary.Partner.Name
	}
	return c.JSON(fiber.Map{"data": resp})
}
