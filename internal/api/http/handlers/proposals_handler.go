package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lethalgem/accountability-app/internal/api/dto"
	"github.com/lethalgem/accountability-app/internal/auth"
	"github.com/lethalgem/accountability-app/internal/domain"
	"github.com/lethalgem/accountability-app/internal/service"
	apperrors "github.com/lethalgem/accountability-app/pkg/util/errorutil"
)

// ProposalsHandler manages proposal endpoints.
type ProposalsHandler struct {
	service *service.ProposalService
}

// NewProposalsHandler constructs handler.
func NewProposalsHandler(proposalService *service.ProposalService) *ProposalsHandler {
	return &ProposalsHandler{service: proposalService}
}

// List handles GET /api/proposals?status=pending,accepted.
func (h *ProposalsHandler) List(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	statuses, err := domain.ParseStatuses(c.Query("status"))
	if err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}

	proposals, err := h.service.List(c.UserContext(), user.ID, statuses)
	if err != nil {
		return err
	}
	items := make([]dto.ProposalResponse, 0, len(proposals))
	for i := range proposals {
		items = append(items, dto.NewProposalResponse(&proposals[i], user.ID))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Create handles POST /api/proposals.
func (h *ProposalsHandler) Create(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateProposalRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Deadline <= 0 {
		return apperrors.NewValidationError("deadline is required", nil)
	}
	if req.PenaltyAmount == nil {
		return apperrors.NewValidationError("penalty_amount is required", nil)
	}

	proposal, err := h.service.Create(c.UserContext(), user.ID, service.ProposalCreateInput{
		Title:         req.Title,
		Description:   req.Description,
		Deadline:      time.Unix(req.Deadline, 0).UTC(),
		PenaltyAmount: *req.PenaltyAmount,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewProposalResponse(proposal, user.ID)})
}

// Get handles GET /api/proposals/:id.
func (h *ProposalsHandler) Get(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := proposalID(c)
	if err != nil {
		return err
	}

	detail, err := h.service.Get(c.UserContext(), user.ID, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ProposalDetailResponse{
		ProposalResponse: dto.NewProposalResponse(&detail.Proposal, user.ID),
		CreatorName:      detail.Creator.Name,
		AssigneeName:     detail.Assignee.Name,
	}})
}

// Transition returns the handler for POST /api/proposals/:id/<transition>.
func (h *ProposalsHandler) Transition(transition domain.Transition) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := currentUser(c)
		if err != nil {
			return err
		}
		id, err := proposalID(c)
		if err != nil {
			return err
		}

		res, err := h.service.Transition(c.UserContext(), user.ID, id, transition)
		if err != nil {
			return err
		}
		resp := dto.TransitionResponse{Proposal: dto.NewProposalResponse(res.Proposal, user.ID)}
		if res.LedgerEntry != nil {
			entry := dto.NewLedgerEntryResponse(res.LedgerEntry, user.ID)
			resp.LedgerEntry = &entry
		}
		return c.JSON(fiber.Map{"data": resp})
	}
}

func proposalID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid proposal id", map[string]any{"id": c.Params("id")})
	}
	return id, nil
}

func currentUser(c *fiber.Ctx) (*domain.User, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("user required")
	}
	return principal.User, nil
}
