package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lethalgem/accountability-app/internal/domain"
)

// CreateProposalRequest payload. Deadline is epoch seconds; penalty_amount
// accepts a JSON number or a decimal string.
type CreateProposalRequest struct {
	Title         string           `json:"title"`
	Description   *string          `json:"description"`
	Deadline      int64            `json:"deadline"`
	PenaltyAmount *decimal.Decimal `json:"penalty_amount"`
}

// ProposalResponse is a proposal seen by one of its participants.
type ProposalResponse struct {
	ID            int64   `json:"id"`
	CreatedBy     int64   `json:"created_by"`
	AssignedTo    int64   `json:"assigned_to"`
	Role          string  `json:"role"`
	Title         string  `json:"title"`
	Description   *string `json:"description"`
	Deadline      int64   `json:"deadline"`
	PenaltyAmount string  `json:"penalty_amount"`
	Status        string  `json:"status"`
	CreatedAt     int64   `json:"created_at"`
	AcceptedAt    *int64  `json:"accepted_at"`
	CompletedAt   *int64  `json:"completed_at"`
}

// ProposalDetailResponse adds participant names.
type ProposalDetailResponse struct {
	ProposalResponse
	CreatorName  string `json:"creator_name"`
	AssigneeName string `json:"assignee_name"`
}

// TransitionResponse is returned by the lifecycle endpoints.
type TransitionResponse struct {
	Proposal    ProposalResponse     `json:"proposal"`
	LedgerEntry *LedgerEntryResponse `json:"ledger_entry,omitempty"`
}

// NewProposalResponse maps a proposal for viewerID.
func NewProposalResponse(p *domain.Proposal, viewerID int64) ProposalResponse {
	return ProposalResponse{
		ID:            p.ID,
		CreatedBy:     p.CreatedBy,
		AssignedTo:    p.AssignedTo,
		Role:          string(p.RoleOf(viewerID)),
		Title:         p.Title,
		Description:   p.Description,
		Deadline:      p.Deadline.Unix(),
		PenaltyAmount: p.PenaltyAmount.StringFixed(2),
		Status:        string(p.Status),
		CreatedAt:     p.CreatedAt.Unix(),
		AcceptedAt:    unixPtr(p.AcceptedAt),
		CompletedAt:   unixPtr(p.CompletedAt),
	}
}

func unixPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	v := t.Unix()
	return &v
}
