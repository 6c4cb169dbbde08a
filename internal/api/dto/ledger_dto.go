package dto

import "github.com/lethalgem/accountability-app/internal/domain"

// LedgerEntryResponse is a ledger entry seen by one user. Direction is
// "owes" when the viewer is the debtor and "owed" otherwise.
type LedgerEntryResponse struct {
	ID         int64  `json:"id"`
	ProposalID int64  `json:"proposal_id"`
	FromUser   int64  `json:"from_user"`
	ToUser     int64  `json:"to_user"`
	Amount     string `json:"amount"`
	Reason     string `json:"reason"`
	Direction  string `json:"direction"`
	CreatedAt  int64  `json:"created_at"`
}

// BalanceResponse is the caller's net position; a positive balance means the caller owes.
type BalanceResponse struct {
	Balance     string  `json:"balance"`
	Direction   string  `json:"direction"`
	PartnerName *string `json:"partner_name"`
	Summary     string  `json:"summary"`
}

// NewLedgerEntryResponse maps an entry for viewerID.
func NewLedgerEntryResponse(e *domain.LedgerEntry, viewerID int64) LedgerEntryResponse {
	direction := domain.BalanceOwed
	if e.FromUser == viewerID {
		direction = domain.BalanceOwes
	}
	return LedgerEntryResponse{
		ID:         e.ID,
		ProposalID: e.ProposalID,
		FromUser:   e.FromUser,
		ToUser:     e.ToUser,
		Amount:     e.Amount.StringFixed(2),
		Reason:     e.Reason,
		Direction:  string(direction),
		CreatedAt:  e.CreatedAt.Unix(),
	}
}
