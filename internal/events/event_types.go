package events

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lethalgem/accountability-app/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventProposalCreated       EventType = "proposal_created"
	EventProposalStatusChanged EventType = "proposal_status_changed"
	EventProposalCompleted     EventType = "proposal_completed"
	EventProposalFailed        EventType = "proposal_failed"
)

// Event represents a lifecycle event emitted after a transition committed.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Proposal  domain.Proposal `json:"proposal"`
	ActorID   *int64          `json:"actor_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   interface{}     `json:"payload"`
}

// ProposalCreatedPayload payload.
type ProposalCreatedPayload struct {
	Penalty decimal.Decimal `json:"penalty"`
}

// ProposalStatusChangedPayload payload, emitted for accept and reject.
type ProposalStatusChangedPayload struct {
	OldStatus domain.ProposalStatus `json:"old_status"`
	NewStatus domain.ProposalStatus `json:"new_status"`
}

// ProposalFailedPayload payload. Overdue is set when the sweep failed the proposal.
type ProposalFailedPayload struct {
	Penalty       decimal.Decimal `json:"penalty"`
	LedgerEntryID int64           `json:"ledger_entry_id"`
	Overdue       bool            `json:"overdue"`
}
