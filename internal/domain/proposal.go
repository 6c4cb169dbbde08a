package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ProposalStatus enumerates lifecycle states for proposals.
type ProposalStatus string

const (
	ProposalStatusPending   ProposalStatus = "pending"
	ProposalStatusAccepted  ProposalStatus = "accepted"
	ProposalStatusRejected  ProposalStatus = "rejected"
	ProposalStatusCompleted ProposalStatus = "completed"
	ProposalStatusFailed    ProposalStatus = "failed"
	ProposalStatusVerified  ProposalStatus = "verified"
)

// ProposalStatuses lists every valid status.
var ProposalStatuses = []ProposalStatus{
	ProposalStatusPending,
	ProposalStatusAccepted,
	ProposalStatusRejected,
	ProposalStatusCompleted,
	ProposalStatusFailed,
	ProposalStatusVerified,
}

// Valid reports whether s is one of the six known statuses.
func (s ProposalStatus) Valid() bool {
	for _, candidate := range ProposalStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s ProposalStatus) Terminal() bool {
	return s == ProposalStatusRejected || s == ProposalStatusVerified
}

// ParseStatuses parses a comma separated status filter such as "pending,accepted".
func ParseStatuses(raw string) ([]ProposalStatus, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	statuses := make([]ProposalStatus, 0, len(parts))
	for _, part := range parts {
		status := ProposalStatus(strings.ToLower(strings.TrimSpace(part)))
		if !status.Valid() {
			return nil, fmt.Errorf("unknown status %q", part)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// Proposal is a task commitment with a deadline and a penalty.
type Proposal struct {
	ID            int64
	CreatedBy     int64
	AssignedTo    int64
	Title         string
	Description   *string
	Deadline      time.Time
	PenaltyAmount decimal.Decimal
	Status        ProposalStatus
	CreatedAt     time.Time
	AcceptedAt    *time.Time
	CompletedAt   *time.Time
}

// RoleOf returns the role userID plays on the proposal.
func (p *Proposal) RoleOf(userID int64) Role {
	switch userID {
	case p.CreatedBy:
		return RoleCreator
	case p.AssignedTo:
		return RoleAssignee
	default:
		return RoleNone
	}
}

// Overdue reports whether an accepted proposal missed its deadline at now.
func (p *Proposal) Overdue(now time.Time) bool {
	return p.Status == ProposalStatusAccepted && p.Deadline.Before(now)
}
