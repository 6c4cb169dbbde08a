package domain

import "fmt"

// Role is the relation of an actor to a proposal.
type Role string

const (
	RoleNone     Role = ""
	RoleCreator  Role = "creator"
	RoleAssignee Role = "assignee"
	RoleSystem   Role = "system"
)

// Transition names a lifecycle operation.
type Transition string

const (
	TransitionAccept   Transition = "accept"
	TransitionReject   Transition = "reject"
	TransitionComplete Transition = "complete"
	TransitionVerify   Transition = "verify"
	TransitionFail     Transition = "fail"
	TransitionOverride Transition = "override"
	TransitionExpire   Transition = "expire"
)

// Stamp selects the timestamp column set together with the status.
type Stamp int

const (
	StampNone Stamp = iota
	StampAccepted
	StampCompleted
)

// LedgerEffect describes the entry appended by a transition.
type LedgerEffect int

const (
	LedgerNone LedgerEffect = iota
	// LedgerCharge makes the assignee owe the creator the penalty.
	LedgerCharge
	// LedgerReverse pays a previous charge back to the assignee.
	LedgerReverse
)

// TransitionRule is one row of the lifecycle table.
type TransitionRule struct {
	Name         Transition
	Actor        Role
	From         []ProposalStatus
	To           ProposalStatus
	Stamp        Stamp
	Effect       LedgerEffect
	ReasonPrefix string
	// Message is returned to callers for a wrong actor or a wrong source state.
	Message string
}

var transitionRules = map[Transition]TransitionRule{
	TransitionAccept: {
		Name:    TransitionAccept,
		Actor:   RoleAssignee,
		From:    []ProposalStatus{ProposalStatusPending},
		To:      ProposalStatusAccepted,
		Stamp:   StampAccepted,
		Message: "proposal is not pending",
	},
	TransitionReject: {
		Name:    TransitionReject,
		Actor:   RoleAssignee,
		From:    []ProposalStatus{ProposalStatusPending},
		To:      ProposalStatusRejected,
		Message: "proposal is not pending",
	},
	TransitionComplete: {
		Name:    TransitionComplete,
		Actor:   RoleAssignee,
		From:    []ProposalStatus{ProposalStatusAccepted},
		To:      ProposalStatusCompleted,
		Stamp:   StampCompleted,
		Message: "proposal must be accepted first",
	},
	TransitionVerify: {
		Name:    TransitionVerify,
		Actor:   RoleCreator,
		From:    []ProposalStatus{ProposalStatusCompleted},
		To:      ProposalStatusVerified,
		Message: "proposal must be marked complete first",
	},
	TransitionFail: {
		Name:         TransitionFail,
		Actor:        RoleCreator,
		From:         []ProposalStatus{ProposalStatusAccepted, ProposalStatusCompleted},
		To:           ProposalStatusFailed,
		Effect:       LedgerCharge,
		ReasonPrefix: "Failed",
		Message:      "can only fail accepted or completed proposals",
	},
	TransitionOverride: {
		Name:         TransitionOverride,
		Actor:        RoleCreator,
		From:         []ProposalStatus{ProposalStatusFailed},
		To:           ProposalStatusVerified,
		Effect:       LedgerReverse,
		ReasonPrefix: "Override",
		Message:      "can only override failed proposals",
	},
	TransitionExpire: {
		Name:         TransitionExpire,
		Actor:        RoleSystem,
		From:         []ProposalStatus{ProposalStatusAccepted},
		To:           ProposalStatusFailed,
		Effect:       LedgerCharge,
		ReasonPrefix: "Overdue",
		Message:      "only accepted proposals can expire",
	},
}

// RuleFor looks up the rule of a transition.
func RuleFor(t Transition) (TransitionRule, bool) {
	rule, ok := transitionRules[t]
	return rule, ok
}

// Allows reports whether the rule may fire from status.
func (r TransitionRule) Allows(status ProposalStatus) bool {
	for _, from := range r.From {
		if from == status {
			return true
		}
	}
	return false
}

// Reason builds the ledger entry text, e.g. "Failed: Clean the garage".
func (r TransitionRule) Reason(title string) string {
	return fmt.Sprintf("%s: %s", r.ReasonPrefix, title)
}

// Entry builds the ledger entry this rule appends for p, or nil when it appends none.
func (r TransitionRule) Entry(p *Proposal) *LedgerEntry {
	entry := &LedgerEntry{
		ProposalID: p.ID,
		Amount:     p.PenaltyAmount,
		Reason:     r.Reason(p.Title),
	}
	switch r.Effect {
	case LedgerCharge:
		entry.FromUser, entry.ToUser = p.AssignedTo, p.CreatedBy
	case LedgerReverse:
		entry.FromUser, entry.ToUser = p.CreatedBy, p.AssignedTo
	default:
		return nil
	}
	return entry
}
