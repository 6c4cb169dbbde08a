package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lethalgem/accountability-app/internal/domain"
	"github.com/lethalgem/accountability-app/internal/events"
	"github.com/lethalgem/accountability-app/internal/repository"
	apperrors "github.com/lethalgem/accountability-app/pkg/util/errorutil"
)

// maxPenalty is the largest value NUMERIC(12,2) holds.
var maxPenalty = decimal.RequireFromString("9999999999.99")

// ProposalService runs the proposal lifecycle: creation, the transition table
// and the overdue sweep. Status changes and their ledger entries commit together.
type ProposalService struct {
	store      repository.Store
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// ProposalDependencies bundles collaborators for the proposal service.
type ProposalDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// ProposalCreateInput describes proposal creation payload.
type ProposalCreateInput struct {
	Title         string
	Description   *string
	Deadline      time.Time
	PenaltyAmount decimal.Decimal
}

// ProposalDetail is a proposal with both participants resolved.
type ProposalDetail struct {
	Proposal domain.Proposal
	Creator  *domain.User
	Assignee *domain.User
}

// TransitionResult is the outcome of a committed transition.
type TransitionResult struct {
	Proposal    *domain.Proposal
	LedgerEntry *domain.LedgerEntry
}

// NewProposalService constructs the service.
func NewProposalService(deps ProposalDependencies) *ProposalService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &ProposalService{
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        clock,
	}
}

// Create proposes a task to the creator's partner.
func (s *ProposalService) Create(ctx context.Context, creatorID int64, input ProposalCreateInput) (*domain.Proposal, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}
	if input.Deadline.IsZero() {
		return nil, apperrors.NewValidationError("deadline is required", nil)
	}
	if !input.Deadline.After(s.now()) {
		return nil, apperrors.NewValidationError("deadline must be in the future", nil)
	}
	if input.PenaltyAmount.IsNegative() {
		return nil, apperrors.NewValidationError("penalty amount must not be negative", nil)
	}
	if !input.PenaltyAmount.Equal(input.PenaltyAmount.Round(2)) {
		return nil, apperrors.NewValidationError("penalty amount has more than two decimal places", nil)
	}
	if input.PenaltyAmount.GreaterThan(maxPenalty) {
		return nil, apperrors.NewValidationError("penalty amount is too large", map[string]any{"max": maxPenalty.StringFixed(2)})
	}

	partnerID, err := s.partnerOf(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	proposal := &domain.Proposal{
		CreatedBy:     creatorID,
		AssignedTo:    partnerID,
		Title:         title,
		Description:   trimOptional(input.Description),
		Deadline:      input.Deadline.UTC(),
		PenaltyAmount: input.PenaltyAmount.Round(2),
		Status:        domain.ProposalStatusPending,
	}
	if err := s.store.Proposals().Create(ctx, proposal); err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("create proposal: %w", err))
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventProposalCreated,
		Proposal: *proposal,
		ActorID:  &creatorID,
		Payload:  events.ProposalCreatedPayload{Penalty: proposal.PenaltyAmount},
	})
	return proposal, nil
}

// Get returns a proposal the user participates in.
func (s *ProposalService) Get(ctx context.Context, userID, proposalID int64) (*ProposalDetail, error) {
	proposal, err := s.loadForParticipant(ctx, userID, proposalID)
	if err != nil {
		return nil, err
	}
	creator, err := s.store.Users().GetByID(ctx, proposal.CreatedBy)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("load creator: %w", err))
	}
	assignee, err := s.store.Users().GetByID(ctx, proposal.AssignedTo)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("load assignee: %w", err))
	}
	return &ProposalDetail{Proposal: *proposal, Creator: creator, Assignee: assignee}, nil
}

// List returns the user's proposals, newest first, after failing overdue ones.
func (s *ProposalService) List(ctx context.Context, userID int64, statuses []domain.ProposalStatus) ([]domain.Proposal, error) {
	if _, err := s.SweepOverdue(ctx); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	proposals, err := s.store.Proposals().ListForUser(ctx, userID, statuses)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("list proposals: %w", err))
	}
	return proposals, nil
}

// Accept moves a pending proposal to accepted.
func (s *ProposalService) Accept(ctx context.Context, actorID, proposalID int64) (*TransitionResult, error) {
	return s.Transition(ctx, actorID, proposalID, domain.TransitionAccept)
}

// Reject closes a pending proposal.
func (s *ProposalService) Reject(ctx context.Context, actorID, proposalID int64) (*TransitionResult, error) {
	return s.Transition(ctx, actorID, proposalID, domain.TransitionReject)
}

// Complete reports an accepted task as done.
func (s *ProposalService) Complete(ctx context.Context, actorID, proposalID int64) (*TransitionResult, error) {
	return s.Transition(ctx, actorID, proposalID, domain.TransitionComplete)
}

// Verify confirms a completed task.
func (s *ProposalService) Verify(ctx context.Context, actorID, proposalID int64) (*TransitionResult, error) {
	return s.Transition(ctx, actorID, proposalID, domain.TransitionVerify)
}

// Fail charges the penalty to the assignee.
func (s *ProposalService) Fail(ctx context.Context, actorID, proposalID int64) (*TransitionResult, error) {
	return s.Transition(ctx, actorID, proposalID, domain.TransitionFail)
}

// Override reverses a failure and its charge.
func (s *ProposalService) Override(ctx context.Context, actorID, proposalID int64) (*TransitionResult, error) {
	return s.Transition(ctx, actorID, proposalID, domain.TransitionOverride)
}

// Transition applies a user-triggered transition on behalf of actorID.
func (s *ProposalService) Transition(ctx context.Context, actorID, proposalID int64, transition domain.Transition) (*TransitionResult, error) {
	rule, ok := domain.RuleFor(transition)
	if !ok || rule.Actor == domain.RoleSystem {
		return nil, apperrors.NewValidationError("unknown transition", map[string]any{"transition": string(transition)})
	}

	proposal, err := s.loadForParticipant(ctx, actorID, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.RoleOf(actorID) != rule.Actor || !rule.Allows(proposal.Status) {
		return nil, apperrors.NewInvalidTransition(rule.Message)
	}

	result, err := s.apply(ctx, proposal, rule)
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, apperrors.NewInvalidTransition(rule.Message)
		}
		return nil, apperrors.NewInternalError(err)
	}

	s.publishTransition(ctx, proposal.Status, result, &actorID)
	return result, nil
}

// SweepOverdue fails every accepted proposal whose deadline has passed and
// returns the proposals it failed. A proposal whose status changed meanwhile
// is left alone, so concurrent sweeps charge each proposal once.
func (s *ProposalService) SweepOverdue(ctx context.Context) ([]domain.Proposal, error) {
	overdue, err := s.store.Proposals().ListOverdue(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("list overdue proposals: %w", err)
	}

	rule, _ := domain.RuleFor(domain.TransitionExpire)
	failed := make([]domain.Proposal, 0, len(overdue))
	for i := range overdue {
		proposal := &overdue[i]
		result, err := s.apply(ctx, proposal, rule)
		if err != nil {
			if !errors.Is(err, repository.ErrStatusConflict) {
				s.logger.Warn("overdue sweep skipped proposal",
					zap.Int64("proposal_id", proposal.ID),
					zap.Error(err))
			}
			continue
		}
		s.logger.Info("proposal overdue",
			zap.Int64("proposal_id", proposal.ID),
			zap.String("penalty", proposal.PenaltyAmount.StringFixed(2)))
		s.publishTransition(ctx, proposal.Status, result, nil)
		failed = append(failed, *result.Proposal)
	}
	return failed, nil
}

func (s *ProposalService) apply(ctx context.Context, proposal *domain.Proposal, rule domain.TransitionRule) (*TransitionResult, error) {
	now := s.now().UTC()
	change := repository.StatusChange{From: rule.From, To: rule.To}
	switch rule.Stamp {
	case domain.StampAccepted:
		change.AcceptedAt = &now
	case domain.StampCompleted:
		change.CompletedAt = &now
	}

	result := &TransitionResult{}
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		updated, err := tx.Proposals().UpdateStatus(ctx, proposal.ID, change)
		if err != nil {
			return err
		}
		result.Proposal = updated

		entry := rule.Entry(updated)
		if entry == nil {
			return nil
		}
		if err := tx.Ledger().Append(ctx, entry); err != nil {
			return fmt.Errorf("append ledger entry: %w", err)
		}
		result.LedgerEntry = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *ProposalService) loadForParticipant(ctx context.Context, userID, proposalID int64) (*domain.Proposal, error) {
	proposal, err := s.store.Proposals().GetByID(ctx, proposalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("proposal")
		}
		return nil, apperrors.NewInternalError(fmt.Errorf("load proposal: %w", err))
	}
	if proposal.RoleOf(userID) == domain.RoleNone {
		return nil, apperrors.NewNotFound("proposal")
	}
	return proposal, nil
}

func (s *ProposalService) partnerOf(ctx context.Context, userID int64) (int64, error) {
	pair, err := s.store.Pairs().Get(ctx)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return 0, apperrors.NewInternalError(fmt.Errorf("load pair: %w", err))
	}
	partnerID, ok := pair.Partner(userID)
	if !ok {
		return 0, apperrors.NewValidationError("no partner found", nil)
	}
	return partnerID, nil
}

func (s *ProposalService) publishTransition(ctx context.Context, from domain.ProposalStatus, result *TransitionResult, actorID *int64) {
	proposal := *result.Proposal
	event := events.Event{Proposal: proposal, ActorID: actorID}

	switch proposal.Status {
	case domain.ProposalStatusCompleted:
		event.Type = events.EventProposalCompleted
	case domain.ProposalStatusFailed:
		payload := events.ProposalFailedPayload{Penalty: proposal.PenaltyAmount, Overdue: actorID == nil}
		if result.LedgerEntry != nil {
			payload.LedgerEntryID = result.LedgerEntry.ID
		}
		event.Type = events.EventProposalFailed
		event.Payload = payload
	default:
		event.Type = events.EventProposalStatusChanged
		event.Payload = events.ProposalStatusChangedPayload{OldStatus: from, NewStatus: proposal.Status}
	}
	s.publishEvent(ctx, event)
}

func (s *ProposalService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
