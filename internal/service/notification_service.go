package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lethalgem/accountability-app/internal/domain"
	"github.com/lethalgem/accountability-app/internal/events"
	"github.com/lethalgem/accountability-app/internal/notify"
	"github.com/lethalgem/accountability-app/internal/repository"
)

// NotificationService turns lifecycle events into queued emails. It runs on
// dispatcher goroutines, so a failure here never reaches the caller of the
// transition; it is logged and dropped.
type NotificationService struct {
	dispatcher events.Dispatcher
	users      repository.UserRepository
	queue      notify.Queue
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, users repository.UserRepository, queue notify.Queue, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		users:      users,
		queue:      queue,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventProposalCreated, n.handleProposalCreated)
	n.dispatcher.Subscribe(events.EventProposalStatusChanged, n.handleProposalStatusChanged)
	n.dispatcher.Subscribe(events.EventProposalCompleted, n.handleProposalCompleted)
	n.dispatcher.Subscribe(events.EventProposalFailed, n.handleProposalFailed)
}

func (n *NotificationService) handleProposalCreated(ctx context.Context, event events.Event) error {
	p := event.Proposal
	assignee, creator, err := n.participants(ctx, &p)
	if err != nil {
		return err
	}
	return n.enqueue(ctx, event, notify.ProposalCreated(assignee.Email, creator.Name, p.Title, p.PenaltyAmount))
}

// Only accept and reject are announced; verify and override are the creator's
// own actions.
func (n *NotificationService) handleProposalStatusChanged(ctx context.Context, event events.Event) error {
	p := event.Proposal
	if p.Status != domain.ProposalStatusAccepted && p.Status != domain.ProposalStatusRejected {
		return nil
	}
	assignee, creator, err := n.participants(ctx, &p)
	if err != nil {
		return err
	}
	return n.enqueue(ctx, event, notify.StatusChanged(creator.Email, assignee.Name, p.Title, string(p.Status)))
}

func (n *NotificationService) handleProposalCompleted(ctx context.Context, event events.Event) error {
	p := event.Proposal
	assignee, creator, err := n.participants(ctx, &p)
	if err != nil {
		return err
	}
	return n.enqueue(ctx, event, notify.Completed(creator.Email, assignee.Name, p.Title))
}

func (n *NotificationService) handleProposalFailed(ctx context.Context, event events.Event) error {
	p := event.Proposal
	assignee, err := n.users.GetByID(ctx, p.AssignedTo)
	if err != nil {
		return fmt.Errorf("load assignee %d: %w", p.AssignedTo, err)
	}
	return n.enqueue(ctx, event, notify.Failed(assignee.Email, p.Title, p.PenaltyAmount))
}

func (n *NotificationService) participants(ctx context.Context, p *domain.Proposal) (assignee, creator *domain.User, err error) {
	assignee, err = n.users.GetByID(ctx, p.AssignedTo)
	if err != nil {
		return nil, nil, fmt.Errorf("load assignee %d: %w", p.AssignedTo, err)
	}
	creator, err = n.users.GetByID(ctx, p.CreatedBy)
	if err != nil {
		return nil, nil, fmt.Errorf("load creator %d: %w", p.CreatedBy, err)
	}
	return assignee, creator, nil
}

func (n *NotificationService) enqueue(ctx context.Context, event events.Event, msg notify.Notification) error {
	if err := n.queue.Enqueue(ctx, msg); err != nil {
		return fmt.Errorf("enqueue %s notification: %w", msg.Kind, err)
	}
	n.logger.Debug("notification queued",
		zap.String("event_id", event.ID),
		zap.String("kind", string(msg.Kind)),
		zap.Int64("proposal_id", event.Proposal.ID))
	return nil
}
