package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lethalgem/accountability-app/internal/domain"
)

// StatusChange is a conditional status update: it applies only while the
// stored status is one of From. AcceptedAt and CompletedAt are written in the
// same statement when set.
type StatusChange struct {
	From        []domain.ProposalStatus
	To          domain.ProposalStatus
	AcceptedAt  *time.Time
	CompletedAt *time.Time
}

// ProposalRepository encapsulates proposal persistence.
type ProposalRepository interface {
	Create(ctx context.Context, proposal *domain.Proposal) error
	GetByID(ctx context.Context, id int64) (*domain.Proposal, error)
	// ListForUser returns proposals the user created or is assigned to, newest first.
	ListForUser(ctx context.Context, userID int64, statuses []domain.ProposalStatus) ([]domain.Proposal, error)
	// ListOverdue returns every accepted proposal whose deadline is before now.
	ListOverdue(ctx context.Context, now time.Time) ([]domain.Proposal, error)
	// UpdateStatus returns ErrStatusConflict when no row matched id and From.
	UpdateStatus(ctx context.Context, id int64, change StatusChange) (*domain.Proposal, error)
}

type proposalRepository struct {
	db DBTX
}

const proposalColumns = `id, created_by, assigned_to, title, description, deadline, penalty_amount,
               status, created_at, accepted_at, completed_at`

func (r *proposalRepository) Create(ctx context.Context, p *domain.Proposal) error {
	const query = `
        INSERT INTO proposals (created_by, assigned_to, title, description, deadline, penalty_amount, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		p.CreatedBy,
		p.AssignedTo,
		p.Title,
		p.Description,
		p.Deadline,
		p.PenaltyAmount,
		string(p.Status),
	).Scan(&p.ID, &p.CreatedAt)
}

func (r *proposalRepository) GetByID(ctx context.Context, id int64) (*domain.Proposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE id=$1`
	p, err := scanProposal(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (r *proposalRepository) ListForUser(ctx context.Context, userID int64, statuses []domain.ProposalStatus) ([]domain.Proposal, error) {
	query := `SELECT ` + proposalColumns + `
        FROM proposals
        WHERE (created_by=$1 OR assigned_to=$1)`
	args := []any{userID}
	if len(statuses) > 0 {
		args = append(args, statusStrings(statuses))
		query += ` AND status = ANY($2)`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProposals(rows)
}

func (r *proposalRepository) ListOverdue(ctx context.Context, now time.Time) ([]domain.Proposal, error) {
	query := `SELECT ` + proposalColumns + `
        FROM proposals
        WHERE status=$1 AND deadline < $2
        ORDER BY deadline ASC`

	rows, err := r.db.Query(ctx, query, string(domain.ProposalStatusAccepted), now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProposals(rows)
}

func (r *proposalRepository) UpdateStatus(ctx context.Context, id int64, change StatusChange) (*domain.Proposal, error) {
	query := `
        UPDATE proposals
        SET status=$1,
            accepted_at=COALESCE($2, accepted_at),
            completed_at=COALESCE($3, completed_at)
        WHERE id=$4 AND status = ANY($5)
        RETURNING ` + proposalColumns

	p, err := scanProposal(r.db.QueryRow(ctx, query,
		string(change.To),
		change.AcceptedAt,
		change.CompletedAt,
		id,
		statusStrings(change.From),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStatusConflict
		}
		return nil, err
	}
	return p, nil
}

func scanProposal(row pgx.Row) (*domain.Proposal, error) {
	var p domain.Proposal
	var status string
	if err := row.Scan(
		&p.ID,
		&p.CreatedBy,
		&p.AssignedTo,
		&p.Title,
		&p.Description,
		&p.Deadline,
		&p.PenaltyAmount,
		&status,
		&p.CreatedAt,
		&p.AcceptedAt,
		&p.CompletedAt,
	); err != nil {
		return nil, err
	}
	p.Status = domain.ProposalStatus(status)
	return &p, nil
}

func scanProposals(rows pgx.Rows) ([]domain.Proposal, error) {
	result := []domain.Proposal{}
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func statusStrings(statuses []domain.ProposalStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
