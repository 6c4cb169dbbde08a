package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/lethalgem/accountability-app/internal/domain"
)

// LedgerRepository is the append-only store of debt transfers.
type LedgerRepository interface {
	Append(ctx context.Context, entry *domain.LedgerEntry) error
	// ListForUser returns entries where the user is debtor or creditor, newest first.
	ListForUser(ctx context.Context, userID int64) ([]domain.LedgerEntry, error)
	// Balance is the sum owed by the user minus the sum owed to the user.
	Balance(ctx context.Context, userID int64) (decimal.Decimal, error)
}

type ledgerRepository struct {
	db DBTX
}

func (r *ledgerRepository) Append(ctx context.Context, entry *domain.LedgerEntry) error {
	const query = `
        INSERT INTO ledger (proposal_id, from_user, to_user, amount, reason)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		entry.ProposalID,
		entry.FromUser,
		entry.ToUser,
		entry.Amount,
		entry.Reason,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *ledgerRepository) ListForUser(ctx context.Context, userID int64) ([]domain.LedgerEntry, error) {
	const query = `
        SELECT id, proposal_id, from_user, to_user, amount, reason, created_at
        FROM ledger
        WHERE from_user=$1 OR to_user=$1
        ORDER BY created_at DESC, id DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.LedgerEntry{}
	for rows.Next() {
		var entry domain.LedgerEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.ProposalID,
			&entry.FromUser,
			&entry.ToUser,
			&entry.Amount,
			&entry.Reason,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

// Balance is a single statement so both sums come from the same snapshot.
func (r *ledgerRepository) Balance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	const query = `
        SELECT COALESCE(SUM(CASE WHEN from_user=$1 THEN amount ELSE 0 END), 0)
             - COALESCE(SUM(CASE WHEN to_user=$1 THEN amount ELSE 0 END), 0)
        FROM ledger
        WHERE from_user=$1 OR to_user=$1`
	var balance decimal.Decimal
	if err := r.db.QueryRow(ctx, query, userID).Scan(&balance); err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}
