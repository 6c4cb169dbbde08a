package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/lethalgem/accountability-app/internal/domain"
)

// PairRepository persists the single two-member pair.
type PairRepository interface {
	Get(ctx context.Context) (*domain.Pair, error)
	// Join seats userID in the pair, returning ErrPairFull when both seats are taken.
	Join(ctx context.Context, userID int64) (*domain.Pair, error)
}

type pairRepository struct {
	db DBTX
}

func (r *pairRepository) Get(ctx context.Context) (*domain.Pair, error) {
	const query = `
        SELECT id, first_user_id, second_user_id, created_at
        FROM pairs WHERE id=$1`

	var pair domain.Pair
	if err := r.db.QueryRow(ctx, query, domain.PairID).Scan(
		&pair.ID,
		&pair.FirstUserID,
		&pair.SecondUserID,
		&pair.CreatedAt,
	); err != nil {
		return nil, notFound(err)
	}
	return &pair, nil
}

// Join relies on the row lock taken by ON CONFLICT DO UPDATE: of two concurrent
// joiners only one sees an empty second seat.
func (r *pairRepository) Join(ctx context.Context, userID int64) (*domain.Pair, error) {
	const query = `
        INSERT INTO pairs (id, first_user_id)
        VALUES ($1, $2)
        ON CONFLICT (id) DO UPDATE SET second_user_id = EXCLUDED.first_user_id
        WHERE pairs.second_user_id IS NULL AND pairs.first_user_id <> EXCLUDED.first_user_id
        RETURNING id, first_user_id, second_user_id, created_at`

	var pair domain.Pair
	if err := r.db.QueryRow(ctx, query, domain.PairID, userID).Scan(
		&pair.ID,
		&pair.FirstUserID,
		&pair.SecondUserID,
		&pair.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPairFull
		}
		return nil, err
	}
	return &pair, nil
}
