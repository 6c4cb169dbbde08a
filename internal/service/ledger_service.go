package service

import (
	"context"
	"fmt"

	"github.com/lethalgem/accountability-app/internal/domain"
	"github.com/lethalgem/accountability-app/internal/notify"
	"github.com/lethalgem/accountability-app/internal/repository"
	apperrors "github.com/lethalgem/accountability-app/pkg/util/errorutil"
)

// LedgerService exposes the read side of the ledger. Entries are only ever
// written by ProposalService together with a status change.
type LedgerService struct {
	store repository.Store
}

// BalanceSummary is a user's net position with a human readable line.
type BalanceSummary struct {
	Balance domain.Balance
	Partner *domain.User
	Summary string
}

// NewLedgerService constructs the service.
func NewLedgerService(store repository.Store) *LedgerService {
	return &LedgerService{store: store}
}

// Entries lists the user's ledger entries, newest first.
func (s *LedgerService) Entries(ctx context.Context, userID int64) ([]domain.LedgerEntry, error) {
	entries, err := s.store.Ledger().ListForUser(ctx, userID)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("list ledger: %w", err))
	}
	return entries, nil
}

// Balance computes the user's net balance against the partner.
func (s *LedgerService) Balance(ctx context.Context, userID int64) (*BalanceSummary, error) {
	amount, err := s.store.Ledger().Balance(ctx, userID)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("ledger balance: %w", err))
	}
	partner, err := partnerUser(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}

	balance := domain.Balance{UserID: userID, Amount: amount}
	return &BalanceSummary{
		Balance: balance,
		Partner: partner,
		Summary: summarize(balance, partner),
	}, nil
}

func summarize(balance domain.Balance, partner *domain.User) string {
	name := "your partner"
	if partner != nil {
		name = partner.Name
	}
	owed := notify.FormatMoney(balance.Amount.Abs())
	switch balance.Direction() {
	case domain.BalanceOwes:
		return fmt.Sprintf("You owe %s %s", name, owed)
	case domain.BalanceOwed:
		return fmt.Sprintf("%s owes you %s", name, owed)
	default:
		return "All settled up!"
	}
}
