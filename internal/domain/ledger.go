package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry records one debt transfer: FromUser owes ToUser Amount.
// Entries are immutable; a reversal is a new entry with the users swapped.
type LedgerEntry struct {
	ID         int64
	ProposalID int64
	FromUser   int64
	ToUser     int64
	Amount     decimal.Decimal
	Reason     string
	CreatedAt  time.Time
}

// BalanceDirection describes who owes whom from one user's point of view.
type BalanceDirection string

const (
	BalanceOwes    BalanceDirection = "owes"
	BalanceOwed    BalanceDirection = "owed"
	BalanceSettled BalanceDirection = "settled"
)

// Balance is the net position of a user: positive means the user owes the partner.
type Balance struct {
	UserID int64
	Amount decimal.Decimal
}

// Direction interprets the sign of the balance.
func (b Balance) Direction() BalanceDirection {
	switch b.Amount.Sign() {
	case 1:
		return BalanceOwes
	case -1:
		return BalanceOwed
	default:
		return BalanceSettled
	}
}

// NetBalance projects entries onto userID: sum of amounts owed minus sum of amounts owed to.
func NetBalance(userID int64, entries []LedgerEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if e.FromUser == userID {
			total = total.Add(e.Amount)
		}
		if e.ToUser == userID {
			total = total.Sub(e.Amount)
		}
	}
	return total
}
