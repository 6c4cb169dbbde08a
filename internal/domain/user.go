package domain

import "time"

// User is one of the two participants of the ledger.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}
