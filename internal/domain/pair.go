package domain

import "time"

// PairID is the identifier of the single pair record.
const PairID int16 = 1

// Pair binds exactly two users. The first registered user opens the pair and
// the second one completes it; nobody else can join.
type Pair struct {
	ID           int16
	FirstUserID  int64
	SecondUserID *int64
	CreatedAt    time.Time
}

// Full reports whether both seats are taken.
func (p *Pair) Full() bool {
	return p != nil && p.SecondUserID != nil
}

// Includes reports whether userID is a member of the pair.
func (p *Pair) Includes(userID int64) bool {
	if p == nil {
		return false
	}
	return p.FirstUserID == userID || (p.SecondUserID != nil && *p.SecondUserID == userID)
}

// Partner resolves the other member for userID.
func (p *Pair) Partner(userID int64) (int64, bool) {
	if !p.Full() {
		return 0, false
	}
	switch userID {
	case p.FirstUserID:
		return *p.SecondUserID, true
	case *p.SecondUserID:
		return p.FirstUserID, true
	default:
		return 0, false
	}
}
