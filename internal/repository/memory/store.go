// Package memory provides an in-process repository.Store. It backs the service
// when no Postgres DSN is configured and stands in for Postgres in tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lethalgem/accountability-app/internal/domain"
	"github.com/lethalgem/accountability-app/internal/repository"
)

type tables struct {
	users     map[int64]domain.User
	pair      *domain.Pair
	proposals map[int64]domain.Proposal
	ledger    []domain.LedgerEntry
	userSeq   int64
	propSeq   int64
	entrySeq  int64
}

func newTables() *tables {
	return &tables{
		users:     make(map[int64]domain.User),
		proposals: make(map[int64]domain.Proposal),
	}
}

func (t *tables) clone() *tables {
	c := &tables{
		users:     make(map[int64]domain.User, len(t.users)),
		proposals: make(map[int64]domain.Proposal, len(t.proposals)),
		ledger:    append([]domain.LedgerEntry(nil), t.ledger...),
		userSeq:   t.userSeq,
		propSeq:   t.propSeq,
		entrySeq:  t.entrySeq,
	}
	for id, u := range t.users {
		c.users[id] = u
	}
	for id, p := range t.proposals {
		c.proposals[id] = p
	}
	if t.pair != nil {
		pair := *t.pair
		c.pair = &pair
	}
	return c
}

type database struct {
	mu   sync.Mutex
	data *tables
	now  func() time.Time
}

// Store is a mutex guarded repository.Store. A transaction works on a copy of
// the tables and swaps it in on commit, so a failed unit of work leaves no trace.
type Store struct {
	db *database
	tx *tables
}

// NewStore creates an empty store. now stamps created_at columns; nil means time.Now.
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{db: &database{data: newTables(), now: now}}
}

var _ repository.Store = (*Store)(nil)

func (s *Store) Users() repository.UserRepository         { return userRepo{s} }
func (s *Store) Pairs() repository.PairRepository         { return pairRepo{s} }
func (s *Store) Proposals() repository.ProposalRepository { return proposalRepo{s} }
func (s *Store) Ledger() repository.LedgerRepository      { return ledgerRepo{s} }

// WithinTx serializes the unit of work against every other store access.
func (s *Store) WithinTx(ctx context.Context, fn func(repository.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	work := s.db.data.clone()
	if err := fn(&Store{db: s.db, tx: work}); err != nil {
		return err
	}
	s.db.data = work
	return nil
}

func (s *Store) view(fn func(t *tables) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return fn(s.db.data)
}

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *domain.User) error {
	return r.s.view(func(t *tables) error {
		for _, existing := range t.users {
			if strings.EqualFold(existing.Email, user.Email) {
				return repository.ErrDuplicateEmail
			}
		}
		t.userSeq++
		user.ID = t.userSeq
		user.CreatedAt = r.s.db.now()
		t.users[user.ID] = *user
		return nil
	})
}

func (r userRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	var out *domain.User
	err := r.s.view(func(t *tables) error {
		u, ok := t.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	var out *domain.User
	err := r.s.view(func(t *tables) error {
		for _, u := range t.users {
			if strings.EqualFold(u.Email, email) {
				found := u
				out = &found
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

type pairRepo struct{ s *Store }

func (r pairRepo) Get(_ context.Context) (*domain.Pair, error) {
	var out *domain.Pair
	err := r.s.view(func(t *tables) error {
		if t.pair == nil {
			return repository.ErrNotFound
		}
		pair := *t.pair
		out = &pair
		return nil
	})
	return out, err
}

func (r pairRepo) Join(_ context.Context, userID int64) (*domain.Pair, error) {
	var out *domain.Pair
	err := r.s.view(func(t *tables) error {
		switch {
		case t.pair == nil:
			t.pair = &domain.Pair{ID: domain.PairID, FirstUserID: userID, CreatedAt: r.s.db.now()}
		case t.pair.Full() || t.pair.FirstUserID == userID:
			return repository.ErrPairFull
		default:
			second := userID
			t.pair.SecondUserID = &second
		}
		pair := *t.pair
		out = &pair
		return nil
	})
	return out, err
}

type proposalRepo struct{ s *Store }

func (r proposalRepo) Create(_ context.Context, p *domain.Proposal) error {
	return r.s.view(func(t *tables) error {
		t.propSeq++
		p.ID = t.propSeq
		p.CreatedAt = r.s.db.now()
		t.proposals[p.ID] = *p
		return nil
	})
}

func (r proposalRepo) GetByID(_ context.Context, id int64) (*domain.Proposal, error) {
	var out *domain.Proposal
	err := r.s.view(func(t *tables) error {
		p, ok := t.proposals[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

func (r proposalRepo) ListForUser(_ context.Context, userID int64, statuses []domain.ProposalStatus) ([]domain.Proposal, error) {
	result := []domain.Proposal{}
	err := r.s.view(func(t *tables) error {
		for _, p := range t.proposals {
			if p.CreatedBy != userID && p.AssignedTo != userID {
				continue
			}
			if len(statuses) > 0 && !containsStatus(statuses, p.Status) {
				continue
			}
			result = append(result, p)
		}
		return nil
	})
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, err
}

func (r proposalRepo) ListOverdue(_ context.Context, now time.Time) ([]domain.Proposal, error) {
	result := []domain.Proposal{}
	err := r.s.view(func(t *tables) error {
		for _, p := range t.proposals {
			if p.Overdue(now) {
				result = append(result, p)
			}
		}
		return nil
	})
	sort.Slice(result, func(i, j int) bool {
		return result[i].Deadline.Before(result[j].Deadline)
	})
	return result, err
}

func (r proposalRepo) UpdateStatus(_ context.Context, id int64, change repository.StatusChange) (*domain.Proposal, error) {
	var out *domain.Proposal
	err := r.s.view(func(t *tables) error {
		p, ok := t.proposals[id]
		if !ok || !containsStatus(change.From, p.Status) {
			return repository.ErrStatusConflict
		}
		p.Status = change.To
		if change.AcceptedAt != nil {
			at := *change.AcceptedAt
			p.AcceptedAt = &at
		}
		if change.CompletedAt != nil {
			at := *change.CompletedAt
			p.CompletedAt = &at
		}
		t.proposals[id] = p
		out = &p
		return nil
	})
	return out, err
}

// SetDeadline rewrites a deadline. It exists for tests and local tooling that
// need a proposal to become overdue without waiting.
func (s *Store) SetDeadline(id int64, deadline time.Time) error {
	return s.view(func(t *tables) error {
		p, ok := t.proposals[id]
		if !ok {
			return repository.ErrNotFound
		}
		p.Deadline = deadline
		t.proposals[id] = p
		return nil
	})
}

type ledgerRepo struct{ s *Store }

func (r ledgerRepo) Append(_ context.Context, entry *domain.LedgerEntry) error {
	return r.s.view(func(t *tables) error {
		t.entrySeq++
		entry.ID = t.entrySeq
		entry.CreatedAt = r.s.db.now()
		t.ledger = append(t.ledger, *entry)
		return nil
	})
}

func (r ledgerRepo) ListForUser(_ context.Context, userID int64) ([]domain.LedgerEntry, error) {
	result := []domain.LedgerEntry{}
	err := r.s.view(func(t *tables) error {
		for i := len(t.ledger) - 1; i >= 0; i-- {
			e := t.ledger[i]
			if e.FromUser == userID || e.ToUser == userID {
				result = append(result, e)
			}
		}
		return nil
	})
	return result, err
}

func (r ledgerRepo) Balance(_ context.Context, userID int64) (decimal.Decimal, error) {
	balance := decimal.Zero
	err := r.s.view(func(t *tables) error {
		balance = domain.NetBalance(userID, t.ledger)
		return nil
	})
	return balance, err
}

func containsStatus(list []domain.ProposalStatus, status domain.ProposalStatus) bool {
	for _, s := range list {
		if s == status {
			return true
		}
	}
	return false
}
