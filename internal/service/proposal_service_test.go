package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lethalgem/accountability-app/internal/config"
	"github.com/lethalgem/accountability-app/internal/domain"
	"github.com/lethalgem/accountability-app/internal/events"
	"github.com/lethalgem/accountability-app/internal/repository/memory"
	apperrors "github.com/lethalgem/accountability-app/pkg/util/errorutil"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, 0, len(d.events))
	for _, e := range d.events {
		out = append(out, e.Type)
	}
	return out
}

var testAuthConfig = config.AuthConfig{
	JWTSecret:           "test-secret",
	AccessTokenTTLHours: 72,
	BcryptCost:          4,
	MinPasswordLength:   6,
}

type fixture struct {
	clock      *testClock
	store      *memory.Store
	dispatcher *recordingDispatcher
	auth       *AuthService
	proposals  *ProposalService
	ledger     *LedgerService
	alice      *domain.User
	bob        *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)}
	store := memory.NewStore(clock.Now)
	dispatcher := &recordingDispatcher{}
	f := &fixture{
		clock:      clock,
		store:      store,
		dispatcher: dispatcher,
		auth:       NewAuthService(testAuthConfig, store),
		proposals: NewProposalService(ProposalDependencies{
			Store:      store,
			Dispatcher: dispatcher,
			Clock:      clock.Now,
		}),
		ledger: NewLedgerService(store),
	}

	ctx := context.Background()
	alice, err := f.auth.Register(ctx, "Alice", "alice@test.com", "password123")
	require.NoError(t, err)
	bob, err := f.auth.Register(ctx, "Bob", "bob@test.com", "password123")
	require.NoError(t, err)
	f.alice, f.bob = alice.User, bob.User
	return f
}

// propose has alice propose a task to bob.
func (f *fixture) propose(t *testing.T, title string, penalty int64) *domain.Proposal {
	t.Helper()
	p, err := f.proposals.Create(context.Background(), f.alice.ID, ProposalCreateInput{
		Title:         title,
		Deadline:      f.clock.Now().Add(24 * time.Hour),
		PenaltyAmount: decimal.NewFromInt(penalty),
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) accepted(t *testing.T, title string, penalty int64) *domain.Proposal {
	t.Helper()
	p := f.propose(t, title, penalty)
	res, err := f.proposals.Accept(context.Background(), f.bob.ID, p.ID)
	require.NoError(t, err)
	return res.Proposal
}

func (f *fixture) balance(t *testing.T, userID int64) string {
	t.Helper()
	summary, err := f.ledger.Balance(context.Background(), userID)
	require.NoError(t, err)
	return summary.Balance.Amount.StringFixed(2)
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, code), "expected %s, got %v", code, err)
}

func TestCreateAssignsPartner(t *testing.T) {
	f := newFixture(t)
	desc := "  the whole garage  "
	p, err := f.proposals.Create(context.Background(), f.alice.ID, ProposalCreateInput{
		Title:         "  Clean the garage ",
		Description:   &desc,
		Deadline:      f.clock.Now().Add(time.Hour),
		PenaltyAmount: decimal.RequireFromString("25.5"),
	})
	require.NoError(t, err)

	assert.Equal(t, f.alice.ID, p.CreatedBy)
	assert.Equal(t, f.bob.ID, p.AssignedTo)
	assert.Equal(t, "Clean the garage", p.Title)
	require.NotNil(t, p.Description)
	assert.Equal(t, "the whole garage", *p.Description)
	assert.Equal(t, domain.ProposalStatusPending, p.Status)
	assert.Equal(t, "25.50", p.PenaltyAmount.StringFixed(2))
	assert.Nil(t, p.AcceptedAt)
	assert.Nil(t, p.CompletedAt)
	assert.Equal(t, []events.EventType{events.EventProposalCreated}, f.dispatcher.types())
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	now := f.clock.Now()
	cases := []struct {
		name  string
		input ProposalCreateInput
	}{
		{"blank title", ProposalCreateInput{Title: "   ", Deadline: now.Add(time.Hour)}},
		{"missing deadline", ProposalCreateInput{Title: "x"}},
		{"deadline now", ProposalCreateInput{Title: "x", Deadline: now}},
		{"deadline past", ProposalCreateInput{Title: "x", Deadline: now.Add(-time.Minute)}},
		{"negative penalty", ProposalCreateInput{Title: "x", Deadline: now.Add(time.Hour), PenaltyAmount: decimal.NewFromInt(-1)}},
		{"sub-cent penalty", ProposalCreateInput{Title: "x", Deadline: now.Add(time.Hour), PenaltyAmount: decimal.RequireFromString("1.005")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.proposals.Create(context.Background(), f.alice.ID, tc.input)
			assertCode(t, err, apperrors.CodeValidation)
		})
	}
}

func TestCreateWithZeroPenalty(t *testing.T) {
	f := newFixture(t)
	p := f.propose(t, "Free task", 0)
	assert.True(t, p.PenaltyAmount.IsZero())
}

func TestCreateWithoutPartner(t *testing.T) {
	clock := &testClock{now: time.Now()}
	store := memory.NewStore(clock.Now)
	authSvc := NewAuthService(testAuthConfig, store)
	proposals := NewProposalService(ProposalDependencies{Store: store, Clock: clock.Now})

	alone, err := authSvc.Register(context.Background(), "Alice", "alice@test.com", "password123")
	require.NoError(t, err)

	_, err = proposals.Create(context.Background(), alone.User.ID, ProposalCreateInput{
		Title:    "Anything",
		Deadline: clock.Now().Add(time.Hour),
	})
	assertCode(t, err, apperrors.CodeValidation)
	assert.Contains(t, err.Error(), "no partner found")
}

func TestHappyPathLeavesLedgerEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.accepted(t, "Walk the dog", 10)
	require.NotNil(t, p.AcceptedAt)

	f.clock.Advance(time.Hour)
	res, err := f.proposals.Complete(ctx, f.bob.ID, p.ID)
	require.NoError(t, err)
	require.NotNil(t, res.Proposal.CompletedAt)
	assert.Nil(t, res.LedgerEntry)
	assert.True(t, res.Proposal.CompletedAt.After(*res.Proposal.AcceptedAt))

	res, err = f.proposals.Verify(ctx, f.alice.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProposalStatusVerified, res.Proposal.Status)

	entries, err := f.ledger.Entries(ctx, f.alice.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, "0.00", f.balance(t, f.alice.ID))
	assert.Equal(t, "0.00", f.balance(t, f.bob.ID))

	assert.Equal(t, []events.EventType{
		events.EventProposalCreated,
		events.EventProposalStatusChanged,
		events.EventProposalCompleted,
		events.EventProposalStatusChanged,
	}, f.dispatcher.types())
}

func TestFailChargesAssignee(t *testing.T) {
	f := newFixture(t)
	p := f.accepted(t, "Clean the garage", 25)

	res, err := f.proposals.Fail(context.Background(), f.alice.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProposalStatusFailed, res.Proposal.Status)
	require.NotNil(t, res.LedgerEntry)
	assert.Equal(t, f.bob.ID, res.LedgerEntry.FromUser)
	assert.Equal(t, f.alice.ID, res.LedgerEntry.ToUser)
	assert.Equal(t, "Failed: Clean the garage", res.LedgerEntry.Reason)

	assert.Equal(t, "25.00", f.balance(t, f.bob.ID))
	assert.Equal(t, "-25.00", f.balance(t, f.alice.ID))

	summary, err := f.ledger.Balance(context.Background(), f.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "You owe Alice $25.00", summary.Summary)
	summary, err = f.ledger.Balance(context.Background(), f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bob owes you $25.00", summary.Summary)
}

func TestFailFromCompleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.accepted(t, "Mow the lawn", 5)
	_, err := f.proposals.Complete(ctx, f.bob.ID, p.ID)
	require.NoError(t, err)

	res, err := f.proposals.Fail(ctx, f.alice.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProposalStatusFailed, res.Proposal.Status)
	assert.Equal(t, "5.00", f.balance(t, f.bob.ID))
}

func TestFailuresAccumulate(t *testing.T) {
	f := newFixture(t)
	first := f.accepted(t, "Dishes", 10)
	second := f.accepted(t, "Laundry", 15)

	_, err := f.proposals.Fail(context.Background(), f.alice.ID, first.ID)
	require.NoError(t, err)
	_, err = f.proposals.Fail(context.Background(), f.alice.ID, second.ID)
	require.NoError(t, err)

	assert.Equal(t, "25.00", f.balance(t, f.bob.ID))
	entries, err := f.ledger.Entries(context.Background(), f.bob.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Failed: Laundry", entries[0].Reason)
}

func TestOverrideReversesFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.accepted(t, "Clean the garage", 25)
	_, err := f.proposals.Fail(ctx, f.alice.ID, p.ID)
	require.NoError(t, err)

	res, err := f.proposals.Override(ctx, f.alice.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProposalStatusVerified, res.Proposal.Status)
	require.NotNil(t, res.LedgerEntry)
	assert.Equal(t, f.alice.ID, res.LedgerEntry.FromUser)
	assert.Equal(t, f.bob.ID, res.LedgerEntry.ToUser)
	assert.Equal(t, "Override: Clean the garage", res.LedgerEntry.Reason)

	entries, err := f.ledger.Entries(ctx, f.alice.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, "0.00", f.balance(t, f.alice.ID))
	assert.Equal(t, "0.00", f.balance(t, f.bob.ID))

	summary, err := f.ledger.Balance(ctx, f.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "All settled up!", summary.Summary)
}

func TestZeroPenaltyFailStillRecordsEntry(t *testing.T) {
	f := newFixture(t)
	p := f.accepted(t, "Symbolic", 0)
	res, err := f.proposals.Fail(context.Background(), f.alice.ID, p.ID)
	require.NoError(t, err)
	require.NotNil(t, res.LedgerEntry)
	assert.True(t, res.LedgerEntry.Amount.IsZero())
	assert.Equal(t, "0.00", f.balance(t, f.bob.ID))
}

func TestWrongRoleIsInvalidTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.propose(t, "Dishes", 5)

	_, err := f.proposals.Accept(ctx, f.alice.ID, p.ID)
	assertCode(t, err, apperrors.CodeInvalidTransition)

	accepted, err := f.proposals.Accept(ctx, f.bob.ID, p.ID)
	require.NoError(t, err)

	_, err = f.proposals.Fail(ctx, f.bob.ID, accepted.Proposal.ID)
	assertCode(t, err, apperrors.CodeInvalidTransition)
	_, err = f.proposals.Complete(ctx, f.alice.ID, accepted.Proposal.ID)
	assertCode(t, err, apperrors.CodeInvalidTransition)

	stored, err := f.store.Proposals().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProposalStatusAccepted, stored.Status)
}

func TestWrongStateMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.propose(t, "Dishes", 5)

	cases := []struct {
		actor   int64
		fn      func(context.Context, int64, int64) (*TransitionResult, error)
		message string
	}{
		{f.bob.ID, f.proposals.Complete, "proposal must be accepted first"},
		{f.alice.ID, f.proposals.Verify, "proposal must be marked complete first"},
		{f.alice.ID, f.proposals.Fail, "can only fail accepted or completed proposals"},
		{f.alice.ID, f.proposals.Override, "can only override failed proposals"},
	}
	for _, tc := range cases {
		_, err := tc.fn(ctx, tc.actor, p.ID)
		assertCode(t, err, apperrors.CodeInvalidTransition)
		assert.Equal(t, tc.message, apperrors.ToDomainError(err).Message)
	}
}

func TestTerminalStatesRejectEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rejected := f.propose(t, "Rejected", 5)
	_, err := f.proposals.Reject(ctx, f.bob.ID, rejected.ID)
	require.NoError(t, err)

	verified := f.accepted(t, "Verified", 5)
	_, err = f.proposals.Complete(ctx, f.bob.ID, verified.ID)
	require.NoError(t, err)
	_, err = f.proposals.Verify(ctx, f.alice.ID, verified.ID)
	require.NoError(t, err)

	ops := []func(context.Context, int64, int64) (*TransitionResult, error){
		f.proposals.Accept, f.proposals.Reject, f.proposals.Complete,
		f.proposals.Verify, f.proposals.Fail, f.proposals.Override,
	}
	for _, id := range []int64{rejected.ID, verified.ID} {
		for _, actor := range []int64{f.alice.ID, f.bob.ID} {
			for _, op := range ops {
				_, err := op(ctx, actor, id)
				assertCode(t, err, apperrors.CodeInvalidTransition)
			}
		}
	}

	entries, err := f.ledger.Entries(ctx, f.alice.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNonParticipantSeesNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.propose(t, "Private", 5)

	outsider := &domain.User{Name: "Eve", Email: "eve@test.com"}
	require.NoError(t, f.store.Users().Create(ctx, outsider))

	_, err := f.proposals.Get(ctx, outsider.ID, p.ID)
	assertCode(t, err, apperrors.CodeNotFound)
	_, err = f.proposals.Accept(ctx, outsider.ID, p.ID)
	assertCode(t, err, apperrors.CodeNotFound)
	_, err = f.proposals.Get(ctx, f.alice.ID, 9999)
	assertCode(t, err, apperrors.CodeNotFound)

	list, err := f.proposals.List(ctx, outsider.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestGetResolvesParticipants(t *testing.T) {
	f := newFixture(t)
	p := f.propose(t, "Dishes", 5)

	detail, err := f.proposals.Get(context.Background(), f.bob.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", detail.Creator.Name)
	assert.Equal(t, "Bob", detail.Assignee.Name)
}

func TestSystemTransitionNotCallable(t *testing.T) {
	f := newFixture(t)
	p := f.accepted(t, "Dishes", 5)
	_, err := f.proposals.Transition(context.Background(), f.alice.ID, p.ID, domain.TransitionExpire)
	assertCode(t, err, apperrors.CodeValidation)
}

func TestListSweepsOverdue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	overdue := f.accepted(t, "Take out trash", 5)
	pending := f.propose(t, "Still pending", 7)

	f.clock.Advance(25 * time.Hour)

	list, err := f.proposals.List(ctx, f.bob.ID, nil)
	require.NoError(t, err)
	require.Len(t, list, 2)
	byID := map[int64]domain.Proposal{}
	for _, p := range list {
		byID[p.ID] = p
	}
	assert.Equal(t, domain.ProposalStatusFailed, byID[overdue.ID].Status)
	assert.Equal(t, domain.ProposalStatusPending, byID[pending.ID].Status)

	entries, err := f.ledger.Entries(ctx, f.bob.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Overdue: Take out trash", entries[0].Reason)
	assert.Equal(t, f.bob.ID, entries[0].FromUser)
	assert.Equal(t, "5.00", f.balance(t, f.bob.ID))

	_, err = f.proposals.List(ctx, f.alice.ID, nil)
	require.NoError(t, err)
	entries, err = f.ledger.Entries(ctx, f.bob.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestListFiltersByStatus(t *testing.T) {
	f := newFixture(t)
	f.accepted(t, "Accepted", 5)
	f.propose(t, "Pending", 5)

	list, err := f.proposals.List(context.Background(), f.alice.ID, []domain.ProposalStatus{domain.ProposalStatusPending})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Pending", list[0].Title)
}

func TestSweepSkipsNonAccepted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.propose(t, "Pending", 5)
	completed := f.accepted(t, "Completed", 5)
	_, err := f.proposals.Complete(ctx, f.bob.ID, completed.ID)
	require.NoError(t, err)

	f.clock.Advance(48 * time.Hour)
	failed, err := f.proposals.SweepOverdue(ctx)
	require.NoError(t, err)
	assert.Empty(t, failed)
}

func TestSweepAtDeadlineIsNotOverdue(t *testing.T) {
	f := newFixture(t)
	f.accepted(t, "Exactly on time", 5)

	f.clock.Advance(24 * time.Hour)
	failed, err := f.proposals.SweepOverdue(context.Background())
	require.NoError(t, err)
	assert.Empty(t, failed)

	f.clock.Advance(time.Second)
	failed, err = f.proposals.SweepOverdue(context.Background())
	require.NoError(t, err)
	assert.Len(t, failed, 1)
}

func TestConcurrentSweepsChargeOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		f.accepted(t, "Chore", 3)
	}
	f.clock.Advance(48 * time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.proposals.SweepOverdue(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entries, err := f.ledger.Entries(ctx, f.bob.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 5)
	assert.Equal(t, "15.00", f.balance(t, f.bob.ID))
}

func TestSweepPublishesOverdueFailure(t *testing.T) {
	f := newFixture(t)
	p := f.accepted(t, "Chore", 3)
	f.clock.Advance(48 * time.Hour)

	_, err := f.proposals.SweepOverdue(context.Background())
	require.NoError(t, err)

	f.dispatcher.mu.Lock()
	defer f.dispatcher.mu.Unlock()
	last := f.dispatcher.events[len(f.dispatcher.events)-1]
	assert.Equal(t, events.EventProposalFailed, last.Type)
	assert.Equal(t, p.ID, last.Proposal.ID)
	assert.Nil(t, last.ActorID)
	payload, ok := last.Payload.(events.ProposalFailedPayload)
	require.True(t, ok)
	assert.True(t, payload.Overdue)
	assert.NotZero(t, payload.LedgerEntryID)
}

func TestConcurrentTransitionsApplyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.accepted(t, "Race", 4)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.proposals.Fail(ctx, f.alice.ID, p.ID); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, "4.00", f.balance(t, f.bob.ID))
}
