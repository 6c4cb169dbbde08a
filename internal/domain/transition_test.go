package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		transition Transition
		actor      Role
		from       []ProposalStatus
		to         ProposalStatus
	}{
		{TransitionAccept, RoleAssignee, []ProposalStatus{ProposalStatusPending}, ProposalStatusAccepted},
		{TransitionReject, RoleAssignee, []ProposalStatus{ProposalStatusPending}, ProposalStatusRejected},
		{TransitionComplete, RoleAssignee, []ProposalStatus{ProposalStatusAccepted}, ProposalStatusCompleted},
		{TransitionVerify, RoleCreator, []ProposalStatus{ProposalStatusCompleted}, ProposalStatusVerified},
		{TransitionFail, RoleCreator, []ProposalStatus{ProposalStatusAccepted, ProposalStatusCompleted}, ProposalStatusFailed},
		{TransitionOverride, RoleCreator, []ProposalStatus{ProposalStatusFailed}, ProposalStatusVerified},
		{TransitionExpire, RoleSystem, []ProposalStatus{ProposalStatusAccepted}, ProposalStatusFailed},
	}
	for _, tc := range cases {
		t.Run(string(tc.transition), func(t *testing.T) {
			rule, ok := RuleFor(tc.transition)
			require.True(t, ok)
			assert.Equal(t, tc.actor, rule.Actor)
			assert.ElementsMatch(t, tc.from, rule.From)
			assert.Equal(t, tc.to, rule.To)
			assert.NotEmpty(t, rule.Message)

			for _, status := range ProposalStatuses {
				assert.Equal(t, containsStatus(tc.from, status), rule.Allows(status), "from %s", status)
			}
		})
	}
}

func TestTerminalStatesAdmitNothing(t *testing.T) {
	for _, status := range []ProposalStatus{ProposalStatusRejected, ProposalStatusVerified} {
		assert.True(t, status.Terminal())
		for name, rule := range transitionRules {
			assert.False(t, rule.Allows(status), "%s must not fire from %s", name, status)
		}
	}
}

func TestRuleEntry(t *testing.T) {
	p := &Proposal{ID: 7, CreatedBy: 1, AssignedTo: 2, Title: "Run 5k", PenaltyAmount: decimal.NewFromInt(25)}

	fail, _ := RuleFor(TransitionFail)
	charge := fail.Entry(p)
	require.NotNil(t, charge)
	assert.Equal(t, int64(2), charge.FromUser)
	assert.Equal(t, int64(1), charge.ToUser)
	assert.True(t, charge.Amount.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, "Failed: Run 5k", charge.Reason)

	override, _ := RuleFor(TransitionOverride)
	reversal := override.Entry(p)
	require.NotNil(t, reversal)
	assert.Equal(t, int64(1), reversal.FromUser)
	assert.Equal(t, int64(2), reversal.ToUser)
	assert.Equal(t, "Override: Run 5k", reversal.Reason)

	expire, _ := RuleFor(TransitionExpire)
	assert.Equal(t, "Overdue: Run 5k", expire.Entry(p).Reason)

	accept, _ := RuleFor(TransitionAccept)
	assert.Nil(t, accept.Entry(p))

	net := NetBalance(2, []LedgerEntry{*charge, *reversal})
	assert.True(t, net.IsZero())
}

func TestParseStatuses(t *testing.T) {
	statuses, err := ParseStatuses(" Pending, accepted ")
	require.NoError(t, err)
	assert.Equal(t, []ProposalStatus{ProposalStatusPending, ProposalStatusAccepted}, statuses)

	statuses, err = ParseStatuses("")
	require.NoError(t, err)
	assert.Nil(t, statuses)

	_, err = ParseStatuses("pending,archived")
	assert.Error(t, err)
}

func containsStatus(list []ProposalStatus, s ProposalStatus) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
