package notify

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind identifies one of the notification shapes.
type Kind string

const (
	KindProposalCreated Kind = "proposal_created"
	KindStatusChanged   Kind = "status_changed"
	KindCompleted       Kind = "completed"
	KindFailed          Kind = "failed"
)

// Notification is a rendered email waiting for delivery.
type Notification struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	HTML      string    `json:"html"`
	CreatedAt time.Time `json:"created_at"`
}

func newNotification(kind Kind, to, subject, body string) Notification {
	return Notification{
		ID:        uuid.NewString(),
		Kind:      kind,
		To:        to,
		Subject:   subject,
		HTML:      body,
		CreatedAt: time.Now().UTC(),
	}
}

// ProposalCreated tells the assignee a task was proposed to them.
func ProposalCreated(to, proposerName, title string, penalty decimal.Decimal) Notification {
	return newNotification(KindProposalCreated, to,
		fmt.Sprintf("New proposal from %s: %s", proposerName, title),
		fmt.Sprintf(`<h2>New Task Proposed</h2>
<p><strong>%s</strong> has proposed a task for you:</p>
<p><strong>%s</strong></p>
<p>Penalty: <strong>%s</strong></p>
<p>Log in to accept or reject this proposal.</p>`,
			esc(proposerName), esc(title), FormatMoney(penalty)))
}

// StatusChanged tells the creator the assignee accepted or rejected.
func StatusChanged(to, actorName, title, status string) Notification {
	return newNotification(KindStatusChanged, to,
		fmt.Sprintf("%s %s your proposal: %s", actorName, status, title),
		fmt.Sprintf(`<h2>Proposal %s</h2>
<p><strong>%s</strong> has <strong>%s</strong> your proposal: <strong>%s</strong></p>`,
			esc(capitalize(status)), esc(actorName), esc(status), esc(title)))
}

// Completed asks the creator to verify a task the assignee reports done.
func Completed(to, completerName, title string) Notification {
	return newNotification(KindCompleted, to,
		fmt.Sprintf("%s completed: %s - Please verify", completerName, title),
		fmt.Sprintf(`<h2>Task Completed</h2>
<p><strong>%s</strong> says they completed: <strong>%s</strong></p>
<p>Log in to verify or mark as failed.</p>`,
			esc(completerName), esc(title)))
}

// Failed tells the assignee a penalty was recorded.
func Failed(to, title string, penalty decimal.Decimal) Notification {
	return newNotification(KindFailed, to,
		fmt.Sprintf("Task failed: %s - %s penalty", title, FormatMoney(penalty)),
		fmt.Sprintf(`<h2>Task Failed</h2>
<p>The task <strong>%s</strong> has been marked as failed.</p>
<p>A penalty of <strong>%s</strong> has been recorded.</p>`,
			esc(title), FormatMoney(penalty)))
}

// FormatMoney renders an amount as dollars with two decimals, e.g. "$25.00".
func FormatMoney(amount decimal.Decimal) string {
	if amount.IsNegative() {
		return "-$" + amount.Abs().StringFixed(2)
	}
	return "$" + amount.StringFixed(2)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func esc(s string) string {
	return html.EscapeString(s)
}
