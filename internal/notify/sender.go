package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Sender delivers one notification. Callers make a single attempt.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// LogSender writes notifications to the log instead of sending them.
type LogSender struct {
	Logger *zap.Logger
}

func (s LogSender) Send(_ context.Context, n Notification) error {
	s.Logger.Info("notification",
		zap.String("id", n.ID),
		zap.String("kind", string(n.Kind)),
		zap.String("to", n.To),
		zap.String("subject", n.Subject))
	return nil
}

// ResendSender posts notifications to the Resend email API.
type ResendSender struct {
	apiKey  string
	from    string
	url     string
	timeout time.Duration
}

// NewResendSender builds a sender; Enabled reports false for an empty or placeholder key.
func NewResendSender(apiKey, from, url string, timeout time.Duration) *ResendSender {
	return &ResendSender{apiKey: apiKey, from: from, url: url, timeout: timeout}
}

// Enabled reports whether a usable API key is configured.
func (s *ResendSender) Enabled() bool {
	return s.apiKey != "" && !strings.HasPrefix(s.apiKey, "re_your_")
}

type resendRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

func (s *ResendSender) Send(_ context.Context, n Notification) error {
	if !s.Enabled() {
		return nil
	}
	agent := fiber.Post(s.url)
	agent.Set(fiber.HeaderAuthorization, "Bearer "+s.apiKey)
	agent.JSON(resendRequest{From: s.from, To: n.To, Subject: n.Subject, HTML: n.HTML})
	if s.timeout > 0 {
		agent.Timeout(s.timeout)
	}

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("resend request: %w", errs[0])
	}
	if code >= fiber.StatusBadRequest {
		return fmt.Errorf("resend responded %d: %s", code, strings.TrimSpace(string(body)))
	}
	return nil
}
