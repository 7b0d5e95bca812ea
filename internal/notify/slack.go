// Package notify implements the outbound notification collaborator: a
// Slack-compatible incoming webhook that accepts a JSON body {"text": ...}
// and answers 2xx on acceptance.
//
// Error semantics are deliberately split in two:
//
//   - ErrNotConfigured (no webhook URL): a configuration fault. Callers must
//     treat it as fatal and surface it, not swallow it.
//   - Anything else (network failure, non-2xx): a transient send fault. The
//     worker records a failed status and moves on; the row stays retryable.
//
// Webhook-style integrations cannot route to arbitrary channels: the channel
// is fixed by the webhook itself. The recipient handling here only formats
// mentions and falls back to the default channel label; it does not multiplex
// channels.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nikola-86/jelovnik/internal/domain"
)

// ErrNotConfigured is returned when no webhook URL is set. It is the one
// fatal error of the notification path; everything else is transient.
var ErrNotConfigured = errors.New("slack webhook URL is not configured")

// SlackNotifier sends meal-choice notifications through an incoming webhook.
// Construct it with NewSlackNotifier; the zero value refuses to send.
type SlackNotifier struct {
	webhookURL     string
	defaultChannel string
	client         *http.Client
}

// NewSlackNotifier builds a notifier for the given webhook URL. An empty
// webhookURL is allowed at construction time; sends will fail with
// ErrNotConfigured. defaultChannel is the recipient label used when an
// employee has no Slack ID (e.g. "#general"). timeout bounds each outbound
// call.
func NewSlackNotifier(webhookURL, defaultChannel string, timeout time.Duration) *SlackNotifier {
	if defaultChannel == "" {
		defaultChannel = "#general"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SlackNotifier{
		webhookURL:     webhookURL,
		defaultChannel: defaultChannel,
		client:         &http.Client{Timeout: timeout},
	}
}

// Notify formats and sends one meal-choice notification. isNew selects the
// header line ("New meal choice recorded!" vs "Meal choice updated!").
func (n *SlackNotifier) Notify(ctx context.Context, employee domain.Employee, choice domain.MealChoice, isNew bool) error {
	message := buildMessage(employee, choice, isNew)
	recipient := n.determineRecipient(employee)
	return n.post(ctx, formatMessage(recipient, message))
}

// SendTest sends an arbitrary text message through the webhook. Used by the
// connection-test endpoint.
func (n *SlackNotifier) SendTest(ctx context.Context, message string) error {
	return n.post(ctx, message)
}

// buildMessage renders the notification body: action header, employee name,
// meal label, and ISO date.
func buildMessage(employee domain.Employee, choice domain.MealChoice, isNew bool) string {
	action := "Meal choice updated!"
	if isNew {
		action = "New meal choice recorded!"
	}
	return fmt.Sprintf("%s\n*Employee:* %s\n*Meal:* %s\n*Date:* %s",
		action, employee.Name, choice.Choice, choice.Date)
}

// determineRecipient resolves where the message should go. No Slack ID means
// the default channel. An identifier already carrying a sigil ("@" user,
// "#" channel) is used as-is; a bare identifier is treated as a user id.
func (n *SlackNotifier) determineRecipient(employee domain.Employee) string {
	id := employee.SlackID
	if id == "" {
		return n.defaultChannel
	}
	if strings.HasPrefix(id, "@") || strings.HasPrefix(id, "#") {
		return id
	}
	return "@" + id
}

// formatMessage prepends an inline mention when the recipient is a user.
// Channel recipients get the plain message; the webhook's own channel does
// the actual routing.
func formatMessage(recipient, message string) string {
	if strings.HasPrefix(recipient, "#") {
		return message
	}
	userID := strings.TrimPrefix(recipient, "@")
	return fmt.Sprintf("<@%s> %s", userID, message)
}

// post sends the webhook payload. A missing URL is ErrNotConfigured; any
// transport error or non-2xx response is a transient send fault.
func (n *SlackNotifier) post(ctx context.Context, text string) error {
	if n.webhookURL == "" {
		return ErrNotConfigured
	}

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send slack webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}
