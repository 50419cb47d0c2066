// Package notify pushes loop suggestions and activity digests to chat
// webhooks.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/zulandar/campaignyard/internal/campaign"
	"github.com/zulandar/campaignyard/internal/config"
)

// Color constants for suggestion priority.
const (
	ColorHigh   = "#e53935"
	ColorMedium = "#ff9800"
	ColorLow    = "#2196f3"
)

// Notice describes one suggestion worth telling someone about, or, when
// Digest is set, a periodic summary of loop activity.
type Notice struct {
	Campaign   string
	Suggestion campaign.LoopSuggestion
	Digest     *Digest
}

// Field is a short labelled value shown beside the notice body.
type Field struct {
	Name  string
	Value string
	Short bool
}

// Notifier delivers notices.
type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}

// Title returns the one-line heading used by every destination.
func (n Notice) Title() string {
	if n.Digest != nil {
		return fmt.Sprintf("[%s] Loop digest", n.Campaign)
	}
	return fmt.Sprintf("[%s] %s suggests: %s", n.Campaign, n.Suggestion.Agent, n.Suggestion.Type)
}

// Body returns the main text of the notice.
func (n Notice) Body() string {
	if n.Digest != nil {
		return n.Digest.Body()
	}
	return n.Suggestion.Message
}

// Fields returns the labelled values shown with the body.
func (n Notice) Fields() []Field {
	if n.Digest != nil {
		return n.Digest.Fields()
	}
	return []Field{
		{Name: "Priority", Value: string(n.Suggestion.Priority), Short: true},
		{Name: "Action", Value: string(n.Suggestion.Action.Type), Short: true},
	}
}

// Color returns the sidebar colour for the notice's priority.
func (n Notice) Color() string {
	if n.Digest != nil {
		return n.Digest.Color()
	}
	switch n.Suggestion.Priority {
	case campaign.PriorityHigh:
		return ColorHigh
	case campaign.PriorityMedium:
		return ColorMedium
	}
	return ColorLow
}

// Multi fans a notice out to several notifiers. Every notifier is tried; the
// errors are joined.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notice) error {
	var errs []error
	for _, nt := range m {
		if err := nt.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards every notice.
type Nop struct{}

func (Nop) Notify(context.Context, Notice) error { return nil }

// FromConfig builds a notifier for every configured destination. With none
// configured it returns Nop.
func FromConfig(cfg config.NotifyConfig) (Notifier, error) {
	var m Multi
	if cfg.SlackWebhook != "" {
		s, err := NewSlack(cfg.SlackWebhook)
		if err != nil {
			return nil, err
		}
		m = append(m, s)
	}
	if cfg.DiscordWebhookID != "" {
		d, err := NewDiscord(cfg.DiscordWebhookID, cfg.DiscordWebhookToken)
		if err != nil {
			return nil, err
		}
		m = append(m, d)
	}
	switch len(m) {
	case 0:
		return Nop{}, nil
	case 1:
		return m[0], nil
	}
	return m, nil
}
