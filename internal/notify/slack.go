package notify

import (
	"context"
	"errors"
	"fmt"

	slackapi "github.com/slack-go/slack"
)

// webhookPoster matches slackapi.PostWebhookContext so tests can swap it.
type webhookPoster func(ctx context.Context, url string, msg *slackapi.WebhookMessage) error

// Slack posts notices to a Slack incoming webhook.
type Slack struct {
	url  string
	post webhookPoster
}

// NewSlack returns a Slack notifier for an incoming webhook URL.
func NewSlack(webhookURL string) (*Slack, error) {
	if webhookURL == "" {
		return nil, errors.New("notify: slack webhook URL is required")
	}
	return &Slack{url: webhookURL, post: slackapi.PostWebhookContext}, nil
}

// Notify posts the notice as a single attachment.
func (s *Slack) Notify(ctx context.Context, n Notice) error {
	if err := s.post(ctx, s.url, buildWebhookMessage(n)); err != nil {
		return fmt.Errorf("notify: slack: %w", err)
	}
	return nil
}

func buildWebhookMessage(n Notice) *slackapi.WebhookMessage {
	fields := n.Fields()
	att := slackapi.Attachment{
		Color:  n.Color(),
		Text:   n.Body(),
		Fields: make([]slackapi.AttachmentField, len(fields)),
		Footer: n.Suggestion.ID,
	}
	for i, f := range fields {
		att.Fields[i] = slackapi.AttachmentField{Title: f.Name, Value: f.Value, Short: f.Short}
	}
	return &slackapi.WebhookMessage{
		Text:        n.Title(),
		Attachments: []slackapi.Attachment{att},
	}
}
