package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

// webhookSession abstracts the discordgo.Session method we use, enabling
// test mocks.
type webhookSession interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord posts notices to a Discord webhook.
type Discord struct {
	sess  webhookSession
	id    string
	token string
}

// NewDiscord returns a Discord notifier for a webhook id and token.
// Webhooks need no bot token, so the session is unauthenticated.
func NewDiscord(webhookID, token string) (*Discord, error) {
	if webhookID == "" || token == "" {
		return nil, errors.New("notify: discord webhook id and token are required")
	}
	sess, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("notify: discord session: %w", err)
	}
	return &Discord{sess: sess, id: webhookID, token: token}, nil
}

// Notify executes the webhook with one embed.
func (d *Discord) Notify(ctx context.Context, n Notice) error {
	_, err := d.sess.WebhookExecute(d.id, d.token, false, buildWebhookParams(n), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("notify: discord: %w", err)
	}
	return nil
}

func buildWebhookParams(n Notice) *discordgo.WebhookParams {
	embed := &discordgo.MessageEmbed{
		Title:       n.Title(),
		Description: n.Body(),
		Color:       embedColor(n.Color()),
	}
	for _, f := range n.Fields() {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Short})
	}
	switch {
	case n.Digest != nil:
		embed.Timestamp = n.Digest.PeriodEnd.Format(time.RFC3339)
	case !n.Suggestion.CreatedAt.IsZero():
		embed.Timestamp = n.Suggestion.CreatedAt.Format(time.RFC3339)
	}
	return &discordgo.WebhookParams{Embeds: []*discordgo.MessageEmbed{embed}}
}

// embedColors holds the embed colour for each sidebar colour a notice
// can report.
var embedColors = map[string]int{
	ColorHigh:   0xe53935,
	ColorMedium: 0xff9800,
	ColorLow:    0x2196f3,
}

// embedColor returns the embed colour for c, defaulting to the low
// priority blue.
func embedColor(c string) int {
	if v, ok := embedColors[c]; ok {
		return v
	}
	return embedColors[ColorLow]
}
