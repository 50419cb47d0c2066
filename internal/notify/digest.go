package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/zulandar/campaignyard/internal/campaign"
)

// Digest summarises loop activity over a period.
type Digest struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	Runs        int
	Failures    int
	Suggestions int
	// Pending is the number of suggestions still awaiting a decision.
	Pending int
	Health  float64
	Agents  []AgentDigest
}

// AgentDigest holds per-agent counts for a digest.
type AgentDigest struct {
	Agent       campaign.AgentName
	Runs        int
	Failures    int
	Suggestions int
}

// Body renders the digest as markdown-ish text shared by Slack and Discord.
func (d *Digest) Body() string {
	lines := []string{
		fmt.Sprintf("**Period**: %s – %s", d.PeriodStart.Format("Jan 2 15:04"), d.PeriodEnd.Format("Jan 2 15:04")),
		fmt.Sprintf("**Runs**: %d (%d failed)", d.Runs, d.Failures),
		fmt.Sprintf("**Suggestions**: %d new, %d pending", d.Suggestions, d.Pending),
	}
	if len(d.Agents) > 0 {
		lines = append(lines, "", "**Per Agent**:")
		for _, a := range d.Agents {
			line := fmt.Sprintf("  %s: %d runs, %d suggestions", a.Agent, a.Runs, a.Suggestions)
			if a.Failures > 0 {
				line += fmt.Sprintf(" (%d failed)", a.Failures)
			}
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// Fields returns the headline numbers.
func (d *Digest) Fields() []Field {
	return []Field{
		{Name: "Runs", Value: fmt.Sprintf("%d", d.Runs), Short: true},
		{Name: "Failed", Value: fmt.Sprintf("%d", d.Failures), Short: true},
		{Name: "Suggestions", Value: fmt.Sprintf("%d", d.Suggestions), Short: true},
		{Name: "Health", Value: fmt.Sprintf("%.0f%%", d.Health), Short: true},
	}
}

// Color maps loop health onto the priority colours.
func (d *Digest) Color() string {
	switch {
	case d.Health < 50:
		return ColorHigh
	case d.Health < 80:
		return ColorMedium
	}
	return ColorLow
}
