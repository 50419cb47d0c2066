package main

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/zulandar/campaignyard/internal/campaign"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newStatusCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a summary of the stored campaign",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to campaign config file")
	return cmd
}

// quietLogger is used by read-only commands, where info logs would clutter
// the output.
func quietLogger(cmd *cobra.Command) (*zap.Logger, error) {
	log, err := newLogger(cmd)
	if err != nil {
		return nil, err
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		return log, nil
	}
	return log.WithOptions(zap.IncreaseLevel(zapcore.WarnLevel)), nil
}

func runStatus(cmd *cobra.Command, configPath string) error {
	log, err := quietLogger(cmd)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	ws, err := openWorkspace(cmd.Context(), configPath, log)
	if err != nil {
		return err
	}
	defer ws.Close()

	out := cmd.OutOrStdout()
	printStatus(out, ws.engine, palette{enabled: isTerminal(out)}, time.Now())
	return nil
}

func printStatus(out io.Writer, e *campaign.Engine, p palette, now time.Time) {
	meta := e.Meta()
	fmt.Fprintf(out, "%s %s\n", p.bold(meta.Name), p.faint("("+meta.ID+")"))
	if meta.Goal != "" {
		fmt.Fprintf(out, "Goal:   %s\n", meta.Goal)
	}
	fmt.Fprintf(out, "Theme:  %s\n", meta.CurrentTheme)

	saved := "never"
	if t, ok := e.LastSavedAt(); ok {
		saved = formatRelative(t, now)
	}
	if e.IsDirty() {
		saved += " " + p.paint("(unsaved changes)", color.FgYellow)
	}
	fmt.Fprintf(out, "Saved:  %s\n", saved)

	tl := e.Timeline()
	fmt.Fprintf(out, "\n%s  %d tracks, %d clips, %s long\n",
		p.bold("Timeline"), len(tl.Tracks), len(tl.Clips), formatSeconds(tl.Duration))
	if len(tl.Tracks) > 0 {
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, tr := range tl.Tracks {
			clips := e.ClipsForTrack(tr.ID)
			end := 0.0
			for _, c := range clips {
				end = max(end, c.End())
			}
			fmt.Fprintf(tw, "  %s\t%d clips\tends %s\n", tr.Name, len(clips), formatSeconds(end))
		}
		tw.Flush()
	}

	cards := e.Cards().Cards
	fmt.Fprintf(out, "\n%s  %d", p.bold("Cards"), len(cards))
	if len(cards) > 0 {
		fmt.Fprintf(out, " (%s)", cardBreakdown(cards))
	}
	fmt.Fprintln(out)

	loops := e.Loops()
	active := e.ActiveLoops()
	fmt.Fprintf(out, "\n%s  %d active / %d total, health %s\n",
		p.bold("Loops"), len(active), len(loops.Loops), p.health(loops.LoopHealthScore))
	if len(loops.Loops) > 0 {
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, l := range loops.Loops {
			next := "-"
			if l.Status != campaign.LoopDisabled {
				next = formatRelative(l.NextRun, now)
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\tnext %s\n",
				l.ID, l.Agent, l.LoopType, l.Interval, loopStatus(p, l.Status), next)
		}
		tw.Flush()
	}

	pending := e.PendingSuggestions()
	fmt.Fprintf(out, "\n%s  %d pending\n", p.bold("Suggestions"), len(pending))
	for _, s := range pending {
		fmt.Fprintf(out, "  %s %s: %s\n", priorityTag(p, s.Priority), s.Agent, s.Message)
	}
}

// cardBreakdown lists card counts per type, most common first.
func cardBreakdown(cards []campaign.Card) string {
	counts := make(map[campaign.CardType]int)
	for _, c := range cards {
		counts[c.Type]++
	}
	types := make([]campaign.CardType, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	slices.SortFunc(types, func(a, b campaign.CardType) int {
		if counts[a] != counts[b] {
			return counts[b] - counts[a]
		}
		return strings.Compare(string(a), string(b))
	})
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = fmt.Sprintf("%s %d", t, counts[t])
	}
	return strings.Join(parts, ", ")
}

func loopStatus(p palette, s campaign.LoopStatus) string {
	switch s {
	case campaign.LoopRunning:
		return p.paint(string(s), color.FgCyan)
	case campaign.LoopError:
		return p.paint(string(s), color.FgRed)
	case campaign.LoopDisabled:
		return p.faint(string(s))
	}
	return string(s)
}

func priorityTag(p palette, pr campaign.Priority) string {
	tag := "[" + string(pr) + "]"
	switch pr {
	case campaign.PriorityHigh:
		return p.paint(tag, color.FgRed, color.Bold)
	case campaign.PriorityMedium:
		return p.paint(tag, color.FgYellow)
	}
	return p.faint(tag)
}
