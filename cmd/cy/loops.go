package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/campaignyard/internal/campaign"
	"github.com/zulandar/campaignyard/internal/notify"
	"github.com/zulandar/campaignyard/internal/scheduler"
)

func newLoopsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loops",
		Short: "Inspect and run background loops",
	}

	cmd.AddCommand(newLoopsListCmd())
	cmd.AddCommand(newLoopsHistoryCmd())
	cmd.AddCommand(newLoopsRunCmd())
	return cmd
}

func newLoopsListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured loops",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := quietLogger(cmd)
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			ws, err := openWorkspace(cmd.Context(), configPath, log)
			if err != nil {
				return err
			}
			defer ws.Close()

			printLoops(cmd, ws.engine.Loops().Loops, time.Now())
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to campaign config file")
	return cmd
}

func printLoops(cmd *cobra.Command, loops []campaign.Loop, now time.Time) {
	out := cmd.OutOrStdout()
	if len(loops) == 0 {
		fmt.Fprintln(out, "No loops configured.")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tAGENT\tTYPE\tINTERVAL\tSTATUS\tLAST RUN\tNEXT RUN")
	for _, l := range loops {
		last := "never"
		if l.LastRun != nil {
			last = formatRelative(*l.LastRun, now)
		}
		next := "-"
		if l.Status != campaign.LoopDisabled {
			next = formatRelative(l.NextRun, now)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			l.ID, l.Agent, l.LoopType, l.Interval, l.Status, last, next)
	}
	tw.Flush()
}

func newLoopsHistoryCmd() *cobra.Command {
	var (
		configPath string
		loopID     string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show archived loop runs",
		Long:  "Lists loop runs from the event archive, which keeps events the in-memory history has already evicted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := quietLogger(cmd)
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			ws, err := openWorkspace(cmd.Context(), configPath, log)
			if err != nil {
				return err
			}
			defer ws.Close()

			events, err := ws.archive.List(cmd.Context(), ws.engine.Meta().ID, loopID, limit)
			if err != nil {
				return err
			}
			printEvents(cmd, events)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to campaign config file")
	cmd.Flags().StringVar(&loopID, "loop", "", "only show runs of this loop")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to show (0 for all)")
	return cmd
}

func printEvents(cmd *cobra.Command, events []campaign.LoopEvent) {
	out := cmd.OutOrStdout()
	if len(events) == 0 {
		fmt.Fprintln(out, "No archived runs.")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tLOOP\tAGENT\tRESULT\tSUGGESTIONS\tMESSAGE")
	for _, ev := range events {
		result := "ok"
		if !ev.Result.Success {
			result = "failed"
		}
		msg := ev.Result.Message
		if ev.Result.Error != "" {
			msg = ev.Result.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			ev.CreatedAt.Format(time.DateTime), ev.LoopID, ev.Agent, result, ev.Result.SuggestionsGenerated, msg)
	}
	tw.Flush()
}

func newLoopsRunCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run <loop-id>",
		Short: "Run a loop once now and save the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := quietLogger(cmd)
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			ws, err := openWorkspace(cmd.Context(), configPath, log)
			if err != nil {
				return err
			}
			defer ws.Close()

			notifier, err := notify.FromConfig(ws.cfg.Notify)
			if err != nil {
				return err
			}
			sched, err := scheduler.New(scheduler.Options{
				Engine:     ws.engine,
				Notifier:   notifier,
				Logger:     log,
				Thresholds: ws.thresholds(),
			})
			if err != nil {
				return err
			}
			ev, err := sched.RunLoop(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := ws.adapter.Save(cmd.Context()); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if ev.ID == "" {
				fmt.Fprintf(out, "Loop %s is disabled.\n", args[0])
				return nil
			}
			fmt.Fprintf(out, "Loop %s (%s): %s\n", ev.LoopID, ev.Agent, ev.Result.Message)
			fmt.Fprintf(out, "  %d suggestion(s) queued\n", ev.Result.SuggestionsGenerated)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to campaign config file")
	return cmd
}
