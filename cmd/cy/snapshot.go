package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zulandar/campaignyard/internal/campaign"
)

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Export or import campaign snapshots",
	}

	cmd.AddCommand(newSnapshotExportCmd())
	cmd.AddCommand(newSnapshotImportCmd())
	return cmd
}

func newSnapshotExportCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored campaign snapshot as JSON to stdout",
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

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(ws.engine.Snapshot()); err != nil {
				return fmt.Errorf("encode snapshot: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to campaign config file")
	return cmd
}

func newSnapshotImportCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the stored campaign with a JSON snapshot",
		Long: `Reads a snapshot written by "cy snapshot export", restores it (repairing
any broken clip/card links) and saves it under the configured key.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			var snap campaign.Snapshot
			if err := json.Unmarshal(data, &snap); err != nil {
				return fmt.Errorf("decode %s: %w", args[0], err)
			}

			log, err := quietLogger(cmd)
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			ws, err := openWorkspace(cmd.Context(), configPath, log)
			if err != nil {
				return err
			}
			defer ws.Close()

			if err := ws.engine.Restore(snap); err != nil {
				return fmt.Errorf("restore %s: %w", args[0], err)
			}
			// Restore leaves the engine clean; the import still has to be written.
			ws.engine.MarkDirty()
			if err := ws.adapter.Save(cmd.Context()); err != nil {
				return err
			}

			tl := ws.engine.Timeline()
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %q: %d tracks, %d clips, %d cards\n",
				ws.engine.Meta().Name, len(tl.Tracks), len(tl.Clips), len(ws.engine.Cards().Cards))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to campaign config file")
	return cmd
}
