package main

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/campaignyard/internal/config"
	"github.com/zulandar/campaignyard/internal/db"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	cmd.AddCommand(newDBResetCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the campaign database",
		Long:  "Creates the sqlite file or Dolt database named in the config and migrates all tables.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to campaign config file")
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	fmt.Fprintf(out, "Loaded config for campaign %q from %s\n", cfg.Campaign.Name, configPath)

	gormDB, err := db.Init(cfg.Storage)
	if err != nil {
		return err
	}
	closeDB(gormDB)

	fmt.Fprintf(out, "Storage ready: %s\n", describeStorage(cfg.Storage))
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))
	fmt.Fprintln(out, "\nCampaign database initialized successfully.")
	return nil
}

func newDBResetCmd() *cobra.Command {
	var (
		configPath string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop and re-initialize the campaign database",
		Long: `Deletes every stored snapshot and archived loop event, then re-creates
the empty tables. For sqlite the database file is removed; for Dolt the
database is dropped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBReset(cmd, configPath, yes)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to campaign config file")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	return cmd
}

func runDBReset(cmd *cobra.Command, configPath string, skipConfirm bool) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if !skipConfirm && !confirmReset(cmd, describeStorage(cfg.Storage)) {
		fmt.Fprintln(out, "Aborted.")
		return nil
	}

	switch cfg.Storage.Driver {
	case config.DriverMySQL:
		adminDB, err := db.ConnectAdmin(cfg.Storage.User, cfg.Storage.Host, cfg.Storage.Port)
		if err != nil {
			return fmt.Errorf("connect to Dolt at %s:%d: %w", cfg.Storage.Host, cfg.Storage.Port, err)
		}
		err = db.DropDatabase(adminDB, cfg.Storage.Database)
		closeDB(adminDB)
		if err != nil {
			return err
		}
	default:
		if err := os.Remove(cfg.Storage.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", cfg.Storage.Path, err)
		}
	}
	fmt.Fprintf(out, "Dropped %s\n", describeStorage(cfg.Storage))

	gormDB, err := db.Init(cfg.Storage)
	if err != nil {
		return err
	}
	closeDB(gormDB)
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))

	fmt.Fprintln(out, "\nCampaign database reset successfully.")
	return nil
}

func describeStorage(s config.StorageConfig) string {
	if s.Driver == config.DriverMySQL {
		return fmt.Sprintf("Dolt database %s at %s:%d", s.Database, s.Host, s.Port)
	}
	return fmt.Sprintf("sqlite file %s", s.Path)
}

func confirmReset(cmd *cobra.Command, target string) bool {
	out := cmd.OutOrStdout()
	in := cmd.InOrStdin()

	fmt.Fprintf(out, "WARNING: This will permanently delete all data in %s.\n", target)
	fmt.Fprintln(out, "This action cannot be undone.")
	fmt.Fprintln(out)
	fmt.Fprint(out, "Type \"yes\" to confirm: ")

	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()) == "yes"
	}
	return false
}
