package main

import (
	"errors"
	"fmt"
	"log"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"tasklist/internal/config"
	"tasklist/internal/storage"
	"tasklist/internal/ui"
)

const version = "v0.1.0"

var (
	flagConfig string
	flagDB     string
	flagEnv    string
)

var rootCmd = &cobra.Command{
	Use:           "tasklist",
	Short:         "A single-screen to-do list",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("tasklist " + version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: $TASKLIST_CONFIG or ./config.toml)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database file, overrides db_path")
	rootCmd.PersistentFlags().StringVar(&flagEnv, "env-file", ".env", "dotenv file loaded before reading the environment")

	rootCmd.AddCommand(versionCmd)
}

func run() error {
	if err := config.LoadEnvFile(flagEnv); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}

	cfg, err := config.LoadOrCreate(config.ResolveConfigPath(flagConfig))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.ApplyEnv()
	if flagDB != "" {
		cfg.DBPath = flagDB
	}

	// Bubble Tea owns the terminal, so diagnostics go to a file.
	logFile, err := tea.LogToFile(cfg.LogPath, "tasklist")
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer logFile.Close()

	store, err := storage.Open(cfg.DBPath, storage.WithLogger(log.Default()))
	if err != nil {
		return fatal(err)
	}
	defer store.Close()

	if err := ui.Run(store, cfg); err != nil {
		if storage.IsFatal(err) {
			return fatal(err)
		}
		return fmt.Errorf("run: %w", err)
	}
	return nil
}

// fatal records an unrecoverable storage fault before the process exits.
func fatal(err error) error {
	log.Printf("fatal: %v", err)
	var fe *storage.FatalError
	if errors.As(err, &fe) {
		return fmt.Errorf("unrecoverable storage error during %s: %w", fe.Op, fe.Err)
	}
	return err
}
