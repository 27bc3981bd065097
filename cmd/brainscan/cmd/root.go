// Package cmd provides CLI command implementations
package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/brainscan/internal/config"
	"github.com/ChrisMcGann/brainscan/internal/logging"
	"github.com/ChrisMcGann/brainscan/pkg/store/sqlite"
)

var (
	// Persistent flags
	configFile string

	v = config.New("")

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "brainscan",
	Short: "BrainScan - MRS brain scan parsing and classification",
	Long: `BrainScan parses magnetic resonance spectroscopy (MRS) data files, converts
them to frequency-domain spectra and trains classifiers that map a spectrum
to a therapy group label.

Uploaded files and trained classifiers are kept in a SQLite database and can
be managed from the command line or through the built-in web server.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(fftCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Config file (default ./brainscan.yaml or ~/.config/brainscan/brainscan.yaml)")
	pf.String("db", "", "SQLite database file")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.String("log-format", "", "Log format: console or json")

	v.BindPFlag("database.path", pf.Lookup("db"))
	v.BindPFlag("log.level", pf.Lookup("log-level"))
	v.BindPFlag("log.format", pf.Lookup("log-format"))
}

// loadConfig reads configuration and sets up logging.
func loadConfig() error {
	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	var err error
	cfg, err = config.Load(v)
	if err != nil {
		return err
	}

	logger, err = logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	if used := v.ConfigFileUsed(); used != "" {
		logger.Debug().Str("file", used).Msg("loaded config file")
	}
	return nil
}

// openStore opens the configured database.
func openStore() (*sqlite.Store, error) {
	store, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.Database.Path, err)
	}
	logging.Component(logger, "store").Debug().Str("path", store.Path()).Msg("opened database")
	return store, nil
}
