package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/brainscan/pkg/core"
	"github.com/ChrisMcGann/brainscan/pkg/reader/mrs"
)

var (
	importFile  string
	importLabel string
	skipCheck   bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Store an MRS data file in the database",
	Long: `Store an MRS data file in the database together with its therapy group label.
The file is parsed first so broken files are rejected; use --no-check to
store it as-is.

Examples:
  brainscan import --in data/05_E2 --label groupA`,
	RunE: func(cmd *cobra.Command, args []string) error {
		contents, err := os.ReadFile(importFile)
		if err != nil {
			return fmt.Errorf("failed to read input file: %w", err)
		}

		if !skipCheck {
			policy, err := mrs.ParsePolicy(cfg.Parser.IncompleteHeader)
			if err != nil {
				return err
			}
			if _, err := mrs.Parse(string(contents), mrs.WithIncompleteHeaderPolicy(policy)); err != nil {
				return fmt.Errorf("refusing to import %s: %w", importFile, err)
			}
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		scan := &core.Scan{
			FileName:   filepath.Base(importFile),
			Contents:   contents,
			GroupLabel: importLabel,
		}
		if err := store.StoreScan(cmd.Context(), scan); err != nil {
			return fmt.Errorf("failed to store %s: %w", importFile, err)
		}

		logger.Info().Str("id", scan.ID).Str("file", scan.FileName).Str("label", scan.GroupLabel).Msg("MRS data saved")
		fmt.Fprintln(cmd.OutOrStdout(), scan.ID)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVarP(&importFile, "in", "i", "", "Input file path (required)")
	importCmd.Flags().StringVarP(&importLabel, "label", "l", "", "Therapy group label, e.g. groupA (required)")
	importCmd.Flags().BoolVar(&skipCheck, "no-check", false, "Store the file without parsing it first")

	importCmd.MarkFlagRequired("in")
	importCmd.MarkFlagRequired("label")
}
