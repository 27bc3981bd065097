package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/brainscan/pkg/classify"
)

var classifierID string

var classifyCmd = &cobra.Command{
	Use:   "classify [file]",
	Short: "Predict the therapy group of an MRS data file",
	Long: `Predict the therapy group of an MRS data file with a stored classifier.

Examples:
  brainscan classify --classifier 3f2a... data/06_E1`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		contents, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read input file: %w", err)
		}

		analyzer, err := cfg.Analyzer()
		if err != nil {
			return err
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		rec, err := store.FetchClassifier(cmd.Context(), classifierID)
		if err != nil {
			return err
		}

		model, err := classify.Unmarshal(rec.Serialized)
		if err != nil {
			return err
		}

		res, err := analyzer.Analyze(contents)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		label, err := model.Predict(res.Spectrum.Features())
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), label)
		return nil
	},
}

func init() {
	classifyCmd.Flags().StringVar(&classifierID, "classifier", "", "Classifier ID (required)")
	classifyCmd.MarkFlagRequired("classifier")
}
