package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/brainscan/pkg/classify"
	"github.com/ChrisMcGann/brainscan/pkg/core"
)

var (
	classifierName string
	classifierType string
	classifierK    int
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a classifier on every stored MRS data file",
	Long: `Train a classifier that maps a frequency spectrum to a therapy group label,
using every MRS data file in the database as a labelled sample.

Examples:
  brainscan train --name baseline
  brainscan train --name knn5 --type knn --k 5`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kindName := cfg.Classifier.Type
		if classifierType != "" {
			kindName = classifierType
		}
		kind, err := classify.ParseKind(kindName)
		if err != nil {
			return err
		}

		k := cfg.Classifier.K
		if cmd.Flags().Changed("k") {
			k = classifierK
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

		scans, err := store.FetchAllScans(cmd.Context())
		if err != nil {
			return err
		}

		samples, err := analyzer.TrainingSamples(scans)
		if err != nil {
			return err
		}

		model, err := classify.Train(kind, samples, classify.TrainOptions{K: k})
		if err != nil {
			return fmt.Errorf("failed to train classifier: %w", err)
		}

		data, err := model.Marshal()
		if err != nil {
			return err
		}

		rec := &core.ClassifierRecord{Name: classifierName, Type: string(kind), Serialized: data}
		if err := store.StoreClassifier(cmd.Context(), rec); err != nil {
			return err
		}

		logger.Info().Str("id", rec.ID).Str("type", rec.Type).Int("samples", len(samples)).Msg("classifier trained")
		fmt.Fprintln(cmd.OutOrStdout(), rec.ID)
		return nil
	},
}

func init() {
	trainCmd.Flags().StringVar(&classifierName, "name", "", "Classifier name (required)")
	trainCmd.Flags().StringVar(&classifierType, "type", "", "Classifier type: centroid or knn (default from config)")
	trainCmd.Flags().IntVar(&classifierK, "k", classify.DefaultK, "Neighbour count for knn")

	trainCmd.MarkFlagRequired("name")
}
