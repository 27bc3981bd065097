package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listClassifiers bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored MRS data (or classifiers with --classifiers)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		out := cmd.OutOrStdout()

		if listClassifiers {
			recs, err := store.FetchAllClassifiers(cmd.Context())
			if err != nil {
				return err
			}
			for _, rec := range recs {
				fmt.Fprintf(out, "%s\t%s\t%s\n", rec.ID, rec.Type, rec.Name)
			}
			return nil
		}

		scans, err := store.FetchAllScans(cmd.Context())
		if err != nil {
			return err
		}
		for _, scan := range scans {
			fmt.Fprintf(out, "[%s] %s (ID: %s)\n", scan.GroupLabel, scan.FileName, scan.ID)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVar(&listClassifiers, "classifiers", false, "List trained classifiers instead of MRS data")
}
