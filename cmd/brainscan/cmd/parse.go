package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/brainscan/pkg/core"
	"github.com/ChrisMcGann/brainscan/pkg/reader/mrs"
)

var lenient bool

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Print the header fields and samples of an MRS data file",
	Long: `Parse an MRS data file and print its header as "name = value" lines
followed by one numbered line per complex sample.

Examples:
  brainscan parse data/05_E2
  brainscan parse --lenient data/partial_file`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := readDocument(args[0])
		if err != nil {
			return err
		}
		printDocument(cmd.OutOrStdout(), doc)
		return nil
	},
}

func init() {
	parseCmd.Flags().BoolVar(&lenient, "lenient", false, "Return an empty header instead of failing when the second $END is missing")
}

// readDocument parses the file at path using the configured parser policy.
func readDocument(path string) (*core.Document, error) {
	policy, err := mrs.ParsePolicy(cfg.Parser.IncompleteHeader)
	if err != nil {
		return nil, err
	}
	if lenient {
		policy = mrs.PolicyEmpty
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	doc, err := mrs.NewReader(f, mrs.WithIncompleteHeaderPolicy(policy)).Read()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	logger.Debug().Str("file", path).Int("fields", len(doc.Header)).Int("samples", len(doc.Samples)).Msg("parsed MRS data")
	return doc, nil
}

func printDocument(w io.Writer, doc *core.Document) {
	fmt.Fprint(w, doc.Header.String())
	for i, s := range doc.Samples {
		fmt.Fprintf(w, "%d : %v\n", i+1, s)
	}
}
