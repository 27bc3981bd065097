package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/brainscan/pkg/fft"
)

var (
	realOnly bool
	fftBins  int
)

var fftCmd = &cobra.Command{
	Use:   "fft [file]",
	Short: "Print the frequency-domain spectrum of an MRS data file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := readDocument(args[0])
		if err != nil {
			return err
		}

		opts := fft.Options{Bins: cfg.FFT.Bins}
		if opts.Component, err = fft.ParseComponent(cfg.FFT.Component); err != nil {
			return err
		}
		if realOnly {
			opts.Component = fft.RealOnly
		}
		if cmd.Flags().Changed("bins") {
			opts.Bins = fftBins
		}

		spec, err := fft.Transform(doc.Samples, opts)
		if err != nil {
			return fmt.Errorf("failed to transform %s: %w", args[0], err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "# N=%d step=%d component=%s\n", spec.N, spec.Step, opts.Component)
		for i, v := range spec.Bins {
			fmt.Fprintf(out, "%d\t%g\n", i, v)
		}
		return nil
	},
}

func init() {
	fftCmd.Flags().BoolVar(&realOnly, "real-only", false, "Discard imaginary parts before the transform")
	fftCmd.Flags().IntVar(&fftBins, "bins", 0, "Exact number of output bins (0 = every N/40-th coefficient)")
	fftCmd.Flags().BoolVar(&lenient, "lenient", false, "Return an empty header instead of failing when the second $END is missing")
}
