package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/brainscan/pkg/classify"
	"github.com/ChrisMcGann/brainscan/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the BrainScan web server for uploading MRS data, inspecting parsed
spectra and training classifiers. Prometheus metrics are served at /metrics.

Examples:
  brainscan serve --addr 127.0.0.1:8080 --db database.db`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		analyzer, err := cfg.Analyzer()
		if err != nil {
			return err
		}
		kind, err := classify.ParseKind(cfg.Classifier.Type)
		if err != nil {
			return err
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		srv, err := server.New(store, analyzer, server.Config{
			MaxUploadBytes:  int64(cfg.Server.MaxUploadMB) << 20,
			ShutdownTimeout: cfg.Server.ShutdownDuration(),
			ClassifierType:  kind,
			ClassifierK:     cfg.Classifier.K,
		}, logger)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return srv.ListenAndServe(ctx, cfg.Server.Addr)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (default 127.0.0.1:8080)")
	v.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}
