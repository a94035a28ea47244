package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/pyreview/internal/config"
	"github.com/dshills/pyreview/internal/logging"
	"github.com/dshills/pyreview/internal/server"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web review form",
	RunE: func(cmd *cobra.Command, args []string) error {
		overrides := buildOverrides()
		if flagAddr != "" {
			overrides["addr"] = flagAddr
		}
		cfg, err := config.Load(overrides)
		if err != nil {
			return err
		}
		logger := logging.New("pyreview", cfg.LogLevel)

		engine, _, err := buildEngine(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitUsageError
			return nil
		}

		srv := server.New(engine, server.Options{
			Addr:            cfg.Server.Addr,
			MaxBytes:        cfg.Intake.MaxBytes,
			ShutdownTimeout: time.Duration(cfg.Server.ShutdownSeconds) * time.Second,
			ReportCapacity:  cfg.Reports.Capacity,
			ReportTTL:       cfg.Reports.TTL(),
			Render:          renderOptions(cfg, logger),
			Logger:          logger.Named("server"),
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := srv.ListenAndServe(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (default :8080)")
	addProviderFlags(serveCmd)
	serveCmd.Flags().BoolVar(&flagNoSuggestions, "no-suggestions", false, "Skip the AI suggestion step")
	serveCmd.Flags().StringVar(&flagPDFEngine, "pdf-engine", "", "PDF engine (fpdf, wkhtmltopdf)")
	serveCmd.Flags().StringVar(&flagRules, "rules", "", "Rules file path (.json, .yaml, .toml)")
}
