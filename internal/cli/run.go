package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sqlcriteria/internal/demoapp"
	"sqlcriteria/internal/showcase"
)

const shutdownTimeout = 10 * time.Second

// NewRunCommand creates the run command.
func NewRunCommand(info BuildInfo) *cobra.Command {
	var hold bool

	cmd := &cobra.Command{
		Use:   "run [section...]",
		Short: "Run showcase sections against the configured store",
		Long: `Run showcase sections inside one transaction and log every result row.

Sections named as arguments override demo.sections; with neither, the whole
catalog runs. Examples the store cannot express are logged and skipped.

Example:
  criteria-demo run --demo.create_schema --demo.seed
  criteria-demo run where with --database.driver postgres --database.host db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShowcase(cmd, info, args, hold)
		},
	}
	cmd.Flags().BoolVar(&hold, "hold", false, "keep the metrics endpoint up until interrupted")
	return cmd
}

func runShowcase(cmd *cobra.Command, info BuildInfo, args []string, hold bool) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Observability.ServiceVersion == "" {
		cfg.Observability.ServiceVersion = info.Version
	}

	names := args
	if len(names) == 0 {
		names = cfg.Demo.Sections
	}
	sections, err := showcase.Lookup(names...)
	if err != nil {
		return err
	}

	logger, loggerProvider, err := demoapp.InitLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	app, err := demoapp.New(cfg, logger)
	if err != nil {
		if loggerProvider != nil {
			_ = loggerProvider.Shutdown(context.Background(), logger.Logger)
		}
		return err
	}
	app.AttachLoggerProvider(loggerProvider)

	ctx, stopSignals := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = app.Shutdown(shutdownCtx)
	}()

	if err := app.Init(ctx); err != nil {
		return err
	}
	if _, err := app.RunShowcase(ctx, sections); err != nil {
		return err
	}

	if hold {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(stop)
		if _, err := app.WaitForStop(stop); err != nil {
			return err
		}
	}
	return nil
}
