// Package cli implements the criteria-demo command line.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"sqlcriteria/internal/config"
)

// BuildInfo identifies the binary.
type BuildInfo struct {
	Version string
	Commit  string
}

// NewRootCommand creates the root command. Every subcommand accepts the
// configuration flags; their names match the config file keys.
func NewRootCommand(info BuildInfo) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "criteria-demo",
		Short: "Run dynamic criteria queries against a sales model",
		Long: `criteria-demo builds queries with the criteria API, renders them for
MySQL, PostgreSQL or SQLite and runs the showcase catalog against a store.

Configuration comes from defaults, a sqlcriteria.yaml file, SQLCRITERIA_*
environment variables and the flags below, in increasing precedence.`,
		Version:       fmt.Sprintf("%s (%s)", info.Version, info.Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	config.DefineFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewRunCommand(info))
	cmd.AddCommand(NewListCommand())
	cmd.AddCommand(NewRenderCommand())
	cmd.AddCommand(NewDDLCommand())
	cmd.AddCommand(NewIntrospectCommand())

	return cmd
}

// loadConfig loads and validates the configuration from the flags of cmd.
// Warnings are logged; errors are logged and fail the command.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	result := cfg.Validate()
	for _, warn := range result.Warnings {
		slog.Warn("configuration warning",
			slog.String("field", warn.Field),
			slog.String("message", warn.Message),
			slog.String("hint", warn.Hint),
		)
	}
	if result.HasErrors() {
		for _, err := range result.Errors {
			slog.Error("configuration error",
				slog.String("field", err.Field),
				slog.String("message", err.Message),
				slog.String("hint", err.Hint),
			)
		}
		return nil, fmt.Errorf("configuration validation failed: %s", result.Error())
	}
	return cfg, nil
}
