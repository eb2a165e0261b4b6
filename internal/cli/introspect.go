package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"sqlcriteria/internal/dbconn"
	"sqlcriteria/internal/logging"
	"sqlcriteria/internal/mapping"
	"sqlcriteria/internal/naming"
	"sqlcriteria/internal/planner"
)

// NewIntrospectCommand creates the introspect command.
func NewIntrospectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "introspect",
		Short: "Derive a mapping file from a MySQL schema",
		Long: `Read the tables, columns and single-column foreign keys of the configured
MySQL database and print them as a mapping document for mapping.file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Database.Driver != planner.DriverMySQL {
				return fmt.Errorf("introspect reads information_schema and needs the %s driver, got %s", planner.DriverMySQL, cfg.Database.Driver)
			}
			dbName, err := cfg.Database.EffectiveDatabaseName()
			if err != nil {
				return err
			}

			logger := logging.NewLogger(logging.Config{Level: cfg.Observability.Logging.Level, Format: cfg.Observability.Logging.Format, Output: cmd.ErrOrStderr()})
			db, err := dbconn.Open(cmd.Context(), cfg.Database, dbconn.Instrumentation{}, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			reg, err := mapping.Introspect(cmd.Context(), db, dbName,
				mapping.WithNamer(naming.New(cfg.Mapping.Naming, logger.Logger)),
				mapping.WithLogger(logger.Logger),
			)
			if err != nil {
				return err
			}
			return mapping.WriteYAML(cmd.OutOrStdout(), reg)
		},
	}
}
