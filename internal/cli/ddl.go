package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"sqlcriteria/internal/demoapp"
	"sqlcriteria/internal/logging"
	"sqlcriteria/internal/planner"
	"sqlcriteria/internal/schema"
)

// NewDDLCommand creates the ddl command.
func NewDDLCommand() *cobra.Command {
	var drop bool

	cmd := &cobra.Command{
		Use:   "ddl",
		Short: "Print CREATE TABLE statements for the mapping",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			d, err := planner.DialectFor(cfg.Database.Driver)
			if err != nil {
				return err
			}
			logger := logging.NewLogger(logging.Config{Level: "warn", Output: cmd.ErrOrStderr()})
			reg, err := demoapp.LoadRegistry(cfg, logger)
			if err != nil {
				return err
			}

			var stmts []string
			if drop {
				drops, err := schema.DropTables(reg, d)
				if err != nil {
					return err
				}
				stmts = append(stmts, drops...)
			}
			creates, err := schema.CreateTables(reg, d)
			if err != nil {
				return err
			}
			stmts = append(stmts, creates...)

			out := cmd.OutOrStdout()
			for _, stmt := range stmts {
				fmt.Fprintf(out, "%s;\n", stmt)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&drop, "drop", false, "emit DROP TABLE statements first")
	return cmd
}
