package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"sqlcriteria/internal/demoapp"
	"sqlcriteria/internal/logging"
	"sqlcriteria/internal/planner"
	"sqlcriteria/internal/showcase"
)

// NewRenderCommand creates the render command.
func NewRenderCommand() *cobra.Command {
	var dialects []string

	cmd := &cobra.Command{
		Use:   "render [section...]",
		Short: "Print the SQL of showcase examples without running them",
		Long: `Render showcase examples for one or more dialects. No store is contacted.

Example:
  criteria-demo render with --dialect postgres
  criteria-demo render --dialect mysql,sqlite3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if len(dialects) == 0 {
				dialects = []string{cfg.Database.Driver}
			}
			sections, err := showcase.Lookup(args...)
			if err != nil {
				return err
			}
			logger := logging.NewLogger(logging.Config{Level: "warn", Format: cfg.Observability.Logging.Format, Output: cmd.ErrOrStderr()})
			reg, err := demoapp.LoadRegistry(cfg, logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, name := range dialects {
				d, err := planner.DialectFor(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "-- dialect: %s\n", d.Name)
				for _, r := range showcase.Render(reg, d, sections) {
					fmt.Fprintf(out, "-- %s %s\n", r.Example.ID, r.Example.Title)
					if r.Err != nil {
						logger.Warn("render failed", slog.String("example", r.Example.ID), slog.String("error", r.Err.Error()))
						fmt.Fprintf(out, "-- not supported: %v\n\n", r.Err)
						continue
					}
					fmt.Fprintf(out, "%s;\n", r.SQL)
					if len(r.Args) > 0 {
						fmt.Fprintf(out, "-- args: %v\n", r.Args)
					}
					fmt.Fprintln(out)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&dialects, "dialect", nil, "dialects to render for (default: database.driver)")
	return cmd
}
