package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"sqlcriteria/internal/showcase"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list [section...]",
		Short: "List showcase sections and examples",
		RunE: func(cmd *cobra.Command, args []string) error {
			sections, err := showcase.Lookup(args...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, s := range sections {
				fmt.Fprintf(out, "%s  (%s)\n", s.Title, s.Name)
				for _, ex := range s.Examples {
					fmt.Fprintf(out, "  %-5s %s\n", ex.ID, ex.Title)
				}
			}
			return nil
		},
	}
}
