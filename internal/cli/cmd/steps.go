package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"vidtrack/internal/progress"
)

func newStepsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "steps",
		Short:         "List the processing steps reported by the backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog := progress.DefaultCatalog()
			out := cmd.OutOrStdout()
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(catalog)
			}
			for i, def := range catalog {
				fmt.Fprintf(out, "%d. %-22s %s\n", i+1, def.ID, def.Name)
			}
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Print the catalog as JSON")
	return cmd
}
