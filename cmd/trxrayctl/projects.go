package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(projectsCmd)
}

var projectsCmd = &cobra.Command{
	Use:          "projects",
	Long:         "List the projects available from TestRail or a dump",
	Short:        "list projects",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		src, err := openSource(ctx, cfg)
		if err != nil {
			return err
		}

		projects, err := src.Projects(ctx)
		if err != nil {
			return fmt.Errorf("source Projects: %w", err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "ID\tNAME")
		for _, p := range projects {
			_, _ = fmt.Fprintf(w, "%d\t%s\n", p.ID, p.Name)
		}

		return w.Flush()
	},
}
