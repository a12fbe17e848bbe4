package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robotomize/go-testrail-xray/internal/source"
)

var (
	dumpLimitProjectsFlag int
	dumpOutputFlag        string
)

func init() {
	dumpCmd.Flags().IntVarP(
		&dumpLimitProjectsFlag,
		"limit-projects",
		"",
		0,
		"dump only the first N projects",
	)
	dumpCmd.Flags().StringVarP(
		&dumpOutputFlag,
		"output",
		"o",
		"export",
		"dump directory",
	)

	rootCmd.AddCommand(dumpCmd)
}

var dumpCmd = &cobra.Command{
	Use:          "dump",
	Long:         "Download TestRail projects, suites, sections and cases as JSON files",
	Short:        "dump testrail data",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		client, err := newClient(cfg)
		if err != nil {
			return err
		}

		summary, err := source.Dump(
			ctx, client, dumpOutputFlag,
			source.WithLimitProjects(dumpLimitProjectsFlag),
			source.WithConcurrency(cfg.Export.Concurrency),
		)
		if err != nil {
			return fmt.Errorf("source.Dump: %w", err)
		}

		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(
			out, "Dumped %d projects, %d suites, %d cases into %s\n",
			summary.Projects, summary.Suites, summary.Cases, dumpOutputFlag,
		)

		if len(summary.Failed) > 0 {
			_, _ = fmt.Fprintf(out, "Could not fetch: %s\n", strings.Join(summary.Failed, ", "))
		}

		return nil
	},
}
