package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/robotomize/go-testrail-xray/internal/ctxlog"
	"github.com/robotomize/go-testrail-xray/internal/exporter"
	"github.com/robotomize/go-testrail-xray/internal/slice"
	"github.com/robotomize/go-testrail-xray/internal/testrail"
	"github.com/robotomize/go-testrail-xray/internal/xray"
)

var errExportFailed = errors.New("export failed")

var (
	exportProjectsFlag    []string
	exportSuitesFlag      []int
	exportSectionsFlag    []string
	exportFormatFlag      string
	exportColumnsFlag     []string
	exportDirFlag         string
	exportEndpointFlag    string
	exportConcurrencyFlag int
)

func init() {
	exportCmd.Flags().StringSliceVarP(
		&exportProjectsFlag,
		"project",
		"p",
		nil,
		"project ids or names, all projects when empty: -p 1,Web",
	)
	exportCmd.Flags().IntSliceVarP(
		&exportSuitesFlag,
		"suite",
		"",
		nil,
		"checked suite ids of a single project: --suite 10,20",
	)
	exportCmd.Flags().StringSliceVarP(
		&exportSectionsFlag,
		"section",
		"",
		nil,
		"checked sections of a single project as [suite:]section: --section 10:100,200",
	)
	exportCmd.Flags().StringVarP(
		&exportFormatFlag,
		"format",
		"f",
		"",
		"output format: xml, csv, both",
	)
	exportCmd.Flags().StringSliceVarP(
		&exportColumnsFlag,
		"columns",
		"",
		nil,
		"xray csv columns, all when empty: --columns Action,Result",
	)
	exportCmd.Flags().StringVarP(
		&exportDirFlag,
		"output",
		"o",
		"",
		"export directory: -o ~/Documents",
	)
	exportCmd.Flags().StringVarP(
		&exportEndpointFlag,
		"endpoint",
		"e",
		"",
		"address prepended to attachment links",
	)
	exportCmd.Flags().IntVarP(
		&exportConcurrencyFlag,
		"concurrency",
		"",
		0,
		"projects exported at once",
	)

	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:          "export",
	Long:         "Export test cases of TestRail projects to XML and Xray CSV files",
	Short:        "export projects",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("format") {
			cfg.Export.Format = exportFormatFlag
		}
		if flags.Changed("columns") {
			cfg.Export.Columns = exportColumnsFlag
		}
		if flags.Changed("output") {
			cfg.Export.Directory = exportDirFlag
		}
		if flags.Changed("endpoint") {
			cfg.Export.Endpoint = exportEndpointFlag
		}
		if flags.Changed("concurrency") {
			cfg.Export.Concurrency = exportConcurrencyFlag
		}

		format, err := exporter.ParseFormat(cfg.Export.Format)
		if err != nil {
			return err
		}

		columns, err := xray.SelectColumns(cfg.Export.Columns...)
		if err != nil {
			return fmt.Errorf("xray.SelectColumns: %w", err)
		}

		selection, err := parseSelection(exportSuitesFlag, exportSectionsFlag)
		if err != nil {
			return err
		}

		now := time.Now()
		logFile, err := exporter.OpenRunLog(cfg.Export.Directory, now)
		if err != nil {
			return fmt.Errorf("exporter.OpenRunLog: %w", err)
		}
		defer logFile.Close()

		ctx := withLogger(cmd.Context(), cmd.ErrOrStderr(), logFile)

		src, err := openSource(ctx, cfg)
		if err != nil {
			return err
		}

		projects, err := exporter.FindProjects(ctx, src, exportProjectsFlag...)
		if err != nil {
			return fmt.Errorf("exporter.FindProjects: %w", err)
		}

		if !selection.Empty() && len(projects) != 1 {
			return fmt.Errorf("--suite and --section need exactly one project, got %d", len(projects))
		}

		reqs := slice.Map(
			projects, func(p testrail.Project) exporter.Request {
				return exporter.Request{Project: p, Selection: selection}
			},
		)

		writer := exporter.NewWriter(
			cfg.Export.Directory,
			exporter.WithFormat(format),
			exporter.WithEndpoint(cfg.Export.Endpoint),
			exporter.WithColumns(columns...),
			exporter.WithClock(func() time.Time { return now }),
		)

		summary := exporter.New(src, writer, exporter.WithConcurrency(cfg.Export.Concurrency)).
			ExportProjects(ctx, reqs)

		out := cmd.OutOrStdout()
		for _, r := range summary.Results {
			for _, pth := range []string{r.XMLPath, r.CSVPath} {
				if pth != "" {
					_, _ = fmt.Fprintf(out, "%s: %s\n", r.Project, pth)
				}
			}
		}

		for _, f := range summary.Failures {
			_, _ = fmt.Fprintf(out, "%s: %v\n", f.Project, f.Err)
		}

		_, _ = fmt.Fprintf(out, "%s (run %s)\n", summary, summary.RunID)

		if len(summary.Failures) > 0 {
			_, _ = fmt.Fprintf(out, "See the log for details: %s\n", logFile.Name())
			ctxlog.FromContext(ctx).Error("export incomplete", "failed", len(summary.Failures))

			return errExportFailed
		}

		return nil
	},
}

// parseSelection reads checked suites and sections. A section is "<suite>:<section>" or a
// bare section id for projects without suites.
func parseSelection(suites []int, sections []string) (exporter.Selection, error) {
	sel := exporter.Selection{Suites: suites}

	for _, s := range sections {
		suitePart, sectionPart, found := strings.Cut(strings.TrimSpace(s), ":")
		if !found {
			suitePart, sectionPart = "", suitePart
		}

		sectionID, err := strconv.Atoi(sectionPart)
		if err != nil {
			return exporter.Selection{}, fmt.Errorf("invalid section %q: %w", s, err)
		}

		ref := exporter.SectionRef{SectionID: sectionID}
		if suitePart != "" {
			suiteID, err := strconv.Atoi(suitePart)
			if err != nil {
				return exporter.Selection{}, fmt.Errorf("invalid section %q: %w", s, err)
			}
			ref.SuiteID = testrail.ID(suiteID)
		}

		sel.Sections = append(sel.Sections, ref)
	}

	return sel, nil
}
