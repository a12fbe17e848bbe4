package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/robotomize/go-testrail-xray/internal/ctxlog"
	"github.com/robotomize/go-testrail-xray/internal/fs"
	"github.com/robotomize/go-testrail-xray/internal/testrail"
)

// Dump directory layout.
const (
	FileProjects    = "projects.json"
	FileCaseFields  = "case_fields.json"
	FileCaseTypes   = "case_types.json"
	FilePriorities  = "priorities.json"
	DirProjects     = "projects"
	FileProjectInfo = "project_info.json"
	FileTemplates   = "templates.json"
	FileSuites      = "suites.json"
	FileUsers       = "users.json"
	FileMilestones  = "milestones.json"
	FileSuiteInfo   = "suite_info.json"
	FileSections    = "sections.json"
	FileCases       = "cases.json"
)

const (
	maxNameLength      = 200
	defaultConcurrency = 4
)

var nameReplacer = strings.NewReplacer(
	"/", "_", `\`, "_", ":", "_", "*", "_", "?", "_", `"`, "_", "<", "_", ">", "_", "|", "_",
	"\n", "_", "\r", "_", "\t", "_",
)

// SanitizeName turns a project or suite name into a directory name of the dump.
func SanitizeName(name string) string {
	name = strings.Trim(nameReplacer.Replace(name), ". ")
	if utf8.RuneCountInString(name) > maxNameLength {
		name = string([]rune(name)[:maxNameLength])
	}

	if name == "" {
		return "unnamed"
	}

	return name
}

// Lister returns the raw items of a list endpoint. *Client implements it.
type Lister interface {
	List(ctx context.Context, endpoint, key string, params url.Values, paginate bool) ([]json.RawMessage, error)
}

type DumpOption func(*dumpOptions)

type dumpOptions struct {
	limitProjects int
	concurrency   int
}

// WithLimitProjects dumps only the first n projects. Zero means all.
func WithLimitProjects(n int) DumpOption {
	return func(o *dumpOptions) {
		o.limitProjects = n
	}
}

// WithConcurrency sets how many projects are downloaded at once.
func WithConcurrency(n int) DumpOption {
	return func(o *dumpOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// DumpSummary counts what a dump stored. Failed lists the entities whose data could not
// be fetched.
type DumpSummary struct {
	Projects int
	Suites   int
	Cases    int
	Failed   []string
}

func (s *DumpSummary) merge(o DumpSummary) {
	s.Projects += o.Projects
	s.Suites += o.Suites
	s.Cases += o.Cases
	s.Failed = append(s.Failed, o.Failed...)
}

// Dump downloads projects, global lookup lists and every suite, section and case into dir.
// Fetch failures below the project list are logged and recorded in the summary;
// write failures abort the dump.
func Dump(ctx context.Context, l Lister, dir string, opts ...DumpOption) (DumpSummary, error) {
	o := dumpOptions{concurrency: defaultConcurrency}
	for _, opt := range opts {
		opt(&o)
	}

	logger := ctxlog.FromContext(ctx)

	var summary DumpSummary

	projects, err := l.List(ctx, "get_projects", "projects", nil, true)
	if err != nil {
		return summary, fmt.Errorf("list projects: %w", err)
	}

	if err := writeJSON(filepath.Join(dir, FileProjects), projects); err != nil {
		return summary, err
	}

	globals := []struct {
		file     string
		endpoint string
		key      string
	}{
		{file: FileCaseFields, endpoint: "get_case_fields", key: "case_fields"},
		{file: FileCaseTypes, endpoint: "get_case_types", key: "case_types"},
		{file: FilePriorities, endpoint: "get_priorities", key: "priorities"},
	}

	for _, g := range globals {
		items, err := l.List(ctx, g.endpoint, g.key, nil, false)
		if err != nil {
			return summary, fmt.Errorf("list %s: %w", g.key, err)
		}

		if err := writeJSON(filepath.Join(dir, g.file), items); err != nil {
			return summary, err
		}
	}

	if o.limitProjects > 0 && len(projects) > o.limitProjects {
		logger.Info("limiting projects", "limit", o.limitProjects, "total", len(projects))
		projects = projects[:o.limitProjects]
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	for _, raw := range projects {
		raw := raw
		g.Go(
			func() error {
				stats, err := dumpProject(gctx, l, filepath.Join(dir, DirProjects), raw)

				mu.Lock()
				summary.merge(stats)
				mu.Unlock()

				return err
			},
		)
	}

	if err := g.Wait(); err != nil {
		return summary, err
	}

	return summary, nil
}

func dumpProject(ctx context.Context, l Lister, dir string, raw json.RawMessage) (DumpSummary, error) {
	var (
		summary DumpSummary
		project testrail.Project
	)

	if err := json.Unmarshal(raw, &project); err != nil {
		return summary, fmt.Errorf("decode project: %w", err)
	}

	logger := ctxlog.FromContext(ctx).With("project", project.Name, "project_id", project.ID)
	logger.Info("dumping project")

	id := strconv.Itoa(project.ID)
	projectDir := filepath.Join(dir, SanitizeName(project.Name))

	if err := writeJSON(filepath.Join(projectDir, FileProjectInfo), raw); err != nil {
		return summary, err
	}
	summary.Projects++

	fail := func(what string, err error) {
		logger.Warn("fetch failed", "what", what, "error", err)
		summary.Failed = append(summary.Failed, fmt.Sprintf("%s: %s", project.Name, what))
	}

	fetch := func(file, endpoint, key string, params url.Values, paginate bool) ([]json.RawMessage, bool, error) {
		items, err := l.List(ctx, endpoint, key, params, paginate)
		if err != nil {
			if ctx.Err() != nil {
				return nil, false, ctx.Err()
			}
			fail(key, err)
			return nil, false, nil
		}

		if err := writeJSON(file, items); err != nil {
			return nil, false, err
		}

		return items, true, nil
	}

	if _, _, err := fetch(filepath.Join(projectDir, FileTemplates), "get_templates/"+id, "templates", nil, false); err != nil {
		return summary, err
	}

	suites, ok, err := fetch(filepath.Join(projectDir, FileSuites), "get_suites/"+id, "suites", nil, false)
	if err != nil || !ok {
		return summary, err
	}

	if _, _, err := fetch(filepath.Join(projectDir, FileUsers), "get_users/"+id, "users", nil, false); err != nil {
		return summary, err
	}

	if _, _, err := fetch(filepath.Join(projectDir, FileMilestones), "get_milestones/"+id, "milestones", nil, true); err != nil {
		return summary, err
	}

	if len(suites) == 0 {
		logger.Info("project has no suites, dumping project level sections")

		if _, _, err := fetch(filepath.Join(projectDir, FileSections), "get_sections/"+id, "sections", nil, true); err != nil {
			return summary, err
		}

		cases, _, err := fetch(filepath.Join(projectDir, FileCases), "get_cases/"+id, "cases", nil, true)
		summary.Cases += len(cases)

		return summary, err
	}

	for _, rawSuite := range suites {
		var suite testrail.Suite
		if err := json.Unmarshal(rawSuite, &suite); err != nil {
			fail("suite", fmt.Errorf("decode suite: %w", err))
			continue
		}

		if suite.ID == nil {
			fail("suite", fmt.Errorf("suite %q has no id", suite.Name))
			continue
		}

		suiteDir := filepath.Join(projectDir, SanitizeName(suite.Name))
		if err := writeJSON(filepath.Join(suiteDir, FileSuiteInfo), rawSuite); err != nil {
			return summary, err
		}
		summary.Suites++

		params := url.Values{}
		setID(params, "suite_id", suite.ID)

		if _, _, err := fetch(filepath.Join(suiteDir, FileSections), "get_sections/"+id, "sections", params, true); err != nil {
			return summary, err
		}

		cases, _, err := fetch(filepath.Join(suiteDir, FileCases), "get_cases/"+id, "cases", params, true)
		if err != nil {
			return summary, err
		}
		summary.Cases += len(cases)

		logger.Debug("suite dumped", "suite", suite.Name, "cases", len(cases))
	}

	return summary, nil
}

func writeJSON(pth string, v any) error {
	if items, ok := v.([]json.RawMessage); ok && items == nil {
		v = []json.RawMessage{}
	}

	err := fs.WriteFile(
		pth, func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "  ")

			return enc.Encode(v)
		},
	)
	if err != nil {
		return fmt.Errorf("write %s: %w", pth, err)
	}

	return nil
}
