// Package exporter collects test cases of TestRail projects and writes them as
// interchange XML and Xray CSV files.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/robotomize/go-testrail-xray/internal/ctxlog"
	"github.com/robotomize/go-testrail-xray/internal/hierarchy"
	"github.com/robotomize/go-testrail-xray/internal/source"
	"github.com/robotomize/go-testrail-xray/internal/testrail"
)

const defaultConcurrency = 4

var ErrProjectNotFound = errors.New("project not found")

// Request selects what to export from one project.
type Request struct {
	Project   testrail.Project
	Selection Selection
}

// Failure is a project that could not be exported.
type Failure struct {
	Project string
	Err     error
}

// Summary reports a multi-project run. Results and Failures keep the request order.
type Summary struct {
	RunID     string
	Total     int
	Completed int
	Results   []Result
	Failures  []Failure
}

func (s Summary) String() string {
	return fmt.Sprintf("%d/%d projects exported", s.Completed, s.Total)
}

type Option func(options *Options)

type Options struct {
	concurrency int
}

// WithConcurrency limits the number of projects exported at once.
func WithConcurrency(n int) Option {
	return func(o *Options) {
		o.concurrency = n
	}
}

type Exporter struct {
	opts      Options
	collector *Collector
	writer    *Writer
}

func New(src source.Source, writer *Writer, opts ...Option) *Exporter {
	e := Exporter{
		opts:      Options{concurrency: defaultConcurrency},
		collector: NewCollector(src),
		writer:    writer,
	}

	for _, o := range opts {
		o(&e.opts)
	}

	if e.opts.concurrency <= 0 {
		e.opts.concurrency = defaultConcurrency
	}

	return &e
}

// ExportProject runs collection, build and write for a single project.
func (e *Exporter) ExportProject(ctx context.Context, req Request) (Result, error) {
	ctx = ctxlog.With(ctx, "project", req.Project.Name)
	logger := ctxlog.FromContext(ctx)

	logger.Info("exporting project", "project_id", req.Project.ID)

	coll, err := e.collector.Collect(ctx, req.Project, req.Selection)
	if err != nil {
		return Result{}, fmt.Errorf("collector Collect: %w", err)
	}

	doc, err := hierarchy.Build(req.Project.Name, coll.Suites, coll.Cases)
	if err != nil {
		return Result{}, fmt.Errorf("hierarchy.Build: %w", err)
	}

	result, err := e.writer.Write(ctx, doc)
	if err != nil {
		return Result{}, fmt.Errorf("writer Write: %w", err)
	}

	return result, nil
}

// ExportProjects exports every request with bounded concurrency. A failing project is
// recorded in the summary and does not stop the others.
func (e *Exporter) ExportProjects(ctx context.Context, reqs []Request) Summary {
	summary := Summary{RunID: uuid.NewString(), Total: len(reqs)}
	ctx = ctxlog.With(ctx, "run_id", summary.RunID)
	logger := ctxlog.FromContext(ctx)

	results := make([]*Result, len(reqs))
	failures := make([]*Failure, len(reqs))

	var mu sync.Mutex
	g := &errgroup.Group{}
	g.SetLimit(e.opts.concurrency)

	for i, req := range reqs {
		i, req := i, req
		g.Go(
			func() error {
				result, err := e.ExportProject(ctx, req)

				mu.Lock()
				defer mu.Unlock()

				if err != nil {
					logger.Error("project export failed", "project", req.Project.Name, "error", err)
					failures[i] = &Failure{Project: req.Project.Name, Err: err}

					return nil
				}

				results[i] = &result
				summary.Completed++

				return nil
			},
		)
	}

	_ = g.Wait()

	for i := range reqs {
		if results[i] != nil {
			summary.Results = append(summary.Results, *results[i])
		}
		if failures[i] != nil {
			summary.Failures = append(summary.Failures, *failures[i])
		}
	}

	logger.Info("export finished", "completed", summary.Completed, "total", summary.Total)

	return summary
}

// FindProjects matches refs against the projects of src by id or by case-insensitive
// name. No refs means every project.
func FindProjects(ctx context.Context, src source.Source, refs ...string) ([]testrail.Project, error) {
	projects, err := src.Projects(ctx)
	if err != nil {
		return nil, fmt.Errorf("source Projects: %w", err)
	}

	if len(refs) == 0 {
		return projects, nil
	}

	out := make([]testrail.Project, 0, len(refs))
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		id, idErr := strconv.Atoi(ref)

		var found bool
		for _, p := range projects {
			if (idErr == nil && p.ID == id) || strings.EqualFold(p.Name, ref) {
				out = append(out, p)
				found = true

				break
			}
		}

		if !found {
			return nil, fmt.Errorf("%w: %q", ErrProjectNotFound, ref)
		}
	}

	return out, nil
}
