package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"golang.org/x/sync/errgroup"

	"github.com/robotomize/go-testrail-xray/internal/slice"
	"github.com/robotomize/go-testrail-xray/internal/testrail"
)

var (
	ErrProjectNotFound = errors.New("project not found in dump")
	ErrSuiteNotFound   = errors.New("suite not found in dump")
)

type dumpSuite struct {
	suite testrail.Suite
	dir   string
}

// DumpReader serves a directory written by Dump as a Source, so exports can run offline.
type DumpReader struct {
	fsys     fs.FS
	projects []testrail.Project
	dirs     map[int]string
	suites   map[int][]dumpSuite
}

// OpenDump reads the project list of a dump and indexes the suites of every project.
func OpenDump(ctx context.Context, fsys fs.FS) (*DumpReader, error) {
	var projects []testrail.Project
	if err := readJSON(fsys, FileProjects, &projects); err != nil {
		return nil, err
	}

	suites := make([][]dumpSuite, len(projects))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultConcurrency)

	for i, p := range projects {
		i, p := i, p
		g.Go(
			func() error {
				if err := gctx.Err(); err != nil {
					return err
				}

				dir := path.Join(DirProjects, SanitizeName(p.Name))

				var list []testrail.Suite
				if err := readOptional(fsys, path.Join(dir, FileSuites), &list); err != nil {
					return err
				}

				suites[i] = slice.Map(
					list, func(s testrail.Suite) dumpSuite {
						return dumpSuite{suite: s, dir: path.Join(dir, SanitizeName(s.Name))}
					},
				)

				return nil
			},
		)
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	r := DumpReader{
		fsys:     fsys,
		projects: projects,
		dirs:     make(map[int]string, len(projects)),
		suites:   make(map[int][]dumpSuite, len(projects)),
	}

	for i, p := range projects {
		r.dirs[p.ID] = path.Join(DirProjects, SanitizeName(p.Name))
		r.suites[p.ID] = suites[i]
	}

	return &r, nil
}

func (r *DumpReader) Projects(_ context.Context) ([]testrail.Project, error) {
	out := make([]testrail.Project, len(r.projects))
	copy(out, r.projects)

	return out, nil
}

func (r *DumpReader) Suites(_ context.Context, projectID int) ([]testrail.Suite, error) {
	if _, ok := r.dirs[projectID]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrProjectNotFound, projectID)
	}

	return slice.Map(
		r.suites[projectID], func(s dumpSuite) testrail.Suite {
			return s.suite
		},
	), nil
}

func (r *DumpReader) Sections(_ context.Context, projectID int, suiteID *int) ([]testrail.Section, error) {
	dir, err := r.dataDir(projectID, suiteID)
	if err != nil {
		return nil, err
	}

	var sections []testrail.Section
	if err := readOptional(r.fsys, path.Join(dir, FileSections), &sections); err != nil {
		return nil, err
	}

	return sections, nil
}

func (r *DumpReader) Cases(_ context.Context, projectID int, suiteID, sectionID *int) ([]testrail.Case, error) {
	dir, err := r.dataDir(projectID, suiteID)
	if err != nil {
		return nil, err
	}

	var cases []testrail.Case
	if err := readOptional(r.fsys, path.Join(dir, FileCases), &cases); err != nil {
		return nil, err
	}

	if sectionID == nil {
		return cases, nil
	}

	return slice.Filter(
		cases, func(c testrail.Case) bool {
			return testrail.SameID(c.SectionID, sectionID)
		},
	), nil
}

func (r *DumpReader) Priorities(_ context.Context) ([]testrail.Priority, error) {
	var out []testrail.Priority
	if err := readOptional(r.fsys, FilePriorities, &out); err != nil {
		return nil, err
	}

	return out, nil
}

func (r *DumpReader) CaseTypes(_ context.Context) ([]testrail.CaseType, error) {
	var out []testrail.CaseType
	if err := readOptional(r.fsys, FileCaseTypes, &out); err != nil {
		return nil, err
	}

	return out, nil
}

func (r *DumpReader) Templates(_ context.Context, projectID int) ([]testrail.Template, error) {
	dir, err := r.dataDir(projectID, nil)
	if err != nil {
		return nil, err
	}

	var out []testrail.Template
	if err := readOptional(r.fsys, path.Join(dir, FileTemplates), &out); err != nil {
		return nil, err
	}

	return out, nil
}

func (r *DumpReader) Milestones(_ context.Context, projectID int) ([]testrail.Milestone, error) {
	dir, err := r.dataDir(projectID, nil)
	if err != nil {
		return nil, err
	}

	var out []testrail.Milestone
	if err := readOptional(r.fsys, path.Join(dir, FileMilestones), &out); err != nil {
		return nil, err
	}

	return out, nil
}

// dataDir returns the directory holding sections.json and cases.json: the suite directory,
// or the project directory when suiteID is nil.
func (r *DumpReader) dataDir(projectID int, suiteID *int) (string, error) {
	dir, ok := r.dirs[projectID]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrProjectNotFound, projectID)
	}

	if suiteID == nil {
		return dir, nil
	}

	s, ok := slice.Find(
		r.suites[projectID], func(s dumpSuite) bool {
			return testrail.SameID(s.suite.ID, suiteID)
		},
	)
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrSuiteNotFound, *suiteID)
	}

	return s.dir, nil
}

func readJSON(fsys fs.FS, name string, v any) error {
	b, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}

	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}

	return nil
}

func readOptional(fsys fs.FS, name string, v any) error {
	if err := readJSON(fsys, name, v); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return nil
}
