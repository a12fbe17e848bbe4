package xray

import (
	"strconv"
	"strings"

	"github.com/robotomize/go-testrail-xray/internal/interchange"
	"github.com/robotomize/go-testrail-xray/internal/testrail"
)

// Row is one line of the flat table. Priority 0 renders as an empty cell.
type Row struct {
	SuiteName     string
	SectionPath   string
	IssueID       int
	TestType      string
	Title         string
	Priority      int
	Preconditions string
	Action        string
	Data          string
	Result        string
	TestRepo      string
	Labels        string
}

// Value returns the cell of col.
func (r Row) Value(col Column) string {
	switch col {
	case ColumnSuiteName:
		return r.SuiteName
	case ColumnSectionName:
		return r.SectionPath
	case ColumnIssueID:
		return strconv.Itoa(r.IssueID)
	case ColumnTestType:
		return r.TestType
	case ColumnTestTitle:
		return r.Title
	case ColumnTestPriority:
		if r.Priority == 0 {
			return ""
		}
		return strconv.Itoa(r.Priority)
	case ColumnPreconditions:
		return r.Preconditions
	case ColumnAction:
		return r.Action
	case ColumnData:
		return r.Data
	case ColumnResult:
		return r.Result
	case ColumnTestRepo:
		return r.TestRepo
	case ColumnLabels:
		return r.Labels
	default:
		return ""
	}
}

// Table is the flattened document with its selected columns.
type Table struct {
	Columns []Column
	Rows    []Row
	// Cases is the number of distinct issue ids.
	Cases int
}

type Option func(*Options)

type Options struct {
	endpoint string
	columns  []Column
}

// WithEndpoint sets the service address used when rewriting embedded links.
func WithEndpoint(endpoint string) Option {
	return func(o *Options) {
		o.endpoint = endpoint
	}
}

// WithColumns limits the exported columns. Mandatory columns are always kept.
func WithColumns(cols ...Column) Option {
	return func(o *Options) {
		o.columns = cols
	}
}

// Flatten walks doc depth first and emits one row per step, or one row per case without
// steps. Issue ids start at 1 and advance once per case across the whole document.
// A document without cases yields testrail.ErrNothingToExport.
func Flatten(doc *interchange.Document, opts ...Option) (*Table, error) {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}

	f := flattener{endpoint: o.endpoint, issueID: 1}
	if doc != nil {
		for _, s := range doc.Suites {
			f.walk(s.Name, s.Sections.Sections, nil)
		}
	}

	if f.cases == 0 {
		return nil, testrail.ErrNothingToExport
	}

	return &Table{
		Columns: normalizeColumns(o.columns),
		Rows:    f.rows,
		Cases:   f.cases,
	}, nil
}

type stepsKind int

const (
	noSteps stepsKind = iota
	mergedSteps
	discreteSteps
)

func stepsKindOf(c interchange.Custom) stepsKind {
	switch {
	case c.Steps != nil || c.Expected != nil:
		return mergedSteps
	case c.StepsSeparated != nil:
		return discreteSteps
	default:
		return noSteps
	}
}

// flattener accumulates the rows of one Flatten call.
type flattener struct {
	endpoint string
	issueID  int
	cases    int
	rows     []Row
}

func (f *flattener) walk(suite string, sections []interchange.Section, path []string) {
	for _, sec := range sections {
		secPath := path[:len(path):len(path)]
		if name := strings.TrimSpace(sec.Name); name != "" {
			secPath = append(secPath, name)
		}

		if sec.Cases != nil {
			for _, c := range sec.Cases.Cases {
				f.addCase(suite, strings.Join(secPath, "/"), c)
			}
		}

		if sec.Sections != nil {
			f.walk(suite, sec.Sections.Sections, secPath)
		}
	}
}

func (f *flattener) addCase(suite, sectionPath string, c interchange.Case) {
	testType := TestTypeManual
	if c.Custom.AutomationType != nil {
		testType = TestType(c.Custom.AutomationType.Value)
	}

	base := Row{
		SuiteName:   suite,
		SectionPath: sectionPath,
		IssueID:     f.issueID,
		TestType:    testType,
	}

	first := base
	first.Title = CleanTags(c.Title)
	first.Priority = PriorityValue(strings.TrimSpace(c.Priority))
	first.Preconditions = f.text(c.Custom.Preconds)
	first.TestRepo = sectionPath
	first.Labels = c.Type

	switch stepsKindOf(c.Custom) {
	case mergedSteps:
		first.Action = f.text(c.Custom.Steps)
		first.Result = f.text(c.Custom.Expected)
		f.rows = append(f.rows, first)
	case discreteSteps:
		steps := c.Custom.StepsSeparated.Steps
		if len(steps) == 0 {
			fallback := base
			fallback.Title = first.Title
			fallback.Priority = first.Priority
			f.rows = append(f.rows, fallback)
			break
		}

		for i, step := range steps {
			row := base
			if i == 0 {
				row = first
			}
			row.Action = StepText(step.Content, f.endpoint)
			row.Data = StepText(step.AdditionalInfo, f.endpoint)
			row.Result = StepText(step.Expected, f.endpoint)
			f.rows = append(f.rows, row)
		}
	case noSteps:
		f.rows = append(f.rows, first)
	}

	f.issueID++
	f.cases++
}

func (f *flattener) text(s *string) string {
	if s == nil {
		return ""
	}

	return StepText(*s, f.endpoint)
}
