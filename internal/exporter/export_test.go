package exporter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/robotomize/go-testrail-xray/internal/testrail"
	"github.com/robotomize/go-testrail-xray/internal/xray"
)

var fixedTime = time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)

func fixedClock() time.Time {
	return fixedTime
}

func TestSelection_fetches(t *testing.T) {
	t.Parallel()

	suites := []testrail.Suite{
		{ID: testrail.ID(10), Name: "Smoke"},
		{ID: testrail.ID(20), Name: "Regression"},
	}

	testCases := []struct {
		name      string
		selection Selection
		suites    []testrail.Suite
		expected  []fetch
	}{
		{
			name:     "test_empty_all_suites",
			suites:   suites,
			expected: []fetch{{suiteID: testrail.ID(10)}, {suiteID: testrail.ID(20)}},
		},
		{
			name:     "test_empty_without_suites",
			expected: []fetch{{}},
		},
		{
			name: "test_section_of_checked_suite_ignored",
			selection: Selection{
				Suites: []int{10, 10},
				Sections: []SectionRef{
					{SuiteID: testrail.ID(10), SectionID: 100},
					{SuiteID: testrail.ID(20), SectionID: 200},
					{SectionID: 300},
				},
			},
			suites: suites,
			expected: []fetch{
				{suiteID: testrail.ID(10)},
				{suiteID: testrail.ID(20), sectionID: testrail.ID(200)},
				{sectionID: testrail.ID(300)},
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(
			tc.name, func(t *testing.T) {
				t.Parallel()

				got := tc.selection.fetches(tc.suites)
				if diff := cmp.Diff(tc.expected, got, cmp.AllowUnexported(fetch{})); diff != "" {
					t.Errorf("mismatch (-want, +got):\n%s", diff)
				}
			},
		)
	}
}

func TestCollector_Collect(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	project := src.projects[0]

	coll, err := NewCollector(src).Collect(
		context.Background(), project, Selection{
			Suites: []int{10},
			Sections: []SectionRef{
				{SuiteID: testrail.ID(10), SectionID: 100},
			},
		},
	)
	require.NoError(t, err)

	require.Len(t, coll.Suites, 1)
	require.Equal(t, "Smoke", coll.Suites[0].Name)
	require.Len(t, coll.Suites[0].Sections, 2)
	require.Equal(t, []int{10}, src.sectionCalls)

	titles := make([]string, 0, len(coll.Cases))
	for _, c := range coll.Cases {
		titles = append(titles, c.Title)
	}
	require.Equal(t, []string{"Sign in", "Sign out"}, titles)

	first := coll.Cases[0]
	require.Equal(t, "Smoke", first.SuiteName)
	require.Equal(t, "Login", first.SectionName)
	require.Equal(t, "High", first.PriorityName)
	require.Equal(t, "Smoke", first.TypeName)
	require.Equal(t, "Test Case (Text)", first.TemplateName)
	require.Empty(t, first.MilestoneName)
}

func TestCollector_Collect_Dedup(t *testing.T) {
	t.Parallel()

	src := newFakeSource()

	coll, err := NewCollector(src).Collect(
		context.Background(), src.projects[0], Selection{
			Sections: []SectionRef{
				{SuiteID: testrail.ID(20), SectionID: 200},
				{SuiteID: testrail.ID(20), SectionID: 200},
			},
		},
	)
	require.NoError(t, err)
	require.Len(t, coll.Cases, 1)
	require.Len(t, coll.Suites, 1)
	require.Equal(t, "Regression", coll.Suites[0].Name)
}

func TestCollector_Collect_Lookups(t *testing.T) {
	t.Parallel()

	t.Run(
		"test_templates_degrade", func(t *testing.T) {
			t.Parallel()

			src := newFakeSource()
			src.templatesErr = errUnavailable

			coll, err := NewCollector(src).Collect(context.Background(), src.projects[0], Selection{})
			require.NoError(t, err)
			require.Len(t, coll.Cases, 3)
			require.Empty(t, coll.Cases[0].TemplateName)
		},
	)

	t.Run(
		"test_priorities_required", func(t *testing.T) {
			t.Parallel()

			src := newFakeSource()
			src.prioritiesErr = errUnavailable

			_, err := NewCollector(src).Collect(context.Background(), src.projects[0], Selection{})
			require.ErrorIs(t, err, errUnavailable)
		},
	)
}

func TestExporter_ExportProject(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := newFakeSource()
	e := New(src, NewWriter(dir, WithClock(fixedClock), WithEndpoint("https://tr.example.com/")))

	result, err := e.ExportProject(context.Background(), Request{Project: src.projects[0]})
	require.NoError(t, err)

	expected := Result{
		Project: "Web",
		XMLPath: filepath.Join(dir, "Web_export_20240305-140709.xml"),
		CSVPath: filepath.Join(dir, "Web_xray_export_20240305-140709.csv"),
		Cases:   3,
		Rows:    3,
	}
	if diff := cmp.Diff(expected, result); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}

	xmlData, err := os.ReadFile(result.XMLPath)
	require.NoError(t, err)
	require.Contains(t, string(xmlData), "<name>Smoke</name>")
	require.Contains(t, string(xmlData), "<title>Sign in</title>")

	csvData, err := os.ReadFile(result.CSVPath)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(csvData)), "\n")
	require.Len(t, lines, 4)
	require.True(t, strings.HasPrefix(lines[0], "Suite Name,Section Name,Issue ID"))
	require.Contains(t, lines[1], "Sign in")
}

func TestExporter_ExportProjects(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := newFakeSource()
	e := New(src, NewWriter(dir, WithClock(fixedClock), WithFormat(FormatXML)), WithConcurrency(2))

	summary := e.ExportProjects(
		context.Background(), []Request{
			{Project: src.projects[0]},
			{Project: src.projects[1]},
		},
	)

	require.NotEmpty(t, summary.RunID)
	require.Equal(t, "1/2 projects exported", summary.String())
	require.Len(t, summary.Results, 1)
	require.Empty(t, summary.Results[0].CSVPath)
	require.Len(t, summary.Failures, 1)
	require.Equal(t, "Empty", summary.Failures[0].Project)
	require.ErrorIs(t, summary.Failures[0].Err, testrail.ErrNothingToExport)
}

func TestWriter_Write_Error(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	src := newFakeSource()
	e := New(src, NewWriter(blocker, WithClock(fixedClock)))

	_, err := e.ExportProject(context.Background(), Request{Project: src.projects[0]})
	require.Error(t, err)

	var writeErr *WriteError
	require.True(t, errors.As(err, &writeErr))
	require.Equal(t, filepath.Join(blocker, "Web_export_20240305-140709.xml"), writeErr.Path)
}

func TestWriter_Columns(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := newFakeSource()
	w := NewWriter(dir, WithClock(fixedClock), WithFormat(FormatCSV), WithColumns(xray.ColumnAction))

	result, err := New(src, w).ExportProject(context.Background(), Request{Project: src.projects[0]})
	require.NoError(t, err)
	require.Empty(t, result.XMLPath)

	data, err := os.ReadFile(result.CSVPath)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "Suite Name,Section Name,Issue ID,Test Title,Action\n"))
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		input    string
		expected Format
		err      error
	}{
		{input: "xml", expected: FormatXML},
		{input: " CSV ", expected: FormatCSV},
		{input: "Both", expected: FormatBoth},
		{input: "pdf", err: ErrInvalidFormat},
	}

	for _, tc := range testCases {
		got, err := ParseFormat(tc.input)
		if !errors.Is(err, tc.err) {
			t.Errorf("%q: got: %v, expected: %v", tc.input, err, tc.err)
		}
		if got != tc.expected {
			t.Errorf("%q: got: %q, expected: %q", tc.input, got, tc.expected)
		}
	}
}

func TestSanitizeFileName(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		input    string
		expected string
	}{
		{input: "Web", expected: "Web"},
		{input: `A/B\C`, expected: "A-B-C"},
		{input: `a<b>c:d"e|f?g*h`, expected: "a_b_c_d_e_f_g_h"},
		{input: " . Project . ", expected: "Project"},
		{input: " .. ", expected: "unnamed_project"},
	}

	for _, tc := range testCases {
		if got := SanitizeFileName(tc.input); got != tc.expected {
			t.Errorf("%q: got: %q, expected: %q", tc.input, got, tc.expected)
		}
	}
}

func TestFindProjects(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	ctx := context.Background()

	all, err := FindProjects(ctx, src)
	require.NoError(t, err)
	require.Len(t, all, 2)

	found, err := FindProjects(ctx, src, "2", "web")
	require.NoError(t, err)
	require.Equal(t, []testrail.Project{src.projects[1], src.projects[0]}, found)

	_, err = FindProjects(ctx, src, "Mobile")
	require.ErrorIs(t, err, ErrProjectNotFound)
}

func TestOpenRunLog(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	file, err := OpenRunLog(dir, fixedTime)
	require.NoError(t, err)
	t.Cleanup(func() { _ = file.Close() })

	require.Equal(t, filepath.Join(dir, LogDirName, "trxray_export_20240305-140709.log"), file.Name())
}
