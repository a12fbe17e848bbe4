package exporter

import (
	"context"
	"errors"
	"sync"

	"github.com/robotomize/go-testrail-xray/internal/source"
	"github.com/robotomize/go-testrail-xray/internal/testrail"
)

var _ source.Source = (*fakeSource)(nil)

var errUnavailable = errors.New("unavailable")

type fakeSource struct {
	projects   []testrail.Project
	suites     map[int][]testrail.Suite
	sections   map[int][]testrail.Section
	cases      map[int][]testrail.Case
	priorities []testrail.Priority
	types      []testrail.CaseType
	templates  []testrail.Template

	prioritiesErr error
	templatesErr  error

	mu           sync.Mutex
	sectionCalls []int
}

func (f *fakeSource) Projects(_ context.Context) ([]testrail.Project, error) {
	return f.projects, nil
}

func (f *fakeSource) Suites(_ context.Context, projectID int) ([]testrail.Suite, error) {
	out := make([]testrail.Suite, len(f.suites[projectID]))
	copy(out, f.suites[projectID])

	return out, nil
}

func (f *fakeSource) Sections(_ context.Context, _ int, suiteID *int) ([]testrail.Section, error) {
	if suiteID == nil {
		return nil, nil
	}

	f.mu.Lock()
	f.sectionCalls = append(f.sectionCalls, *suiteID)
	f.mu.Unlock()

	return f.sections[*suiteID], nil
}

func (f *fakeSource) Cases(_ context.Context, projectID int, suiteID, sectionID *int) ([]testrail.Case, error) {
	var out []testrail.Case
	for _, c := range f.cases[projectID] {
		if suiteID != nil && !testrail.SameID(c.SuiteID, suiteID) {
			continue
		}
		if sectionID != nil && !testrail.SameID(c.SectionID, sectionID) {
			continue
		}
		out = append(out, c)
	}

	return out, nil
}

func (f *fakeSource) Priorities(_ context.Context) ([]testrail.Priority, error) {
	return f.priorities, f.prioritiesErr
}

func (f *fakeSource) CaseTypes(_ context.Context) ([]testrail.CaseType, error) {
	return f.types, nil
}

func (f *fakeSource) Templates(_ context.Context, _ int) ([]testrail.Template, error) {
	if f.templatesErr != nil {
		return nil, f.templatesErr
	}

	return f.templates, nil
}

func (f *fakeSource) Milestones(_ context.Context, _ int) ([]testrail.Milestone, error) {
	return nil, errUnavailable
}

// newFakeSource returns a project "Web" (id 1) with two suites and a project "Empty"
// (id 2) without cases.
func newFakeSource() *fakeSource {
	return &fakeSource{
		projects: []testrail.Project{
			{ID: 1, Name: "Web"},
			{ID: 2, Name: "Empty"},
		},
		suites: map[int][]testrail.Suite{
			1: {
				{ID: testrail.ID(10), Name: "Smoke"},
				{ID: testrail.ID(20), Name: "Regression"},
				{ID: testrail.ID(30), Name: "Unused"},
			},
		},
		sections: map[int][]testrail.Section{
			10: {
				{ID: 100, Name: "Login", SuiteID: testrail.ID(10)},
				{ID: 101, Name: "Logout", SuiteID: testrail.ID(10)},
			},
			20: {
				{ID: 200, Name: "Cart", SuiteID: testrail.ID(20)},
			},
		},
		cases: map[int][]testrail.Case{
			1: {
				{
					ID:         1,
					Title:      "Sign in",
					SuiteID:    testrail.ID(10),
					SectionID:  testrail.ID(100),
					PriorityID: testrail.ID(4),
					TypeID:     testrail.ID(7),
					TemplateID: testrail.ID(1),
					CustomFields: map[string]testrail.CustomValue{
						testrail.FieldSteps:    testrail.TextValue("Open the page"),
						testrail.FieldExpected: testrail.TextValue("Form is shown"),
					},
				},
				{
					ID:        2,
					Title:     "Sign out",
					SuiteID:   testrail.ID(10),
					SectionID: testrail.ID(101),
				},
				{
					ID:        3,
					Title:     "Add item",
					SuiteID:   testrail.ID(20),
					SectionID: testrail.ID(200),
				},
			},
		},
		priorities: []testrail.Priority{{ID: 4, Name: "High"}},
		types:      []testrail.CaseType{{ID: 7, Name: "Smoke"}},
		templates:  []testrail.Template{{ID: 1, Name: "Test Case (Text)"}},
	}
}
