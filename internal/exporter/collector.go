package exporter

import (
	"context"
	"fmt"

	"github.com/robotomize/go-testrail-xray/internal/ctxlog"
	"github.com/robotomize/go-testrail-xray/internal/lookup"
	"github.com/robotomize/go-testrail-xray/internal/slice"
	"github.com/robotomize/go-testrail-xray/internal/source"
	"github.com/robotomize/go-testrail-xray/internal/testrail"
)

// Collection is everything the hierarchy builder needs for one project.
type Collection struct {
	Project testrail.Project
	Suites  []testrail.Suite
	Cases   []lookup.Case
}

type Collector struct {
	src source.Source
}

func NewCollector(src source.Source) *Collector {
	return &Collector{src: src}
}

// Collect fetches the selected cases of project and enriches them with lookup names.
// Cases are unique by id, first occurrence wins. Only suites owning a collected case
// are returned, with their sections loaded.
func (c *Collector) Collect(ctx context.Context, project testrail.Project, sel Selection) (*Collection, error) {
	logger := ctxlog.FromContext(ctx)

	tables, err := c.tables(ctx, project.ID)
	if err != nil {
		return nil, err
	}

	suites, err := c.src.Suites(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("source Suites: %w", err)
	}

	var cases []testrail.Case
	for _, f := range sel.fetches(suites) {
		found, err := c.src.Cases(ctx, project.ID, f.suiteID, f.sectionID)
		if err != nil {
			return nil, fmt.Errorf("source Cases: %w", err)
		}
		cases = append(cases, found...)
	}

	cases = slice.UniqBy(
		cases, func(tc testrail.Case) int {
			return tc.ID
		},
	)

	owned := slice.Filter(
		suites, func(s testrail.Suite) bool {
			_, ok := slice.Find(
				cases, func(tc testrail.Case) bool {
					return testrail.SameID(tc.SuiteID, s.ID)
				},
			)

			return ok
		},
	)

	for i := range owned {
		if owned[i].Sections != nil {
			continue
		}

		sections, err := c.src.Sections(ctx, project.ID, owned[i].ID)
		if err != nil {
			return nil, fmt.Errorf("source Sections: %w", err)
		}
		owned[i].Sections = sections
	}

	logger.Debug(
		"collected cases",
		"project", project.Name,
		"suites", len(owned),
		"cases", len(cases),
	)

	return &Collection{
		Project: project,
		Suites:  owned,
		Cases:   lookup.NewResolver(tables, owned).ResolveAll(cases),
	}, nil
}

// tables loads the lookup tables. Priorities and case types are required; templates and
// milestones fall back to empty tables.
func (c *Collector) tables(ctx context.Context, projectID int) (lookup.Tables, error) {
	logger := ctxlog.FromContext(ctx)

	priorities, err := c.src.Priorities(ctx)
	if err != nil {
		return lookup.Tables{}, fmt.Errorf("source Priorities: %w", err)
	}

	types, err := c.src.CaseTypes(ctx)
	if err != nil {
		return lookup.Tables{}, fmt.Errorf("source CaseTypes: %w", err)
	}

	templates, err := c.src.Templates(ctx, projectID)
	if err != nil {
		logger.Warn("templates unavailable, names left empty", "project_id", projectID, "error", err)
		templates = nil
	}

	milestones, err := c.src.Milestones(ctx, projectID)
	if err != nil {
		logger.Warn("milestones unavailable, names left empty", "project_id", projectID, "error", err)
		milestones = nil
	}

	return lookup.NewTables(priorities, types, templates, milestones), nil
}
