// Package lookup attaches human-readable names to the numeric identifiers of a test case.
package lookup

import (
	"github.com/robotomize/go-testrail-xray/internal/testrail"
)

// Case is a test case enriched with resolved names. A name is empty when its
// identifier is unset or missing from the lookup table; the identifier itself is kept.
type Case struct {
	testrail.Case

	SuiteName       string
	SectionName     string
	SectionParentID *int
	SectionDepth    int
	PriorityName    string
	TypeName        string
	TemplateName    string
	MilestoneName   string
}

// Tables maps identifiers to names for each lookup kind.
type Tables struct {
	Priorities map[int]string
	Types      map[int]string
	Templates  map[int]string
	Milestones map[int]string
}

// NewTables builds lookup tables from the records returned by the service.
func NewTables(
	priorities []testrail.Priority,
	types []testrail.CaseType,
	templates []testrail.Template,
	milestones []testrail.Milestone,
) Tables {
	t := Tables{
		Priorities: make(map[int]string, len(priorities)),
		Types:      make(map[int]string, len(types)),
		Templates:  make(map[int]string, len(templates)),
		Milestones: make(map[int]string, len(milestones)),
	}

	for _, p := range priorities {
		t.Priorities[p.ID] = p.Name
	}
	for _, ct := range types {
		t.Types[ct.ID] = ct.Name
	}
	for _, tpl := range templates {
		t.Templates[tpl.ID] = tpl.Name
	}
	for _, m := range milestones {
		t.Milestones[m.ID] = m.Name
	}

	return t
}

// Resolve enriches c with names from the tables and from its owning suite and section.
// suite and section may be nil.
func (t Tables) Resolve(c testrail.Case, suite *testrail.Suite, section *testrail.Section) Case {
	out := Case{Case: c}

	if suite != nil && testrail.SameID(c.SuiteID, suite.ID) {
		out.SuiteName = suite.Name
	}

	if section != nil && c.SectionID != nil && *c.SectionID == section.ID {
		out.SectionName = section.Name
		out.SectionParentID = section.ParentID
		out.SectionDepth = section.Depth
	}

	out.PriorityName = name(t.Priorities, c.PriorityID)
	out.TypeName = name(t.Types, c.TypeID)
	out.TemplateName = name(t.Templates, c.TemplateID)
	out.MilestoneName = name(t.Milestones, c.MilestoneID)

	return out
}

func name(table map[int]string, id *int) string {
	if id == nil {
		return ""
	}

	return table[*id]
}

// Resolver resolves cases against a fixed set of suites and their sections.
type Resolver struct {
	tables   Tables
	suites   map[int]*testrail.Suite
	sections map[int]map[int]*testrail.Section
}

// NewResolver indexes suites by id. Suites without an id cannot own a case and are skipped.
func NewResolver(tables Tables, suites []testrail.Suite) *Resolver {
	r := &Resolver{
		tables:   tables,
		suites:   make(map[int]*testrail.Suite, len(suites)),
		sections: make(map[int]map[int]*testrail.Section, len(suites)),
	}

	for i := range suites {
		suite := &suites[i]
		if suite.ID == nil {
			continue
		}

		r.suites[*suite.ID] = suite

		idx := make(map[int]*testrail.Section, len(suite.Sections))
		for j := range suite.Sections {
			idx[suite.Sections[j].ID] = &suite.Sections[j]
		}
		r.sections[*suite.ID] = idx
	}

	return r
}

// Resolve looks up the owning suite and section of c and enriches it.
func (r *Resolver) Resolve(c testrail.Case) Case {
	var (
		suite   *testrail.Suite
		section *testrail.Section
	)

	if c.SuiteID != nil {
		suite = r.suites[*c.SuiteID]
		if c.SectionID != nil {
			section = r.sections[*c.SuiteID][*c.SectionID]
		}
	}

	return r.tables.Resolve(c, suite, section)
}

// ResolveAll enriches every case, keeping the input order.
func (r *Resolver) ResolveAll(cases []testrail.Case) []Case {
	out := make([]Case, 0, len(cases))
	for _, c := range cases {
		out = append(out, r.Resolve(c))
	}

	return out
}
