package exporter

import (
	"github.com/robotomize/go-testrail-xray/internal/testrail"
)

// SectionRef points at a checked section. SuiteID is nil for projects without suites.
type SectionRef struct {
	SuiteID   *int
	SectionID int
}

// Selection holds the checked nodes of a project tree. An empty selection exports the
// whole project.
type Selection struct {
	Suites   []int
	Sections []SectionRef
}

func (s Selection) Empty() bool {
	return len(s.Suites) == 0 && len(s.Sections) == 0
}

type fetch struct {
	suiteID   *int
	sectionID *int
}

// fetches returns the case queries of the selection in order. A checked section is
// skipped when its suite is checked as well.
func (s Selection) fetches(suites []testrail.Suite) []fetch {
	if s.Empty() {
		if len(suites) == 0 {
			return []fetch{{}}
		}

		out := make([]fetch, 0, len(suites))
		for _, suite := range suites {
			out = append(out, fetch{suiteID: suite.ID})
		}

		return out
	}

	checked := make(map[int]struct{}, len(s.Suites))
	out := make([]fetch, 0, len(s.Suites)+len(s.Sections))
	for _, id := range s.Suites {
		if _, ok := checked[id]; ok {
			continue
		}
		checked[id] = struct{}{}
		out = append(out, fetch{suiteID: testrail.ID(id)})
	}

	for _, ref := range s.Sections {
		if ref.SuiteID != nil {
			if _, ok := checked[*ref.SuiteID]; ok {
				continue
			}
		}
		out = append(out, fetch{suiteID: ref.SuiteID, sectionID: testrail.ID(ref.SectionID)})
	}

	return out
}
