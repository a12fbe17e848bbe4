// Package hierarchy assembles flat suites, sections and enriched cases into an export document:
// one tree per suite, each suite holding a forest of sections, each section an ordered list of cases.
package hierarchy

import (
	"github.com/robotomize/go-testrail-xray/internal/lookup"
)

const (
	UnknownSuiteName   = "Unknown Suite"
	UnnamedSectionName = "Unnamed Section"
)

// SuiteKey identifies a suite inside a document. Suites with equal names but different
// identifiers stay apart.
type SuiteKey struct {
	Name  string
	ID    int
	HasID bool
}

func suiteKey(name string, id *int) SuiteKey {
	if id == nil {
		return SuiteKey{Name: name}
	}

	return SuiteKey{Name: name, ID: *id, HasID: true}
}

// SectionKey identifies a section inside its suite. The default bucket for cases without
// a section id is a reserved key and never equals the key of a real section.
type SectionKey struct {
	ID      int
	Default bool
}

// DefaultSectionKey is the reserved bucket for cases that carry no section id.
var DefaultSectionKey = SectionKey{Default: true}

func sectionKey(id int) SectionKey {
	return SectionKey{ID: id}
}

// Document is the root of an export. It is built once and read many times.
type Document struct {
	Project string

	suites []*Suite
	index  map[SuiteKey]int
	cases  int
}

// Suites returns the suites in registration order.
func (d *Document) Suites() []*Suite {
	return d.suites
}

// Suite returns the suite stored under key.
func (d *Document) Suite(key SuiteKey) (*Suite, bool) {
	idx, ok := d.index[key]
	if !ok {
		return nil, false
	}

	return d.suites[idx], true
}

// CaseCount returns the number of cases attached anywhere in the document.
func (d *Document) CaseCount() int {
	return d.cases
}

// Suite owns an arena of sections. Parent and child links are arena positions.
type Suite struct {
	Key         SuiteKey
	ID          *int
	Name        string
	Description string
	// Synthesized is set for suites built from a case's denormalized metadata.
	Synthesized bool

	sections []*Section
	index    map[SectionKey]int
	roots    []int
}

// Sections returns every section of the suite in registration order.
func (s *Suite) Sections() []*Section {
	return s.sections
}

// Section returns the section stored under key.
func (s *Suite) Section(key SectionKey) (*Section, bool) {
	idx, ok := s.index[key]
	if !ok {
		return nil, false
	}

	return s.sections[idx], true
}

// Roots returns the root sections of the suite in registration order.
func (s *Suite) Roots() []*Section {
	return s.resolve(s.roots)
}

// Children returns the child sections of sec in registration order.
func (s *Suite) Children(sec *Section) []*Section {
	return s.resolve(sec.children)
}

// Walk visits sections depth first, each root followed by its subtree. path holds the
// names of the ancestors of sec and sec itself.
func (s *Suite) Walk(fn func(sec *Section, path []string)) {
	var visit func(idx int, path []string)
	visit = func(idx int, path []string) {
		sec := s.sections[idx]
		path = append(path[:len(path):len(path)], sec.Name)
		fn(sec, path)
		for _, child := range sec.children {
			visit(child, path)
		}
	}

	for _, root := range s.roots {
		visit(root, make([]string, 0, 4))
	}
}

func (s *Suite) resolve(idxs []int) []*Section {
	out := make([]*Section, 0, len(idxs))
	for _, idx := range idxs {
		out = append(out, s.sections[idx])
	}

	return out
}

func (s *Suite) add(sec *Section) *Section {
	if idx, ok := s.index[sec.Key]; ok {
		return s.sections[idx]
	}

	s.index[sec.Key] = len(s.sections)
	s.sections = append(s.sections, sec)

	return sec
}

// Section is a node of a suite's section forest.
type Section struct {
	Key         SectionKey
	Name        string
	Description string
	ParentID    *int
	Depth       int
	// Synthesized is set for sections built from a case's denormalized metadata.
	Synthesized bool
	Cases       []lookup.Case

	children []int
}
