package hierarchy

import (
	"github.com/robotomize/go-testrail-xray/internal/lookup"
	"github.com/robotomize/go-testrail-xray/internal/testrail"
)

// Build assembles the export document of a project. Cases whose suite or section cannot be
// found are attached to fallback nodes built from their denormalized names, never dropped.
// The only error is testrail.ErrNothingToExport for an empty case list.
func Build(project string, suites []testrail.Suite, cases []lookup.Case) (*Document, error) {
	if len(cases) == 0 {
		return nil, testrail.ErrNothingToExport
	}

	b := newBuilder(project, len(suites))
	for i := range suites {
		b.registerSuite(suites[i])
	}

	for _, c := range cases {
		b.attach(c)
	}

	for _, s := range b.doc.suites {
		link(s)
	}

	return b.doc, nil
}

type builder struct {
	doc  *Document
	byID map[int]int
}

func newBuilder(project string, size int) *builder {
	return &builder{
		doc: &Document{
			Project: project,
			suites:  make([]*Suite, 0, size),
			index:   make(map[SuiteKey]int, size),
		},
		byID: make(map[int]int, size),
	}
}

func (b *builder) addSuite(s *Suite) *Suite {
	if idx, ok := b.doc.index[s.Key]; ok {
		return b.doc.suites[idx]
	}

	idx := len(b.doc.suites)
	b.doc.index[s.Key] = idx
	b.doc.suites = append(b.doc.suites, s)
	if s.ID != nil {
		if _, ok := b.byID[*s.ID]; !ok {
			b.byID[*s.ID] = idx
		}
	}

	return s
}

func (b *builder) registerSuite(ts testrail.Suite) {
	name := orDefault(ts.Name, UnknownSuiteName)
	s := b.addSuite(newSuite(suiteKey(name, ts.ID), ts.ID, name, ts.Description))

	for _, sec := range ts.Sections {
		s.add(
			&Section{
				Key:         sectionKey(sec.ID),
				Name:        orDefault(sec.Name, UnnamedSectionName),
				Description: sec.Description,
				ParentID:    sec.ParentID,
				Depth:       sec.Depth,
			},
		)
	}
}

func (b *builder) suiteOf(c lookup.Case) *Suite {
	if c.SuiteID != nil {
		if idx, ok := b.byID[*c.SuiteID]; ok {
			return b.doc.suites[idx]
		}
	}

	name := orDefault(c.SuiteName, UnknownSuiteName)
	key := suiteKey(name, c.SuiteID)
	if s, ok := b.doc.Suite(key); ok {
		return s
	}

	s := newSuite(key, c.SuiteID, name, "")
	s.Synthesized = true

	return b.addSuite(s)
}

func (b *builder) attach(c lookup.Case) {
	s := b.suiteOf(c)

	key := DefaultSectionKey
	if c.SectionID != nil {
		key = sectionKey(*c.SectionID)
	}

	sec, ok := s.Section(key)
	if !ok {
		sec = s.add(
			&Section{
				Key:         key,
				Name:        orDefault(c.SectionName, UnnamedSectionName),
				ParentID:    c.SectionParentID,
				Depth:       c.SectionDepth,
				Synthesized: true,
			},
		)
	}

	sec.Cases = append(sec.Cases, c)
	b.doc.cases++
}

// link builds parent to child links of a suite. A section with no parent, a parent outside
// the suite or a parent pointing at itself is a root. Sections only reachable through a
// parent cycle are promoted to roots and detached from their parent.
func link(s *Suite) {
	parents := make([]int, len(s.sections))
	for idx, sec := range s.sections {
		parents[idx] = -1
		sec.children = nil

		if sec.Key.Default || sec.ParentID == nil {
			continue
		}

		parent, ok := s.index[sectionKey(*sec.ParentID)]
		if !ok || parent == idx {
			continue
		}

		parents[idx] = parent
	}

	s.roots = s.roots[:0]
	for idx := range s.sections {
		if parents[idx] < 0 {
			s.roots = append(s.roots, idx)
			continue
		}

		p := s.sections[parents[idx]]
		p.children = append(p.children, idx)
	}

	visited := make([]bool, len(s.sections))
	var mark func(idx int)
	mark = func(idx int) {
		if visited[idx] {
			return
		}
		visited[idx] = true
		for _, child := range s.sections[idx].children {
			mark(child)
		}
	}

	for _, root := range s.roots {
		mark(root)
	}

	for idx := range s.sections {
		if visited[idx] {
			continue
		}

		p := s.sections[parents[idx]]
		p.children = removeIndex(p.children, idx)
		s.roots = append(s.roots, idx)
		mark(idx)
	}
}

func removeIndex(list []int, v int) []int {
	out := list[:0]
	for _, item := range list {
		if item != v {
			out = append(out, item)
		}
	}

	return out
}

func newSuite(key SuiteKey, id *int, name, description string) *Suite {
	return &Suite{
		Key:         key,
		ID:          id,
		Name:        name,
		Description: description,
		index:       make(map[SectionKey]int),
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}

	return s
}
