// Package interchange serializes an export document into the nested suite, section and case
// XML format understood by TestRail importers, and reads such documents back.
package interchange

import "encoding/xml"

const (
	RootSuite  = "suite"
	RootSuites = "suites"
)

// Document is a decoded interchange document. Root is the name of the top-level element.
type Document struct {
	Root   string
	Suites []Suite
}

// CaseCount returns the number of case elements in the document.
func (d Document) CaseCount() int {
	var n int
	for _, s := range d.Suites {
		n += s.Sections.caseCount()
	}

	return n
}

type Suites struct {
	XMLName xml.Name `xml:"suites"`
	Suites  []Suite  `xml:"suite"`
}

type Suite struct {
	XMLName     xml.Name `xml:"suite"`
	ID          string   `xml:"id"`
	Name        string   `xml:"name"`
	Description string   `xml:"description"`
	Sections    Sections `xml:"sections"`
}

type Sections struct {
	Sections []Section `xml:"section"`
}

func (s *Sections) caseCount() int {
	if s == nil {
		return 0
	}

	var n int
	for _, sec := range s.Sections {
		if sec.Cases != nil {
			n += len(sec.Cases.Cases)
		}
		n += sec.Sections.caseCount()
	}

	return n
}

type Section struct {
	Name        string    `xml:"name"`
	Description string    `xml:"description"`
	Sections    *Sections `xml:"sections,omitempty"`
	Cases       *Cases    `xml:"cases,omitempty"`
}

type Cases struct {
	Cases []Case `xml:"case"`
}

type Case struct {
	ID         string `xml:"id"`
	Title      string `xml:"title"`
	Template   string `xml:"template"`
	Type       string `xml:"type"`
	Priority   string `xml:"priority"`
	Estimate   string `xml:"estimate,omitempty"`
	Milestone  string `xml:"milestone,omitempty"`
	References string `xml:"references,omitempty"`
	Custom     Custom `xml:"custom"`
}

// Custom holds the custom fields of a case. A nil field means the element is absent.
// Merged steps (Steps, Expected) and StepsSeparated are never both set by Encode.
type Custom struct {
	AutomationType *Option         `xml:"automation_type,omitempty"`
	Preconds       *string         `xml:"preconds,omitempty"`
	Steps          *string         `xml:"steps,omitempty"`
	Expected       *string         `xml:"expected,omitempty"`
	StepsSeparated *StepsSeparated `xml:"steps_separated,omitempty"`
}

type Option struct {
	ID    string `xml:"id,omitempty"`
	Value string `xml:"value"`
}

type StepsSeparated struct {
	Steps []Step `xml:"step"`
}

type Step struct {
	Index          int    `xml:"index"`
	Content        string `xml:"content"`
	Expected       string `xml:"expected"`
	AdditionalInfo string `xml:"additional_info,omitempty"`
}
