package interchange

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"github.com/robotomize/go-testrail-xray/internal/hierarchy"
	"github.com/robotomize/go-testrail-xray/internal/lookup"
	"github.com/robotomize/go-testrail-xray/internal/testrail"
)

const (
	DefaultTemplate = "Test Case"
	DefaultType     = "Functional"
	DefaultPriority = "Medium"
)

// FieldAutomationType is the custom field carrying the automation type of a case.
const FieldAutomationType = "custom_automation_type"

// Marshal returns the XML of doc. See Encode.
func Marshal(doc *hierarchy.Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Encode writes doc as an indented XML document. A document with one suite is rooted
// at a suite element, otherwise at a suites element. A document without cases yields
// testrail.ErrNothingToExport.
func Encode(w io.Writer, doc *hierarchy.Document) error {
	if doc == nil || doc.CaseCount() == 0 {
		return testrail.ErrNothingToExport
	}

	suites := make([]Suite, 0, len(doc.Suites()))
	for _, s := range doc.Suites() {
		suites = append(suites, NewSuite(s))
	}

	var v any = Suites{Suites: suites}
	if len(suites) == 1 {
		v = suites[0]
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("io.WriteString: %w", err)
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("xml.Encoder.Encode: %w", err)
	}

	if err := enc.Flush(); err != nil {
		return fmt.Errorf("xml.Encoder.Flush: %w", err)
	}

	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("io.WriteString: %w", err)
	}

	return nil
}

// NewSuite converts a suite of the export document, walking its sections depth first.
func NewSuite(s *hierarchy.Suite) Suite {
	out := Suite{
		ID:          SuiteID(s.ID, s.Name),
		Name:        Sanitize(s.Name),
		Description: Sanitize(s.Description),
	}

	for _, root := range s.Roots() {
		out.Sections.Sections = append(out.Sections.Sections, newSection(s, root))
	}

	return out
}

// SuiteID returns "S<id>", or the hex md5 of name when the suite has no id.
func SuiteID(id *int, name string) string {
	if id != nil {
		return "S" + strconv.Itoa(*id)
	}

	sum := md5.Sum([]byte(name))

	return hex.EncodeToString(sum[:])
}

func newSection(s *hierarchy.Suite, sec *hierarchy.Section) Section {
	out := Section{
		Name:        Sanitize(sec.Name),
		Description: Sanitize(sec.Description),
	}

	if children := s.Children(sec); len(children) > 0 {
		out.Sections = &Sections{Sections: make([]Section, 0, len(children))}
		for _, child := range children {
			out.Sections.Sections = append(out.Sections.Sections, newSection(s, child))
		}
	}

	if len(sec.Cases) > 0 {
		out.Cases = &Cases{Cases: make([]Case, 0, len(sec.Cases))}
		for _, c := range sec.Cases {
			out.Cases.Cases = append(out.Cases.Cases, NewCase(c))
		}
	}

	return out
}

// NewCase converts an enriched case. Names missing from the lookup tables fall back to
// the defaults of the format.
func NewCase(c lookup.Case) Case {
	return Case{
		ID:         "C" + strconv.Itoa(c.ID),
		Title:      Sanitize(c.Title),
		Template:   Sanitize(orDefault(c.TemplateName, DefaultTemplate)),
		Type:       Sanitize(orDefault(c.TypeName, DefaultType)),
		Priority:   Sanitize(orDefault(c.PriorityName, DefaultPriority)),
		Estimate:   Sanitize(c.Estimate),
		Milestone:  Sanitize(c.MilestoneName),
		References: Sanitize(c.Refs),
		Custom:     newCustom(c.Case),
	}
}

func newCustom(c testrail.Case) Custom {
	var out Custom

	if v, ok := c.Custom(FieldAutomationType); ok && !v.IsSteps && !v.Empty() {
		out.AutomationType = &Option{Value: Sanitize(v.Text)}
	}

	out.Preconds = text(c, testrail.FieldPreconditions)

	if v, ok := c.Custom(testrail.FieldStepsSeparated); ok && v.IsSteps && len(v.Steps) > 0 {
		steps := make([]Step, 0, len(v.Steps))
		for i, step := range v.Steps {
			steps = append(
				steps, Step{
					Index:          i + 1,
					Content:        Sanitize(step.Content),
					Expected:       Sanitize(step.Expected),
					AdditionalInfo: Sanitize(step.AdditionalInfo),
				},
			)
		}
		out.StepsSeparated = &StepsSeparated{Steps: steps}

		return out
	}

	out.Steps = text(c, testrail.FieldSteps)
	out.Expected = text(c, testrail.FieldExpected)

	return out
}

func text(c testrail.Case, field string) *string {
	v, ok := c.Custom(field)
	if !ok || v.IsSteps || v.Empty() {
		return nil
	}

	s := Sanitize(v.Text)

	return &s
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}

	return s
}
