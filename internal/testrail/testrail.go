package testrail

import "errors"

// ErrNothingToExport reports that an export selection or document holds no test cases.
var ErrNothingToExport = errors.New("nothing to export: no test cases")

const (
	FieldPreconditions  = "custom_preconds"
	FieldSteps          = "custom_steps"
	FieldExpected       = "custom_expected"
	FieldStepsSeparated = "custom_steps_separated"
)

type Project struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Announcement string `json:"announcement,omitempty"`
	IsCompleted  bool   `json:"is_completed"`
	SuiteMode    int    `json:"suite_mode,omitempty"`
}

type Suite struct {
	ID          *int      `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ProjectID   int       `json:"project_id,omitempty"`
	IsMaster    bool      `json:"is_master,omitempty"`
	IsBaseline  bool      `json:"is_baseline,omitempty"`
	IsCompleted bool      `json:"is_completed,omitempty"`
	Sections    []Section `json:"-"`
}

type Section struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	SuiteID     *int   `json:"suite_id"`
	ParentID    *int   `json:"parent_id"`
	Depth       int    `json:"depth"`
}

type Priority struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name,omitempty"`
	Priority  int    `json:"priority,omitempty"`
	IsDefault bool   `json:"is_default,omitempty"`
}

type CaseType struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default,omitempty"`
}

type Template struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default,omitempty"`
}

type Milestone struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	IsCompleted bool   `json:"is_completed,omitempty"`
}

// ID returns a pointer to v. Nullable identifiers of the service are modelled as *int.
func ID(v int) *int {
	return &v
}

// SameID reports whether two nullable identifiers are both set and equal.
func SameID(a, b *int) bool {
	return a != nil && b != nil && *a == *b
}
