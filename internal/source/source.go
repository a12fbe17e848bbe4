// Package source provides the records of a TestRail instance, either live over the REST API
// or offline from a JSON dump directory.
package source

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/robotomize/go-testrail-xray/internal/testrail"
)

// Source lists the records an export is built from.
type Source interface {
	Projects(ctx context.Context) ([]testrail.Project, error)
	Suites(ctx context.Context, projectID int) ([]testrail.Suite, error)
	Sections(ctx context.Context, projectID int, suiteID *int) ([]testrail.Section, error)
	Cases(ctx context.Context, projectID int, suiteID, sectionID *int) ([]testrail.Case, error)
	Priorities(ctx context.Context) ([]testrail.Priority, error)
	CaseTypes(ctx context.Context) ([]testrail.CaseType, error)
	Templates(ctx context.Context, projectID int) ([]testrail.Template, error)
	Milestones(ctx context.Context, projectID int) ([]testrail.Milestone, error)
}

var (
	_ Source = (*Client)(nil)
	_ Source = (*DumpReader)(nil)
)

func decodeAll[T any](raw []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(raw))
	for _, item := range raw {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			return nil, fmt.Errorf("json.Unmarshal: %w", err)
		}
		out = append(out, v)
	}

	return out, nil
}
