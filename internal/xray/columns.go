// Package xray flattens interchange documents into the row-per-step CSV layout
// imported by Xray.
package xray

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownColumn = errors.New("unknown column")

type Column string

const (
	ColumnSuiteName     Column = "Suite Name"
	ColumnSectionName   Column = "Section Name"
	ColumnIssueID       Column = "Issue ID"
	ColumnTestType      Column = "Test Type"
	ColumnTestTitle     Column = "Test Title"
	ColumnTestPriority  Column = "Test Priority"
	ColumnPreconditions Column = "Preconditions"
	ColumnAction        Column = "Action"
	ColumnData          Column = "Data"
	ColumnResult        Column = "Result"
	ColumnTestRepo      Column = "Test Repo"
	ColumnLabels        Column = "Labels"
)

// AllColumns is the full column manifest in output order.
var AllColumns = []Column{
	ColumnSuiteName,
	ColumnSectionName,
	ColumnIssueID,
	ColumnTestType,
	ColumnTestTitle,
	ColumnTestPriority,
	ColumnPreconditions,
	ColumnAction,
	ColumnData,
	ColumnResult,
	ColumnTestRepo,
	ColumnLabels,
}

// MandatoryColumns cannot be excluded from an export.
var MandatoryColumns = []Column{
	ColumnSuiteName,
	ColumnSectionName,
	ColumnIssueID,
	ColumnTestTitle,
}

// IsMandatory reports whether col is always exported.
func (c Column) IsMandatory() bool {
	for _, m := range MandatoryColumns {
		if c == m {
			return true
		}
	}

	return false
}

// ParseColumn matches name against the manifest ignoring case and surrounding spaces.
func ParseColumn(name string) (Column, error) {
	name = strings.TrimSpace(name)
	for _, col := range AllColumns {
		if strings.EqualFold(string(col), name) {
			return col, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownColumn, name)
}

// SelectColumns parses the requested column names. The result is in manifest order,
// always contains the mandatory columns and is the full manifest when names is empty.
func SelectColumns(names ...string) ([]Column, error) {
	cols := make([]Column, 0, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}

		col, err := ParseColumn(name)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}

	return normalizeColumns(cols), nil
}

func normalizeColumns(cols []Column) []Column {
	if len(cols) == 0 {
		out := make([]Column, len(AllColumns))
		copy(out, AllColumns)

		return out
	}

	selected := make(map[Column]struct{}, len(cols))
	for _, col := range cols {
		selected[col] = struct{}{}
	}

	out := make([]Column, 0, len(AllColumns))
	for _, col := range AllColumns {
		if _, ok := selected[col]; ok || col.IsMandatory() {
			out = append(out, col)
		}
	}

	return out
}
