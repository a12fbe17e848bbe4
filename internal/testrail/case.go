package testrail

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Case is a single test case as returned by get_cases. Every "custom_*" key of the
// payload is collected into CustomFields.
type Case struct {
	ID           int                    `json:"id"`
	Title        string                 `json:"title"`
	SuiteID      *int                   `json:"suite_id"`
	SectionID    *int                   `json:"section_id"`
	PriorityID   *int                   `json:"priority_id"`
	TypeID       *int                   `json:"type_id"`
	TemplateID   *int                   `json:"template_id"`
	MilestoneID  *int                   `json:"milestone_id"`
	Refs         string                 `json:"refs,omitempty"`
	Estimate     string                 `json:"estimate,omitempty"`
	CustomFields map[string]CustomValue `json:"-"`
}

type caseFields Case

func (c *Case) UnmarshalJSON(b []byte) error {
	var fields caseFields
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	for key, value := range raw {
		if !strings.HasPrefix(key, "custom_") {
			continue
		}

		var v CustomValue
		if err := json.Unmarshal(value, &v); err != nil {
			return fmt.Errorf("field %s: %w", key, err)
		}

		if fields.CustomFields == nil {
			fields.CustomFields = make(map[string]CustomValue)
		}
		fields.CustomFields[key] = v
	}

	*c = Case(fields)

	return nil
}

func (c Case) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(caseFields(c))
	if err != nil {
		return nil, err
	}

	if len(c.CustomFields) == 0 {
		return b, nil
	}

	keys := make([]string, 0, len(c.CustomFields))
	for key := range c.CustomFields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	buf := bytes.NewBuffer(b[:len(b)-1])
	for _, key := range keys {
		value, err := json.Marshal(c.CustomFields[key])
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}

		k, _ := json.Marshal(key)
		buf.WriteByte(',')
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// Custom returns the custom field with the given name.
func (c Case) Custom(name string) (CustomValue, bool) {
	v, ok := c.CustomFields[name]
	return v, ok
}

// Step is one entry of a separated-steps custom field.
type Step struct {
	Content        string `json:"content"`
	Expected       string `json:"expected"`
	AdditionalInfo string `json:"additional_info,omitempty"`
}

// CustomValue holds either scalar text or an ordered list of steps.
type CustomValue struct {
	Text    string
	Steps   []Step
	IsSteps bool
}

// TextValue returns a scalar custom value.
func TextValue(s string) CustomValue {
	return CustomValue{Text: s}
}

// StepsValue returns a separated-steps custom value.
func StepsValue(steps ...Step) CustomValue {
	return CustomValue{Steps: steps, IsSteps: true}
}

func (v *CustomValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*v = CustomValue{}

	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	switch b[0] {
	case '"':
		return json.Unmarshal(b, &v.Text)
	case '[':
		var steps []Step
		if err := json.Unmarshal(b, &steps); err == nil {
			v.Steps = steps
			v.IsSteps = true
			return nil
		}

		var items []json.RawMessage
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}

		parts := make([]string, 0, len(items))
		for _, item := range items {
			parts = append(parts, strings.Trim(string(item), `"`))
		}
		v.Text = strings.Join(parts, ",")
	default:
		v.Text = string(b)
	}

	return nil
}

func (v CustomValue) MarshalJSON() ([]byte, error) {
	if v.IsSteps {
		steps := v.Steps
		if steps == nil {
			steps = []Step{}
		}
		return json.Marshal(steps)
	}

	return json.Marshal(v.Text)
}

// Empty reports whether the value carries no text and no steps.
func (v CustomValue) Empty() bool {
	if v.IsSteps {
		return len(v.Steps) == 0
	}

	return strings.TrimSpace(v.Text) == ""
}
