package testrail

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCase_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		expected Case
	}{
		{
			name:  "test_scalar_custom_fields",
			input: `{"id":1,"title":"Login","suite_id":2,"section_id":3,"priority_id":4,"custom_preconds":"logged out","custom_steps":"open page","custom_expected":"form shown"}`,
			expected: Case{
				ID:         1,
				Title:      "Login",
				SuiteID:    ID(2),
				SectionID:  ID(3),
				PriorityID: ID(4),
				CustomFields: map[string]CustomValue{
					FieldPreconditions: TextValue("logged out"),
					FieldSteps:         TextValue("open page"),
					FieldExpected:      TextValue("form shown"),
				},
			},
		},
		{
			name:  "test_separated_steps",
			input: `{"id":7,"title":"Checkout","custom_steps_separated":[{"content":"add item","expected":"cart 1"},{"content":"pay","expected":"paid","additional_info":"card"}]}`,
			expected: Case{
				ID:    7,
				Title: "Checkout",
				CustomFields: map[string]CustomValue{
					FieldStepsSeparated: StepsValue(
						Step{Content: "add item", Expected: "cart 1"},
						Step{Content: "pay", Expected: "paid", AdditionalInfo: "card"},
					),
				},
			},
		},
		{
			name:  "test_null_and_numeric_custom_fields",
			input: `{"id":9,"title":"Nulls","section_id":null,"custom_automation_type":0,"custom_notes":null,"custom_tags":[1,2]}`,
			expected: Case{
				ID:    9,
				Title: "Nulls",
				CustomFields: map[string]CustomValue{
					"custom_automation_type": TextValue("0"),
					"custom_notes":           {},
					"custom_tags":            TextValue("1,2"),
				},
			},
		},
		{
			name:     "test_no_custom_fields",
			input:    `{"id":10,"title":"Plain","refs":"JIRA-1","estimate":"1m"}`,
			expected: Case{ID: 10, Title: "Plain", Refs: "JIRA-1", Estimate: "1m"},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(
			tc.name, func(t *testing.T) {
				t.Parallel()

				var got Case
				if err := json.Unmarshal([]byte(tc.input), &got); err != nil {
					t.Fatalf("json.Unmarshal: %v", err)
				}

				if diff := cmp.Diff(tc.expected, got); diff != "" {
					t.Errorf("mismatch (-want, +got):\n%s", diff)
				}
			},
		)
	}
}

func TestCase_MarshalJSON(t *testing.T) {
	t.Parallel()

	input := Case{
		ID:        5,
		Title:     "Export",
		SectionID: ID(8),
		CustomFields: map[string]CustomValue{
			FieldSteps:          TextValue("run"),
			FieldStepsSeparated: StepsValue(Step{Content: "a", Expected: "b"}),
		},
	}

	b, err := json.Marshal(input)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}

	var got Case
	if err = json.Unmarshal(b, &got); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}

	if diff := cmp.Diff(input, got); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}
}

func TestCustomValue_Empty(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    CustomValue
		expected bool
	}{
		{name: "test_zero", input: CustomValue{}, expected: true},
		{name: "test_blank_text", input: TextValue("  \n"), expected: true},
		{name: "test_text", input: TextValue("x"), expected: false},
		{name: "test_no_steps", input: StepsValue(), expected: true},
		{name: "test_steps", input: StepsValue(Step{Content: "a"}), expected: false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(
			tc.name, func(t *testing.T) {
				t.Parallel()
				if got := tc.input.Empty(); got != tc.expected {
					t.Errorf("got: %v, want: %v", got, tc.expected)
				}
			},
		)
	}
}
