package xray

import (
	"regexp"
	"strings"
)

const (
	TestTypeManual      = "Manual"
	TestTypeExploratory = "Exploratory"
	TestTypeGeneric     = "Generic"
	DefaultPriority     = 3
)

var (
	markupPattern = regexp.MustCompile(`<.*?>|&([a-z0-9]+|#[0-9]{1,6}|#x[0-9a-f]{1,6});`)
	linkPattern   = regexp.MustCompile(`!\[\]\(index\.php(.*?)\)`)
)

// CleanTags turns &quot; into a quote and strips tags and entity references.
func CleanTags(s string) string {
	if s == "" {
		return ""
	}

	s = strings.ReplaceAll(s, "&quot;", `"`)

	return markupPattern.ReplaceAllString(s, "")
}

// RewriteLinks replaces embedded ![](index.php...) references with [Link|<endpoint>index.php...]
// tokens. endpoint is inserted verbatim.
func RewriteLinks(s, endpoint string) string {
	if !strings.Contains(s, "![](index.php") {
		return s
	}

	return linkPattern.ReplaceAllStringFunc(
		s, func(m string) string {
			sub := linkPattern.FindStringSubmatch(m)
			return "[Link|" + endpoint + "index.php" + sub[1] + "]"
		},
	)
}

// StepText applies the text transform of action, data, result and precondition values.
func StepText(s, endpoint string) string {
	return RewriteLinks(CleanTags(s), endpoint)
}

// PriorityValue maps a priority name to 1 (Critical) through 4 (Low). Any other
// value, including an empty one, maps to 3.
func PriorityValue(name string) int {
	switch name {
	case "Critical":
		return 1
	case "High":
		return 2
	case "Medium":
		return 3
	case "Low":
		return 4
	default:
		return DefaultPriority
	}
}

// TestType maps an automation type through the allow-list. Automated becomes Generic,
// Manual and Exploratory are kept, anything else is Manual.
func TestType(automation string) string {
	switch strings.TrimSpace(automation) {
	case "Exploratory":
		return TestTypeExploratory
	case "Automated":
		return TestTypeGeneric
	default:
		return TestTypeManual
	}
}
