package interchange

import "strings"

var punctuation = strings.NewReplacer(
	"‘", "'",
	"’", "'",
	"‚", "'",
	"‛", "'",
	"“", `"`,
	"”", `"`,
	"„", `"`,
	"‟", `"`,
	"–", "-",
	"—", "-",
	"…", "...",
	"‰", "%o",
)

// Sanitize drops code points that XML 1.0 does not allow and replaces typographic
// punctuation with ASCII. Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(s string) string {
	return punctuation.Replace(strings.Map(xmlChar, s))
}

func xmlChar(r rune) rune {
	switch {
	case r == 0x9, r == 0xA, r == 0xD:
		return r
	case r >= 0x20 && r <= 0xD7FF:
		return r
	case r >= 0xE000 && r <= 0xFFFD:
		return r
	case r >= 0x10000 && r <= 0x10FFFF:
		return r
	default:
		return -1
	}
}
