// Package normalize provides the text normalization shared by the miner,
// validator, and API sides. All three must produce byte-identical output for
// the same input or content comparisons will generate false mismatches.
package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Text normalizes post content for comparison:
//   - Unicode canonical composition (NFC)
//   - all line endings to \n
//   - runs of whitespace collapsed to a single space
//   - leading/trailing whitespace trimmed
//
// Text is idempotent: Text(Text(s)) == Text(s).
func Text(s string) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Author normalizes a username for comparison: trim and lowercase.
func Author(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// TokenKey normalizes a token map key: trim and lowercase, so comparisons
// between miner and validator token maps are deterministic.
func TokenKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
