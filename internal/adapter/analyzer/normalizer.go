package analyzer

import (
	"regexp"
	"strings"
)

var (
	horizontalSpace = regexp.MustCompile(`[ \t]+`)
	blankLineRun    = regexp.MustCompile(`\n{3,}`)
)

// Normalize cleans raw extracted text: null bytes become spaces, runs of
// spaces and tabs collapse to one space, three or more newlines collapse to a
// paragraph break, and the result is trimmed.
func Normalize(raw string) string {
	s := strings.ReplaceAll(raw, "\x00", " ")
	s = horizontalSpace.ReplaceAllString(s, " ")
	s = blankLineRun.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
