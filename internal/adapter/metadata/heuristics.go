// Package metadata guesses a paper's title, authors and abstract from the
// text of its first page.
package metadata

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"paperrag/internal/domain"
)

var (
	bannerPatterns = []*regexp.Regexp{
		regexp.MustCompile(`provided proper attribution is provided`),
		regexp.MustCompile(`permission to (?:use|reproduce)`),
		regexp.MustCompile(`google (?:hereby )?grants permission`),
		regexp.MustCompile(`arxiv:`),
		regexp.MustCompile(`conference on`),
		regexp.MustCompile(`proceedings of`),
	}

	horizontalSpace = regexp.MustCompile(`[ \t]+`)
	blankLineRun    = regexp.MustCompile(`\n{3,}`)
	abstractHeading = regexp.MustCompile(`(?i)^\s*abstract\b`)
	affiliation     = regexp.MustCompile(`(?i)@|university|institute|laboratory|department`)
	etAl            = regexp.MustCompile(`(?i)\bet al\b`)
	titleWord       = regexp.MustCompile(`^[A-Z][a-zA-Z0-9\-]*$`)
	personName      = regexp.MustCompile(`^[A-Z][a-z]+(?: [A-Z][a-z]+)*$`)
	abstractBody    = regexp.MustCompile(`(?is)(?:^|\n)abstract[:\s]*\n?(.*?)(?:\n[A-Z][A-Za-z ]{2,}:|\z)`)
)

// Extract guesses metadata from first page text. fallbackTitle is used when
// no title line is found, typically the PDF's embedded title.
func Extract(firstPage, fallbackTitle string) domain.Metadata {
	lines := Lines(firstPage)

	title := GuessTitle(lines)
	if title == "" {
		title = strings.TrimSpace(fallbackTitle)
	}

	return domain.Metadata{
		Title:    title,
		Authors:  GuessAuthors(lines),
		Abstract: GuessAbstract(lines),
	}
}

// Lines cleans page text and returns its non-empty trimmed lines.
func Lines(page string) []string {
	page = horizontalSpace.ReplaceAllString(page, " ")
	page = blankLineRun.ReplaceAllString(page, "\n\n")

	var lines []string
	for _, ln := range strings.Split(page, "\n") {
		ln = strings.TrimSpace(ln)
		if ln != "" {
			lines = append(lines, ln)
		}
	}
	return lines
}

func isBanner(line string) bool {
	l := strings.ToLower(line)
	for _, p := range bannerPatterns {
		if p.MatchString(l) {
			return true
		}
	}
	return false
}

// GuessTitle picks, among the first lines before "Abstract", the 3 to 20
// word line with the highest share of capitalised words, longest first on
// ties. Banners and affiliation lines are skipped.
func GuessTitle(lines []string) string {
	var preAbstract []string
	for _, ln := range lines {
		if abstractHeading.MatchString(ln) {
			break
		}
		preAbstract = append(preAbstract, ln)
	}
	if len(preAbstract) > 20 {
		preAbstract = preAbstract[:20]
	}

	var candidates []string
	for _, ln := range preAbstract {
		if isBanner(ln) || affiliation.MatchString(ln) {
			continue
		}
		wc := len(strings.Fields(ln))
		if wc >= 3 && wc <= 20 {
			candidates = append(candidates, ln)
		}
	}
	if len(candidates) == 0 {
		return ""
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		ri, rj := titleCaseRatio(candidates[i]), titleCaseRatio(candidates[j])
		if ri != rj {
			return ri > rj
		}
		return utf8.RuneCountInString(candidates[i]) > utf8.RuneCountInString(candidates[j])
	})
	return candidates[0]
}

func titleCaseRatio(line string) float64 {
	words := strings.Fields(line)
	if len(words) == 0 {
		return 0
	}
	tc := 0
	for _, w := range words {
		if titleWord.MatchString(w) {
			tc++
		}
	}
	return float64(tc) / float64(len(words))
}

// GuessAuthors looks near the top of the page for an "et al." line or a
// comma separated list of capitalised names.
func GuessAuthors(lines []string) string {
	window := lines
	if len(window) > 30 {
		window = window[:30]
	}

	for _, ln := range window {
		if isBanner(ln) || affiliation.MatchString(ln) {
			continue
		}
		if etAl.MatchString(ln) {
			return ln
		}

		var parts []string
		for _, p := range strings.Split(ln, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) < 2 || len(parts) > 12 {
			continue
		}
		names := 0
		for _, p := range parts {
			if personName.MatchString(p) {
				names++
			}
		}
		if names >= max(2, len(parts)/2) {
			return ln
		}
	}
	return ""
}

// GuessAbstract returns the text following an "Abstract" heading up to the
// next "Heading:" line or the end of the page.
func GuessAbstract(lines []string) string {
	text := strings.Join(lines, "\n")
	m := abstractBody.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
