package live

import (
	"regexp"
	"strings"
)

var (
	codeFenceRe  = regexp.MustCompile("(?s)```.*?```")
	inlineCodeRe = regexp.MustCompile("`([^`]*)`")
	headingRe    = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	emphasisRe   = regexp.MustCompile(`[*_]{1,3}([^*_]+)[*_]{1,3}`)
	linkRe       = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	urlRe        = regexp.MustCompile(`https?://\S+`)
	bulletRe     = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	tableRe      = regexp.MustCompile(`(?m)^\|.*\|\s*$`)
	strayRe      = regexp.MustCompile("[#|>~]")
	spaceRe      = regexp.MustCompile(`\s+`)
)

// SanitizeForSpeech strips markup that reads badly aloud: code blocks,
// markdown emphasis and headings, links, raw URLs and tables. The
// result is plain prose with collapsed whitespace.
func SanitizeForSpeech(text string) string {
	s := codeFenceRe.ReplaceAllString(text, " ")
	s = tableRe.ReplaceAllString(s, " ")
	s = inlineCodeRe.ReplaceAllString(s, "$1")
	s = headingRe.ReplaceAllString(s, "")
	s = linkRe.ReplaceAllString(s, "$1")
	s = urlRe.ReplaceAllString(s, "")
	s = emphasisRe.ReplaceAllString(s, "$1")
	s = bulletRe.ReplaceAllString(s, "")
	s = strayRe.ReplaceAllString(s, " ")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
