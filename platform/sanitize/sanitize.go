// Package sanitize provides text sanitization for user-provided fields.
package sanitize

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	htmlTagRegex    = regexp.MustCompile(`<[^>]*>`)
	inlineSpaceRuns = regexp.MustCompile(`[ \t]+`)
)

var entityReplacer = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&amp;", "&",
	"&quot;", "\"",
	"&#39;", "'",
)

// StripHTML removes all HTML tags from a string, making it safe for text-only display.
// Output is NFC-normalized.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(norm.NFC.String(s), "")
	result = entityReplacer.Replace(result)
	// Re-strip after entity decode to catch encoded tags
	result = htmlTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// Text sanitizes multi-line text such as notes. Line breaks are kept,
// runs of spaces collapse to one.
func Text(s string) string {
	lines := strings.Split(strings.ReplaceAll(StripHTML(s), "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(inlineSpaceRuns.ReplaceAllString(line, " "))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Line sanitizes single-line fields such as names and SMS bodies.
func Line(s string) string {
	return strings.Join(strings.Fields(StripHTML(s)), " ")
}
