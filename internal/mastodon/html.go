package mastodon

import "regexp"

var (
	lineBreaks = regexp.MustCompile(`(?i)(<br ?/?>|</p>)`)
	tags       = regexp.MustCompile(`<[^>]*>`)
)

// stripHTML flattens status content to plain text, keeping line structure.
func stripHTML(s string) string {
	s = lineBreaks.ReplaceAllString(s, "\n")
	return tags.ReplaceAllString(s, "")
}
