package core

import (
	"regexp"
	"strings"

	"github.com/samber/lo"
)

// Matches @user@host mentions preceded by a space or newline.
var mentionRegexp = regexp.MustCompile(`[ \n]@[a-zA-Z0-9_]+([a-zA-Z0-9_.-]+[a-zA-Z0-9_]+)?@[-a-zA-Z0-9._]{1,256}\.[-a-zA-Z0-9]{1,25}`)

// CountExternalMentions counts unique @user@host mentions in plain text.
// Adapters call this after stripping platform markup.
func CountExternalMentions(text string) int {
	matches := mentionRegexp.FindAllString(" "+text, -1)

	return len(lo.Uniq(lo.Map(matches, func(m string, _ int) string {
		return strings.TrimLeft(m, " \n")
	})))
}
