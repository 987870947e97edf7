// Package xmlutil escapes text destined for the XML-delimited sections of
// an assembled prompt, so retrieved passages cannot close or open tags of
// their own.
package xmlutil

import "strings"

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// Escape replaces the five XML special characters with their entity forms.
func Escape(s string) string {
	if !strings.ContainsAny(s, `&<>"'`) {
		return s
	}
	return escaper.Replace(s)
}
