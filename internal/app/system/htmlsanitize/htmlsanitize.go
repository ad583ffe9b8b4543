// Package htmlsanitize cleans user-supplied text before it is stored.
package htmlsanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	ugc    = bluemonday.UGCPolicy()
	strict = bluemonday.StrictPolicy()
)

// Sanitize keeps basic formatting markup and drops scripts, event handlers
// and unsafe URLs. Used for comment bodies and task descriptions.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return ugc.Sanitize(s)
}

// PlainText strips every tag. Used for titles and names.
func PlainText(s string) string {
	return strings.TrimSpace(strict.Sanitize(s))
}
