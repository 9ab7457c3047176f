package action

import (
	"fmt"
	"regexp"

	"github.com/xraph/cascade/event"
)

// placeholderRe matches {{key}} template variables, where key is a dotted
// path into the event payload.
var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)

// Render interpolates {{key}} placeholders from the payload. Unresolved
// placeholders are stripped from the output, not left verbatim, so a missing
// variable degrades to an omission rather than leaking template syntax to a
// recipient.
func Render(tmpl string, payload map[string]any) string {
	if tmpl == "" {
		return ""
	}

	return placeholderRe.ReplaceAllStringFunc(tmpl, func(match string) string {
		key := placeholderRe.FindStringSubmatch(match)[1]
		v, ok := event.Lookup(payload, key)
		if !ok || v == nil {
			return ""
		}
		if s, isStr := v.(string); isStr {
			return s
		}
		return fmt.Sprintf("%v", v)
	})
}
