package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// StrictPolicy removes all HTML tags and attributes.
var StrictPolicy = bluemonday.StrictPolicy()

// Text strips markup from a free-text form field, decodes entities so that
// "Arts & Science" survives, and collapses surrounding whitespace.
func Text(input string) string {
	if input == "" {
		return ""
	}
	cleaned := html.UnescapeString(StrictPolicy.Sanitize(input))
	return strings.Join(strings.Fields(cleaned), " ")
}

// Email lower-cases and trims an address. Markup is never valid in one.
func Email(input string) string {
	return strings.ToLower(strings.TrimSpace(StrictPolicy.Sanitize(input)))
}

// TextSlice sanitizes each string in a slice, dropping entries that end up empty.
func TextSlice(inputs []string) []string {
	if inputs == nil {
		return nil
	}
	out := make([]string, 0, len(inputs))
	for _, input := range inputs {
		if cleaned := Text(input); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}
