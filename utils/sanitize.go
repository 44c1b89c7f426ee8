package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Habit names and descriptions are shown as plain text in the app, so all markup is dropped.
var sanitizer = bluemonday.StrictPolicy()

// SanitizeText strips HTML from user supplied text and trims surrounding space.
// The policy escapes entities, which are turned back into plain characters.
func SanitizeText(input string) string {
	return strings.TrimSpace(html.UnescapeString(sanitizer.Sanitize(input)))
}
