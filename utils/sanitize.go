package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var plainText = bluemonday.StrictPolicy()

// Sanitize reduces a form field to trimmed plain text. Markup is dropped and
// the remaining text is HTML-escaped.
func Sanitize(input string) string {
	return strings.TrimSpace(plainText.Sanitize(strings.TrimSpace(input)))
}
