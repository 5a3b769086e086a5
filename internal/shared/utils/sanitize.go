package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var plainText = bluemonday.StrictPolicy()

// PlainText strips every HTML element from user-authored text. The result is
// HTML-unescaped again so mentions, ampersands and quotes survive storage
// exactly as typed; renderers escape on output.
func PlainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(plainText.Sanitize(s)))
}
