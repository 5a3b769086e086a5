package proxy

import (
	"regexp"
	"strings"
)

var (
	cssURLPattern    = regexp.MustCompile(`(?i)url\(\s*(?:'([^']*)'|"([^"]*)"|([^'")]*))\s*\)`)
	cssImportPattern = regexp.MustCompile(`(?i)@import\s+(?:'([^']+)'|"([^"]+)")`)
)

// RewriteCSS rewrites url(...) references and string @import rules against
// base. @import url(...) is covered by the url(...) pass. Quote style is
// preserved and data: or already proxied references are left alone.
func RewriteCSS(css, base string) string {
	css = cssURLPattern.ReplaceAllStringFunc(css, func(match string) string {
		quote, ref := captured(cssURLPattern.FindStringSubmatch(match))
		rewritten := RewriteURL(ref, base)
		if rewritten == "" || rewritten == strings.TrimSpace(ref) {
			return match
		}
		return "url(" + quote + rewritten + quote + ")"
	})

	return cssImportPattern.ReplaceAllStringFunc(css, func(match string) string {
		quote, ref := captured(cssImportPattern.FindStringSubmatch(match))
		rewritten := RewriteURL(ref, base)
		if rewritten == "" || rewritten == strings.TrimSpace(ref) {
			return match
		}
		return "@import " + quote + rewritten + quote
	})
}

// captured maps the single-quoted, double-quoted and bare alternatives back
// to a (quote, value) pair.
func captured(groups []string) (string, string) {
	quotes := []string{"'", `"`, ""}
	for i, q := range quotes {
		if i+1 < len(groups) && groups[i+1] != "" {
			return q, groups[i+1]
		}
	}
	return "", ""
}
