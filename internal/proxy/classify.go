package proxy

import (
	"net/url"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Kind selects the rewrite path for an upstream body.
type Kind string

const (
	KindHTML  Kind = "html"
	KindCSS   Kind = "css"
	KindOther Kind = "other"
)

// Classify decides how a body is handled. CSS wins by header or a .css
// path; HTML needs a text/html header, or a sniffed HTML body when the
// upstream sent no Content-Type. The returned content type is the one to
// serve for pass-through bodies.
func Classify(contentType, target string, body []byte) (Kind, string) {
	ct := strings.ToLower(contentType)

	if strings.Contains(ct, "text/css") || hasCSSPath(target) {
		return KindCSS, contentType
	}
	if strings.Contains(ct, "text/html") {
		return KindHTML, contentType
	}
	if strings.TrimSpace(ct) == "" && len(body) > 0 {
		detected := mimetype.Detect(body)
		if detected.Is("text/html") {
			return KindHTML, detected.String()
		}
		return KindOther, detected.String()
	}
	return KindOther, contentType
}

func hasCSSPath(target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return strings.HasSuffix(strings.ToLower(target), ".css")
	}
	return strings.HasSuffix(strings.ToLower(u.Path), ".css")
}
