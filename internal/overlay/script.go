package overlay

import (
	_ "embed"
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/paths"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/utils"
	"github.com/bytedance/sonic"
	"github.com/dop251/goja"
)

//go:embed overlay.js
var source string

// ContentType is served with the script.
const ContentType = "application/javascript; charset=utf-8"

// Script is the compiled-checked overlay script served to proxied pages.
type Script struct {
	body []byte
	etag string
}

// LoadScript parses the embedded script so a syntax error fails startup
// instead of every proxied page.
func LoadScript() (*Script, error) {
	if _, err := goja.Compile("overlay.js", source, true); err != nil {
		return nil, fmt.Errorf("compile overlay script: %w", err)
	}
	body := []byte(source)
	return &Script{body: body, etag: utils.DefaultHasher().ETag(body)}, nil
}

func (s *Script) Body() []byte { return s.body }
func (s *Script) ETag() string { return s.etag }

// Injector renders the bootstrap globals and script tag appended to
// rewritten pages.
type Injector struct{}

// Snippet returns the markup for one page. backendURL is this server's
// public base; the socket URL is derived from it. Globals are emitted
// before the script tag so the overlay sees them during init.
func (Injector) Snippet(targetURL, backendURL, breakpoint string) string {
	base := strings.TrimRight(backendURL, "/")

	var b strings.Builder
	b.WriteString("<script>")
	b.WriteString("window.__REVIEW_MODE__ = true;")
	fmt.Fprintf(&b, "window.__TARGET_URL__ = %s;", jsString(targetURL))
	fmt.Fprintf(&b, "window.__SOCKET_URL__ = %s;", jsString(SocketURL(base)))
	if breakpoint != "" {
		fmt.Fprintf(&b, "window.__BREAKPOINT__ = %s;", jsString(breakpoint))
	}
	b.WriteString("</script>")
	fmt.Fprintf(&b, `<script src="%s"></script>`, html.EscapeString(base+paths.OverlayScript))
	return b.String()
}

// SocketURL maps an http(s) base to the ws(s) sync endpoint.
func SocketURL(backendURL string) string {
	u, err := url.Parse(backendURL)
	if err != nil || u.Host == "" {
		return backendURL
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + paths.SocketRoute
	return u.String()
}

var lineSeparators = strings.NewReplacer("\u2028", `\u2028`, "\u2029", `\u2029`)

// jsString quotes s as a JSON string literal with <, > and & escaped, safe
// inside an inline script element.
func jsString(s string) string {
	out, err := sonic.ConfigStd.MarshalToString(s)
	if err != nil {
		return `""`
	}
	return lineSeparators.Replace(out)
}
