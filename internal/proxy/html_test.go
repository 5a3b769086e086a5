package proxy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <link rel="preconnect" href="https://fonts.example.com">
  <link rel="dns-prefetch" href="//cdn.example.com">
  <link rel="stylesheet" href="/css/site.css">
  <link rel="preload" as="font" href="fonts/a.woff2">
  <link rel="icon" href="favicon.ico">
  <style>body{background:url('img/bg.png')}</style>
  <script src="js/app.js"></script>
</head>
<body>
  <img src="img/hero.jpg" srcset="img/hero-1x.jpg 1x, img/hero-2x.jpg 2x">
  <div style="background-image:url(img/tile.png)">tile</div>
  <video src="media/clip.mp4"><source src="media/clip.webm"></video>
  <a href="/next">next</a>
  <img src="data:image/png;base64,AAAA">
</body>
</html>`

func rewritePage(t *testing.T, snippet string) string {
	t.Helper()
	out, err := RewriteHTML([]byte(samplePage), "https://site.example.com/app/index.html", snippet)
	require.NoError(t, err)
	return string(out)
}

func TestRewriteHTMLRemovesHintLinks(t *testing.T) {
	out := rewritePage(t, "")

	assert.NotContains(t, out, "preconnect")
	assert.NotContains(t, out, "fonts.example.com")
	assert.NotContains(t, out, "dns-prefetch")
}

func TestRewriteHTMLResourceAttributes(t *testing.T) {
	out := rewritePage(t, "")

	for _, want := range []string{
		`href="/proxy?url=https%3A%2F%2Fsite.example.com%2Fcss%2Fsite.css"`,
		`href="/proxy?url=https%3A%2F%2Fsite.example.com%2Fapp%2Ffavicon.ico"`,
		`src="/proxy?url=https%3A%2F%2Fsite.example.com%2Fapp%2Fjs%2Fapp.js"`,
		`src="/proxy?url=https%3A%2F%2Fsite.example.com%2Fapp%2Fimg%2Fhero.jpg"`,
		`src="/proxy?url=https%3A%2F%2Fsite.example.com%2Fapp%2Fmedia%2Fclip.mp4"`,
		`src="/proxy?url=https%3A%2F%2Fsite.example.com%2Fapp%2Fmedia%2Fclip.webm"`,
	} {
		assert.Contains(t, out, want)
	}

	// Navigation links and data URIs are not resources
	assert.Contains(t, out, `href="/next"`)
	assert.Contains(t, out, `src="data:image/png;base64,AAAA"`)
}

func TestRewriteHTMLFontPreloadGetsCrossorigin(t *testing.T) {
	out := rewritePage(t, "")

	assert.Contains(t, out, `href="/proxy?url=https%3A%2F%2Fsite.example.com%2Fapp%2Ffonts%2Fa.woff2"`)
	assert.Contains(t, out, `crossorigin="anonymous"`)
}

func TestRewriteHTMLKeepsExistingCrossorigin(t *testing.T) {
	page := `<html><head><link rel="preload" as="font" href="/a.woff2" crossorigin="use-credentials"></head><body></body></html>`
	out, err := RewriteHTML([]byte(page), "https://site.example.com/", "")
	require.NoError(t, err)

	assert.Contains(t, string(out), `crossorigin="use-credentials"`)
	assert.NotContains(t, string(out), "anonymous")
}

func TestRewriteHTMLStyles(t *testing.T) {
	out := rewritePage(t, "")

	assert.Contains(t, out, `url('/proxy?url=https%3A%2F%2Fsite.example.com%2Fapp%2Fimg%2Fbg.png')`)
	assert.Contains(t, out, `url(/proxy?url=https%3A%2F%2Fsite.example.com%2Fapp%2Fimg%2Ftile.png)`)
}

func TestRewriteHTMLSrcset(t *testing.T) {
	out := rewritePage(t, "")

	assert.Contains(t, out,
		`srcset="/proxy?url=https%3A%2F%2Fsite.example.com%2Fapp%2Fimg%2Fhero-1x.jpg 1x, /proxy?url=https%3A%2F%2Fsite.example.com%2Fapp%2Fimg%2Fhero-2x.jpg 2x"`)
}

func TestRewriteSrcset(t *testing.T) {
	got := RewriteSrcset(" a.jpg 480w,b.jpg   800w, ,c.jpg", "https://x.com/")
	assert.Equal(t,
		"/proxy?url=https%3A%2F%2Fx.com%2Fa.jpg 480w, /proxy?url=https%3A%2F%2Fx.com%2Fb.jpg 800w, /proxy?url=https%3A%2F%2Fx.com%2Fc.jpg",
		got)
}

func TestRewriteHTMLInjectsBeforeBodyEnd(t *testing.T) {
	out := rewritePage(t, `<script src="https://api.example.com/overlay-script.js"></script>`)

	idx := strings.Index(out, "overlay-script.js")
	require.Positive(t, idx)
	assert.Less(t, idx, strings.Index(out, "</body>"))
	assert.Greater(t, idx, strings.Index(out, "data:image/png"))
}

func TestRewriteHTMLWithoutBody(t *testing.T) {
	out, err := RewriteHTML([]byte(`<p>fragment`), "https://x.com/", `<script id="boot"></script>`)
	require.NoError(t, err)
	assert.Contains(t, string(out), `<script id="boot"></script></body>`)
}
