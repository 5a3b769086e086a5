// Package capture renders a point-of-interest screenshot of a live page.
//
// Renderers are tried in preference order: a remote screenshot API when one
// is configured, then a pooled headless browser. When none is available the
// capture is skipped (ErrUnavailable), which callers treat as non-fatal.
//
// The browser pool is an explicit object injected into the renderer. It
// launches one browser lazily, bounds concurrent pages and gives every
// capture its own incognito context. A failed launch is retried after a
// cooldown instead of disabling capture for the life of the process.
//
// Scroll centering: the comment position is resolved against the target
// document's full scroll extent, then the page is scrolled so that point
// sits at the center of the viewport, clamped to zero on both axes.
package capture
