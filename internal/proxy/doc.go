// Package proxy is the content rewriting proxy: it fetches an arbitrary
// origin server-side and rewrites the result so it can be framed and
// annotated from the review canvas origin.
//
// Pipeline for one load:
//
//	guard     reject non-http(s) targets and deny-listed hosts
//	fetch     spoof the requested browser profile, bounded redirects
//	decode    undo Content-Encoding, transcode text to UTF-8
//	classify  CSS / HTML / everything else
//	rewrite   wrap every resource reference as /proxy?url=<encoded>
//	inject    append the overlay bootstrap before </body>
//
// Framing headers from the upstream are never forwarded. A body that cannot
// be rewritten is served as fetched (RewriteError is logged, not returned).
package proxy
