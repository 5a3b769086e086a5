package proxy

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// RewriteHTML rewrites every resource-bearing reference in an HTML document
// against base and appends snippet to the body. Hint links (preconnect,
// dns-prefetch) are removed since they name origins the page no longer
// talks to directly.
func RewriteHTML(body []byte, base, snippet string) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rewrite panic: %v", r)
		}
	}()

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	rewriteAttr(doc, "img[src], script[src], video[src], video source[src], audio[src], audio source[src]", "src", base)
	rewriteSrcset(doc, "img[srcset], picture source[srcset]", base)
	rewriteLinks(doc, base)
	rewriteStyleBlocks(doc, base)

	doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		style, _ := s.Attr("style")
		s.SetAttr("style", RewriteCSS(style, base))
	})

	if snippet != "" {
		target := doc.Find("body")
		if target.Length() == 0 {
			target = doc.Find("html")
		}
		target.AppendHtml(snippet)
	}

	rendered, err := doc.Html()
	if err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return []byte(rendered), nil
}

func rewriteAttr(doc *goquery.Document, selector, attr, base string) {
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr(attr); ok && v != "" {
			s.SetAttr(attr, RewriteURL(v, base))
		}
	})
}

func rewriteSrcset(doc *goquery.Document, selector, base string) {
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr("srcset"); ok && v != "" {
			s.SetAttr("srcset", RewriteSrcset(v, base))
		}
	})
}

// RewriteSrcset rewrites the URL of each candidate and keeps its width or
// density descriptor.
func RewriteSrcset(srcset, base string) string {
	parts := strings.Split(srcset, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		fields[0] = RewriteURL(fields[0], base)
		out = append(out, strings.Join(fields, " "))
	}
	return strings.Join(out, ", ")
}

func rewriteLinks(doc *goquery.Document, base string) {
	doc.Find("link[href]").Each(func(_ int, s *goquery.Selection) {
		rel := strings.ToLower(s.AttrOr("rel", ""))
		if strings.Contains(rel, "preconnect") || strings.Contains(rel, "dns-prefetch") {
			s.Remove()
			return
		}

		href := s.AttrOr("href", "")
		if href != "" {
			s.SetAttr("href", RewriteURL(href, base))
		}

		if strings.Contains(rel, "preload") && strings.EqualFold(s.AttrOr("as", ""), "font") {
			if _, ok := s.Attr("crossorigin"); !ok {
				s.SetAttr("crossorigin", "anonymous")
			}
		}
	})
}

// rewriteStyleBlocks replaces <style> contents in place. The element is raw
// text, so the new content is a single text node rendered unescaped.
func rewriteStyleBlocks(doc *goquery.Document, base string) {
	doc.Find("style").Each(func(_ int, s *goquery.Selection) {
		for _, n := range s.Nodes {
			css := s.Text()
			if css == "" {
				continue
			}
			for c := n.FirstChild; c != nil; {
				next := c.NextSibling
				n.RemoveChild(c)
				c = next
			}
			n.AppendChild(&html.Node{Type: html.TextNode, Data: RewriteCSS(css, base)})
		}
	})
}
