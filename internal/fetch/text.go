package fetch

import (
	"crypto/sha256"
	"encoding/hex"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PlainText strips markup from an HTML fragment and collapses whitespace.
// Text that does not parse as HTML is returned with whitespace collapsed.
func PlainText(html string) string {
	if !strings.ContainsAny(html, "<&") {
		return collapse(html)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return collapse(html)
	}
	doc.Find("script, style, noscript").Remove()
	// Block elements would otherwise glue adjacent sentences together.
	doc.Find("p, br, li, h1, h2, h3, h4, h5, h6, div, blockquote").Each(func(_ int, s *goquery.Selection) {
		s.BeforeHtml(" ")
		s.AfterHtml(" ")
	})
	return collapse(doc.Text())
}

// ArticleText converts article HTML to plain text with one paragraph per
// line. Block quotes become single lines prefixed with "> " so quote
// extraction can still find them.
func ArticleText(markup string) string {
	if !strings.ContainsAny(markup, "<&") {
		return lines(markup)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return lines(markup)
	}
	doc.Find("script, style, noscript").Remove()
	doc.Find("blockquote").Not("blockquote blockquote").Each(func(_ int, s *goquery.Selection) {
		inner, err := s.Html()
		if err != nil {
			return
		}
		s.ReplaceWithHtml("\n&gt; " + html.EscapeString(PlainText(inner)) + "\n")
	})
	doc.Find("p, br, li, h1, h2, h3, h4, h5, h6, div, tr").Each(func(_ int, s *goquery.Selection) {
		s.BeforeHtml("\n")
		s.AfterHtml("\n")
	})
	return lines(doc.Text())
}

// lines collapses whitespace within each line and drops blank lines.
func lines(s string) string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if l = collapse(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// hashString creates a short hash of a string for use as an ID.
func hashString(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:8]) // 16 character hex string
}

// truncate shortens a string to maxLen runes, adding "..." if truncated.
// Uses rune-aware slicing to avoid breaking UTF-8 characters.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
