package blog

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/abelbrown/pythia/internal/collect"
	"github.com/abelbrown/pythia/internal/fetch"
	"github.com/abelbrown/pythia/internal/guard"
	"github.com/abelbrown/pythia/internal/logging"
	"github.com/abelbrown/pythia/internal/model"
)

const (
	maxSitemaps     = 5
	maxSitemapBytes = 20 << 20
)

// Page is one sitemap entry.
type Page struct {
	URL     string
	LastMod time.Time
}

// Sitemap is a decoded urlset or sitemapindex.
type Sitemap struct {
	XMLName  xml.Name
	URLs     []SitemapEntry `xml:"url"`
	Sitemaps []SitemapEntry `xml:"sitemap"`
}

// SitemapEntry is a <url> or <sitemap> element.
type SitemapEntry struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

// sitemapPages walks robots.txt-advertised or default sitemaps, following
// index indirection, and returns the best MaxPages candidate pages. Sitemaps
// and pages off the entity's site, or on a blocked host, are ignored.
func (c *Collector) sitemapPages(ctx context.Context, t collect.Target, base string, res *collect.Result) []Page {
	onSite := func(raw string) bool { return c.onSite(t.Domain(), raw) }
	queue := filter(c.robotsSitemaps(ctx, t, base, res), onSite)
	if len(queue) == 0 {
		queue = []string{base + "/sitemap.xml", base + "/sitemap_index.xml"}
	}

	seen := map[string]bool{}
	var pages []Page
	for fetched := 0; len(queue) > 0 && fetched < maxSitemaps; {
		if ctx.Err() != nil {
			break
		}
		u := queue[0]
		queue = queue[1:]
		if seen[u] {
			continue
		}
		seen[u] = true
		fetched++

		resp, err := c.get(ctx, t, u, nil, res)
		if err != nil {
			continue
		}
		doc, err := ParseSitemap(resp.Body)
		if err != nil {
			logging.Debug("blog: bad sitemap", "url", u, "err", err)
			continue
		}
		queue = append(queue, filter(c.childSitemaps(doc), onSite)...)
		for _, e := range doc.URLs {
			if loc := strings.TrimSpace(e.Loc); loc != "" && onSite(loc) {
				pages = append(pages, Page{URL: loc, LastMod: parseLastMod(e.LastMod)})
			}
		}
	}
	return c.rankPages(pages)
}

// onSite reports whether raw points at domain or one of its subdomains and
// not at a blocked host.
func (c *Collector) onSite(domain, raw string) bool {
	host := guard.NormalizeDomain(raw)
	if host == "" || domain == "" {
		return false
	}
	if host != domain && !strings.HasSuffix(host, "."+domain) {
		return false
	}
	return !c.deps.Guard.Blocked(host)
}

func filter(urls []string, keep func(string) bool) []string {
	out := urls[:0]
	for _, u := range urls {
		if keep(u) {
			out = append(out, u)
		} else {
			logging.Debug("blog: off-site sitemap url dropped", "url", u)
		}
	}
	return out
}

// robotsSitemaps reads Sitemap: lines from robots.txt.
func (c *Collector) robotsSitemaps(ctx context.Context, t collect.Target, base string, res *collect.Result) []string {
	resp, err := c.get(ctx, t, base+"/robots.txt", nil, res)
	if err != nil {
		return nil
	}
	var out []string
	sc := bufio.NewScanner(bytes.NewReader(resp.Body))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if len(line) > 8 && strings.EqualFold(line[:8], "sitemap:") {
			if u := strings.TrimSpace(line[8:]); u != "" {
				out = append(out, u)
			}
		}
	}
	return out
}

// childSitemaps orders index children so post and blog sitemaps come first.
func (c *Collector) childSitemaps(doc *Sitemap) []string {
	var hinted, rest []string
	for _, s := range doc.Sitemaps {
		loc := strings.TrimSpace(s.Loc)
		if loc == "" {
			continue
		}
		l := strings.ToLower(loc)
		if strings.Contains(l, "post") || strings.Contains(l, "blog") || strings.Contains(l, "article") {
			hinted = append(hinted, loc)
		} else {
			rest = append(rest, loc)
		}
	}
	return append(hinted, rest...)
}

// rankPages prefers post-like paths, then newest lastmod.
func (c *Collector) rankPages(pages []Page) []Page {
	hinted := func(p Page) bool {
		u, err := url.Parse(p.URL)
		if err != nil {
			return false
		}
		path := strings.ToLower(u.Path)
		for _, h := range c.deps.Lexicon.PostPathHints {
			if strings.Contains(path, h) {
				return true
			}
		}
		return false
	}
	sort.SliceStable(pages, func(i, j int) bool {
		hi, hj := hinted(pages[i]), hinted(pages[j])
		if hi != hj {
			return hi
		}
		return pages[i].LastMod.After(pages[j].LastMod)
	})
	if len(pages) > c.opts.MaxPages {
		pages = pages[:c.opts.MaxPages]
	}
	return pages
}

// ParseSitemap decodes a urlset or sitemapindex document, gunzipping it
// first when the body is gzip-compressed.
func ParseSitemap(body []byte) (*Sitemap, error) {
	if len(body) > 2 && body[0] == 0x1f && body[1] == 0x8b {
		zr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("gunzip sitemap: %w", err)
		}
		defer zr.Close()
		body, err = io.ReadAll(io.LimitReader(zr, maxSitemapBytes))
		if err != nil {
			return nil, fmt.Errorf("gunzip sitemap: %w", err)
		}
	}

	var doc Sitemap
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode sitemap: %w", err)
	}
	switch doc.XMLName.Local {
	case "urlset", "sitemapindex":
		return &doc, nil
	}
	return nil, fmt.Errorf("decode sitemap: unexpected root %q", doc.XMLName.Local)
}

var lastModLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseLastMod(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range lastModLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// fromPages fetches candidate pages and keeps those with enough main text.
func (c *Collector) fromPages(ctx context.Context, t collect.Target, pages []Page, res *collect.Result) {
	for _, p := range pages {
		if ctx.Err() != nil {
			return
		}
		resp, err := c.deps.Getter.Get(ctx, p.URL, nil)
		if err != nil {
			c.deps.FetchFailed(res, model.SourceBlog, t.Entity.ID, p.URL, err)
			continue
		}
		text, published := MainText(resp.Body)
		if collect.Len(text) < MinPageLength {
			continue
		}
		res.Extracted++
		if published == nil && !p.LastMod.IsZero() {
			lm := p.LastMod
			published = &lm
		}
		c.save(t, collect.Clip(text, MaxTextLength), resp.URL, published, res)
	}
}

var (
	stripSelectors = "script, style, noscript, nav, header, footer, aside, form"
	mainSelectors  = []string{
		"article",
		"main",
		"[class*='post-content']",
		"[class*='entry-content']",
		"[class*='article']",
		"[class*='content']",
	}
)

// MainText extracts the main textual content of an HTML page and its
// declared publish time, if any. Containers are tried in order; the first
// one long enough wins, otherwise the whole body is used.
func MainText(html []byte) (string, *time.Time) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", nil
	}
	published := pageTime(doc)
	doc.Find(stripSelectors).Remove()

	for _, sel := range mainSelectors {
		best := ""
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			h, err := s.Html()
			if err != nil {
				return
			}
			if text := fetch.PlainText(h); collect.Len(text) > collect.Len(best) {
				best = text
			}
		})
		if collect.Len(best) >= MinPageLength {
			return best, published
		}
	}

	h, err := doc.Find("body").Html()
	if err != nil {
		return "", published
	}
	return fetch.PlainText(h), published
}

func pageTime(doc *goquery.Document) *time.Time {
	candidates := []string{
		doc.Find(`meta[property="article:published_time"]`).AttrOr("content", ""),
		doc.Find("time[datetime]").First().AttrOr("datetime", ""),
	}
	for _, c := range candidates {
		if t := parseLastMod(c); !t.IsZero() {
			return &t
		}
	}
	return nil
}
