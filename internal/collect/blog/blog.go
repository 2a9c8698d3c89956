// Package blog collects posts from a company's own website.
//
// Discovery tries common feed paths, then <link rel="alternate"> on the home
// page, then sitemaps. Feed entries become snippets directly; without a feed,
// a handful of sitemap pages are fetched and their main text extracted.
package blog

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/abelbrown/pythia/internal/collect"
	"github.com/abelbrown/pythia/internal/cursor"
	"github.com/abelbrown/pythia/internal/fetch"
	"github.com/abelbrown/pythia/internal/guard"
	"github.com/abelbrown/pythia/internal/logging"
	"github.com/abelbrown/pythia/internal/model"
	"github.com/abelbrown/pythia/internal/tier"
)

const (
	MinFeedLength   = 200
	MinPageLength   = 400
	DefaultMaxPages = 10
	MaxEntries      = 20
	MaxTextLength   = 8000
)

var feedAccept = http.Header{
	"Accept": {"application/rss+xml, application/atom+xml, application/feed+json, application/xml;q=0.9, */*;q=0.8"},
}

// Options configures the collector.
type Options struct {
	// Scheme used to reach the domain. Defaults to https.
	Scheme string
	// MaxPages caps sitemap-derived page fetches.
	MaxPages int
}

// Collector is the blog/feed source.
type Collector struct {
	deps   collect.Deps
	opts   Options
	parser *gofeed.Parser
}

// New creates a blog collector. deps must carry a Getter and a Sink.
func New(deps collect.Deps, opts Options) *Collector {
	if opts.Scheme == "" {
		opts.Scheme = "https"
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	return &Collector{deps: deps.WithDefaults(), opts: opts, parser: gofeed.NewParser()}
}

// Source implements collect.Collector.
func (c *Collector) Source() model.SourceType { return model.SourceBlog }

// errUnreachable aborts discovery when the site itself does not answer.
var errUnreachable = errors.New("site unreachable")

// Collect implements collect.Collector. Blog entries carry no native id, so
// the cursor is returned unchanged and deduplication is left to the store.
func (c *Collector) Collect(ctx context.Context, t collect.Target, mark cursor.Mark) (collect.Result, error) {
	domain := t.Domain()
	if domain == "" {
		return collect.Skip(guard.ReasonNoDomain, mark), nil
	}
	if c.deps.Guard.Blocked(domain) {
		return collect.Skip(guard.ReasonNonCompanyDomain, mark), nil
	}

	res := collect.Result{NewCursor: mark}
	base := c.opts.Scheme + "://" + domain

	feed, feedURL, err := c.discoverFeed(ctx, t, base, &res)
	if err != nil {
		return res, nil
	}
	if feed != nil {
		logging.Debug("blog: feed found", "entity", t.Entity.ID, "url", feedURL, "items", len(feed.Items))
		c.fromFeed(t, feed, feedURL, &res)
		return res, nil
	}

	pages := c.sitemapPages(ctx, t, base, &res)
	if len(pages) == 0 {
		res.SkipReason = guard.ReasonNoFeed
		return res, nil
	}
	logging.Debug("blog: no feed, using sitemap", "entity", t.Entity.ID, "pages", len(pages))
	c.fromPages(ctx, t, pages, &res)
	return res, nil
}

// discoverFeed probes feed paths, then home-page autodiscovery.
func (c *Collector) discoverFeed(ctx context.Context, t collect.Target, base string, res *collect.Result) (*gofeed.Feed, string, error) {
	for _, path := range c.deps.Lexicon.FeedPaths {
		u := base + path
		resp, err := c.get(ctx, t, u, feedAccept, res)
		if errors.Is(err, errUnreachable) {
			return nil, "", err
		}
		if err != nil {
			continue
		}
		if feed := c.parseFeed(resp); feed != nil {
			return feed, resp.URL, nil
		}
	}

	home, err := c.get(ctx, t, base+"/", nil, res)
	if errors.Is(err, errUnreachable) {
		return nil, "", err
	}
	if err != nil {
		return nil, "", nil
	}
	for _, href := range alternateLinks(home) {
		resp, err := c.get(ctx, t, href, feedAccept, res)
		if err != nil {
			continue
		}
		if feed := c.parseFeed(resp); feed != nil {
			return feed, resp.URL, nil
		}
	}
	return nil, "", nil
}

// get fetches u. Status errors are discovery misses; a transport failure is
// recorded once and reported as errUnreachable.
func (c *Collector) get(ctx context.Context, t collect.Target, u string, h http.Header, res *collect.Result) (*fetch.Response, error) {
	resp, err := c.deps.Getter.Get(ctx, u, h)
	if err == nil {
		return resp, nil
	}
	var se *fetch.StatusError
	if errors.As(err, &se) {
		return nil, err
	}
	c.deps.FetchFailed(res, model.SourceBlog, t.Entity.ID, u, err)
	return nil, errUnreachable
}

// parseFeed accepts a response only when both the content type and the
// first bytes look like a feed. Soft-404 HTML pages fail the sniff.
func (c *Collector) parseFeed(resp *fetch.Response) *gofeed.Feed {
	if !LooksLikeFeed(resp.ContentType, resp.Body) {
		return nil
	}
	feed, err := c.parser.Parse(bytes.NewReader(resp.Body))
	if err != nil {
		logging.Debug("blog: feed parse failed", "url", resp.URL, "err", err)
		return nil
	}
	return feed
}

// LooksLikeFeed reports whether a response is an RSS, Atom or JSON feed.
func LooksLikeFeed(contentType string, body []byte) bool {
	ct := strings.ToLower(contentType)
	if !(strings.Contains(ct, "xml") || strings.Contains(ct, "rss") ||
		strings.Contains(ct, "atom") || strings.Contains(ct, "json")) {
		return false
	}
	head := body
	if len(head) > 2048 {
		head = head[:2048]
	}
	s := strings.ToLower(string(head))
	switch {
	case strings.Contains(s, "<rss"), strings.Contains(s, "<feed"), strings.Contains(s, "<rdf:rdf"):
		return true
	case strings.Contains(s, "jsonfeed.org/version"):
		return true
	}
	return false
}

// alternateLinks returns absolute feed URLs advertised by a page.
func alternateLinks(resp *fetch.Response) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil
	}
	base, _ := url.Parse(resp.URL)

	var out []string
	doc.Find(`link[rel~="alternate"]`).Each(func(_ int, s *goquery.Selection) {
		typ := strings.ToLower(s.AttrOr("type", ""))
		if !strings.Contains(typ, "rss") && !strings.Contains(typ, "atom") && !strings.Contains(typ, "json") {
			return
		}
		if u := resolve(base, s.AttrOr("href", "")); u != "" {
			out = append(out, u)
		}
	})
	return out
}

func (c *Collector) fromFeed(t collect.Target, feed *gofeed.Feed, feedURL string, res *collect.Result) {
	base, _ := url.Parse(feedURL)
	for i, item := range feed.Items {
		if i == MaxEntries {
			break
		}
		body := item.Content
		if body == "" {
			body = item.Description
		}
		text := joinTitle(item.Title, fetch.PlainText(body))
		if collect.Len(text) < MinFeedLength {
			continue
		}
		res.Extracted++

		var published *time.Time
		switch {
		case item.PublishedParsed != nil:
			published = item.PublishedParsed
		case item.UpdatedParsed != nil:
			published = item.UpdatedParsed
		}
		c.save(t, collect.Clip(text, MaxTextLength), resolve(base, item.Link), published, res)
	}
}

func (c *Collector) save(t collect.Target, text, sourceURL string, published *time.Time, res *collect.Result) {
	label := model.ContextBlog
	if c.deps.Founders.BlogFounder(text) {
		label = model.ContextFounderBlog
	}
	c.deps.Save(res, model.Snippet{
		EntityID:   t.Entity.ID,
		Text:       text,
		SourceURL:  sourceURL,
		SourceType: model.SourceBlog,
		Tier:       c.deps.Tiers.Classify(model.SourceBlog, label, text, tier.Hints{}),
		Context:    label,
		Published:  published,
	})
}

func joinTitle(title, body string) string {
	title = strings.TrimSpace(title)
	switch {
	case title == "":
		return body
	case body == "":
		return title
	case strings.ContainsAny(title[len(title)-1:], ".!?:"):
		return title + " " + body
	default:
		return title + ". " + body
	}
}

func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}
