package fetch

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/abelbrown/pythia/internal/model"
)

// NewsSource is a news feed scanned for attributed quotes.
type NewsSource struct {
	Name string
	URL  string

	// CompanyTags marks feeds whose item categories name the companies an
	// article covers. Their articles carry a companies annotation.
	CompanyTags bool
}

// DefaultNewsSources returns the startup and business news feeds ingested
// when none are configured.
func DefaultNewsSources() []NewsSource {
	return []NewsSource{
		{Name: "TechCrunch Startups", URL: "https://techcrunch.com/category/startups/feed/"},
		{Name: "TechCrunch Venture", URL: "https://techcrunch.com/category/venture/feed/"},
		{Name: "VentureBeat", URL: "https://venturebeat.com/feed/"},
		{Name: "GeekWire Startups", URL: "https://www.geekwire.com/startups/feed/"},
		{Name: "The Next Web", URL: "https://thenextweb.com/feed"},
		{Name: "Sifted", URL: "https://sifted.eu/feed"},
		{Name: "EU-Startups", URL: "https://www.eu-startups.com/feed/"},
		{Name: "Crunchbase News", URL: "https://news.crunchbase.com/feed/", CompanyTags: true},
		{Name: "Hacker News Launches", URL: "https://hnrss.org/launches"},
	}
}

// SourcesFromURLs builds NewsSources named after their host.
func SourcesFromURLs(urls []string) []NewsSource {
	out := make([]NewsSource, 0, len(urls))
	for _, u := range urls {
		name := u
		if i := strings.Index(u, "://"); i >= 0 {
			name = u[i+3:]
		}
		if i := strings.IndexByte(name, '/'); i >= 0 {
			name = name[:i]
		}
		out = append(out, NewsSource{Name: name, URL: u})
	}
	return out
}

// NewsFetcher retrieves articles from news feeds.
type NewsFetcher struct {
	client *Client
	now    func() time.Time
}

// NewNewsFetcher creates a NewsFetcher on top of client.
func NewNewsFetcher(client *Client) *NewsFetcher {
	return &NewsFetcher{client: client, now: time.Now}
}

// Fetch retrieves articles from a source. Does NOT store them - caller
// decides what to do with them.
func (f *NewsFetcher) Fetch(ctx context.Context, src NewsSource) ([]model.Article, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	resp, err := f.client.Get(ctx, src.URL, nil)
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", src.URL, err)
	}

	now := f.now()
	articles := make([]model.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		a := convertFeedItem(item, src, now)
		if a.URL == "" || a.Title == "" {
			continue
		}
		articles = append(articles, a)
	}
	return articles, nil
}

// convertFeedItem converts a gofeed.Item to a model.Article.
func convertFeedItem(item *gofeed.Item, src NewsSource, fetchTime time.Time) model.Article {
	// Get published time, fallback to fetch time if not available
	published := fetchTime
	if item.PublishedParsed != nil {
		published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = *item.UpdatedParsed
	}

	author := ""
	if item.Author != nil {
		author = item.Author.Name
	}

	// Prefer full content; quotes usually sit past the summary.
	body := item.Content
	if strings.TrimSpace(body) == "" {
		body = item.Description
	}

	a := model.Article{
		ID:         articleID(item),
		SourceName: src.Name,
		Title:      PlainText(item.Title),
		Body:       ArticleText(body),
		URL:        strings.TrimSpace(item.Link),
		Author:     author,
		Published:  published,
		Fetched:    fetchTime,
	}
	if src.CompanyTags {
		a.Companies = []string{}
		for _, c := range item.Categories {
			if c = strings.TrimSpace(c); c != "" {
				a.Companies = append(a.Companies, c)
			}
		}
	}
	return a
}

// articleID creates a deterministic ID for a feed item.
// Uses the GUID if available, otherwise hashes the URL.
func articleID(item *gofeed.Item) string {
	if item.GUID != "" {
		return hashString(item.GUID)
	}
	if item.Link != "" {
		return hashString(item.Link)
	}
	key := item.Title
	if item.PublishedParsed != nil {
		key += item.PublishedParsed.String()
	}
	return hashString(key)
}

// Summary is a short, log-friendly view of an article.
func Summary(a model.Article) string {
	return fmt.Sprintf("%s: %s", a.SourceName, truncate(a.Title, 80))
}
