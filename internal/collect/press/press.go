// Package press extracts attributed quotes about an entity from the ingested
// news corpus. Every press quote is tier 3.
package press

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/abelbrown/pythia/internal/collect"
	"github.com/abelbrown/pythia/internal/cursor"
	"github.com/abelbrown/pythia/internal/guard"
	"github.com/abelbrown/pythia/internal/logging"
	"github.com/abelbrown/pythia/internal/model"
	"github.com/abelbrown/pythia/internal/tier"
)

const (
	DefaultWindow = 365 * 24 * time.Hour

	// A name key at least this long is distinctive enough on its own.
	distinctiveKey = 8
	contextRadius  = 200
)

// ArticleSource reads the news corpus. *store.Store satisfies it.
type ArticleSource interface {
	ArticlesSince(since time.Time, limit int) ([]model.Article, error)
}

// Options configures the collector.
type Options struct {
	// Window bounds how far back articles are scanned.
	Window time.Duration
	Clock  clockwork.Clock
}

// Collector is the press-quote source.
type Collector struct {
	deps     collect.Deps
	articles ArticleSource
	quotes   *Extractor
	opts     Options
}

// New creates a press collector over the article corpus.
func New(deps collect.Deps, articles ArticleSource, opts Options) *Collector {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	deps = deps.WithDefaults()
	return &Collector{deps: deps, articles: articles, quotes: NewExtractor(deps.Lexicon), opts: opts}
}

// Source implements collect.Collector.
func (c *Collector) Source() model.SourceType { return model.SourcePress }

// Collect implements collect.Collector. Articles have no per-entity native
// id, so the cursor is returned unchanged.
func (c *Collector) Collect(ctx context.Context, t collect.Target, mark cursor.Mark) (collect.Result, error) {
	res := collect.Result{NewCursor: mark}

	since := c.opts.Clock.Now().Add(-c.opts.Window)
	articles, err := c.articles.ArticlesSince(since, 0)
	if err != nil {
		return res, fmt.Errorf("load articles: %w", err)
	}

	matched := 0
	for _, a := range articles {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		if !c.Associated(t, a) {
			continue
		}
		matched++

		for _, q := range c.quotes.Extract(a.Title, a.Body) {
			res.Extracted++
			published := a.Published
			c.deps.Save(&res, model.Snippet{
				EntityID:   t.Entity.ID,
				Text:       q.Text,
				SourceURL:  a.URL,
				SourceType: model.SourcePress,
				Tier:       c.deps.Tiers.Classify(model.SourcePress, model.ContextPress, q.Text, tier.Hints{}),
				Context:    model.ContextPress,
				Published:  &published,
			})
		}
	}

	logging.Debug("press: scanned", "entity", t.Entity.ID, "articles", len(articles), "matched", matched)
	if matched == 0 {
		res.SkipReason = guard.ReasonNoArticles
	}
	return res, nil
}

// Associated decides whether article a is about the target. An explicit
// companies annotation is authoritative. Otherwise the name must appear as a
// whole word and either be distinctive or sit near startup vocabulary.
func (c *Collector) Associated(t collect.Target, a model.Article) bool {
	name := t.Entity.Name
	key := guard.NameKey(name)
	if key == "" {
		return false
	}

	if a.Companies != nil {
		for _, co := range a.Companies {
			if guard.NameKey(co) == key {
				return true
			}
			if d := t.Domain(); d != "" && guard.NormalizeDomain(co) == d {
				return true
			}
		}
		return false
	}

	text := strings.ToLower(a.Title + "\n" + a.Body)
	hits := guard.WordIndexes(text, name)
	if len(hits) == 0 {
		return false
	}
	if len(key) >= distinctiveKey && !t.Verdict.Ambiguous {
		return true
	}
	for _, at := range hits {
		lo, hi := max(0, at-contextRadius), min(len(text), at+len(name)+contextRadius)
		window := text[lo:hi]
		if guard.MentionsDomain(window, t.Domain()) || c.deps.Lexicon.CompanyContext.Match(window) {
			return true
		}
	}
	return false
}
