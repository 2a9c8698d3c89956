// Package forum collects founder and operator comments from a full-text
// discussion search service (the Algolia API over Hacker News).
//
// Queries run as an ordered list of strategies; later steps are gated on how
// many comments survived filtering so far. Each comment is filtered on
// length, link count and founder or operational language as it arrives,
// ranked by quality, and the best TopN are stored
// with their native id and timestamp so the next run only asks for newer
// comments.
package forum

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/abelbrown/pythia/internal/collect"
	"github.com/abelbrown/pythia/internal/cursor"
	"github.com/abelbrown/pythia/internal/fetch"
	"github.com/abelbrown/pythia/internal/guard"
	"github.com/abelbrown/pythia/internal/logging"
	"github.com/abelbrown/pythia/internal/model"
	"github.com/abelbrown/pythia/internal/tier"
)

const (
	DefaultSearchURL = "https://hn.algolia.com/api/v1"
	DefaultItemURL   = "https://news.ycombinator.com/item?id="
	DefaultTopN      = 10

	MinLength        = 180 // plain comments
	FounderMinLength = 80  // builder, possessive or company-action phrasing
	SelfIDMinLength  = 60  // "founder here"
	MaxLength        = 2200
	MaxURLs          = 2

	hitsPerPage = 50
	maxStories  = 3
)

// Options configures the collector. Zero values take the defaults above.
type Options struct {
	SearchURL string
	ItemURL   string
	TopN      int
}

// Collector is the forum source.
type Collector struct {
	deps       collect.Deps
	opts       Options
	strategies []Strategy
}

// New creates a forum collector. deps must carry a Getter and a Sink.
func New(deps collect.Deps, opts Options) *Collector {
	if opts.SearchURL == "" {
		opts.SearchURL = DefaultSearchURL
	}
	opts.SearchURL = strings.TrimRight(opts.SearchURL, "/")
	if opts.ItemURL == "" {
		opts.ItemURL = DefaultItemURL
	}
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	deps = deps.WithDefaults()
	return &Collector{
		deps:       deps,
		opts:       opts,
		strategies: DefaultStrategies(deps.Lexicon.FounderKeywords),
	}
}

// Source implements collect.Collector.
func (c *Collector) Source() model.SourceType { return model.SourceForum }

// candidate is one comment before filtering.
type candidate struct {
	id      string
	created time.Time
	html    string
}

// ranked is a candidate that passed extraction.
type ranked struct {
	candidate
	text    string
	tier    model.Tier
	context string
	quality int
}

// Collect implements collect.Collector.
func (c *Collector) Collect(ctx context.Context, t collect.Target, mark cursor.Mark) (collect.Result, error) {
	res := collect.Result{NewCursor: mark}

	rx := newMatcher(t.Entity.Name)
	seen := make(map[string]bool)
	var kept []ranked
	add := func(cs []candidate) {
		for _, cand := range cs {
			if seen[cand.id] || !mark.Admits(cand.created) {
				continue
			}
			seen[cand.id] = true
			if r, ok := c.evaluate(t, rx, cand); ok {
				kept = append(kept, r)
			}
		}
	}

	for _, s := range c.strategies {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		switch {
		case s.When == IfThin && len(kept) >= c.opts.TopN:
			continue
		case s.When == IfEmpty && len(kept) > 0:
			continue
		}
		for _, q := range s.Build(t) {
			hits, err := c.search(ctx, q, mark)
			if err != nil {
				c.deps.FetchFailed(&res, model.SourceForum, t.Entity.ID, q.Text, err)
				continue
			}
			if q.Tags == TagStory {
				add(c.expandStories(ctx, t, hits, &res))
			} else {
				add(commentCandidates(hits))
			}
		}
		logging.Debug("forum: strategy done", "entity", t.Entity.ID, "strategy", s.Name, "seen", len(seen), "kept", len(kept))
	}

	if len(seen) == 0 {
		if res.Errors == 0 {
			res.SkipReason = guard.ReasonNoResults
		}
		return res, nil
	}
	res.Extracted = len(kept)

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].quality != kept[j].quality {
			return kept[i].quality > kept[j].quality
		}
		return kept[i].created.After(kept[j].created)
	})
	if len(kept) > c.opts.TopN {
		kept = kept[:c.opts.TopN]
	}

	for _, r := range kept {
		created := r.created
		sn := model.Snippet{
			EntityID:     t.Entity.ID,
			Text:         r.text,
			SourceURL:    c.opts.ItemURL + r.id,
			SourceType:   model.SourceForum,
			Tier:         r.tier,
			Context:      r.context,
			Published:    &created,
			ExternalID:   r.id,
			ExternalTime: &created,
		}
		if c.deps.Save(&res, sn) {
			res.NewCursor = res.NewCursor.Advance(created)
		}
	}
	return res, nil
}

var urlPattern = regexp.MustCompile(`(?i)https?://`)

// evaluate applies the extraction filters and quality ranking to one comment.
func (c *Collector) evaluate(t collect.Target, rx *matcher, cand candidate) (ranked, bool) {
	text := fetch.PlainText(cand.html)
	n := collect.Len(text)
	if n == 0 || n > MaxLength {
		return ranked{}, false
	}
	links := len(urlPattern.FindAllStringIndex(text, -1))
	if links > MaxURLs {
		return ranked{}, false
	}

	f := c.deps.Founders
	lx := c.deps.Lexicon
	mention := guard.ContainsWord(text, t.Entity.Name) || guard.MentionsDomain(text, t.Domain())
	selfID := f.SelfID(text)
	action := rx.companyAction(text)
	founder := (mention && f.Builder(text)) || f.Possessive(text) || action || selfID

	technical := lx.Technical.Count(text)
	lower := !founder && !collect.FirstPerson(f, text) &&
		(technical > 0 || (mention && lx.CompanyContext.Match(text)))
	if !founder && !lower {
		return ranked{}, false
	}

	minLen := MinLength
	switch {
	case selfID:
		minLen = SelfIDMinLength
	case founder:
		minLen = FounderMinLength
	}
	if n < minLen {
		return ranked{}, false
	}

	if !c.deps.Guard.Admit(t.Verdict, text) {
		return ranked{}, false
	}

	label := model.ContextCompany
	switch {
	case founder:
		label = model.ContextFounder
	case technical > 0:
		label = model.ContextTechnical
	}

	quality := min(technical, 3) + min(lx.Quantitative.Count(text), 3) - links
	if founder {
		quality += 3
	}
	if selfID {
		quality++
	}
	if n < MinLength {
		quality -= 2
	}

	return ranked{
		candidate: cand,
		text:      text,
		tier:      c.deps.Tiers.Classify(model.SourceForum, label, text, tier.Hints{FounderLanguage: founder}),
		context:   label,
		quality:   quality,
	}, true
}

// matcher holds per-entity patterns.
type matcher struct {
	action *regexp.Regexp
}

func newMatcher(name string) *matcher {
	name = strings.TrimSpace(name)
	if name == "" {
		return &matcher{}
	}
	return &matcher{action: regexp.MustCompile(
		`(?i)\b(?:we|i)(?:'ve| have)? (?:built|launched|started|founded|created|made|shipped) ` + regexp.QuoteMeta(name),
	)}
}

// companyAction matches "we built <Name>".
func (m *matcher) companyAction(text string) bool {
	return m.action != nil && m.action.MatchString(text)
}

// Algolia response shapes.
type hit struct {
	ObjectID    string `json:"objectID"`
	CreatedAtI  int64  `json:"created_at_i"`
	Author      string `json:"author"`
	CommentText string `json:"comment_text"`
	StoryText   string `json:"story_text"`
	Title       string `json:"title"`
	NumComments int    `json:"num_comments"`
}

type searchResponse struct {
	Hits []hit `json:"hits"`
}

type item struct {
	ID         int64  `json:"id"`
	CreatedAtI int64  `json:"created_at_i"`
	Type       string `json:"type"`
	Author     string `json:"author"`
	Text       string `json:"text"`
	Children   []item `json:"children"`
}

// search runs one query restricted to items newer than mark.
func (c *Collector) search(ctx context.Context, q Query, mark cursor.Mark) ([]hit, error) {
	v := url.Values{}
	v.Set("query", q.Text)
	v.Set("tags", q.Tags)
	v.Set("hitsPerPage", strconv.Itoa(hitsPerPage))
	if f := mark.NumericFilter("created_at_i"); f != "" {
		v.Set("numericFilters", f)
	}

	var resp searchResponse
	if err := fetch.GetJSON(ctx, c.deps.Getter, c.opts.SearchURL+"/search_by_date?"+v.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Hits, nil
}

func commentCandidates(hits []hit) []candidate {
	out := make([]candidate, 0, len(hits))
	for _, h := range hits {
		if h.ObjectID == "" || strings.TrimSpace(h.CommentText) == "" {
			continue
		}
		out = append(out, candidate{id: h.ObjectID, created: time.Unix(h.CreatedAtI, 0).UTC(), html: h.CommentText})
	}
	return out
}

// expandStories fetches the comment threads of the first few matching stories.
func (c *Collector) expandStories(ctx context.Context, t collect.Target, stories []hit, res *collect.Result) []candidate {
	var out []candidate
	expanded := 0
	for _, s := range stories {
		if expanded == maxStories || ctx.Err() != nil {
			break
		}
		if s.ObjectID == "" || s.NumComments == 0 {
			continue
		}
		expanded++

		itemURL := fmt.Sprintf("%s/items/%s", c.opts.SearchURL, url.PathEscape(s.ObjectID))
		var root item
		if err := fetch.GetJSON(ctx, c.deps.Getter, itemURL, nil, &root); err != nil {
			c.deps.FetchFailed(res, model.SourceForum, t.Entity.ID, itemURL, err)
			continue
		}
		out = appendThread(out, root.Children)
	}
	return out
}

func appendThread(out []candidate, items []item) []candidate {
	for _, it := range items {
		if it.Type == "comment" && strings.TrimSpace(it.Text) != "" {
			out = append(out, candidate{
				id:      strconv.FormatInt(it.ID, 10),
				created: time.Unix(it.CreatedAtI, 0).UTC(),
				html:    it.Text,
			})
		}
		out = appendThread(out, it.Children)
	}
	return out
}
