package forum

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelbrown/pythia/internal/collect"
	"github.com/abelbrown/pythia/internal/cursor"
	"github.com/abelbrown/pythia/internal/fetch"
	"github.com/abelbrown/pythia/internal/guard"
	"github.com/abelbrown/pythia/internal/model"
	"github.com/abelbrown/pythia/internal/store"
)

const (
	founderComment   = "We built Acme Robotics because warehouse pickers were losing hours to bad routing.<p>We shipped the v2 planner last month and cut average pick time by 30% across four sites."
	technicalComment = "Acme Robotics exposes a decent api for fleet status. Latency stayed under 40 ms in the pilot, and the postgres-backed schema is easy to query from existing reporting pipelines without extra glue code or vendor support."
)

// fakeSearch serves canned comment hits keyed by query and stories with
// their threads, honoring the created_at_i lower bound.
type fakeSearch struct {
	mu       sync.Mutex
	comments map[string][]hit
	stories  map[string][]hit
	threads  map[string]item
	queries  []string
}

func (f *fakeSearch) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/search_by_date", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		q := r.URL.Query()
		f.queries = append(f.queries, r.URL.RawQuery)

		var after int64
		if nf := q.Get("numericFilters"); nf != "" {
			after, _ = strconv.ParseInt(strings.TrimPrefix(nf, "created_at_i>"), 10, 64)
		}
		src := f.comments
		if q.Get("tags") == TagStory {
			src = f.stories
		}
		var hits []hit
		for _, h := range src[q.Get("query")] {
			if h.CreatedAtI > after {
				hits = append(hits, h)
			}
		}
		json.NewEncoder(w).Encode(searchResponse{Hits: hits})
	})
	mux.HandleFunc("/items/", func(w http.ResponseWriter, r *http.Request) {
		it, ok := f.threads[strings.TrimPrefix(r.URL.Path, "/items/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(it)
	})
	return mux
}

func (f *fakeSearch) seen(substr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, q := range f.queries {
		if strings.Contains(q, substr) {
			return true
		}
	}
	return false
}

func setup(t *testing.T, f *fakeSearch, opts Options) (*Collector, *store.Store) {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	opts.SearchURL = srv.URL
	client := fetch.NewClient(fetch.Options{})
	return New(collect.Deps{Getter: client, Sink: st}, opts), st
}

func target(e model.Entity) collect.Target {
	return collect.Target{Entity: e, Verdict: guard.New(nil).Validate(context.Background(), e)}
}

func acmeHits() []hit {
	return []hit{
		{ObjectID: "101", CreatedAtI: 1700000100, CommentText: founderComment},
		{ObjectID: "102", CreatedAtI: 1700000200, CommentText: technicalComment},
		{ObjectID: "103", CreatedAtI: 1700000300, CommentText: "Acme Robotics looks neat."},
		{ObjectID: "104", CreatedAtI: 1700000400, CommentText: "We built Acme Robotics, see https://a.io https://b.io https://c.io for our api docs."},
	}
}

func TestCollectFiltersAndTiers(t *testing.T) {
	f := &fakeSearch{comments: map[string][]hit{`"Acme Robotics"`: acmeHits()}}
	c, st := setup(t, f, Options{})

	e := model.Entity{ID: 1, Name: "Acme Robotics", Domain: "acmerobotics.io"}
	res, err := c.Collect(context.Background(), target(e), cursor.New(1, model.SourceForum))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Extracted)
	assert.Equal(t, 2, res.Saved)
	assert.Zero(t, res.Errors)

	snippets, err := st.SnippetsForEntity(1)
	require.NoError(t, err)
	require.Len(t, snippets, 2)

	byID := map[string]model.Snippet{}
	for _, sn := range snippets {
		byID[sn.ExternalID] = sn
	}
	founder := byID["101"]
	assert.Equal(t, model.TierEarned, founder.Tier)
	assert.Equal(t, model.ContextFounder, founder.Context)
	assert.Equal(t, DefaultItemURL+"101", founder.SourceURL)
	assert.Contains(t, founder.Text, "routing. We shipped")
	require.NotNil(t, founder.ExternalTime)
	assert.EqualValues(t, 1700000100, founder.ExternalTime.Unix())

	technical := byID["102"]
	assert.Equal(t, model.TierEditorial, technical.Tier)
	assert.Equal(t, model.ContextTechnical, technical.Context)

	assert.EqualValues(t, 1700000200, res.NewCursor.Unix())
}

func TestCollectIsIdempotent(t *testing.T) {
	f := &fakeSearch{comments: map[string][]hit{`"Acme Robotics"`: acmeHits()}}
	c, st := setup(t, f, Options{})
	r := &collect.Runner{Guard: guard.New(nil), Cursors: st}
	entities := []model.Entity{{ID: 1, Name: "Acme Robotics", Domain: "acmerobotics.io"}}

	first := r.Run(context.Background(), c, entities)
	assert.Equal(t, 2, first.Saved)

	second := r.Run(context.Background(), c, entities)
	assert.Zero(t, second.Saved)
	assert.True(t, f.seen("numericFilters=created_at_i%3E1700000200"), "second run must restrict to newer comments")

	n, err := st.SnippetCount()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCollectKeepsTopN(t *testing.T) {
	var hits []hit
	for i := 0; i < 12; i++ {
		hits = append(hits, hit{
			ObjectID:    strconv.Itoa(200 + i),
			CreatedAtI:  int64(1700000000 + i),
			CommentText: fmt.Sprintf("We built Acme Robotics for site %d and our customers now route %d pickers with it every morning.", i, i+10),
		})
	}
	f := &fakeSearch{comments: map[string][]hit{`"Acme Robotics"`: hits}}
	c, _ := setup(t, f, Options{TopN: 10})

	e := model.Entity{ID: 1, Name: "Acme Robotics"}
	res, err := c.Collect(context.Background(), target(e), cursor.New(1, model.SourceForum))
	require.NoError(t, err)
	assert.Equal(t, 12, res.Extracted)
	assert.Equal(t, 10, res.Saved)
	assert.False(t, f.seen("tags=story"), "enough kept comments skip the story search")
}

func TestCollectNoisyNameStillQueriesDomain(t *testing.T) {
	var noise []hit
	for i := 0; i < 12; i++ {
		noise = append(noise, hit{
			ObjectID:    strconv.Itoa(300 + i),
			CreatedAtI:  int64(1700000000 + i),
			CommentText: "Acme Robotics? never heard of it.",
		})
	}
	f := &fakeSearch{comments: map[string][]hit{
		`"Acme Robotics"`: noise,
		"acmerobotics.io": {{ObjectID: "101", CreatedAtI: 1700000100, CommentText: founderComment}},
	}}
	c, st := setup(t, f, Options{})

	e := model.Entity{ID: 6, Name: "Acme Robotics", Domain: "acmerobotics.io"}
	res, err := c.Collect(context.Background(), target(e), cursor.New(6, model.SourceForum))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Extracted)
	assert.Equal(t, 1, res.Saved)
	assert.True(t, f.seen("query=acmerobotics.io"), "domain query runs regardless of name hits")
	assert.True(t, f.seen("tags=story"), "one kept comment is still thin")
	assert.False(t, f.seen("founder"), "keyword fallback needs an empty result")

	snippets, err := st.SnippetsForEntity(6)
	require.NoError(t, err)
	require.Len(t, snippets, 1)
	assert.Equal(t, "101", snippets[0].ExternalID)
}

func TestCollectNoiseOnlyRunsFallback(t *testing.T) {
	f := &fakeSearch{comments: map[string][]hit{
		`"Acme Robotics"`: {{ObjectID: "1", CreatedAtI: 1700000001, CommentText: "Acme Robotics? never heard of it."}},
	}}
	c, _ := setup(t, f, Options{})

	e := model.Entity{ID: 7, Name: "Acme Robotics"}
	res, err := c.Collect(context.Background(), target(e), cursor.New(7, model.SourceForum))
	require.NoError(t, err)
	assert.Zero(t, res.Saved)
	assert.Equal(t, guard.ReasonNone, res.SkipReason)
	assert.True(t, f.seen("founder"), "raw hits that fail filtering do not count as results")
}

func TestCollectExpandsStories(t *testing.T) {
	f := &fakeSearch{
		stories: map[string][]hit{`"Globex Fusion"`: {{ObjectID: "900", CreatedAtI: 1700000000, NumComments: 1}}},
		threads: map[string]item{"900": {
			ID: 900, Type: "story",
			Children: []item{{
				ID: 901, Type: "comment", CreatedAtI: 1700000500,
				Text: "Founder here. Globex Fusion grew out of a lab prototype; happy to answer questions about the reactor.",
			}},
		}},
	}
	c, st := setup(t, f, Options{})

	e := model.Entity{ID: 2, Name: "Globex Fusion"}
	res, err := c.Collect(context.Background(), target(e), cursor.New(2, model.SourceForum))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Saved)
	assert.False(t, f.seen("founder"), "keyword fallback runs only when nothing was found")

	snippets, err := st.SnippetsForEntity(2)
	require.NoError(t, err)
	require.Len(t, snippets, 1)
	assert.Equal(t, "901", snippets[0].ExternalID)
	assert.Equal(t, model.TierEarned, snippets[0].Tier)
}

func TestCollectNoResults(t *testing.T) {
	f := &fakeSearch{}
	c, _ := setup(t, f, Options{})

	e := model.Entity{ID: 3, Name: "Initech Labs"}
	res, err := c.Collect(context.Background(), target(e), cursor.New(3, model.SourceForum))
	require.NoError(t, err)
	assert.Equal(t, guard.ReasonNoResults, res.SkipReason)
	assert.Zero(t, res.Saved)
	assert.True(t, f.seen("founder"), "keyword fallback runs when nothing was kept")
}

func TestCollectAmbiguousNeedsCorroboration(t *testing.T) {
	f := &fakeSearch{comments: map[string][]hit{`"Stripe"`: {
		{ObjectID: "1", CreatedAtI: 1700000001, CommentText: "I'm the founder of Stripe and I painted it myself on the barn wall over two weekends."},
		{ObjectID: "2", CreatedAtI: 1700000002, CommentText: "I'm the founder of Stripe; we raised a seed round last year and our customers are mostly clinics."},
	}}}
	c, st := setup(t, f, Options{})

	tgt := collect.Target{
		Entity:  model.Entity{ID: 4, Name: "Stripe", Domain: "stripe.com"},
		Verdict: guard.Verdict{Proceed: true, Ambiguous: true, NormalizedDomain: "stripe.com"},
	}
	res, err := c.Collect(context.Background(), tgt, cursor.New(4, model.SourceForum))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Saved)

	snippets, err := st.SnippetsForEntity(4)
	require.NoError(t, err)
	require.Len(t, snippets, 1)
	assert.Equal(t, "2", snippets[0].ExternalID)
}

func TestCollectSearchFailureIsCounted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	c := New(collect.Deps{Getter: fetch.NewClient(fetch.Options{}), Sink: st}, Options{SearchURL: srv.URL})
	e := model.Entity{ID: 5, Name: "Acme Robotics"}
	res, err := c.Collect(context.Background(), target(e), cursor.New(5, model.SourceForum))
	require.NoError(t, err)
	assert.Positive(t, res.Errors)
	assert.Equal(t, guard.ReasonNone, res.SkipReason)
}

func TestDefaultStrategies(t *testing.T) {
	ss := DefaultStrategies([]string{"founder", "ARR"})
	names := make([]string, len(ss))
	for i, s := range ss {
		names[i] = s.Name
	}
	assert.Equal(t, []string{"name", "name+domain", "domain", "stories", "founder-keywords"}, names)

	noDomain := collect.Target{Entity: model.Entity{Name: "Acme"}}
	assert.Empty(t, ss[1].Build(noDomain))
	assert.Empty(t, ss[2].Build(noDomain))
	assert.Equal(t, []Query{{Text: `"Acme" founder`, Tags: TagComment}, {Text: `"Acme" ARR`, Tags: TagComment}}, ss[4].Build(noDomain))
	assert.Equal(t, Always, ss[2].When)
	assert.Equal(t, IfThin, ss[3].When)
	assert.Equal(t, IfEmpty, ss[4].When)
}
