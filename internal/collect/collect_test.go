package collect

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelbrown/pythia/internal/cursor"
	"github.com/abelbrown/pythia/internal/guard"
	"github.com/abelbrown/pythia/internal/model"
	"github.com/abelbrown/pythia/internal/otel"
	"github.com/abelbrown/pythia/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

// stubCollector saves one forum snippet per call, stamped at ts.
type stubCollector struct {
	deps  Deps
	ts    time.Time
	err   error
	calls []Target
}

func (s *stubCollector) Source() model.SourceType { return model.SourceForum }

func (s *stubCollector) Collect(_ context.Context, t Target, mark cursor.Mark) (Result, error) {
	s.calls = append(s.calls, t)
	res := Result{NewCursor: mark}
	if s.err != nil {
		return res, s.err
	}
	ts := s.ts
	sn := model.Snippet{
		EntityID:     t.Entity.ID,
		Text:         "We shipped the importer because customers asked for it.",
		SourceURL:    "https://news.ycombinator.com/item?id=42",
		SourceType:   model.SourceForum,
		Tier:         model.TierEarned,
		ExternalID:   "42",
		ExternalTime: &ts,
	}
	res.Extracted++
	if s.deps.Save(&res, sn) {
		res.NewCursor = res.NewCursor.Advance(ts)
	}
	return res, nil
}

func TestRunnerSavesAndAdvancesCursor(t *testing.T) {
	st := openStore(t)
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := &stubCollector{deps: Deps{Sink: st}.WithDefaults(), ts: ts}
	r := &Runner{Guard: guard.New(nil), Cursors: st}

	entities := []model.Entity{{ID: 1, Name: "Acme Robotics", Domain: "acmerobotics.io"}}

	totals := r.Run(context.Background(), c, entities)
	assert.Equal(t, 1, totals.Entities)
	assert.Equal(t, 1, totals.Saved)
	assert.Equal(t, 1, totals.Extracted)
	assert.Zero(t, totals.Errors)

	mark, err := st.LoadCursor(1, model.SourceForum)
	require.NoError(t, err)
	assert.True(t, mark.After.Equal(ts))

	// Second run: the same text deduplicates.
	totals = r.Run(context.Background(), c, entities)
	assert.Zero(t, totals.Saved)
	assert.Equal(t, 1, totals.Skipped)

	require.Len(t, c.calls, 2)
	assert.Equal(t, "acmerobotics.io", c.calls[0].Domain())
}

func TestRunnerGuardSkips(t *testing.T) {
	st := openStore(t)
	c := &stubCollector{deps: Deps{Sink: st}.WithDefaults(), ts: time.Now()}

	events := otel.NewLogger(discard{})
	recent := otel.NewRecent(16)
	events.Attach(recent)
	r := &Runner{Guard: guard.New(nil), Cursors: st, Events: events}

	totals := r.Run(context.Background(), c, []model.Entity{
		{ID: 1, Name: "Sequoia Capital", Domain: "sequoiacap.com"},
		{ID: 2, Name: "Acme", Domain: "crunchbase.com/organization/acme"},
	})
	events.Close()

	assert.Empty(t, c.calls, "collector must not run for rejected entities")
	assert.Equal(t, 2, totals.Entities)
	assert.Equal(t, 1, totals.Skips[guard.ReasonInvestor])
	assert.Equal(t, 1, totals.Skips[guard.ReasonNonCompanyDomain])
	assert.Contains(t, totals.String(), "non-company-domain:1")

	kinds := recent.CountByKind()
	assert.Equal(t, 2, kinds[otel.KindGuardReject])
	assert.Equal(t, 2, kinds[otel.KindCollectSkip])

	n, err := st.SnippetCount()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRunnerCollectorErrorIsCounted(t *testing.T) {
	st := openStore(t)
	c := &stubCollector{deps: Deps{Sink: st}.WithDefaults(), err: errors.New("search service down")}
	r := &Runner{Guard: guard.New(nil), Cursors: st}

	totals := r.Run(context.Background(), c, []model.Entity{
		{ID: 1, Name: "Acme Robotics"},
		{ID: 2, Name: "Globex Fusion"},
	})
	assert.Equal(t, 2, totals.Errors)
	assert.Len(t, c.calls, 2, "one failure does not stop the run")

	mark, err := st.LoadCursor(1, model.SourceForum)
	require.NoError(t, err)
	assert.True(t, mark.IsZero())
}

func TestRunnerStopsOnCancel(t *testing.T) {
	st := openStore(t)
	c := &stubCollector{deps: Deps{Sink: st}.WithDefaults(), ts: time.Now()}
	r := &Runner{Guard: guard.New(nil), Cursors: st}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	totals := r.Run(ctx, c, []model.Entity{{ID: 1, Name: "Acme Robotics"}})
	assert.Zero(t, totals.Entities)
	assert.Empty(t, c.calls)
}

type failingSink struct{}

func (failingSink) InsertSnippet(model.Snippet) (bool, error) {
	return false, errors.New("disk full")
}

func TestSave(t *testing.T) {
	valid := model.Snippet{
		EntityID:   7,
		Text:       "We launched billing last week.",
		SourceURL:  "https://acme.io/blog/billing",
		SourceType: model.SourceBlog,
		Tier:       model.TierEditorial,
	}

	t.Run("missing url never reaches the sink", func(t *testing.T) {
		d := Deps{Sink: failingSink{}}.WithDefaults()
		var res Result
		sn := valid
		sn.SourceURL = ""
		assert.False(t, d.Save(&res, sn))
		assert.Equal(t, 1, res.Skipped)
		assert.Zero(t, res.Errors)
	})

	t.Run("persistence failure is dropped and counted", func(t *testing.T) {
		d := Deps{Sink: failingSink{}}.WithDefaults()
		var res Result
		assert.False(t, d.Save(&res, valid))
		assert.Equal(t, 1, res.Errors)
		assert.Zero(t, res.Saved)
	})

	t.Run("insert then duplicate", func(t *testing.T) {
		d := Deps{Sink: openStore(t)}.WithDefaults()
		var res Result
		assert.True(t, d.Save(&res, valid))
		assert.True(t, d.Save(&res, valid))
		assert.Equal(t, 1, res.Saved)
		assert.Equal(t, 1, res.Skipped)
	})
}

func TestFounderDetector(t *testing.T) {
	f := NewLexiconFounders(nil)

	assert.True(t, f.Builder("We built the scheduler in Go"))
	assert.True(t, f.Possessive("our customers kept asking"))
	assert.True(t, f.SelfID("Founder here, happy to answer questions"))
	assert.True(t, f.BlogFounder("When I started Acme I was alone"))
	assert.True(t, FirstPerson(f, "I'm the co-founder"))
	assert.False(t, FirstPerson(f, "The company announced a new product"))
}

func TestClip(t *testing.T) {
	assert.Equal(t, "short", Clip("short", 10))
	assert.Equal(t, "alpha beta", Clip("alpha beta gamma", 12))
	assert.Equal(t, 5, Len("héllo"))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
