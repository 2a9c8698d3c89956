// Package collect defines the contract shared by the four source collectors
// and the sequential runner that drives them over a list of entities.
//
// A collector discovers candidate text for one entity, classifies its tier and
// hands it to a Sink. It never decides whether the entity may be collected at
// all; the Runner asks the guard first and passes the Verdict along in the
// Target. Outcomes are counters, never a pass/fail verdict.
package collect

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/abelbrown/pythia/internal/cursor"
	"github.com/abelbrown/pythia/internal/fetch"
	"github.com/abelbrown/pythia/internal/guard"
	"github.com/abelbrown/pythia/internal/lexicon"
	"github.com/abelbrown/pythia/internal/logging"
	"github.com/abelbrown/pythia/internal/model"
	"github.com/abelbrown/pythia/internal/otel"
	"github.com/abelbrown/pythia/internal/store"
	"github.com/abelbrown/pythia/internal/tier"
)

// Target is one entity cleared by the guard.
type Target struct {
	Entity  model.Entity
	Verdict guard.Verdict
}

// Domain is the company's own host, possibly inferred by the guard.
func (t Target) Domain() string {
	return t.Verdict.NormalizedDomain
}

// Result counts what one collection did for one entity.
type Result struct {
	Saved     int // newly inserted snippets
	Skipped   int // duplicates and candidates failing persistence preconditions
	Extracted int // candidates that passed extraction filters
	Errors    int // fetch and persistence failures

	// SkipReason is set when the entity was skipped as a whole.
	SkipReason guard.Reason

	// NewCursor is the high-water mark after this run. Collectors without a
	// native timestamp return the mark they were given.
	NewCursor cursor.Mark
}

// Skip returns a Result for an entity skipped with reason.
func Skip(reason guard.Reason, mark cursor.Mark) Result {
	return Result{SkipReason: reason, NewCursor: mark}
}

// Collector is implemented by each source.
type Collector interface {
	Source() model.SourceType
	Collect(ctx context.Context, t Target, mark cursor.Mark) (Result, error)
}

// Sink persists snippets. *store.Store satisfies it.
type Sink interface {
	InsertSnippet(model.Snippet) (bool, error)
}

// Deps are the collaborators every collector shares.
type Deps struct {
	Getter   fetch.Getter
	Sink     Sink
	Guard    *guard.Guard
	Tiers    *tier.Classifier
	Founders FounderDetector
	Lexicon  *lexicon.Lexicon
	Events   *otel.Logger
}

// WithDefaults fills unset collaborators from the embedded lexicon.
// Getter and Sink have no default; a nil Events logger discards.
func (d Deps) WithDefaults() Deps {
	if d.Lexicon == nil {
		d.Lexicon = lexicon.Default()
	}
	if d.Guard == nil {
		d.Guard = guard.New(nil, guard.WithLexicon(d.Lexicon))
	}
	if d.Tiers == nil {
		d.Tiers = tier.New(d.Lexicon)
	}
	if d.Founders == nil {
		d.Founders = NewLexiconFounders(d.Lexicon)
	}
	return d
}

// Save persists sn and updates res. It reports whether the snippet is now
// stored, either inserted by this call or already present; callers advance
// their cursor only over stored snippets.
func (d Deps) Save(res *Result, sn model.Snippet) bool {
	if err := store.ValidateSnippet(sn); err != nil {
		logging.Debug("collect: candidate dropped", "entity", sn.EntityID, "source", sn.SourceType, "err", err)
		res.Skipped++
		return false
	}
	inserted, err := d.Sink.InsertSnippet(sn)
	if err != nil {
		res.Errors++
		logging.Error("collect: persist snippet", "entity", sn.EntityID, "source", sn.SourceType, "url", sn.SourceURL, "err", err)
		d.Events.EntityError(otel.KindStoreError, string(sn.SourceType), sn.EntityID, string(sn.SourceType), err)
		return false
	}
	if inserted {
		res.Saved++
	} else {
		res.Skipped++
	}
	return true
}

// FetchFailed records an abandoned URL. The collector moves on to its next
// candidate.
func (d Deps) FetchFailed(res *Result, source model.SourceType, entityID int64, rawURL string, err error) {
	res.Errors++
	logging.Warn("collect: fetch failed", "entity", entityID, "source", source, "url", rawURL, "err", err)
	d.Events.EntityError(otel.KindFetchError, string(source), entityID, string(source), fmt.Errorf("%s: %w", rawURL, err))
}

// Totals aggregates Results across a run.
type Totals struct {
	Entities  int
	Saved     int
	Skipped   int
	Extracted int
	Errors    int
	Skips     map[guard.Reason]int
}

// Add folds r into t.
func (t *Totals) Add(r Result) {
	t.Entities++
	t.Saved += r.Saved
	t.Skipped += r.Skipped
	t.Extracted += r.Extracted
	t.Errors += r.Errors
	if r.SkipReason != guard.ReasonNone {
		if t.Skips == nil {
			t.Skips = make(map[guard.Reason]int)
		}
		t.Skips[r.SkipReason]++
	}
}

// String renders the counters for the end-of-run log line.
func (t Totals) String() string {
	s := fmt.Sprintf("entities=%d saved=%d skipped=%d extracted=%d errors=%d",
		t.Entities, t.Saved, t.Skipped, t.Extracted, t.Errors)
	if len(t.Skips) == 0 {
		return s
	}
	reasons := make([]string, 0, len(t.Skips))
	for r := range t.Skips {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)
	parts := make([]string, len(reasons))
	for i, r := range reasons {
		parts[i] = fmt.Sprintf("%s:%d", r, t.Skips[guard.Reason(r)])
	}
	return s + " skips=" + strings.Join(parts, ",")
}

// Len is the length of s in characters.
func Len(s string) int {
	return utf8.RuneCountInString(s)
}

// Clip shortens s to at most n characters at a word boundary.
func Clip(s string, n int) string {
	if Len(s) <= n {
		return s
	}
	r := []rune(s)[:n]
	cut := strings.LastIndexAny(string(r), " \n\t")
	if cut > n/2 {
		return strings.TrimSpace(string(r)[:cut])
	}
	return string(r)
}
