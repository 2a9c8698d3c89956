// Package cursor models the incremental high-water mark kept per entity and source.
//
// A Mark is the most recent external timestamp already ingested. Collectors ask
// it which upstream items are new and advance it with what they stored; the
// store persists it between runs. Marks only move forward.
package cursor

import (
	"fmt"
	"time"

	"github.com/abelbrown/pythia/internal/model"
)

// Mark is an immutable high-water mark. The zero After means nothing ingested yet.
type Mark struct {
	EntityID int64
	Source   model.SourceType
	After    time.Time
}

// New returns an empty mark for the pair.
func New(entityID int64, source model.SourceType) Mark {
	return Mark{EntityID: entityID, Source: source}
}

// At returns a mark positioned at ts, truncated to whole seconds since
// upstream timestamps are second-resolution.
func At(entityID int64, source model.SourceType, ts time.Time) Mark {
	return Mark{EntityID: entityID, Source: source, After: ts.UTC().Truncate(time.Second)}
}

// IsZero reports whether nothing has been ingested for the pair.
func (m Mark) IsZero() bool {
	return m.After.IsZero()
}

// Admits reports whether an item stamped ts is new relative to the mark.
func (m Mark) Admits(ts time.Time) bool {
	if m.IsZero() {
		return true
	}
	return ts.UTC().Truncate(time.Second).After(m.After)
}

// Advance returns a mark moved to the latest of its current position and ts.
// Older timestamps leave it unchanged.
func (m Mark) Advance(ts ...time.Time) Mark {
	for _, t := range ts {
		t = t.UTC().Truncate(time.Second)
		if t.After(m.After) {
			m.After = t
		}
	}
	return m
}

// Unix returns the mark as unix seconds, 0 when empty.
func (m Mark) Unix() int64 {
	if m.IsZero() {
		return 0
	}
	return m.After.Unix()
}

// NumericFilter renders the mark as a search-service lower bound such as
// "created_at_i>1700000000". Empty when the mark is zero.
func (m Mark) NumericFilter(field string) string {
	if m.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s>%d", field, m.Unix())
}

// String is for logs.
func (m Mark) String() string {
	if m.IsZero() {
		return fmt.Sprintf("%d/%s@-", m.EntityID, m.Source)
	}
	return fmt.Sprintf("%d/%s@%s", m.EntityID, m.Source, m.After.Format(time.RFC3339))
}
