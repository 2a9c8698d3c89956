package cursor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/abelbrown/pythia/internal/model"
)

func TestZeroMarkAdmitsEverything(t *testing.T) {
	m := New(7, model.SourceForum)
	assert.True(t, m.IsZero())
	assert.True(t, m.Admits(time.Unix(1, 0)))
	assert.Equal(t, int64(0), m.Unix())
	assert.Empty(t, m.NumericFilter("created_at_i"))
}

func TestAdmitsIsStrict(t *testing.T) {
	ts := time.Unix(1_700_000_000, 0)
	m := At(7, model.SourceForum, ts)

	assert.False(t, m.Admits(ts), "the mark itself was already ingested")
	assert.False(t, m.Admits(ts.Add(-time.Hour)))
	assert.False(t, m.Admits(ts.Add(500*time.Millisecond)), "sub-second differences are the same upstream second")
	assert.True(t, m.Admits(ts.Add(time.Second)))
}

func TestAdvanceOnlyMovesForward(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	m := At(1, model.SourceForum, base)

	older := m.Advance(base.Add(-time.Hour))
	assert.Equal(t, m, older)

	newer := m.Advance(base.Add(time.Minute), base.Add(time.Hour), base.Add(time.Second))
	assert.Equal(t, base.Add(time.Hour).UTC(), newer.After)
	assert.Equal(t, base.UTC(), m.After, "Advance must not mutate the receiver")
}

func TestNumericFilter(t *testing.T) {
	m := At(3, model.SourceForum, time.Unix(1_700_000_123, 0))
	assert.Equal(t, "created_at_i>1700000123", m.NumericFilter("created_at_i"))
	assert.Contains(t, m.String(), "3/forum_post@")
}
