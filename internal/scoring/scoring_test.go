package scoring

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelbrown/pythia/internal/features"
	"github.com/abelbrown/pythia/internal/model"
)

var fixedNow = time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine() *Engine {
	return New(WithClock(clockwork.NewFakeClockAt(fixedNow)))
}

func snip(text string, source model.SourceType, tier model.Tier, context string) model.Snippet {
	return model.Snippet{
		EntityID:   1,
		Text:       text,
		SourceURL:  "https://example.com/s",
		SourceType: source,
		Tier:       tier,
		Context:    context,
	}
}

func scenarioA() []model.Snippet {
	return []model.Snippet{
		snip("We will not support legacy export; removing it cut onboarding time because fewer config paths exist.",
			model.SourceForum, model.TierEarned, model.ContextProduct),
		snip("A revolutionary, game-changing platform.", model.SourcePress, model.TierPromotional, model.ContextPress),
	}
}

func scenarioB() []model.Snippet {
	texts := []string{
		"A revolutionary, cutting-edge, world-class platform.",
		"Truly innovative, disruptive and groundbreaking.",
		"Seamless, best-in-class, next-generation experience.",
		"An amazing, incredible, magical product.",
		"Transformative, visionary, unparalleled design.",
	}
	out := make([]model.Snippet, 0, len(texts))
	for _, t := range texts {
		out = append(out, snip(t, model.SourcePress, model.TierPromotional, model.ContextPress))
	}
	return out
}

func TestScenarioAMixedEvidence(t *testing.T) {
	b, err := newTestEngine().Compute(1, scenarioA())
	require.NoError(t, err)
	s := b.Score

	assert.Greater(t, s.ConstraintScore, 0.0)
	assert.Greater(t, s.MechanismScore, 0.0)
	assert.Greater(t, s.PenaltyTotal, 0.0)
	assert.GreaterOrEqual(t, s.Pythia, 35)
	assert.LessOrEqual(t, s.Pythia, 55)
	assert.Equal(t, 43, s.Pythia)
	assert.False(t, b.Discounted)

	// 0.25 + 0.1·ln 3 + 0.10 (two sources) + 0.10 (tier 1 present)
	assert.InDelta(t, 0.56, s.Confidence, 0.001)
	assert.Equal(t, 2, s.SourceCount)
	assert.Equal(t, 2, s.SnippetCount)
	assert.Equal(t, 50.0, s.Tier1Pct)
	assert.Equal(t, 50.0, s.Tier3Pct)
	assert.Equal(t, fixedNow, s.ComputedAt)
}

func TestScenarioBPureHype(t *testing.T) {
	b, err := newTestEngine().Compute(1, scenarioB())
	require.NoError(t, err)
	s := b.Score

	assert.Zero(t, s.ConstraintScore)
	assert.Zero(t, s.MechanismScore)
	assert.Zero(t, s.RealityScore)
	assert.InDelta(t, AdjectivePenaltyCap, b.Penalties.Adjective, 1e-9)
	assert.True(t, b.Features.Adjectives.HypeHeavy)
	assert.Equal(t, 0, s.Pythia)
	assert.Equal(t, 100.0, s.Tier3Pct)
	assert.True(t, b.Discounted)

	// 0.25 + 0.1·ln 6 − 0.20 (tier-3 dominance)
	assert.InDelta(t, 0.229, s.Confidence, 0.001)
}

func TestEmptySet(t *testing.T) {
	_, err := newTestEngine().Compute(1, nil)
	assert.True(t, errors.Is(err, ErrNoSnippets))
}

func TestDiscountIffMeanTierRoundsToThree(t *testing.T) {
	text := "We will never support SSO because switching costs cause churn; we shipped a 20% price cut."

	tests := []struct {
		tiers []model.Tier
		want  bool
	}{
		{[]model.Tier{3, 3, 3}, true},
		{[]model.Tier{2, 3}, true},    // 2.5 rounds up
		{[]model.Tier{2, 3, 3}, true}, // 2.67
		{[]model.Tier{2, 2, 3}, false},
		{[]model.Tier{1, 3}, false},
		{[]model.Tier{1, 1, 1}, false},
	}
	e := newTestEngine()
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.tiers), func(t *testing.T) {
			var set []model.Snippet
			for i, tier := range tt.tiers {
				set = append(set, snip(fmt.Sprintf("%s (%d)", text, i), model.SourceForum, tier, model.ContextProduct))
			}
			b, err := e.Compute(1, set)
			require.NoError(t, err)
			assert.Equal(t, tt.want, b.Discounted)

			undiscounted := saturate(b.Features.Constraint.Weighted, ConstraintScale)
			if tt.want {
				assert.InDelta(t, round(undiscounted*TierDiscount, 2), b.Score.ConstraintScore, 1e-9)
			} else {
				assert.InDelta(t, round(undiscounted, 2), b.Score.ConstraintScore, 1e-9)
			}
		})
	}
}

func TestBoundsAndTierPercentages(t *testing.T) {
	sets := [][]model.Snippet{
		scenarioA(),
		scenarioB(),
		{snip("We shipped.", model.SourceCode, model.TierEarned, model.ContextIssue)},
		{
			snip("We are changing the world and democratizing everything.", model.SourceBlog, model.TierEditorial, model.ContextBlog),
			snip("Revolutionary revolutionary revolutionary revolutionary.", model.SourcePress, model.TierPromotional, model.ContextPress),
			snip("Because churn rose we cut the free tier; therefore retention improved 12% in 3 months.", model.SourceForum, model.TierEarned, model.ContextProduct),
		},
	}

	var big []model.Snippet
	for i := 0; i < 60; i++ {
		big = append(big, snip(fmt.Sprintf(
			"We will not build %d integrations because switching costs lead to churn, which means we measured a 30%% drop and shipped fixes. Root cause found.", i),
			model.SourceForum, model.TierEarned, model.ContextTechnical))
	}
	sets = append(sets, big)

	e := newTestEngine()
	for i, set := range sets {
		b, err := e.Compute(1, set)
		require.NoError(t, err)
		s := b.Score

		assert.GreaterOrEqual(t, s.Pythia, 0, "set %d", i)
		assert.LessOrEqual(t, s.Pythia, 100, "set %d", i)
		assert.GreaterOrEqual(t, s.Confidence, MinConfidence, "set %d", i)
		assert.LessOrEqual(t, s.Confidence, MaxConfidence, "set %d", i)
		assert.InDelta(t, 100.0, s.Tier1Pct+s.Tier2Pct+s.Tier3Pct, 0.15, "set %d", i)
		for _, sub := range []float64{s.ConstraintScore, s.MechanismScore, s.RealityScore} {
			assert.GreaterOrEqual(t, sub, 0.0)
			assert.LessOrEqual(t, sub, SubScoreMax)
		}
		assert.LessOrEqual(t, s.PenaltyTotal, PenaltyCap)
		assert.Zero(t, s.OntologyAddon)
	}
}

func TestMonotoneUnderStrongTierOneEvidence(t *testing.T) {
	strong := snip("We will never support SSO because switching costs lead to churn, which means we prioritize retention over growth.",
		model.SourceForum, model.TierEarned, model.ContextProduct)

	bases := [][]model.Snippet{
		scenarioA(),
		scenarioB(),
		{snip("Our roadmap is simple.", model.SourceBlog, model.TierEditorial, model.ContextBlog)},
		{snip("We are changing the world.", model.SourcePress, model.TierPromotional, model.ContextPress)},
	}

	// The same evidence with one grandiose aside still outweighs its penalty.
	hyped := strong
	hyped.Text += " We are changing the world of retail."

	e := newTestEngine()
	for i, base := range bases {
		before, err := e.Compute(1, base)
		require.NoError(t, err)

		for _, add := range []model.Snippet{strong, hyped} {
			grown := append(append([]model.Snippet{}, base...), add)
			after, err := e.Compute(1, grown)
			require.NoError(t, err)

			assert.GreaterOrEqual(t, after.Score.Pythia, before.Score.Pythia, "base %d: %q", i, add.Text)
		}
	}

	b, err := e.Compute(1, []model.Snippet{hyped})
	require.NoError(t, err)
	assert.Positive(t, b.Penalties.Unfalsifiable, "the grandiose aside is penalized")

	// Repeatedly adding evidence keeps the score non-decreasing.
	set := scenarioB()
	prev := -1
	for i := 0; i < 8; i++ {
		extra := strong
		extra.Text = fmt.Sprintf("%s Iteration %d.", strong.Text, i)
		set = append(set, extra)
		b, err := e.Compute(1, set)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, b.Score.Pythia, prev)
		prev = b.Score.Pythia
	}
}

func TestConfidenceAdjustments(t *testing.T) {
	oneTierOne := tierMix([]model.Snippet{{Tier: model.TierEarned}})
	allTierThree := tierMix([]model.Snippet{{Tier: model.TierPromotional}})

	base := Confidence(1, 1, tierMix([]model.Snippet{{Tier: model.TierEditorial}}), 1, 0)
	assert.InDelta(t, 0.319, base, 0.001)

	assert.InDelta(t, base+0.10, Confidence(1, 1, oneTierOne, 1, 0), 0.001)
	assert.InDelta(t, base-0.20, Confidence(1, 1, allTierThree, 1, 0), 0.001)
	assert.InDelta(t, base+0.15, Confidence(1, 3, tierMix([]model.Snippet{{Tier: 2}}), 1, 0), 0.001)
	assert.InDelta(t, base+0.10, Confidence(1, 1, tierMix([]model.Snippet{{Tier: 2}}), 3, 90), 0.001)

	assert.Equal(t, MaxConfidence, Confidence(100000, 4, oneTierOne, 5, 400))
	assert.Equal(t, MinConfidence, Confidence(0, 0, TierMix{}, 0, 0))
}

func TestTemporalSpanAndContexts(t *testing.T) {
	early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.AddDate(0, 0, 120)

	a := snip("We shipped it.", model.SourceForum, model.TierEarned, model.ContextProduct)
	a.Published = &early
	b := snip("We measured it.", model.SourceBlog, model.TierEditorial, model.ContextBlog)
	b.ExternalTime = &late
	c := snip("We fixed it.", model.SourceCode, model.TierEarned, model.ContextIssue)

	bd, err := newTestEngine().Compute(1, []model.Snippet{a, b, c})
	require.NoError(t, err)
	assert.Equal(t, 120, bd.Score.TemporalSpanDays)
	assert.Equal(t, 3, bd.Score.ContextDiversity)
	assert.Equal(t, 3, bd.Score.SourceCount)
}

type fixedOntology float64

func (f fixedOntology) Addon(features.Features, []model.Snippet) float64 { return float64(f) }

func TestOntologyAddonClamped(t *testing.T) {
	e := New(WithClock(clockwork.NewFakeClockAt(fixedNow)), WithOntology(fixedOntology(40)))
	b, err := e.Compute(1, scenarioA())
	require.NoError(t, err)
	assert.Equal(t, OntologyCap, b.Score.OntologyAddon)
	assert.Equal(t, 58, b.Score.Pythia)
}

type memSource map[int64][]model.Snippet

func (m memSource) SnippetsForEntity(id int64) ([]model.Snippet, error) {
	if id < 0 {
		return nil, errors.New("boom")
	}
	return m[id], nil
}

func TestBatch(t *testing.T) {
	src := memSource{1: scenarioA(), 2: scenarioB()}
	out := newTestEngine().Batch(context.Background(), src, []int64{1, 2, 3, -1}, 2)

	require.Len(t, out, 4)
	assert.NoError(t, out[0].Err)
	assert.Equal(t, 43, out[0].Breakdown.Score.Pythia)
	assert.Equal(t, int64(1), out[0].Breakdown.Score.EntityID)
	assert.NoError(t, out[1].Err)
	assert.Equal(t, 0, out[1].Breakdown.Score.Pythia)
	assert.ErrorIs(t, out[2].Err, ErrNoSnippets)
	assert.EqualError(t, out[3].Err, "boom")
}

func TestBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := newTestEngine().Batch(ctx, memSource{1: scenarioA()}, []int64{1}, 1)
	assert.ErrorIs(t, out[0].Err, context.Canceled)
}
