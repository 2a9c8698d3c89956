package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelbrown/pythia/internal/model"
)

const (
	forumComment = "We will not support legacy export; removing it cut onboarding time because fewer config paths exist."
	pressQuote   = "A revolutionary, game-changing platform."
)

func TestExtractMixedSnippets(t *testing.T) {
	x := New(nil)
	f := x.ExtractSnippets([]model.Snippet{{Text: forumComment}, {Text: pressQuote}})

	assert.Equal(t, 20, f.Words)
	assert.Equal(t, 2, f.Sentences)

	assert.Equal(t, 1, f.Constraint.Negative)
	assert.Equal(t, 1, f.Constraint.Hard)
	assert.Equal(t, 1, f.Constraint.Exclusion)
	assert.Equal(t, 3, f.Constraint.Raw)
	assert.True(t, f.Constraint.HasNegative)
	assert.InDelta(t, 150.0, f.Constraint.Per1k, 1e-9)

	assert.Equal(t, 1, f.Mechanism.Causal)
	assert.Equal(t, 0, f.Mechanism.Chains)
	assert.InDelta(t, 1.0, f.Mechanism.Weighted, 1e-9)

	assert.Equal(t, 1, f.Reality.Shipping)
	assert.False(t, f.Reality.HasMetrics)

	assert.Equal(t, 2, f.Adjectives.Adjectives)
	assert.Equal(t, 2, f.Adjectives.Verbs)
	assert.InDelta(t, 1.0, f.Adjectives.Ratio, 1e-9)
	assert.False(t, f.Adjectives.HypeHeavy)

	assert.Equal(t, 0, f.Unfalsifiable.Raw)
}

func TestCausalChainsDoubleWeight(t *testing.T) {
	f := New(nil).Extract("Churn fell because onboarding got shorter, which means support load dropped.")

	assert.Equal(t, 2, f.Mechanism.Causal)
	assert.Equal(t, 1, f.Mechanism.Named)
	assert.Equal(t, 1, f.Mechanism.Chains)
	assert.True(t, f.Mechanism.HasChain)
	assert.InDelta(t, 5.0, f.Mechanism.Weighted, 1e-9)
}

func TestChainsDoNotSpanSnippets(t *testing.T) {
	f := New(nil).ExtractSnippets([]model.Snippet{
		{Text: "It broke because of the cache"},
		{Text: "therefore we rewrote it"},
	})
	assert.Equal(t, 2, f.Mechanism.Causal)
	assert.Equal(t, 0, f.Mechanism.Chains)
}

func TestPostmortemWeight(t *testing.T) {
	f := New(nil).Extract("The root cause was a bad config. We were wrong.")

	assert.Equal(t, 2, f.Reality.Postmortem)
	assert.True(t, f.Reality.HasPostmortem)
	assert.InDelta(t, 3.0, f.Reality.Weighted, 1e-9)
	assert.Equal(t, 2, f.Reality.Raw)
}

func TestQuantitativeMarkers(t *testing.T) {
	f := New(nil).Extract("We tested pricing: conversion rose 12% and ARR hit $2.5M within 6 months.")

	assert.GreaterOrEqual(t, f.Reality.Quantitative, 3)
	assert.Equal(t, 1, f.Reality.Experiment)
	assert.True(t, f.Reality.HasMetrics)
}

func TestHypeHeavy(t *testing.T) {
	f := New(nil).Extract("Revolutionary, cutting-edge, world-class, transformative tools.")

	assert.Equal(t, 4, f.Adjectives.Adjectives)
	assert.Equal(t, 0, f.Adjectives.Verbs)
	assert.InDelta(t, 4.0, f.Adjectives.Ratio, 1e-9)
	assert.True(t, f.Adjectives.HypeHeavy)

	// Enough concrete verbs bring the ratio under the threshold.
	f = New(nil).Extract("Revolutionary, cutting-edge, world-class, transformative tools. " +
		"We shipped, measured, tested, fixed, deployed, reduced and migrated.")
	assert.False(t, f.Adjectives.HypeHeavy)
}

func TestUnfalsifiable(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantRaw   int
		wantTotal int
	}{
		{"bare claim", "We are changing the world.", 1, 1},
		{"dated claim", "We will be the future of payments by 2027.", 0, 1},
		{"metric claim", "We are democratizing credit for 10,000 customers.", 0, 1},
		{"horizon elsewhere", "We are changing the world. Revenue grew 30%.", 1, 1},
		{"none", "We fixed the login bug.", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(nil).Extract(tt.text)
			assert.Equal(t, tt.wantRaw, f.Unfalsifiable.Raw)
			assert.Equal(t, tt.wantTotal, f.Unfalsifiable.Grandiose)
			assert.Equal(t, tt.wantRaw > 0, f.Unfalsifiable.Any)
		})
	}
}

func TestEmptyText(t *testing.T) {
	f := New(nil).Extract("")
	assert.Zero(t, f.Words)
	assert.Zero(t, f.Constraint.Per1k)
	assert.Zero(t, f.Adjectives.Ratio)
}

func TestSentences(t *testing.T) {
	got := Sentences("Costs fell 1.5x. Why? Because we cut scope!\nNext line")
	require.Len(t, got, 4)
	assert.Equal(t, "Costs fell 1.5x", got[0])
	assert.Equal(t, "Next line", got[3])
}

func TestCombineSkipsBlank(t *testing.T) {
	assert.Equal(t, "a\nb", Combine([]model.Snippet{{Text: " a "}, {Text: "  "}, {Text: "b"}}))
}
