// Package scoring turns an entity's snippets into a pythia score.
//
// Compute is pure over its input: the same snippets yield the same score,
// apart from ComputedAt which comes from the engine's clock.
//
//	base       = 3.0·C + 3.0·M + 2.5·R                  (0..85)
//	sub-score  = 10·(1 − e^(−weighted/k)), ×0.7 when the mean tier rounds to 3
//	penalties  = adjective/verb (≤10) + unfalsifiable (≤5), total ≤15
//	pythia     = clamp(base + ontology − penalties, 0, 100)
//
// Sub-scores saturate in raw marker counts, so more evidence never lowers
// them; densities per thousand words are reported alongside but do not
// drive the score.
package scoring

import (
	"errors"
	"math"
	"time"

	"github.com/jonboulle/clockwork"
	"gonum.org/v1/gonum/stat"

	"github.com/abelbrown/pythia/internal/features"
	"github.com/abelbrown/pythia/internal/model"
)

// Formula constants.
const (
	ConstraintWeight = 3.0
	MechanismWeight  = 3.0
	RealityWeight    = 2.5

	ConstraintScale = 2.5
	MechanismScale  = 1.5
	RealityScale    = 2.5

	SubScoreMax  = 10.0
	TierDiscount = 0.7

	AdjectivePenaltyCap     = 10.0
	HypePenalty             = 3.0
	UnfalsifiablePenalty    = 2.0
	UnfalsifiablePenaltyCap = 5.0
	PenaltyCap              = 15.0

	OntologyCap = 15.0

	MinConfidence = 0.10
	MaxConfidence = 0.95
)

// ErrNoSnippets is returned for an empty snippet set; there is nothing to score.
var ErrNoSnippets = errors.New("no snippets to score")

// OntologyScorer contributes the reserved 0..15 addon. The default scorer
// returns 0; the addon is an extension point and is clamped to its range.
type OntologyScorer interface {
	Addon(f features.Features, snippets []model.Snippet) float64
}

type zeroOntology struct{}

func (zeroOntology) Addon(features.Features, []model.Snippet) float64 { return 0 }

// Penalties is the deduction detail.
type Penalties struct {
	Adjective     float64
	Unfalsifiable float64
	Total         float64
}

// Breakdown is a score together with everything it was derived from.
type Breakdown struct {
	Score      model.Score
	Features   features.Features
	Penalties  Penalties
	Base       float64
	MeanTier   float64
	Discounted bool
}

// Engine computes scores. Safe for concurrent use.
type Engine struct {
	extractor *features.Extractor
	clock     clockwork.Clock
	ontology  OntologyScorer
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock sets the clock used for ComputedAt.
func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithExtractor replaces the default feature extractor.
func WithExtractor(x *features.Extractor) Option {
	return func(e *Engine) { e.extractor = x }
}

// WithOntology installs an ontology addon scorer.
func WithOntology(o OntologyScorer) Option {
	return func(e *Engine) { e.ontology = o }
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.extractor == nil {
		e.extractor = features.New(nil)
	}
	if e.clock == nil {
		e.clock = clockwork.NewRealClock()
	}
	if e.ontology == nil {
		e.ontology = zeroOntology{}
	}
	return e
}

// Compute scores one entity's snippet set.
func (e *Engine) Compute(entityID int64, snippets []model.Snippet) (Breakdown, error) {
	if len(snippets) == 0 {
		return Breakdown{}, ErrNoSnippets
	}

	f := e.extractor.ExtractSnippets(snippets)
	mix := tierMix(snippets)

	c := saturate(f.Constraint.Weighted, ConstraintScale)
	m := saturate(f.Mechanism.Weighted, MechanismScale)
	r := saturate(f.Reality.Weighted, RealityScale)

	discounted := DiscountApplies(mix.mean)
	if discounted {
		c *= TierDiscount
		m *= TierDiscount
		r *= TierDiscount
	}

	base := ConstraintWeight*c + MechanismWeight*m + RealityWeight*r
	pen := penalties(f)
	addon := clamp(e.ontology.Addon(f, snippets), 0, OntologyCap)

	final := clamp(base+addon-pen.Total, 0, 100)

	span := temporalSpanDays(snippets)
	contexts := contextDiversity(snippets)
	sources := sourceCount(snippets)

	score := model.Score{
		EntityID:         entityID,
		Pythia:           int(math.Round(final)),
		Confidence:       Confidence(len(snippets), sources, mix, contexts, span),
		Tier1Pct:         round(mix.pct[0], 1),
		Tier2Pct:         round(mix.pct[1], 1),
		Tier3Pct:         round(mix.pct[2], 1),
		ConstraintScore:  round(c, 2),
		MechanismScore:   round(m, 2),
		RealityScore:     round(r, 2),
		PenaltyTotal:     round(pen.Total, 2),
		OntologyAddon:    addon,
		SnippetCount:     len(snippets),
		SourceCount:      sources,
		ContextDiversity: contexts,
		TemporalSpanDays: span,
		ComputedAt:       e.clock.Now().UTC(),
	}

	return Breakdown{
		Score:      score,
		Features:   f,
		Penalties:  pen,
		Base:       base,
		MeanTier:   mix.mean,
		Discounted: discounted,
	}, nil
}

// DiscountApplies reports whether a mean tier rounds to 3.
func DiscountApplies(meanTier float64) bool {
	return math.Round(meanTier) >= float64(model.TierPromotional)
}

// saturate maps a non-negative count onto 0..10, strictly increasing.
func saturate(count, scale float64) float64 {
	if count <= 0 {
		return 0
	}
	return SubScoreMax * (1 - math.Exp(-count/scale))
}

func penalties(f features.Features) Penalties {
	var p Penalties

	a := f.Adjectives
	if a.Adjectives > 0 {
		// Share of the adjective load not backed by action verbs.
		w := a.Ratio / (a.Ratio + 1)
		p.Adjective = float64(a.Adjectives) * w
		if a.HypeHeavy {
			p.Adjective += HypePenalty
		}
		p.Adjective = math.Min(p.Adjective, AdjectivePenaltyCap)
	}

	p.Unfalsifiable = math.Min(UnfalsifiablePenalty*f.Unfalsifiable.Weighted, UnfalsifiablePenaltyCap)
	p.Total = math.Min(p.Adjective+p.Unfalsifiable, PenaltyCap)
	return p
}

// TierMix is the tier distribution of a snippet set.
type TierMix struct {
	pct  [3]float64
	mean float64
	n    int
}

// Pct returns the percentage of snippets at tier t.
func (m TierMix) Pct(t model.Tier) float64 {
	if !t.Valid() {
		return 0
	}
	return m.pct[t-1]
}

// Mean returns the average tier.
func (m TierMix) Mean() float64 { return m.mean }

func tierMix(snippets []model.Snippet) TierMix {
	tiers := make([]float64, 0, len(snippets))
	var counts [3]int
	for _, s := range snippets {
		t := s.Tier
		if !t.Valid() {
			// Unknown tiers are scored as the least trusted.
			t = model.TierPromotional
		}
		counts[t-1]++
		tiers = append(tiers, float64(t))
	}

	mix := TierMix{n: len(tiers)}
	if mix.n == 0 {
		return mix
	}
	mix.mean = stat.Mean(tiers, nil)
	for i, c := range counts {
		mix.pct[i] = 100 * float64(c) / float64(mix.n)
	}
	return mix
}

// Confidence expresses evidentiary strength, independent of the score.
func Confidence(n, sourceTypes int, mix TierMix, contexts, spanDays int) float64 {
	if n <= 0 {
		return MinConfidence
	}
	c := 0.25 + 0.1*math.Log1p(float64(n))

	switch {
	case sourceTypes >= 3:
		c += 0.15
	case sourceTypes == 2:
		c += 0.10
	}
	if mix.Pct(model.TierEarned) > 0 {
		c += 0.10
	}
	if mix.Pct(model.TierPromotional) >= 70 {
		c -= 0.20
	}
	if contexts >= 3 {
		c += 0.05
	}
	if spanDays >= 90 {
		c += 0.05
	}
	return round(clamp(c, MinConfidence, MaxConfidence), 3)
}

func sourceCount(snippets []model.Snippet) int {
	seen := make(map[model.SourceType]bool)
	for _, s := range snippets {
		seen[s.SourceType] = true
	}
	return len(seen)
}

func contextDiversity(snippets []model.Snippet) int {
	seen := make(map[string]bool)
	for _, s := range snippets {
		if s.Context != "" {
			seen[s.Context] = true
		}
	}
	return len(seen)
}

// temporalSpanDays spans the publish dates, falling back to the external
// timestamp. Undated snippets are ignored.
func temporalSpanDays(snippets []model.Snippet) int {
	var first, last time.Time
	for _, s := range snippets {
		var ts *time.Time
		switch {
		case s.Published != nil:
			ts = s.Published
		case s.ExternalTime != nil:
			ts = s.ExternalTime
		default:
			continue
		}
		if first.IsZero() || ts.Before(first) {
			first = *ts
		}
		if last.IsZero() || ts.After(last) {
			last = *ts
		}
	}
	if first.IsZero() {
		return 0
	}
	return int(last.Sub(first).Hours() / 24)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
