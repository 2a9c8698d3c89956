// Package health summarizes what collection and scoring produced over a
// recent window.
package health

import (
	"fmt"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/abelbrown/pythia/internal/model"
	"github.com/abelbrown/pythia/internal/store"
)

// Source is the read side of the store the report needs.
type Source interface {
	SnippetBreakdown(since time.Time) ([]store.SourceTierCount, error)
	LatestScoresSince(since time.Time) ([]model.Score, error)
	EntitiesWithoutSnippets() ([]model.Entity, error)
}

// Band is a bucket of the score distribution, inclusive on both ends.
type Band struct {
	Lo, Hi int
	Count  int
}

// Summary is the health report for one window.
type Summary struct {
	Since time.Time
	Days  int

	// BySource maps source type to counts indexed by tier (1..3; index 0 unused).
	BySource map[model.SourceType][4]int
	Snippets int

	Scored         int
	MeanPythia     float64
	MeanConfidence float64
	LowConfidence  int // scores under 0.3
	Bands          []Band

	Unevidenced []model.Entity
}

// Build computes the summary for the last days days.
func Build(src Source, clock clockwork.Clock, days int) (Summary, error) {
	if days <= 0 {
		days = 7
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	since := clock.Now().UTC().AddDate(0, 0, -days)
	sum := Summary{
		Since:    since,
		Days:     days,
		BySource: map[model.SourceType][4]int{},
		Bands:    []Band{{Lo: 0, Hi: 19}, {Lo: 20, Hi: 39}, {Lo: 40, Hi: 59}, {Lo: 60, Hi: 79}, {Lo: 80, Hi: 100}},
	}

	cells, err := src.SnippetBreakdown(since)
	if err != nil {
		return sum, fmt.Errorf("snippet breakdown: %w", err)
	}
	for _, c := range cells {
		row := sum.BySource[c.Source]
		if c.Tier.Valid() {
			row[c.Tier] += c.Count
		}
		sum.BySource[c.Source] = row
		sum.Snippets += c.Count
	}

	scores, err := src.LatestScoresSince(since)
	if err != nil {
		return sum, fmt.Errorf("latest scores: %w", err)
	}
	sum.Scored = len(scores)
	for _, sc := range scores {
		sum.MeanPythia += float64(sc.Pythia)
		sum.MeanConfidence += sc.Confidence
		if sc.Confidence < 0.3 {
			sum.LowConfidence++
		}
		for i := range sum.Bands {
			if sc.Pythia >= sum.Bands[i].Lo && sc.Pythia <= sum.Bands[i].Hi {
				sum.Bands[i].Count++
				break
			}
		}
	}
	if n := len(scores); n > 0 {
		sum.MeanPythia /= float64(n)
		sum.MeanConfidence /= float64(n)
	}

	sum.Unevidenced, err = src.EntitiesWithoutSnippets()
	if err != nil {
		return sum, fmt.Errorf("entities without snippets: %w", err)
	}
	return sum, nil
}

// Sources returns the source types present in the breakdown, in the fixed
// collector order first, then anything unexpected alphabetically.
func (s Summary) Sources() []model.SourceType {
	var out []model.SourceType
	seen := map[model.SourceType]bool{}
	for _, st := range model.AllSourceTypes() {
		if _, ok := s.BySource[st]; ok {
			out = append(out, st)
			seen[st] = true
		}
	}
	var rest []model.SourceType
	for st := range s.BySource {
		if !seen[st] {
			rest = append(rest, st)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	return append(out, rest...)
}
