package model

import "time"

// Score is one computed credibility result for an entity. Rows are append-only;
// the most recent ComputedAt per entity is the effective value.
type Score struct {
	ID         string
	EntityID   int64
	Pythia     int     // 0-100
	Confidence float64 // 0.10-0.95

	Tier1Pct float64
	Tier2Pct float64
	Tier3Pct float64

	ConstraintScore float64 // 0-10
	MechanismScore  float64 // 0-10
	RealityScore    float64 // 0-10
	PenaltyTotal    float64
	OntologyAddon   float64

	SnippetCount     int
	SourceCount      int
	ContextDiversity int
	TemporalSpanDays int

	ComputedAt time.Time
}
