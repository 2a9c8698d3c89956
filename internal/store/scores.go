package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/abelbrown/pythia/internal/model"
)

const scoreColumns = `id, entity_id, pythia_score, confidence, tier1_pct, tier2_pct, tier3_pct,
	constraint_score, mechanism_score, reality_score, penalty_total, ontology_addon,
	snippet_count, source_count, context_diversity, temporal_span_days, computed_at`

// InsertScore appends a score row. Rows are never updated; a recomputation is
// a new row. An empty ID is filled with a fresh UUID and returned.
// Thread-safe: acquires write lock.
func (s *Store) InsertScore(sc model.Score) (string, error) {
	if sc.EntityID == 0 {
		return "", ErrMissingEntity
	}
	if sc.ID == "" {
		sc.ID = uuid.NewString()
	}
	if sc.ComputedAt.IsZero() {
		sc.ComputedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT INTO scores (`+scoreColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sc.ID,
		sc.EntityID,
		sc.Pythia,
		sc.Confidence,
		sc.Tier1Pct,
		sc.Tier2Pct,
		sc.Tier3Pct,
		sc.ConstraintScore,
		sc.MechanismScore,
		sc.RealityScore,
		sc.PenaltyTotal,
		sc.OntologyAddon,
		sc.SnippetCount,
		sc.SourceCount,
		sc.ContextDiversity,
		sc.TemporalSpanDays,
		sc.ComputedAt.UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("insert score: %w", err)
	}
	return sc.ID, nil
}

// LatestScore returns the most recently computed score for the entity, or
// nil when it has never been scored.
// Thread-safe: acquires read lock.
func (s *Store) LatestScore(entityID int64) (*model.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scores, err := s.queryScores(`SELECT `+scoreColumns+`
		FROM scores
		WHERE entity_id = ?
		ORDER BY computed_at DESC, rowid DESC
		LIMIT 1`, entityID)
	if err != nil {
		return nil, err
	}
	if len(scores) == 0 {
		return nil, nil
	}
	return &scores[0], nil
}

// ScoreHistory returns every score row for the entity, newest first.
// Thread-safe: acquires read lock.
func (s *Store) ScoreHistory(entityID int64) ([]model.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryScores(`SELECT `+scoreColumns+`
		FROM scores
		WHERE entity_id = ?
		ORDER BY computed_at DESC, rowid DESC`, entityID)
}

// LatestScoresSince returns the effective (latest) score of every entity
// scored at or after since.
// Thread-safe: acquires read lock.
func (s *Store) LatestScoresSince(since time.Time) ([]model.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryScores(`SELECT `+scoreColumns+`
		FROM scores AS sc
		WHERE computed_at >= ?
		AND rowid = (
			SELECT rowid FROM scores
			WHERE entity_id = sc.entity_id
			ORDER BY computed_at DESC, rowid DESC
			LIMIT 1
		)
		ORDER BY entity_id`, since.UTC())
}

// queryScores executes a query and scans results into Scores.
// Caller must hold s.mu (read lock is sufficient).
func (s *Store) queryScores(query string, args ...any) ([]model.Score, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []model.Score
	for rows.Next() {
		var sc model.Score
		err := rows.Scan(
			&sc.ID,
			&sc.EntityID,
			&sc.Pythia,
			&sc.Confidence,
			&sc.Tier1Pct,
			&sc.Tier2Pct,
			&sc.Tier3Pct,
			&sc.ConstraintScore,
			&sc.MechanismScore,
			&sc.RealityScore,
			&sc.PenaltyTotal,
			&sc.OntologyAddon,
			&sc.SnippetCount,
			&sc.SourceCount,
			&sc.ContextDiversity,
			&sc.TemporalSpanDays,
			&sc.ComputedAt,
		)
		if err != nil {
			return nil, err
		}
		scores = append(scores, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return scores, nil
}
