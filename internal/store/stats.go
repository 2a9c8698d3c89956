package store

import (
	"time"

	"github.com/abelbrown/pythia/internal/model"
)

// SourceTierCount is one cell of the snippet breakdown used by the health report.
type SourceTierCount struct {
	Source model.SourceType
	Tier   model.Tier
	Count  int
}

// SnippetBreakdown counts snippets stored since the given time, grouped by
// source type and tier.
// Thread-safe: acquires read lock.
func (s *Store) SnippetBreakdown(since time.Time) ([]SourceTierCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT source_type, tier, COUNT(*)
		FROM snippets
		WHERE created_at >= ?
		GROUP BY source_type, tier
		ORDER BY source_type, tier
	`, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SourceTierCount
	for rows.Next() {
		var (
			c      SourceTierCount
			source string
			tier   int
		)
		if err := rows.Scan(&source, &tier, &c.Count); err != nil {
			return nil, err
		}
		c.Source = model.SourceType(source)
		c.Tier = model.Tier(tier)
		out = append(out, c)
	}
	return out, rows.Err()
}

// SnippetCount returns the total number of stored snippets.
func (s *Store) SnippetCount() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM snippets").Scan(&n)
	return n, err
}

// EntitiesWithoutSnippets lists catalog entities that have no evidence yet.
// Thread-safe: acquires read lock.
func (s *Store) EntitiesWithoutSnippets() ([]model.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryEntities(`
		SELECT e.id, e.name, e.domain, e.repo
		FROM entities e
		WHERE NOT EXISTS (SELECT 1 FROM snippets s WHERE s.entity_id = e.id)
		ORDER BY e.id
	`)
}
