package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/abelbrown/pythia/internal/cursor"
	"github.com/abelbrown/pythia/internal/model"
)

// LoadCursor returns the persisted high-water mark for the pair. When no
// cursor row exists yet it is seeded from the newest external timestamp
// already stored, so databases written before cursors existed keep working.
// Thread-safe: acquires read lock.
func (s *Store) LoadCursor(entityID int64, source model.SourceType) (cursor.Mark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var highWater int64
	err := s.db.QueryRow(
		"SELECT high_water FROM cursors WHERE entity_id = ? AND source_type = ?",
		entityID, string(source),
	).Scan(&highWater)
	if err == nil {
		return cursor.At(entityID, source, time.Unix(highWater, 0)), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return cursor.Mark{}, fmt.Errorf("load cursor: %w", err)
	}

	var seeded sql.NullInt64
	err = s.db.QueryRow(
		"SELECT MAX(external_ts) FROM snippets WHERE entity_id = ? AND source_type = ?",
		entityID, string(source),
	).Scan(&seeded)
	if err != nil {
		return cursor.Mark{}, fmt.Errorf("seed cursor: %w", err)
	}
	if !seeded.Valid {
		return cursor.New(entityID, source), nil
	}
	return cursor.At(entityID, source, time.Unix(seeded.Int64, 0)), nil
}

// SaveCursor persists m. A stored mark never moves backwards, so an older
// or zero mark is a no-op.
// Thread-safe: acquires write lock.
func (s *Store) SaveCursor(m cursor.Mark) error {
	if m.IsZero() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO cursors (entity_id, source_type, high_water, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(entity_id, source_type) DO UPDATE SET
			high_water = MAX(high_water, excluded.high_water),
			updated_at = excluded.updated_at
	`, m.EntityID, string(m.Source), m.Unix(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	return nil
}
