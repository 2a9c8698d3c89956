package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/abelbrown/pythia/internal/model"
)

// ErrEntityNotFound is returned when an entity id is not in the catalog.
var ErrEntityNotFound = errors.New("entity not found")

// UpsertEntity writes e into the local catalog read model. A zero ID
// allocates a new row; the stored entity is returned.
// Thread-safe: acquires write lock.
func (s *Store) UpsertEntity(e model.Entity) (model.Entity, error) {
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return e, fmt.Errorf("entity name is empty")
	}
	e.Domain = strings.ToLower(strings.TrimSpace(e.Domain))
	e.Repo = strings.TrimSpace(e.Repo)

	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == 0 {
		result, err := s.db.Exec(
			"INSERT INTO entities (name, domain, repo) VALUES (?, ?, ?)",
			e.Name, e.Domain, e.Repo,
		)
		if err != nil {
			return e, fmt.Errorf("insert entity: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return e, fmt.Errorf("insert entity: %w", err)
		}
		e.ID = id
		return e, nil
	}

	_, err := s.db.Exec(`
		INSERT INTO entities (id, name, domain, repo) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			domain = excluded.domain,
			repo = excluded.repo
	`, e.ID, e.Name, e.Domain, e.Repo)
	if err != nil {
		return e, fmt.Errorf("upsert entity: %w", err)
	}
	return e, nil
}

// Entity returns the catalog row for id.
// Thread-safe: acquires read lock.
func (s *Store) Entity(id int64) (model.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entities, err := s.queryEntities("SELECT id, name, domain, repo FROM entities WHERE id = ?", id)
	if err != nil {
		return model.Entity{}, err
	}
	if len(entities) == 0 {
		return model.Entity{}, fmt.Errorf("entity %d: %w", id, ErrEntityNotFound)
	}
	return entities[0], nil
}

// Entities lists catalog entities by id. A limit <= 0 means no limit.
// Thread-safe: acquires read lock.
func (s *Store) Entities(limit int) ([]model.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1
	}
	return s.queryEntities("SELECT id, name, domain, repo FROM entities ORDER BY id LIMIT ?", limit)
}

func (s *Store) queryEntities(query string, args ...any) ([]model.Entity, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []model.Entity
	for rows.Next() {
		var (
			e      model.Entity
			domain sql.NullString
			repo   sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Name, &domain, &repo); err != nil {
			return nil, err
		}
		e.Domain = domain.String
		e.Repo = repo.String
		entities = append(entities, e)
	}
	return entities, rows.Err()
}
