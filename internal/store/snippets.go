package store

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/abelbrown/pythia/internal/model"
)

// Precondition failures. A snippet failing any of these never reaches SQL.
var (
	ErrMissingSourceURL = errors.New("snippet has no absolute source url")
	ErrEmptyText        = errors.New("snippet text is empty")
	ErrInvalidTier      = errors.New("snippet tier must be 1, 2 or 3")
	ErrInvalidSource    = errors.New("snippet source type is unknown")
	ErrMissingEntity    = errors.New("snippet has no entity")
)

// ValidateSnippet checks the preconditions for persisting s.
func ValidateSnippet(s model.Snippet) error {
	if s.EntityID == 0 {
		return ErrMissingEntity
	}
	if !IsAbsoluteURL(s.SourceURL) {
		return ErrMissingSourceURL
	}
	if strings.TrimSpace(s.Text) == "" {
		return ErrEmptyText
	}
	if !s.Tier.Valid() {
		return ErrInvalidTier
	}
	if !s.SourceType.Valid() {
		return ErrInvalidSource
	}
	return nil
}

// IsAbsoluteURL reports whether raw is an http(s) URL with a host.
func IsAbsoluteURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// InsertSnippet stores s unless a snippet with the same normalized text
// already exists for the entity. First write wins; nothing is overwritten.
// Returns true when a row was inserted.
// Thread-safe: acquires write lock.
func (s *Store) InsertSnippet(sn model.Snippet) (bool, error) {
	if err := ValidateSnippet(sn); err != nil {
		return false, err
	}
	sn = sn.WithHash()
	if sn.CreatedAt.IsZero() {
		sn.CreatedAt = time.Now().UTC()
	}

	var published sql.NullTime
	if sn.Published != nil {
		published = sql.NullTime{Time: sn.Published.UTC(), Valid: true}
	}
	var externalID sql.NullString
	if sn.ExternalID != "" {
		externalID = sql.NullString{String: sn.ExternalID, Valid: true}
	}
	var externalTS sql.NullInt64
	if sn.ExternalTime != nil {
		externalTS = sql.NullInt64{Int64: sn.ExternalTime.Unix(), Valid: true}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(`
		INSERT OR IGNORE INTO snippets (
			entity_id, text, source_url, source_type, tier, context,
			published_at, content_hash, external_id, external_ts, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sn.EntityID,
		sn.Text,
		strings.TrimSpace(sn.SourceURL),
		string(sn.SourceType),
		int(sn.Tier),
		sn.Context,
		published,
		sn.ContentHash,
		externalID,
		externalTS,
		sn.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert snippet: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert snippet: %w", err)
	}
	return affected > 0, nil
}

// HasSnippet reports whether text is already stored for the entity.
// Thread-safe: acquires read lock.
func (s *Store) HasSnippet(entityID int64, text string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM snippets WHERE entity_id = ? AND content_hash = ?",
		entityID, model.ContentHash(text),
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SnippetsForEntity returns every snippet for the entity, oldest first.
// Thread-safe: acquires read lock.
func (s *Store) SnippetsForEntity(entityID int64) ([]model.Snippet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.querySnippets(`
		SELECT id, entity_id, text, source_url, source_type, tier, context,
			published_at, content_hash, external_id, external_ts, created_at
		FROM snippets
		WHERE entity_id = ?
		ORDER BY id ASC
	`, entityID)
}

// SnippetsSince returns snippets stored at or after since, newest first.
// Thread-safe: acquires read lock.
func (s *Store) SnippetsSince(since time.Time) ([]model.Snippet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.querySnippets(`
		SELECT id, entity_id, text, source_url, source_type, tier, context,
			published_at, content_hash, external_id, external_ts, created_at
		FROM snippets
		WHERE created_at >= ?
		ORDER BY created_at DESC
	`, since.UTC())
}

// DeleteSnippetsBySource removes an entity's snippets whose source URL starts
// with urlPrefix. This is the out-of-band cleanup for mis-attributed rows;
// collectors never call it.
// Thread-safe: acquires write lock.
func (s *Store) DeleteSnippetsBySource(entityID int64, urlPrefix string) (int64, error) {
	if strings.TrimSpace(urlPrefix) == "" {
		return 0, fmt.Errorf("refusing to delete with an empty url prefix")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// substr keeps LIKE wildcards in the prefix literal.
	result, err := s.db.Exec(
		"DELETE FROM snippets WHERE entity_id = ? AND substr(source_url, 1, ?) = ?",
		entityID, len(urlPrefix), urlPrefix,
	)
	if err != nil {
		return 0, fmt.Errorf("delete snippets: %w", err)
	}
	return result.RowsAffected()
}

// querySnippets executes a query and scans results into Snippets.
// Caller must hold s.mu (read lock is sufficient).
func (s *Store) querySnippets(query string, args ...any) ([]model.Snippet, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snippets []model.Snippet
	for rows.Next() {
		var (
			sn         model.Snippet
			sourceType string
			tier       int
			context    sql.NullString
			published  sql.NullTime
			externalID sql.NullString
			externalTS sql.NullInt64
		)
		err := rows.Scan(
			&sn.ID,
			&sn.EntityID,
			&sn.Text,
			&sn.SourceURL,
			&sourceType,
			&tier,
			&context,
			&published,
			&sn.ContentHash,
			&externalID,
			&externalTS,
			&sn.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		sn.SourceType = model.SourceType(sourceType)
		sn.Tier = model.Tier(tier)
		sn.Context = context.String
		if published.Valid {
			t := published.Time
			sn.Published = &t
		}
		sn.ExternalID = externalID.String
		if externalTS.Valid {
			t := time.Unix(externalTS.Int64, 0).UTC()
			sn.ExternalTime = &t
		}
		snippets = append(snippets, sn)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return snippets, nil
}
