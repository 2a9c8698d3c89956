package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/abelbrown/pythia/internal/model"
)

// SaveArticles stores news articles, returning count of new articles inserted.
// Duplicates (by ID or URL) are silently ignored via INSERT OR IGNORE.
// Thread-safe: acquires write lock.
func (s *Store) SaveArticles(articles []model.Article) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(articles) == 0 {
		return 0, nil
	}

	stmt, err := s.db.Prepare(`
		INSERT OR IGNORE INTO articles (
			id, source_name, title, body, url, author,
			published_at, fetched_at, companies
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	newCount := 0
	for _, a := range articles {
		// NULL keeps "unannotated" distinct from "annotated, nobody mentioned".
		var companies sql.NullString
		if a.Companies != nil {
			raw, err := json.Marshal(a.Companies)
			if err != nil {
				return newCount, fmt.Errorf("encode companies for %s: %w", a.ID, err)
			}
			companies = sql.NullString{String: string(raw), Valid: true}
		}

		result, err := stmt.Exec(
			a.ID,
			a.SourceName,
			a.Title,
			a.Body,
			a.URL,
			a.Author,
			a.Published.UTC(),
			a.Fetched.UTC(),
			companies,
		)
		if err != nil {
			return newCount, err
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return newCount, err
		}
		if affected > 0 {
			newCount++
		}
	}

	return newCount, nil
}

// ArticlesSince returns up to limit articles published after since, newest
// first. A limit <= 0 means no limit.
// Thread-safe: acquires read lock.
func (s *Store) ArticlesSince(since time.Time, limit int) ([]model.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.Query(`
		SELECT id, source_name, title, body, url, author,
			published_at, fetched_at, companies
		FROM articles
		WHERE published_at > ?
		ORDER BY published_at DESC
		LIMIT ?
	`, since.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []model.Article
	for rows.Next() {
		var (
			a         model.Article
			body      sql.NullString
			url       sql.NullString
			author    sql.NullString
			companies sql.NullString
		)
		err := rows.Scan(
			&a.ID,
			&a.SourceName,
			&a.Title,
			&body,
			&url,
			&author,
			&a.Published,
			&a.Fetched,
			&companies,
		)
		if err != nil {
			return nil, err
		}
		a.Body = body.String
		a.URL = url.String
		a.Author = author.String
		if companies.Valid {
			a.Companies = []string{}
			if err := json.Unmarshal([]byte(companies.String), &a.Companies); err != nil {
				return nil, fmt.Errorf("decode companies for %s: %w", a.ID, err)
			}
		}
		articles = append(articles, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return articles, nil
}

// ArticleCount returns the size of the news corpus.
func (s *Store) ArticleCount() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM articles").Scan(&n)
	return n, err
}
