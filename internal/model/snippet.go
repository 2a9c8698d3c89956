// Package model holds the data types shared by the collectors, the stores and the scoring engine.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Snippet is an immutable fragment of attributed text tied to one entity and one source.
type Snippet struct {
	ID          int64
	EntityID    int64
	Text        string
	SourceURL   string
	SourceType  SourceType
	Tier        Tier
	Context     string
	Published   *time.Time
	ContentHash string

	// Set only by sources with a stable native id and timestamp (forum comments).
	ExternalID   string
	ExternalTime *time.Time

	CreatedAt time.Time
}

// NormalizeText canonicalizes text for hashing: trimmed, case-folded, whitespace collapsed.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// ContentHash returns the hex sha256 digest of the normalized text.
func ContentHash(text string) string {
	h := sha256.Sum256([]byte(NormalizeText(text)))
	return hex.EncodeToString(h[:])
}

// WithHash returns a copy of s with ContentHash derived from its text.
func (s Snippet) WithHash() Snippet {
	s.ContentHash = ContentHash(s.Text)
	return s
}
