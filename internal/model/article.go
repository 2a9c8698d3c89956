package model

import "time"

// Article is an ingested news article in the corpus scanned for press quotes.
type Article struct {
	ID         string
	SourceName string
	Title      string
	Body       string
	URL        string
	Author     string
	Published  time.Time
	Fetched    time.Time

	// Companies is the optional "companies mentioned" annotation. Nil means unannotated.
	Companies []string
}
