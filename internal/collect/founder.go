package collect

import "github.com/abelbrown/pythia/internal/lexicon"

// FounderDetector recognizes first-person founder and operator language.
// The lexicon implementation is a pattern list; anything smarter can be
// swapped in without touching collector control flow.
type FounderDetector interface {
	// Builder matches "we built", "I launched", "we're building".
	Builder(text string) bool
	// Possessive matches "our customers", "our product".
	Possessive(text string) bool
	// SelfID matches explicit self-identification: "I'm the founder", "founder here".
	SelfID(text string) bool
	// BlogFounder matches founder-authored blog phrasing: "co-founder", "when I started".
	BlogFounder(text string) bool
}

// FirstPerson reports whether text shows any founder-side first-person language.
func FirstPerson(d FounderDetector, text string) bool {
	return d.Builder(text) || d.Possessive(text) || d.SelfID(text)
}

// LexiconFounders is the pattern-list FounderDetector.
type LexiconFounders struct {
	lex *lexicon.Lexicon
}

// NewLexiconFounders returns a detector over lx; nil uses the embedded lexicon.
func NewLexiconFounders(lx *lexicon.Lexicon) *LexiconFounders {
	if lx == nil {
		lx = lexicon.Default()
	}
	return &LexiconFounders{lex: lx}
}

func (f *LexiconFounders) Builder(text string) bool     { return f.lex.FounderBuilder.Match(text) }
func (f *LexiconFounders) Possessive(text string) bool  { return f.lex.FounderPossessive.Match(text) }
func (f *LexiconFounders) SelfID(text string) bool      { return f.lex.FounderSelfID.Match(text) }
func (f *LexiconFounders) BlogFounder(text string) bool { return f.lex.FounderBlog.Match(text) }
