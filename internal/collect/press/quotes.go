package press

import (
	"regexp"
	"strings"

	"github.com/abelbrown/pythia/internal/collect"
	"github.com/abelbrown/pythia/internal/features"
	"github.com/abelbrown/pythia/internal/lexicon"
)

// Quote length bounds in characters.
const (
	MinQuote          = 20
	MaxQuote          = 600
	MinBlockQuote     = 30
	MinNarrative      = 50
	MaxNarrative      = 250
	attributionWindow = 160
)

// Kind says how a quote was found.
type Kind string

const (
	KindAttributed Kind = "attributed" // "...," said Jane Doe
	KindBlock      Kind = "block"      // block-quoted paragraph
	KindNarrative  Kind = "narrative"  // first-person sentence in a founder/CEO piece
)

// Quote is one extracted statement.
type Quote struct {
	Text string
	Kind Kind
}

// Extractor finds quoted statements in article text.
type Extractor struct {
	lex         *lexicon.Lexicon
	quoted      *regexp.Regexp
	attribution *regexp.Regexp
}

const properName = `\p{Lu}[\p{L}'’.-]+(?:\s+\p{Lu}[\p{L}'’.-]+){0,3}`

// NewExtractor compiles the attribution patterns from lx.
func NewExtractor(lx *lexicon.Lexicon) *Extractor {
	if lx == nil {
		lx = lexicon.Default()
	}
	verbs := make([]string, 0, len(lx.AttributionVerbs))
	for _, v := range lx.AttributionVerbs {
		verbs = append(verbs, strings.ReplaceAll(regexp.QuoteMeta(v), " ", `\s+`))
	}
	verb := `(?i:` + strings.Join(verbs, "|") + `)`
	role := `(?i:(?:the\s+)?(?:company's\s+)?(?:` + strings.Join(lx.Roles, "|") + `))`
	speaker := `(?:` + properName + `|` + role + `)`

	return &Extractor{
		lex:    lx,
		quoted: regexp.MustCompile(`["“]([^"“”]+)["”]`),
		// Either `said Jane Doe` or `Jane Doe, CEO of Acme, said`.
		attribution: regexp.MustCompile(
			`^\s*,?\s*(?:` + verb + `\s+` + speaker +
				`|` + speaker + `(?:\s*,\s*[^,"“”]{1,80},)?\s+` + verb + `\b)`,
		),
	}
}

// Extract returns the quotes in an article body. headline enables narrative
// extraction when it concerns a founder or chief executive.
func (x *Extractor) Extract(headline, body string) []Quote {
	var out []Quote
	seen := map[string]bool{}
	add := func(text string, kind Kind) {
		text = strings.TrimSpace(text)
		if text == "" || seen[text] {
			return
		}
		seen[text] = true
		out = append(out, Quote{Text: text, Kind: kind})
	}

	for _, m := range x.quoted.FindAllStringSubmatchIndex(body, -1) {
		q := strings.TrimRight(strings.TrimSpace(body[m[2]:m[3]]), ",")
		if n := collect.Len(q); n < MinQuote || n > MaxQuote {
			continue
		}
		rest := body[m[1]:]
		if len(rest) > attributionWindow {
			rest = rest[:attributionWindow]
		}
		if x.attribution.MatchString(rest) {
			add(q, KindAttributed)
		}
	}

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, ">") {
			continue
		}
		q := strings.Trim(strings.TrimSpace(strings.TrimPrefix(line, ">")), `"“”`)
		if n := collect.Len(q); n < MinBlockQuote || n > MaxQuote {
			continue
		}
		if x.lex.PressFirstPerson.Match(q) {
			add(q, KindBlock)
		}
	}

	if !x.lex.FounderHeadline.Match(headline) {
		return out
	}
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), ">") {
			continue
		}
		for _, s := range features.Sentences(line) {
			if strings.ContainsAny(s, `"“”`) {
				continue
			}
			if n := collect.Len(s); n < MinNarrative || n > MaxNarrative {
				continue
			}
			if x.lex.PressFirstPerson.Match(s) {
				add(s, KindNarrative)
			}
		}
	}
	return out
}
