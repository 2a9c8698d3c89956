// Package features measures the linguistic signals pythia scores.
//
// Extract runs over the combined text of one entity and reports five groups:
// constraint language, mechanism density, reality contact, the vague
// adjective to action verb ratio, and unfalsifiable grandiose claims. Each
// group carries raw marker counts, a weighted count and a density per
// thousand words. Nothing here is a model; every signal is a lexicon count.
package features

import (
	"regexp"
	"strings"

	"github.com/abelbrown/pythia/internal/lexicon"
	"github.com/abelbrown/pythia/internal/model"
)

// Weights applied to raw counts.
const (
	ChainWeight      = 2.0 // a multi-step causal chain counts twice
	PostmortemWeight = 1.5

	// Hype-heavy: adjective/verb ratio above HypeRatio with at least HypeMinAdjectives.
	HypeRatio         = 0.6
	HypeMinAdjectives = 4
)

// Measure is the common shape of every group.
type Measure struct {
	Raw      int     // plain sum of marker hits
	Weighted float64 // Raw after group-specific weights
	Per1k    float64 // Weighted per 1,000 words
}

// Constraint is prioritization and commitment language.
type Constraint struct {
	Measure
	Negative  int
	Hard      int
	Exclusion int
	Tradeoff  int
	Framing   int

	HasNegative bool
	HasTradeoff bool
}

// Mechanism is causal and structural reasoning.
type Mechanism struct {
	Measure
	Causal int
	Named  int
	Chains int // sentences with two or more causal connectors

	HasChain bool
}

// Reality is contact with measurable outcomes.
type Reality struct {
	Measure
	Quantitative int
	Experiment   int
	Shipping     int
	Postmortem   int

	HasMetrics    bool
	HasPostmortem bool
}

// Adjectives compares marketing adjectives to concrete action verbs.
type Adjectives struct {
	Measure
	Adjectives int
	Verbs      int
	Ratio      float64 // Adjectives / max(Verbs, 1)

	HypeHeavy bool
}

// Unfalsifiable counts grandiose phrases in sentences with no horizon or metric.
type Unfalsifiable struct {
	Measure
	Grandiose int // all grandiose hits, grounded or not

	Any bool
}

// Features is the full extraction for one body of text.
type Features struct {
	Words     int
	Sentences int

	Constraint    Constraint
	Mechanism     Mechanism
	Reality       Reality
	Adjectives    Adjectives
	Unfalsifiable Unfalsifiable
}

// Extractor computes Features. Safe for concurrent use.
type Extractor struct {
	lex *lexicon.Lexicon
}

// New returns an Extractor over lx; nil uses the embedded lexicon.
func New(lx *lexicon.Lexicon) *Extractor {
	if lx == nil {
		lx = lexicon.Default()
	}
	return &Extractor{lex: lx}
}

// Combine joins snippet texts so no sentence spans two snippets.
func Combine(snippets []model.Snippet) string {
	parts := make([]string, 0, len(snippets))
	for _, s := range snippets {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

// Extract measures text.
func (x *Extractor) Extract(text string) Features {
	lx := x.lex
	sentences := Sentences(text)
	f := Features{
		Words:     len(strings.Fields(text)),
		Sentences: len(sentences),
	}

	c := &f.Constraint
	c.Negative = lx.NegativeCommitment.Count(text)
	c.Hard = lx.HardCommitment.Count(text)
	c.Exclusion = lx.ScopeExclusion.Count(text)
	c.Tradeoff = lx.Tradeoff.Count(text)
	c.Framing = lx.ConstraintFraming.Count(text)
	c.Raw = c.Negative + c.Hard + c.Exclusion + c.Tradeoff + c.Framing
	c.Weighted = float64(c.Raw)
	c.HasNegative = c.Negative > 0
	c.HasTradeoff = c.Tradeoff > 0

	m := &f.Mechanism
	m.Named = lx.NamedMechanism.Count(text)
	for _, s := range sentences {
		n := lx.CausalConnector.Count(s)
		m.Causal += n
		if n >= 2 {
			m.Chains++
		}
	}
	m.Raw = m.Causal + m.Named
	m.Weighted = float64(m.Raw) + ChainWeight*float64(m.Chains)
	m.HasChain = m.Chains > 0

	r := &f.Reality
	r.Quantitative = lx.Quantitative.Count(text)
	r.Experiment = lx.Experiment.Count(text)
	r.Shipping = lx.Shipping.Count(text)
	r.Postmortem = lx.Postmortem.Count(text)
	r.Raw = r.Quantitative + r.Experiment + r.Shipping + r.Postmortem
	r.Weighted = float64(r.Quantitative+r.Experiment+r.Shipping) + PostmortemWeight*float64(r.Postmortem)
	r.HasMetrics = r.Quantitative > 0
	r.HasPostmortem = r.Postmortem > 0

	a := &f.Adjectives
	a.Adjectives = lx.VagueAdjective.Count(text)
	a.Verbs = lx.ActionVerb.Count(text)
	verbs := a.Verbs
	if verbs < 1 {
		verbs = 1
	}
	a.Ratio = float64(a.Adjectives) / float64(verbs)
	a.Raw = a.Adjectives
	a.Weighted = float64(a.Adjectives)
	a.HypeHeavy = a.Ratio > HypeRatio && a.Adjectives >= HypeMinAdjectives

	u := &f.Unfalsifiable
	for _, s := range sentences {
		g := lx.Grandiose.Count(s)
		if g == 0 {
			continue
		}
		u.Grandiose += g
		if !lx.Horizon.Match(s) {
			u.Raw += g
		}
	}
	u.Weighted = float64(u.Raw)
	u.Any = u.Raw > 0

	for _, ms := range []*Measure{&c.Measure, &m.Measure, &r.Measure, &a.Measure, &u.Measure} {
		ms.Per1k = per1k(ms.Weighted, f.Words)
	}
	return f
}

// ExtractSnippets measures the combined text of snippets.
func (x *Extractor) ExtractSnippets(snippets []model.Snippet) Features {
	return x.Extract(Combine(snippets))
}

func per1k(count float64, words int) float64 {
	if words == 0 {
		return 0
	}
	return count * 1000 / float64(words)
}

// sentenceEnd splits on terminal punctuation followed by space or end of
// text, and on line breaks. Decimals such as "1.5" stay intact.
var sentenceEnd = regexp.MustCompile(`[.!?]+(?:\s+|$)|\n+`)

// Sentences splits text into trimmed, non-empty sentences.
func Sentences(text string) []string {
	var out []string
	for _, s := range sentenceEnd.Split(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
