// Package lexicon loads the versioned pattern tables used across pythia.
//
// The tables live in lexicons.yaml, embedded into the binary and compiled once.
// Everything that classifies text (guard, tier, collectors, features) reads
// from a *Lexicon instead of carrying its own literals, so tuning can be
// tested without touching collection control flow.
package lexicon

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed lexicons.yaml
var defaultYAML []byte

// Set is a named, compiled group of case-insensitive patterns.
type Set struct {
	name     string
	patterns []*regexp.Regexp
}

// Name returns the table path the set was loaded from.
func (s *Set) Name() string { return s.name }

// Len returns the number of patterns in the set.
func (s *Set) Len() int { return len(s.patterns) }

// Count returns the total number of non-overlapping matches of every pattern.
// Overlapping patterns each count, so "we will not" is both a hard and a
// negative commitment.
func (s *Set) Count(text string) int {
	n := 0
	for _, re := range s.patterns {
		n += len(re.FindAllStringIndex(text, -1))
	}
	return n
}

// Match reports whether any pattern matches.
func (s *Set) Match(text string) bool {
	for _, re := range s.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// Words is a case-insensitive word list.
type Words map[string]struct{}

// Has reports whether w (any case) is in the list.
func (w Words) Has(word string) bool {
	_, ok := w[strings.ToLower(strings.TrimSpace(word))]
	return ok
}

// Lexicon is the compiled form of lexicons.yaml. Treat it as read-only.
type Lexicon struct {
	Version string

	// Constraint language.
	NegativeCommitment *Set
	HardCommitment     *Set
	ScopeExclusion     *Set
	Tradeoff           *Set
	ConstraintFraming  *Set

	// Mechanism density.
	CausalConnector *Set
	NamedMechanism  *Set

	// Reality contact.
	Quantitative *Set
	Experiment   *Set
	Shipping     *Set
	Postmortem   *Set

	VagueAdjective *Set
	ActionVerb     *Set
	Grandiose      *Set
	Horizon        *Set

	Promotional *Set
	Technical   *Set

	FounderBuilder    *Set
	FounderPossessive *Set
	FounderSelfID     *Set
	FounderBlog       *Set
	FounderKeywords   []string

	CompanyContext *Set

	BlockedHosts        []string
	InvestorWords       Words
	CategoryWords       Words
	CommonWords         Words
	FirstNames          Words
	TrustedAssociations Words

	AttributionVerbs []string
	Roles            []string
	FounderHeadline  *Set
	PressFirstPerson *Set

	FeedPaths     []string
	PostPathHints []string
}

type rawFile struct {
	Version  string `yaml:"version"`
	Features struct {
		Constraint struct {
			Negative  []string `yaml:"negative"`
			Hard      []string `yaml:"hard"`
			Exclusion []string `yaml:"exclusion"`
			Tradeoff  []string `yaml:"tradeoff"`
			Framing   []string `yaml:"framing"`
		} `yaml:"constraint"`
		Mechanism struct {
			Causal []string `yaml:"causal"`
			Named  []string `yaml:"named"`
		} `yaml:"mechanism"`
		Reality struct {
			Quantitative []string `yaml:"quantitative"`
			Experiment   []string `yaml:"experiment"`
			Shipping     []string `yaml:"shipping"`
			Postmortem   []string `yaml:"postmortem"`
		} `yaml:"reality"`
		Adjectives  []string `yaml:"adjectives"`
		ActionVerbs []string `yaml:"action_verbs"`
		Grandiose   []string `yaml:"grandiose"`
		Horizon     []string `yaml:"horizon"`
	} `yaml:"features"`
	Tier struct {
		Promotional []string `yaml:"promotional"`
		Technical   []string `yaml:"technical"`
	} `yaml:"tier"`
	Founder struct {
		Builder       []string `yaml:"builder"`
		Possessive    []string `yaml:"possessive"`
		SelfID        []string `yaml:"self_id"`
		Blog          []string `yaml:"blog"`
		QueryKeywords []string `yaml:"query_keywords"`
	} `yaml:"founder"`
	CompanyContext []string `yaml:"company_context"`
	Guard          struct {
		BlockedHosts        []string `yaml:"blocked_hosts"`
		InvestorWords       []string `yaml:"investor_words"`
		CategoryWords       []string `yaml:"category_words"`
		CommonWords         []string `yaml:"common_words"`
		FirstNames          []string `yaml:"first_names"`
		TrustedAssociations []string `yaml:"trusted_associations"`
	} `yaml:"guard"`
	Press struct {
		AttributionVerbs []string `yaml:"attribution_verbs"`
		Roles            []string `yaml:"roles"`
		FounderHeadline  []string `yaml:"founder_headline"`
		FirstPerson      []string `yaml:"first_person"`
	} `yaml:"press"`
	Blog struct {
		FeedPaths     []string `yaml:"feed_paths"`
		PostPathHints []string `yaml:"post_path_hints"`
	} `yaml:"blog"`
}

var (
	defaultOnce sync.Once
	defaultLex  *Lexicon
)

// Default returns the embedded lexicon, compiled on first use.
// It panics if the embedded tables are invalid, which a unit test guards.
func Default() *Lexicon {
	defaultOnce.Do(func() {
		lx, err := Load(defaultYAML)
		if err != nil {
			panic(fmt.Sprintf("lexicon: embedded tables: %v", err))
		}
		defaultLex = lx
	})
	return defaultLex
}

// Load parses and compiles a lexicon document.
func Load(data []byte) (*Lexicon, error) {
	var raw rawFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}
	if raw.Version == "" {
		return nil, fmt.Errorf("lexicon has no version")
	}

	c := compiler{}
	f := raw.Features
	lx := &Lexicon{
		Version: raw.Version,

		NegativeCommitment: c.set("features.constraint.negative", f.Constraint.Negative),
		HardCommitment:     c.set("features.constraint.hard", f.Constraint.Hard),
		ScopeExclusion:     c.set("features.constraint.exclusion", f.Constraint.Exclusion),
		Tradeoff:           c.set("features.constraint.tradeoff", f.Constraint.Tradeoff),
		ConstraintFraming:  c.set("features.constraint.framing", f.Constraint.Framing),

		CausalConnector: c.set("features.mechanism.causal", f.Mechanism.Causal),
		NamedMechanism:  c.set("features.mechanism.named", f.Mechanism.Named),

		Quantitative: c.set("features.reality.quantitative", f.Reality.Quantitative),
		Experiment:   c.set("features.reality.experiment", f.Reality.Experiment),
		Shipping:     c.set("features.reality.shipping", f.Reality.Shipping),
		Postmortem:   c.set("features.reality.postmortem", f.Reality.Postmortem),

		VagueAdjective: c.set("features.adjectives", f.Adjectives),
		ActionVerb:     c.set("features.action_verbs", f.ActionVerbs),
		Grandiose:      c.set("features.grandiose", f.Grandiose),
		Horizon:        c.set("features.horizon", f.Horizon),

		Promotional: c.set("tier.promotional", raw.Tier.Promotional),
		Technical:   c.set("tier.technical", raw.Tier.Technical),

		FounderBuilder:    c.set("founder.builder", raw.Founder.Builder),
		FounderPossessive: c.set("founder.possessive", raw.Founder.Possessive),
		FounderSelfID:     c.set("founder.self_id", raw.Founder.SelfID),
		FounderBlog:       c.set("founder.blog", raw.Founder.Blog),
		FounderKeywords:   raw.Founder.QueryKeywords,

		CompanyContext: c.set("company_context", raw.CompanyContext),

		BlockedHosts:        lowerAll(raw.Guard.BlockedHosts),
		InvestorWords:       words(raw.Guard.InvestorWords),
		CategoryWords:       words(raw.Guard.CategoryWords),
		CommonWords:         words(raw.Guard.CommonWords),
		FirstNames:          words(raw.Guard.FirstNames),
		TrustedAssociations: words(raw.Guard.TrustedAssociations),

		AttributionVerbs: raw.Press.AttributionVerbs,
		Roles:            raw.Press.Roles,
		FounderHeadline:  c.set("press.founder_headline", raw.Press.FounderHeadline),
		PressFirstPerson: c.set("press.first_person", raw.Press.FirstPerson),

		FeedPaths:     raw.Blog.FeedPaths,
		PostPathHints: raw.Blog.PostPathHints,
	}
	if c.err != nil {
		return nil, c.err
	}
	return lx, nil
}

// compiler records the first compile error so Load stays linear.
type compiler struct {
	err error
}

func (c *compiler) set(name string, patterns []string) *Set {
	s := &Set{name: name}
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			if c.err == nil {
				c.err = fmt.Errorf("compile %s %q: %w", name, p, err)
			}
			continue
		}
		s.patterns = append(s.patterns, re)
	}
	return s
}

func words(list []string) Words {
	w := make(Words, len(list))
	for _, s := range list {
		w[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	return w
}

func lowerAll(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		out = append(out, strings.ToLower(strings.TrimSpace(s)))
	}
	return out
}
