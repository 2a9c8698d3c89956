// Package guard decides whether an entity can be collected for at all.
//
// It rejects names that are not companies (funds, bare category words),
// refuses aggregator and publisher hosts offered as a company website, tries
// once to recover the company's own domain from such a page, and gates
// ambiguous names behind a verified domain plus per-candidate corroboration.
package guard

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/agnivade/levenshtein"

	"github.com/abelbrown/pythia/internal/fetch"
	"github.com/abelbrown/pythia/internal/lexicon"
	"github.com/abelbrown/pythia/internal/logging"
	"github.com/abelbrown/pythia/internal/model"
)

// Reason names why collection for an entity was skipped. Skips are expected
// outcomes, not errors.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonEmptyName        Reason = "empty-name"
	ReasonInvestor         Reason = "investor-entity"
	ReasonCategory         Reason = "category-word"
	ReasonAmbiguousName    Reason = "ambiguous-name"
	ReasonNonCompanyDomain Reason = "non-company-domain"
	ReasonNoDomain         Reason = "no-domain"

	// Discovery misses reported by collectors.
	ReasonNoResults  Reason = "no-results"
	ReasonNoFeed     Reason = "no-feed"
	ReasonNoRepo     Reason = "no-repo"
	ReasonNoArticles Reason = "no-articles"
)

// Verdict is the outcome of Validate.
type Verdict struct {
	Proceed bool
	Reason  Reason

	// NormalizedDomain is the company's own host, possibly inferred. Empty
	// when none is known; collectors that need one skip with ReasonNoDomain.
	NormalizedDomain string

	// Inferred is set when NormalizedDomain was recovered from a third-party page.
	Inferred bool

	// Ambiguous names may proceed only with a domain, and every candidate
	// must then pass Corroborated.
	Ambiguous bool
}

// Guard validates entities. Safe for concurrent use.
type Guard struct {
	lex    *lexicon.Lexicon
	names  NameClassifier
	getter fetch.Getter
}

// Option customizes a Guard.
type Option func(*Guard)

// WithNameClassifier replaces the word-list name classifier.
func WithNameClassifier(nc NameClassifier) Option {
	return func(g *Guard) { g.names = nc }
}

// WithLexicon replaces the embedded lexicon.
func WithLexicon(lx *lexicon.Lexicon) Option {
	return func(g *Guard) { g.lex = lx }
}

// New creates a Guard. getter is used only for one-shot domain inference;
// nil disables inference.
func New(getter fetch.Getter, opts ...Option) *Guard {
	g := &Guard{getter: getter}
	for _, opt := range opts {
		opt(g)
	}
	if g.lex == nil {
		g.lex = lexicon.Default()
	}
	if g.names == nil {
		g.names = NewLexiconNames(g.lex)
	}
	return g
}

// Validate decides whether e may be collected and which domain to use.
func (g *Guard) Validate(ctx context.Context, e model.Entity) Verdict {
	name := strings.TrimSpace(e.Name)
	if NameKey(name) == "" {
		return Verdict{Reason: ReasonEmptyName}
	}
	if g.names.Investor(name) {
		return Verdict{Reason: ReasonInvestor}
	}
	if g.names.Category(name) {
		return Verdict{Reason: ReasonCategory}
	}

	v := Verdict{Proceed: true, Ambiguous: g.names.Ambiguous(name)}

	host := NormalizeDomain(e.Domain)
	if host != "" && g.Blocked(host) {
		inferred := g.inferDomain(ctx, name, e.Domain)
		if inferred == "" {
			logging.Debug("guard: non-company domain", "entity", e.ID, "host", host)
			return Verdict{Reason: ReasonNonCompanyDomain}
		}
		logging.Info("guard: inferred company domain", "entity", e.ID, "from", host, "domain", inferred)
		host = inferred
		v.Inferred = true
	}
	v.NormalizedDomain = host

	if v.Ambiguous && host == "" {
		return Verdict{Reason: ReasonAmbiguousName, Ambiguous: true}
	}
	return v
}

// Blocked reports whether host is an aggregator, publisher or investor
// platform (or a subdomain of one).
func (g *Guard) Blocked(host string) bool {
	return hostBlocked(strings.ToLower(host), g.lex.BlockedHosts)
}

// Corroborated reports whether candidate text ties an ambiguous name to the
// company: a mention of its domain, or company-context vocabulary.
func (g *Guard) Corroborated(text, domain string) bool {
	if MentionsDomain(text, domain) {
		return true
	}
	return g.lex.CompanyContext.Match(text)
}

// Admit applies the ambiguity gate to one candidate. Unambiguous names
// always pass.
func (g *Guard) Admit(v Verdict, text string) bool {
	return !v.Ambiguous || g.Corroborated(text, v.NormalizedDomain)
}

// inferDomain fetches the third-party page once and picks the outbound link
// whose host best matches the entity name. Empty on any failure.
func (g *Guard) inferDomain(ctx context.Context, name, raw string) string {
	if g.getter == nil {
		return ""
	}
	pageURL := strings.TrimSpace(raw)
	if !strings.Contains(pageURL, "://") {
		pageURL = "https://" + pageURL
	}

	resp, err := g.getter.Get(ctx, pageURL, nil)
	if err != nil {
		logging.Warn("guard: inference fetch failed", "url", pageURL, "err", err)
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return ""
	}
	base, _ := url.Parse(resp.URL)

	var hrefs []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		hrefs = append(hrefs, href)
	})
	return g.bestLink(name, base, hrefs)
}

// bestLink scores candidate hrefs against the name key and returns the
// closest acceptable host.
func (g *Guard) bestLink(name string, base *url.URL, hrefs []string) string {
	key := NameKey(name)
	if len(key) < 2 {
		return ""
	}

	best, bestDist := "", -1
	for _, href := range hrefs {
		u, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			continue
		}
		if base != nil {
			u = base.ResolveReference(u)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			continue
		}
		host := NormalizeDomain(u.Host)
		if host == "" || g.Blocked(host) {
			continue
		}
		if base != nil && NormalizeDomain(base.Host) == host {
			continue
		}

		d, ok := labelDistance(key, Label(host))
		if !ok {
			continue
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = host, d
		}
	}
	return best
}

// labelDistance compares a domain label to the name key. Prefixed or
// suffixed labels ("getacme", "acmehq") count by the extra characters.
func labelDistance(key, label string) (int, bool) {
	if label == key {
		return 0, true
	}
	if len(key) >= 3 && strings.Contains(label, key) {
		extra := len(label) - len(key)
		return extra, extra <= 5
	}
	d := levenshtein.ComputeDistance(key, label)
	limit := len(key) / 4
	if limit < 1 {
		limit = 1
	}
	return d, d <= limit
}
