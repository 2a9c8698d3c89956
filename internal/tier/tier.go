// Package tier assigns a credibility tier to a candidate snippet.
//
// The source type supplies a default; editorial content whose promotional
// language swamps its operational vocabulary is demoted to promotional.
package tier

import (
	"github.com/abelbrown/pythia/internal/lexicon"
	"github.com/abelbrown/pythia/internal/model"
)

// Hints carries what a collector knows about authorship.
type Hints struct {
	// VerifiedAuthor is set when the platform vouches for the author's tie to
	// the company (repository owner, member or collaborator).
	VerifiedAuthor bool
	// FounderLanguage is set when the text uses first-person builder phrasing.
	FounderLanguage bool
}

// Classifier maps candidates to tiers using a lexicon.
type Classifier struct {
	lex *lexicon.Lexicon
}

// New returns a Classifier over lx; nil uses the embedded lexicon.
func New(lx *lexicon.Lexicon) *Classifier {
	if lx == nil {
		lx = lexicon.Default()
	}
	return &Classifier{lex: lx}
}

// Default returns the default tier for a source before content is considered.
func Default(source model.SourceType, h Hints) model.Tier {
	switch source {
	case model.SourceForum:
		if h.FounderLanguage {
			return model.TierEarned
		}
		return model.TierEditorial
	case model.SourceCode:
		if h.VerifiedAuthor {
			return model.TierEarned
		}
		return model.TierEditorial
	case model.SourceBlog:
		return model.TierEditorial
	default:
		return model.TierPromotional
	}
}

// Classify returns the tier for text from source. The context label does not
// move the tier; founder phrasing on a blog is recorded in the label only.
func (c *Classifier) Classify(source model.SourceType, context, text string, h Hints) model.Tier {
	t := Default(source, h)
	if t == model.TierEditorial && c.Promotional(text) {
		return model.TierPromotional
	}
	return t
}

// Promotional reports whether promotional markers substantially outnumber
// hard operational markers (shipping, metrics, experiments, technical terms).
func (c *Classifier) Promotional(text string) bool {
	promo := c.lex.Promotional.Count(text)
	if promo < 2 {
		return false
	}
	return promo > 2*c.Hardness(text)
}

// Hardness counts operational and technical markers in text.
func (c *Classifier) Hardness(text string) int {
	return c.lex.Shipping.Count(text) +
		c.lex.Quantitative.Count(text) +
		c.lex.Experiment.Count(text) +
		c.lex.Technical.Count(text)
}
