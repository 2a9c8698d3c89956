package guard

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/abelbrown/pythia/internal/lexicon"
)

// NameClassifier decides whether an entity name can be searched for as-is.
// The default is word-list driven; a model-backed implementation can replace
// it without touching collectors.
type NameClassifier interface {
	// Investor reports names that look like funds or investment firms.
	Investor(name string) bool
	// Category reports names that are bare industry words ("AI", "fintech").
	Category(name string) bool
	// Ambiguous reports names that are common words or look like a person.
	Ambiguous(name string) bool
}

// LexiconNames is the default NameClassifier backed by the guard word lists.
type LexiconNames struct {
	lex *lexicon.Lexicon
}

// NewLexiconNames returns a classifier over lx. A nil lx uses the embedded default.
func NewLexiconNames(lx *lexicon.Lexicon) *LexiconNames {
	if lx == nil {
		lx = lexicon.Default()
	}
	return &LexiconNames{lex: lx}
}

func (n *LexiconNames) Investor(name string) bool {
	for _, tok := range Tokens(name) {
		if n.lex.InvestorWords.Has(tok) {
			return true
		}
	}
	return false
}

func (n *LexiconNames) Category(name string) bool {
	toks := Tokens(name)
	if len(toks) == 0 {
		return false
	}
	for _, tok := range toks {
		if !n.lex.CategoryWords.Has(tok) {
			return false
		}
	}
	return true
}

var personShape = regexp.MustCompile(`^\p{Lu}\p{Ll}+ \p{Lu}\p{Ll}+$`)

func (n *LexiconNames) Ambiguous(name string) bool {
	name = strings.Join(strings.Fields(name), " ")
	toks := Tokens(name)
	if len(toks) == 1 && n.lex.CommonWords.Has(toks[0]) {
		return true
	}
	if personShape.MatchString(name) && n.lex.FirstNames.Has(toks[0]) {
		return true
	}
	return false
}

// Tokens splits a name into lowercase alphanumeric words.
func Tokens(name string) []string {
	return strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// NameKey is the name squashed to lowercase letters and digits, the form
// compared against domain labels.
func NameKey(name string) string {
	return strings.Join(Tokens(name), "")
}
