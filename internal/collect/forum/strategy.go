package forum

import (
	"strings"

	"github.com/abelbrown/pythia/internal/collect"
)

// Search tags understood by the service.
const (
	TagComment = "comment"
	TagStory   = "story"
)

// Query is one request against the search service.
type Query struct {
	Text string
	Tags string
}

// When gates a cascade step on what earlier steps kept.
type When int

const (
	Always  When = iota
	IfThin       // fewer than TopN comments kept so far
	IfEmpty      // no comment kept so far
)

// Strategy builds the queries for one step of the cascade. An empty result
// means the step does not apply to the target.
type Strategy struct {
	Name  string
	When  When
	Build func(t collect.Target) []Query
}

// DefaultStrategies is the cascade: quoted name, name with domain and domain
// alone always run; story threads only when results are thin; the name with
// founder keywords only when nothing was kept.
func DefaultStrategies(keywords []string) []Strategy {
	return []Strategy{
		{
			Name: "name",
			Build: func(t collect.Target) []Query {
				return []Query{{Text: quoted(t.Entity.Name), Tags: TagComment}}
			},
		},
		{
			Name: "name+domain",
			Build: func(t collect.Target) []Query {
				if t.Domain() == "" {
					return nil
				}
				return []Query{{Text: quoted(t.Entity.Name) + " " + t.Domain(), Tags: TagComment}}
			},
		},
		{
			Name: "domain",
			Build: func(t collect.Target) []Query {
				if t.Domain() == "" {
					return nil
				}
				return []Query{{Text: t.Domain(), Tags: TagComment}}
			},
		},
		{
			Name: "stories",
			When: IfThin,
			Build: func(t collect.Target) []Query {
				return []Query{{Text: quoted(t.Entity.Name), Tags: TagStory}}
			},
		},
		{
			Name: "founder-keywords",
			When: IfEmpty,
			Build: func(t collect.Target) []Query {
				qs := make([]Query, 0, len(keywords))
				for _, kw := range keywords {
					qs = append(qs, Query{Text: quoted(t.Entity.Name) + " " + kw, Tags: TagComment})
				}
				return qs
			},
		},
	}
}

func quoted(name string) string {
	return `"` + strings.Trim(strings.TrimSpace(name), `"`) + `"`
}
