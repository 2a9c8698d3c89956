// Package code collects founder comments from a company's public issue
// tracker (the GitHub REST API).
//
// Only comments whose author is the repository owner, or holds an owner,
// member or collaborator association, and who writes in the first person
// as a builder are kept. Authorship is platform-verified, so these land in
// tier 1.
package code

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/abelbrown/pythia/internal/collect"
	"github.com/abelbrown/pythia/internal/cursor"
	"github.com/abelbrown/pythia/internal/fetch"
	"github.com/abelbrown/pythia/internal/guard"
	"github.com/abelbrown/pythia/internal/logging"
	"github.com/abelbrown/pythia/internal/model"
	"github.com/abelbrown/pythia/internal/tier"
)

const (
	DefaultAPIURL = "https://api.github.com"

	MinLength        = 40
	MaxLength        = 4000
	DefaultMaxIssues = 30
	commentsPerPage  = 100
)

// Options configures the collector.
type Options struct {
	APIURL    string
	Token     string
	MaxIssues int
}

// Collector is the code-discussion source.
type Collector struct {
	deps   collect.Deps
	opts   Options
	header http.Header
}

// New creates a code-discussion collector.
func New(deps collect.Deps, opts Options) *Collector {
	if opts.APIURL == "" {
		opts.APIURL = DefaultAPIURL
	}
	opts.APIURL = strings.TrimRight(opts.APIURL, "/")
	if opts.MaxIssues <= 0 {
		opts.MaxIssues = DefaultMaxIssues
	}
	h := http.Header{}
	h.Set("Accept", "application/vnd.github+json")
	h.Set("X-GitHub-Api-Version", "2022-11-28")
	if opts.Token != "" {
		h.Set("Authorization", "Bearer "+opts.Token)
	}
	return &Collector{deps: deps.WithDefaults(), opts: opts, header: h}
}

// Source implements collect.Collector.
func (c *Collector) Source() model.SourceType { return model.SourceCode }

type user struct {
	Login string `json:"login"`
}

type issue struct {
	Number            int       `json:"number"`
	Title             string    `json:"title"`
	Body              string    `json:"body"`
	HTMLURL           string    `json:"html_url"`
	User              user      `json:"user"`
	AuthorAssociation string    `json:"author_association"`
	Comments          int       `json:"comments"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type comment struct {
	ID                int64     `json:"id"`
	Body              string    `json:"body"`
	HTMLURL           string    `json:"html_url"`
	User              user      `json:"user"`
	AuthorAssociation string    `json:"author_association"`
	CreatedAt         time.Time `json:"created_at"`
}

// ParseRepo splits "owner/name", also accepting a github.com URL.
func ParseRepo(raw string) (owner, name string, ok bool) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimSuffix(raw, ".git")
	if i := strings.Index(raw, "github.com/"); i >= 0 {
		raw = raw[i+len("github.com/"):]
	}
	parts := strings.Split(strings.Trim(raw, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// Collect implements collect.Collector. The cursor tracks the newest stored
// comment; the API is asked only for threads updated since then.
func (c *Collector) Collect(ctx context.Context, t collect.Target, mark cursor.Mark) (collect.Result, error) {
	owner, repo, ok := ParseRepo(t.Entity.Repo)
	if !ok {
		return collect.Skip(guard.ReasonNoRepo, mark), nil
	}
	res := collect.Result{NewCursor: mark}

	v := url.Values{}
	v.Set("state", "all")
	v.Set("sort", "updated")
	v.Set("direction", "desc")
	v.Set("per_page", strconv.Itoa(c.opts.MaxIssues))
	if !mark.IsZero() {
		v.Set("since", mark.After.Format(time.RFC3339))
	}
	issuesURL := fmt.Sprintf("%s/repos/%s/%s/issues?%s", c.opts.APIURL, url.PathEscape(owner), url.PathEscape(repo), v.Encode())

	var issues []issue
	if err := fetch.GetJSON(ctx, c.deps.Getter, issuesURL, c.header, &issues); err != nil {
		if fetch.IsNotFound(err) {
			return collect.Skip(guard.ReasonNoRepo, mark), nil
		}
		c.deps.FetchFailed(&res, model.SourceCode, t.Entity.ID, issuesURL, err)
		return res, nil
	}
	logging.Debug("code: issues", "entity", t.Entity.ID, "repo", owner+"/"+repo, "count", len(issues))

	for _, is := range issues {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		c.consider(t, owner, post{
			id:          "issue:" + strconv.Itoa(is.Number),
			body:        is.Body,
			url:         is.HTMLURL,
			login:       is.User.Login,
			association: is.AuthorAssociation,
			created:     is.CreatedAt,
		}, mark, &res)

		if is.Comments == 0 {
			continue
		}
		cv := url.Values{}
		cv.Set("per_page", strconv.Itoa(commentsPerPage))
		if !mark.IsZero() {
			cv.Set("since", mark.After.Format(time.RFC3339))
		}
		commentsURL := fmt.Sprintf("%s/repos/%s/%s/issues/%d/comments?%s",
			c.opts.APIURL, url.PathEscape(owner), url.PathEscape(repo), is.Number, cv.Encode())

		var comments []comment
		if err := fetch.GetJSON(ctx, c.deps.Getter, commentsURL, c.header, &comments); err != nil {
			c.deps.FetchFailed(&res, model.SourceCode, t.Entity.ID, commentsURL, err)
			continue
		}
		for _, cm := range comments {
			c.consider(t, owner, post{
				id:          "comment:" + strconv.FormatInt(cm.ID, 10),
				body:        cm.Body,
				url:         cm.HTMLURL,
				login:       cm.User.Login,
				association: cm.AuthorAssociation,
				created:     cm.CreatedAt,
			}, mark, &res)
		}
	}
	return res, nil
}

// post is an issue body or comment, normalized.
type post struct {
	id          string
	body        string
	url         string
	login       string
	association string
	created     time.Time
}

func (c *Collector) consider(t collect.Target, owner string, p post, mark cursor.Mark, res *collect.Result) {
	if !mark.Admits(p.created) {
		return
	}
	if !strings.EqualFold(p.login, owner) && !c.deps.Lexicon.TrustedAssociations.Has(p.association) {
		return
	}
	text := OwnWords(p.body)
	if n := collect.Len(text); n < MinLength || n > MaxLength {
		return
	}
	if !collect.FirstPerson(c.deps.Founders, text) {
		return
	}
	res.Extracted++

	created := p.created.UTC()
	sn := model.Snippet{
		EntityID:     t.Entity.ID,
		Text:         text,
		SourceURL:    p.url,
		SourceType:   model.SourceCode,
		Tier:         c.deps.Tiers.Classify(model.SourceCode, model.ContextIssue, text, tier.Hints{VerifiedAuthor: true}),
		Context:      model.ContextIssue,
		Published:    &created,
		ExternalID:   p.id,
		ExternalTime: &created,
	}
	if c.deps.Save(res, sn) {
		res.NewCursor = res.NewCursor.Advance(created)
	}
}

var (
	fencedCode = regexp.MustCompile("(?s)```.*?```")
	inlineCode = regexp.MustCompile("`[^`\n]*`")
)

// OwnWords strips what the author did not write in prose: fenced and inline
// code, and quoted replies.
func OwnWords(markdown string) string {
	s := fencedCode.ReplaceAllString(markdown, " ")
	s = inlineCode.ReplaceAllString(s, " ")
	var kept []string
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), ">") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(strings.Fields(strings.Join(kept, "\n")), " ")
}
