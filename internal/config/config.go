// Package config loads pythia's runtime settings.
//
// Settings come from the process environment, optionally seeded from a .env
// file in the working directory. Each command states which settings it needs
// and calls Validate before doing any work.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// Config is the resolved runtime configuration.
type Config struct {
	DBPath   string `env:"PYTHIA_DB_PATH" default:"~/.pythia/pythia.db"`
	EventLog string `env:"PYTHIA_EVENT_LOG"`
	LogLevel string `env:"PYTHIA_LOG_LEVEL" default:"info"`
	LogDir   string `env:"PYTHIA_LOG_DIR"`
	// Lexicon optionally replaces the embedded pattern tables.
	Lexicon string `env:"PYTHIA_LEXICON"`

	HTTPTimeout  time.Duration `env:"PYTHIA_HTTP_TIMEOUT" default:"15s"`
	RequestDelay time.Duration `env:"PYTHIA_REQUEST_DELAY" default:"1s"`
	UserAgent    string        `env:"PYTHIA_USER_AGENT" default:"pythia/0.3 (+https://github.com/abelbrown/pythia)"`

	ForumSearchURL string `env:"PYTHIA_FORUM_SEARCH_URL" default:"https://hn.algolia.com/api/v1"`
	CodeAPIURL     string `env:"PYTHIA_CODE_API_URL" default:"https://api.github.com"`
	GitHubToken    string `env:"GITHUB_TOKEN"`

	// Comma-separated feed URLs for ingest-news.
	NewsFeeds string `env:"PYTHIA_NEWS_FEEDS"`

	ForumTopN    int `env:"PYTHIA_FORUM_TOP_N" default:"10"`
	SitemapPages int `env:"PYTHIA_SITEMAP_PAGES" default:"10"`
	PressWindow  int `env:"PYTHIA_PRESS_WINDOW_DAYS" default:"365"`
}

// MissingError reports a setting a command needs but does not have.
type MissingError struct {
	Var    string
	Reason string
}

func (e *MissingError) Error() string {
	if e.Reason == "" {
		return e.Var + " is required"
	}
	return fmt.Sprintf("%s: %s", e.Var, e.Reason)
}

// Requirement is a per-command precondition checked by Validate.
type Requirement int

const (
	// RequireDatabase needs a resolvable database path.
	RequireDatabase Requirement = iota
	// RequireForum needs a usable forum search endpoint.
	RequireForum
	// RequireCode needs the code-hosting endpoint and a token.
	RequireCode
	// RequireNewsFeeds needs at least one news feed URL.
	RequireNewsFeeds
)

// Load reads .env (if present) and the environment into a Config.
func Load() (*Config, error) {
	// A missing .env is the normal case outside development.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	path, err := expandHome(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	cfg.DBPath = path

	if cfg.LogDir != "" {
		if cfg.LogDir, err = expandHome(cfg.LogDir); err != nil {
			return nil, err
		}
	}
	if cfg.EventLog != "" {
		if cfg.EventLog, err = expandHome(cfg.EventLog); err != nil {
			return nil, err
		}
	}
	if cfg.Lexicon != "" {
		if cfg.Lexicon, err = expandHome(cfg.Lexicon); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

// Validate checks the settings a command depends on. The first failure is
// returned; errors.As with *MissingError identifies missing values.
func Validate(cfg *Config, reqs ...Requirement) error {
	if cfg == nil {
		return errors.New("config not loaded")
	}
	if cfg.HTTPTimeout <= 0 {
		return &MissingError{Var: "PYTHIA_HTTP_TIMEOUT", Reason: "must be positive"}
	}
	if cfg.RequestDelay < 0 {
		return &MissingError{Var: "PYTHIA_REQUEST_DELAY", Reason: "must not be negative"}
	}

	for _, r := range reqs {
		switch r {
		case RequireDatabase:
			if strings.TrimSpace(cfg.DBPath) == "" {
				return &MissingError{Var: "PYTHIA_DB_PATH"}
			}
		case RequireForum:
			if !absoluteURL(cfg.ForumSearchURL) {
				return &MissingError{Var: "PYTHIA_FORUM_SEARCH_URL", Reason: "must be an absolute http(s) URL"}
			}
			if cfg.ForumTopN <= 0 {
				return &MissingError{Var: "PYTHIA_FORUM_TOP_N", Reason: "must be positive"}
			}
		case RequireCode:
			if !absoluteURL(cfg.CodeAPIURL) {
				return &MissingError{Var: "PYTHIA_CODE_API_URL", Reason: "must be an absolute http(s) URL"}
			}
			if strings.TrimSpace(cfg.GitHubToken) == "" {
				return &MissingError{Var: "GITHUB_TOKEN"}
			}
		case RequireNewsFeeds:
			feeds := cfg.Feeds()
			if len(feeds) == 0 {
				return &MissingError{Var: "PYTHIA_NEWS_FEEDS"}
			}
			for _, f := range feeds {
				if !absoluteURL(f) {
					return &MissingError{Var: "PYTHIA_NEWS_FEEDS", Reason: fmt.Sprintf("%q is not an absolute URL", f)}
				}
			}
		}
	}
	return nil
}

// Feeds splits NewsFeeds into trimmed, non-empty URLs.
func (c *Config) Feeds() []string {
	var out []string
	for _, f := range strings.Split(c.NewsFeeds, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func absoluteURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
