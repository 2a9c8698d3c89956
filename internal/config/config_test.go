package config

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, time.Second, cfg.RequestDelay)
	assert.Equal(t, "https://hn.algolia.com/api/v1", cfg.ForumSearchURL)
	assert.Equal(t, "https://api.github.com", cfg.CodeAPIURL)
	assert.Equal(t, 10, cfg.ForumTopN)
	assert.Equal(t, 10, cfg.SitemapPages)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, filepath.IsAbs(cfg.DBPath), cfg.DBPath)
	assert.Equal(t, "pythia.db", filepath.Base(cfg.DBPath))
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PYTHIA_DB_PATH", "/tmp/p.db")
	t.Setenv("PYTHIA_HTTP_TIMEOUT", "3s")
	t.Setenv("PYTHIA_FORUM_TOP_N", "4")
	t.Setenv("PYTHIA_NEWS_FEEDS", " https://a.example/rss , ,https://b.example/feed")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/p.db", cfg.DBPath)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 4, cfg.ForumTopN)
	assert.Equal(t, []string{"https://a.example/rss", "https://b.example/feed"}, cfg.Feeds())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			DBPath:         "/tmp/p.db",
			HTTPTimeout:    time.Second,
			ForumSearchURL: "https://hn.algolia.com/api/v1",
			CodeAPIURL:     "https://api.github.com",
			GitHubToken:    "tok",
			ForumTopN:      10,
			NewsFeeds:      "https://a.example/rss",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		reqs    []Requirement
		wantVar string
	}{
		{"all good", func(*Config) {}, []Requirement{RequireDatabase, RequireForum, RequireCode, RequireNewsFeeds}, ""},
		{"code needs token", func(c *Config) { c.GitHubToken = "" }, []Requirement{RequireCode}, "GITHUB_TOKEN"},
		{"token not needed without code", func(c *Config) { c.GitHubToken = "" }, []Requirement{RequireForum}, ""},
		{"relative forum url", func(c *Config) { c.ForumSearchURL = "hn/api" }, []Requirement{RequireForum}, "PYTHIA_FORUM_SEARCH_URL"},
		{"empty db path", func(c *Config) { c.DBPath = " " }, []Requirement{RequireDatabase}, "PYTHIA_DB_PATH"},
		{"bad feed", func(c *Config) { c.NewsFeeds = "feed.xml" }, []Requirement{RequireNewsFeeds}, "PYTHIA_NEWS_FEEDS"},
		{"zero timeout", func(c *Config) { c.HTTPTimeout = 0 }, nil, "PYTHIA_HTTP_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := Validate(cfg, tt.reqs...)
			if tt.wantVar == "" {
				require.NoError(t, err)
				return
			}
			var missing *MissingError
			require.True(t, errors.As(err, &missing), "got %v", err)
			assert.Equal(t, tt.wantVar, missing.Var)
		})
	}
}

func TestMissingErrorMessage(t *testing.T) {
	assert.Equal(t, "GITHUB_TOKEN is required", (&MissingError{Var: "GITHUB_TOKEN"}).Error())
	assert.Equal(t, "X: bad", (&MissingError{Var: "X", Reason: "bad"}).Error())
}
