package tier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/abelbrown/pythia/internal/model"
)

func TestDefaults(t *testing.T) {
	tests := []struct {
		name   string
		source model.SourceType
		hints  Hints
		want   model.Tier
	}{
		{"forum founder", model.SourceForum, Hints{FounderLanguage: true}, model.TierEarned},
		{"forum third person", model.SourceForum, Hints{}, model.TierEditorial},
		{"code verified", model.SourceCode, Hints{VerifiedAuthor: true}, model.TierEarned},
		{"code unverified", model.SourceCode, Hints{}, model.TierEditorial},
		{"blog", model.SourceBlog, Hints{FounderLanguage: true}, model.TierEditorial},
		{"press", model.SourcePress, Hints{FounderLanguage: true}, model.TierPromotional},
		{"unknown", model.SourceType("tweet"), Hints{}, model.TierPromotional},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Default(tt.source, tt.hints))
		})
	}
}

func TestClassifyDowngradesHype(t *testing.T) {
	c := New(nil)

	hype := "We are thrilled to announce our world-class, transformative, cutting-edge platform."
	assert.Equal(t, model.TierPromotional, c.Classify(model.SourceBlog, model.ContextBlog, hype, Hints{}))

	grounded := "We are thrilled to announce a world-class release: we shipped the new API, " +
		"cut p99 latency by 40% and migrated the queue to Postgres."
	assert.Equal(t, model.TierEditorial, c.Classify(model.SourceBlog, model.ContextBlog, grounded, Hints{}))

	plain := "Notes from our migration to a new database."
	assert.Equal(t, model.TierEditorial, c.Classify(model.SourceBlog, model.ContextFounderBlog, plain, Hints{}))
}

func TestClassifyNeverUpgrades(t *testing.T) {
	c := New(nil)
	technical := "We shipped the API, measured latency and fixed the cache."
	assert.Equal(t, model.TierPromotional, c.Classify(model.SourcePress, model.ContextPress, technical, Hints{}))
}

func TestClassifyKeepsEarnedTier(t *testing.T) {
	c := New(nil)
	hype := "world-class transformative cutting-edge revolutionary"
	assert.Equal(t, model.TierEarned, c.Classify(model.SourceForum, model.ContextProduct, hype, Hints{FounderLanguage: true}))
}
