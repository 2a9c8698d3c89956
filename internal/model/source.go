package model

// SourceType identifies where a snippet was collected from.
type SourceType string

const (
	SourceForum SourceType = "forum_post"
	SourceBlog  SourceType = "company_blog"
	SourcePress SourceType = "press_quote"
	SourceCode  SourceType = "code_discussion"
)

// AllSourceTypes lists every collectable source in collector order.
func AllSourceTypes() []SourceType {
	return []SourceType{SourceForum, SourceBlog, SourcePress, SourceCode}
}

// Valid reports whether s is one of the known source types.
func (s SourceType) Valid() bool {
	switch s {
	case SourceForum, SourceBlog, SourcePress, SourceCode:
		return true
	}
	return false
}

// ParseSourceType accepts the stored value or a short alias ("forum", "blog", "press", "code").
func ParseSourceType(s string) (SourceType, bool) {
	switch s {
	case "forum", string(SourceForum):
		return SourceForum, true
	case "blog", string(SourceBlog):
		return SourceBlog, true
	case "press", string(SourcePress):
		return SourcePress, true
	case "code", string(SourceCode):
		return SourceCode, true
	}
	return "", false
}

// Tier is a credibility bucket. Lower is more trustworthy.
type Tier int

const (
	TierEarned      Tier = 1 // earned/operational speech
	TierEditorial   Tier = 2 // company-owned editorial content
	TierPromotional Tier = 3 // syndicated, PR-facing
)

// Valid reports whether t is 1, 2 or 3.
func (t Tier) Valid() bool {
	return t >= TierEarned && t <= TierPromotional
}

// Context labels attached to snippets. Free-form; these are the ones the collectors emit.
const (
	ContextProduct     = "product"
	ContextTechnical   = "technical"
	ContextPress       = "press"
	ContextFounderBlog = "founder_blog"
	ContextBlog        = "blog"
	ContextFounder     = "founder"
	ContextCompany     = "company"
	ContextIssue       = "issue"
)
