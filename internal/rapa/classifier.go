package rapa

import (
	"strings"

	"github.com/xaenox/collect-bot/internal/models"
)

// AreaRule binds an area slug to the substrings that file a note under it.
// Rule order is significant: the first rule with any match wins.
type AreaRule struct {
	Slug     string
	Keywords []string
}

// actionVerbs mark a note as actionable (gtd_type "task").
var actionVerbs = []string{
	"need to", "must", "have to", "remember to",
	"call", "write", "send", "buy", "check", "fix",
}

// referenceMarkers push a non-task note into the Resource bucket.
var referenceMarkers = []string{"http", "link"}

// DefaultAreaRules mirrors the default area declarations in storage, in the
// same order. Each list contains its own slug so hashtag mentions like
// "#family" match before the tag is stripped from the content.
func DefaultAreaRules() []AreaRule {
	return []AreaRule{
		{"business", []string{"business", "startup", "partner", "contract", "investor", "product"}},
		{"family", []string{"family", "kids", "parents", "mom", "dad", "home"}},
		{"wcs", []string{"wcs", "dance", "dancing", "swing", "competition"}},
		{"ironman", []string{"ironman", "triathlon", "swim", "bike", "marathon"}},
		{"coach", []string{"coach", "reflection", "habit", "meditation", "diary", "journal", "growth"}},
		{"doctor", []string{"doctor", "health", "clinic", "pain", "treatment", "pills", "sleep", "tired"}},
		{"trainer", []string{"trainer", "workout", "gym", "exercise", "fitness", "crossfit"}},
		{"ceo", []string{"ceo", "project", "task", "deadline", "sprint", "roadmap"}},
	}
}

// Classifier is the rule-based triage engine: case-insensitive substring
// matching, no scoring, deterministic.
type Classifier struct {
	rules []AreaRule
}

func NewClassifier(rules []AreaRule) *Classifier {
	return &Classifier{rules: rules}
}

// Classify maps note content to a proposed GTD type, area slug and PARA
// bucket. It never fails; unmatched input yields {idea, "", Raw}.
func (c *Classifier) Classify(content string) models.Classification {
	text := strings.ToLower(strings.TrimSpace(content))
	result := models.Classification{
		GTDType:  models.GTDIdea,
		ParaType: models.ParaRaw,
	}

	for _, verb := range actionVerbs {
		if strings.Contains(text, verb) {
			result.GTDType = models.GTDTask
			break
		}
	}

	for _, rule := range c.rules {
		if containsAny(text, rule.Keywords) {
			result.AreaSlug = rule.Slug
			break
		}
	}

	switch {
	case result.GTDType == models.GTDTask && result.AreaSlug != "":
		result.ParaType = models.ParaProject
	case result.GTDType == models.GTDReference || containsAny(text, referenceMarkers):
		result.ParaType = models.ParaResource
	}

	return result
}

func containsAny(text string, substrings []string) bool {
	for _, s := range substrings {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}
