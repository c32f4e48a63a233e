package rapa

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xaenox/collect-bot/internal/models"
)

func TestClassifyDefaultsForUnmatchedInput(t *testing.T) {
	c := NewClassifier(DefaultAreaRules())

	for _, content := range []string{
		"",
		"   ",
		"an ordinary quiet evening",
		"thoughts on nothing in particular",
	} {
		result := c.Classify(content)
		assert.Equal(t, models.GTDIdea, result.GTDType, "content: %q", content)
		assert.Empty(t, result.AreaSlug, "content: %q", content)
		assert.Equal(t, models.ParaRaw, result.ParaType, "content: %q", content)
	}
}

func TestClassifyActionableWithArea(t *testing.T) {
	c := NewClassifier(DefaultAreaRules())

	result := c.Classify("Need to call mom about the weekend")
	assert.Equal(t, models.GTDTask, result.GTDType)
	assert.Equal(t, "family", result.AreaSlug)
	assert.Equal(t, models.ParaProject, result.ParaType)
}

func TestClassifyFirstMatchingAreaWins(t *testing.T) {
	c := NewClassifier(DefaultAreaRules())

	// "startup" (business) and "mom" (family) both match; business is
	// declared first.
	result := c.Classify("need to tell mom about the startup")
	assert.Equal(t, "business", result.AreaSlug)
	assert.Equal(t, models.ParaProject, result.ParaType)
}

func TestClassifyTaskWithoutAreaStaysRaw(t *testing.T) {
	c := NewClassifier(DefaultAreaRules())

	result := c.Classify("need to figure this out")
	assert.Equal(t, models.GTDTask, result.GTDType)
	assert.Empty(t, result.AreaSlug)
	assert.Equal(t, models.ParaRaw, result.ParaType)
}

func TestClassifyLinkBecomesResource(t *testing.T) {
	c := NewClassifier(DefaultAreaRules())

	result := c.Classify("an interesting essay https://example.org/essay")
	assert.Equal(t, models.GTDIdea, result.GTDType)
	assert.Equal(t, models.ParaResource, result.ParaType)
}

func TestClassifyIsCaseInsensitive(t *testing.T) {
	c := NewClassifier(DefaultAreaRules())

	result := c.Classify("NEED TO BUY a GYM membership")
	assert.Equal(t, models.GTDTask, result.GTDType)
	assert.Equal(t, "trainer", result.AreaSlug)
}

func TestClassifyNeverProducesReference(t *testing.T) {
	// "reference" is a declared GTD type the ruleset never emits; only
	// manual assignment can set it.
	c := NewClassifier(DefaultAreaRules())

	result := c.Classify("keep this as a reference for later")
	assert.NotEqual(t, models.GTDReference, result.GTDType)
}

func TestClassifyHashtagHitsAreaSlug(t *testing.T) {
	c := NewClassifier(DefaultAreaRules())

	result := c.Classify("need to sort the garage #family")
	assert.Equal(t, "family", result.AreaSlug)
	assert.Equal(t, models.ParaProject, result.ParaType)
}
