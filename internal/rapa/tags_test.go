package rapa

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTags(t *testing.T) {
	content, tags := ExtractTags("Need to call mom #family #Calls")
	assert.Equal(t, "Need to call mom", content)
	assert.Equal(t, []string{"family", "calls"}, tags)
}

func TestExtractTagsNoTags(t *testing.T) {
	content, tags := ExtractTags("just a plain note")
	assert.Equal(t, "just a plain note", content)
	assert.Empty(t, tags)
}

func TestExtractTagsDeduplicates(t *testing.T) {
	content, tags := ExtractTags("#gym leg day #gym")
	assert.Equal(t, "leg day", content)
	assert.Equal(t, []string{"gym"}, tags)
}

func TestExtractTagsIgnoresBareHash(t *testing.T) {
	content, tags := ExtractTags("weird # note")
	assert.Equal(t, "weird note", content)
	assert.Empty(t, tags)
}
