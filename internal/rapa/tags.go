package rapa

import "strings"

// ExtractTags pulls #hashtags out of the content. The returned content has
// the hashtag words removed; tags are lower-cased and deduplicated in order
// of first appearance.
func ExtractTags(content string) (string, []string) {
	var (
		kept []string
		tags []string
		seen = make(map[string]struct{})
	)
	for _, word := range strings.Fields(content) {
		if strings.HasPrefix(word, "#") {
			tag := strings.ToLower(strings.TrimPrefix(word, "#"))
			if tag == "" {
				continue
			}
			if _, dup := seen[tag]; !dup {
				seen[tag] = struct{}{}
				tags = append(tags, tag)
			}
			continue
		}
		kept = append(kept, word)
	}
	return strings.Join(kept, " "), tags
}
