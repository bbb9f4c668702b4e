package retrieval

import (
	"strings"

	"georag/models"
)

// textPhase resolves §4.8 stage 2: drop any candidate whose content does
// not case-insensitively contain every must-contain keyword, or that
// contains any exclude keyword. Matching is substring over
// whitespace-normalized content.
func textPhase(candidates []candidate, filter models.TextFilter) []candidate {
	if len(filter.MustContain) == 0 && len(filter.Exclude) == 0 {
		return candidates
	}

	out := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		if textMatches(c.chunk.Content, filter) {
			out = append(out, c)
		}
	}
	return out
}

func textMatches(content string, filter models.TextFilter) bool {
	normalized := strings.ToLower(normalizeWhitespace(content))
	for _, kw := range filter.MustContain {
		if !strings.Contains(normalized, strings.ToLower(kw)) {
			return false
		}
	}
	for _, kw := range filter.Exclude {
		if strings.Contains(normalized, strings.ToLower(kw)) {
			return false
		}
	}
	return true
}
