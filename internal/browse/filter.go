package browse

import (
	"strings"

	"github.com/rulehub/rulehub-backend/internal/domain"
)

// FilterLocal returns the items whose title, description or content contains
// term, case-insensitively, in their original order. An empty term returns
// a copy of items unchanged.
func FilterLocal(items []domain.RuleResponse, term string) []domain.RuleResponse {
	out := make([]domain.RuleResponse, 0, len(items))
	if term == "" {
		return append(out, items...)
	}

	needle := strings.ToLower(term)
	for _, it := range items {
		if matches(it, needle) {
			out = append(out, it)
		}
	}
	return out
}

func matches(it domain.RuleResponse, needle string) bool {
	return strings.Contains(strings.ToLower(it.Title), needle) ||
		strings.Contains(strings.ToLower(it.Description), needle) ||
		strings.Contains(strings.ToLower(it.Content), needle)
}
