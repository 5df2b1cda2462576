package session

import (
	"strings"

	"github.com/spexxxzzz/redditleads-sub002/internal/core/domain"
)

// Post types derived from lead content, checked in priority order.
const (
	PostTypeRequest        = "request"
	PostTypeRecommendation = "recommendation"
	PostTypeReview         = "review"
	PostTypeQuestion       = "question"
	PostTypeDiscussion     = "discussion"
)

// PostType classifies a lead by its title. The first matching category wins;
// anything unmatched is a generic discussion.
func PostType(lead domain.Lead) string {
	title := strings.ToLower(lead.Title)

	switch {
	case containsAny(title, "looking for", "need", "want"):
		return PostTypeRequest
	case containsAny(title, "recommend", "suggest", "advice"):
		return PostTypeRecommendation
	case containsAny(title, "review", "experience", "thoughts"):
		return PostTypeReview
	case containsAny(title, "question", "?"):
		return PostTypeQuestion
	default:
		return PostTypeDiscussion
	}
}

func containsAny(text string, terms ...string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}

	return false
}
