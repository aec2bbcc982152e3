// Package feedback captures free-text cancellation reasons and buckets
// them into churn categories for the dashboard.
package feedback

import (
	"strings"

	"github.com/retainly/retention-service/internal/domain"
)

// categoryKeywords maps each category to the phrases that select it.
// Categories are checked in a fixed order so a reason matching several
// lands deterministically in the first.
var categoryOrder = []string{
	domain.CategoryPricing,
	domain.CategoryCompetition,
	domain.CategoryTechnical,
	domain.CategorySupport,
	domain.CategoryFeatures,
	domain.CategoryUserExperience,
	domain.CategoryBusinessChanges,
}

var categoryKeywords = map[string][]string{
	domain.CategoryPricing:         {"price", "pricing", "expensive", "cost", "afford", "budget", "cheap"},
	domain.CategoryCompetition:     {"competitor", "alternative", "switched", "switching", "another tool", "other product"},
	domain.CategoryTechnical:       {"bug", "crash", "slow", "error", "broken", "downtime", "outage", "unreliable", "performance"},
	domain.CategorySupport:         {"support", "response", "unresponsive", "help", "ticket"},
	domain.CategoryFeatures:        {"feature", "missing", "lack", "limited", "integration", "api"},
	domain.CategoryUserExperience:  {"confusing", "complicated", "hard to use", "difficult", "ui", "ux", "interface", "learning curve"},
	domain.CategoryBusinessChanges: {"closing", "shut down", "pivot", "no longer need", "went out of business", "downsizing", "restructuring"},
}

// Categorize buckets a free-text cancellation reason. Reasons matching
// no category fall into Other.
func Categorize(reason string) string {
	lowered := strings.ToLower(reason)
	for _, category := range categoryOrder {
		for _, keyword := range categoryKeywords[category] {
			if strings.Contains(lowered, keyword) {
				return category
			}
		}
	}
	return domain.CategoryOther
}
