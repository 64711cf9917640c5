// internal/service/discovery/filter.go

package discovery

import (
	"strings"

	"collabmap/internal/domain/creator"
)

// Apply runs the discovery predicate chain over the candidate set and
// returns the creators visible in both the list and the map. Predicates
// AND together in order: self-exclusion, niche OR-set, location substring,
// follower bracket, then free-text search across name, niche and location.
// Output preserves input order; inputs are never mutated.
func Apply(creators []creator.Summary, filters creator.ExploreFilters, excludeID, searchText string) []creator.Summary {
	location := strings.ToLower(strings.TrimSpace(filters.Location))
	search := strings.ToLower(strings.TrimSpace(searchText))

	result := make([]creator.Summary, 0, len(creators))

	for _, c := range creators {
		if excludeID != "" && c.ID == excludeID {
			continue
		}

		if !matchesNiche(c.Niche, filters.Niches) {
			continue
		}

		if location != "" && !strings.Contains(strings.ToLower(c.Location), location) {
			continue
		}

		if !filters.Followers.Contains(c.FollowerCount) {
			continue
		}

		if search != "" && !matchesSearch(c, search) {
			continue
		}

		result = append(result, c)
	}

	return result
}

// matchesNiche passes when the set is empty or the creator's niche is a
// member of it. Matching is an exact string comparison.
func matchesNiche(niche string, niches []string) bool {
	if len(niches) == 0 {
		return true
	}

	for _, n := range niches {
		if niche == n {
			return true
		}
	}

	return false
}

// matchesSearch passes when the lowercased search text appears in the
// creator's name, niche or location label.
func matchesSearch(c creator.Summary, search string) bool {
	return strings.Contains(strings.ToLower(c.Name), search) ||
		strings.Contains(strings.ToLower(c.Niche), search) ||
		strings.Contains(strings.ToLower(c.Location), search)
}
