package history

import (
	"sort"
	"strings"

	"github.com/pders01/shotvault/internal/models"
)

// Query selects catalog items for display
type Query struct {
	// Search is matched case-insensitively against the ticket id and the
	// created_at string. Empty matches everything.
	Search string

	// Limit caps the result after sorting; <= 0 means DefaultLimit
	Limit int
}

// Apply filters items by q.Search, sorts them newest first and truncates
// to the limit. items is not modified.
func Apply(items []models.Screenshot, q Query) []models.Screenshot {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	term := strings.ToLower(q.Search)
	results := make([]models.Screenshot, 0, len(items))
	for _, it := range items {
		if term == "" || Matches(it, term) {
			results = append(results, it)
		}
	}

	newestFirst(results)

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// Matches reports whether item matches an already lower-cased search term.
// An absent ticket id never matches.
func Matches(item models.Screenshot, term string) bool {
	if item.TicketID != nil && strings.Contains(strings.ToLower(*item.TicketID), term) {
		return true
	}
	return strings.Contains(strings.ToLower(item.CreatedAt), term)
}

func newestFirst(items []models.Screenshot) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt > items[j].CreatedAt
	})
}

func oldestFirst(items []models.Screenshot) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt < items[j].CreatedAt
	})
}
