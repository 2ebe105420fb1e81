package resolve

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/skycast-tui/skycast/internal/domain"
)

// maxEditDistance bounds how far a recent-location name may drift from the
// typed query and still be suggested.
const maxEditDistance = 3

// FilterRecents orders previously used locations by similarity to the typed
// query. An empty query returns the list unchanged (most recent first).
// Prefix matches rank ahead of pure edit-distance matches; ties keep the
// original recency order.
func FilterRecents(recents []domain.Location, query string) []domain.Location {
	q := Normalize(query)
	if q == "" {
		return recents
	}

	type scored struct {
		loc      domain.Location
		prefix   bool
		distance int
		order    int
	}

	matches := make([]scored, 0, len(recents))
	for i, loc := range recents {
		name := Normalize(loc.Name)
		prefix := strings.HasPrefix(name, q)
		distance := levenshtein.ComputeDistance(name, q)
		if !prefix && distance > maxEditDistance {
			continue
		}
		matches = append(matches, scored{loc: loc, prefix: prefix, distance: distance, order: i})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.prefix != b.prefix {
			return a.prefix
		}
		if a.distance != b.distance {
			return a.distance < b.distance
		}
		return a.order < b.order
	})

	out := make([]domain.Location, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.loc)
	}
	return out
}
