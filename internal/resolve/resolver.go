// Package resolve turns raw geocode results into a single location or a
// bounded disambiguation list. Ranking is deterministic: identical inputs
// always produce identical ordering and the same ambiguity verdict.
package resolve

import (
	"sort"
	"strings"

	"github.com/skycast-tui/skycast/internal/domain"
)

// MaxCandidates caps the disambiguation list shown to the user.
const MaxCandidates = 5

// ambiguityRatio is the population ratio under which two equally-scored
// candidates are considered indistinguishable.
const ambiguityRatio = 1.10

// Candidate is a geocode result plus the ranking signals derived from the
// query. Candidates are ephemeral; they exist only during resolution.
type Candidate struct {
	Location       domain.Location
	ExactNameMatch bool
	CountryMatch   bool
	ProviderOrder  int
}

// Outcome tags the resolution result.
type Outcome int

const (
	// Selected means exactly one plausible match; Location is set.
	Selected Outcome = iota
	// NeedsChoice means the ranked set is ambiguous; Candidates is set.
	NeedsChoice
	// NotFound means the provider returned nothing usable; Query is set.
	NotFound
)

// Resolution is the resolver's verdict for one query.
type Resolution struct {
	Outcome    Outcome
	Location   domain.Location
	Candidates []domain.Location
	Query      string
}

// Rank scores and orders candidates for a query. Order of precedence:
// exact case-insensitive name match, country-hint match, population
// descending, then stable provider order as the final tie-break.
func Rank(results []domain.Location, query, countryHint string) []Candidate {
	normQuery := Normalize(query)

	scored := make([]Candidate, 0, len(results))
	for i, loc := range results {
		scored = append(scored, Candidate{
			Location:       loc,
			ExactNameMatch: Normalize(loc.Name) == normQuery,
			CountryMatch:   countryHint != "" && strings.EqualFold(loc.CountryISO, countryHint),
			ProviderOrder:  i,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.ExactNameMatch != b.ExactNameMatch {
			return a.ExactNameMatch
		}
		if a.CountryMatch != b.CountryMatch {
			return a.CountryMatch
		}
		if a.Location.Population != b.Location.Population {
			return a.Location.Population > b.Location.Population
		}
		return a.ProviderOrder < b.ProviderOrder
	})
	return scored
}

// Resolve ranks the provider results and decides between auto-selecting the
// top candidate and yielding a disambiguation list.
func Resolve(results []domain.Location, query, countryHint string) Resolution {
	if len(results) == 0 {
		return Resolution{Outcome: NotFound, Query: query}
	}

	ranked := Rank(results, query, countryHint)
	top := ranked[0]

	if len(ranked) == 1 || !ambiguous(top, ranked[1]) {
		return Resolution{Outcome: Selected, Location: top.Location}
	}

	n := min(len(ranked), MaxCandidates)
	options := make([]domain.Location, 0, n)
	for _, c := range ranked[:n] {
		options = append(options, c.Location)
	}
	return Resolution{Outcome: NeedsChoice, Candidates: options, Query: query}
}

// ambiguous reports whether the runner-up is close enough to the winner
// that auto-selecting would guess. The signals must tie exactly and the
// populations must be within ambiguityRatio of each other.
func ambiguous(top, second Candidate) bool {
	if top.ExactNameMatch != second.ExactNameMatch {
		return false
	}
	if top.CountryMatch != second.CountryMatch {
		return false
	}
	p1 := float64(max(top.Location.Population, 1))
	p2 := float64(max(second.Location.Population, 1))
	ratio := p1 / p2
	if ratio < 1 {
		ratio = 1 / ratio
	}
	return ratio <= ambiguityRatio
}

// Normalize folds case Unicode-aware, maps separators to spaces, and
// collapses whitespace so "Sao-Paulo" and "sao paulo" compare equal.
func Normalize(s string) string {
	folded := domain.FoldLower(strings.TrimSpace(s))
	folded = strings.NewReplacer("-", " ", "_", " ").Replace(folded)
	return strings.Join(strings.Fields(folded), " ")
}
