// Package ranking orders course instructors by the club's seniority
// hierarchy. The comparator is pure and deterministic: given the same member
// set it always produces the same sequence, regardless of input order.
package ranking

import (
	"sort"

	"github.com/azs-pg/ilawa-courses-api/internal/models"
)

// DefaultCertificationOrder lists instructor certifications from most to
// least senior. Anything not on the list counts below the last entry.
var DefaultCertificationOrder = []string{
	"Instructor Lecturer of the Polish Sailing Association",
	"PZŻ Sailing Instructor",
	"PZŻ Sailing Teacher (formerly Junior Sailing Instructor of PZŻ)",
}

// DefaultSailingRankOrder lists sailing ranks from most to least senior.
// Unrecognized ranks fall into the lowest tier.
var DefaultSailingRankOrder = []string{
	"Yacht Captain",
	"Yacht Coastal Skipper",
	"Yacht Sailor",
}

// Engine ranks instructors by certification, home-location experience,
// sailing rank and away experience, in that order. The priority lists are
// injected so tests can run against fixture hierarchies.
type Engine struct {
	certIndex map[string]int
	certLow   int
	rankIndex map[string]int
	rankLow   int
}

// NewEngine builds an Engine from the given priority lists. Passing nil uses
// the club defaults.
func NewEngine(certOrder, rankOrder []string) *Engine {
	if certOrder == nil {
		certOrder = DefaultCertificationOrder
	}
	if rankOrder == nil {
		rankOrder = DefaultSailingRankOrder
	}
	e := &Engine{
		certIndex: make(map[string]int, len(certOrder)),
		rankIndex: make(map[string]int, len(rankOrder)),
	}
	for i, label := range certOrder {
		e.certIndex[label] = i
	}
	for i, label := range rankOrder {
		e.rankIndex[label] = i
	}
	// Unknown certifications sort below every listed one; unknown sailing
	// ranks share the lowest listed tier.
	e.certLow = len(certOrder)
	e.rankLow = len(rankOrder) - 1
	if e.rankLow < 0 {
		e.rankLow = 0
	}
	return e
}

// Rank returns the instructors ordered most senior first. The input slice is
// left untouched.
func (e *Engine) Rank(instructors []models.User) []models.User {
	ranked := make([]models.User, len(instructors))
	copy(ranked, instructors)

	sort.Slice(ranked, func(i, j int) bool {
		return e.less(&ranked[i], &ranked[j])
	})
	return ranked
}

func (e *Engine) less(a, b *models.User) bool {
	certA, certB := e.certTier(a.Qualifications), e.certTier(b.Qualifications)
	if certA != certB {
		return certA < certB
	}
	if a.CoursesInIlawa != b.CoursesInIlawa {
		return a.CoursesInIlawa > b.CoursesInIlawa
	}
	rankA, rankB := e.rankTier(a.SailingRank), e.rankTier(b.SailingRank)
	if rankA != rankB {
		return rankA < rankB
	}
	if a.CoursesOutsideIlawa != b.CoursesOutsideIlawa {
		return a.CoursesOutsideIlawa > b.CoursesOutsideIlawa
	}
	// Fixed tiebreak keeps the ordering stable across invocations.
	return a.ID < b.ID
}

func (e *Engine) certTier(label string) int {
	if tier, ok := e.certIndex[label]; ok {
		return tier
	}
	return e.certLow
}

func (e *Engine) rankTier(label string) int {
	if tier, ok := e.rankIndex[label]; ok {
		return tier
	}
	return e.rankLow
}
