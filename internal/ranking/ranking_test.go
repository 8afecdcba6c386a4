package ranking

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azs-pg/ilawa-courses-api/internal/models"
)

func ids(users []models.User) []string {
	out := make([]string, len(users))
	for i := range users {
		out[i] = users[i].ID
	}
	return out
}

func TestRankCertificationBeatsExperience(t *testing.T) {
	engine := NewEngine(nil, nil)

	// A holds a listed certification; B has far more home-location courses
	// but no recognized certification.
	users := []models.User{
		{ID: "b", Qualifications: "None", CoursesInIlawa: 10},
		{ID: "a", Qualifications: "PZŻ Sailing Instructor", CoursesInIlawa: 5},
	}

	ranked := engine.Rank(users)
	assert.Equal(t, []string{"a", "b"}, ids(ranked))
}

func TestRankHomeCoursesDescendingWithinTier(t *testing.T) {
	engine := NewEngine(nil, nil)

	users := []models.User{
		{ID: "few", Qualifications: "PZŻ Sailing Instructor", CoursesInIlawa: 2},
		{ID: "many", Qualifications: "PZŻ Sailing Instructor", CoursesInIlawa: 9},
	}

	ranked := engine.Rank(users)
	assert.Equal(t, []string{"many", "few"}, ids(ranked))
}

func TestRankSailingRankBreaksTies(t *testing.T) {
	engine := NewEngine(nil, nil)

	users := []models.User{
		{ID: "sailor", Qualifications: "PZŻ Sailing Instructor", CoursesInIlawa: 4, SailingRank: "Yacht Sailor"},
		{ID: "captain", Qualifications: "PZŻ Sailing Instructor", CoursesInIlawa: 4, SailingRank: "Yacht Captain"},
	}

	ranked := engine.Rank(users)
	assert.Equal(t, []string{"captain", "sailor"}, ids(ranked))
}

func TestRankAwayCoursesAsFinalKey(t *testing.T) {
	engine := NewEngine(nil, nil)

	users := []models.User{
		{ID: "home-only", Qualifications: "Yacht Captain", SailingRank: "Yacht Captain", CoursesInIlawa: 3, CoursesOutsideIlawa: 0},
		{ID: "traveller", Qualifications: "Yacht Captain", SailingRank: "Yacht Captain", CoursesInIlawa: 3, CoursesOutsideIlawa: 7},
	}

	ranked := engine.Rank(users)
	assert.Equal(t, []string{"traveller", "home-only"}, ids(ranked))
}

func TestRankUnknownLabelsFallToLowestTiers(t *testing.T) {
	engine := NewEngine(nil, nil)

	users := []models.User{
		{ID: "unknown-cert", Qualifications: "Windsurfing Coach", CoursesInIlawa: 20},
		{ID: "junior", Qualifications: "PZŻ Sailing Teacher (formerly Junior Sailing Instructor of PZŻ)", CoursesInIlawa: 0},
	}

	ranked := engine.Rank(users)
	// Any unlisted certification sorts below the last listed one.
	assert.Equal(t, []string{"junior", "unknown-cert"}, ids(ranked))

	users = []models.User{
		{ID: "rowing", Qualifications: "PZŻ Sailing Instructor", SailingRank: "Rowing Champion", CoursesInIlawa: 1, CoursesOutsideIlawa: 5},
		{ID: "sailor", Qualifications: "PZŻ Sailing Instructor", SailingRank: "Yacht Sailor", CoursesInIlawa: 1, CoursesOutsideIlawa: 2},
	}

	ranked = engine.Rank(users)
	// An unrecognized sailing rank shares the lowest tier, so the away-course
	// count decides.
	assert.Equal(t, []string{"rowing", "sailor"}, ids(ranked))
}

func TestRankDeterministicForAnyInputOrder(t *testing.T) {
	engine := NewEngine(nil, nil)

	users := []models.User{
		{ID: "u1", Qualifications: "Instructor Lecturer of the Polish Sailing Association", CoursesInIlawa: 1},
		{ID: "u2", Qualifications: "PZŻ Sailing Instructor", CoursesInIlawa: 8, SailingRank: "Yacht Captain"},
		{ID: "u3", Qualifications: "PZŻ Sailing Instructor", CoursesInIlawa: 8, SailingRank: "Yacht Coastal Skipper"},
		{ID: "u4", Qualifications: "PZŻ Sailing Instructor", CoursesInIlawa: 2},
		{ID: "u5"},
	}

	expected := ids(engine.Rank(users))

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := make([]models.User, len(users))
		copy(shuffled, users)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		assert.Equal(t, expected, ids(engine.Rank(shuffled)))
	}
}

func TestRankIDTiebreakOnFullEquality(t *testing.T) {
	engine := NewEngine(nil, nil)

	users := []models.User{
		{ID: "z", Qualifications: "PZŻ Sailing Instructor", SailingRank: "Yacht Sailor", CoursesInIlawa: 1, CoursesOutsideIlawa: 1},
		{ID: "a", Qualifications: "PZŻ Sailing Instructor", SailingRank: "Yacht Sailor", CoursesInIlawa: 1, CoursesOutsideIlawa: 1},
	}

	ranked := engine.Rank(users)
	assert.Equal(t, []string{"a", "z"}, ids(ranked))
}

func TestRankDoesNotMutateInput(t *testing.T) {
	engine := NewEngine(nil, nil)

	users := []models.User{
		{ID: "b"},
		{ID: "a", Qualifications: "PZŻ Sailing Instructor"},
	}

	_ = engine.Rank(users)
	require.Equal(t, "b", users[0].ID)
	require.Equal(t, "a", users[1].ID)
}

func TestNewEngineCustomHierarchy(t *testing.T) {
	engine := NewEngine([]string{"gold", "silver"}, []string{"first", "second"})

	users := []models.User{
		{ID: "s", Qualifications: "silver"},
		{ID: "g", Qualifications: "gold"},
	}
	assert.Equal(t, []string{"g", "s"}, ids(engine.Rank(users)))
}
