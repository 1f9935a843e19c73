package access

import (
	"testing"

	"github.com/prepside/gmat-backend/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestPremiumAndAdminAreUncapped(t *testing.T) {
	heavy := Usage{QuizzesToday: 1000, FocusRunsToday: 1000}
	for _, role := range []model.Role{model.RolePremium, model.RoleAdmin} {
		for _, f := range []Feature{FeaturePracticeQuiz, FeatureFocusRun, FeatureCustomFilters, FeatureAnalytics} {
			assert.True(t, CanAccessFeature(role, heavy, f), "%s should access %s", role, f)
		}
	}
}

func TestGuestQuizCap(t *testing.T) {
	assert.True(t, CanAccessFeature(model.RoleGuest, Usage{QuizzesToday: 0}, FeaturePracticeQuiz))
	assert.True(t, CanAccessFeature(model.RoleGuest, Usage{QuizzesToday: GuestDailyQuizzes - 1}, FeaturePracticeQuiz))
	assert.False(t, CanAccessFeature(model.RoleGuest, Usage{QuizzesToday: GuestDailyQuizzes}, FeaturePracticeQuiz))
}

func TestGuestNeverGetsFocusRuns(t *testing.T) {
	assert.False(t, CanAccessFeature(model.RoleGuest, Usage{}, FeatureFocusRun))
	assert.False(t, CanAccessFeature(model.RoleGuest, Usage{}, FeatureCustomFilters))
	assert.False(t, CanAccessFeature(model.RoleGuest, Usage{}, FeatureAnalytics))
}

func TestRegisteredCaps(t *testing.T) {
	assert.True(t, CanAccessFeature(model.RoleRegistered, Usage{QuizzesToday: RegisteredDailyQuizzes - 1}, FeaturePracticeQuiz))
	assert.False(t, CanAccessFeature(model.RoleRegistered, Usage{QuizzesToday: RegisteredDailyQuizzes}, FeaturePracticeQuiz))

	assert.True(t, CanAccessFeature(model.RoleRegistered, Usage{FocusRunsToday: 0}, FeatureFocusRun))
	assert.False(t, CanAccessFeature(model.RoleRegistered, Usage{FocusRunsToday: RegisteredDailyRuns}, FeatureFocusRun))

	assert.True(t, CanAccessFeature(model.RoleRegistered, Usage{}, FeatureCustomFilters))
	assert.True(t, CanAccessFeature(model.RoleRegistered, Usage{}, FeatureAnalytics))
}

func TestUnknownFeatureDeniedForFreeTiers(t *testing.T) {
	assert.False(t, CanAccessFeature(model.RoleRegistered, Usage{}, Feature("time_travel")))
}

func TestAccessMessageNeverEmpty(t *testing.T) {
	roles := []model.Role{model.RoleGuest, model.RoleRegistered}
	features := []Feature{FeaturePracticeQuiz, FeatureFocusRun, FeatureCustomFilters, FeatureAnalytics, Feature("other")}
	for _, role := range roles {
		for _, f := range features {
			assert.NotEmpty(t, AccessMessage(role, f))
		}
	}
}
