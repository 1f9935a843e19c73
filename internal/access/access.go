// Package access gates features by account tier. Everything here is pure so
// the rules are testable without storage or HTTP.
package access

import (
	"fmt"

	"github.com/prepside/gmat-backend/internal/model"
)

// Feature names the gated capabilities.
type Feature string

const (
	FeaturePracticeQuiz  Feature = "practice_quiz"
	FeatureFocusRun      Feature = "focus_run"
	FeatureCustomFilters Feature = "custom_filters"
	FeatureAnalytics     Feature = "analytics"
)

// Daily caps for the free tiers. Premium and admin are uncapped.
const (
	GuestDailyQuizzes      = 2
	RegisteredDailyQuizzes = 5
	RegisteredDailyRuns    = 1
)

// Usage carries today's consumption counters for one user.
type Usage struct {
	QuizzesToday   int
	FocusRunsToday int
}

// CanAccessFeature reports whether a user of the given role, with today's
// usage, may use the feature right now.
func CanAccessFeature(role model.Role, usage Usage, feature Feature) bool {
	if role == model.RoleAdmin || role == model.RolePremium {
		return true
	}

	switch feature {
	case FeaturePracticeQuiz:
		if role == model.RoleGuest {
			return usage.QuizzesToday < GuestDailyQuizzes
		}
		return usage.QuizzesToday < RegisteredDailyQuizzes
	case FeatureFocusRun:
		if role == model.RoleGuest {
			return false
		}
		return usage.FocusRunsToday < RegisteredDailyRuns
	case FeatureCustomFilters, FeatureAnalytics:
		return role != model.RoleGuest
	}
	return false
}

// AccessMessage explains a denial in user-facing terms. Callers should only
// invoke it when CanAccessFeature returned false.
func AccessMessage(role model.Role, feature Feature) string {
	switch feature {
	case FeaturePracticeQuiz:
		if role == model.RoleGuest {
			return fmt.Sprintf("Guests can take %d practice quizzes per day. Create a free account for more.", GuestDailyQuizzes)
		}
		return fmt.Sprintf("Free accounts can take %d practice quizzes per day. Upgrade to premium for unlimited practice.", RegisteredDailyQuizzes)
	case FeatureFocusRun:
		if role == model.RoleGuest {
			return "Full-length mock tests require an account. Create a free account to continue."
		}
		return fmt.Sprintf("Free accounts can take %d full-length mock test per day. Upgrade to premium for unlimited mocks.", RegisteredDailyRuns)
	case FeatureCustomFilters:
		return "Custom question filters require an account."
	case FeatureAnalytics:
		return "Performance analytics require an account."
	}
	return "This feature is not available on your current plan."
}
