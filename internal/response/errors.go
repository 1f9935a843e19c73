package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrEmailTaken         ErrCode = "EMAIL_ALREADY_REGISTERED"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden       ErrCode = "FORBIDDEN"
	ErrAdminAccessOnly ErrCode = "ADMIN_ACCESS_ONLY"
	ErrUpgradeRequired ErrCode = "UPGRADE_REQUIRED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Quiz ──────────────────────────────────────────────────────────
	ErrNoQuestionsAvailable ErrCode = "NO_QUESTIONS_AVAILABLE"
	ErrQuizNotFound         ErrCode = "QUIZ_NOT_FOUND"
	ErrQuizAlreadySubmitted ErrCode = "QUIZ_ALREADY_SUBMITTED"

	// ─── GMAT Focus run ────────────────────────────────────────────────
	ErrNoActiveRun      ErrCode = "NO_ACTIVE_RUN"
	ErrRunAlreadyActive ErrCode = "RUN_ALREADY_ACTIVE"
	ErrInvalidOrder     ErrCode = "INVALID_SECTION_ORDER"
	ErrSectionNotActive ErrCode = "SECTION_NOT_ACTIVE"
	ErrSectionLoad      ErrCode = "SECTION_LOAD_FAILED"
	ErrSubmissionFailed ErrCode = "SUBMISSION_FAILED"
	ErrNotOnBreak       ErrCode = "NOT_ON_BREAK"
	ErrRunNotComplete   ErrCode = "RUN_NOT_COMPLETE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email or password is incorrect."
	case ErrEmailTaken:
		return "An account with this email already exists."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid or expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."
	case ErrUpgradeRequired:
		return "This feature is not available on your current plan."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid identifier format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	// ─── Quiz ──────────────────────────────────────────────────────────
	case ErrNoQuestionsAvailable:
		return "No questions match the requested filters."
	case ErrQuizNotFound:
		return "Quiz not found or expired."
	case ErrQuizAlreadySubmitted:
		return "This quiz has already been submitted."

	// ─── GMAT Focus run ────────────────────────────────────────────────
	case ErrNoActiveRun:
		return "No GMAT Focus test is in progress. Configure and start one first."
	case ErrRunAlreadyActive:
		return "A GMAT Focus test is already in progress."
	case ErrInvalidOrder:
		return "Section order must include each of the three sections exactly once."
	case ErrSectionNotActive:
		return "The current section is not accepting this action."
	case ErrSectionLoad:
		return "Failed to load section questions. You may retry or abandon the test."
	case ErrSubmissionFailed:
		return "Failed to submit section answers. You may retry."
	case ErrNotOnBreak:
		return "The test is not currently on break."
	case ErrRunNotComplete:
		return "The test has not finished all three sections yet."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
