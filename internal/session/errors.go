package session

import "errors"

// Session state machine errors. Handlers map these to API error codes.
var (
	ErrSectionNotActive = errors.New("section is not accepting this action")
	ErrNotOnBreak       = errors.New("run is not on break")
	ErrNoActiveRun      = errors.New("no active focus run")
	ErrRunAlreadyActive = errors.New("a focus run is already active")
	ErrRunNotComplete   = errors.New("run has not completed all sections")
	ErrNothingToRetry   = errors.New("section has no failed operation to retry")
)
