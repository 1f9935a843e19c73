package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prepside/gmat-backend/internal/middleware"
	"github.com/prepside/gmat-backend/internal/model"
	"github.com/prepside/gmat-backend/internal/response"
	"github.com/prepside/gmat-backend/internal/service"
	"github.com/prepside/gmat-backend/internal/session"
	"github.com/prepside/gmat-backend/internal/validator"
)

// FocusHandler handles the GMAT Focus run endpoints.
type FocusHandler struct {
	focusService *service.FocusService
}

// NewFocusHandler creates a new FocusHandler.
func NewFocusHandler(focusService *service.FocusService) *FocusHandler {
	return &FocusHandler{focusService: focusService}
}

// Start godoc
// POST /api/v1/focus/start
// Starts a run with a locked-in section order and break position.
func (h *FocusHandler) Start(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.StartFocusRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	user := &model.User{ID: claims.UserID, Role: claims.Role}
	st, err := h.focusService.StartRun(c.Request.Context(), user, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSectionOrder):
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidOrder)
		case errors.Is(err, session.ErrRunAlreadyActive):
			response.Fail(c, http.StatusConflict, response.ErrRunAlreadyActive)
		case errors.Is(err, service.ErrUpgradeRequired):
			response.Fail(c, http.StatusForbidden, response.ErrUpgradeRequired)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, st)
}

// State godoc
// GET /api/v1/focus/state
// Snapshots the live run: phase, current section, answers, timers.
func (h *FocusHandler) State(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	st, err := h.focusService.State(claims.UserID)
	if err != nil {
		h.failFocus(c, err)
		return
	}
	response.Success(c, http.StatusOK, st)
}

// Answer godoc
// POST /api/v1/focus/answer
// Records/overwrites an answer in the active section.
func (h *FocusHandler) Answer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.AnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.focusService.Answer(claims.UserID, req.QuestionID, req.Answer); err != nil {
		h.failFocus(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": "saved"})
}

// Flag godoc
// POST /api/v1/focus/flag
// Toggles the review flag on a question (capped at 3 per section).
func (h *FocusHandler) Flag(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.FlagRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.focusService.ToggleFlag(claims.UserID, req.QuestionID); err != nil {
		h.failFocus(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": "toggled"})
}

// Next godoc
// POST /api/v1/focus/next
func (h *FocusHandler) Next(c *gin.Context) {
	h.navigate(c, h.focusService.Next)
}

// Prev godoc
// POST /api/v1/focus/prev
func (h *FocusHandler) Prev(c *gin.Context) {
	h.navigate(c, h.focusService.Prev)
}

func (h *FocusHandler) navigate(c *gin.Context, move func(int) error) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := move(claims.UserID); err != nil {
		h.failFocus(c, err)
		return
	}

	st, err := h.focusService.State(claims.UserID)
	if err != nil {
		h.failFocus(c, err)
		return
	}
	response.Success(c, http.StatusOK, st)
}

// Complete godoc
// POST /api/v1/focus/complete
// Submits the active section. Unanswered questions score blank.
func (h *FocusHandler) Complete(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.focusService.CompleteSection(c.Request.Context(), claims.UserID); err != nil {
		h.failFocus(c, err)
		return
	}

	st, err := h.focusService.State(claims.UserID)
	if err != nil {
		h.failFocus(c, err)
		return
	}
	response.Success(c, http.StatusOK, st)
}

// Retry godoc
// POST /api/v1/focus/retry
// Re-attempts a failed section load or submission.
func (h *FocusHandler) Retry(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.focusService.Retry(c.Request.Context(), claims.UserID); err != nil {
		h.failFocus(c, err)
		return
	}

	st, err := h.focusService.State(claims.UserID)
	if err != nil {
		h.failFocus(c, err)
		return
	}
	response.Success(c, http.StatusOK, st)
}

// EndBreak godoc
// POST /api/v1/focus/break/end
// Leaves the break and starts the next section.
func (h *FocusHandler) EndBreak(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.focusService.EndBreak(c.Request.Context(), claims.UserID); err != nil {
		h.failFocus(c, err)
		return
	}

	st, err := h.focusService.State(claims.UserID)
	if err != nil {
		h.failFocus(c, err)
		return
	}
	response.Success(c, http.StatusOK, st)
}

// Abandon godoc
// POST /api/v1/focus/abandon
// Tears down the live run. Completed sections stay persisted.
func (h *FocusHandler) Abandon(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.focusService.Abandon(c.Request.Context(), claims.UserID); err != nil {
		h.failFocus(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": "abandoned"})
}

// Result godoc
// GET /api/v1/focus/result
// Returns the aggregated full-run report once all sections are complete.
func (h *FocusHandler) Result(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	rep, err := h.focusService.Result(claims.UserID)
	if err != nil {
		h.failFocus(c, err)
		return
	}
	response.Success(c, http.StatusOK, rep)
}

// History godoc
// GET /api/v1/focus/history
// Returns the user's persisted run records.
func (h *FocusHandler) History(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	recs, err := h.focusService.History(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"runs": recs})
}

// failFocus maps session errors to API error codes.
func (h *FocusHandler) failFocus(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrNoActiveRun):
		response.Fail(c, http.StatusNotFound, response.ErrNoActiveRun)
	case errors.Is(err, session.ErrSectionNotActive):
		response.Fail(c, http.StatusConflict, response.ErrSectionNotActive)
	case errors.Is(err, session.ErrNotOnBreak):
		response.Fail(c, http.StatusConflict, response.ErrNotOnBreak)
	case errors.Is(err, session.ErrRunNotComplete):
		response.Fail(c, http.StatusConflict, response.ErrRunNotComplete)
	case errors.Is(err, session.ErrNothingToRetry):
		response.Fail(c, http.StatusConflict, response.ErrSectionNotActive)
	case errors.Is(err, service.ErrNoQuestionsAvailable):
		response.Fail(c, http.StatusNotFound, response.ErrNoQuestionsAvailable)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
