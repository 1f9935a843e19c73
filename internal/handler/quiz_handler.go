package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prepside/gmat-backend/internal/middleware"
	"github.com/prepside/gmat-backend/internal/model"
	"github.com/prepside/gmat-backend/internal/repository"
	"github.com/prepside/gmat-backend/internal/response"
	"github.com/prepside/gmat-backend/internal/service"
	"github.com/prepside/gmat-backend/internal/validator"
)

// QuizHandler handles standalone practice quiz endpoints.
type QuizHandler struct {
	quizService *service.QuizService
}

// NewQuizHandler creates a new QuizHandler.
func NewQuizHandler(quizService *service.QuizService) *QuizHandler {
	return &QuizHandler{quizService: quizService}
}

// Start godoc
// POST /api/v1/quiz/start
// Draws a random question set and opens a quiz around it.
func (h *QuizHandler) Start(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.StartQuizRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	user := &model.User{ID: claims.UserID, Role: claims.Role}
	set, err := h.quizService.Start(c.Request.Context(), user, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUpgradeRequired):
			response.Fail(c, http.StatusForbidden, response.ErrUpgradeRequired)
		case errors.Is(err, service.ErrNoQuestionsAvailable):
			response.Fail(c, http.StatusNotFound, response.ErrNoQuestionsAvailable)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, set)
}

// Submit godoc
// POST /api/v1/quiz/:quiz_id/submit
// Grades the quiz against its answer key. Exactly one submission wins.
func (h *QuizHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	quizID, err := uuid.Parse(c.Param("quiz_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SubmitAnswersRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sub, err := h.quizService.SubmitAnswers(c.Request.Context(), claims.UserID, quizID, req.Answers, req.TimeSpentSeconds)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrQuizNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrQuizNotFound)
		case errors.Is(err, service.ErrNotQuizOwner):
			response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		case errors.Is(err, service.ErrQuizAlreadySubmitted):
			response.Fail(c, http.StatusConflict, response.ErrQuizAlreadySubmitted)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, sub)
}

// Report godoc
// GET /api/v1/quiz/:quiz_id/report
// Returns the aggregated per-type breakdown for a submitted quiz.
func (h *QuizHandler) Report(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	quizID, err := uuid.Parse(c.Param("quiz_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	rep, err := h.quizService.Report(c.Request.Context(), claims.UserID, quizID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrQuizNotFound), errors.Is(err, repository.ErrSubmissionMissing):
			response.Fail(c, http.StatusNotFound, response.ErrQuizNotFound)
		case errors.Is(err, service.ErrNotQuizOwner):
			response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, rep)
}

// Recover godoc
// GET /api/v1/quiz/:quiz_id/answers
// Returns the autosaved answers for crash recovery.
func (h *QuizHandler) Recover(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	quizID, err := uuid.Parse(c.Param("quiz_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	answers, err := h.quizService.AutosavedAnswers(c.Request.Context(), claims.UserID, quizID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"answers": answers})
}
