package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/prepside/gmat-backend/internal/access"
	"github.com/prepside/gmat-backend/internal/config"
	"github.com/prepside/gmat-backend/internal/model"
	"github.com/prepside/gmat-backend/internal/repository"
	"github.com/prepside/gmat-backend/internal/score"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Common quiz errors.
var (
	ErrQuizAlreadySubmitted = errors.New("quiz already submitted")
	ErrNotQuizOwner         = errors.New("quiz belongs to a different user")
	ErrUpgradeRequired      = errors.New("feature not available on current plan")
)

// ResultPayload is what gets queued to Redis after in-RAM grading; the result
// worker persists it to Postgres in batches.
type ResultPayload struct {
	QuizID           string                 `json:"quiz_id"`
	UserID           int                    `json:"user_id"`
	Score            int                    `json:"score"`
	Total            int                    `json:"total"`
	Percentage       float64                `json:"percentage"`
	TimeSpentSeconds int                    `json:"time_spent_seconds"`
	Results          []model.QuestionResult `json:"results"`
}

// QuizService runs the quiz lifecycle: starting, autosaving, grading, and
// reporting. Grading happens in RAM against the cached scoring key; durable
// writes go through the worker queues.
type QuizService struct {
	quizzes     *repository.QuizRepository
	questionSvc *QuestionService
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewQuizService creates a new QuizService.
func NewQuizService(quizzes *repository.QuizRepository, questionSvc *QuestionService, rdb *redis.Client, log zerolog.Logger) *QuizService {
	return &QuizService{
		quizzes:     quizzes,
		questionSvc: questionSvc,
		rdb:         rdb,
		log:         log.With().Str("component", "quiz_service").Logger(),
	}
}

// Start checks the user's daily cap and issues a practice quiz.
func (s *QuizService) Start(ctx context.Context, user *model.User, req model.StartQuizRequest) (*model.QuizSet, error) {
	usage, err := s.Usage(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if !access.CanAccessFeature(user.Role, usage, access.FeaturePracticeQuiz) {
		return nil, ErrUpgradeRequired
	}
	if user.Role == model.RoleGuest && (len(req.Filters.QuestionTypes) > 0 || len(req.Filters.Categories) > 0 || req.Filters.Difficulty != "") {
		if !access.CanAccessFeature(user.Role, usage, access.FeatureCustomFilters) {
			return nil, ErrUpgradeRequired
		}
	}
	return s.questionSvc.FetchQuestions(ctx, user.ID, model.QuizKindPractice, req)
}

// Usage gathers today's consumption counters for access gating.
func (s *QuizService) Usage(ctx context.Context, userID int) (access.Usage, error) {
	quizzes, err := s.quizzes.CountStartedToday(ctx, userID, model.QuizKindPractice)
	if err != nil {
		return access.Usage{}, fmt.Errorf("count quizzes: %w", err)
	}
	return access.Usage{QuizzesToday: quizzes}, nil
}

// SubmitAnswers grades the quiz against the cached scoring key and queues the
// result for persistence. Exactly one submission wins; later calls get
// ErrQuizAlreadySubmitted.
func (s *QuizService) SubmitAnswers(ctx context.Context, userID int, quizID uuid.UUID, answers map[uuid.UUID]string, timeSpentSeconds int) (*model.Submission, error) {
	quiz, err := s.quizzes.GetByID(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.UserID != userID {
		return nil, ErrNotQuizOwner
	}
	if quiz.Status != model.QuizStatusInProgress {
		return nil, ErrQuizAlreadySubmitted
	}

	key, err := s.questionSvc.GetScoringKey(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("scoring key: %w", err)
	}
	ids, err := s.quizzes.GetQuestionIDs(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("question order: %w", err)
	}

	// Claim the transition before grading so a racing duplicate loses.
	won, err := s.quizzes.MarkCompleted(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("mark completed: %w", err)
	}
	if !won {
		return nil, ErrQuizAlreadySubmitted
	}

	correct := 0
	results := make([]model.QuestionResult, 0, len(ids))
	for _, qid := range ids {
		entry, ok := key[qid]
		if !ok {
			continue
		}
		given := answers[qid]
		isCorrect := given != "" && given == entry.CorrectAnswer
		if isCorrect {
			correct++
		}
		results = append(results, model.QuestionResult{
			QuestionID:    qid,
			UserAnswer:    given,
			Correct:       isCorrect,
			CorrectAnswer: entry.CorrectAnswer,
			Explanation:   entry.Explanation,
			QuestionType:  entry.QuestionType,
			QuestionText:  entry.Text,
		})
	}

	sub := &model.Submission{
		QuizID:           quizID,
		Score:            correct,
		Total:            len(results),
		Percentage:       score.Percentage(correct, len(results)),
		TimeSpentSeconds: timeSpentSeconds,
		Results:          results,
	}

	payload, _ := json.Marshal(ResultPayload{
		QuizID:           quizID.String(),
		UserID:           userID,
		Score:            sub.Score,
		Total:            sub.Total,
		Percentage:       sub.Percentage,
		TimeSpentSeconds: sub.TimeSpentSeconds,
		Results:          sub.Results,
	})
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, payload).Err(); err != nil {
		s.log.Error().Err(err).Str("quiz_id", quizID.String()).Msg("Result enqueue failed")
	}

	s.log.Info().
		Str("quiz_id", quizID.String()).
		Int("user_id", userID).
		Int("score", sub.Score).
		Int("total", sub.Total).
		Msg("Quiz graded")

	return sub, nil
}

// Autosave stores one answer in the quiz's Redis hash and queues it for
// durable persistence, so a crashed client can recover its selections.
func (s *QuizService) Autosave(ctx context.Context, userID int, quizID, questionID uuid.UUID, answer string) error {
	key := config.CacheKey.QuizAutosaveKey(quizID.String(), userID)
	if err := s.rdb.HSet(ctx, key, questionID.String(), answer).Err(); err != nil {
		return fmt.Errorf("autosave cache: %w", err)
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"user_id":     userID,
		"quiz_id":     quizID.String(),
		"question_id": questionID.String(),
		"answer":      answer,
	})
	return s.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, payload).Err()
}

// AutosavedAnswers returns the quiz's recovered answer selections.
func (s *QuizService) AutosavedAnswers(ctx context.Context, userID int, quizID uuid.UUID) (map[string]string, error) {
	return s.rdb.HGetAll(ctx, config.CacheKey.QuizAutosaveKey(quizID.String(), userID)).Result()
}

// Report builds the aggregated breakdown for a submitted quiz.
func (s *QuizService) Report(ctx context.Context, userID int, quizID uuid.UUID) (*score.Report, error) {
	quiz, err := s.quizzes.GetByID(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.UserID != userID {
		return nil, ErrNotQuizOwner
	}
	if quiz.Status != model.QuizStatusCompleted {
		return nil, repository.ErrSubmissionMissing
	}

	sub, err := s.quizzes.GetSubmission(ctx, quizID)
	if err != nil {
		return nil, err
	}
	rep := score.QuizReport(sub)
	return &rep, nil
}
