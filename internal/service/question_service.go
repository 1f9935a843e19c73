package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prepside/gmat-backend/internal/config"
	"github.com/prepside/gmat-backend/internal/model"
	"github.com/prepside/gmat-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrNoQuestionsAvailable means zero questions matched the requested filters.
var ErrNoQuestionsAvailable = errors.New("no questions match the requested filters")

// scoringKeyTTL bounds how long an unsubmitted quiz's key stays cached.
const scoringKeyTTL = 24 * time.Hour

// ScoringEntry is the cached per-question grading record. Everything needed
// to score and explain one answer without another Postgres read.
type ScoringEntry struct {
	CorrectAnswer string             `json:"correct_answer"`
	Explanation   string             `json:"explanation"`
	QuestionType  model.QuestionType `json:"question_type"`
	Text          string             `json:"text"`
}

// QuestionService owns the question bank: random draws for quiz starts,
// scoring-key caching, and admin CRUD.
type QuestionService struct {
	questions *repository.QuestionRepository
	quizzes   *repository.QuizRepository
	rdb       *redis.Client
	log       zerolog.Logger
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(questions *repository.QuestionRepository, quizzes *repository.QuizRepository, rdb *redis.Client, log zerolog.Logger) *QuestionService {
	return &QuestionService{
		questions: questions,
		quizzes:   quizzes,
		rdb:       rdb,
		log:       log.With().Str("component", "question_service").Logger(),
	}
}

// FetchQuestions draws a random question set, opens a quiz around it, and
// warms the scoring key cache. Fewer matches than requested is accepted;
// zero is ErrNoQuestionsAvailable.
func (s *QuestionService) FetchQuestions(ctx context.Context, userID int, kind model.QuizKind, req model.StartQuizRequest) (*model.QuizSet, error) {
	drawn, err := s.questions.GetRandom(ctx, req.Count, req.Filters)
	if err != nil {
		return nil, fmt.Errorf("draw questions: %w", err)
	}
	if len(drawn) == 0 {
		return nil, ErrNoQuestionsAvailable
	}

	quiz := &model.Quiz{
		ID:               uuid.New(),
		UserID:           userID,
		Kind:             kind,
		QuestionCount:    len(drawn),
		TimeLimitMinutes: req.TimeLimitMinutes,
		Status:           model.QuizStatusInProgress,
	}

	ids := make([]uuid.UUID, len(drawn))
	forTaker := make([]model.QuestionForTaker, len(drawn))
	for i, q := range drawn {
		ids[i] = q.ID
		forTaker[i] = q.ForTaker()
	}

	if err := s.quizzes.Create(ctx, quiz, ids); err != nil {
		return nil, fmt.Errorf("create quiz: %w", err)
	}

	if err := s.warmScoringKey(ctx, quiz.ID, drawn); err != nil {
		// Submission self-heals from Postgres, so a cold cache is not fatal.
		s.log.Warn().Err(err).Str("quiz_id", quiz.ID.String()).Msg("Scoring key cache warm failed")
	}

	s.log.Debug().
		Str("quiz_id", quiz.ID.String()).
		Int("user_id", userID).
		Int("questions", len(drawn)).
		Msg("Quiz issued")

	return &model.QuizSet{
		QuizID:           quiz.ID,
		Questions:        forTaker,
		TimeLimitMinutes: req.TimeLimitMinutes,
	}, nil
}

// warmScoringKey caches the quiz's grading records as a Redis hash.
func (s *QuestionService) warmScoringKey(ctx context.Context, quizID uuid.UUID, questions []model.Question) error {
	key := config.CacheKey.QuizScoringKey(quizID.String())

	fields := make(map[string]interface{}, len(questions))
	for _, q := range questions {
		raw, err := json.Marshal(ScoringEntry{
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
			QuestionType:  q.QuestionType,
			Text:          q.Text,
		})
		if err != nil {
			return fmt.Errorf("marshal scoring entry: %w", err)
		}
		fields[q.ID.String()] = raw
	}

	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, scoringKeyTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// GetScoringKey returns the quiz's grading records, reading the Redis cache
// and rebuilding it from Postgres on a miss.
func (s *QuestionService) GetScoringKey(ctx context.Context, quizID uuid.UUID) (map[uuid.UUID]ScoringEntry, error) {
	key := config.CacheKey.QuizScoringKey(quizID.String())

	cached, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("get scoring key: %w", err)
	}
	if len(cached) > 0 {
		entries := make(map[uuid.UUID]ScoringEntry, len(cached))
		for field, raw := range cached {
			qid, err := uuid.Parse(field)
			if err != nil {
				return nil, fmt.Errorf("corrupt scoring key field %q: %w", field, err)
			}
			var entry ScoringEntry
			if err := json.Unmarshal([]byte(raw), &entry); err != nil {
				return nil, fmt.Errorf("corrupt scoring entry: %w", err)
			}
			entries[qid] = entry
		}
		return entries, nil
	}

	// Cache miss: rebuild from Postgres and self-heal.
	ids, err := s.quizzes.GetQuestionIDs(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("get quiz questions: %w", err)
	}
	if len(ids) == 0 {
		return nil, repository.ErrQuizNotFound
	}
	questions, err := s.questions.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	if err := s.warmScoringKey(ctx, quizID, questions); err != nil {
		s.log.Warn().Err(err).Str("quiz_id", quizID.String()).Msg("Scoring key self-heal failed")
	}

	entries := make(map[uuid.UUID]ScoringEntry, len(questions))
	for _, q := range questions {
		entries[q.ID] = ScoringEntry{
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
			QuestionType:  q.QuestionType,
			Text:          q.Text,
		}
	}
	return entries, nil
}

// GetByID retrieves a full question for the admin console.
func (s *QuestionService) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	return s.questions.GetByID(ctx, id)
}

// ListPaginated retrieves questions for the admin console.
func (s *QuestionService) ListPaginated(ctx context.Context, page, perPage int) ([]model.Question, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return s.questions.ListPaginated(ctx, perPage, (page-1)*perPage)
}

// Create adds a question to the bank.
func (s *QuestionService) Create(ctx context.Context, req model.CreateQuestionRequest) (*model.Question, error) {
	q := &model.Question{
		Text:          req.Text,
		Options:       req.Options,
		QuestionType:  model.QuestionType(req.QuestionType),
		Passage:       req.Passage,
		CorrectAnswer: req.CorrectAnswer,
		Explanation:   req.Explanation,
		Difficulty:    req.Difficulty,
		Category:      req.Category,
	}
	if err := s.questions.Create(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// Update edits a question. Empty request fields keep the stored value.
func (s *QuestionService) Update(ctx context.Context, id uuid.UUID, req model.UpdateQuestionRequest) (*model.Question, error) {
	q, err := s.questions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Text != "" {
		q.Text = req.Text
	}
	if len(req.Options) > 0 {
		q.Options = req.Options
	}
	if req.QuestionType != "" {
		q.QuestionType = model.QuestionType(req.QuestionType)
	}
	if req.Passage != nil {
		q.Passage = *req.Passage
	}
	if req.CorrectAnswer != "" {
		q.CorrectAnswer = req.CorrectAnswer
	}
	if req.Explanation != nil {
		q.Explanation = *req.Explanation
	}
	if req.Difficulty != "" {
		q.Difficulty = req.Difficulty
	}
	if req.Category != "" {
		q.Category = req.Category
	}

	if err := s.questions.Update(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// Delete removes a question from the bank.
func (s *QuestionService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.questions.Delete(ctx, id)
}
