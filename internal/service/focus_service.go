package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prepside/gmat-backend/internal/access"
	"github.com/prepside/gmat-backend/internal/config"
	"github.com/prepside/gmat-backend/internal/model"
	"github.com/prepside/gmat-backend/internal/repository"
	"github.com/prepside/gmat-backend/internal/score"
	"github.com/prepside/gmat-backend/internal/session"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrInvalidSectionOrder means the requested order is not a permutation of
// the three fixed sections.
var ErrInvalidSectionOrder = errors.New("section order must list each of the three sections exactly once")

// FocusService owns GMAT Focus runs: it validates starts, keeps the live
// state machines in the session manager, persists run records, and fans
// timer ticks out to websocket subscribers.
type FocusService struct {
	manager   *session.Manager
	provider  session.QuestionProvider
	submitter session.AnswerSubmitter
	runs      *repository.FocusRepository
	sections  map[model.SectionName]model.SectionConfig
	rdb       *redis.Client
	log       zerolog.Logger

	ticks *tickHub
}

// NewFocusService creates a new FocusService.
func NewFocusService(manager *session.Manager, provider session.QuestionProvider, submitter session.AnswerSubmitter,
	runs *repository.FocusRepository, sections map[model.SectionName]model.SectionConfig,
	rdb *redis.Client, log zerolog.Logger) *FocusService {
	return &FocusService{
		manager:   manager,
		provider:  provider,
		submitter: submitter,
		runs:      runs,
		sections:  sections,
		rdb:       rdb,
		log:       log.With().Str("component", "focus_service").Logger(),
		ticks:     newTickHub(),
	}
}

// StartRun validates the request, persists the run record, and starts the
// first section. Section order and break position cannot change afterwards.
func (s *FocusService) StartRun(ctx context.Context, user *model.User, req model.StartFocusRequest) (*session.FocusState, error) {
	order, err := s.resolveOrder(req.SectionOrder)
	if err != nil {
		return nil, err
	}

	runsToday, err := s.runs.CountStartedToday(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("count runs: %w", err)
	}
	if !access.CanAccessFeature(user.Role, access.Usage{FocusRunsToday: runsToday}, access.FeatureFocusRun) {
		return nil, ErrUpgradeRequired
	}

	userID := user.ID
	runID := uuid.New()
	run := session.NewFocusRun(runID, userID, order, req.BreakAfterSection, s.provider, s.submitter, session.FocusOptions{
		Log: s.log,
		OnComplete: func(results []model.SectionResult) {
			s.persistCompletion(runID, userID, results)
		},
		OnTick: func(ev session.TickEvent) {
			s.ticks.publish(userID, ev)
		},
	})

	if err := s.manager.Attach(userID, run); err != nil {
		run.Close()
		return nil, err
	}

	rec := &model.FocusRunRecord{
		ID:           runID,
		UserID:       userID,
		SectionOrder: req.SectionOrder,
		BreakAfter:   req.BreakAfterSection,
	}
	if err := s.runs.Create(ctx, rec); err != nil {
		s.manager.Remove(userID)
		return nil, fmt.Errorf("create run record: %w", err)
	}

	if err := s.rdb.Set(ctx, config.CacheKey.UserActiveFocusRunKey(userID), runID.String(), 8*time.Hour).Err(); err != nil {
		s.log.Warn().Err(err).Int("user_id", userID).Msg("Active run marker not set")
	}

	s.log.Info().
		Str("run_id", runID.String()).
		Int("user_id", userID).
		Int("break_after", req.BreakAfterSection).
		Msg("Focus run started")

	// A failed first load leaves the section in its Error state with a retry
	// affordance; the run itself is live either way.
	if err := run.Start(ctx); err != nil {
		s.log.Warn().Err(err).Str("run_id", runID.String()).Msg("First section failed to load")
	}

	st := run.State()
	return &st, nil
}

// resolveOrder maps the requested names onto section configs, enforcing the
// permutation rule.
func (s *FocusService) resolveOrder(names []model.SectionName) ([]model.SectionConfig, error) {
	if len(names) != 3 {
		return nil, ErrInvalidSectionOrder
	}
	seen := make(map[model.SectionName]bool, 3)
	order := make([]model.SectionConfig, 3)
	for i, name := range names {
		cfg, ok := s.sections[name]
		if !ok || seen[name] {
			return nil, ErrInvalidSectionOrder
		}
		seen[name] = true
		order[i] = cfg
	}
	return order, nil
}

// persistCompletion stamps the run record with its totals. Called from the
// orchestrator's completion callback.
func (s *FocusService) persistCompletion(runID uuid.UUID, userID int, results []model.SectionResult) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rep := score.AggregateFocus(results)
	if err := s.runs.Complete(ctx, runID, rep.TotalScore, rep.TotalQuestions); err != nil {
		s.log.Error().Err(err).Str("run_id", runID.String()).Msg("Run completion not persisted")
	}
	if err := s.rdb.Del(ctx, config.CacheKey.UserActiveFocusRunKey(userID)).Err(); err != nil {
		s.log.Warn().Err(err).Int("user_id", userID).Msg("Active run marker not cleared")
	}

	s.log.Info().
		Str("run_id", runID.String()).
		Int("total_score", rep.TotalScore).
		Int("total_questions", rep.TotalQuestions).
		Msg("Focus run complete")
}

// Run returns the user's live run.
func (s *FocusService) Run(userID int) (*session.FocusRun, error) {
	return s.manager.Get(userID)
}

// State snapshots the user's run for the state endpoint.
func (s *FocusService) State(userID int) (*session.FocusState, error) {
	run, err := s.manager.Get(userID)
	if err != nil {
		return nil, err
	}
	st := run.State()
	return &st, nil
}

// Answer records an answer in the active section.
func (s *FocusService) Answer(userID int, questionID uuid.UUID, answer string) error {
	run, err := s.manager.Get(userID)
	if err != nil {
		return err
	}
	return run.SelectAnswer(questionID, answer)
}

// ToggleFlag toggles the review flag on a question in the active section.
func (s *FocusService) ToggleFlag(userID int, questionID uuid.UUID) error {
	run, err := s.manager.Get(userID)
	if err != nil {
		return err
	}
	return run.ToggleFlag(questionID)
}

// Next moves to the next question in the active section.
func (s *FocusService) Next(userID int) error {
	run, err := s.manager.Get(userID)
	if err != nil {
		return err
	}
	return run.Next()
}

// Prev moves to the previous question in the active section.
func (s *FocusService) Prev(userID int) error {
	run, err := s.manager.Get(userID)
	if err != nil {
		return err
	}
	return run.Prev()
}

// CompleteSection submits the active section.
func (s *FocusService) CompleteSection(ctx context.Context, userID int) error {
	run, err := s.manager.Get(userID)
	if err != nil {
		return err
	}
	return run.CompleteSection(ctx)
}

// Retry re-attempts the active section's failed load or submission.
func (s *FocusService) Retry(ctx context.Context, userID int) error {
	run, err := s.manager.Get(userID)
	if err != nil {
		return err
	}
	return run.Retry(ctx)
}

// EndBreak leaves the break and starts the next section.
func (s *FocusService) EndBreak(ctx context.Context, userID int) error {
	run, err := s.manager.Get(userID)
	if err != nil {
		return err
	}
	return run.EndBreakEarly(ctx)
}

// Abandon tears down the user's run. Completed sections stay persisted as
// quizzes; the run record keeps its NULL completion.
func (s *FocusService) Abandon(ctx context.Context, userID int) error {
	if _, err := s.manager.Get(userID); err != nil {
		return err
	}
	s.manager.Remove(userID)
	if err := s.rdb.Del(ctx, config.CacheKey.UserActiveFocusRunKey(userID)).Err(); err != nil {
		s.log.Warn().Err(err).Int("user_id", userID).Msg("Active run marker not cleared")
	}
	s.log.Info().Int("user_id", userID).Msg("Focus run abandoned")
	return nil
}

// Result aggregates a completed run into the full report.
func (s *FocusService) Result(userID int) (*score.FocusReport, error) {
	run, err := s.manager.Get(userID)
	if err != nil {
		return nil, err
	}
	results, err := run.Results()
	if err != nil {
		return nil, err
	}
	rep := score.AggregateFocus(results)
	return &rep, nil
}

// History lists the user's persisted run records, most recent first.
func (s *FocusService) History(ctx context.Context, userID int) ([]model.FocusRunRecord, error) {
	return s.runs.ListByUser(ctx, userID, 20)
}

// SubscribeTicks registers a timer tick listener for the user's run. The
// returned cancel func must be called when the listener goes away.
func (s *FocusService) SubscribeTicks(userID int) (<-chan session.TickEvent, func()) {
	return s.ticks.subscribe(userID)
}
