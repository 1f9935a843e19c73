// Package session holds the in-memory state machines of a GMAT Focus run:
// the per-section runner, the three-section orchestrator, and the manager
// tracking one live run per user. Persistence stays behind the
// QuestionProvider and AnswerSubmitter interfaces so the machines are
// testable without a database.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prepside/gmat-backend/internal/model"
	"github.com/prepside/gmat-backend/internal/timer"
	"github.com/rs/zerolog"
)

// MaxFlags caps the number of simultaneously flagged questions per section.
const MaxFlags = 3

// QuestionProvider supplies a question batch and a server-issued quiz id for
// the given count/time/filter parameters.
type QuestionProvider interface {
	FetchQuestions(ctx context.Context, userID int, kind model.QuizKind, req model.StartQuizRequest) (*model.QuizSet, error)
}

// AnswerSubmitter scores a finished quiz and returns the submission result.
type AnswerSubmitter interface {
	SubmitAnswers(ctx context.Context, userID int, quizID uuid.UUID, answers map[uuid.UUID]string, timeSpentSeconds int) (*model.Submission, error)
}

// RunnerState enumerates the section lifecycle.
type RunnerState string

const (
	StateLoading    RunnerState = "LOADING"
	StateActive     RunnerState = "ACTIVE"
	StateSubmitting RunnerState = "SUBMITTING"
	StateComplete   RunnerState = "COMPLETE"
	StateError      RunnerState = "ERROR"
)

// RunnerOptions configures a SectionRunner.
type RunnerOptions struct {
	// TickInterval overrides the one-second timer tick. Tests inject a
	// shorter interval; zero means one second.
	TickInterval time.Duration
	Log          zerolog.Logger
	// OnComplete fires once when the section reaches Complete.
	OnComplete func(res *model.SectionResult)
	// OnTick fires on every section timer tick with the remaining seconds.
	OnTick func(remaining int)
}

// SectionRunner drives a single section from question load to submission.
//
// State machine: Loading → Active → Submitting → Complete, with Error
// reachable from Loading (fetch failed/empty) and Submitting (submit
// failed); both error paths are retryable via Retry.
type SectionRunner struct {
	mu sync.Mutex

	cfg       model.SectionConfig
	index     int // section position within the run
	userID    int
	provider  QuestionProvider
	submitter AnswerSubmitter
	opts      RunnerOptions
	log       zerolog.Logger

	state    RunnerState
	errMsg   string
	quizID   uuid.UUID
	quiz     []model.QuestionForTaker
	known    map[uuid.UUID]struct{}
	answers  map[uuid.UUID]string
	flags    map[uuid.UUID]struct{}
	current  int
	clock    *timer.Countdown
	result   *model.SectionResult
	closed   bool
	loading  bool
}

// NewSectionRunner creates a runner in the Loading state. Call Load to fetch
// questions and start the timer.
func NewSectionRunner(cfg model.SectionConfig, index, userID int, provider QuestionProvider, submitter AnswerSubmitter, opts RunnerOptions) *SectionRunner {
	return &SectionRunner{
		cfg:       cfg,
		index:     index,
		userID:    userID,
		provider:  provider,
		submitter: submitter,
		opts:      opts,
		log: opts.Log.With().
			Str("component", "section_runner").
			Str("section", string(cfg.Name)).
			Int("section_index", index).
			Logger(),
		state: StateLoading,
	}
}

// Load fetches the section's question batch. On success the runner becomes
// Active with a fresh timer at the section time limit; answers, flags, and
// the question index reset. On failure (request error or empty batch) it
// becomes Error with a descriptive message; the caller decides whether to
// retry or abandon; there is no automatic retry.
func (r *SectionRunner) Load(ctx context.Context) error {
	r.mu.Lock()
	if r.closed || r.loading || (r.state != StateLoading && r.state != StateError) {
		r.mu.Unlock()
		return ErrSectionNotActive
	}
	r.loading = true
	r.state = StateLoading
	r.errMsg = ""
	r.mu.Unlock()

	set, err := r.provider.FetchQuestions(ctx, r.userID, model.QuizKindFocusSection, model.StartQuizRequest{
		Count:            r.cfg.QuestionCount,
		TimeLimitMinutes: r.cfg.TimeLimitMinutes,
		Filters: model.QuestionFilters{
			QuestionTypes: r.cfg.QuestionTypes,
			Categories:    r.cfg.Categories,
		},
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	r.loading = false

	if r.closed {
		return nil // Session torn down while the fetch was in flight.
	}
	if err != nil {
		r.state = StateError
		r.errMsg = fmt.Sprintf("failed to load %s questions: %v", r.cfg.Name, err)
		r.log.Warn().Err(err).Msg("Section load failed")
		return err
	}
	if len(set.Questions) == 0 {
		r.state = StateError
		r.errMsg = fmt.Sprintf("no %s questions available", r.cfg.Name)
		r.log.Warn().Msg("Section load returned no questions")
		return fmt.Errorf("%s", r.errMsg)
	}

	// Fewer questions than requested is accepted; zero is not.
	r.quizID = set.QuizID
	r.quiz = set.Questions
	r.known = make(map[uuid.UUID]struct{}, len(set.Questions))
	for _, q := range set.Questions {
		r.known[q.ID] = struct{}{}
	}
	r.answers = make(map[uuid.UUID]string)
	r.flags = make(map[uuid.UUID]struct{})
	r.current = 0
	r.state = StateActive

	r.clock = timer.New(r.opts.TickInterval)
	if r.opts.OnTick != nil {
		r.clock.OnTick(r.opts.OnTick)
	}
	r.clock.OnExpire(func() {
		// Expiry is a normal transition: force submission with whatever
		// answers exist. Runs on the tick goroutine.
		r.log.Info().Msg("Section timer expired, forcing submission")
		if err := r.Complete(context.Background()); err != nil {
			r.log.Error().Err(err).Msg("Forced submission failed")
		}
	})
	r.clock.Start(r.cfg.TimeLimitMinutes * 60)

	r.log.Info().
		Str("quiz_id", r.quizID.String()).
		Int("questions", len(r.quiz)).
		Msg("Section active")
	return nil
}

// SelectAnswer records or overwrites the answer for a question. No-op for
// unknown question ids or outside the Active state.
func (r *SectionRunner) SelectAnswer(questionID uuid.UUID, answer string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateActive {
		return ErrSectionNotActive
	}
	if _, ok := r.known[questionID]; !ok {
		return nil
	}
	r.answers[questionID] = answer
	return nil
}

// ToggleFlag adds or removes the review flag on a question. The flag set is
// capped at MaxFlags; toggling a further flag on is a no-op, not an error.
func (r *SectionRunner) ToggleFlag(questionID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateActive {
		return ErrSectionNotActive
	}
	if _, ok := r.known[questionID]; !ok {
		return nil
	}
	if _, flagged := r.flags[questionID]; flagged {
		delete(r.flags, questionID)
		return nil
	}
	if len(r.flags) >= MaxFlags {
		return nil
	}
	r.flags[questionID] = struct{}{}
	return nil
}

// Next advances the current question index, clamped to the question list.
func (r *SectionRunner) Next() error { return r.move(1) }

// Prev moves the current question index back, clamped to zero.
func (r *SectionRunner) Prev() error { return r.move(-1) }

func (r *SectionRunner) move(delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateActive {
		return ErrSectionNotActive
	}
	r.current += delta
	if r.current < 0 {
		r.current = 0
	}
	if max := len(r.quiz) - 1; r.current > max {
		r.current = max
	}
	return nil
}

// Complete submits the section's answers. It is triggered either by explicit
// user action or by timer expiry; the two may race, and exactly one
// submission call is issued. A call that loses the race returns nil. On
// submit failure the runner enters Error and Complete may be called again.
func (r *SectionRunner) Complete(ctx context.Context) error {
	r.mu.Lock()
	switch r.state {
	case StateActive:
		// proceed
	case StateSubmitting, StateComplete:
		// Already submitted or in flight, idempotent no-op.
		r.mu.Unlock()
		return nil
	case StateError:
		// Retryable only if the load succeeded and the submission failed.
		if r.quizID == uuid.Nil {
			r.mu.Unlock()
			return ErrSectionNotActive
		}
	default:
		r.mu.Unlock()
		return ErrSectionNotActive
	}

	r.state = StateSubmitting
	r.errMsg = ""
	if r.clock != nil {
		r.clock.Stop()
	}
	quizID := r.quizID
	elapsed := 0
	if r.clock != nil {
		elapsed = r.clock.Elapsed()
	}
	answers := make(map[uuid.UUID]string, len(r.answers))
	for k, v := range r.answers {
		answers[k] = v
	}
	questionCount := len(r.quiz)
	r.mu.Unlock()

	sub, err := r.submitter.SubmitAnswers(ctx, r.userID, quizID, answers, elapsed)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil // Late response to a torn-down session is discarded.
	}
	if err != nil {
		r.state = StateError
		r.errMsg = fmt.Sprintf("failed to submit %s answers: %v", r.cfg.Name, err)
		r.mu.Unlock()
		r.log.Warn().Err(err).Msg("Section submission failed")
		return err
	}

	res := &model.SectionResult{
		SectionIndex:     r.index,
		SectionName:      r.cfg.Name,
		Submission:       sub,
		TimeSpentSeconds: elapsed,
		QuestionCount:    questionCount,
		Answers:          answers,
	}
	r.state = StateComplete
	r.result = res
	onComplete := r.opts.OnComplete
	r.mu.Unlock()

	r.log.Info().
		Int("score", sub.Score).
		Int("total", sub.Total).
		Msg("Section complete")

	if onComplete != nil {
		onComplete(res)
	}
	return nil
}

// Retry re-attempts the failed operation after an Error: the question load
// if it never succeeded, otherwise the submission.
func (r *SectionRunner) Retry(ctx context.Context) error {
	r.mu.Lock()
	if r.state != StateError {
		r.mu.Unlock()
		return ErrNothingToRetry
	}
	loadFailed := r.quizID == uuid.Nil
	r.mu.Unlock()

	if loadFailed {
		return r.Load(ctx)
	}
	return r.Complete(ctx)
}

// Close tears the runner down: the timer stops and late network responses
// are discarded. Idempotent.
func (r *SectionRunner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	if r.clock != nil {
		r.clock.Stop()
	}
}

// SectionSnapshot is a point-in-time view of a runner for API responses.
type SectionSnapshot struct {
	SectionIndex     int                      `json:"section_index"`
	SectionName      model.SectionName        `json:"section_name"`
	State            RunnerState              `json:"state"`
	Error            string                   `json:"error,omitempty"`
	QuizID           uuid.UUID                `json:"quiz_id,omitempty"`
	Questions        []model.QuestionForTaker `json:"questions,omitempty"`
	CurrentIndex     int                      `json:"current_index"`
	Answers          map[uuid.UUID]string     `json:"answers"`
	FlaggedQuestions []uuid.UUID              `json:"flagged_questions"`
	RemainingSeconds int                      `json:"remaining_seconds"`
	ElapsedSeconds   int                      `json:"elapsed_seconds"`
	Result           *model.SectionResult     `json:"result,omitempty"`
}

// Snapshot returns the runner's current state for display.
func (r *SectionRunner) Snapshot() SectionSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := SectionSnapshot{
		SectionIndex: r.index,
		SectionName:  r.cfg.Name,
		State:        r.state,
		Error:        r.errMsg,
		QuizID:       r.quizID,
		Questions:    r.quiz,
		CurrentIndex: r.current,
		Answers:      make(map[uuid.UUID]string, len(r.answers)),
		Result:       r.result,
	}
	for k, v := range r.answers {
		snap.Answers[k] = v
	}
	snap.FlaggedQuestions = make([]uuid.UUID, 0, len(r.flags))
	for id := range r.flags {
		snap.FlaggedQuestions = append(snap.FlaggedQuestions, id)
	}
	if r.clock != nil {
		snap.RemainingSeconds = r.clock.Remaining()
		snap.ElapsedSeconds = r.clock.Elapsed()
	}
	return snap
}

// State returns the runner's lifecycle state.
func (r *SectionRunner) State() RunnerState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// QuizID returns the server-issued quiz id, or uuid.Nil before load.
func (r *SectionRunner) QuizID() uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.quizID
}
