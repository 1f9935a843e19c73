package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prepside/gmat-backend/internal/model"
	"github.com/prepside/gmat-backend/internal/timer"
	"github.com/rs/zerolog"
)

// BreakSeconds is the length of the optional inter-section break.
const BreakSeconds = 600

// Phase enumerates the orchestrator states.
type Phase string

const (
	PhaseRunningSection Phase = "RUNNING_SECTION"
	PhaseOnBreak        Phase = "ON_BREAK"
	PhaseAllComplete    Phase = "ALL_COMPLETE"
)

// TickEvent is pushed to the run's tick listener once per second while a
// section or break timer is running.
type TickEvent struct {
	Phase            Phase             `json:"phase"`
	SectionIndex     int               `json:"section_index"`
	SectionName      model.SectionName `json:"section_name,omitempty"`
	RemainingSeconds int               `json:"remaining_seconds"`
	Expired          bool              `json:"expired"`
}

// FocusOptions configures a FocusRun.
type FocusOptions struct {
	TickInterval time.Duration
	BreakSeconds int // zero means the standard 10 minutes
	Log          zerolog.Logger
	// OnComplete fires once when the run reaches AllComplete, with the
	// ordered section results.
	OnComplete func(results []model.SectionResult)
	// OnTick receives section and break timer ticks.
	OnTick func(ev TickEvent)
}

// FocusRun sequences the three GMAT Focus sections in a user-chosen order,
// inserts the optional break, and collects section results. Section order
// and break position are locked in at construction; there are no setters.
type FocusRun struct {
	mu sync.Mutex

	id         uuid.UUID
	userID     int
	order      []model.SectionConfig // exactly 3, user-chosen order
	breakAfter int                   // 1 or 2; 0 means no break
	provider   QuestionProvider
	submitter  AnswerSubmitter
	opts       FocusOptions
	log        zerolog.Logger

	phase      Phase
	current    int
	completed  [3]bool
	results    []model.SectionResult
	runner     *SectionRunner
	breakClock *timer.Countdown
	startedAt  time.Time
	closed     bool
}

// NewFocusRun builds a run over the given resolved section configs (already
// reordered to the user's choice) and break position.
func NewFocusRun(id uuid.UUID, userID int, order []model.SectionConfig, breakAfter int, provider QuestionProvider, submitter AnswerSubmitter, opts FocusOptions) *FocusRun {
	if opts.BreakSeconds <= 0 {
		opts.BreakSeconds = BreakSeconds
	}
	return &FocusRun{
		id:         id,
		userID:     userID,
		order:      order,
		breakAfter: breakAfter,
		provider:   provider,
		submitter:  submitter,
		opts:       opts,
		log: opts.Log.With().
			Str("component", "focus_run").
			Str("run_id", id.String()).
			Int("user_id", userID).
			Logger(),
		phase:     PhaseRunningSection,
		startedAt: time.Now(),
	}
}

// Start loads the first section. A load failure leaves its runner in the
// Error state with a retry affordance; the run itself stays alive.
func (f *FocusRun) Start(ctx context.Context) error {
	return f.loadSection(ctx, 0)
}

// loadSection creates the runner for section i and fetches its questions.
func (f *FocusRun) loadSection(ctx context.Context, i int) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrNoActiveRun
	}
	idx := i
	r := NewSectionRunner(f.order[idx], idx, f.userID, f.provider, f.submitter, RunnerOptions{
		TickInterval: f.opts.TickInterval,
		Log:          f.log,
		OnComplete:   func(res *model.SectionResult) { f.sectionCompleted(idx, res) },
		OnTick: func(remaining int) {
			f.emit(TickEvent{
				Phase:            PhaseRunningSection,
				SectionIndex:     idx,
				SectionName:      f.order[idx].Name,
				RemainingSeconds: remaining,
			})
		},
	})
	f.runner = r
	f.current = idx
	f.phase = PhaseRunningSection
	f.mu.Unlock()

	return r.Load(ctx)
}

// sectionCompleted records a finished section and advances the machine:
// AllComplete after the third section, a break when configured at this
// position, otherwise straight into the next section.
func (f *FocusRun) sectionCompleted(i int, res *model.SectionResult) {
	f.mu.Lock()
	if f.closed || f.completed[i] {
		f.mu.Unlock()
		return
	}
	f.results = append(f.results, *res)
	f.completed[i] = true

	next := i + 1
	if next == len(f.order) {
		f.phase = PhaseAllComplete
		results := make([]model.SectionResult, len(f.results))
		copy(results, f.results)
		onComplete := f.opts.OnComplete
		f.mu.Unlock()

		f.log.Info().Msg("All sections complete")
		if onComplete != nil {
			onComplete(results)
		}
		return
	}

	if f.breakAfter == next {
		f.phase = PhaseOnBreak
		f.breakClock = timer.New(f.opts.TickInterval)
		f.breakClock.OnTick(func(remaining int) {
			f.emit(TickEvent{Phase: PhaseOnBreak, SectionIndex: i, RemainingSeconds: remaining})
		})
		f.breakClock.OnExpire(func() {
			// Break expiry does not auto-advance; the taker resumes
			// explicitly via EndBreakEarly.
			f.emit(TickEvent{Phase: PhaseOnBreak, SectionIndex: i, Expired: true})
		})
		f.breakClock.Start(f.opts.BreakSeconds)
		f.mu.Unlock()

		f.log.Info().Int("after_section", next).Msg("Break started")
		return
	}
	f.mu.Unlock()

	if err := f.loadSection(context.Background(), next); err != nil {
		f.log.Warn().Err(err).Int("section_index", next).Msg("Next section failed to load")
	}
}

// EndBreakEarly leaves the break immediately and starts the next section,
// regardless of remaining break time. Also the way forward once the break
// timer has run out.
func (f *FocusRun) EndBreakEarly(ctx context.Context) error {
	f.mu.Lock()
	if f.phase != PhaseOnBreak {
		f.mu.Unlock()
		return ErrNotOnBreak
	}
	if f.breakClock != nil {
		f.breakClock.Stop()
	}
	next := f.current + 1
	f.mu.Unlock()

	return f.loadSection(ctx, next)
}

// Runner returns the active section runner, or nil on break/after completion.
func (f *FocusRun) Runner() *SectionRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.phase != PhaseRunningSection {
		return nil
	}
	return f.runner
}

// SelectAnswer forwards to the active section.
func (f *FocusRun) SelectAnswer(questionID uuid.UUID, answer string) error {
	r := f.Runner()
	if r == nil {
		return ErrSectionNotActive
	}
	return r.SelectAnswer(questionID, answer)
}

// ToggleFlag forwards to the active section.
func (f *FocusRun) ToggleFlag(questionID uuid.UUID) error {
	r := f.Runner()
	if r == nil {
		return ErrSectionNotActive
	}
	return r.ToggleFlag(questionID)
}

// Next forwards to the active section.
func (f *FocusRun) Next() error {
	r := f.Runner()
	if r == nil {
		return ErrSectionNotActive
	}
	return r.Next()
}

// Prev forwards to the active section.
func (f *FocusRun) Prev() error {
	r := f.Runner()
	if r == nil {
		return ErrSectionNotActive
	}
	return r.Prev()
}

// CompleteSection submits the active section's answers.
func (f *FocusRun) CompleteSection(ctx context.Context) error {
	r := f.Runner()
	if r == nil {
		return ErrSectionNotActive
	}
	return r.Complete(ctx)
}

// Retry re-attempts the active section's failed load or submission.
func (f *FocusRun) Retry(ctx context.Context) error {
	r := f.Runner()
	if r == nil {
		return ErrSectionNotActive
	}
	return r.Retry(ctx)
}

// Results returns the ordered section results once the run is AllComplete.
func (f *FocusRun) Results() ([]model.SectionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.phase != PhaseAllComplete {
		return nil, ErrRunNotComplete
	}
	results := make([]model.SectionResult, len(f.results))
	copy(results, f.results)
	return results, nil
}

// ID returns the persisted run record id.
func (f *FocusRun) ID() uuid.UUID { return f.id }

// SectionOrder returns the locked-in section order.
func (f *FocusRun) SectionOrder() []model.SectionName {
	names := make([]model.SectionName, len(f.order))
	for i, sc := range f.order {
		names[i] = sc.Name
	}
	return names
}

// CurrentPhase returns the orchestrator state.
func (f *FocusRun) CurrentPhase() Phase {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase
}

// FocusState is a point-in-time view of the whole run for API responses.
type FocusState struct {
	RunID               uuid.UUID           `json:"run_id"`
	Phase               Phase               `json:"phase"`
	SectionOrder        []model.SectionName `json:"section_order"`
	BreakAfterSection   int                 `json:"break_after_section"`
	CurrentSection      int                 `json:"current_section"`
	SectionsCompleted   []bool              `json:"sections_completed"`
	BreakRemaining      int                 `json:"break_remaining_seconds,omitempty"`
	TotalElapsedSeconds int                 `json:"total_elapsed_seconds"`
	Section             *SectionSnapshot    `json:"section,omitempty"`
	Results             []model.SectionResult `json:"results,omitempty"`
}

// State snapshots the run for display.
func (f *FocusRun) State() FocusState {
	f.mu.Lock()
	runner := f.runner
	st := FocusState{
		RunID:               f.id,
		Phase:               f.phase,
		BreakAfterSection:   f.breakAfter,
		CurrentSection:      f.current,
		SectionsCompleted:   []bool{f.completed[0], f.completed[1], f.completed[2]},
		TotalElapsedSeconds: int(time.Since(f.startedAt).Seconds()),
	}
	if f.phase == PhaseOnBreak && f.breakClock != nil {
		st.BreakRemaining = f.breakClock.Remaining()
	}
	if f.phase == PhaseAllComplete {
		st.Results = make([]model.SectionResult, len(f.results))
		copy(st.Results, f.results)
	}
	f.mu.Unlock()

	st.SectionOrder = f.SectionOrder()
	if st.Phase == PhaseRunningSection && runner != nil {
		snap := runner.Snapshot()
		st.Section = &snap
	}
	return st
}

// Close tears down the run: timers stop and late responses are discarded.
func (f *FocusRun) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	runner := f.runner
	if f.breakClock != nil {
		f.breakClock.Stop()
	}
	f.mu.Unlock()

	if runner != nil {
		runner.Close()
	}
}

func (f *FocusRun) emit(ev TickEvent) {
	if f.opts.OnTick != nil {
		f.opts.OnTick(ev)
	}
}
