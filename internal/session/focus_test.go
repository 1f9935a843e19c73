package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prepside/gmat-backend/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sectionConfigs(order ...model.SectionName) []model.SectionConfig {
	cfgs := make([]model.SectionConfig, len(order))
	for i, name := range order {
		cfgs[i] = model.SectionConfig{
			Name:             name,
			QuestionCount:    2,
			TimeLimitMinutes: 45,
		}
	}
	return cfgs
}

func newTestRun(t *testing.T, order []model.SectionConfig, breakAfter int, provider QuestionProvider, submitter AnswerSubmitter) *FocusRun {
	t.Helper()
	run := NewFocusRun(uuid.New(), 1, order, breakAfter, provider, submitter, FocusOptions{
		TickInterval: testTick,
		Log:          zerolog.Nop(),
	})
	t.Cleanup(run.Close)
	return run
}

// completeCurrentSection drives the active section to Complete and waits for
// the orchestrator to leave it.
func completeCurrentSection(t *testing.T, run *FocusRun) {
	t.Helper()
	i := run.State().CurrentSection
	require.NoError(t, run.CompleteSection(context.Background()))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		st := run.State()
		if st.SectionsCompleted[i] && (st.Phase != PhaseRunningSection || st.CurrentSection != i || st.Section.State == StateActive) {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("section %d did not settle after completion", i)
}

func TestFocusRunAllOrdersAndBreakPositions(t *testing.T) {
	orders := [][]model.SectionName{
		{model.SectionQuant, model.SectionVerbal, model.SectionData},
		{model.SectionData, model.SectionQuant, model.SectionVerbal},
		{model.SectionVerbal, model.SectionData, model.SectionQuant},
	}

	for _, order := range orders {
		for breakAfter := 0; breakAfter <= 2; breakAfter++ {
			name := fmt.Sprintf("%s-%s-%s_break%d", order[0], order[1], order[2], breakAfter)
			t.Run(name, func(t *testing.T) {
				run := newTestRun(t, sectionConfigs(order...), breakAfter, &fakeProvider{}, &fakeSubmitter{})
				require.NoError(t, run.Start(context.Background()))

				for i := 0; i < 3; i++ {
					completeCurrentSection(t, run)
					if run.CurrentPhase() == PhaseOnBreak {
						require.NoError(t, run.EndBreakEarly(context.Background()))
					}
				}

				assert.Equal(t, PhaseAllComplete, run.CurrentPhase())

				results, err := run.Results()
				require.NoError(t, err)
				require.Len(t, results, 3)
				for i, res := range results {
					assert.Equal(t, i, res.SectionIndex)
					assert.Equal(t, order[i], res.SectionName)
				}
			})
		}
	}
}

func TestFocusRunBreakAfterFirstSection(t *testing.T) {
	// Configuration {Quant, Verbal, DI} with breakAfterSection=1: finishing
	// Quant lands on break; ending it early enters Verbal, never re-enters
	// Quant.
	order := sectionConfigs(model.SectionQuant, model.SectionVerbal, model.SectionData)
	run := newTestRun(t, order, 1, &fakeProvider{}, &fakeSubmitter{})
	require.NoError(t, run.Start(context.Background()))

	completeCurrentSection(t, run)
	st := run.State()
	assert.Equal(t, PhaseOnBreak, st.Phase)
	assert.Greater(t, st.BreakRemaining, 0)
	assert.LessOrEqual(t, st.BreakRemaining, BreakSeconds)

	require.NoError(t, run.EndBreakEarly(context.Background()))

	st = run.State()
	assert.Equal(t, PhaseRunningSection, st.Phase)
	assert.Equal(t, 1, st.CurrentSection)
	require.NotNil(t, st.Section)
	assert.Equal(t, model.SectionVerbal, st.Section.SectionName)
	assert.True(t, st.SectionsCompleted[0])
}

func TestFocusRunEndBreakEarlyRequiresBreak(t *testing.T) {
	order := sectionConfigs(model.SectionQuant, model.SectionVerbal, model.SectionData)
	run := newTestRun(t, order, 0, &fakeProvider{}, &fakeSubmitter{})
	require.NoError(t, run.Start(context.Background()))

	assert.ErrorIs(t, run.EndBreakEarly(context.Background()), ErrNotOnBreak)
}

func TestFocusRunBreakExpiryDoesNotAutoAdvance(t *testing.T) {
	order := sectionConfigs(model.SectionQuant, model.SectionVerbal, model.SectionData)
	run := NewFocusRun(uuid.New(), 1, order, 1, &fakeProvider{}, &fakeSubmitter{}, FocusOptions{
		TickInterval: testTick,
		BreakSeconds: 2, // expires almost immediately under the fast tick
		Log:          zerolog.Nop(),
	})
	t.Cleanup(run.Close)
	require.NoError(t, run.Start(context.Background()))

	completeCurrentSection(t, run)
	require.Equal(t, PhaseOnBreak, run.CurrentPhase())

	time.Sleep(20 * testTick)
	assert.Equal(t, PhaseOnBreak, run.CurrentPhase())
	assert.Equal(t, 0, run.State().BreakRemaining)

	// The taker still resumes explicitly.
	require.NoError(t, run.EndBreakEarly(context.Background()))
	assert.Equal(t, PhaseRunningSection, run.CurrentPhase())
}

func TestFocusRunSectionErrorPreservesPriorResults(t *testing.T) {
	p := &fakeProvider{}
	run := newTestRun(t, sectionConfigs(model.SectionQuant, model.SectionVerbal, model.SectionData), 0, p, &fakeSubmitter{})
	require.NoError(t, run.Start(context.Background()))

	completeCurrentSection(t, run)

	// Break the provider so section 1's load fails, then recover via Retry.
	p.mu.Lock()
	p.fail = true
	p.mu.Unlock()

	// Section 1 may already have loaded before the failure was armed; only
	// exercise the retry path when it actually failed.
	st := run.State()
	if st.Section != nil && st.Section.State == StateError {
		p.mu.Lock()
		p.fail = false
		p.mu.Unlock()
		require.NoError(t, run.Retry(context.Background()))
	} else {
		p.mu.Lock()
		p.fail = false
		p.mu.Unlock()
	}

	st = run.State()
	assert.True(t, st.SectionsCompleted[0], "prior section result must survive later errors")
	assert.Equal(t, 1, st.CurrentSection)
}

func TestFocusRunResultsBeforeCompletion(t *testing.T) {
	run := newTestRun(t, sectionConfigs(model.SectionQuant, model.SectionVerbal, model.SectionData), 0, &fakeProvider{}, &fakeSubmitter{})
	require.NoError(t, run.Start(context.Background()))

	_, err := run.Results()
	assert.ErrorIs(t, err, ErrRunNotComplete)
}

func TestFocusRunTickEvents(t *testing.T) {
	var mu sync.Mutex
	var events []TickEvent
	order := sectionConfigs(model.SectionQuant, model.SectionVerbal, model.SectionData)
	run := NewFocusRun(uuid.New(), 1, order, 0, &fakeProvider{}, &fakeSubmitter{}, FocusOptions{
		TickInterval: testTick,
		Log:          zerolog.Nop(),
		OnTick: func(ev TickEvent) {
			mu.Lock()
			events = append(events, ev)
			mu.Unlock()
		},
	})
	t.Cleanup(run.Close)
	require.NoError(t, run.Start(context.Background()))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(events)
		mu.Unlock()
		if n >= 3 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(events), 3)
	assert.Equal(t, PhaseRunningSection, events[0].Phase)
	assert.Equal(t, 0, events[0].SectionIndex)
	assert.Equal(t, model.SectionQuant, events[0].SectionName)
	assert.Greater(t, events[0].RemainingSeconds, events[2].RemainingSeconds)
}

func TestManagerSingleRunPerUser(t *testing.T) {
	m := NewManager()
	order := sectionConfigs(model.SectionQuant, model.SectionVerbal, model.SectionData)

	first := newTestRun(t, order, 0, &fakeProvider{}, &fakeSubmitter{})
	require.NoError(t, m.Attach(7, first))
	require.NoError(t, first.Start(context.Background()))

	second := newTestRun(t, order, 0, &fakeProvider{}, &fakeSubmitter{})
	assert.ErrorIs(t, m.Attach(7, second), ErrRunAlreadyActive)

	got, err := m.Get(7)
	require.NoError(t, err)
	assert.Same(t, first, got)

	m.Remove(7)
	_, err = m.Get(7)
	assert.ErrorIs(t, err, ErrNoActiveRun)
}
