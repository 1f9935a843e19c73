package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prepside/gmat-backend/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTick = 2 * time.Millisecond

// fakeProvider hands out synthetic question batches.
type fakeProvider struct {
	mu    sync.Mutex
	calls int
	fail  bool
	empty bool
	short int // when >0, return fewer questions than requested
}

func (p *fakeProvider) FetchQuestions(_ context.Context, _ int, _ model.QuizKind, req model.StartQuizRequest) (*model.QuizSet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++

	if p.fail {
		return nil, errors.New("question service unavailable")
	}
	n := req.Count
	if p.empty {
		n = 0
	} else if p.short > 0 {
		n = p.short
	}

	qs := make([]model.QuestionForTaker, n)
	for i := range qs {
		qs[i] = model.QuestionForTaker{
			ID:      uuid.New(),
			Text:    "question",
			Options: []string{"A", "B", "C", "D", "E"},
		}
	}
	return &model.QuizSet{
		QuizID:           uuid.New(),
		Questions:        qs,
		TimeLimitMinutes: req.TimeLimitMinutes,
	}, nil
}

// fakeSubmitter counts submissions and scores everything as blank.
type fakeSubmitter struct {
	mu      sync.Mutex
	calls   int
	fail    bool
	delay   time.Duration
	lastQID uuid.UUID
}

func (s *fakeSubmitter) SubmitAnswers(_ context.Context, _ int, quizID uuid.UUID, answers map[uuid.UUID]string, timeSpent int) (*model.Submission, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.lastQID = quizID

	if s.fail {
		return nil, errors.New("submission endpoint unavailable")
	}
	return &model.Submission{
		QuizID:           quizID,
		Score:            0,
		Total:            len(answers),
		TimeSpentSeconds: timeSpent,
	}, nil
}

func (s *fakeSubmitter) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func quantConfig(count int) model.SectionConfig {
	return model.SectionConfig{
		Name:             model.SectionQuant,
		QuestionCount:    count,
		TimeLimitMinutes: 45,
		QuestionTypes:    []string{string(model.QuestionTypeProblemSolving)},
		Categories:       []string{"Quantitative Reasoning"},
	}
}

func newTestRunner(t *testing.T, provider QuestionProvider, submitter AnswerSubmitter, opts RunnerOptions) *SectionRunner {
	t.Helper()
	opts.TickInterval = testTick
	opts.Log = zerolog.Nop()
	r := NewSectionRunner(quantConfig(5), 0, 1, provider, submitter, opts)
	t.Cleanup(r.Close)
	return r
}

func TestSectionLoadActivates(t *testing.T) {
	p := &fakeProvider{}
	r := newTestRunner(t, p, &fakeSubmitter{}, RunnerOptions{})

	require.NoError(t, r.Load(context.Background()))

	snap := r.Snapshot()
	assert.Equal(t, StateActive, snap.State)
	assert.Len(t, snap.Questions, 5)
	assert.Empty(t, snap.Answers)
	assert.Empty(t, snap.FlaggedQuestions)
	assert.Equal(t, 0, snap.CurrentIndex)
	assert.NotEqual(t, uuid.Nil, snap.QuizID)
}

func TestSectionLoadEmptyIsError(t *testing.T) {
	p := &fakeProvider{empty: true}
	r := newTestRunner(t, p, &fakeSubmitter{}, RunnerOptions{})

	require.Error(t, r.Load(context.Background()))
	assert.Equal(t, StateError, r.State())

	// No automatic retry happened.
	assert.Equal(t, 1, p.calls)
}

func TestSectionLoadShortBatchIsAccepted(t *testing.T) {
	// Fewer questions than requested is fine; only zero is a load failure.
	p := &fakeProvider{short: 3}
	r := newTestRunner(t, p, &fakeSubmitter{}, RunnerOptions{})

	require.NoError(t, r.Load(context.Background()))
	assert.Len(t, r.Snapshot().Questions, 3)
}

func TestSectionRetryAfterLoadFailure(t *testing.T) {
	p := &fakeProvider{fail: true}
	r := newTestRunner(t, p, &fakeSubmitter{}, RunnerOptions{})

	require.Error(t, r.Load(context.Background()))
	p.mu.Lock()
	p.fail = false
	p.mu.Unlock()

	require.NoError(t, r.Retry(context.Background()))
	assert.Equal(t, StateActive, r.State())
}

func TestSectionSelectAnswer(t *testing.T) {
	r := newTestRunner(t, &fakeProvider{}, &fakeSubmitter{}, RunnerOptions{})
	require.NoError(t, r.Load(context.Background()))

	qid := r.Snapshot().Questions[0].ID
	require.NoError(t, r.SelectAnswer(qid, "B"))
	require.NoError(t, r.SelectAnswer(qid, "C")) // overwrite

	assert.Equal(t, "C", r.Snapshot().Answers[qid])

	// Unknown question ids are ignored, not errors.
	require.NoError(t, r.SelectAnswer(uuid.New(), "A"))
	assert.Len(t, r.Snapshot().Answers, 1)
}

func TestSectionFlagCap(t *testing.T) {
	r := newTestRunner(t, &fakeProvider{}, &fakeSubmitter{}, RunnerOptions{})
	require.NoError(t, r.Load(context.Background()))

	qs := r.Snapshot().Questions
	for i := 0; i < 3; i++ {
		require.NoError(t, r.ToggleFlag(qs[i].ID))
	}
	assert.Len(t, r.Snapshot().FlaggedQuestions, 3)

	// A fourth flag is a no-op, not an error.
	require.NoError(t, r.ToggleFlag(qs[3].ID))
	assert.Len(t, r.Snapshot().FlaggedQuestions, 3)

	// Unflagging frees a slot.
	require.NoError(t, r.ToggleFlag(qs[0].ID))
	require.NoError(t, r.ToggleFlag(qs[3].ID))
	assert.Len(t, r.Snapshot().FlaggedQuestions, 3)
}

func TestSectionNavigationClamped(t *testing.T) {
	r := newTestRunner(t, &fakeProvider{}, &fakeSubmitter{}, RunnerOptions{})
	require.NoError(t, r.Load(context.Background()))

	require.NoError(t, r.Prev())
	assert.Equal(t, 0, r.Snapshot().CurrentIndex)

	for i := 0; i < 10; i++ {
		require.NoError(t, r.Next())
	}
	assert.Equal(t, 4, r.Snapshot().CurrentIndex)
}

func TestSectionCompleteWithEmptyAnswers(t *testing.T) {
	sub := &fakeSubmitter{}
	var got *model.SectionResult
	r := newTestRunner(t, &fakeProvider{}, sub, RunnerOptions{
		OnComplete: func(res *model.SectionResult) { got = res },
	})
	require.NoError(t, r.Load(context.Background()))
	require.NoError(t, r.Complete(context.Background()))

	assert.Equal(t, StateComplete, r.State())
	require.NotNil(t, got)
	assert.Equal(t, model.SectionQuant, got.SectionName)
	assert.Equal(t, 5, got.QuestionCount)
	assert.Empty(t, got.Answers)
	assert.Equal(t, 1, sub.callCount())
}

func TestSectionDoubleCompleteSubmitsOnce(t *testing.T) {
	// Simulates the timer-expiry vs. user-click race.
	sub := &fakeSubmitter{delay: 10 * time.Millisecond}
	r := newTestRunner(t, &fakeProvider{}, sub, RunnerOptions{})
	require.NoError(t, r.Load(context.Background()))

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Complete(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, sub.callCount())
	assert.Equal(t, StateComplete, r.State())
}

func TestSectionTimerExpiryForcesSubmission(t *testing.T) {
	sub := &fakeSubmitter{}
	done := make(chan struct{})
	r := NewSectionRunner(model.SectionConfig{
		Name:             model.SectionQuant,
		QuestionCount:    2,
		TimeLimitMinutes: 1, // 60 fast ticks
	}, 0, 1, &fakeProvider{}, sub, RunnerOptions{
		TickInterval: testTick,
		Log:          zerolog.Nop(),
		OnComplete:   func(*model.SectionResult) { close(done) },
	})
	t.Cleanup(r.Close)

	require.NoError(t, r.Load(context.Background()))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timer expiry did not force submission")
	}

	// A manual complete racing in after expiry must not resubmit.
	require.NoError(t, r.Complete(context.Background()))
	assert.Equal(t, 1, sub.callCount())
}

func TestSectionSubmitFailureThenRetry(t *testing.T) {
	sub := &fakeSubmitter{fail: true}
	r := newTestRunner(t, &fakeProvider{}, sub, RunnerOptions{})
	require.NoError(t, r.Load(context.Background()))

	require.Error(t, r.Complete(context.Background()))
	assert.Equal(t, StateError, r.State())

	sub.mu.Lock()
	sub.fail = false
	sub.mu.Unlock()

	require.NoError(t, r.Retry(context.Background()))
	assert.Equal(t, StateComplete, r.State())
	assert.Equal(t, 2, sub.callCount())
}

func TestSectionMutationsRejectedWhenNotActive(t *testing.T) {
	r := newTestRunner(t, &fakeProvider{}, &fakeSubmitter{}, RunnerOptions{})
	require.NoError(t, r.Load(context.Background()))

	qid := r.Snapshot().Questions[0].ID
	require.NoError(t, r.Complete(context.Background()))

	assert.ErrorIs(t, r.SelectAnswer(qid, "A"), ErrSectionNotActive)
	assert.ErrorIs(t, r.ToggleFlag(qid), ErrSectionNotActive)
	assert.ErrorIs(t, r.Next(), ErrSectionNotActive)
}
