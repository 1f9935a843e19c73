package model

import (
	"time"

	"github.com/google/uuid"
)

// QuizStatus enumerates quiz lifecycle states.
type QuizStatus string

const (
	QuizStatusInProgress QuizStatus = "IN_PROGRESS"
	QuizStatusCompleted  QuizStatus = "COMPLETED"
)

// QuizKind distinguishes standalone practice quizzes from GMAT Focus sections.
type QuizKind string

const (
	QuizKindPractice     QuizKind = "practice"
	QuizKindFocusSection QuizKind = "focus_section"
)

// Quiz represents one server-issued question set and its eventual score.
type Quiz struct {
	ID               uuid.UUID  `json:"id"`
	UserID           int        `json:"user_id"`
	Kind             QuizKind   `json:"kind"`
	QuestionCount    int        `json:"question_count"`
	TimeLimitMinutes int        `json:"time_limit_minutes"`
	Status           QuizStatus `json:"status"`
	Score            *int       `json:"score,omitempty"`
	TimeSpentSeconds *int       `json:"time_spent_seconds,omitempty"`
	StartedAt        time.Time  `json:"started_at"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
}

// StartQuizRequest is the payload for fetching a random question set.
type StartQuizRequest struct {
	Count            int             `json:"count" binding:"required,min=1,max=50"`
	TimeLimitMinutes int             `json:"time_limit_minutes" binding:"required,min=1,max=180"`
	Filters          QuestionFilters `json:"filters"`
}

// QuizSet is the question batch handed to a taker when a quiz starts.
type QuizSet struct {
	QuizID           uuid.UUID          `json:"quiz_id"`
	Questions        []QuestionForTaker `json:"questions"`
	TimeLimitMinutes int                `json:"time_limit_minutes"`
}

// SubmitAnswersRequest carries the taker's answers for scoring. Keys are
// question ids; values are the selected answer letters. Unanswered questions
// are simply absent and score as incorrect.
type SubmitAnswersRequest struct {
	Answers          map[uuid.UUID]string `json:"answers"`
	TimeSpentSeconds int                  `json:"time_spent_seconds" binding:"min=0"`
}

// QuestionResult is the per-question outcome of a scored submission.
type QuestionResult struct {
	QuestionID    uuid.UUID    `json:"question_id"`
	UserAnswer    string       `json:"user_answer"`
	Correct       bool         `json:"correct"`
	CorrectAnswer string       `json:"correct_answer"`
	Explanation   string       `json:"explanation"`
	QuestionType  QuestionType `json:"question_type,omitempty"`
	QuestionText  string       `json:"question_text,omitempty"`
}

// Submission is the scored outcome of a completed quiz.
type Submission struct {
	QuizID           uuid.UUID        `json:"quiz_id"`
	Score            int              `json:"score"`
	Total            int              `json:"total"`
	Percentage       float64          `json:"percentage"`
	TimeSpentSeconds int              `json:"time_spent_seconds"`
	Results          []QuestionResult `json:"results"`
}
