package model

import (
	"time"

	"github.com/google/uuid"
)

// SectionName identifies one of the three fixed GMAT Focus sections.
type SectionName string

const (
	SectionQuant  SectionName = "Quantitative Reasoning"
	SectionVerbal SectionName = "Verbal Reasoning"
	SectionData   SectionName = "Data Insights"
)

// Valid reports whether the name is one of the three fixed sections.
func (n SectionName) Valid() bool {
	switch n {
	case SectionQuant, SectionVerbal, SectionData:
		return true
	}
	return false
}

// SectionConfig is the static per-section descriptor: how many questions,
// the time limit, and which question types/categories may be drawn.
type SectionConfig struct {
	Name             SectionName `json:"name" yaml:"name"`
	QuestionCount    int         `json:"question_count" yaml:"question_count"`
	TimeLimitMinutes int         `json:"time_limit_minutes" yaml:"time_limit_minutes"`
	QuestionTypes    []string    `json:"question_types" yaml:"question_types"`
	Categories       []string    `json:"categories" yaml:"categories"`
}

// SectionResult is the finalized, scored outcome of one completed section.
// Immutable once created.
type SectionResult struct {
	SectionIndex     int                  `json:"section_index"`
	SectionName      SectionName          `json:"section_name"`
	Submission       *Submission          `json:"submission"`
	TimeSpentSeconds int                  `json:"time_spent_seconds"`
	QuestionCount    int                  `json:"question_count"`
	Answers          map[uuid.UUID]string `json:"answers"`
}

// FocusRunRecord is the persisted row for a GMAT Focus run.
type FocusRunRecord struct {
	ID             uuid.UUID     `json:"id"`
	UserID         int           `json:"user_id"`
	SectionOrder   []SectionName `json:"section_order"`
	BreakAfter     int           `json:"break_after_section"`
	StartedAt      time.Time     `json:"started_at"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
	TotalScore     *int          `json:"total_score,omitempty"`
	TotalQuestions *int          `json:"total_questions,omitempty"`
}

// StartFocusRequest is the payload for starting a GMAT Focus run. The order
// must be a permutation of the three fixed sections; BreakAfterSection is
// 1 (after the first section), 2 (after the second), or 0 for no break.
// Both are locked in once the run starts.
type StartFocusRequest struct {
	SectionOrder      []SectionName `json:"section_order" binding:"required,len=3"`
	BreakAfterSection int           `json:"break_after_section" binding:"min=0,max=2"`
}

// AnswerRequest records/overwrites the answer for one question in the
// currently active section.
type AnswerRequest struct {
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
	Answer     string    `json:"answer" binding:"required,min=1,max=10"`
}

// FlagRequest toggles the review flag on a question in the active section.
type FlagRequest struct {
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
}
