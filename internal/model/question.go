package model

import (
	"time"

	"github.com/google/uuid"
)

// QuestionType enumerates the GMAT Focus question formats.
type QuestionType string

const (
	QuestionTypeProblemSolving         QuestionType = "Problem Solving"
	QuestionTypeDataSufficiency        QuestionType = "Data Sufficiency"
	QuestionTypeCriticalReasoning      QuestionType = "Critical Reasoning"
	QuestionTypeReadingComprehension   QuestionType = "Reading Comprehension"
	QuestionTypeTwoPartAnalysis        QuestionType = "Two-Part Analysis"
	QuestionTypeMultiSourceReasoning   QuestionType = "Multi-Source Reasoning"
	QuestionTypeTableAnalysis          QuestionType = "Table Analysis"
	QuestionTypeGraphicsInterpretation QuestionType = "Graphics Interpretation"
)

// Question represents a single prep question including its scoring key.
// The scoring fields never leave the server; takers see QuestionForTaker.
type Question struct {
	ID            uuid.UUID    `json:"id"`
	Text          string       `json:"text"`
	Options       []string     `json:"options"`
	QuestionType  QuestionType `json:"question_type"`
	Passage       string       `json:"passage,omitempty"`
	CorrectAnswer string       `json:"correct_answer"`
	Explanation   string       `json:"explanation"`
	Difficulty    string       `json:"difficulty"`
	Category      string       `json:"category"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// QuestionForTaker is a question stripped of its answer key, sent to takers.
type QuestionForTaker struct {
	ID           uuid.UUID    `json:"id"`
	Text         string       `json:"text"`
	Options      []string     `json:"options"`
	QuestionType QuestionType `json:"question_type"`
	Passage      string       `json:"passage,omitempty"`
	Difficulty   string       `json:"difficulty"`
	Category     string       `json:"category"`
}

// ForTaker converts a full question to its taker-safe view.
func (q Question) ForTaker() QuestionForTaker {
	return QuestionForTaker{
		ID:           q.ID,
		Text:         q.Text,
		Options:      q.Options,
		QuestionType: q.QuestionType,
		Passage:      q.Passage,
		Difficulty:   q.Difficulty,
		Category:     q.Category,
	}
}

// QuestionFilters narrows random question selection.
type QuestionFilters struct {
	QuestionTypes []string `json:"question_types" binding:"omitempty,max=10"`
	Categories    []string `json:"categories" binding:"omitempty,max=10"`
	Difficulty    string   `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
}

// CreateQuestionRequest is the admin payload for adding a question.
type CreateQuestionRequest struct {
	Text          string   `json:"text" binding:"required,min=1,max=8000"`
	Options       []string `json:"options" binding:"required,min=2,max=8,dive,min=1,max=2000"`
	QuestionType  string   `json:"question_type" binding:"required,min=2,max=50"`
	Passage       string   `json:"passage" binding:"omitempty,max=16000"`
	CorrectAnswer string   `json:"correct_answer" binding:"required,min=1,max=10"`
	Explanation   string   `json:"explanation" binding:"omitempty,max=16000"`
	Difficulty    string   `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
	Category      string   `json:"category" binding:"required,min=2,max=100"`
}

// UpdateQuestionRequest is the admin payload for editing a question.
type UpdateQuestionRequest struct {
	Text          string   `json:"text" binding:"omitempty,min=1,max=8000"`
	Options       []string `json:"options" binding:"omitempty,min=2,max=8,dive,min=1,max=2000"`
	QuestionType  string   `json:"question_type" binding:"omitempty,min=2,max=50"`
	Passage       *string  `json:"passage" binding:"omitempty,max=16000"`
	CorrectAnswer string   `json:"correct_answer" binding:"omitempty,min=1,max=10"`
	Explanation   *string  `json:"explanation" binding:"omitempty,max=16000"`
	Difficulty    string   `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
	Category      string   `json:"category" binding:"omitempty,min=2,max=100"`
}
