package score

import (
	"testing"

	"github.com/google/uuid"
	"github.com/prepside/gmat-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(qtype model.QuestionType, explanation string, correct bool) model.QuestionResult {
	return model.QuestionResult{
		QuestionID:   uuid.New(),
		QuestionType: qtype,
		Explanation:  explanation,
		Correct:      correct,
	}
}

func TestExtractType(t *testing.T) {
	cases := []struct {
		name string
		in   model.QuestionResult
		want string
	}{
		{"stored type wins", result(model.QuestionTypeCriticalReasoning, "This is a Data Sufficiency question.", true), "Critical Reasoning"},
		{"from explanation", result("", "This is a Problem Solving question testing ratios.", false), "Problem Solving"},
		{"an article", result("", "This is an Algebra question.", false), "Algebra"},
		{"no marker", result("", "Pick the answer that must be true.", false), UnknownType},
		{"empty explanation", result("", "", true), UnknownType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractType(tc.in))
		})
	}
}

func TestPercentage(t *testing.T) {
	assert.InDelta(t, 70.3, Percentage(45, 64), 0.001)
	assert.InDelta(t, 100.0, Percentage(21, 21), 0.001)
	assert.InDelta(t, 0.0, Percentage(0, 20), 0.001)
	assert.Equal(t, 0.0, Percentage(5, 0))
	assert.Equal(t, 0.0, Percentage(0, 0))
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "12m 34s", FormatSeconds(754))
	assert.Equal(t, "0m 0s", FormatSeconds(0))
	assert.Equal(t, "0m 59s", FormatSeconds(59))
	assert.Equal(t, "45m 0s", FormatSeconds(2700))
	assert.Equal(t, "0m 0s", FormatSeconds(-3))
}

func TestTypeBreakdown(t *testing.T) {
	results := []model.QuestionResult{
		result(model.QuestionTypeProblemSolving, "", true),
		result(model.QuestionTypeProblemSolving, "", false),
		result(model.QuestionTypeProblemSolving, "", true),
		result("", "This is a Critical Reasoning question.", true),
		result("", "no marker here", false),
	}

	byType := TypeBreakdown(results)
	require.Len(t, byType, 3)

	ps := byType["Problem Solving"]
	assert.Equal(t, 3, ps.Total)
	assert.Equal(t, 2, ps.Correct)
	assert.InDelta(t, 66.7, ps.Percentage, 0.001)

	cr := byType["Critical Reasoning"]
	assert.Equal(t, 1, cr.Total)
	assert.Equal(t, 1, cr.Correct)

	unknown := byType[UnknownType]
	assert.Equal(t, 1, unknown.Total)
	assert.Equal(t, 0, unknown.Correct)
}

func TestQuizReport(t *testing.T) {
	sub := &model.Submission{
		Score:            3,
		Total:            5,
		TimeSpentSeconds: 125,
		Results: []model.QuestionResult{
			result(model.QuestionTypeDataSufficiency, "", true),
			result(model.QuestionTypeDataSufficiency, "", true),
			result(model.QuestionTypeDataSufficiency, "", false),
			result(model.QuestionTypeProblemSolving, "", true),
			result(model.QuestionTypeProblemSolving, "", false),
		},
	}

	rep := QuizReport(sub)
	assert.Equal(t, 3, rep.Score)
	assert.Equal(t, 5, rep.Total)
	assert.InDelta(t, 60.0, rep.Percentage, 0.001)
	assert.Equal(t, "2m 5s", rep.TimeSpent)
	assert.Len(t, rep.ByType, 2)
}

func TestQuizReportNil(t *testing.T) {
	rep := QuizReport(nil)
	assert.Equal(t, 0, rep.Score)
	assert.Equal(t, 0, rep.Total)
	assert.Equal(t, 0.0, rep.Percentage)
	assert.NotNil(t, rep.ByType)
}

func sectionResult(name model.SectionName, score, total, timeSpent int) model.SectionResult {
	return model.SectionResult{
		SectionName:      name,
		QuestionCount:    total,
		TimeSpentSeconds: timeSpent,
		Submission: &model.Submission{
			Score:            score,
			Total:            total,
			TimeSpentSeconds: timeSpent,
		},
	}
}

func TestAggregateFocus(t *testing.T) {
	results := []model.SectionResult{
		sectionResult(model.SectionQuant, 15, 21, 2400),
		sectionResult(model.SectionVerbal, 18, 23, 2700),
		sectionResult(model.SectionData, 12, 20, 2500),
	}

	rep := AggregateFocus(results)
	assert.Equal(t, 45, rep.TotalScore)
	assert.Equal(t, 64, rep.TotalQuestions)
	assert.InDelta(t, 70.3, rep.Percentage, 0.001)
	assert.Equal(t, 7600, rep.TimeSpentSeconds)

	require.Len(t, rep.Sections, 3)
	assert.Equal(t, model.SectionQuant, rep.Sections[0].SectionName)
	assert.InDelta(t, 71.4, rep.Sections[0].Percentage, 0.001)
	assert.Equal(t, "40m 0s", rep.Sections[0].TimeSpent)
}

func TestAggregateFocusTolerantOfGaps(t *testing.T) {
	results := []model.SectionResult{
		sectionResult(model.SectionQuant, 10, 21, 1200),
		{SectionName: model.SectionVerbal, TimeSpentSeconds: 300}, // submission lost
	}

	rep := AggregateFocus(results)
	assert.Equal(t, 10, rep.TotalScore)
	assert.Equal(t, 21, rep.TotalQuestions)
	assert.Equal(t, 1500, rep.TimeSpentSeconds)
	require.Len(t, rep.Sections, 2)
	assert.Equal(t, 0, rep.Sections[1].Total)
}

func TestAggregateFocusEmpty(t *testing.T) {
	rep := AggregateFocus(nil)
	assert.Equal(t, 0, rep.TotalScore)
	assert.Equal(t, 0.0, rep.Percentage)
	assert.NotNil(t, rep.ByType)
	assert.Empty(t, rep.Sections)
}
