// Package score turns raw submissions into display-ready reports. Everything
// here is pure: no storage, no clocks, no goroutines.
package score

import (
	"fmt"
	"math"
	"regexp"

	"github.com/prepside/gmat-backend/internal/model"
)

// typePattern pulls the question type out of explanation prose of the form
// "This is a Critical Reasoning question" / "This is an Algebra question".
var typePattern = regexp.MustCompile(`This is an? ([A-Za-z][A-Za-z \-]*?) question`)

// UnknownType buckets results whose type could not be determined.
const UnknownType = "Unknown"

// TypeStat is the per-question-type slice of a report.
type TypeStat struct {
	Total      int     `json:"total"`
	Correct    int     `json:"correct"`
	Percentage float64 `json:"percentage"`
}

// Report is the aggregated view of one scored quiz.
type Report struct {
	Score            int                 `json:"score"`
	Total            int                 `json:"total"`
	Percentage       float64             `json:"percentage"`
	TimeSpentSeconds int                 `json:"time_spent_seconds"`
	TimeSpent        string              `json:"time_spent"`
	ByType           map[string]TypeStat `json:"by_type"`
}

// SectionSummary is one section's line in a full-run report.
type SectionSummary struct {
	SectionName model.SectionName `json:"section_name"`
	Score       int               `json:"score"`
	Total       int               `json:"total"`
	Percentage  float64           `json:"percentage"`
	TimeSpent   string            `json:"time_spent"`
}

// FocusReport aggregates a complete three-section run.
type FocusReport struct {
	Sections         []SectionSummary    `json:"sections"`
	TotalScore       int                 `json:"total_score"`
	TotalQuestions   int                 `json:"total_questions"`
	Percentage       float64             `json:"percentage"`
	TimeSpentSeconds int                 `json:"time_spent_seconds"`
	TimeSpent        string              `json:"time_spent"`
	ByType           map[string]TypeStat `json:"by_type"`
}

// ExtractType resolves the question type for one result, preferring the
// stored type and falling back to the explanation text.
func ExtractType(r model.QuestionResult) string {
	if r.QuestionType != "" {
		return string(r.QuestionType)
	}
	if m := typePattern.FindStringSubmatch(r.Explanation); m != nil {
		return m[1]
	}
	return UnknownType
}

// Percentage renders 100*score/total to one decimal place. Zero total yields
// zero rather than NaN.
func Percentage(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(score)/float64(total)*1000) / 10
}

// FormatSeconds renders a duration as "Mm Ss", e.g. 754 -> "12m 34s".
func FormatSeconds(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
}

// TypeBreakdown groups results by question type and scores each group.
func TypeBreakdown(results []model.QuestionResult) map[string]TypeStat {
	byType := make(map[string]TypeStat)
	for _, r := range results {
		key := ExtractType(r)
		stat := byType[key]
		stat.Total++
		if r.Correct {
			stat.Correct++
		}
		byType[key] = stat
	}
	for key, stat := range byType {
		stat.Percentage = Percentage(stat.Correct, stat.Total)
		byType[key] = stat
	}
	return byType
}

// QuizReport builds the report for a single scored submission. A nil
// submission yields a zero-valued report.
func QuizReport(sub *model.Submission) Report {
	if sub == nil {
		return Report{ByType: map[string]TypeStat{}, TimeSpent: FormatSeconds(0)}
	}
	return Report{
		Score:            sub.Score,
		Total:            sub.Total,
		Percentage:       Percentage(sub.Score, sub.Total),
		TimeSpentSeconds: sub.TimeSpentSeconds,
		TimeSpent:        FormatSeconds(sub.TimeSpentSeconds),
		ByType:           TypeBreakdown(sub.Results),
	}
}

// AggregateFocus folds ordered section results into a run-level report.
// Sections with missing submissions contribute nothing, so a partially
// recorded run still produces a sane report.
func AggregateFocus(results []model.SectionResult) FocusReport {
	report := FocusReport{
		Sections: make([]SectionSummary, 0, len(results)),
		ByType:   map[string]TypeStat{},
	}
	var questionResults []model.QuestionResult

	for _, res := range results {
		summary := SectionSummary{
			SectionName: res.SectionName,
			TimeSpent:   FormatSeconds(res.TimeSpentSeconds),
		}
		if res.Submission != nil {
			summary.Score = res.Submission.Score
			summary.Total = res.Submission.Total
			summary.Percentage = Percentage(summary.Score, summary.Total)
			questionResults = append(questionResults, res.Submission.Results...)
		}
		report.Sections = append(report.Sections, summary)
		report.TotalScore += summary.Score
		report.TotalQuestions += summary.Total
		report.TimeSpentSeconds += res.TimeSpentSeconds
	}

	report.Percentage = Percentage(report.TotalScore, report.TotalQuestions)
	report.TimeSpent = FormatSeconds(report.TimeSpentSeconds)
	report.ByType = TypeBreakdown(questionResults)
	return report
}
