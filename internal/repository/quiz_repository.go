package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepside/gmat-backend/internal/model"
)

var (
	ErrQuizNotFound      = errors.New("quiz not found")
	ErrSubmissionMissing = errors.New("submission not found")
)

// QuizRepository handles quiz and submission data access.
type QuizRepository struct {
	pool *pgxpool.Pool
}

// NewQuizRepository creates a new QuizRepository.
func NewQuizRepository(pool *pgxpool.Pool) *QuizRepository {
	return &QuizRepository{pool: pool}
}

// Create inserts the quiz row and its question membership in one transaction.
func (r *QuizRepository) Create(ctx context.Context, q *model.Quiz, questionIDs []uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO quizzes (id, user_id, kind, question_count, time_limit_minutes, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING started_at`,
		q.ID, q.UserID, q.Kind, q.QuestionCount, q.TimeLimitMinutes, q.Status,
	).Scan(&q.StartedAt)
	if err != nil {
		return err
	}

	rows := make([][]interface{}, len(questionIDs))
	for i, qid := range questionIDs {
		rows[i] = []interface{}{q.ID, qid, i}
	}
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"quiz_questions"},
		[]string{"quiz_id", "question_id", "position"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetByID retrieves a quiz by ID.
func (r *QuizRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	q := &model.Quiz{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, kind, question_count, time_limit_minutes, status, score, time_spent_seconds, started_at, finished_at
		 FROM quizzes WHERE id = $1`, id,
	).Scan(&q.ID, &q.UserID, &q.Kind, &q.QuestionCount, &q.TimeLimitMinutes, &q.Status,
		&q.Score, &q.TimeSpentSeconds, &q.StartedAt, &q.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrQuizNotFound
	}
	if err != nil {
		return nil, err
	}
	return q, nil
}

// GetQuestionIDs returns the quiz's question ids in issue order.
func (r *QuizRepository) GetQuestionIDs(ctx context.Context, quizID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT question_id FROM quiz_questions WHERE quiz_id = $1 ORDER BY position`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkCompleted flips the quiz to COMPLETED and reports whether this call won
// the transition. The score fields are filled in later by the result worker.
func (r *QuizRepository) MarkCompleted(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE quizzes SET status = $1 WHERE id = $2 AND status = $3`,
		model.QuizStatusCompleted, id, model.QuizStatusInProgress,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// CountStartedToday returns how many quizzes of the kind the user started
// since midnight UTC, for daily access caps.
func (r *QuizRepository) CountStartedToday(ctx context.Context, userID int, kind model.QuizKind) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM quizzes
		 WHERE user_id = $1 AND kind = $2 AND started_at >= date_trunc('day', NOW() AT TIME ZONE 'UTC')`,
		userID, kind,
	).Scan(&n)
	return n, err
}

// GetSubmission retrieves the persisted scored submission for a quiz.
func (r *QuizRepository) GetSubmission(ctx context.Context, quizID uuid.UUID) (*model.Submission, error) {
	s := &model.Submission{QuizID: quizID}
	err := r.pool.QueryRow(ctx,
		`SELECT score, total, percentage, time_spent_seconds, results
		 FROM submissions WHERE quiz_id = $1`, quizID,
	).Scan(&s.Score, &s.Total, &s.Percentage, &s.TimeSpentSeconds, &s.Results)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSubmissionMissing
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
