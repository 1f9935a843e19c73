package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepside/gmat-backend/internal/model"
)

var ErrRunNotFound = errors.New("focus run not found")

// FocusRepository persists GMAT Focus run records. The live state machine is
// in-memory; these rows are the durable audit trail and history feed.
type FocusRepository struct {
	pool *pgxpool.Pool
}

// NewFocusRepository creates a new FocusRepository.
func NewFocusRepository(pool *pgxpool.Pool) *FocusRepository {
	return &FocusRepository{pool: pool}
}

// Create inserts a run record at start time.
func (r *FocusRepository) Create(ctx context.Context, rec *model.FocusRunRecord) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO focus_runs (id, user_id, section_order, break_after)
		 VALUES ($1, $2, $3, $4)
		 RETURNING started_at`,
		rec.ID, rec.UserID, rec.SectionOrder, rec.BreakAfter,
	).Scan(&rec.StartedAt)
}

// Complete stamps the run with its totals once all sections are scored.
func (r *FocusRepository) Complete(ctx context.Context, id uuid.UUID, totalScore, totalQuestions int) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE focus_runs
		 SET completed_at = NOW(), total_score = $1, total_questions = $2
		 WHERE id = $3 AND completed_at IS NULL`,
		totalScore, totalQuestions, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}
	return nil
}

// GetByID retrieves one run record.
func (r *FocusRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.FocusRunRecord, error) {
	rec := &model.FocusRunRecord{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, section_order, break_after, started_at, completed_at, total_score, total_questions
		 FROM focus_runs WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.UserID, &rec.SectionOrder, &rec.BreakAfter,
		&rec.StartedAt, &rec.CompletedAt, &rec.TotalScore, &rec.TotalQuestions)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// CountStartedToday returns how many runs the user started since midnight
// UTC, for daily access caps.
func (r *FocusRepository) CountStartedToday(ctx context.Context, userID int) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM focus_runs
		 WHERE user_id = $1 AND started_at >= date_trunc('day', NOW() AT TIME ZONE 'UTC')`,
		userID,
	).Scan(&n)
	return n, err
}

// ListByUser returns the user's run history, most recent first.
func (r *FocusRepository) ListByUser(ctx context.Context, userID, limit int) ([]model.FocusRunRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, section_order, break_after, started_at, completed_at, total_score, total_questions
		 FROM focus_runs WHERE user_id = $1
		 ORDER BY started_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []model.FocusRunRecord
	for rows.Next() {
		var rec model.FocusRunRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.SectionOrder, &rec.BreakAfter,
			&rec.StartedAt, &rec.CompletedAt, &rec.TotalScore, &rec.TotalQuestions); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
