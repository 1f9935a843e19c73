package repository

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepside/gmat-backend/internal/model"
)

var ErrQuestionNotFound = errors.New("question not found")

const questionColumns = `id, text, options, question_type, COALESCE(passage, ''), correct_answer, COALESCE(explanation, ''), COALESCE(difficulty, ''), category, created_at, updated_at`

// QuestionRepository handles question bank data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

func scanQuestion(row pgx.Row) (*model.Question, error) {
	q := &model.Question{}
	err := row.Scan(&q.ID, &q.Text, &q.Options, &q.QuestionType, &q.Passage,
		&q.CorrectAnswer, &q.Explanation, &q.Difficulty, &q.Category, &q.CreatedAt, &q.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrQuestionNotFound
	}
	if err != nil {
		return nil, err
	}
	return q, nil
}

// GetByID retrieves a question including its answer key.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	return scanQuestion(r.pool.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = $1`, id))
}

// GetRandom draws up to count questions matching the filters, in random order.
func (r *QuestionRepository) GetRandom(ctx context.Context, count int, filters model.QuestionFilters) ([]model.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions`
	var args []interface{}
	var conds []string
	argIdx := 1

	if len(filters.QuestionTypes) > 0 {
		conds = append(conds, `question_type = ANY($`+strconv.Itoa(argIdx)+`)`)
		args = append(args, filters.QuestionTypes)
		argIdx++
	}
	if len(filters.Categories) > 0 {
		conds = append(conds, `category = ANY($`+strconv.Itoa(argIdx)+`)`)
		args = append(args, filters.Categories)
		argIdx++
	}
	if filters.Difficulty != "" {
		conds = append(conds, `difficulty = $`+strconv.Itoa(argIdx))
		args = append(args, filters.Difficulty)
		argIdx++
	}

	for i, c := range conds {
		if i == 0 {
			query += ` WHERE ` + c
		} else {
			query += ` AND ` + c
		}
	}
	query += ` ORDER BY random() LIMIT $` + strconv.Itoa(argIdx)
	args = append(args, count)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.Text, &q.Options, &q.QuestionType, &q.Passage,
			&q.CorrectAnswer, &q.Explanation, &q.Difficulty, &q.Category, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// GetByIDs retrieves the given questions with their answer keys, used when
// rebuilding a scoring key from Postgres.
func (r *QuestionRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.Text, &q.Options, &q.QuestionType, &q.Passage,
			&q.CorrectAnswer, &q.Explanation, &q.Difficulty, &q.Category, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ListPaginated retrieves questions with pagination for the admin console.
func (r *QuestionRepository) ListPaginated(ctx context.Context, limit, offset int) ([]model.Question, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM questions`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.Text, &q.Options, &q.QuestionType, &q.Passage,
			&q.CorrectAnswer, &q.Explanation, &q.Difficulty, &q.Category, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, 0, err
		}
		questions = append(questions, q)
	}
	return questions, total, rows.Err()
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (text, options, question_type, passage, correct_answer, explanation, difficulty, category)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''), NULLIF($7, ''), $8)
		 RETURNING id, created_at, updated_at`,
		q.Text, q.Options, q.QuestionType, q.Passage, q.CorrectAnswer, q.Explanation, q.Difficulty, q.Category,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
}

// Update rewrites a question's full record.
func (r *QuestionRepository) Update(ctx context.Context, q *model.Question) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE questions
		 SET text = $1, options = $2, question_type = $3, passage = NULLIF($4, ''),
		     correct_answer = $5, explanation = NULLIF($6, ''), difficulty = NULLIF($7, ''),
		     category = $8, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $9`,
		q.Text, q.Options, q.QuestionType, q.Passage, q.CorrectAnswer, q.Explanation, q.Difficulty, q.Category, q.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrQuestionNotFound
	}
	return nil
}

// Delete removes a question by ID.
func (r *QuestionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrQuestionNotFound
	}
	return nil
}
