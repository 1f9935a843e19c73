package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepside/gmat-backend/internal/config"
	"github.com/prepside/gmat-backend/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	ResultBatchSize    = 50
	ResultBatchTimeout = 2 * time.Second
	ResultPollTimeout  = 1 * time.Second
)

// ResultWorker persists graded submissions. Grading already happened in RAM;
// this worker's job is the durable write, batched for throughput.
type ResultWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewResultWorker creates a new ResultWorker.
func NewResultWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ResultWorker {
	return &ResultWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "result_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ResultWorker started")

	batch := make([]*service.ResultPayload, 0, ResultBatchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= ResultBatchSize || time.Since(lastFlush) >= ResultBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ResultPollTimeout, config.WorkerKey.PersistResultsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var p service.ResultPayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &p)
		}
	}
}

// ----------------------------------------------------------------
// Batch persistence wrapper
// ----------------------------------------------------------------

func (w *ResultWorker) flushSafe(ctx context.Context, batch []*service.ResultPayload) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkPersist(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk result persist failed, using fallback")

		for _, p := range batch {
			if err := w.persistSingle(ctx, p); err != nil {
				w.log.Error().Err(err).Msg("persistSingle failed, requeueing")
				raw, _ := json.Marshal(p)
				w.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw)
			}
		}
		return
	}

	// After durable writes → drop the Redis working set for these quizzes.
	w.bulkClearCaches(ctx, batch)
}

// ----------------------------------------------------------------
// BULK PostgreSQL write using UNNEST + alias
// ----------------------------------------------------------------

func (w *ResultWorker) bulkPersist(ctx context.Context, batch []*service.ResultPayload) error {
	n := len(batch)

	quizIDs := make([]uuid.UUID, 0, n)
	userIDs := make([]int, 0, n)
	scores := make([]int, 0, n)
	totals := make([]int, 0, n)
	percentages := make([]float64, 0, n)
	timeSpents := make([]int, 0, n)
	resultBlobs := make([][]byte, 0, n)
	finishedAts := make([]time.Time, n)

	now := time.Now()
	for i, p := range batch {
		qID, err := uuid.Parse(p.QuizID)
		if err != nil {
			return err
		}
		blob, err := json.Marshal(p.Results)
		if err != nil {
			return err
		}
		quizIDs = append(quizIDs, qID)
		userIDs = append(userIDs, p.UserID)
		scores = append(scores, p.Score)
		totals = append(totals, p.Total)
		percentages = append(percentages, p.Percentage)
		timeSpents = append(timeSpents, p.TimeSpentSeconds)
		resultBlobs = append(resultBlobs, blob)
		finishedAts[i] = now
	}

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	updateQuery := `
		UPDATE quizzes AS q
		SET score = t.score,
		    time_spent_seconds = t.time_spent,
		    finished_at = t.finished_at
		FROM (
			SELECT
				u.quiz_id,
				u.score,
				u.time_spent,
				u.finished_at
			FROM UNNEST(
				$1::uuid[],
				$2::int[],
				$3::int[],
				$4::timestamptz[]
			) AS u (quiz_id, score, time_spent, finished_at)
		) AS t
		WHERE q.id = t.quiz_id
	`
	if _, err := tx.Exec(ctx, updateQuery, quizIDs, scores, timeSpents, finishedAts); err != nil {
		return err
	}

	insertQuery := `
		INSERT INTO submissions (quiz_id, user_id, score, total, percentage, time_spent_seconds, results)
		SELECT u.quiz_id, u.user_id, u.score, u.total, u.percentage, u.time_spent, u.results
		FROM UNNEST(
			$1::uuid[],
			$2::int[],
			$3::int[],
			$4::int[],
			$5::float8[],
			$6::int[],
			$7::jsonb[]
		) AS u (quiz_id, user_id, score, total, percentage, time_spent, results)
		ON CONFLICT (quiz_id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, insertQuery, quizIDs, userIDs, scores, totals, percentages, timeSpents, resultBlobs); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ----------------------------------------------------------------
// BULK Redis DEL for scoring keys and autosave buffers
// ----------------------------------------------------------------

func (w *ResultWorker) bulkClearCaches(ctx context.Context, batch []*service.ResultPayload) {
	pipe := w.rdb.Pipeline()

	for _, p := range batch {
		pipe.Del(ctx, config.CacheKey.QuizScoringKey(p.QuizID))
		pipe.Del(ctx, config.CacheKey.QuizAutosaveKey(p.QuizID, p.UserID))
	}

	_, _ = pipe.Exec(ctx)
}

// ----------------------------------------------------------------
// FALLBACK single write
// ----------------------------------------------------------------

func (w *ResultWorker) persistSingle(ctx context.Context, p *service.ResultPayload) error {
	qID, err := uuid.Parse(p.QuizID)
	if err != nil {
		return err
	}
	blob, err := json.Marshal(p.Results)
	if err != nil {
		return err
	}

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE quizzes
		 SET score = $1, time_spent_seconds = $2, finished_at = NOW()
		 WHERE id = $3`,
		p.Score, p.TimeSpentSeconds, qID,
	); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO submissions (quiz_id, user_id, score, total, percentage, time_spent_seconds, results)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (quiz_id) DO NOTHING`,
		qID, p.UserID, p.Score, p.Total, p.Percentage, p.TimeSpentSeconds, blob,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
