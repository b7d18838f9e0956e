package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"quiz-attempt-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// AttemptStore persists attempts in Postgres. Exactly-once submission rests
// on `UPDATE ... WHERE completed_at IS NULL`: whichever instance updates zero
// rows lost the race and gets domain.ErrAlreadySubmitted.
type AttemptStore struct {
	pool   *pgxpool.Pool
	loader *QuizLoader
}

func NewAttemptStore(pool *pgxpool.Pool) *AttemptStore {
	return &AttemptStore{pool: pool, loader: NewQuizLoader(pool)}
}

func (s *AttemptStore) CreateAttempt(ctx context.Context, quizID, takerID string) (domain.Attempt, error) {
	quiz, err := s.loader.LoadQuiz(ctx, quizID)
	if err != nil {
		return domain.Attempt{}, err
	}
	if !quiz.IsActive {
		return domain.Attempt{}, domain.ErrQuizInactive
	}

	attempt := domain.Attempt{
		ID:        uuid.NewString(),
		QuizID:    quizID,
		TakerID:   takerID,
		StartedAt: time.Now().UTC(),
		Answers:   make(map[string]string),
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO attempts (id, quiz_id, taker_id, started_at) VALUES ($1, $2, $3, $4)`,
		attempt.ID, attempt.QuizID, attempt.TakerID, attempt.StartedAt)
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("create attempt: %w", err)
	}
	return attempt, nil
}

func (s *AttemptStore) RecordSubmission(ctx context.Context, attemptID string, answers map[string]string, result domain.Result) error {
	if answers == nil {
		answers = map[string]string{}
	}
	data, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE attempts
		 SET completed_at=$2, answers=$3, score=$4, total_points=$5, passed=$6
		 WHERE id=$1 AND completed_at IS NULL`,
		attemptID, time.Now().UTC(), data, result.Score, result.TotalPoints, result.Passed)
	if err != nil {
		return fmt.Errorf("record submission: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Zero rows: either the attempt does not exist or it was already closed.
	var completed *time.Time
	err = s.pool.QueryRow(ctx, `SELECT completed_at FROM attempts WHERE id=$1`, attemptID).Scan(&completed)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrAttemptNotFound
	}
	if err != nil {
		return fmt.Errorf("check attempt: %w", err)
	}
	return domain.ErrAlreadySubmitted
}

func (s *AttemptStore) GetAttempt(ctx context.Context, attemptID string) (domain.Attempt, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, quiz_id, taker_id, started_at, completed_at, answers, score, total_points, passed
		 FROM attempts WHERE id=$1`, attemptID)
	attempt, err := scanAttempt(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("get attempt: %w", err)
	}
	return attempt, nil
}

func (s *AttemptStore) ListAttempts(ctx context.Context, quizID, takerID string) ([]domain.Attempt, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, quiz_id, taker_id, started_at, completed_at, answers, score, total_points, passed
		 FROM attempts WHERE quiz_id=$1 AND taker_id=$2
		 ORDER BY started_at DESC`, quizID, takerID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	attempts := make([]domain.Attempt, 0)
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		attempts = append(attempts, attempt)
	}
	return attempts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAttempt(row rowScanner) (domain.Attempt, error) {
	var (
		attempt domain.Attempt
		raw     []byte
	)
	err := row.Scan(&attempt.ID, &attempt.QuizID, &attempt.TakerID, &attempt.StartedAt,
		&attempt.CompletedAt, &raw, &attempt.Score, &attempt.TotalPoints, &attempt.Passed)
	if err != nil {
		return domain.Attempt{}, err
	}
	attempt.Answers = make(map[string]string)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &attempt.Answers); err != nil {
			return domain.Attempt{}, fmt.Errorf("unmarshal answers: %w", err)
		}
	}
	return attempt, nil
}
