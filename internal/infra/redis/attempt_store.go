package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"quiz-attempt-service/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// QuizSource supplies quiz config so attempts cannot be created against
// unknown or inactive quizzes. app.QuizRepository satisfies it.
type QuizSource interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// AttemptStore keeps attempt records in Redis:
//   - attempt:{id}                 full attempt JSON
//   - attempts:{quizID}:{takerID}  sorted set of attempt IDs scored by StartedAt
//
// Submissions go through WATCH/MULTI on the attempt key, so the completed
// check and the record write land atomically; a raced second submission
// loses its EXEC instead of leaving a half-written record behind.
// Attempt keys carry no TTL; retention is the surrounding platform's call.
type AttemptStore struct {
	client  *redis.Client
	quizzes QuizSource
	clock   func() time.Time
}

func NewAttemptStore(client *redis.Client, quizzes QuizSource) *AttemptStore {
	return &AttemptStore{client: client, quizzes: quizzes, clock: time.Now}
}

func (s *AttemptStore) CreateAttempt(ctx context.Context, quizID, takerID string) (domain.Attempt, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
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
		StartedAt: s.clock().UTC(),
		Answers:   make(map[string]string),
	}
	if err := s.writeAttempt(ctx, attempt); err != nil {
		return domain.Attempt{}, err
	}

	err = s.client.ZAdd(ctx, s.indexKey(quizID, takerID), redis.Z{
		Score:  float64(attempt.StartedAt.UnixNano()),
		Member: attempt.ID,
	}).Err()
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("index attempt: %w", err)
	}
	return attempt, nil
}

func (s *AttemptStore) RecordSubmission(ctx context.Context, attemptID string, answers map[string]string, result domain.Result) error {
	key := s.attemptKey(attemptID)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return domain.ErrAttemptNotFound
		}
		if err != nil {
			return fmt.Errorf("get attempt: %w", err)
		}
		var attempt domain.Attempt
		if err := json.Unmarshal(raw, &attempt); err != nil {
			return fmt.Errorf("unmarshal attempt: %w", err)
		}
		if attempt.Submitted() {
			return domain.ErrAlreadySubmitted
		}

		completedAt := s.clock().UTC()
		attempt.CompletedAt = &completedAt
		attempt.Answers = answers
		if attempt.Answers == nil {
			attempt.Answers = make(map[string]string)
		}
		score, total, passed := result.Score, result.TotalPoints, result.Passed
		attempt.Score = &score
		attempt.TotalPoints = &total
		attempt.Passed = &passed

		data, err := json.Marshal(attempt)
		if err != nil {
			return fmt.Errorf("marshal attempt: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}, key)

	if err == redis.TxFailedErr {
		// The key changed between the read and EXEC. Only submissions write
		// attempt keys, so the race was lost to another instance.
		return domain.ErrAlreadySubmitted
	}
	return err
}

func (s *AttemptStore) GetAttempt(ctx context.Context, attemptID string) (domain.Attempt, error) {
	raw, err := s.client.Get(ctx, s.attemptKey(attemptID)).Bytes()
	if err == redis.Nil {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("get attempt: %w", err)
	}
	var attempt domain.Attempt
	if err := json.Unmarshal(raw, &attempt); err != nil {
		return domain.Attempt{}, fmt.Errorf("unmarshal attempt: %w", err)
	}
	return attempt, nil
}

func (s *AttemptStore) ListAttempts(ctx context.Context, quizID, takerID string) ([]domain.Attempt, error) {
	ids, err := s.client.ZRevRange(ctx, s.indexKey(quizID, takerID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	attempts := make([]domain.Attempt, 0, len(ids))
	for _, id := range ids {
		attempt, err := s.GetAttempt(ctx, id)
		if err == domain.ErrAttemptNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, attempt)
	}
	return attempts, nil
}

func (s *AttemptStore) writeAttempt(ctx context.Context, attempt domain.Attempt) error {
	data, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("marshal attempt: %w", err)
	}
	if err := s.client.Set(ctx, s.attemptKey(attempt.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("write attempt: %w", err)
	}
	return nil
}

func (s *AttemptStore) attemptKey(attemptID string) string {
	return "attempt:" + attemptID
}

func (s *AttemptStore) indexKey(quizID, takerID string) string {
	if takerID == "" {
		takerID = "-"
	}
	return "attempts:" + quizID + ":" + takerID
}
