package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"quiz-attempt-service/internal/domain"
	"github.com/google/uuid"
)

// AttemptStore is an in-memory implementation of app.AttemptStore, useful for
// demo mode and tests. The loader is consulted so attempts cannot be created
// against unknown or inactive quizzes.
type AttemptStore struct {
	loader QuizLoader
	clock  func() time.Time

	mu       sync.RWMutex
	attempts map[string]domain.Attempt
}

func NewAttemptStore(loader QuizLoader) *AttemptStore {
	return &AttemptStore{
		loader:   loader,
		clock:    time.Now,
		attempts: make(map[string]domain.Attempt),
	}
}

// NewAttemptStoreWithClock is test-only for deterministic timestamps.
func NewAttemptStoreWithClock(loader QuizLoader, now func() time.Time) *AttemptStore {
	store := NewAttemptStore(loader)
	store.clock = now
	return store
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
		StartedAt: s.clock(),
		Answers:   make(map[string]string),
	}

	s.mu.Lock()
	s.attempts[attempt.ID] = attempt
	s.mu.Unlock()
	return attempt, nil
}

func (s *AttemptStore) RecordSubmission(ctx context.Context, attemptID string, answers map[string]string, result domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempt, ok := s.attempts[attemptID]
	if !ok {
		return domain.ErrAttemptNotFound
	}
	if attempt.Submitted() {
		return domain.ErrAlreadySubmitted
	}

	completedAt := s.clock()
	attempt.CompletedAt = &completedAt
	attempt.Answers = copyAnswers(answers)
	score, total, passed := result.Score, result.TotalPoints, result.Passed
	attempt.Score = &score
	attempt.TotalPoints = &total
	attempt.Passed = &passed

	s.attempts[attemptID] = attempt
	return nil
}

func (s *AttemptStore) GetAttempt(_ context.Context, attemptID string) (domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[attemptID]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	attempt.Answers = copyAnswers(attempt.Answers)
	return attempt, nil
}

func (s *AttemptStore) ListAttempts(_ context.Context, quizID, takerID string) ([]domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	attempts := make([]domain.Attempt, 0)
	for _, attempt := range s.attempts {
		if attempt.QuizID == quizID && attempt.TakerID == takerID {
			attempt.Answers = copyAnswers(attempt.Answers)
			attempts = append(attempts, attempt)
		}
	}
	sort.Slice(attempts, func(i, j int) bool {
		return attempts[i].StartedAt.After(attempts[j].StartedAt)
	})
	return attempts, nil
}

func copyAnswers(answers map[string]string) map[string]string {
	copied := make(map[string]string, len(answers))
	for questionID, optionID := range answers {
		copied[questionID] = optionID
	}
	return copied
}
