package app

import (
	"context"

	"quiz-attempt-service/internal/domain"
)

// QuizRepository loads quiz content (from cache/backing store). The engine
// never mutates quizzes.
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// AttemptStore abstracts how attempt records are persisted (in-memory, Redis,
// Postgres). It is the sole arbiter of exactly-once submission: a second
// RecordSubmission for the same attempt ID must fail with
// domain.ErrAlreadySubmitted, even across independent controller instances.
type AttemptStore interface {
	// CreateAttempt creates an InProgress record. Fails with
	// domain.ErrQuizNotFound or domain.ErrQuizInactive.
	CreateAttempt(ctx context.Context, quizID, takerID string) (domain.Attempt, error)
	// RecordSubmission persists the final answers and result, exactly once.
	RecordSubmission(ctx context.Context, attemptID string, answers map[string]string, result domain.Result) error
	// GetAttempt fetches a single attempt record.
	GetAttempt(ctx context.Context, attemptID string) (domain.Attempt, error)
	// ListAttempts returns a taker's attempts for a quiz, most recent first.
	ListAttempts(ctx context.Context, quizID, takerID string) ([]domain.Attempt, error)
}

// AttemptService wires quiz content to attempt controllers.
type AttemptService struct {
	quizzes QuizRepository
	store   AttemptStore
}

func NewAttemptService(quizzes QuizRepository, store AttemptStore) *AttemptService {
	return &AttemptService{quizzes: quizzes, store: store}
}

// StartAttempt loads and validates the quiz, then starts a controller for it.
func (s *AttemptService) StartAttempt(ctx context.Context, quizID, takerID string) (*Controller, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if err := quiz.Validate(); err != nil {
		return nil, err
	}
	quiz.SortQuestions()

	controller := NewController(quiz, s.store)
	if _, err := controller.Start(ctx, takerID); err != nil {
		return nil, err
	}
	return controller, nil
}

// History returns the taker's attempts for a quiz, most recent first.
func (s *AttemptService) History(ctx context.Context, quizID, takerID string) ([]domain.Attempt, error) {
	return s.store.ListAttempts(ctx, quizID, takerID)
}
