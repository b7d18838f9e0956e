package app_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/infra/memory"
)

func newTestService(quizzes map[string]domain.Quiz) *app.AttemptService {
	loader := memory.NewStaticQuizLoader(quizzes)
	repo := memory.NewQuizRepository(loader, 5*time.Minute)
	store := memory.NewAttemptStore(loader)
	return app.NewAttemptService(repo, store)
}

func TestStartAttemptFullFlow(t *testing.T) {
	ctx := context.Background()
	service := newTestService(map[string]domain.Quiz{"quiz-1": testQuiz()})

	controller, err := service.StartAttempt(ctx, "quiz-1", "u1")
	if err != nil {
		t.Fatalf("start attempt: %v", err)
	}
	if controller.State() != app.StateInProgress {
		t.Fatalf("expected InProgress, got %v", controller.State())
	}
	if controller.Remaining() != testQuiz().TimeLimitSeconds {
		t.Fatalf("expected full time budget, got %d", controller.Remaining())
	}

	if err := controller.SelectAnswer("q1", "a"); err != nil {
		t.Fatalf("select: %v", err)
	}
	result, err := controller.Submit(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score != 20 || result.TotalPoints != 40 || result.Percentage != 50 || result.Passed {
		t.Fatalf("expected 20/40 fail at threshold 70, got %+v", result)
	}

	attempts, err := service.History(ctx, "quiz-1", "u1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(attempts) != 1 || !attempts[0].Submitted() {
		t.Fatalf("expected one submitted attempt in history, got %+v", attempts)
	}
}

func TestStartAttemptUnknownQuiz(t *testing.T) {
	service := newTestService(map[string]domain.Quiz{})
	if _, err := service.StartAttempt(context.Background(), "missing", "u1"); err != domain.ErrQuizNotFound {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

func TestStartAttemptInactiveQuiz(t *testing.T) {
	quiz := testQuiz()
	quiz.IsActive = false
	service := newTestService(map[string]domain.Quiz{"quiz-1": quiz})
	if _, err := service.StartAttempt(context.Background(), "quiz-1", "u1"); err != domain.ErrQuizInactive {
		t.Fatalf("expected ErrQuizInactive, got %v", err)
	}
}

func TestStartAttemptRejectsMalformedQuiz(t *testing.T) {
	quiz := testQuiz()
	quiz.Questions[0].CorrectOptionID = "missing-option"
	service := newTestService(map[string]domain.Quiz{"quiz-1": quiz})

	_, err := service.StartAttempt(context.Background(), "quiz-1", "u1")
	if err == nil || !strings.Contains(err.Error(), "not among options") {
		t.Fatalf("expected load-time validation failure, got %v", err)
	}
}

func TestStartAttemptOrdersQuestions(t *testing.T) {
	quiz := testQuiz()
	quiz.Questions[0], quiz.Questions[1] = quiz.Questions[1], quiz.Questions[0]
	service := newTestService(map[string]domain.Quiz{"quiz-1": quiz})

	controller, err := service.StartAttempt(context.Background(), "quiz-1", "u1")
	if err != nil {
		t.Fatalf("start attempt: %v", err)
	}
	if got := controller.GoTo(0); got != 0 {
		t.Fatalf("goto 0: got %d", got)
	}
	// Anonymous attempts are allowed too.
	if _, err := service.StartAttempt(context.Background(), "quiz-1", ""); err != nil {
		t.Fatalf("anonymous start: %v", err)
	}
}
