package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"quiz-attempt-service/internal/domain"
)

// State enumerates the attempt lifecycle. Submitted is terminal.
type State int

const (
	StateNotStarted State = iota
	StateInProgress
	StateSubmitted
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateInProgress:
		return "in_progress"
	case StateSubmitted:
		return "submitted"
	default:
		return "unknown"
	}
}

// Controller drives a single attempt through its lifecycle. It owns the only
// mutable in-memory state for the attempt: the countdown, the cursor, and the
// captured answers. The controller is clock-agnostic; whoever owns it calls
// Tick once per second.
type Controller struct {
	mu    sync.Mutex
	quiz  domain.Quiz
	store AttemptStore

	state        State
	attempt      domain.Attempt
	current      int
	remaining    int
	submitFailed bool
	answers      map[string]string
	result       domain.Result
}

// NewController prepares a NotStarted controller for the given quiz.
func NewController(quiz domain.Quiz, store AttemptStore) *Controller {
	return &Controller{
		quiz:    quiz,
		store:   store,
		state:   StateNotStarted,
		answers: make(map[string]string),
	}
}

// Start moves NotStarted -> InProgress, creating the attempt record through
// the store. The store is the authority on per-taker uniqueness.
func (c *Controller) Start(ctx context.Context, takerID string) (domain.Attempt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateNotStarted {
		return domain.Attempt{}, domain.ErrAttemptStarted
	}
	if !c.quiz.IsActive {
		return domain.Attempt{}, domain.ErrQuizInactive
	}

	attempt, err := c.store.CreateAttempt(ctx, c.quiz.ID, takerID)
	if err != nil {
		return domain.Attempt{}, err
	}

	c.attempt = attempt
	c.state = StateInProgress
	c.remaining = c.quiz.TimeLimitSeconds
	c.current = 0
	return attempt, nil
}

// SelectAnswer records (or with an empty optionID clears) the taker's answer
// for a question. Last write wins. Invalid input is rejected without mutating
// anything.
func (c *Controller) SelectAnswer(questionID, optionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateInProgress {
		return domain.ErrNotInProgress
	}
	question, ok := c.quiz.Question(questionID)
	if !ok {
		return domain.ErrQuestionNotFound
	}
	if optionID == "" {
		delete(c.answers, questionID)
		return nil
	}
	if !question.HasOption(optionID) {
		return domain.ErrOptionNotFound
	}
	c.answers[questionID] = optionID
	return nil
}

// GoTo moves the cursor, clamping any out-of-range index instead of failing.
func (c *Controller) GoTo(index int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateInProgress {
		return c.current
	}
	if index < 0 {
		index = 0
	}
	if max := len(c.quiz.Questions) - 1; index > max {
		if max < 0 {
			max = 0
		}
		index = max
	}
	c.current = index
	return c.current
}

// Tick consumes one second of the budget. Reaching zero submits synchronously
// with whatever answers exist at that instant; autoSubmitted reports whether
// this tick performed that submission. After any failed submission the timer
// stays frozen at the failure point and ticks no-op; only an explicit Submit
// retries.
func (c *Controller) Tick(ctx context.Context) (remaining int, autoSubmitted bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateInProgress || c.submitFailed || c.remaining == 0 {
		return c.remaining, false, nil
	}
	c.remaining--
	if c.remaining > 0 {
		return c.remaining, false, nil
	}
	_, err = c.submitLocked(ctx)
	return 0, err == nil, err
}

// Submit finishes the attempt: one scoring pass, one persisted result. Repeat
// calls after a successful submission are no-ops returning the same result.
// After a store failure the attempt is still InProgress and Submit may be
// retried; exactly-once applies to successful submissions only.
func (c *Controller) Submit(ctx context.Context) (domain.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitLocked(ctx)
}

func (c *Controller) submitLocked(ctx context.Context) (domain.Result, error) {
	switch c.state {
	case StateSubmitted:
		return c.result, nil
	case StateNotStarted:
		return domain.Result{}, domain.ErrNotInProgress
	}

	result := domain.Score(c.quiz.Questions, c.answers, c.quiz.PassingScore)

	// Transition before the store call so nothing re-enters the state machine
	// while persistence is in flight; rolled back only on failure.
	c.state = StateSubmitted
	c.result = result

	answers := make(map[string]string, len(c.answers))
	for questionID, optionID := range c.answers {
		answers[questionID] = optionID
	}

	err := c.store.RecordSubmission(ctx, c.attempt.ID, answers, result)
	switch {
	case err == nil:
		c.submitFailed = false
		return result, nil
	case errors.Is(err, domain.ErrAlreadySubmitted):
		// Another controller instance for the same attempt id won the race.
		// Its persisted result is the truth — but only if that result is
		// actually readable. A store claiming "already submitted" for a
		// record with no result would otherwise turn a lost submission into
		// a false success.
		persisted, getErr := c.store.GetAttempt(ctx, c.attempt.ID)
		if getErr == nil && persisted.Submitted() {
			c.submitFailed = false
			c.result = domain.Result{
				Score:       *persisted.Score,
				TotalPoints: *persisted.TotalPoints,
				Passed:      *persisted.Passed,
				Percentage:  percentageOf(*persisted.Score, *persisted.TotalPoints),
			}
			return c.result, nil
		}
		c.state = StateInProgress
		c.submitFailed = true
		if getErr != nil {
			return domain.Result{}, getErr
		}
		return domain.Result{}, fmt.Errorf("store reports a submission for attempt %s but no result is persisted: %w", c.attempt.ID, err)
	default:
		c.state = StateInProgress
		c.submitFailed = true
		return domain.Result{}, err
	}
}

func percentageOf(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(score) / float64(total)))
}

// Quiz returns the quiz configuration the controller was built for.
func (c *Controller) Quiz() domain.Quiz {
	return c.quiz
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Remaining returns the seconds left on the budget.
func (c *Controller) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// CurrentIndex returns the presentation cursor.
func (c *Controller) CurrentIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Attempt returns the attempt record created at Start.
func (c *Controller) Attempt() domain.Attempt {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempt
}

// Answers returns a copy of the captured answers.
func (c *Controller) Answers() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	answers := make(map[string]string, len(c.answers))
	for questionID, optionID := range c.answers {
		answers[questionID] = optionID
	}
	return answers
}

// Result returns the final result once the attempt is Submitted.
func (c *Controller) Result() (domain.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateSubmitted {
		return domain.Result{}, false
	}
	return c.result, true
}
