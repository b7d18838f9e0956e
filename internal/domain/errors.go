package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuizInactive is returned when a taker tries to start an inactive quiz.
	ErrQuizInactive = errors.New("quiz is not active")
	// ErrQuestionNotFound indicates a submitted question ID does not belong to the quiz.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a selected option ID is not among the question's options.
	ErrOptionNotFound = errors.New("option not found")
	// ErrAttemptNotFound is returned when no attempt record exists for an ID.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrAlreadySubmitted is returned by stores when a second submission is
	// recorded for the same attempt. Controllers treat it as confirmation
	// that a result already exists, not as a failure.
	ErrAlreadySubmitted = errors.New("attempt already submitted")
	// ErrNotInProgress is returned for attempt operations outside the
	// InProgress state.
	ErrNotInProgress = errors.New("attempt not in progress")
	// ErrAttemptStarted is returned when Start is called twice on one controller.
	ErrAttemptStarted = errors.New("attempt already started")
)
