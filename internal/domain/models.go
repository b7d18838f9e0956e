package domain

import (
	"fmt"
	"sort"
	"time"
)

// Option represents a possible answer for a question.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID              string   `json:"id"`
	QuizID          string   `json:"quizId"`
	Prompt          string   `json:"prompt"`
	Options         []Option `json:"options"`
	CorrectOptionID string   `json:"correctOptionId"`
	Points          int      `json:"points"` // defaults to 1 if zero
	OrderIndex      int      `json:"orderIndex"`
}

// Quiz is a timed, scored collection of ordered questions.
type Quiz struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	TimeLimitSeconds int        `json:"timeLimitSeconds"`
	PassingScore     int        `json:"passingScore"` // percentage in [0,100]
	IsActive         bool       `json:"isActive"`
	Questions        []Question `json:"questions"`
}

// Attempt is one taker's single pass through a quiz. Result fields stay nil
// until submission and are then set together, exactly once.
type Attempt struct {
	ID          string            `json:"id"`
	QuizID      string            `json:"quizId"`
	TakerID     string            `json:"takerId,omitempty"` // empty for anonymous practice
	StartedAt   time.Time         `json:"startedAt"`
	CompletedAt *time.Time        `json:"completedAt,omitempty"`
	Answers     map[string]string `json:"answers"` // questionID -> selected optionID
	Score       *int              `json:"score,omitempty"`
	TotalPoints *int              `json:"totalPoints,omitempty"`
	Passed      *bool             `json:"passed,omitempty"`
}

// Submitted reports whether the attempt has a recorded result.
func (a Attempt) Submitted() bool {
	return a.CompletedAt != nil
}

// Question returns the question with the given ID, if it belongs to the quiz.
func (q Quiz) Question(questionID string) (Question, bool) {
	for i := range q.Questions {
		if q.Questions[i].ID == questionID {
			return q.Questions[i], true
		}
	}
	return Question{}, false
}

// HasOption reports whether optionID is one of the question's options.
func (q Question) HasOption(optionID string) bool {
	for i := range q.Options {
		if q.Options[i].ID == optionID {
			return true
		}
	}
	return false
}

// Validate checks quiz configuration at load time so malformed content fails
// fast instead of silently degrading scoring.
func (q Quiz) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("quiz: missing id")
	}
	if q.TimeLimitSeconds <= 0 {
		return fmt.Errorf("quiz %s: time limit must be positive", q.ID)
	}
	if q.PassingScore < 0 || q.PassingScore > 100 {
		return fmt.Errorf("quiz %s: passing score %d out of range [0,100]", q.ID, q.PassingScore)
	}
	seenOrder := make(map[int]string, len(q.Questions))
	for _, question := range q.Questions {
		if question.ID == "" {
			return fmt.Errorf("quiz %s: question with empty id", q.ID)
		}
		if len(question.Options) < 2 {
			return fmt.Errorf("quiz %s: question %s needs at least 2 options", q.ID, question.ID)
		}
		if question.Points < 0 {
			return fmt.Errorf("quiz %s: question %s has negative points", q.ID, question.ID)
		}
		seen := make(map[string]struct{}, len(question.Options))
		for _, opt := range question.Options {
			if _, dup := seen[opt.ID]; dup {
				return fmt.Errorf("quiz %s: question %s has duplicate option %s", q.ID, question.ID, opt.ID)
			}
			seen[opt.ID] = struct{}{}
		}
		if _, ok := seen[question.CorrectOptionID]; !ok {
			return fmt.Errorf("quiz %s: question %s correct option %q not among options", q.ID, question.ID, question.CorrectOptionID)
		}
		if prev, dup := seenOrder[question.OrderIndex]; dup {
			return fmt.Errorf("quiz %s: questions %s and %s share order index %d", q.ID, prev, question.ID, question.OrderIndex)
		}
		seenOrder[question.OrderIndex] = question.ID
	}
	return nil
}

// SortQuestions orders the quiz's questions by their presentation order.
func (q *Quiz) SortQuestions() {
	sort.Slice(q.Questions, func(i, j int) bool {
		return q.Questions[i].OrderIndex < q.Questions[j].OrderIndex
	})
}
