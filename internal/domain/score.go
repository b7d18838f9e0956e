package domain

import "math"

// Result is the outcome of scoring a completed attempt.
type Result struct {
	Score       int  `json:"score"`
	TotalPoints int  `json:"totalPoints"`
	Percentage  int  `json:"percentage"`
	Passed      bool `json:"passed"`
}

// Score grades a set of answers against the quiz's questions. It is pure and
// order-independent: unanswered questions count toward the denominator but
// never toward the score, and an answer is correct only when it matches the
// question's correct option exactly.
func Score(questions []Question, answers map[string]string, passingScore int) Result {
	total := 0
	earned := 0
	for _, question := range questions {
		points := question.Points
		if points == 0 {
			points = 1
		}
		total += points
		if selected, ok := answers[question.ID]; ok && selected == question.CorrectOptionID {
			earned += points
		}
	}

	percentage := 0
	if total > 0 {
		percentage = int(math.Round(100 * float64(earned) / float64(total)))
	}

	return Result{
		Score:       earned,
		TotalPoints: total,
		Percentage:  percentage,
		Passed:      percentage >= passingScore,
	}
}
