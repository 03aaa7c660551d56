// Package results scores a finished exam and renders the results export.
package results

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/vytor/quizflash/internal/models"
)

type Filter string

const (
	FilterAll       Filter = "all"
	FilterCorrect   Filter = "correct"
	FilterIncorrect Filter = "incorrect"
)

// ParseFilter accepts "", all, correct and incorrect.
func ParseFilter(s string) (Filter, error) {
	switch Filter(s) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterCorrect, FilterIncorrect:
		return Filter(s), nil
	}
	return "", fmt.Errorf("unknown results filter %q", s)
}

// Item is one question of the exam with the answer given. Selected is nil
// for unanswered questions.
type Item struct {
	Index    int        `json:"index"`
	MCQ      models.MCQ `json:"mcq"`
	Selected *int       `json:"selected"`
	Correct  bool       `json:"correct"`
}

type Summary struct {
	Score      int    `json:"score"`
	Total      int    `json:"total"`
	Incorrect  int    `json:"incorrect"`
	Unanswered int    `json:"unanswered"`
	Percentage int    `json:"percentage"`
	Items      []Item `json:"items"`
}

// Compute scores every question of the exam against its canonical answer.
func Compute(state models.ExamState) Summary {
	s := Summary{Total: len(state.Questions), Items: make([]Item, len(state.Questions))}
	for i, q := range state.Questions {
		item := Item{Index: i, MCQ: q.Clone()}
		if sel, ok := state.Answers[i]; ok {
			item.Selected = &sel
			item.Correct = q.IsCorrect(sel)
			if item.Correct {
				s.Score++
			} else {
				s.Incorrect++
			}
		} else {
			s.Unanswered++
		}
		s.Items[i] = item
	}
	s.Percentage = Percentage(s.Score, s.Total)
	return s
}

// Percentage is score/total as a whole percent, rounded half up. An empty
// exam scores 0.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Floor(float64(score)*100/float64(total) + 0.5))
}

// Filter returns the items matching f. Unanswered questions count
// as incorrect.
func (s Summary) Filter(f Filter) []Item {
	out := make([]Item, 0, len(s.Items))
	for _, item := range s.Items {
		switch f {
		case FilterCorrect:
			if !item.Correct {
				continue
			}
		case FilterIncorrect:
			if item.Correct {
				continue
			}
		}
		out = append(out, item)
	}
	return out
}

type exportedAnswer struct {
	Question      string  `json:"question"`
	YourAnswer    *string `json:"yourAnswer"`
	CorrectAnswer string  `json:"correctAnswer"`
	Correct       bool    `json:"correct"`
}

type exportedResults struct {
	Score      int              `json:"score"`
	Total      int              `json:"total"`
	Percentage int              `json:"percentage"`
	Date       string           `json:"date"`
	Answers    []exportedAnswer `json:"answers"`
}

// Export renders the results download. yourAnswer is null for unanswered
// questions.
func Export(s Summary, now time.Time) ([]byte, error) {
	out := exportedResults{
		Score:      s.Score,
		Total:      s.Total,
		Percentage: s.Percentage,
		Date:       now.Format(time.RFC3339),
		Answers:    make([]exportedAnswer, len(s.Items)),
	}
	for i, item := range s.Items {
		a := exportedAnswer{
			Question:      item.MCQ.Q,
			CorrectAnswer: optionText(item.MCQ, item.MCQ.Answer),
			Correct:       item.Correct,
		}
		if item.Selected != nil {
			text := optionText(item.MCQ, *item.Selected)
			a.YourAnswer = &text
		}
		out.Answers[i] = a
	}
	return json.MarshalIndent(out, "", "  ")
}

func optionText(m models.MCQ, i int) string {
	if i < 0 || i >= len(m.Opts) {
		return ""
	}
	return m.Opts[i]
}
