package validation

import (
	"fmt"
	"strings"

	"github.com/vytor/quizflash/internal/models"
)

// CheckMCQ validates a typed MCQ coming from manual entry or an edit. The
// returned errors carry ItemIndex 0.
func CheckMCQ(m models.MCQ) []FieldError {
	var errs []FieldError
	fail := func(field, msg string) {
		errs = append(errs, FieldError{Field: field, Message: msg})
	}

	if strings.TrimSpace(m.Q) == "" {
		fail(FieldQ, "Question text is required")
	}
	if len(m.Opts) < 2 {
		fail(FieldOpts, "At least 2 options are required")
	}
	for i, o := range m.Opts {
		if strings.TrimSpace(o) == "" {
			fail(FieldOpts, fmt.Sprintf("Option %d must be a non-empty string", ToDisplay(i)))
		}
	}
	if m.Answer < 0 || m.Answer >= len(m.Opts) {
		fail(FieldAnswer, fmt.Sprintf("Correct answer index (%d) is out of range. Valid range: 0-%d", m.Answer, len(m.Opts)-1))
	}
	return errs
}

// CheckCollection runs CheckMCQ over a stored collection, reporting item
// indices, and is used before saving an edited collection.
func CheckCollection(mcqs []models.MCQ) Result {
	res := Result{Errors: []FieldError{}}
	for i, m := range mcqs {
		for _, e := range CheckMCQ(m) {
			e.ItemIndex = i
			res.Errors = append(res.Errors, e)
		}
	}
	res.Valid = len(res.Errors) == 0
	if res.Valid {
		res.MCQs = models.CloneMCQs(mcqs)
	}
	return res
}
