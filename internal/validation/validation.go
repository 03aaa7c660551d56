// Package validation checks untrusted MCQ input (uploaded files, pasted JSON,
// manual entries) against the MCQ schema and turns it into clean records.
package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/vytor/quizflash/internal/models"
)

// Field names used in FieldError.Field.
const (
	FieldRoot   = "root"
	FieldFile   = "file"
	FieldQ      = "q"
	FieldOpts   = "opts"
	FieldAnswer = "answer"
)

// FieldError describes one problem with one input item. ItemIndex is -1 for
// errors that concern the whole input.
type FieldError struct {
	ItemIndex int    `json:"itemIndex"`
	Field     string `json:"field"`
	Message   string `json:"message"`
}

func (e FieldError) String() string {
	if e.ItemIndex < 0 {
		return fmt.Sprintf("%s: %s", strings.ToUpper(e.Field[:1])+e.Field[1:], e.Message)
	}
	return fmt.Sprintf("MCQ %d: %s", ToDisplay(e.ItemIndex), e.Message)
}

// Result is the outcome of validating a batch. MCQs is only set when Valid.
type Result struct {
	Valid  bool         `json:"valid"`
	MCQs   []models.MCQ `json:"mcqs,omitempty"`
	Errors []FieldError `json:"errors"`
}

// ErrorsFor returns the errors reported for a single item.
func (r Result) ErrorsFor(itemIndex int) []FieldError {
	var out []FieldError
	for _, e := range r.Errors {
		if e.ItemIndex == itemIndex {
			out = append(out, e)
		}
	}
	return out
}

// Summary joins every error into one human readable block.
func (r Result) Summary() string {
	lines := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		lines = append(lines, e.String())
	}
	return strings.Join(lines, "\n")
}

func rootFailure(field, msg string) Result {
	return Result{Errors: []FieldError{{ItemIndex: -1, Field: field, Message: msg}}}
}

// Validator validates raw items. NewID generates ids for accepted items.
type Validator struct {
	NewID func() string
}

var defaultValidator = Validator{NewID: uuid.NewString}

// Validate checks raw input using the default id generator.
func Validate(raw any) Result {
	return defaultValidator.Validate(raw)
}

// Validate checks that raw is a non-empty array of MCQ records. Every problem
// of every item is reported; MCQs is populated only when nothing failed.
func (v Validator) Validate(raw any) Result {
	items, ok := raw.([]any)
	if !ok {
		return rootFailure(FieldRoot, "Input must be an array of MCQs")
	}
	if len(items) == 0 {
		return rootFailure(FieldRoot, "Please provide at least one MCQ")
	}

	newID := v.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	res := Result{Errors: []FieldError{}}
	mcqs := make([]models.MCQ, 0, len(items))
	for i, item := range items {
		mcq, errs := checkItem(i, item)
		if len(errs) > 0 {
			res.Errors = append(res.Errors, errs...)
			continue
		}
		mcq.ID = newID()
		mcqs = append(mcqs, mcq)
	}

	res.Valid = len(res.Errors) == 0
	if res.Valid {
		res.MCQs = mcqs
	}
	return res
}

func checkItem(idx int, item any) (models.MCQ, []FieldError) {
	rec, _ := item.(map[string]any)
	var errs []FieldError
	fail := func(field, msg string) {
		errs = append(errs, FieldError{ItemIndex: idx, Field: field, Message: msg})
	}

	question, qPresent := firstTruthy(rec, "q", "question")
	text, isString := question.(string)
	switch {
	case !qPresent:
		fail(FieldQ, "Question text is required")
	case !isString:
		fail(FieldQ, "Question text must be a string")
	}

	var opts []string
	rawOpts, oPresent := firstTruthy(rec, "opts", "options")
	list, isList := rawOpts.([]any)
	switch {
	case !oPresent:
		fail(FieldOpts, "Options array is required")
	case !isList:
		fail(FieldOpts, "Options must be an array")
	case len(list) < 2:
		fail(FieldOpts, "At least 2 options are required")
	default:
		opts = make([]string, 0, len(list))
		for k, o := range list {
			s, ok := o.(string)
			if !ok || strings.TrimSpace(s) == "" {
				fail(FieldOpts, fmt.Sprintf("Option %d must be a non-empty string", ToDisplay(k)))
				continue
			}
			opts = append(opts, s)
		}
	}

	rawAnswer, aPresent := firstPresent(rec, "answer", "correctAnswer")
	answer, fits, isInt := asInteger(rawAnswer)
	switch {
	case !aPresent:
		fail(FieldAnswer, "Correct answer index is required")
	case !isInt:
		fail(FieldAnswer, "Correct answer must be an integer")
	case isList && !fits:
		fail(FieldAnswer, fmt.Sprintf("Correct answer index (%v) is out of range. Valid range: 0-%d", rawAnswer, len(list)-1))
	case isList && (answer < 0 || answer >= len(list)):
		fail(FieldAnswer, fmt.Sprintf("Correct answer index (%d) is out of range. Valid range: 0-%d", answer, len(list)-1))
	}

	if len(errs) > 0 {
		return models.MCQ{}, errs
	}

	explanation, _ := rec["explanation"].(string)
	return models.MCQ{
		Q:           text,
		Opts:        opts,
		Answer:      answer,
		Explanation: explanation,
	}, nil
}

// firstTruthy returns the first alias holding a value other than null, false,
// zero or the empty string.
func firstTruthy(rec map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := rec[k]; ok && truthy(v) {
			return v, true
		}
	}
	return nil, false
}

// firstPresent returns the first alias present in the record, even if null.
func firstPresent(rec map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := rec[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0 && !math.IsNaN(t)
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	default:
		return true
	}
}

// asInteger reports whether v is an integral number. fits is false when the
// value is integral but outside the int range; n is then meaningless.
func asInteger(v any) (n int, fits bool, ok bool) {
	switch t := v.(type) {
	case int:
		return t, true, true
	case int64:
		return int(t), true, true
	case float64:
		return floatInteger(t)
	case json.Number:
		if i, err := t.Int64(); err == nil && i >= math.MinInt && i <= math.MaxInt {
			return int(i), true, true
		}
		f, err := t.Float64()
		if err != nil && !math.IsInf(f, 0) {
			return 0, false, false
		}
		return floatInteger(f)
	default:
		return 0, false, false
	}
}

func floatInteger(f float64) (int, bool, bool) {
	if math.IsNaN(f) {
		return 0, false, false
	}
	if math.IsInf(f, 0) || f < math.MinInt || f >= math.MaxInt {
		return 0, false, true
	}
	if f != math.Trunc(f) {
		return 0, false, false
	}
	return int(f), true, true
}
