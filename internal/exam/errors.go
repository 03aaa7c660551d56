package exam

import "errors"

var (
	// ErrNotActive rejects mutations on a session that has already ended.
	ErrNotActive = errors.New("exam: session is not active")
	// ErrNoActiveExam is returned by Restore when no usable snapshot is stored.
	ErrNoActiveExam = errors.New("exam: no exam in progress")

	ErrNoQuestions        = errors.New("exam: question pool is empty")
	ErrInvalidDuration    = errors.New("exam: duration must be at least one minute")
	ErrQuestionOutOfRange = errors.New("exam: question index out of range")
	ErrOptionOutOfRange   = errors.New("exam: option position out of range")
)
