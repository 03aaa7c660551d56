package services

import (
	stderrors "errors"

	"github.com/vytor/quizflash/internal/errors"
	"github.com/vytor/quizflash/internal/repository"
)

// repoError converts a repository failure into an AppError.
func repoError(err error, id string) *errors.AppError {
	switch {
	case stderrors.Is(err, repository.ErrSubjectNotFound):
		return errors.NewNotFoundError("subject", id)
	case stderrors.Is(err, repository.ErrDuplicateSubject):
		return errors.NewConflictError("subject already exists", err)
	default:
		return errors.NewInternalError(err)
	}
}

// NavAction moves the current question of an exam or practice session.
type NavAction string

const (
	NavNext     NavAction = "next"
	NavPrevious NavAction = "previous"
	NavSkip     NavAction = "skip"
	NavGoTo     NavAction = "goto"
)

// ParseNavAction validates a navigation action name.
func ParseNavAction(s string) (NavAction, error) {
	switch a := NavAction(s); a {
	case NavNext, NavPrevious, NavSkip, NavGoTo:
		return a, nil
	}
	return "", errors.NewValidationError("action", "must be one of next, previous, skip, goto")
}
