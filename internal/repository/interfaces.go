package repository

import (
	"context"
	"errors"

	"github.com/vytor/quizflash/internal/models"
)

// Storage keys shared by every backend.
const (
	KeySubjects      = "mcq_subjects"
	KeyMCQData       = "mcq_data"
	KeyActiveSubject = "active_subject"
	KeyExamState     = "examState"
	KeyExamResult    = "examResult"
)

var (
	ErrSubjectNotFound  = errors.New("subject not found")
	ErrDuplicateSubject = errors.New("subject already exists")
)

// SubjectRepository handles subjects and their MCQ collections. A subject's
// MCQCount always equals the length of its stored collection.
type SubjectRepository interface {
	List(ctx context.Context) ([]models.Subject, error)
	// Get returns nil, nil when the subject does not exist.
	Get(ctx context.Context, id string) (*models.Subject, error)
	Create(ctx context.Context, subject models.Subject) error
	// Update saves name and favorite flag. MCQCount is owned by ReplaceMCQs.
	Update(ctx context.Context, subject models.Subject) error
	Delete(ctx context.Context, id string) error
	MCQs(ctx context.Context, subjectID string) ([]models.MCQ, error)
	ReplaceMCQs(ctx context.Context, subjectID string, mcqs []models.MCQ) error
	// ActiveID returns "" when no subject is active.
	ActiveID(ctx context.Context) (string, error)
	SetActiveID(ctx context.Context, id string) error
}

// ExamRepository keeps the in-progress exam snapshot and the last finished
// exam. LoadState wraps store.ErrNotFound when no snapshot exists.
type ExamRepository interface {
	SaveState(ctx context.Context, state models.ExamState) error
	LoadState(ctx context.Context) (models.ExamState, error)
	ClearState(ctx context.Context) error
	SaveResult(ctx context.Context, result models.ExamResult) error
	// LastResult returns nil, nil when no exam has finished yet.
	LastResult(ctx context.Context) (*models.ExamResult, error)
}
