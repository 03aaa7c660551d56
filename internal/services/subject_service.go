package services

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/vytor/quizflash/internal/errors"
	"github.com/vytor/quizflash/internal/logger"
	"github.com/vytor/quizflash/internal/models"
	"github.com/vytor/quizflash/internal/repository"
)

// SubjectService handles subject-related business logic
type SubjectService interface {
	ListSubjects(ctx context.Context) ([]models.Subject, error)
	GetSubject(ctx context.Context, id string) (*models.Subject, error)
	CreateSubject(ctx context.Context, name string) (*models.Subject, error)
	RenameSubject(ctx context.Context, id, name string) (*models.Subject, error)
	ToggleFavorite(ctx context.Context, id string) (*models.Subject, error)
	DeleteSubject(ctx context.Context, id string) error
	SetActiveSubject(ctx context.Context, id string) error
	// ActiveSubject returns nil when no subject is active.
	ActiveSubject(ctx context.Context) (*models.Subject, error)
}

type subjectService struct {
	subjectRepo repository.SubjectRepository
	newID       func() string
	now         func() time.Time
}

// NewSubjectService creates a new SubjectService
func NewSubjectService(subjectRepo repository.SubjectRepository) SubjectService {
	return &subjectService{
		subjectRepo: subjectRepo,
		newID:       uuid.NewString,
		now:         time.Now,
	}
}

// ListSubjects returns favorites first, then the rest, each group by name.
func (s *subjectService) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	log := logger.FromContext(ctx)
	log.Debug("listing subjects")

	subjects, err := s.subjectRepo.List(ctx)
	if err != nil {
		log.Error("failed to list subjects: %v", err)
		return nil, errors.NewInternalError(err)
	}

	sort.SliceStable(subjects, func(i, j int) bool {
		if subjects[i].IsFavorite != subjects[j].IsFavorite {
			return subjects[i].IsFavorite
		}
		return strings.ToLower(subjects[i].Name) < strings.ToLower(subjects[j].Name)
	})
	return subjects, nil
}

func (s *subjectService) GetSubject(ctx context.Context, id string) (*models.Subject, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting subject: id=%s", id)

	subject, err := s.subjectRepo.Get(ctx, id)
	if err != nil {
		log.Error("failed to get subject: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if subject == nil {
		return nil, errors.NewNotFoundError("subject", id)
	}
	return subject, nil
}

func (s *subjectService) CreateSubject(ctx context.Context, name string) (*models.Subject, error) {
	log := logger.FromContext(ctx)

	name, err := checkName(name)
	if err != nil {
		return nil, err
	}

	subject := models.Subject{
		ID:        "subject-" + s.newID(),
		Name:      name,
		CreatedAt: s.now().UnixMilli(),
	}
	log.Debug("creating subject: id=%s name=%q", subject.ID, name)

	if err := s.subjectRepo.Create(ctx, subject); err != nil {
		log.Error("failed to create subject: %v", err)
		return nil, repoError(err, subject.ID)
	}
	log.Info("subject created: %s", subject.ID)
	return &subject, nil
}

func (s *subjectService) RenameSubject(ctx context.Context, id, name string) (*models.Subject, error) {
	name, err := checkName(name)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, id, func(sub *models.Subject) { sub.Name = name })
}

// minNameLength counts characters of the trimmed name.
const minNameLength = 2

func checkName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) < minNameLength {
		return "", errors.NewValidationError("name", "must be at least 2 characters")
	}
	return name, nil
}

func (s *subjectService) ToggleFavorite(ctx context.Context, id string) (*models.Subject, error) {
	return s.update(ctx, id, func(sub *models.Subject) { sub.IsFavorite = !sub.IsFavorite })
}

func (s *subjectService) update(ctx context.Context, id string, change func(*models.Subject)) (*models.Subject, error) {
	log := logger.FromContext(ctx)
	log.Debug("updating subject: id=%s", id)

	subject, err := s.GetSubject(ctx, id)
	if err != nil {
		return nil, err
	}
	change(subject)

	if err := s.subjectRepo.Update(ctx, *subject); err != nil {
		log.Error("failed to update subject: %v", err)
		return nil, repoError(err, id)
	}
	return subject, nil
}

func (s *subjectService) DeleteSubject(ctx context.Context, id string) error {
	log := logger.FromContext(ctx)
	log.Debug("deleting subject: id=%s", id)

	if err := s.subjectRepo.Delete(ctx, id); err != nil {
		log.Error("failed to delete subject: %v", err)
		return repoError(err, id)
	}
	log.Info("subject deleted: %s", id)
	return nil
}

// SetActiveSubject selects the subject used by practice and exams. An empty
// id clears the selection.
func (s *subjectService) SetActiveSubject(ctx context.Context, id string) error {
	log := logger.FromContext(ctx)
	log.Debug("setting active subject: id=%q", id)

	if id != "" {
		if _, err := s.GetSubject(ctx, id); err != nil {
			return err
		}
	}
	if err := s.subjectRepo.SetActiveID(ctx, id); err != nil {
		log.Error("failed to set active subject: %v", err)
		return errors.NewInternalError(err)
	}
	return nil
}

func (s *subjectService) ActiveSubject(ctx context.Context) (*models.Subject, error) {
	log := logger.FromContext(ctx)

	id, err := s.subjectRepo.ActiveID(ctx)
	if err != nil {
		log.Error("failed to read active subject: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if id == "" {
		return nil, nil
	}
	subject, err := s.subjectRepo.Get(ctx, id)
	if err != nil {
		log.Error("failed to get active subject: %v", err)
		return nil, errors.NewInternalError(err)
	}
	return subject, nil
}
