package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/quizflash/internal/models"
)

// MockSubjectRepository is a mock implementation of repository.SubjectRepository
type MockSubjectRepository struct {
	mock.Mock
}

func (m *MockSubjectRepository) List(ctx context.Context) ([]models.Subject, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Subject), args.Error(1)
}

func (m *MockSubjectRepository) Get(ctx context.Context, id string) (*models.Subject, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subject), args.Error(1)
}

func (m *MockSubjectRepository) Create(ctx context.Context, subject models.Subject) error {
	args := m.Called(ctx, subject)
	return args.Error(0)
}

func (m *MockSubjectRepository) Update(ctx context.Context, subject models.Subject) error {
	args := m.Called(ctx, subject)
	return args.Error(0)
}

func (m *MockSubjectRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSubjectRepository) MCQs(ctx context.Context, subjectID string) ([]models.MCQ, error) {
	args := m.Called(ctx, subjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MCQ), args.Error(1)
}

func (m *MockSubjectRepository) ReplaceMCQs(ctx context.Context, subjectID string, mcqs []models.MCQ) error {
	args := m.Called(ctx, subjectID, mcqs)
	return args.Error(0)
}

func (m *MockSubjectRepository) ActiveID(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockSubjectRepository) SetActiveID(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
