package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/quizflash/internal/models"
)

// MockExamRepository is a mock implementation of repository.ExamRepository
type MockExamRepository struct {
	mock.Mock
}

func (m *MockExamRepository) SaveState(ctx context.Context, state models.ExamState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

func (m *MockExamRepository) LoadState(ctx context.Context) (models.ExamState, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.ExamState), args.Error(1)
}

func (m *MockExamRepository) ClearState(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockExamRepository) SaveResult(ctx context.Context, result models.ExamResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockExamRepository) LastResult(ctx context.Context) (*models.ExamResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ExamResult), args.Error(1)
}
