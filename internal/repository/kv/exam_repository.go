package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/vytor/quizflash/internal/logger"
	"github.com/vytor/quizflash/internal/models"
	"github.com/vytor/quizflash/internal/repository"
	"github.com/vytor/quizflash/internal/store"
)

type examRepository struct {
	store store.Store
}

// NewExamRepository creates a new ExamRepository implementation
func NewExamRepository(s store.Store) repository.ExamRepository {
	return &examRepository{store: s}
}

func (r *examRepository) SaveState(ctx context.Context, state models.ExamState) error {
	if err := setJSON(ctx, r.store, repository.KeyExamState, state); err != nil {
		logger.FromContext(ctx).WithPrefix("exam_repo").Error("failed to save exam state: %v", err)
		return err
	}
	return nil
}

func (r *examRepository) LoadState(ctx context.Context) (models.ExamState, error) {
	var state models.ExamState
	raw, err := r.store.Get(ctx, repository.KeyExamState)
	if err != nil {
		return state, err
	}
	if err := decode(raw, &state); err != nil {
		return state, fmt.Errorf("decode %s: %w", repository.KeyExamState, err)
	}
	return state, nil
}

func (r *examRepository) ClearState(ctx context.Context) error {
	logger.FromContext(ctx).WithPrefix("exam_repo").Debug("clearing exam state")
	return r.store.Remove(ctx, repository.KeyExamState)
}

func (r *examRepository) SaveResult(ctx context.Context, result models.ExamResult) error {
	log := logger.FromContext(ctx).WithPrefix("exam_repo")
	log.Debug("saving exam result: session_id=%s status=%s", result.State.SessionID, result.Status)
	if err := setJSON(ctx, r.store, repository.KeyExamResult, result); err != nil {
		log.Error("failed to save exam result: %v", err)
		return err
	}
	return nil
}

func (r *examRepository) LastResult(ctx context.Context) (*models.ExamResult, error) {
	raw, err := r.store.Get(ctx, repository.KeyExamResult)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var result models.ExamResult
	if err := decode(raw, &result); err != nil {
		return nil, fmt.Errorf("decode %s: %w", repository.KeyExamResult, err)
	}
	return &result, nil
}
