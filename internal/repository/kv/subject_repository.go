// Package kv implements the repositories on top of a store.Store using
// JSON-encoded values.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/vytor/quizflash/internal/importer"
	"github.com/vytor/quizflash/internal/logger"
	"github.com/vytor/quizflash/internal/models"
	"github.com/vytor/quizflash/internal/repository"
	"github.com/vytor/quizflash/internal/store"
)

type subjectRepository struct {
	mu    sync.Mutex
	store store.Store
}

// NewSubjectRepository creates a new SubjectRepository implementation
func NewSubjectRepository(s store.Store) repository.SubjectRepository {
	return &subjectRepository{store: s}
}

type snapshot struct {
	subjects []models.Subject
	data     map[string][]models.MCQ
}

func (s *snapshot) index(id string) int {
	for i, sub := range s.subjects {
		if sub.ID == id {
			return i
		}
	}
	return -1
}

// load reads subjects and collections, repairing duplicate ids and stale
// counts in memory. Missing keys read as empty.
func (r *subjectRepository) load(ctx context.Context) (*snapshot, error) {
	log := logger.FromContext(ctx).WithPrefix("subject_repo")

	snap := &snapshot{data: map[string][]models.MCQ{}}
	if err := getJSON(ctx, r.store, repository.KeySubjects, &snap.subjects); err != nil {
		log.Error("failed to load subjects: %v", err)
		return nil, err
	}
	if err := getJSON(ctx, r.store, repository.KeyMCQData, &snap.data); err != nil {
		log.Error("failed to load mcq data: %v", err)
		return nil, err
	}
	if snap.subjects == nil {
		snap.subjects = []models.Subject{}
	}
	if snap.data == nil {
		snap.data = map[string][]models.MCQ{}
	}

	repaired := false
	for i := range snap.subjects {
		id := snap.subjects[i].ID
		stored := snap.data[id]
		mcqs := importer.EnsureUniqueIDs(stored)
		if !sameIDs(stored, mcqs) {
			log.Warn("reassigned duplicate or missing mcq ids for subject %s", id)
			repaired = true
		}
		snap.data[id] = mcqs
		if snap.subjects[i].MCQCount != len(mcqs) {
			log.Warn("reconciling mcq count for subject %s: stored %d, actual %d", id, snap.subjects[i].MCQCount, len(mcqs))
			snap.subjects[i].MCQCount = len(mcqs)
			repaired = true
		}
	}

	// Generated ids must be stable across reads.
	if repaired {
		if err := r.save(ctx, snap); err != nil {
			log.Error("failed to persist repaired data: %v", err)
			return nil, err
		}
	}
	return snap, nil
}

func sameIDs(a, b []models.MCQ) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}

// save writes subjects and collections in one batch.
func (r *subjectRepository) save(ctx context.Context, snap *snapshot) error {
	subjectsJSON, err := json.Marshal(snap.subjects)
	if err != nil {
		return err
	}
	dataJSON, err := json.Marshal(snap.data)
	if err != nil {
		return err
	}
	return store.SetMany(ctx, r.store, map[string]string{
		repository.KeySubjects: string(subjectsJSON),
		repository.KeyMCQData:  string(dataJSON),
	})
}

func (r *subjectRepository) List(ctx context.Context) ([]models.Subject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).WithPrefix("subject_repo").Debug("listed %d subjects", len(snap.subjects))
	return snap.subjects, nil
}

func (r *subjectRepository) Get(ctx context.Context, id string) (*models.Subject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	i := snap.index(id)
	if i < 0 {
		logger.FromContext(ctx).WithPrefix("subject_repo").Debug("subject not found: id=%s", id)
		return nil, nil
	}
	sub := snap.subjects[i]
	return &sub, nil
}

func (r *subjectRepository) Create(ctx context.Context, subject models.Subject) error {
	log := logger.FromContext(ctx).WithPrefix("subject_repo")
	log.Debug("creating subject: id=%s name=%q", subject.ID, subject.Name)

	r.mu.Lock()
	defer r.mu.Unlock()

	snap, err := r.load(ctx)
	if err != nil {
		return err
	}
	if snap.index(subject.ID) >= 0 {
		return fmt.Errorf("%w: %s", repository.ErrDuplicateSubject, subject.ID)
	}
	subject.MCQCount = 0
	snap.subjects = append(snap.subjects, subject)
	snap.data[subject.ID] = []models.MCQ{}

	if err := r.save(ctx, snap); err != nil {
		log.Error("failed to create subject: %v", err)
		return err
	}
	return nil
}

func (r *subjectRepository) Update(ctx context.Context, subject models.Subject) error {
	log := logger.FromContext(ctx).WithPrefix("subject_repo")
	log.Debug("updating subject: id=%s", subject.ID)

	r.mu.Lock()
	defer r.mu.Unlock()

	snap, err := r.load(ctx)
	if err != nil {
		return err
	}
	i := snap.index(subject.ID)
	if i < 0 {
		return fmt.Errorf("%w: %s", repository.ErrSubjectNotFound, subject.ID)
	}
	snap.subjects[i].Name = subject.Name
	snap.subjects[i].IsFavorite = subject.IsFavorite

	if err := r.save(ctx, snap); err != nil {
		log.Error("failed to update subject: %v", err)
		return err
	}
	return nil
}

func (r *subjectRepository) Delete(ctx context.Context, id string) error {
	log := logger.FromContext(ctx).WithPrefix("subject_repo")
	log.Debug("deleting subject and its mcqs: id=%s", id)

	r.mu.Lock()
	defer r.mu.Unlock()

	snap, err := r.load(ctx)
	if err != nil {
		return err
	}
	i := snap.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", repository.ErrSubjectNotFound, id)
	}
	snap.subjects = append(snap.subjects[:i], snap.subjects[i+1:]...)
	delete(snap.data, id)

	if err := r.save(ctx, snap); err != nil {
		log.Error("failed to delete subject: %v", err)
		return err
	}

	active, err := r.activeID(ctx)
	if err != nil {
		return err
	}
	if active == id {
		log.Debug("clearing active subject")
		return r.store.Remove(ctx, repository.KeyActiveSubject)
	}
	return nil
}

func (r *subjectRepository) MCQs(ctx context.Context, subjectID string) ([]models.MCQ, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	if snap.index(subjectID) < 0 {
		return nil, fmt.Errorf("%w: %s", repository.ErrSubjectNotFound, subjectID)
	}
	mcqs := snap.data[subjectID]
	if mcqs == nil {
		mcqs = []models.MCQ{}
	}
	return mcqs, nil
}

// ReplaceMCQs stores mcqs as the subject's whole collection and updates
// MCQCount in the same batch.
func (r *subjectRepository) ReplaceMCQs(ctx context.Context, subjectID string, mcqs []models.MCQ) error {
	log := logger.FromContext(ctx).WithPrefix("subject_repo").WithField("subject_id", subjectID)
	log.Debug("replacing collection with %d mcqs", len(mcqs))

	r.mu.Lock()
	defer r.mu.Unlock()

	snap, err := r.load(ctx)
	if err != nil {
		return err
	}
	i := snap.index(subjectID)
	if i < 0 {
		return fmt.Errorf("%w: %s", repository.ErrSubjectNotFound, subjectID)
	}

	mcqs = importer.EnsureUniqueIDs(mcqs)
	if mcqs == nil {
		mcqs = []models.MCQ{}
	}
	snap.data[subjectID] = mcqs
	snap.subjects[i].MCQCount = len(mcqs)

	if err := r.save(ctx, snap); err != nil {
		log.Error("failed to replace collection: %v", err)
		return err
	}
	return nil
}

func (r *subjectRepository) ActiveID(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeID(ctx)
}

func (r *subjectRepository) activeID(ctx context.Context) (string, error) {
	id, err := r.store.Get(ctx, repository.KeyActiveSubject)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	return id, err
}

// SetActiveID stores id as the active subject; an empty id clears it.
func (r *subjectRepository) SetActiveID(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id == "" {
		return r.store.Remove(ctx, repository.KeyActiveSubject)
	}
	return r.store.Set(ctx, repository.KeyActiveSubject, id)
}

func getJSON(ctx context.Context, s store.Store, key string, v any) error {
	raw, err := s.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := decode(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func decode(raw string, v any) error {
	return json.Unmarshal([]byte(raw), v)
}

func setJSON(ctx context.Context, s store.Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, string(raw))
}
