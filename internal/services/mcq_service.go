package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/vytor/quizflash/internal/errors"
	"github.com/vytor/quizflash/internal/importer"
	"github.com/vytor/quizflash/internal/logger"
	"github.com/vytor/quizflash/internal/models"
	"github.com/vytor/quizflash/internal/repository"
	"github.com/vytor/quizflash/internal/validation"
)

// DefaultMaxUploadBytes bounds a single import file.
const DefaultMaxUploadBytes = 5 << 20

// SearchQuery filters a collection by case-insensitive substring. With
// neither scope set both question text and options are searched.
type SearchQuery struct {
	Text       string
	InQuestion bool
	InOptions  bool
}

// ImportReport describes a successful import.
type ImportReport struct {
	Mode     importer.Mode `json:"mode"`
	Imported int           `json:"imported"`
	Total    int           `json:"total"`
}

// MCQService handles a subject's question collection
type MCQService interface {
	ListMCQs(ctx context.Context, subjectID string) ([]models.MCQ, error)
	SearchMCQs(ctx context.Context, subjectID string, query SearchQuery) ([]models.MCQ, error)
	ImportJSON(ctx context.Context, subjectID string, data []byte, mode importer.Mode) (*ImportReport, error)
	ImportFile(ctx context.Context, subjectID string, r io.Reader, mode importer.Mode) (*ImportReport, error)
	AddMCQ(ctx context.Context, subjectID string, mcq models.MCQ) (*models.MCQ, error)
	UpdateMCQ(ctx context.Context, subjectID string, mcq models.MCQ) (*models.MCQ, error)
	DeleteMCQ(ctx context.Context, subjectID, mcqID string) error
	ClearMCQs(ctx context.Context, subjectID string) error
	SaveMCQs(ctx context.Context, subjectID string, mcqs []models.MCQ) ([]models.MCQ, error)
	ExportMCQs(ctx context.Context, subjectID string) ([]byte, error)
}

type mcqService struct {
	subjectRepo    repository.SubjectRepository
	validator      validation.Validator
	merger         importer.Merger
	maxUploadBytes int64
}

// NewMCQService creates a new MCQService. A non-positive maxUploadBytes
// uses DefaultMaxUploadBytes.
func NewMCQService(subjectRepo repository.SubjectRepository, maxUploadBytes int64) MCQService {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &mcqService{
		subjectRepo:    subjectRepo,
		validator:      validation.Validator{NewID: uuid.NewString},
		merger:         importer.Merger{NewID: uuid.NewString},
		maxUploadBytes: maxUploadBytes,
	}
}

func (s *mcqService) ListMCQs(ctx context.Context, subjectID string) ([]models.MCQ, error) {
	log := logger.FromContext(ctx)
	log.Debug("listing mcqs: subject_id=%s", subjectID)

	mcqs, err := s.subjectRepo.MCQs(ctx, subjectID)
	if err != nil {
		log.Error("failed to list mcqs: %v", err)
		return nil, repoError(err, subjectID)
	}
	return mcqs, nil
}

func (s *mcqService) SearchMCQs(ctx context.Context, subjectID string, query SearchQuery) ([]models.MCQ, error) {
	mcqs, err := s.ListMCQs(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(query.Text))
	if needle == "" {
		return mcqs, nil
	}
	inQuestion, inOptions := query.InQuestion, query.InOptions
	if !inQuestion && !inOptions {
		inQuestion, inOptions = true, true
	}

	out := make([]models.MCQ, 0, len(mcqs))
	for _, m := range mcqs {
		if inQuestion && strings.Contains(strings.ToLower(m.Q), needle) {
			out = append(out, m)
			continue
		}
		if inOptions && anyContains(m.Opts, needle) {
			out = append(out, m)
		}
	}
	logger.FromContext(ctx).Debug("search %q matched %d of %d mcqs", needle, len(out), len(mcqs))
	return out, nil
}

func anyContains(opts []string, needle string) bool {
	for _, o := range opts {
		if strings.Contains(strings.ToLower(o), needle) {
			return true
		}
	}
	return false
}

func (s *mcqService) ImportJSON(ctx context.Context, subjectID string, data []byte, mode importer.Mode) (*ImportReport, error) {
	return s.importResult(ctx, subjectID, s.validator.ParseJSON(data), mode)
}

// ImportFile reads the whole upload before validating it. Uploads larger
// than the configured limit are rejected.
func (s *mcqService) ImportFile(ctx context.Context, subjectID string, r io.Reader, mode importer.Mode) (*ImportReport, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxUploadBytes+1))
	if err != nil {
		logger.FromContext(ctx).Warn("failed to read import file: %v", err)
		return nil, errors.NewImportError([]errors.Detail{errors.FileDetail("File: Failed to read file")})
	}
	if int64(len(data)) > s.maxUploadBytes {
		return nil, errors.NewImportError([]errors.Detail{
			errors.FileDetail(fmt.Sprintf("File: File exceeds the %d byte upload limit", s.maxUploadBytes)),
		})
	}
	return s.ImportJSON(ctx, subjectID, data, mode)
}

func (s *mcqService) importResult(ctx context.Context, subjectID string, res validation.Result, mode importer.Mode) (*ImportReport, error) {
	log := logger.FromContext(ctx).WithFields(map[string]any{"subject_id": subjectID, "mode": mode})

	if !res.Valid {
		log.Info("import rejected with %d error(s)", len(res.Errors))
		return nil, importError(res)
	}

	existing, err := s.ListMCQs(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	merged := s.merger.Merge(existing, res.MCQs, mode)

	if err := s.subjectRepo.ReplaceMCQs(ctx, subjectID, merged); err != nil {
		log.Error("failed to store imported mcqs: %v", err)
		return nil, repoError(err, subjectID)
	}

	log.Info("imported %d mcqs, collection now has %d", len(res.MCQs), len(merged))
	return &ImportReport{Mode: mode, Imported: len(res.MCQs), Total: len(merged)}, nil
}

func importError(res validation.Result) *errors.AppError {
	details := make([]errors.Detail, 0, len(res.Errors))
	for _, e := range res.Errors {
		details = append(details, errors.Detail{ItemIndex: e.ItemIndex, Field: e.Field, Message: e.String()})
	}
	return errors.NewImportError(details)
}

func (s *mcqService) AddMCQ(ctx context.Context, subjectID string, mcq models.MCQ) (*models.MCQ, error) {
	log := logger.FromContext(ctx)
	log.Debug("adding mcq: subject_id=%s", subjectID)

	if errs := validation.CheckMCQ(mcq); len(errs) > 0 {
		return nil, importError(validation.Result{Errors: errs})
	}

	existing, err := s.ListMCQs(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	mcq.ID = ""
	merged := s.merger.Merge(existing, []models.MCQ{mcq}, importer.ModeAdd)

	if err := s.subjectRepo.ReplaceMCQs(ctx, subjectID, merged); err != nil {
		log.Error("failed to add mcq: %v", err)
		return nil, repoError(err, subjectID)
	}
	added := merged[len(merged)-1]
	return &added, nil
}

func (s *mcqService) UpdateMCQ(ctx context.Context, subjectID string, mcq models.MCQ) (*models.MCQ, error) {
	log := logger.FromContext(ctx)
	log.Debug("updating mcq: subject_id=%s mcq_id=%s", subjectID, mcq.ID)

	if errs := validation.CheckMCQ(mcq); len(errs) > 0 {
		return nil, importError(validation.Result{Errors: errs})
	}

	mcqs, err := s.ListMCQs(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	i := indexOf(mcqs, mcq.ID)
	if i < 0 {
		return nil, errors.NewNotFoundError("mcq", mcq.ID)
	}
	mcqs[i] = mcq.Clone()

	if err := s.subjectRepo.ReplaceMCQs(ctx, subjectID, mcqs); err != nil {
		log.Error("failed to update mcq: %v", err)
		return nil, repoError(err, subjectID)
	}
	return &mcqs[i], nil
}

func (s *mcqService) DeleteMCQ(ctx context.Context, subjectID, mcqID string) error {
	log := logger.FromContext(ctx)
	log.Debug("deleting mcq: subject_id=%s mcq_id=%s", subjectID, mcqID)

	mcqs, err := s.ListMCQs(ctx, subjectID)
	if err != nil {
		return err
	}
	i := indexOf(mcqs, mcqID)
	if i < 0 {
		return errors.NewNotFoundError("mcq", mcqID)
	}
	mcqs = append(mcqs[:i], mcqs[i+1:]...)

	if err := s.subjectRepo.ReplaceMCQs(ctx, subjectID, mcqs); err != nil {
		log.Error("failed to delete mcq: %v", err)
		return repoError(err, subjectID)
	}
	return nil
}

func (s *mcqService) ClearMCQs(ctx context.Context, subjectID string) error {
	log := logger.FromContext(ctx)
	log.Debug("clearing mcqs: subject_id=%s", subjectID)

	if err := s.subjectRepo.ReplaceMCQs(ctx, subjectID, nil); err != nil {
		log.Error("failed to clear mcqs: %v", err)
		return repoError(err, subjectID)
	}
	return nil
}

// SaveMCQs replaces the collection with an edited one after checking every
// entry. Ids are kept; missing or repeated ones are regenerated.
func (s *mcqService) SaveMCQs(ctx context.Context, subjectID string, mcqs []models.MCQ) ([]models.MCQ, error) {
	log := logger.FromContext(ctx)
	log.Debug("saving %d mcqs: subject_id=%s", len(mcqs), subjectID)

	res := validation.CheckCollection(mcqs)
	if !res.Valid {
		return nil, importError(res)
	}
	saved := s.merger.EnsureUniqueIDs(res.MCQs)

	if err := s.subjectRepo.ReplaceMCQs(ctx, subjectID, saved); err != nil {
		log.Error("failed to save mcqs: %v", err)
		return nil, repoError(err, subjectID)
	}
	return saved, nil
}

func (s *mcqService) ExportMCQs(ctx context.Context, subjectID string) ([]byte, error) {
	mcqs, err := s.ListMCQs(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	data, err := models.ExportMCQs(mcqs)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	return data, nil
}

func indexOf(mcqs []models.MCQ, id string) int {
	for i, m := range mcqs {
		if m.ID == id {
			return i
		}
	}
	return -1
}
