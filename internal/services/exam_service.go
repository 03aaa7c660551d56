package services

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vytor/quizflash/internal/errors"
	"github.com/vytor/quizflash/internal/exam"
	"github.com/vytor/quizflash/internal/logger"
	"github.com/vytor/quizflash/internal/models"
	"github.com/vytor/quizflash/internal/repository"
	"github.com/vytor/quizflash/internal/results"
	"github.com/vytor/quizflash/internal/shuffle"
)

// ExamConfig holds the exam limits.
type ExamConfig struct {
	WarningSeconds int
	DefaultMinutes int
	MaxMinutes     int
	TickInterval   time.Duration
}

// StartExamRequest starts an exam over a subject's pool. An empty SubjectID
// means the active subject, DurationMinutes 0 the default duration and
// QuestionCount 0 the whole pool.
type StartExamRequest struct {
	SubjectID       string `json:"subjectId"`
	DurationMinutes int    `json:"durationMinutes"`
	QuestionCount   int    `json:"questionCount"`
}

type ExamView struct {
	State              models.ExamState `json:"state"`
	Status             exam.Status      `json:"status"`
	Answered           int              `json:"answered"`
	SecondsPerQuestion int              `json:"secondsPerQuestion"`
	WarningActive      bool             `json:"warningActive"`
}

type ResultView struct {
	Status      string          `json:"status"`
	CompletedAt int64           `json:"completedAt"`
	TimeSpent   int             `json:"timeSpent"`
	Filter      results.Filter  `json:"filter"`
	Summary     results.Summary `json:"summary"`
}

// ExamService runs the single timed exam
type ExamService interface {
	StartExam(ctx context.Context, req StartExamRequest) (*ExamView, error)
	// ResumeExam restores a stored in-progress exam, if any, and restarts its timer.
	ResumeExam(ctx context.Context) (*ExamView, error)
	CurrentExam(ctx context.Context) (*ExamView, error)
	Answer(ctx context.Context, questionIndex, displayPos int) (*ExamView, error)
	Navigate(ctx context.Context, action NavAction, index int) (*ExamView, error)
	SubmitExam(ctx context.Context) (*ResultView, error)
	ExitExam(ctx context.Context) error
	LastResult(ctx context.Context, filter results.Filter) (*ResultView, error)
	ExportResult(ctx context.Context) ([]byte, error)
	Shutdown()
}

type examService struct {
	mu          sync.Mutex
	subjectRepo repository.SubjectRepository
	examRepo    repository.ExamRepository
	rnd         *shuffle.Randomizer
	cfg         ExamConfig
	now         func() time.Time
	session     *exam.Session
	runner      *exam.Runner
	warned      atomic.Bool
}

// NewExamService creates a new ExamService
func NewExamService(subjectRepo repository.SubjectRepository, examRepo repository.ExamRepository, rnd *shuffle.Randomizer, cfg ExamConfig) ExamService {
	if cfg.DefaultMinutes <= 0 {
		cfg.DefaultMinutes = 30
	}
	if cfg.MaxMinutes <= 0 {
		cfg.MaxMinutes = 180
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	return &examService{
		subjectRepo: subjectRepo,
		examRepo:    examRepo,
		rnd:         rnd,
		cfg:         cfg,
		now:         time.Now,
	}
}

func (s *examService) sessionOptions() []exam.Option {
	return []exam.Option{
		exam.WithWarningThreshold(s.cfg.WarningSeconds),
		exam.WithClock(s.now),
		exam.OnWarning(s.onWarning),
		exam.OnComplete(s.onComplete),
	}
}

// onWarning runs on the timer goroutine while Stop may be waiting for it,
// so it must not take s.mu.
func (s *examService) onWarning(ctx context.Context, state models.ExamState) {
	logger.FromContext(ctx).WithField("session_id", state.SessionID).Warn("exam has %d seconds remaining", state.TimeRemaining)
	s.warned.Store(true)
}

// onComplete stores the finished exam. It runs on the timer goroutine for
// expiry and on the caller's goroutine for submit and exit.
func (s *examService) onComplete(ctx context.Context, result models.ExamResult) {
	log := logger.FromContext(ctx).WithField("session_id", result.State.SessionID)
	if err := s.examRepo.SaveResult(ctx, result); err != nil {
		log.Error("failed to store exam result: %v", err)
		return
	}
	log.Info("exam result stored (status %s)", result.Status)
}

func (s *examService) StartExam(ctx context.Context, req StartExamRequest) (*ExamView, error) {
	log := logger.FromContext(ctx)

	minutes := req.DurationMinutes
	if minutes == 0 {
		minutes = s.cfg.DefaultMinutes
	}
	if minutes < 1 || minutes > s.cfg.MaxMinutes {
		return nil, errors.NewValidationError("durationMinutes", "must be between 1 and the configured maximum")
	}
	if req.QuestionCount < 0 {
		return nil, errors.NewValidationError("questionCount", "cannot be negative")
	}

	subjectID := req.SubjectID
	if subjectID == "" {
		active, err := s.subjectRepo.ActiveID(ctx)
		if err != nil {
			log.Error("failed to read active subject: %v", err)
			return nil, errors.NewInternalError(err)
		}
		if active == "" {
			return nil, errors.NewBadRequestError("no subject selected")
		}
		subjectID = active
	}

	pool, err := s.subjectRepo.MCQs(ctx, subjectID)
	if err != nil {
		log.Error("failed to load exam pool: %v", err)
		return nil, repoError(err, subjectID)
	}
	if len(pool) == 0 {
		return nil, errors.NewBadRequestError("subject has no questions")
	}
	count := req.QuestionCount
	if count == 0 {
		count = len(pool)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil && s.session.Active() {
		return nil, errors.NewConflictError("an exam is already in progress", exam.ErrNotActive)
	}
	s.stopLocked()

	session, err := exam.Start(ctx, s.examRepo, s.rnd, pool, exam.Config{DurationMinutes: minutes, QuestionCount: count}, s.sessionOptions()...)
	if err != nil {
		log.Error("failed to start exam: %v", err)
		return nil, errors.NewInternalError(err)
	}
	s.attachLocked(ctx, session)
	return s.viewLocked(), nil
}

func (s *examService) ResumeExam(ctx context.Context) (*ExamView, error) {
	log := logger.FromContext(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil && s.session.Active() {
		return s.viewLocked(), nil
	}

	session, err := exam.Restore(ctx, s.examRepo, s.sessionOptions()...)
	if stderrors.Is(err, exam.ErrNoActiveExam) {
		return nil, errors.NewNotFoundError("exam", "in progress")
	}
	if err != nil {
		log.Error("failed to restore exam: %v", err)
		return nil, errors.NewInternalError(err)
	}
	s.stopLocked()
	s.attachLocked(ctx, session)
	return s.viewLocked(), nil
}

// attachLocked makes session current and starts its timer. The timer
// outlives the request that started it.
func (s *examService) attachLocked(ctx context.Context, session *exam.Session) {
	s.session = session
	s.warned.Store(false)
	s.runner = exam.NewRunner(session, s.cfg.TickInterval)
	s.runner.Start(context.WithoutCancel(ctx))
}

func (s *examService) stopLocked() {
	if s.runner != nil {
		s.runner.Stop()
		s.runner = nil
	}
}

func (s *examService) viewLocked() *ExamView {
	state := s.session.Snapshot()
	return &ExamView{
		State:              state,
		Status:             s.session.Status(),
		Answered:           state.AnsweredCount(),
		SecondsPerQuestion: exam.SecondsPerQuestion(state.DurationSeconds/60, len(state.Questions)),
		WarningActive:      s.warned.Load() || (state.IsActive && state.TimeRemaining <= s.cfg.WarningSeconds),
	}
}

// active returns the running session or a not-found error.
func (s *examService) active() (*exam.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil || !s.session.Active() {
		return nil, errors.NewNotFoundError("exam", "in progress")
	}
	return s.session, nil
}

func (s *examService) CurrentExam(ctx context.Context) (*ExamView, error) {
	if _, err := s.active(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked(), nil
}

func (s *examService) Answer(ctx context.Context, questionIndex, displayPos int) (*ExamView, error) {
	session, err := s.active()
	if err != nil {
		return nil, err
	}
	if err := session.AnswerDisplay(ctx, questionIndex, displayPos); err != nil {
		return nil, sessionError(ctx, err)
	}
	return s.CurrentExam(ctx)
}

func (s *examService) Navigate(ctx context.Context, action NavAction, index int) (*ExamView, error) {
	session, err := s.active()
	if err != nil {
		return nil, err
	}

	switch action {
	case NavNext:
		err = session.Next(ctx)
	case NavPrevious:
		err = session.Previous(ctx)
	case NavSkip:
		err = session.Skip(ctx)
	case NavGoTo:
		err = session.GoTo(ctx, index)
	default:
		return nil, errors.NewValidationError("action", "must be one of next, previous, skip, goto")
	}
	if err != nil {
		return nil, sessionError(ctx, err)
	}
	return s.CurrentExam(ctx)
}

func sessionError(ctx context.Context, err error) error {
	switch {
	case stderrors.Is(err, exam.ErrNotActive):
		return errors.NewConflictError("exam is no longer active", err)
	case stderrors.Is(err, exam.ErrQuestionOutOfRange):
		return errors.NewValidationError("questionIndex", "out of range")
	case stderrors.Is(err, exam.ErrOptionOutOfRange):
		return errors.NewValidationError("option", "out of range")
	default:
		logger.FromContext(ctx).Error("exam operation failed: %v", err)
		return errors.NewInternalError(err)
	}
}

func (s *examService) SubmitExam(ctx context.Context) (*ResultView, error) {
	session, err := s.active()
	if err != nil {
		return nil, err
	}
	result, err := session.Submit(ctx)
	s.mu.Lock()
	s.stopLocked()
	s.mu.Unlock()
	if err != nil {
		return nil, sessionError(ctx, err)
	}
	return resultView(result, results.FilterAll), nil
}

func (s *examService) ExitExam(ctx context.Context) error {
	session, err := s.active()
	if err != nil {
		return err
	}
	_, err = session.Exit(ctx)
	s.mu.Lock()
	s.stopLocked()
	s.mu.Unlock()
	if err != nil {
		return sessionError(ctx, err)
	}
	return nil
}

func (s *examService) LastResult(ctx context.Context, filter results.Filter) (*ResultView, error) {
	log := logger.FromContext(ctx)

	result, err := s.examRepo.LastResult(ctx)
	if err != nil {
		log.Error("failed to load exam result: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if result == nil {
		return nil, errors.NewNotFoundError("exam result", "latest")
	}
	return resultView(*result, filter), nil
}

func resultView(result models.ExamResult, filter results.Filter) *ResultView {
	summary := results.Compute(result.State)
	summary.Items = summary.Filter(filter)
	return &ResultView{
		Status:      result.Status,
		CompletedAt: result.CompletedAt,
		TimeSpent:   result.TimeSpent,
		Filter:      filter,
		Summary:     summary,
	}
}

func (s *examService) ExportResult(ctx context.Context) ([]byte, error) {
	result, err := s.examRepo.LastResult(ctx)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	if result == nil {
		return nil, errors.NewNotFoundError("exam result", "latest")
	}
	data, err := results.Export(results.Compute(result.State), s.now())
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	return data, nil
}

// Shutdown stops the exam timer. The stored snapshot is kept so the exam
// resumes on the next start.
func (s *examService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}
