// Package exam implements the timed exam session: question selection,
// countdown, answer tracking and the terminal transitions.
package exam

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/vytor/quizflash/internal/logger"
	"github.com/vytor/quizflash/internal/models"
	"github.com/vytor/quizflash/internal/shuffle"
	"github.com/vytor/quizflash/internal/store"
)

// DefaultWarningSeconds is the remaining time at which the one-shot
// warning fires.
const DefaultWarningSeconds = 300

type Status string

const (
	StatusSetup     Status = "setup"
	StatusActive    Status = "active"
	StatusSubmitted Status = "submitted"
	StatusExpired   Status = "expired"
	StatusAbandoned Status = "abandoned"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusSubmitted || s == StatusExpired || s == StatusAbandoned
}

// Snapshots persists the in-progress exam. LoadState returns an error
// wrapping store.ErrNotFound when nothing is saved.
type Snapshots interface {
	SaveState(ctx context.Context, state models.ExamState) error
	LoadState(ctx context.Context) (models.ExamState, error)
	ClearState(ctx context.Context) error
}

type Config struct {
	DurationMinutes int
	QuestionCount   int
}

// TickResult tells the caller what a single tick changed.
type TickResult struct {
	Remaining int
	Warning   bool
	Completed bool
}

type Option func(*Session)

// WithWarningThreshold sets the remaining seconds at which the warning fires.
func WithWarningThreshold(seconds int) Option {
	return func(s *Session) {
		s.warnAt = seconds
	}
}

// WithClock replaces time.Now for session ids and completion stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// OnWarning registers a callback run once when the warning threshold is crossed.
func OnWarning(fn func(ctx context.Context, state models.ExamState)) Option {
	return func(s *Session) {
		s.onWarning = fn
	}
}

// OnComplete registers a callback run exactly once when the session ends,
// whether by timeout, submission or exit.
func OnComplete(fn func(ctx context.Context, result models.ExamResult)) Option {
	return func(s *Session) {
		s.onComplete = fn
	}
}

// Session is a single timed exam. It is safe for concurrent use: the timer
// goroutine and request handlers share it.
type Session struct {
	mu         sync.Mutex
	state      models.ExamState
	status     Status
	snaps      Snapshots
	warnAt     int
	warned     bool
	now        func() time.Time
	onWarning  func(context.Context, models.ExamState)
	onComplete func(context.Context, models.ExamResult)
	result     *models.ExamResult
}

func newSession(snaps Snapshots, opts []Option) *Session {
	s := &Session{
		status: StatusSetup,
		snaps:  snaps,
		warnAt: DefaultWarningSeconds,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start selects the questions, shuffles every question's options and
// persists the initial snapshot.
func Start(ctx context.Context, snaps Snapshots, rnd *shuffle.Randomizer, pool []models.MCQ, cfg Config, opts ...Option) (*Session, error) {
	if len(pool) == 0 {
		return nil, ErrNoQuestions
	}
	if cfg.DurationMinutes <= 0 {
		return nil, ErrInvalidDuration
	}
	count := ClampCount(cfg.QuestionCount, len(pool))

	s := newSession(snaps, opts)
	questions := rnd.SelectQuestions(pool, count)
	shuffled := make(map[int]models.ShuffledOptions, len(questions))
	for i, q := range questions {
		shuffled[i] = rnd.ShuffleOptions(q)
	}

	started := s.now()
	s.state = models.ExamState{
		Questions:       questions,
		CurrentQuestion: 0,
		Answers:         map[int]int{},
		ShuffledOptions: shuffled,
		TimeRemaining:   cfg.DurationMinutes * 60,
		IsActive:        true,
		SessionID:       fmt.Sprintf("exam-%d", started.UnixMilli()),
		StartTime:       started.UnixMilli(),
		DurationSeconds: cfg.DurationMinutes * 60,
	}
	s.status = StatusActive
	// An exam starting exactly at the threshold warns on its first tick.
	s.warned = s.state.TimeRemaining < s.warnAt

	if err := snaps.SaveState(ctx, s.state); err != nil {
		return nil, fmt.Errorf("persist new exam: %w", err)
	}

	logger.FromContext(ctx).WithPrefix("exam").WithFields(map[string]any{
		"session_id": s.state.SessionID,
		"questions":  count,
		"seconds":    s.state.TimeRemaining,
	}).Info("exam started")
	return s, nil
}

// Restore reloads the persisted snapshot after a restart. Snapshots that
// are inactive, out of time or carry a broken shuffle mapping are discarded.
func Restore(ctx context.Context, snaps Snapshots, opts ...Option) (*Session, error) {
	log := logger.FromContext(ctx).WithPrefix("exam")

	state, err := snaps.LoadState(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoActiveExam
	}
	if err != nil {
		return nil, err
	}

	if reason := checkSnapshot(state); reason != "" {
		log.Warn("discarding stored exam snapshot: %s", reason)
		if err := snaps.ClearState(ctx); err != nil {
			log.Error("failed to clear stored exam snapshot: %v", err)
		}
		return nil, ErrNoActiveExam
	}

	s := newSession(snaps, opts)
	if state.Answers == nil {
		state.Answers = map[int]int{}
	}
	state.CurrentQuestion = clamp(state.CurrentQuestion, len(state.Questions))
	s.state = state
	s.status = StatusActive
	s.warned = state.TimeRemaining < s.warnAt

	log.WithField("session_id", state.SessionID).Info("exam restored with %d seconds remaining", state.TimeRemaining)
	return s, nil
}

func checkSnapshot(state models.ExamState) string {
	switch {
	case !state.IsActive:
		return "not active"
	case state.TimeRemaining <= 0:
		return "no time remaining"
	case len(state.Questions) == 0:
		return "no questions"
	}
	for i, q := range state.Questions {
		so, ok := state.ShuffledOptions[i]
		if !ok || !so.Valid(q) {
			return fmt.Sprintf("invalid option mapping for question %d", i)
		}
	}
	return ""
}

// Tick advances the countdown by one second.
func (s *Session) Tick(ctx context.Context) (TickResult, error) {
	s.mu.Lock()
	if s.status != StatusActive {
		res := TickResult{Remaining: s.state.TimeRemaining}
		s.mu.Unlock()
		return res, nil
	}

	s.state.TimeRemaining--
	res := TickResult{Remaining: s.state.TimeRemaining}
	if !s.warned && s.state.TimeRemaining <= s.warnAt {
		s.warned = true
		res.Warning = true
	}

	if s.state.TimeRemaining <= 0 {
		s.state.TimeRemaining = 0
		res.Remaining = 0
		res.Completed = true
		result, err := s.finishLocked(ctx, StatusExpired)
		s.mu.Unlock()
		s.fireWarning(ctx, res)
		s.fireComplete(ctx, result)
		return res, err
	}

	err := s.snaps.SaveState(ctx, s.state)
	s.mu.Unlock()
	s.fireWarning(ctx, res)
	return res, err
}

func (s *Session) fireWarning(ctx context.Context, res TickResult) {
	if !res.Warning {
		return
	}
	logger.FromContext(ctx).WithPrefix("exam").Info("time warning: %d seconds remaining", res.Remaining)
	if s.onWarning != nil {
		s.onWarning(ctx, s.Snapshot())
	}
}

func (s *Session) fireComplete(ctx context.Context, result models.ExamResult) {
	if s.onComplete != nil {
		s.onComplete(ctx, result)
	}
}

// finishLocked moves to a terminal status and drops the stored snapshot.
// The caller holds s.mu.
func (s *Session) finishLocked(ctx context.Context, status Status) (models.ExamResult, error) {
	s.status = status
	s.state.IsActive = false
	result := models.ExamResult{
		State:       s.state.Clone(),
		Status:      string(status),
		CompletedAt: s.now().UnixMilli(),
		TimeSpent:   s.state.DurationSeconds - s.state.TimeRemaining,
	}
	s.result = &result

	logger.FromContext(ctx).WithPrefix("exam").WithFields(map[string]any{
		"session_id": s.state.SessionID,
		"status":     status,
		"answered":   s.state.AnsweredCount(),
	}).Info("exam finished")

	if err := s.snaps.ClearState(ctx); err != nil {
		return result, fmt.Errorf("clear exam snapshot: %w", err)
	}
	return result, nil
}

// Answer records the canonical option for a question, replacing any
// previous answer.
func (s *Session) Answer(ctx context.Context, questionIndex, canonical int) error {
	return s.mutate(ctx, func() error {
		if questionIndex < 0 || questionIndex >= len(s.state.Questions) {
			return ErrQuestionOutOfRange
		}
		s.state.Answers[questionIndex] = canonical
		return nil
	})
}

// AnswerDisplay records the option rendered at displayPos for a question.
func (s *Session) AnswerDisplay(ctx context.Context, questionIndex, displayPos int) error {
	return s.mutate(ctx, func() error {
		if questionIndex < 0 || questionIndex >= len(s.state.Questions) {
			return ErrQuestionOutOfRange
		}
		canonical, ok := s.state.ShuffledOptions[questionIndex].Canonical(displayPos)
		if !ok {
			return ErrOptionOutOfRange
		}
		s.state.Answers[questionIndex] = canonical
		return nil
	})
}

// Next moves forward one question; a no-op on the last one.
func (s *Session) Next(ctx context.Context) error {
	return s.mutate(ctx, func() error {
		s.state.CurrentQuestion = clamp(s.state.CurrentQuestion+1, len(s.state.Questions))
		return nil
	})
}

// Skip leaves the current question unanswered and moves on.
func (s *Session) Skip(ctx context.Context) error {
	return s.Next(ctx)
}

// Previous moves back one question; a no-op on the first one.
func (s *Session) Previous(ctx context.Context) error {
	return s.mutate(ctx, func() error {
		s.state.CurrentQuestion = clamp(s.state.CurrentQuestion-1, len(s.state.Questions))
		return nil
	})
}

// GoTo jumps to index, clamped to the question range.
func (s *Session) GoTo(ctx context.Context, index int) error {
	return s.mutate(ctx, func() error {
		s.state.CurrentQuestion = clamp(index, len(s.state.Questions))
		return nil
	})
}

func (s *Session) mutate(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusActive {
		return ErrNotActive
	}
	if err := fn(); err != nil {
		return err
	}
	return s.snaps.SaveState(ctx, s.state)
}

// Submit ends the exam for scoring.
func (s *Session) Submit(ctx context.Context) (models.ExamResult, error) {
	return s.end(ctx, StatusSubmitted)
}

// Exit abandons the exam. The result is still returned so the caller can
// decide whether to show it.
func (s *Session) Exit(ctx context.Context) (models.ExamResult, error) {
	return s.end(ctx, StatusAbandoned)
}

func (s *Session) end(ctx context.Context, status Status) (models.ExamResult, error) {
	s.mu.Lock()
	if s.status != StatusActive {
		s.mu.Unlock()
		return models.ExamResult{}, ErrNotActive
	}
	result, err := s.finishLocked(ctx, status)
	s.mu.Unlock()
	s.fireComplete(ctx, result)
	return result, err
}

// Snapshot returns a deep copy of the current state.
func (s *Session) Snapshot() models.ExamState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) Active() bool {
	return s.Status() == StatusActive
}

// Result is the outcome once the session has ended.
func (s *Session) Result() (models.ExamResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return models.ExamResult{}, false
	}
	return *s.result, true
}

// ClampCount limits a requested question count to [1, poolSize].
func ClampCount(requested, poolSize int) int {
	if requested < 1 {
		return 1
	}
	if requested > poolSize {
		return poolSize
	}
	return requested
}

// SecondsPerQuestion is the even share of the duration per question,
// rounded to the nearest second.
func SecondsPerQuestion(durationMinutes, questionCount int) int {
	if questionCount <= 0 {
		return 0
	}
	return int(math.Round(float64(durationMinutes*60) / float64(questionCount)))
}

func clamp(i, n int) int {
	if i < 0 || n == 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
