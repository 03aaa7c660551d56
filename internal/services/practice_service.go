package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vytor/quizflash/internal/errors"
	"github.com/vytor/quizflash/internal/logger"
	"github.com/vytor/quizflash/internal/practice"
	"github.com/vytor/quizflash/internal/repository"
	"github.com/vytor/quizflash/internal/shuffle"
)

// NoticeNothingToRetry is set on a view when retry was requested without
// any incorrect answers.
const NoticeNothingToRetry = "No incorrect questions to retry!"

// PracticeIdleTTL is how long an untouched practice session is kept.
const PracticeIdleTTL = 2 * time.Hour

type PracticeView struct {
	ID       string            `json:"id"`
	Question practice.Question `json:"question"`
	Progress practice.Progress `json:"progress"`
	Options  practice.Options  `json:"options"`
	InRetry  bool              `json:"inRetry"`
	Notice   string            `json:"notice,omitempty"`
}

// PracticeService keeps untimed practice sessions in memory
type PracticeService interface {
	StartPractice(ctx context.Context, subjectID string, opts practice.Options) (*PracticeView, error)
	GetPractice(ctx context.Context, id string) (*PracticeView, error)
	Select(ctx context.Context, id string, displayPos int) (*PracticeView, error)
	Reveal(ctx context.Context, id string) (*PracticeView, error)
	Navigate(ctx context.Context, id string, action NavAction, index int) (*PracticeView, error)
	Reset(ctx context.Context, id string) (*PracticeView, error)
	ToggleQuestionShuffle(ctx context.Context, id string) (*PracticeView, error)
	ToggleOptionShuffle(ctx context.Context, id string) (*PracticeView, error)
	RetryIncorrect(ctx context.Context, id string) (*PracticeView, error)
	ExitRetry(ctx context.Context, id string) (*PracticeView, error)
	EndPractice(ctx context.Context, id string) error
}

type practiceService struct {
	mu          sync.Mutex
	subjectRepo repository.SubjectRepository
	rnd         *shuffle.Randomizer
	sessions    map[string]*practiceSession
	newID       func() string
	now         func() time.Time
}

type practiceSession struct {
	c        *practice.Controller
	lastUsed time.Time
}

// NewPracticeService creates a new PracticeService
func NewPracticeService(subjectRepo repository.SubjectRepository, rnd *shuffle.Randomizer) PracticeService {
	return &practiceService{
		subjectRepo: subjectRepo,
		rnd:         rnd,
		sessions:    map[string]*practiceSession{},
		newID:       uuid.NewString,
		now:         time.Now,
	}
}

// StartPractice opens a session over a subject's pool. An empty subjectID
// means the active subject.
func (s *practiceService) StartPractice(ctx context.Context, subjectID string, opts practice.Options) (*PracticeView, error) {
	log := logger.FromContext(ctx)

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
		log.Error("failed to load practice pool: %v", err)
		return nil, repoError(err, subjectID)
	}

	c, err := practice.New(pool, s.rnd, opts)
	if err != nil {
		return nil, errors.NewBadRequestError("subject has no questions")
	}

	id := s.newID()
	s.mu.Lock()
	if n := s.evictIdle(); n > 0 {
		log.Debug("evicted %d idle practice session(s)", n)
	}
	s.sessions[id] = &practiceSession{c: c, lastUsed: s.now()}
	s.mu.Unlock()

	log.WithFields(map[string]any{"practice_id": id, "subject_id": subjectID}).Info("practice started with %d questions", len(pool))
	return view(id, c), nil
}

func (s *practiceService) controller(id string) (*practice.Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || s.now().Sub(sess.lastUsed) > PracticeIdleTTL {
		delete(s.sessions, id)
		return nil, errors.NewNotFoundError("practice session", id)
	}
	sess.lastUsed = s.now()
	return sess.c, nil
}

// evictIdle drops sessions untouched for longer than PracticeIdleTTL.
// Callers hold s.mu.
func (s *practiceService) evictIdle() int {
	cutoff := s.now().Add(-PracticeIdleTTL)
	n := 0
	for id, sess := range s.sessions {
		if sess.lastUsed.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

func view(id string, c *practice.Controller) *PracticeView {
	return &PracticeView{
		ID:       id,
		Question: c.Current(),
		Progress: c.Progress(),
		Options:  c.Options(),
		InRetry:  c.InRetry(),
	}
}

// apply runs fn on the session and returns its new view.
func (s *practiceService) apply(id string, fn func(*practice.Controller) error) (*PracticeView, error) {
	c, err := s.controller(id)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	return view(id, c), nil
}

func (s *practiceService) GetPractice(ctx context.Context, id string) (*PracticeView, error) {
	return s.apply(id, func(*practice.Controller) error { return nil })
}

// Select answers the current question. Selections on a revealed question
// are ignored.
func (s *practiceService) Select(ctx context.Context, id string, displayPos int) (*PracticeView, error) {
	return s.apply(id, func(c *practice.Controller) error {
		if !c.Select(displayPos) && !c.Current().Revealed {
			return errors.NewValidationError("option", "out of range")
		}
		return nil
	})
}

func (s *practiceService) Reveal(ctx context.Context, id string) (*PracticeView, error) {
	return s.apply(id, func(c *practice.Controller) error {
		if !c.Reveal() {
			return errors.NewBadRequestError("select an answer before revealing it")
		}
		return nil
	})
}

func (s *practiceService) Navigate(ctx context.Context, id string, action NavAction, index int) (*PracticeView, error) {
	return s.apply(id, func(c *practice.Controller) error {
		switch action {
		case NavNext, NavSkip:
			c.Next()
		case NavPrevious:
			c.Previous()
		case NavGoTo:
			c.GoTo(index)
		default:
			return errors.NewValidationError("action", "must be one of next, previous, skip, goto")
		}
		return nil
	})
}

func (s *practiceService) Reset(ctx context.Context, id string) (*PracticeView, error) {
	return s.apply(id, func(c *practice.Controller) error {
		c.Reset()
		return nil
	})
}

func (s *practiceService) ToggleQuestionShuffle(ctx context.Context, id string) (*PracticeView, error) {
	return s.apply(id, func(c *practice.Controller) error {
		opts := c.ToggleQuestionShuffle()
		logger.FromContext(ctx).Debug("practice %s question shuffle now %t, progress reset", id, opts.ShuffleQuestions)
		return nil
	})
}

func (s *practiceService) ToggleOptionShuffle(ctx context.Context, id string) (*PracticeView, error) {
	return s.apply(id, func(c *practice.Controller) error {
		opts := c.ToggleOptionShuffle()
		logger.FromContext(ctx).Debug("practice %s option shuffle now %t, progress reset", id, opts.ShuffleOptions)
		return nil
	})
}

// RetryIncorrect narrows the session to the wrongly answered questions.
// With none, the view is returned unchanged with a notice.
func (s *practiceService) RetryIncorrect(ctx context.Context, id string) (*PracticeView, error) {
	retried := false
	v, err := s.apply(id, func(c *practice.Controller) error {
		retried = c.RetryIncorrect()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !retried {
		v.Notice = NoticeNothingToRetry
	}
	return v, nil
}

func (s *practiceService) ExitRetry(ctx context.Context, id string) (*PracticeView, error) {
	return s.apply(id, func(c *practice.Controller) error {
		c.ExitRetry()
		return nil
	})
}

func (s *practiceService) EndPractice(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return errors.NewNotFoundError("practice session", id)
	}
	delete(s.sessions, id)
	logger.FromContext(ctx).Debug("practice %s ended", id)
	return nil
}
