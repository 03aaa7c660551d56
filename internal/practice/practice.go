// Package practice runs untimed practice sessions over a subject's pool with
// per-question answer reveal and retry of incorrectly answered questions.
package practice

import (
	"errors"
	"sync"

	"github.com/vytor/quizflash/internal/models"
	"github.com/vytor/quizflash/internal/shuffle"
)

var ErrEmptyPool = errors.New("practice: no questions to practice")

type Options struct {
	ShuffleQuestions bool `json:"shuffleQuestions"`
	ShuffleOptions   bool `json:"shuffleOptions"`
}

// DefaultOptions has both kinds of shuffling enabled.
func DefaultOptions() Options {
	return Options{ShuffleQuestions: true, ShuffleOptions: true}
}

// Question is the view of one display position.
type Question struct {
	Index    int                    `json:"index"`
	Total    int                    `json:"total"`
	MCQ      models.MCQ             `json:"mcq"`
	Options  models.ShuffledOptions `json:"options"`
	Selected *int                   `json:"selected,omitempty"`
	Revealed bool                   `json:"revealed"`
	Correct  bool                   `json:"correct"`
}

type Progress struct {
	Answered    int  `json:"answered"`
	Correct     int  `json:"correct"`
	Incorrect   int  `json:"incorrect"`
	Total       int  `json:"total"`
	AllAnswered bool `json:"allAnswered"`
}

// Controller holds one practice session. Answers are canonical option
// indices keyed by display position.
type Controller struct {
	mu        sync.Mutex
	rnd       *shuffle.Randomizer
	pool      []models.MCQ
	source    []models.MCQ
	opts      Options
	retry     bool
	questions []models.MCQ
	options   []models.ShuffledOptions
	current   int
	answers   map[int]int
	revealed  map[int]bool
}

func New(pool []models.MCQ, rnd *shuffle.Randomizer, opts Options) (*Controller, error) {
	if len(pool) == 0 {
		return nil, ErrEmptyPool
	}
	c := &Controller{
		rnd:  rnd,
		pool: models.CloneMCQs(pool),
		opts: opts,
	}
	c.source = c.pool
	c.rebuild()
	return c, nil
}

// rebuild derives the display list from source and clears progress.
func (c *Controller) rebuild() {
	if c.opts.ShuffleQuestions {
		c.questions = c.rnd.Questions(c.source)
	} else {
		c.questions = models.CloneMCQs(c.source)
	}
	c.options = make([]models.ShuffledOptions, len(c.questions))
	for i, q := range c.questions {
		if c.opts.ShuffleOptions {
			c.options[i] = c.rnd.ShuffleOptions(q)
		} else {
			c.options[i] = shuffle.Identity(q)
		}
	}
	c.current = 0
	c.answers = map[int]int{}
	c.revealed = map[int]bool{}
}

func (c *Controller) Current() Question {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.questionLocked(c.current)
}

func (c *Controller) questionLocked(i int) Question {
	q := Question{
		Index:    i,
		Total:    len(c.questions),
		MCQ:      c.questions[i].Clone(),
		Options:  c.options[i].Clone(),
		Revealed: c.revealed[i],
	}
	if sel, ok := c.answers[i]; ok {
		q.Selected = &sel
		q.Correct = c.questions[i].IsCorrect(sel)
	}
	return q
}

// Select answers the current question with the option at displayPos. It
// returns false when the question is already revealed or the position is
// out of range.
func (c *Controller) Select(displayPos int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.revealed[c.current] {
		return false
	}
	canonical, ok := c.options[c.current].Canonical(displayPos)
	if !ok {
		return false
	}
	c.answers[c.current] = canonical
	return true
}

// Reveal locks the current answer. It returns false if nothing is selected.
func (c *Controller) Reveal() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.answers[c.current]; !ok {
		return false
	}
	c.revealed[c.current] = true
	return true
}

func (c *Controller) Next() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.goToLocked(c.current + 1)
}

func (c *Controller) Previous() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.goToLocked(c.current - 1)
}

// GoTo moves to display position i, clamped to the list.
func (c *Controller) GoTo(i int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.goToLocked(i)
}

func (c *Controller) goToLocked(i int) {
	switch {
	case i < 0:
		i = 0
	case i >= len(c.questions):
		i = len(c.questions) - 1
	}
	c.current = i
}

func (c *Controller) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Reset restarts the current list with fresh ordering and no answers.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rebuild()
}

// ToggleQuestionShuffle flips question shuffling and restarts the session.
func (c *Controller) ToggleQuestionShuffle() Options {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts.ShuffleQuestions = !c.opts.ShuffleQuestions
	c.rebuild()
	return c.opts
}

// ToggleOptionShuffle flips option shuffling and restarts the session.
func (c *Controller) ToggleOptionShuffle() Options {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts.ShuffleOptions = !c.opts.ShuffleOptions
	c.rebuild()
	return c.opts
}

func (c *Controller) Options() Options {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opts
}

// RetryIncorrect restarts the session over the questions answered wrongly
// so far. It returns false and changes nothing when there are none.
func (c *Controller) RetryIncorrect() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	var wrong []models.MCQ
	for i, q := range c.questions {
		if sel, ok := c.answers[i]; ok && !q.IsCorrect(sel) {
			wrong = append(wrong, q)
		}
	}
	if len(wrong) == 0 {
		return false
	}
	c.source = wrong
	c.retry = true
	c.rebuild()
	return true
}

// ExitRetry returns to the full pool in its original order with shuffling
// turned off.
func (c *Controller) ExitRetry() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retry = false
	c.source = c.pool
	c.opts = Options{}
	c.rebuild()
}

func (c *Controller) InRetry() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retry
}

func (c *Controller) Progress() Progress {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := Progress{Answered: len(c.answers), Total: len(c.questions)}
	for i, sel := range c.answers {
		if c.questions[i].IsCorrect(sel) {
			p.Correct++
		} else {
			p.Incorrect++
		}
	}
	p.AllAnswered = p.Answered == p.Total
	return p
}

// Questions returns the current display list.
func (c *Controller) Questions() []models.MCQ {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.CloneMCQs(c.questions)
}
