// Package shuffle derives question selections and option display orders for
// exam and practice sessions.
package shuffle

import (
	"math/rand/v2"
	"sync"

	"github.com/vytor/quizflash/internal/models"
)

// Randomizer is safe for concurrent use.
type Randomizer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a Randomizer seeded from the runtime's entropy source.
func New() *Randomizer {
	return &Randomizer{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeeded returns a deterministic Randomizer.
func NewSeeded(seed uint64) *Randomizer {
	return &Randomizer{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Perm returns a uniformly random permutation of [0, n).
func (r *Randomizer) Perm(n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	// rand.Shuffle is an unbiased Fisher-Yates.
	r.rng.Shuffle(n, func(i, j int) { p[i], p[j] = p[j], p[i] })
	return p
}

// SelectQuestions permutes pool uniformly and returns the first count
// entries as independent copies. count must already be within [1, len(pool)].
func (r *Randomizer) SelectQuestions(pool []models.MCQ, count int) []models.MCQ {
	perm := r.Perm(len(pool))
	out := make([]models.MCQ, count)
	for i := 0; i < count; i++ {
		out[i] = pool[perm[i]].Clone()
	}
	return out
}

// Questions returns the whole pool in random order.
func (r *Randomizer) Questions(pool []models.MCQ) []models.MCQ {
	return r.SelectQuestions(pool, len(pool))
}

// ShuffleOptions draws a random display order for the question's options.
func (r *Randomizer) ShuffleOptions(m models.MCQ) models.ShuffledOptions {
	return fromMapping(m, r.Perm(len(m.Opts)))
}

// Identity returns the canonical display order.
func Identity(m models.MCQ) models.ShuffledOptions {
	mapping := make([]int, len(m.Opts))
	for i := range mapping {
		mapping[i] = i
	}
	return fromMapping(m, mapping)
}

func fromMapping(m models.MCQ, mapping []int) models.ShuffledOptions {
	shuffled := make([]string, len(mapping))
	for i, c := range mapping {
		shuffled[i] = m.Opts[c]
	}
	return models.ShuffledOptions{Shuffled: shuffled, Mapping: mapping}
}
