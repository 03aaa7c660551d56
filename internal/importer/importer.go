// Package importer folds validated MCQs into an existing collection and
// guarantees identifier uniqueness.
package importer

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/vytor/quizflash/internal/models"
)

// Mode selects how incoming MCQs combine with the existing collection.
type Mode string

const (
	ModeOverride Mode = "override"
	ModeAdd      Mode = "add"
)

// ParseMode accepts "override" or "add" (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeOverride:
		return ModeOverride, nil
	case ModeAdd:
		return ModeAdd, nil
	default:
		return "", fmt.Errorf("unknown import mode %q: must be 'override' or 'add'", s)
	}
}

// Merger merges collections. NewID must return ids that are unique with
// overwhelming probability.
type Merger struct {
	NewID func() string
}

var defaultMerger = Merger{NewID: uuid.NewString}

// EnsureUniqueIDs runs the dedup pass with the default id generator.
func EnsureUniqueIDs(mcqs []models.MCQ) []models.MCQ {
	return defaultMerger.EnsureUniqueIDs(mcqs)
}

// Merge combines collections with the default id generator.
func Merge(existing, incoming []models.MCQ, mode Mode) []models.MCQ {
	return defaultMerger.Merge(existing, incoming, mode)
}

// EnsureUniqueIDs returns a copy of mcqs in the same order where every MCQ
// without an id, or with an id already used earlier in the sequence, gets a
// fresh one. The first holder of an id keeps it.
func (m Merger) EnsureUniqueIDs(mcqs []models.MCQ) []models.MCQ {
	newID := m.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	seen := make(map[string]struct{}, len(mcqs))
	// Ids kept unchanged must not be handed out again to an earlier duplicate.
	for _, q := range mcqs {
		if q.ID != "" {
			seen[q.ID] = struct{}{}
		}
	}

	out := make([]models.MCQ, len(mcqs))
	kept := make(map[string]struct{}, len(mcqs))
	for i, q := range mcqs {
		q = q.Clone()
		if _, dup := kept[q.ID]; q.ID == "" || dup {
			id := newID()
			for {
				_, taken := seen[id]
				if !taken {
					break
				}
				id = newID()
			}
			q.ID = id
			seen[id] = struct{}{}
		}
		kept[q.ID] = struct{}{}
		out[i] = q
	}
	return out
}

// Merge applies mode and then the dedup pass over the resulting sequence.
// Inputs are assumed valid and are not mutated.
func (m Merger) Merge(existing, incoming []models.MCQ, mode Mode) []models.MCQ {
	if mode == ModeOverride {
		return m.EnsureUniqueIDs(incoming)
	}
	combined := make([]models.MCQ, 0, len(existing)+len(incoming))
	combined = append(combined, existing...)
	combined = append(combined, incoming...)
	return m.EnsureUniqueIDs(combined)
}
