package models

// ShuffledOptions is the display order of one question's options.
// Mapping[i] is the canonical index rendered at display position i and
// Shuffled[i] == mcq.Opts[Mapping[i]].
type ShuffledOptions struct {
	Shuffled []string `json:"shuffled"`
	Mapping  []int    `json:"mapping"`
}

// Canonical maps a display position back to the canonical option index.
func (s ShuffledOptions) Canonical(displayPos int) (int, bool) {
	if displayPos < 0 || displayPos >= len(s.Mapping) {
		return 0, false
	}
	return s.Mapping[displayPos], true
}

// DisplayPosition finds where a canonical option index is rendered.
func (s ShuffledOptions) DisplayPosition(canonical int) (int, bool) {
	for i, c := range s.Mapping {
		if c == canonical {
			return i, true
		}
	}
	return 0, false
}

// Valid reports whether the mapping is a permutation of the question's
// option indices and the display order agrees with it.
func (s ShuffledOptions) Valid(m MCQ) bool {
	n := len(m.Opts)
	if len(s.Mapping) != n || len(s.Shuffled) != n {
		return false
	}
	seen := make([]bool, n)
	for i, c := range s.Mapping {
		if c < 0 || c >= n || seen[c] {
			return false
		}
		seen[c] = true
		if s.Shuffled[i] != m.Opts[c] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (s ShuffledOptions) Clone() ShuffledOptions {
	return ShuffledOptions{
		Shuffled: append([]string(nil), s.Shuffled...),
		Mapping:  append([]int(nil), s.Mapping...),
	}
}

// ExamState is the persisted snapshot of a timed session. Answers are keyed
// by question index and hold canonical option indices. StartTime is unix
// milliseconds.
type ExamState struct {
	Questions       []MCQ                   `json:"questions"`
	CurrentQuestion int                     `json:"currentQuestion"`
	Answers         map[int]int             `json:"answers"`
	ShuffledOptions map[int]ShuffledOptions `json:"shuffledOptions"`
	TimeRemaining   int                     `json:"timeRemaining"`
	IsActive        bool                    `json:"isActive"`
	SessionID       string                  `json:"sessionId"`
	StartTime       int64                   `json:"startTime"`
	DurationSeconds int                     `json:"durationSeconds"`
}

// Clone returns a deep copy of the state.
func (e ExamState) Clone() ExamState {
	out := e
	out.Questions = CloneMCQs(e.Questions)
	out.Answers = make(map[int]int, len(e.Answers))
	for k, v := range e.Answers {
		out.Answers[k] = v
	}
	out.ShuffledOptions = make(map[int]ShuffledOptions, len(e.ShuffledOptions))
	for k, v := range e.ShuffledOptions {
		out.ShuffledOptions[k] = v.Clone()
	}
	return out
}

// AnsweredCount is the number of questions with a recorded answer.
func (e ExamState) AnsweredCount() int {
	return len(e.Answers)
}

// ExamResult is a finished exam kept for the results view.
type ExamResult struct {
	State       ExamState `json:"state"`
	Status      string    `json:"status"`
	CompletedAt int64     `json:"completedAt"`
	TimeSpent   int       `json:"timeSpent"`
}
