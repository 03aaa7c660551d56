package models

import "encoding/json"

// MCQ is a single multiple-choice question. Answer is the canonical (0-based)
// index into Opts.
type MCQ struct {
	ID          string   `json:"id"`
	Q           string   `json:"q"`
	Opts        []string `json:"opts"`
	Answer      int      `json:"answer"`
	Explanation string   `json:"explanation,omitempty"`
}

// Clone returns a copy that shares no slices with m.
func (m MCQ) Clone() MCQ {
	out := m
	out.Opts = append([]string(nil), m.Opts...)
	return out
}

// IsCorrect reports whether the canonical option index is the right answer.
func (m MCQ) IsCorrect(canonical int) bool {
	return canonical == m.Answer
}

// CloneMCQs deep-copies a collection.
func CloneMCQs(in []MCQ) []MCQ {
	if in == nil {
		return nil
	}
	out := make([]MCQ, len(in))
	for i, m := range in {
		out[i] = m.Clone()
	}
	return out
}

type exportedMCQ struct {
	Q           string   `json:"q"`
	Opts        []string `json:"opts"`
	Answer      int      `json:"answer"`
	Explanation string   `json:"explanation"`
}

// ExportMCQs renders a collection in the import file format using the
// canonical field names only. Ids are not exported.
func ExportMCQs(mcqs []MCQ) ([]byte, error) {
	out := make([]exportedMCQ, 0, len(mcqs))
	for _, m := range mcqs {
		out = append(out, exportedMCQ{
			Q:           m.Q,
			Opts:        m.Opts,
			Answer:      m.Answer,
			Explanation: m.Explanation,
		})
	}
	return json.MarshalIndent(out, "", "  ")
}
