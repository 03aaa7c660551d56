package results_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/quizflash/internal/models"
	"github.com/vytor/quizflash/internal/results"
	"github.com/vytor/quizflash/internal/testutil"
)

// finished has 4 questions (answers 0,1,2,3): two right, one wrong, one skipped.
func finished() models.ExamState {
	return models.ExamState{
		Questions: testutil.SampleMCQs(4),
		Answers:   map[int]int{0: 0, 1: 1, 2: 0},
	}
}

func TestCompute(t *testing.T) {
	s := results.Compute(finished())

	assert.Equal(t, 2, s.Score)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 1, s.Incorrect)
	assert.Equal(t, 1, s.Unanswered)
	assert.Equal(t, 50, s.Percentage)
	require.Len(t, s.Items, 4)
	assert.True(t, s.Items[0].Correct)
	assert.False(t, s.Items[2].Correct)
	assert.Nil(t, s.Items[3].Selected)
}

func TestCompute_Empty(t *testing.T) {
	s := results.Compute(models.ExamState{})
	assert.Equal(t, 0, s.Total)
	assert.Equal(t, 0, s.Percentage)
	assert.Empty(t, s.Items)
}

func TestPercentage_RoundsHalfUp(t *testing.T) {
	assert.Equal(t, 67, results.Percentage(2, 3))
	assert.Equal(t, 33, results.Percentage(1, 3))
	assert.Equal(t, 13, results.Percentage(1, 8))
	assert.Equal(t, 100, results.Percentage(5, 5))
	assert.Equal(t, 0, results.Percentage(0, 0))
}

func TestFilter(t *testing.T) {
	s := results.Compute(finished())

	indices := func(items []results.Item) []int {
		out := []int{}
		for _, it := range items {
			out = append(out, it.Index)
		}
		return out
	}

	assert.Equal(t, []int{0, 1, 2, 3}, indices(s.Filter(results.FilterAll)))
	assert.Equal(t, []int{0, 1}, indices(s.Filter(results.FilterCorrect)))
	assert.Equal(t, []int{2, 3}, indices(s.Filter(results.FilterIncorrect)))
}

func TestParseFilter(t *testing.T) {
	f, err := results.ParseFilter("")
	require.NoError(t, err)
	assert.Equal(t, results.FilterAll, f)

	f, err = results.ParseFilter("incorrect")
	require.NoError(t, err)
	assert.Equal(t, results.FilterIncorrect, f)

	_, err = results.ParseFilter("wrong")
	assert.Error(t, err)
}

func TestExport(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	data, err := results.Export(results.Compute(finished()), now)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, float64(2), out["score"])
	assert.Equal(t, float64(4), out["total"])
	assert.Equal(t, float64(50), out["percentage"])
	assert.Equal(t, "2024-05-01T12:00:00Z", out["date"])

	answers := out["answers"].([]any)
	require.Len(t, answers, 4)

	wrong := answers[2].(map[string]any)
	assert.Equal(t, "Question 2", wrong["question"])
	assert.Equal(t, "A2", wrong["yourAnswer"])
	assert.Equal(t, "C2", wrong["correctAnswer"])
	assert.Equal(t, false, wrong["correct"])

	skipped := answers[3].(map[string]any)
	assert.Contains(t, skipped, "yourAnswer")
	assert.Nil(t, skipped["yourAnswer"])
	assert.Equal(t, "D3", skipped["correctAnswer"])
}
