package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	apperrors "github.com/vytor/quizflash/internal/errors"
	"github.com/vytor/quizflash/internal/models"
	"github.com/vytor/quizflash/internal/practice"
	"github.com/vytor/quizflash/internal/services"
	"github.com/vytor/quizflash/internal/shuffle"
	"github.com/vytor/quizflash/internal/testutil"
	"github.com/vytor/quizflash/internal/testutil/mocks"
)

func newPracticeService(t *testing.T, pool []models.MCQ) services.PracticeService {
	t.Helper()
	repo := new(mocks.MockSubjectRepository)
	repo.On("ActiveID", mock.Anything).Return("s1", nil).Maybe()
	repo.On("MCQs", mock.Anything, "s1").Return(pool, nil).Maybe()
	repo.On("MCQs", mock.Anything, "missing").Return(nil, nil).Maybe()
	return services.NewPracticeService(repo, shuffle.NewSeeded(3))
}

// answerAt selects the correct or a wrong option for the current question.
func answerAt(t *testing.T, svc services.PracticeService, id string, v *services.PracticeView, correct bool) *services.PracticeView {
	t.Helper()
	target := v.Question.MCQ.Answer
	if !correct {
		target = (target + 1) % len(v.Question.MCQ.Opts)
	}
	pos, ok := v.Question.Options.DisplayPosition(target)
	require.True(t, ok)
	out, err := svc.Select(context.Background(), id, pos)
	require.NoError(t, err)
	return out
}

func TestStartPractice_ActiveSubject(t *testing.T) {
	svc := newPracticeService(t, testutil.SampleMCQs(4))

	v, err := svc.StartPractice(context.Background(), "", practice.DefaultOptions())
	require.NoError(t, err)
	assert.NotEmpty(t, v.ID)
	assert.Equal(t, 4, v.Progress.Total)
	assert.Equal(t, 0, v.Question.Index)
	assert.False(t, v.InRetry)
	assert.True(t, v.Options.ShuffleQuestions)
}

func TestStartPractice_EmptyPool(t *testing.T) {
	svc := newPracticeService(t, nil)

	_, err := svc.StartPractice(context.Background(), "missing", practice.Options{})
	assertCode(t, err, apperrors.ErrCodeBadRequest)
}

func TestPractice_UnknownSession(t *testing.T) {
	svc := newPracticeService(t, testutil.SampleMCQs(2))

	_, err := svc.GetPractice(context.Background(), "nope")
	assertCode(t, err, apperrors.ErrCodeNotFound)
	assertCode(t, svc.EndPractice(context.Background(), "nope"), apperrors.ErrCodeNotFound)
}

func TestPractice_IdleSessionsEvicted(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	svc := newPracticeService(t, testutil.SampleMCQs(2))
	services.SetPracticeClock(svc, func() time.Time { return clock })

	stale, err := svc.StartPractice(ctx, "s1", practice.Options{})
	require.NoError(t, err)
	kept, err := svc.StartPractice(ctx, "s1", practice.Options{})
	require.NoError(t, err)

	clock = clock.Add(services.PracticeIdleTTL - time.Minute)
	_, err = svc.GetPractice(ctx, kept.ID)
	require.NoError(t, err)

	clock = clock.Add(2 * time.Minute)
	_, err = svc.StartPractice(ctx, "s1", practice.Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, services.PracticeSessionCount(svc))

	_, err = svc.GetPractice(ctx, stale.ID)
	assertCode(t, err, apperrors.ErrCodeNotFound)
	_, err = svc.GetPractice(ctx, kept.ID)
	assert.NoError(t, err)
}

func TestPractice_ExpiredSessionNotFound(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	svc := newPracticeService(t, testutil.SampleMCQs(2))
	services.SetPracticeClock(svc, func() time.Time { return clock })

	v, err := svc.StartPractice(ctx, "s1", practice.Options{})
	require.NoError(t, err)

	clock = clock.Add(services.PracticeIdleTTL + time.Second)
	_, err = svc.Reveal(ctx, v.ID)
	assertCode(t, err, apperrors.ErrCodeNotFound)
	assert.Equal(t, 0, services.PracticeSessionCount(svc))
}

func TestPractice_SelectRevealNavigate(t *testing.T) {
	ctx := context.Background()
	svc := newPracticeService(t, testutil.SampleMCQs(3))
	v, err := svc.StartPractice(ctx, "s1", practice.Options{})
	require.NoError(t, err)

	_, err = svc.Reveal(ctx, v.ID)
	assertCode(t, err, apperrors.ErrCodeBadRequest)

	_, err = svc.Select(ctx, v.ID, 7)
	assertCode(t, err, apperrors.ErrCodeValidation)

	v = answerAt(t, svc, v.ID, v, true)
	require.NotNil(t, v.Question.Selected)
	assert.True(t, v.Question.Correct)

	v, err = svc.Reveal(ctx, v.ID)
	require.NoError(t, err)
	assert.True(t, v.Question.Revealed)

	// Selections on a revealed question are ignored.
	v, err = svc.Select(ctx, v.ID, 0)
	require.NoError(t, err)
	assert.True(t, v.Question.Correct)

	v, err = svc.Navigate(ctx, v.ID, services.NavNext, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, v.Question.Index)
	v, err = svc.Navigate(ctx, v.ID, services.NavGoTo, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, v.Question.Index)
	v, err = svc.Navigate(ctx, v.ID, services.NavPrevious, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, v.Question.Index)
}

func TestPractice_RetryIncorrect(t *testing.T) {
	ctx := context.Background()
	svc := newPracticeService(t, testutil.SampleMCQs(3))
	v, err := svc.StartPractice(ctx, "s1", practice.Options{})
	require.NoError(t, err)
	id := v.ID

	v, err = svc.RetryIncorrect(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, services.NoticeNothingToRetry, v.Notice)
	assert.False(t, v.InRetry)

	v = answerAt(t, svc, id, v, true)
	v, err = svc.Navigate(ctx, id, services.NavNext, 0)
	require.NoError(t, err)
	v = answerAt(t, svc, id, v, false)
	wrongID := v.Question.MCQ.ID

	v, err = svc.RetryIncorrect(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, v.Notice)
	assert.True(t, v.InRetry)
	assert.Equal(t, 1, v.Progress.Total)
	assert.Equal(t, wrongID, v.Question.MCQ.ID)

	v, err = svc.ExitRetry(ctx, id)
	require.NoError(t, err)
	assert.False(t, v.InRetry)
	assert.Equal(t, 3, v.Progress.Total)
}

func TestPractice_ToggleResetsProgress(t *testing.T) {
	ctx := context.Background()
	svc := newPracticeService(t, testutil.SampleMCQs(3))
	v, err := svc.StartPractice(ctx, "s1", practice.Options{})
	require.NoError(t, err)

	v = answerAt(t, svc, v.ID, v, true)
	assert.Equal(t, 1, v.Progress.Answered)

	v, err = svc.ToggleOptionShuffle(ctx, v.ID)
	require.NoError(t, err)
	assert.True(t, v.Options.ShuffleOptions)
	assert.Zero(t, v.Progress.Answered)

	v, err = svc.ToggleQuestionShuffle(ctx, v.ID)
	require.NoError(t, err)
	assert.True(t, v.Options.ShuffleQuestions)

	v = answerAt(t, svc, v.ID, v, false)
	v, err = svc.Reset(ctx, v.ID)
	require.NoError(t, err)
	assert.Zero(t, v.Progress.Answered)
	assert.Equal(t, 0, v.Question.Index)
}

func TestPractice_End(t *testing.T) {
	ctx := context.Background()
	svc := newPracticeService(t, testutil.SampleMCQs(2))
	v, err := svc.StartPractice(ctx, "s1", practice.DefaultOptions())
	require.NoError(t, err)

	require.NoError(t, svc.EndPractice(ctx, v.ID))
	_, err = svc.GetPractice(ctx, v.ID)
	assertCode(t, err, apperrors.ErrCodeNotFound)
}
