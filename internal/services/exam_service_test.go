package services_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	apperrors "github.com/vytor/quizflash/internal/errors"
	"github.com/vytor/quizflash/internal/exam"
	"github.com/vytor/quizflash/internal/models"
	"github.com/vytor/quizflash/internal/repository"
	"github.com/vytor/quizflash/internal/repository/kv"
	"github.com/vytor/quizflash/internal/results"
	"github.com/vytor/quizflash/internal/services"
	"github.com/vytor/quizflash/internal/shuffle"
	"github.com/vytor/quizflash/internal/store"
	"github.com/vytor/quizflash/internal/testutil"
)

type ExamServiceSuite struct {
	suite.Suite
	ctx      context.Context
	store    *store.Memory
	subjects repository.SubjectRepository
	exams    repository.ExamRepository
	svc      services.ExamService
}

func (s *ExamServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewMemory()
	s.subjects = kv.NewSubjectRepository(s.store)
	s.exams = kv.NewExamRepository(s.store)

	s.Require().NoError(s.subjects.Create(s.ctx, models.Subject{ID: "s1", Name: "Biology"}))
	s.Require().NoError(s.subjects.ReplaceMCQs(s.ctx, "s1", testutil.SampleMCQs(5)))
	s.Require().NoError(s.subjects.SetActiveID(s.ctx, "s1"))
	s.Require().NoError(s.subjects.Create(s.ctx, models.Subject{ID: "empty", Name: "Empty"}))

	s.svc = s.newService()
}

func (s *ExamServiceSuite) newService() services.ExamService {
	// The timer never fires during these tests.
	return services.NewExamService(s.subjects, s.exams, shuffle.NewSeeded(7), services.ExamConfig{
		WarningSeconds: exam.DefaultWarningSeconds,
		DefaultMinutes: 30,
		MaxMinutes:     60,
		TickInterval:   time.Hour,
	})
}

func (s *ExamServiceSuite) TearDownTest() {
	s.svc.Shutdown()
}

func (s *ExamServiceSuite) requireCode(err error, code string) {
	s.T().Helper()
	appErr, ok := apperrors.As(err)
	s.Require().True(ok, "expected AppError, got %v", err)
	s.Equal(code, appErr.Code)
}

func (s *ExamServiceSuite) TestStartExam() {
	v, err := s.svc.StartExam(s.ctx, services.StartExamRequest{DurationMinutes: 10, QuestionCount: 3})
	s.Require().NoError(err)

	s.Equal(exam.StatusActive, v.Status)
	s.Len(v.State.Questions, 3)
	s.Equal(600, v.State.TimeRemaining)
	s.Equal(200, v.SecondsPerQuestion)
	s.False(v.WarningActive)
	s.Zero(v.Answered)

	stored, err := s.exams.LoadState(s.ctx)
	s.Require().NoError(err)
	s.Equal(v.State.SessionID, stored.SessionID)
}

func (s *ExamServiceSuite) TestStartExam_Defaults() {
	v, err := s.svc.StartExam(s.ctx, services.StartExamRequest{SubjectID: "s1"})
	s.Require().NoError(err)
	s.Len(v.State.Questions, 5)
	s.Equal(30*60, v.State.DurationSeconds)
}

func (s *ExamServiceSuite) TestStartExam_ShortExamShowsWarning() {
	v, err := s.svc.StartExam(s.ctx, services.StartExamRequest{DurationMinutes: 2})
	s.Require().NoError(err)
	s.True(v.WarningActive)
}

func (s *ExamServiceSuite) TestStartExam_Rejected() {
	_, err := s.svc.StartExam(s.ctx, services.StartExamRequest{DurationMinutes: 61})
	s.requireCode(err, apperrors.ErrCodeValidation)

	_, err = s.svc.StartExam(s.ctx, services.StartExamRequest{QuestionCount: -1})
	s.requireCode(err, apperrors.ErrCodeValidation)

	_, err = s.svc.StartExam(s.ctx, services.StartExamRequest{SubjectID: "empty"})
	s.requireCode(err, apperrors.ErrCodeBadRequest)

	_, err = s.svc.StartExam(s.ctx, services.StartExamRequest{SubjectID: "missing"})
	s.requireCode(err, apperrors.ErrCodeNotFound)

	s.Require().NoError(s.subjects.SetActiveID(s.ctx, ""))
	_, err = s.svc.StartExam(s.ctx, services.StartExamRequest{})
	s.requireCode(err, apperrors.ErrCodeBadRequest)
}

func (s *ExamServiceSuite) TestStartExam_ConflictWhileActive() {
	_, err := s.svc.StartExam(s.ctx, services.StartExamRequest{})
	s.Require().NoError(err)

	_, err = s.svc.StartExam(s.ctx, services.StartExamRequest{})
	s.requireCode(err, apperrors.ErrCodeConflict)
}

func (s *ExamServiceSuite) TestAnswerNavigateSubmit() {
	v, err := s.svc.StartExam(s.ctx, services.StartExamRequest{DurationMinutes: 10, QuestionCount: 3})
	s.Require().NoError(err)

	first := v.State.Questions[0]
	pos, ok := v.State.ShuffledOptions[0].DisplayPosition(first.Answer)
	s.Require().True(ok)

	v, err = s.svc.Answer(s.ctx, 0, pos)
	s.Require().NoError(err)
	s.Equal(1, v.Answered)
	s.Equal(first.Answer, v.State.Answers[0])

	_, err = s.svc.Answer(s.ctx, 9, 0)
	s.requireCode(err, apperrors.ErrCodeValidation)
	_, err = s.svc.Answer(s.ctx, 0, 9)
	s.requireCode(err, apperrors.ErrCodeValidation)

	v, err = s.svc.Navigate(s.ctx, services.NavNext, 0)
	s.Require().NoError(err)
	s.Equal(1, v.State.CurrentQuestion)
	v, err = s.svc.Navigate(s.ctx, services.NavGoTo, 99)
	s.Require().NoError(err)
	s.Equal(2, v.State.CurrentQuestion)

	res, err := s.svc.SubmitExam(s.ctx)
	s.Require().NoError(err)
	s.Equal(string(exam.StatusSubmitted), res.Status)
	s.Equal(1, res.Summary.Score)
	s.Equal(3, res.Summary.Total)
	s.Equal(2, res.Summary.Unanswered)

	_, err = s.svc.CurrentExam(s.ctx)
	s.requireCode(err, apperrors.ErrCodeNotFound)
	_, err = s.exams.LoadState(s.ctx)
	s.Error(err)

	last, err := s.svc.LastResult(s.ctx, results.FilterIncorrect)
	s.Require().NoError(err)
	s.Equal(results.FilterIncorrect, last.Filter)
	s.Len(last.Summary.Items, 2)

	data, err := s.svc.ExportResult(s.ctx)
	s.Require().NoError(err)
	var exported map[string]any
	s.Require().NoError(json.Unmarshal(data, &exported))
	s.EqualValues(1, exported["score"])
	s.EqualValues(3, exported["total"])
}

func (s *ExamServiceSuite) TestExitExam_StoresAbandonedResult() {
	_, err := s.svc.StartExam(s.ctx, services.StartExamRequest{})
	s.Require().NoError(err)

	s.Require().NoError(s.svc.ExitExam(s.ctx))

	last, err := s.svc.LastResult(s.ctx, results.FilterAll)
	s.Require().NoError(err)
	s.Equal(string(exam.StatusAbandoned), last.Status)

	s.requireCode(s.svc.ExitExam(s.ctx), apperrors.ErrCodeNotFound)
}

func (s *ExamServiceSuite) TestNoExam() {
	_, err := s.svc.CurrentExam(s.ctx)
	s.requireCode(err, apperrors.ErrCodeNotFound)

	_, err = s.svc.SubmitExam(s.ctx)
	s.requireCode(err, apperrors.ErrCodeNotFound)

	_, err = s.svc.LastResult(s.ctx, results.FilterAll)
	s.requireCode(err, apperrors.ErrCodeNotFound)

	_, err = s.svc.ExportResult(s.ctx)
	s.requireCode(err, apperrors.ErrCodeNotFound)

	_, err = s.svc.ResumeExam(s.ctx)
	s.requireCode(err, apperrors.ErrCodeNotFound)
}

func (s *ExamServiceSuite) TestResumeExam_AfterRestart() {
	v, err := s.svc.StartExam(s.ctx, services.StartExamRequest{DurationMinutes: 10})
	s.Require().NoError(err)
	_, err = s.svc.Answer(s.ctx, 1, 0)
	s.Require().NoError(err)
	s.svc.Shutdown()

	restarted := s.newService()
	defer restarted.Shutdown()

	resumed, err := restarted.ResumeExam(s.ctx)
	s.Require().NoError(err)
	s.Equal(v.State.SessionID, resumed.State.SessionID)
	s.Equal(1, resumed.Answered)
	s.Equal(exam.StatusActive, resumed.Status)

	again, err := restarted.ResumeExam(s.ctx)
	s.Require().NoError(err)
	s.Equal(v.State.SessionID, again.State.SessionID)
}

func TestExamServiceSuite(t *testing.T) {
	suite.Run(t, new(ExamServiceSuite))
}
