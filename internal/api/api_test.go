package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/vytor/quizflash/internal/api"
	"github.com/vytor/quizflash/internal/repository/kv"
	"github.com/vytor/quizflash/internal/services"
	"github.com/vytor/quizflash/internal/shuffle"
	"github.com/vytor/quizflash/internal/store"
)

const sampleImport = `[
  {"q": "2+2?", "opts": ["3", "4", "5"], "answer": 1},
  {"question": "Capital of France?", "options": ["Paris", "Rome"], "correctAnswer": 0},
  {"q": "Largest ocean?", "opts": ["Atlantic", "Pacific"], "answer": 1, "explanation": "By area"}
]`

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return context.DeadlineExceeded }

type APISuite struct {
	suite.Suite
	srv     *api.Server
	handler http.Handler
	exams   services.ExamService
}

func (s *APISuite) SetupTest() {
	mem := store.NewMemory()
	subjects := kv.NewSubjectRepository(mem)
	rnd := shuffle.NewSeeded(11)

	s.exams = services.NewExamService(subjects, kv.NewExamRepository(mem), rnd, services.ExamConfig{
		WarningSeconds: 300,
		DefaultMinutes: 30,
		MaxMinutes:     180,
		TickInterval:   time.Hour,
	})
	s.srv = &api.Server{
		SubjectService:  services.NewSubjectService(subjects),
		MCQService:      services.NewMCQService(subjects, 1024),
		ExamService:     s.exams,
		PracticeService: services.NewPracticeService(subjects, rnd),
		MaxUploadBytes:  1024,
	}
	s.handler = s.srv.Routes()
}

func (s *APISuite) TearDownTest() {
	s.exams.Shutdown()
}

func (s *APISuite) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *APISuite) decode(rec *httptest.ResponseRecorder, v any) {
	s.T().Helper()
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details []struct {
			ItemIndex int    `json:"itemIndex"`
			Field     string `json:"field"`
			Message   string `json:"message"`
		} `json:"details"`
	} `json:"error"`
}

// createSubject creates a subject with the sample questions and makes it active.
func (s *APISuite) createSubject(name string) string {
	rec := s.do(http.MethodPost, "/api/subjects", `{"name":"`+name+`"}`)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var subject struct {
		ID string `json:"id"`
	}
	s.decode(rec, &subject)

	rec = s.do(http.MethodPost, "/api/subjects/"+subject.ID+"/mcqs/import?mode=override", sampleImport)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPut, "/api/subjects/active", `{"id":"`+subject.ID+`"}`)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	return subject.ID
}

func (s *APISuite) TestHealth() {
	rec := s.do(http.MethodGet, "/healthz", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("OK", rec.Body.String())

	rec = s.do(http.MethodGet, "/readyz", "")
	s.Equal(http.StatusOK, rec.Code)

	s.srv.Pinger = failingPinger{}
	rec = httptest.NewRecorder()
	s.srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	s.Equal(http.StatusServiceUnavailable, rec.Code)
}

func (s *APISuite) TestRequestIDAndCORS() {
	req := httptest.NewRequest(http.MethodOptions, "/api/subjects", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	s.Equal("*", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/subjects", nil)
	req.Header.Set("X-Request-ID", "abc123")
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	s.Equal("abc123", rec.Header().Get("X-Request-ID"))
	s.Equal("nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func (s *APISuite) TestSubjectLifecycle() {
	rec := s.do(http.MethodGet, "/api/subjects", "")
	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`[]`, rec.Body.String())

	id := s.createSubject("Biology")

	rec = s.do(http.MethodGet, "/api/subjects/"+id, "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var subject struct {
		Name     string `json:"name"`
		MCQCount int    `json:"mcqCount"`
		Favorite bool   `json:"isFavorite"`
	}
	s.decode(rec, &subject)
	s.Equal("Biology", subject.Name)
	s.Equal(3, subject.MCQCount)

	rec = s.do(http.MethodPatch, "/api/subjects/"+id, `{"name":"Bio 101"}`)
	s.Require().Equal(http.StatusOK, rec.Code)
	rec = s.do(http.MethodPost, "/api/subjects/"+id+"/favorite", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.decode(rec, &subject)
	s.Equal("Bio 101", subject.Name)
	s.True(subject.Favorite)

	rec = s.do(http.MethodDelete, "/api/subjects/"+id, "")
	s.Equal(http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, "/api/subjects/active", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"subject":null}`, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/subjects/"+id, "")
	s.Equal(http.StatusNotFound, rec.Code)
	var e apiError
	s.decode(rec, &e)
	s.Equal("NOT_FOUND", e.Error.Code)
}

func (s *APISuite) TestCreateSubject_Invalid() {
	rec := s.do(http.MethodPost, "/api/subjects", `{"name":"  "}`)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/subjects", `{"name":`)
	s.Equal(http.StatusBadRequest, rec.Code)
	var e apiError
	s.decode(rec, &e)
	s.Equal("BAD_REQUEST", e.Error.Code)
}

func (s *APISuite) TestImport_RejectsInvalidBatch() {
	id := s.createSubject("Chemistry")

	rec := s.do(http.MethodPost, "/api/subjects/"+id+"/mcqs/import", `[{"q":"x","opts":["a"],"answer":0}]`)
	s.Equal(http.StatusUnprocessableEntity, rec.Code)
	var e apiError
	s.decode(rec, &e)
	s.Equal("IMPORT_INVALID", e.Error.Code)
	s.Require().Len(e.Error.Details, 1)
	s.Equal(0, e.Error.Details[0].ItemIndex)
	s.Equal("opts", e.Error.Details[0].Field)
	s.Equal("MCQ 1: At least 2 options are required", e.Error.Details[0].Message)

	rec = s.do(http.MethodPost, "/api/subjects/"+id+"/mcqs/import?mode=merge", sampleImport)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/api/subjects/"+id+"/mcqs", "")
	var mcqs []map[string]any
	s.decode(rec, &mcqs)
	s.Len(mcqs, 3)
}

func (s *APISuite) TestImport_Multipart() {
	id := s.createSubject("Geography")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "mcqs.json")
	s.Require().NoError(err)
	_, err = fw.Write([]byte(`[{"q":"new","opts":["a","b"],"answer":0}]`))
	s.Require().NoError(err)
	s.Require().NoError(mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/subjects/"+id+"/mcqs/import?mode=add", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var report services.ImportReport
	s.decode(rec, &report)
	s.Equal(1, report.Imported)
	s.Equal(4, report.Total)
}

func (s *APISuite) TestImport_TooLarge() {
	id := s.createSubject("History")

	big := `[` + strings.Repeat(`{"q":"x","opts":["a","b"],"answer":0},`, 60) + `{"q":"x","opts":["a","b"],"answer":0}]`
	rec := s.do(http.MethodPost, "/api/subjects/"+id+"/mcqs/import", big)
	s.Equal(http.StatusUnprocessableEntity, rec.Code)
}

func (s *APISuite) TestMCQEditing() {
	id := s.createSubject("Physics")
	base := "/api/subjects/" + id + "/mcqs"

	rec := s.do(http.MethodGet, base+"?q=paris&inOptions=true", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var found []struct {
		ID string `json:"id"`
		Q  string `json:"q"`
	}
	s.decode(rec, &found)
	s.Require().Len(found, 1)
	s.Equal("Capital of France?", found[0].Q)

	rec = s.do(http.MethodPut, base+"/"+found[0].ID, `{"q":"Capital of Italy?","opts":["Paris","Rome"],"answer":1}`)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, base, `{"q":"Speed of light?","opts":["c","g"],"answer":0}`)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodDelete, base+"/"+found[0].ID, "")
	s.Equal(http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodDelete, base+"/"+found[0].ID, "")
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, base+"/export", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Header().Get("Content-Disposition"), "attachment")
	var exported []map[string]any
	s.decode(rec, &exported)
	s.Len(exported, 3)

	rec = s.do(http.MethodDelete, base, "")
	s.Equal(http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodGet, base, "")
	s.JSONEq(`[]`, rec.Body.String())
}

func (s *APISuite) TestExamFlow() {
	s.createSubject("Maths")

	rec := s.do(http.MethodPost, "/api/exam", `{"durationMinutes":10}`)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var view services.ExamView
	s.decode(rec, &view)
	s.Len(view.State.Questions, 3)
	s.Equal(600, view.State.TimeRemaining)

	rec = s.do(http.MethodPost, "/api/exam", "")
	s.Equal(http.StatusConflict, rec.Code)

	pos, ok := view.State.ShuffledOptions[0].DisplayPosition(view.State.Questions[0].Answer)
	s.Require().True(ok)
	body, _ := json.Marshal(map[string]int{"questionIndex": 0, "option": pos})
	rec = s.do(http.MethodPost, "/api/exam/answer", string(body))
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/api/exam/navigate", `{"action":"skip"}`)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.decode(rec, &view)
	s.Equal(1, view.State.CurrentQuestion)

	rec = s.do(http.MethodPost, "/api/exam/navigate", `{"action":"jump"}`)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/exam/submit", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var result services.ResultView
	s.decode(rec, &result)
	s.Equal("submitted", result.Status)
	s.Equal(1, result.Summary.Score)
	s.Equal(33, result.Summary.Percentage)

	rec = s.do(http.MethodGet, "/api/exam", "")
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/api/exam/result?filter=correct", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.decode(rec, &result)
	s.Len(result.Summary.Items, 1)

	rec = s.do(http.MethodGet, "/api/exam/result?filter=bogus", "")
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/api/exam/result/export", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var exported map[string]any
	s.decode(rec, &exported)
	s.EqualValues(3, exported["total"])
}

func (s *APISuite) TestPracticeFlow() {
	s.createSubject("Art")

	rec := s.do(http.MethodPost, "/api/practice", `{"shuffleQuestions":false,"shuffleOptions":false}`)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var view services.PracticeView
	s.decode(rec, &view)
	s.NotEmpty(view.ID)
	s.Equal(3, view.Progress.Total)
	s.False(view.Options.ShuffleQuestions)
	base := "/api/practice/" + view.ID

	rec = s.do(http.MethodPost, base+"/retry", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.decode(rec, &view)
	s.Equal(services.NoticeNothingToRetry, view.Notice)

	// First sample question answers at index 1; pick index 0 instead.
	rec = s.do(http.MethodPost, base+"/select", `{"option":0}`)
	s.Require().Equal(http.StatusOK, rec.Code)
	rec = s.do(http.MethodPost, base+"/reveal", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.decode(rec, &view)
	s.True(view.Question.Revealed)
	s.False(view.Question.Correct)

	rec = s.do(http.MethodPost, base+"/retry", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	view = services.PracticeView{}
	s.decode(rec, &view)
	s.True(view.InRetry)
	s.Equal(1, view.Progress.Total)
	s.Equal("2+2?", view.Question.MCQ.Q)

	rec = s.do(http.MethodDelete, base+"/retry", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.decode(rec, &view)
	s.False(view.InRetry)

	rec = s.do(http.MethodDelete, base, "")
	s.Equal(http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodGet, base, "")
	s.Equal(http.StatusNotFound, rec.Code)
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}
