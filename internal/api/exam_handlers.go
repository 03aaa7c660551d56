package api

import (
	"net/http"

	"github.com/vytor/quizflash/internal/errors"
	"github.com/vytor/quizflash/internal/results"
	"github.com/vytor/quizflash/internal/services"
)

type answerRequest struct {
	QuestionIndex int `json:"questionIndex"`
	// Option is the display position of the chosen option.
	Option int `json:"option"`
}

type navigateRequest struct {
	Action string `json:"action"`
	Index  int    `json:"index"`
}

func (s *Server) handleStartExam(w http.ResponseWriter, r *http.Request) {
	var req services.StartExamRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	view, err := s.ExamService.StartExam(r.Context(), req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, view)
}

func (s *Server) handleCurrentExam(w http.ResponseWriter, r *http.Request) {
	view, err := s.ExamService.CurrentExam(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}

func (s *Server) handleAnswerExam(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	view, err := s.ExamService.Answer(r.Context(), req.QuestionIndex, req.Option)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}

func (s *Server) handleNavigateExam(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	action, err := services.ParseNavAction(req.Action)
	if err != nil {
		handleError(w, r, err)
		return
	}

	view, err := s.ExamService.Navigate(r.Context(), action, req.Index)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}

func (s *Server) handleSubmitExam(w http.ResponseWriter, r *http.Request) {
	result, err := s.ExamService.SubmitExam(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

func (s *Server) handleExitExam(w http.ResponseWriter, r *http.Request) {
	if err := s.ExamService.ExitExam(r.Context()); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExamResult(w http.ResponseWriter, r *http.Request) {
	filter, err := results.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		handleError(w, r, errors.NewValidationError("filter", "must be one of all, correct, incorrect"))
		return
	}

	result, err := s.ExamService.LastResult(r.Context(), filter)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

func (s *Server) handleExportExamResult(w http.ResponseWriter, r *http.Request) {
	data, err := s.ExamService.ExportResult(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeDownload(w, "exam-results.json", data)
}
