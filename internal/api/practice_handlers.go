package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vytor/quizflash/internal/practice"
	"github.com/vytor/quizflash/internal/services"
)

type startPracticeRequest struct {
	SubjectID string `json:"subjectId"`
	// Nil toggles default to on.
	ShuffleQuestions *bool `json:"shuffleQuestions"`
	ShuffleOptions   *bool `json:"shuffleOptions"`
}

func (req startPracticeRequest) options() practice.Options {
	opts := practice.DefaultOptions()
	if req.ShuffleQuestions != nil {
		opts.ShuffleQuestions = *req.ShuffleQuestions
	}
	if req.ShuffleOptions != nil {
		opts.ShuffleOptions = *req.ShuffleOptions
	}
	return opts
}

type selectRequest struct {
	Option int `json:"option"`
}

func practiceID(r *http.Request) string {
	return chi.URLParam(r, "practiceID")
}

func writePractice(w http.ResponseWriter, r *http.Request, view *services.PracticeView, err error) {
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}

func (s *Server) handleStartPractice(w http.ResponseWriter, r *http.Request) {
	var req startPracticeRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	view, err := s.PracticeService.StartPractice(r.Context(), req.SubjectID, req.options())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, view)
}

func (s *Server) handleGetPractice(w http.ResponseWriter, r *http.Request) {
	view, err := s.PracticeService.GetPractice(r.Context(), practiceID(r))
	writePractice(w, r, view, err)
}

func (s *Server) handleEndPractice(w http.ResponseWriter, r *http.Request) {
	if err := s.PracticeService.EndPractice(r.Context(), practiceID(r)); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePracticeSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	view, err := s.PracticeService.Select(r.Context(), practiceID(r), req.Option)
	writePractice(w, r, view, err)
}

func (s *Server) handlePracticeReveal(w http.ResponseWriter, r *http.Request) {
	view, err := s.PracticeService.Reveal(r.Context(), practiceID(r))
	writePractice(w, r, view, err)
}

func (s *Server) handlePracticeNavigate(w http.ResponseWriter, r *http.Request) {
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
	view, err := s.PracticeService.Navigate(r.Context(), practiceID(r), action, req.Index)
	writePractice(w, r, view, err)
}

func (s *Server) handlePracticeReset(w http.ResponseWriter, r *http.Request) {
	view, err := s.PracticeService.Reset(r.Context(), practiceID(r))
	writePractice(w, r, view, err)
}

func (s *Server) handlePracticeToggleQuestions(w http.ResponseWriter, r *http.Request) {
	view, err := s.PracticeService.ToggleQuestionShuffle(r.Context(), practiceID(r))
	writePractice(w, r, view, err)
}

func (s *Server) handlePracticeToggleOptions(w http.ResponseWriter, r *http.Request) {
	view, err := s.PracticeService.ToggleOptionShuffle(r.Context(), practiceID(r))
	writePractice(w, r, view, err)
}

func (s *Server) handlePracticeRetry(w http.ResponseWriter, r *http.Request) {
	view, err := s.PracticeService.RetryIncorrect(r.Context(), practiceID(r))
	writePractice(w, r, view, err)
}

func (s *Server) handlePracticeExitRetry(w http.ResponseWriter, r *http.Request) {
	view, err := s.PracticeService.ExitRetry(r.Context(), practiceID(r))
	writePractice(w, r, view, err)
}
