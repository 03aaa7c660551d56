package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vytor/quizflash/internal/logger"
)

type subjectRequest struct {
	Name string `json:"name"`
}

type activeSubjectRequest struct {
	ID string `json:"id"`
}

func (s *Server) handleListSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := s.SubjectService.ListSubjects(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, subjects)
}

func (s *Server) handleCreateSubject(w http.ResponseWriter, r *http.Request) {
	var req subjectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	subject, err := s.SubjectService.CreateSubject(r.Context(), req.Name)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, subject)
}

func (s *Server) handleGetSubject(w http.ResponseWriter, r *http.Request) {
	subject, err := s.SubjectService.GetSubject(r.Context(), chi.URLParam(r, "subjectID"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, subject)
}

func (s *Server) handleRenameSubject(w http.ResponseWriter, r *http.Request) {
	var req subjectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	subject, err := s.SubjectService.RenameSubject(r.Context(), chi.URLParam(r, "subjectID"), req.Name)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, subject)
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	subject, err := s.SubjectService.ToggleFavorite(r.Context(), chi.URLParam(r, "subjectID"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, subject)
}

func (s *Server) handleDeleteSubject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "subjectID")
	if err := s.SubjectService.DeleteSubject(r.Context(), id); err != nil {
		handleError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Debug("subject %s deleted via api", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleActiveSubject(w http.ResponseWriter, r *http.Request) {
	subject, err := s.SubjectService.ActiveSubject(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"subject": subject})
}

func (s *Server) handleSetActiveSubject(w http.ResponseWriter, r *http.Request) {
	var req activeSubjectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.SubjectService.SetActiveSubject(r.Context(), req.ID); err != nil {
		handleError(w, r, err)
		return
	}
	s.handleActiveSubject(w, r)
}
