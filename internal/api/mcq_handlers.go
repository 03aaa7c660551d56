package api

import (
	stderrors "errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/vytor/quizflash/internal/errors"
	"github.com/vytor/quizflash/internal/importer"
	"github.com/vytor/quizflash/internal/logger"
	"github.com/vytor/quizflash/internal/models"
	"github.com/vytor/quizflash/internal/services"
)

// importFormField is the multipart field holding an uploaded file.
const importFormField = "file"

func (s *Server) handleListMCQs(w http.ResponseWriter, r *http.Request) {
	query := services.SearchQuery{
		Text:       r.URL.Query().Get("q"),
		InQuestion: queryBool(r, "inQuestion"),
		InOptions:  queryBool(r, "inOptions"),
	}

	mcqs, err := s.MCQService.SearchMCQs(r.Context(), chi.URLParam(r, "subjectID"), query)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, mcqs)
}

func (s *Server) handleAddMCQ(w http.ResponseWriter, r *http.Request) {
	var mcq models.MCQ
	if err := decodeJSON(w, r, &mcq); err != nil {
		handleError(w, r, err)
		return
	}

	added, err := s.MCQService.AddMCQ(r.Context(), chi.URLParam(r, "subjectID"), mcq)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, added)
}

func (s *Server) handleUpdateMCQ(w http.ResponseWriter, r *http.Request) {
	var mcq models.MCQ
	if err := decodeJSON(w, r, &mcq); err != nil {
		handleError(w, r, err)
		return
	}
	mcq.ID = chi.URLParam(r, "mcqID")

	updated, err := s.MCQService.UpdateMCQ(r.Context(), chi.URLParam(r, "subjectID"), mcq)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, updated)
}

func (s *Server) handleDeleteMCQ(w http.ResponseWriter, r *http.Request) {
	if err := s.MCQService.DeleteMCQ(r.Context(), chi.URLParam(r, "subjectID"), chi.URLParam(r, "mcqID")); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSaveMCQs(w http.ResponseWriter, r *http.Request) {
	var mcqs []models.MCQ
	if err := decodeJSON(w, r, &mcqs); err != nil {
		handleError(w, r, err)
		return
	}

	saved, err := s.MCQService.SaveMCQs(r.Context(), chi.URLParam(r, "subjectID"), mcqs)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, saved)
}

func (s *Server) handleClearMCQs(w http.ResponseWriter, r *http.Request) {
	if err := s.MCQService.ClearMCQs(r.Context(), chi.URLParam(r, "subjectID")); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleImportMCQs accepts either a raw JSON body or a multipart upload in
// the "file" field. The mode query parameter defaults to add.
func (s *Server) handleImportMCQs(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	subjectID := chi.URLParam(r, "subjectID")

	mode := importer.ModeAdd
	if raw := r.URL.Query().Get("mode"); raw != "" {
		parsed, err := importer.ParseMode(raw)
		if err != nil {
			handleError(w, r, errors.NewValidationError("mode", "must be override or add"))
			return
		}
		mode = parsed
	}

	body, err := s.importBody(w, r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	defer body.Close()

	log.Debug("importing mcqs: subject_id=%s mode=%s", subjectID, mode)
	report, err := s.MCQService.ImportFile(r.Context(), subjectID, body, mode)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, report)
}

func (s *Server) importBody(w http.ResponseWriter, r *http.Request) (io.ReadCloser, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if !strings.HasPrefix(mediaType, "multipart/") {
		return r.Body, nil
	}

	// Multipart framing is allowed on top of the file limit.
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes()+maxBodyBytes)
	file, _, err := r.FormFile(importFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return nil, errors.NewImportError([]errors.Detail{errors.FileDetail("File: File exceeds the upload limit")})
		}
		if stderrors.Is(err, http.ErrMissingFile) {
			return nil, errors.NewImportError([]errors.Detail{errors.FileDetail("File: No file selected")})
		}
		return nil, errors.NewBadRequestError("invalid multipart form: " + err.Error())
	}
	return file, nil
}

func (s *Server) maxUploadBytes() int64 {
	if s.MaxUploadBytes <= 0 {
		return services.DefaultMaxUploadBytes
	}
	return s.MaxUploadBytes
}

func (s *Server) handleExportMCQs(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectID")
	data, err := s.MCQService.ExportMCQs(r.Context(), subjectID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeDownload(w, "mcqs-"+subjectID+".json", data)
}
