package api

import (
	"net/http"

	"github.com/vytor/quizflash/internal/errors"
	"github.com/vytor/quizflash/internal/logger"
)

type errorBody struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details []errors.Detail `json:"details,omitempty"`
}

// handleError centralizes error handling for HTTP responses
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	appErr, ok := errors.As(err)
	if !ok {
		appErr = errors.NewInternalError(err)
	}

	if appErr.Status >= 500 {
		log.Error("server error: %v", appErr)
	} else if appErr.Status >= 400 {
		log.Warn("client error: %v", appErr)
	} else {
		log.Debug("error: %v", appErr)
	}

	writeJSON(w, r, appErr.Status, map[string]errorBody{
		"error": {
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		},
	})
}
