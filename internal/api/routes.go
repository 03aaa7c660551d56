package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

const requestTimeout = 30 * time.Second

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)
	r.Use(securityHeadersMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins(),
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(timeoutMiddleware(requestTimeout))

		r.Route("/subjects", func(r chi.Router) {
			r.Get("/", s.handleListSubjects)
			r.Post("/", s.handleCreateSubject)
			r.Get("/active", s.handleActiveSubject)
			r.Put("/active", s.handleSetActiveSubject)

			r.Route("/{subjectID}", func(r chi.Router) {
				r.Get("/", s.handleGetSubject)
				r.Patch("/", s.handleRenameSubject)
				r.Delete("/", s.handleDeleteSubject)
				r.Post("/favorite", s.handleToggleFavorite)

				r.Route("/mcqs", func(r chi.Router) {
					r.Get("/", s.handleListMCQs)
					r.Post("/", s.handleAddMCQ)
					r.Put("/", s.handleSaveMCQs)
					r.Delete("/", s.handleClearMCQs)
					r.Post("/import", s.handleImportMCQs)
					r.Get("/export", s.handleExportMCQs)
					r.Put("/{mcqID}", s.handleUpdateMCQ)
					r.Delete("/{mcqID}", s.handleDeleteMCQ)
				})
			})
		})

		r.Route("/exam", func(r chi.Router) {
			r.Post("/", s.handleStartExam)
			r.Get("/", s.handleCurrentExam)
			r.Post("/answer", s.handleAnswerExam)
			r.Post("/navigate", s.handleNavigateExam)
			r.Post("/submit", s.handleSubmitExam)
			r.Post("/exit", s.handleExitExam)
			r.Get("/result", s.handleExamResult)
			r.Get("/result/export", s.handleExportExamResult)
		})

		r.Route("/practice", func(r chi.Router) {
			r.Post("/", s.handleStartPractice)
			r.Route("/{practiceID}", func(r chi.Router) {
				r.Get("/", s.handleGetPractice)
				r.Delete("/", s.handleEndPractice)
				r.Post("/select", s.handlePracticeSelect)
				r.Post("/reveal", s.handlePracticeReveal)
				r.Post("/navigate", s.handlePracticeNavigate)
				r.Post("/reset", s.handlePracticeReset)
				r.Post("/shuffle/questions", s.handlePracticeToggleQuestions)
				r.Post("/shuffle/options", s.handlePracticeToggleOptions)
				r.Post("/retry", s.handlePracticeRetry)
				r.Delete("/retry", s.handlePracticeExitRetry)
			})
		})
	})
	return r
}

func (s *Server) allowedOrigins() []string {
	if len(s.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	return s.AllowedOrigins
}
