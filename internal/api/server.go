package api

import (
	"github.com/vytor/quizflash/internal/services"
	"github.com/vytor/quizflash/internal/store"
)

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	SubjectService  services.SubjectService
	MCQService      services.MCQService
	ExamService     services.ExamService
	PracticeService services.PracticeService
	// Pinger backs /readyz; nil means always ready.
	Pinger         store.Pinger
	MaxUploadBytes int64
	AllowedOrigins []string
}
