package testutil

import (
	"context"
	"database/sql"
	"strconv"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/vytor/quizflash/internal/db"
	"github.com/vytor/quizflash/internal/logger"
	"github.com/vytor/quizflash/internal/models"
)

// NewTestDB creates an in-memory SQLite database with all migrations applied.
// A single connection is kept so every query sees the same in-memory file.
func NewTestDB(t *testing.T) *sql.DB {
	sqlDB, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.Migrate(context.Background(), sqlDB, logger.New(logger.WithLevel(logger.ERROR)))
	require.NoError(t, err, "failed to apply migrations")

	return sqlDB
}

// MustClose closes a resource and fails the test on error.
func MustClose(t *testing.T, closer interface{ Close() error }) {
	require.NoError(t, closer.Close())
}

// SampleMCQs returns n valid questions with four options each. Question i
// has id "q<i>" and its correct answer at index i%4.
func SampleMCQs(n int) []models.MCQ {
	out := make([]models.MCQ, n)
	for i := range out {
		out[i] = models.MCQ{
			ID:          "q" + strconv.Itoa(i),
			Q:           "Question " + strconv.Itoa(i),
			Opts:        []string{"A" + strconv.Itoa(i), "B" + strconv.Itoa(i), "C" + strconv.Itoa(i), "D" + strconv.Itoa(i)},
			Answer:      i % 4,
			Explanation: "Because " + strconv.Itoa(i),
		}
	}
	return out
}
