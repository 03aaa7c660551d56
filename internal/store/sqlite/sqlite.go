// Package sqlite persists key-value entries in the kv_entries table.
package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/vytor/quizflash/internal/logger"
	"github.com/vytor/quizflash/internal/store"
)

var sqlBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

const upsertSuffix = "ON CONFLICT(entry_key) DO UPDATE SET entry_value = excluded.entry_value, updated_at = CURRENT_TIMESTAMP"

type Store struct {
	db *sql.DB
}

// New returns a Store over db. The kv_entries migration must already be applied.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	log := logger.FromContext(ctx).WithPrefix("kv_sqlite").WithField("key", key)

	query, args, err := sqlBuilder.
		Select("entry_value").
		From("kv_entries").
		Where(squirrel.Eq{"entry_key": key}).
		ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return "", err
	}

	var value string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		log.Error("failed to read entry: %v", err)
		return "", err
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.exec(ctx, s.db, key, value)
}

func (s *Store) Remove(ctx context.Context, key string) error {
	log := logger.FromContext(ctx).WithPrefix("kv_sqlite").WithField("key", key)

	query, args, err := sqlBuilder.
		Delete("kv_entries").
		Where(squirrel.Eq{"entry_key": key}).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		log.Error("failed to remove entry: %v", err)
		return err
	}
	log.Debug("entry removed")
	return nil
}

// SetMany writes all values in one transaction.
func (s *Store) SetMany(ctx context.Context, values map[string]string) error {
	return tx(ctx, s.db, func(tx *sql.Tx) error {
		for key, value := range values {
			if err := s.exec(ctx, tx, key, value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) exec(ctx context.Context, e execer, key, value string) error {
	log := logger.FromContext(ctx).WithPrefix("kv_sqlite").WithField("key", key)

	query, args, err := sqlBuilder.
		Insert("kv_entries").
		Columns("entry_key", "entry_value").
		Values(key, value).
		Suffix(upsertSuffix).
		ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return err
	}
	if _, err := e.ExecContext(ctx, query, args...); err != nil {
		log.Error("failed to write entry: %v", err)
		return err
	}
	log.Debug("entry written (%d bytes)", len(value))
	return nil
}

func tx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	log := logger.FromContext(ctx).WithPrefix("kv_sqlite")
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction: %v", err)
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		log.Debug("transaction rolled back due to error: %v", err)
		return err
	}
	if err := tx.Commit(); err != nil {
		log.Error("failed to commit transaction: %v", err)
		return err
	}
	log.Debug("transaction committed")
	return nil
}

var (
	_ store.Store   = (*Store)(nil)
	_ store.Batcher = (*Store)(nil)
	_ store.Pinger  = (*Store)(nil)
)
