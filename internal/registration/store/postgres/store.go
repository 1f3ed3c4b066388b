// Package postgres stores guardians, participants and registrations in
// PostgreSQL. Queries run on the transaction carried by the context when
// there is one.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	pgplatform "retreat/internal/platform/postgres"
	"retreat/pkg/platform/sentinel"
	txcontext "retreat/pkg/platform/tx"
)

// Store owns the database handle. Use Guardians, Participants and
// Registrations for the per-table views.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Guardians() *GuardianStore         { return &GuardianStore{db: s.db} }
func (s *Store) Participants() *ParticipantStore   { return &ParticipantStore{db: s.db} }
func (s *Store) Registrations() *RegistrationStore { return &RegistrationStore{db: s.db} }

// RunInTx opens a transaction, places it on the context handed to fn and
// commits when fn succeeds. Nested calls join the outer transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txcontext.From(ctx); ok {
		return fn(ctx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return translate(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// translate maps driver errors onto storage sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return sentinel.ErrNotFound
	case pgplatform.IsUniqueViolation(err, ""):
		return fmt.Errorf("%w: %w", sentinel.ErrConflict, err)
	default:
		return err
	}
}

// mustAffect reports ErrNotFound when a write matched no row.
func mustAffect(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// escapeLike escapes LIKE wildcards in user input.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func exec(ctx context.Context, db *sql.DB) txcontext.Executor {
	return txcontext.Exec(ctx, db)
}
