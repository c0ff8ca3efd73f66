// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package repository provides sqlx-based data access for events,
// reservations and check-in tokens.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/vinovest/sqlx"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateReservation is returned when the (event, email) unique
	// index rejects an insert.
	ErrDuplicateReservation = errors.New("reservation already exists for this event and email")
	// ErrDuplicateToken is returned when a generated token string collides
	// with an existing one.
	ErrDuplicateToken = errors.New("token already exists")
)

// Repository wraps sqlx for database operations.
type Repository struct {
	db *sqlx.DB
}

// New creates a new Repository instance.
func New(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// DB returns the underlying sqlx DB for direct access.
func (r *Repository) DB() *sqlx.DB {
	return r.db
}

type txKey struct{}

// WithTx runs fn inside a transaction. The transaction is carried in the
// context, so repository methods called from fn automatically take part
// in it. Transactions start with BEGIN IMMEDIATE (via the DSN default),
// which serializes concurrent writers; the capacity check and the insert
// of a reserve call are therefore one indivisible unit of work.
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func txFromContext(ctx context.Context) *sqlx.Tx {
	tx, _ := ctx.Value(txKey{}).(*sqlx.Tx)
	return tx
}

// querier is satisfied by both *sqlx.DB and *sqlx.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// q returns the active transaction from the context, or the plain
// connection when no transaction is open.
func (r *Repository) q(ctx context.Context) querier {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return r.db
}

// isUniqueViolation reports whether err is a SQLite unique-constraint
// failure on the given columns, e.g. "reservation_tokens.token".
func isUniqueViolation(err error, columns string) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: "+columns)
}
