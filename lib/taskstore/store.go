// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package taskstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"

	"github.com/bureau-foundation/opsdesk/lib/schema/compliance"
	"github.com/bureau-foundation/opsdesk/lib/sqlitepool"
)

// ErrConflict reports that a task row changed between the read and
// the write that was supposed to replace it. Wrapped in a Storage
// error.
var ErrConflict = errors.New("taskstore: task was modified concurrently")

// Config holds the parameters for opening a store.
type Config struct {
	// Path is the SQLite database file. The parent directory must
	// exist.
	Path string

	// PoolSize is the number of pooled connections. Defaults to 4.
	PoolSize int

	// Logger receives operational messages. Required.
	Logger *slog.Logger
}

// Store is the SQLite-backed task store.
type Store struct {
	pool   *sqlitepool.Pool
	logger *slog.Logger
}

// Open opens (creating if necessary) the database at cfg.Path and
// brings its schema up to date.
func Open(cfg Config) (*Store, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("taskstore: Logger is required")
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:       cfg.Path,
		PoolSize:   poolSize,
		Logger:     cfg.Logger,
		Migrations: migrations,
	})
	if err != nil {
		return nil, fmt.Errorf("taskstore: %w", err)
	}
	return &Store{pool: pool, logger: cfg.Logger}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Update runs fn in an IMMEDIATE transaction. If fn returns an error
// every write it made is rolled back and the error is returned
// unchanged.
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error) error {
	return s.run(ctx, s.pool.Write, fn)
}

// View runs fn in a read transaction.
func (s *Store) View(ctx context.Context, fn func(tx *Tx) error) error {
	return s.run(ctx, s.pool.Read, fn)
}

func (s *Store) run(
	ctx context.Context,
	transact func(context.Context, func(*sqlite.Conn) error) error,
	fn func(tx *Tx) error,
) error {
	err := transact(ctx, func(conn *sqlite.Conn) error {
		return fn(&Tx{conn: conn})
	})
	if err == nil {
		return nil
	}
	var domainError *compliance.Error
	if errors.As(err, &domainError) {
		return err
	}
	// Pool failures (context cancellation, BEGIN/COMMIT errors) and
	// errors fn produced on its own surface as storage failures.
	return compliance.Storage("", err)
}

// Tx is a view of the database inside one transaction. It must not be
// retained after the function it was passed to returns.
type Tx struct {
	conn *sqlite.Conn
}
