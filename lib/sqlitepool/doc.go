// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool provides the standard SQLite connection pool for
// opsdesk services.
//
// It wraps zombiezen.com/go/sqlite with production defaults: WAL
// journal mode, NORMAL synchronous, a busy timeout for write
// contention, and a modest page cache. Callers either [Pool.Take] and
// [Pool.Put] connections directly, or use the [Pool.Write] and
// [Pool.Read] helpers, which run a function inside an IMMEDIATE or
// deferred transaction and commit or roll back based on its error.
//
// # Pragmas
//
//   - journal_mode=WAL: readers never block the single writer.
//   - synchronous=NORMAL: survives process crashes without an fsync
//     per commit.
//   - busy_timeout=5000: wait up to 5 seconds for the write lock.
//   - foreign_keys=OFF: stores manage referential integrity
//     explicitly. The compliance store, for example, deletes a task's
//     timer sessions but deliberately keeps its audit history.
//   - cache_size=-8192: 8 MB page cache per connection.
//   - temp_store=MEMORY.
//
// # Migrations
//
// [Config].Migrations is an ordered list of SQL scripts. Open applies
// every script whose index is at or above the database's
// PRAGMA user_version, each in its own IMMEDIATE transaction, and
// records the new version. Scripts are append-only: never edit one
// that has shipped.
//
// # Usage
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:       "/var/lib/opsdesk/compliance.db",
//	    Logger:     logger,
//	    Migrations: []string{schemaV1},
//	})
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	err = pool.Write(ctx, func(conn *sqlite.Conn) error {
//	    return sqlitex.Execute(conn, "UPDATE ...", &sqlitex.ExecOptions{Args: args})
//	})
package sqlitepool
