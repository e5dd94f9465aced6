// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package taskstore

import (
	"fmt"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/opsdesk/lib/schema/compliance"
)

// AppendAudit inserts an audit entry and sets its Sequence. Tx
// satisfies audit.Writer.
func (tx *Tx) AppendAudit(entry *compliance.AuditEntry) error {
	err := sqlitex.Execute(tx.conn, `INSERT INTO audit_log
		(id, task_id, action, field, old_value, new_value, actor_id, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
		Args: []any{
			entry.ID,
			entry.TaskID,
			string(entry.Action),
			optionalText(entry.Field),
			optionalText(entry.OldValue),
			optionalText(entry.NewValue),
			entry.ActorID,
			entry.Timestamp.UnixNano(),
		},
	})
	if err != nil {
		return compliance.Storage(entry.TaskID, fmt.Errorf("appending audit entry: %w", err))
	}
	entry.Sequence = tx.conn.LastInsertRowID()
	return nil
}

// History returns the audit entries for taskID in the order they were
// written: by timestamp, then by sequence. Entries for deleted tasks
// are still returned.
func (tx *Tx) History(taskID string) ([]compliance.AuditEntry, error) {
	var entries []compliance.AuditEntry
	err := sqlitex.Execute(tx.conn, `SELECT sequence, id, task_id, action, field,
			old_value, new_value, actor_id, timestamp
		FROM audit_log WHERE task_id = ? ORDER BY timestamp, sequence`, &sqlitex.ExecOptions{
		Args: []any{taskID},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			entries = append(entries, compliance.AuditEntry{
				Sequence:  stmt.ColumnInt64(0),
				ID:        stmt.ColumnText(1),
				TaskID:    stmt.ColumnText(2),
				Action:    compliance.AuditAction(stmt.ColumnText(3)),
				Field:     columnOptionalText(stmt, 4),
				OldValue:  columnOptionalText(stmt, 5),
				NewValue:  columnOptionalText(stmt, 6),
				ActorID:   stmt.ColumnText(7),
				Timestamp: time.Unix(0, stmt.ColumnInt64(8)).UTC(),
			})
			return nil
		},
	})
	if err != nil {
		return nil, compliance.Storage(taskID, fmt.Errorf("reading audit history: %w", err))
	}
	return entries, nil
}

func optionalText(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

func columnOptionalText(stmt *sqlite.Stmt, column int) *string {
	if stmt.ColumnIsNull(column) {
		return nil
	}
	text := stmt.ColumnText(column)
	return &text
}
