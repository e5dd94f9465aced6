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

const sessionColumns = "id, task_id, user_id, start_time, end_time, duration_seconds"

// OpenSession returns the task's open timer session, or nil if none is
// open.
func (tx *Tx) OpenSession(taskID string) (*compliance.TimerSession, error) {
	sessions, err := tx.querySessions(taskID,
		"SELECT "+sessionColumns+" FROM timer_sessions WHERE task_id = ? AND end_time IS NULL", taskID)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return &sessions[0], nil
}

// Sessions returns every session recorded for the task, oldest first.
func (tx *Tx) Sessions(taskID string) ([]compliance.TimerSession, error) {
	return tx.querySessions(taskID,
		"SELECT "+sessionColumns+" FROM timer_sessions WHERE task_id = ? ORDER BY start_time, id", taskID)
}

// InsertSession records a new open session. Fails with a
// SessionAlreadyOpen error if the task already has one.
func (tx *Tx) InsertSession(session *compliance.TimerSession) error {
	if !session.IsOpen() {
		return compliance.Invalid(session.TaskID, "session", "new session %s must be open", session.ID)
	}
	err := sqlitex.Execute(tx.conn, `INSERT INTO timer_sessions (id, task_id, user_id, start_time)
		VALUES (?, ?, ?, ?)`, &sqlitex.ExecOptions{
		Args: []any{session.ID, session.TaskID, session.UserID, session.StartTime.UnixNano()},
	})
	if err != nil {
		if sqlite.ErrCode(err) == sqlite.ResultConstraintUnique {
			return &compliance.Error{
				Kind:    compliance.KindSessionAlreadyOpen,
				TaskID:  session.TaskID,
				Message: "task already has an open timer session",
				Err:     err,
			}
		}
		return compliance.Storage(session.TaskID, fmt.Errorf("inserting timer session: %w", err))
	}
	return nil
}

// CloseSession sets the end time and duration of an open session. A
// session that is already closed is never modified; attempting to
// close one yields a NoOpenSession error.
func (tx *Tx) CloseSession(session *compliance.TimerSession, endTime time.Time, durationSeconds int64) error {
	err := sqlitex.Execute(tx.conn, `UPDATE timer_sessions SET end_time = ?, duration_seconds = ?
		WHERE id = ? AND end_time IS NULL`, &sqlitex.ExecOptions{
		Args: []any{endTime.UnixNano(), durationSeconds, session.ID},
	})
	if err != nil {
		return compliance.Storage(session.TaskID, fmt.Errorf("closing timer session %s: %w", session.ID, err))
	}
	if tx.conn.Changes() == 0 {
		return &compliance.Error{
			Kind:    compliance.KindNoOpenSession,
			TaskID:  session.TaskID,
			Message: fmt.Sprintf("timer session %s is not open", session.ID),
		}
	}
	end := endTime.UTC()
	session.EndTime = &end
	session.DurationSeconds = &durationSeconds
	return nil
}

func (tx *Tx) querySessions(taskID, query string, args ...any) ([]compliance.TimerSession, error) {
	var sessions []compliance.TimerSession
	err := sqlitex.Execute(tx.conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			sessions = append(sessions, scanSession(stmt))
			return nil
		},
	})
	if err != nil {
		return nil, compliance.Storage(taskID, fmt.Errorf("reading timer sessions: %w", err))
	}
	return sessions, nil
}

func scanSession(stmt *sqlite.Stmt) compliance.TimerSession {
	session := compliance.TimerSession{
		ID:        stmt.ColumnText(0),
		TaskID:    stmt.ColumnText(1),
		UserID:    stmt.ColumnText(2),
		StartTime: time.Unix(0, stmt.ColumnInt64(3)).UTC(),
	}
	if !stmt.ColumnIsNull(4) {
		end := time.Unix(0, stmt.ColumnInt64(4)).UTC()
		session.EndTime = &end
	}
	if !stmt.ColumnIsNull(5) {
		duration := stmt.ColumnInt64(5)
		session.DurationSeconds = &duration
	}
	return session
}
