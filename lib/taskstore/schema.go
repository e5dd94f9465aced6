// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package taskstore

// migrations is the ordered schema history. Append new entries; never
// edit an applied one.
var migrations = []string{
	`
	CREATE TABLE tasks (
		id                    TEXT PRIMARY KEY,
		client_id             TEXT NOT NULL,
		category              TEXT NOT NULL,
		anchor_date           TEXT NOT NULL,
		due_date              TEXT NOT NULL,
		cadence               TEXT NOT NULL,
		custom_interval_days  INTEGER,
		status                TEXT NOT NULL,
		assigned_to_id        TEXT,
		completed_by_id       TEXT,
		completed_at          INTEGER,
		total_accrued_seconds INTEGER NOT NULL DEFAULT 0 CHECK (total_accrued_seconds >= 0),
		auto_schedule         INTEGER NOT NULL DEFAULT 0,
		evidence_url          TEXT,
		notes                 TEXT,
		predecessor_task_id   TEXT,
		created_at            INTEGER NOT NULL,
		updated_at            INTEGER NOT NULL,
		version               INTEGER NOT NULL DEFAULT 1,
		CHECK (due_date >= anchor_date)
	);
	CREATE INDEX idx_tasks_client ON tasks(client_id, due_date);
	CREATE INDEX idx_tasks_status_due ON tasks(status, due_date);
	CREATE INDEX idx_tasks_assignee ON tasks(assigned_to_id, due_date);
	CREATE INDEX idx_tasks_predecessor ON tasks(predecessor_task_id)
		WHERE predecessor_task_id IS NOT NULL;

	CREATE TABLE timer_sessions (
		id               TEXT PRIMARY KEY,
		task_id          TEXT NOT NULL,
		user_id          TEXT NOT NULL,
		start_time       INTEGER NOT NULL,
		end_time         INTEGER,
		duration_seconds INTEGER CHECK (duration_seconds IS NULL OR duration_seconds >= 1)
	);
	CREATE INDEX idx_timer_sessions_task ON timer_sessions(task_id, start_time);
	CREATE UNIQUE INDEX idx_timer_sessions_open ON timer_sessions(task_id)
		WHERE end_time IS NULL;

	CREATE TABLE audit_log (
		sequence   INTEGER PRIMARY KEY AUTOINCREMENT,
		id         TEXT NOT NULL UNIQUE,
		task_id    TEXT NOT NULL,
		action     TEXT NOT NULL,
		field      TEXT,
		old_value  TEXT,
		new_value  TEXT,
		actor_id   TEXT NOT NULL,
		timestamp  INTEGER NOT NULL
	);
	CREATE INDEX idx_audit_log_task ON audit_log(task_id, timestamp, sequence);

	CREATE TRIGGER audit_log_no_update BEFORE UPDATE ON audit_log
	BEGIN
		SELECT RAISE(ABORT, 'audit_log is append-only');
	END;
	CREATE TRIGGER audit_log_no_delete BEFORE DELETE ON audit_log
	BEGIN
		SELECT RAISE(ABORT, 'audit_log is append-only');
	END;
	`,
}
