// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cron parses 5-field cron expressions and finds their
// occurrences. It schedules the overdue-task sweep.
//
//	┌───────────── minute (0-59)
//	│ ┌───────────── hour (0-23)
//	│ │ ┌───────────── day of month (1-31)
//	│ │ │ ┌───────────── month (1-12)
//	│ │ │ │ ┌───────────── day of week (0-6, 0=Sunday)
//	│ │ │ │ │
//	* * * * *
//
// Fields accept values (5), ranges (1-5), lists (1,3,5), steps (*/15,
// 1-30/5) and the wildcard. The shortcuts @hourly, @daily, @weekly and
// @monthly expand to their usual expressions. There is no seconds
// field and no named days or months.
//
// Schedules are evaluated in UTC. Due dates are UTC calendar dates, so
// a sweep at "0 7 * * *" runs at the same instant for every client.
package cron
