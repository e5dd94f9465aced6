// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for the opsdesk CLI.
//
// The central type is [Command], a named subcommand with optional
// nested [Command.Subcommands], a parameter struct whose tagged fields
// become pflag flags (see [BindFlags]), and a Run function. Commands
// are assembled into a tree in cmd/opsdesk and dispatched via
// [Command.Execute], which handles flag parsing, subcommand routing,
// and structured help output with examples.
//
// When a user types an unknown subcommand or flag, the framework
// computes Levenshtein edit distance against all known names and
// suggests the closest match (threshold: distance <= 3).
//
// [Connection] carries the --socket, --actor, and --role flags shared
// by every command that talks to the compliance service. Errors the
// service returns are mapped onto exit codes by [ExitCodeFor].
package cli
